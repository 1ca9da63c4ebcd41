package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

func setupPostTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Post{}, &models.PostLike{}, &models.PostComment{},
		&models.Friendship{}, &models.PrivacySettings{}, &models.Profile{},
	))
	return db
}

func newPostServiceForTest(t *testing.T, db *gorm.DB, notifier NotificationPublisher) (PostService, FriendService) {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	profiles := repository.NewProfileRepository(db)
	friends := NewFriendService(repository.NewFriendRepository(db), profiles, nil, validate, zerolog.Nop())
	posts := NewPostService(repository.NewPostRepository(db), friends, profiles, notifier, validate, zerolog.Nop())
	return posts, friends
}

func TestPostCreateSanitizesContent(t *testing.T) {
	db := setupPostTestDB(t)
	svc, _ := newPostServiceForTest(t, db, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "finals week <script>alert(1)</script>survival tips"})
	require.NoError(t, err)
	require.Equal(t, "finals week survival tips", post.Content)
	require.Equal(t, "alice", post.AuthorID)

	_, err = svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "<script>only a payload</script>"})
	require.Error(t, err, "content that sanitizes away entirely is rejected")
}

func TestFeedIncludesSelfAndFriendsOnly(t *testing.T) {
	db := setupPostTestDB(t)
	svc, friends := newPostServiceForTest(t, db, nil)
	ctx := context.Background()

	request, err := friends.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)
	_, err = friends.Accept(ctx, "bob", request.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "my own post"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", dto.PostCreateRequest{Content: "friend post"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "carol", dto.PostCreateRequest{Content: "stranger post"})
	require.NoError(t, err)

	feed, err := svc.Feed(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	for _, post := range feed {
		require.NotEqual(t, "carol", post.AuthorID, "strangers never appear in the feed")
	}
}

func TestLikeIsIdempotentAndNotifiesAuthor(t *testing.T) {
	db := setupPostTestDB(t)
	notifier := &capturingNotifier{}
	svc, _ := newPostServiceForTest(t, db, notifier)
	ctx := context.Background()

	post, err := svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "newsflash"})
	require.NoError(t, err)

	liked, err := svc.Like(ctx, "bob", post.ID)
	require.NoError(t, err)
	require.Equal(t, 1, liked.LikeCount)
	require.True(t, liked.LikedByMe)

	notification := notifier.last(t)
	require.Equal(t, "alice", notification.UserID)
	require.Equal(t, models.NotificationTypeLike, notification.Type)
	require.Equal(t, fmt.Sprintf("%d", post.ID), notification.RelatedID)

	again, err := svc.Like(ctx, "bob", post.ID)
	require.NoError(t, err)
	require.Equal(t, 1, again.LikeCount, "double like does not inflate the counter")
	require.Len(t, notifier.published, 1, "double like does not notify twice")

	unliked, err := svc.Unlike(ctx, "bob", post.ID)
	require.NoError(t, err)
	require.Equal(t, 0, unliked.LikeCount)
	require.False(t, unliked.LikedByMe)
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	db := setupPostTestDB(t)
	notifier := &capturingNotifier{}
	svc, _ := newPostServiceForTest(t, db, notifier)
	ctx := context.Background()

	post, err := svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "self five"})
	require.NoError(t, err)

	_, err = svc.Like(ctx, "alice", post.ID)
	require.NoError(t, err)
	require.Empty(t, notifier.published)
}

func TestCommentLifecycle(t *testing.T) {
	db := setupPostTestDB(t)
	notifier := &capturingNotifier{}
	svc, _ := newPostServiceForTest(t, db, notifier)
	ctx := context.Background()

	post, err := svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "question time"})
	require.NoError(t, err)

	comment, err := svc.Comment(ctx, "bob", post.ID, dto.PostCommentCreateRequest{Content: "great point"})
	require.NoError(t, err)
	require.Equal(t, "great point", comment.Content)
	require.Equal(t, post.ID, comment.PostID)

	notification := notifier.last(t)
	require.Equal(t, models.NotificationTypeComment, notification.Type)
	require.Equal(t, "alice", notification.UserID)

	fetched, err := svc.Get(ctx, "bob", post.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fetched.CommentCount)
	require.Len(t, fetched.Comments, 1)

	_, err = svc.Comment(ctx, "bob", 999, dto.PostCommentCreateRequest{Content: "into the void"})
	require.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeleteRequiresAuthor(t *testing.T) {
	db := setupPostTestDB(t)
	svc, _ := newPostServiceForTest(t, db, nil)
	ctx := context.Background()

	post, err := svc.Create(ctx, "alice", dto.PostCreateRequest{Content: "short lived"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, "bob", post.ID), ErrPostNotFound)
	require.NoError(t, svc.Delete(ctx, "alice", post.ID))

	_, err = svc.Get(ctx, "alice", post.ID)
	require.ErrorIs(t, err, ErrPostNotFound)
}
