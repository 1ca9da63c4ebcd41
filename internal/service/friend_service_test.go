package service

import (
	"context"
	"fmt"
	"sync"
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

type capturingNotifier struct {
	mu        sync.Mutex
	published []dto.NotificationCreateRequest
}

func (c *capturingNotifier) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, payload)
	return dto.NotificationResponse{}, nil
}

func (c *capturingNotifier) last(t *testing.T) dto.NotificationCreateRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.published)
	return c.published[len(c.published)-1]
}

func setupFriendTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Friendship{}, &models.PrivacySettings{}, &models.Profile{}))
	return db
}

func newFriendServiceForTest(t *testing.T, db *gorm.DB, notifier NotificationPublisher) FriendService {
	t.Helper()
	return NewFriendService(
		repository.NewFriendRepository(db),
		repository.NewProfileRepository(db),
		notifier,
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
}

func TestFriendRequestLifecycle(t *testing.T) {
	db := setupFriendTestDB(t)
	notifier := &capturingNotifier{}
	svc := newFriendServiceForTest(t, db, notifier)
	ctx := context.Background()

	request, err := svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusPending, request.Status)

	notification := notifier.last(t)
	require.Equal(t, "bob", notification.UserID)
	require.Equal(t, models.NotificationTypeFriend, notification.Type)

	pending, err := svc.Pending(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	accepted, err := svc.Accept(ctx, "bob", request.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusAccepted, accepted.Status)

	notification = notifier.last(t)
	require.Equal(t, "alice", notification.UserID, "the requester learns about the acceptance")

	friends, err := svc.Friends(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)

	ids, err := svc.FriendIDs(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, ids)

	ids, err = svc.FriendIDs(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, ids, "counterpart ids are symmetric")
}

func TestFriendRequestRejectsSelf(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)

	_, err := svc.Request(context.Background(), "alice", dto.FriendRequestCreate{AddresseeID: "alice"})
	require.ErrorIs(t, err, ErrSelfFriendship)
}

func TestFriendRequestDuplicateEitherDirection(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)
	ctx := context.Background()

	_, err := svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)

	_, err = svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.ErrorIs(t, err, ErrFriendRequestExists)

	_, err = svc.Request(ctx, "bob", dto.FriendRequestCreate{AddresseeID: "alice"})
	require.ErrorIs(t, err, ErrFriendRequestExists, "reverse direction is the same edge")
}

func TestFriendRequestHonoursClosedSetting(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)
	ctx := context.Background()

	settings, err := repository.NewProfileRepository(db).SettingsFor(ctx, "bob")
	require.NoError(t, err)
	settings.AllowFriendRequests = false
	require.NoError(t, db.Save(&settings).Error)

	_, err = svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.ErrorIs(t, err, ErrFriendRequestsClosed)
}

func TestOnlyAddresseeResolvesRequest(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)
	ctx := context.Background()

	request, err := svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, "alice", request.ID)
	require.ErrorIs(t, err, ErrNotAddressee)

	_, err = svc.Decline(ctx, "carol", request.ID)
	require.ErrorIs(t, err, ErrNotAddressee)

	declined, err := svc.Decline(ctx, "bob", request.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusDeclined, declined.Status)
}

func TestRemoveFriendship(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)
	ctx := context.Background()

	request, err := svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)
	_, err = svc.Accept(ctx, "bob", request.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Remove(ctx, "carol", request.ID), ErrFriendshipNotFound, "outsiders cannot remove the edge")
	require.NoError(t, svc.Remove(ctx, "alice", request.ID))
	require.ErrorIs(t, svc.Remove(ctx, "alice", request.ID), ErrFriendshipNotFound)

	friends, err := svc.Friends(ctx, "bob")
	require.NoError(t, err)
	require.Empty(t, friends)
}

func TestAcceptUnknownFriendship(t *testing.T) {
	db := setupFriendTestDB(t)
	svc := newFriendServiceForTest(t, db, nil)

	_, err := svc.Accept(context.Background(), "bob", 999)
	require.ErrorIs(t, err, ErrFriendshipNotFound)
}

func TestFriendNotificationCarriesSenderProfile(t *testing.T) {
	db := setupFriendTestDB(t)
	notifier := &capturingNotifier{}
	svc := newFriendServiceForTest(t, db, notifier)
	ctx := context.Background()

	profile := models.Profile{UserID: "alice", Name: "Alice Chen", AvatarURL: "https://cdn.example.com/alice.png"}
	require.NoError(t, db.Create(&profile).Error)

	_, err := svc.Request(ctx, "alice", dto.FriendRequestCreate{AddresseeID: "bob"})
	require.NoError(t, err)

	notification := notifier.last(t)
	require.NotNil(t, notification.Sender)
	require.Equal(t, "Alice Chen", notification.Sender.Name)
	require.Contains(t, notification.Message, "Alice Chen")
}
