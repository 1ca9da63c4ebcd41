package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/models"
)

func setupNotificationTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID string, read bool, createdAt time.Time) models.Notification {
	t.Helper()
	notification := models.Notification{
		UserID:    userID,
		Type:      models.NotificationTypeSystem,
		Message:   "hello",
		Read:      read,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&notification).Error)
	return notification
}

func TestNotificationListNewestFirst(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		seedNotification(t, db, "alice", false, base.Add(time.Duration(i)*time.Hour))
	}
	seedNotification(t, db, "bob", false, base)

	records, err := repo.ListByUser(ctx, "alice", 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, base.Add(2*time.Hour).Unix(), records[0].CreatedAt.Unix())
	for _, record := range records {
		require.Equal(t, "alice", record.UserID)
	}

	page, err := repo.ListByUser(ctx, "alice", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1, "offset walks past the first page")
}

func TestNotificationMarkReadScopedToOwner(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	record := seedNotification(t, db, "alice", false, time.Now().UTC())

	_, err := repo.MarkRead(ctx, record.ID, "bob")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "another user's id never matches")

	updated, err := repo.MarkRead(ctx, record.ID, "alice")
	require.NoError(t, err)
	require.True(t, updated.Read)

	// Marking twice is a no-op.
	updated, err = repo.MarkRead(ctx, record.ID, "alice")
	require.NoError(t, err)
	require.True(t, updated.Read)
}

func TestNotificationMarkAllReadAndCount(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	seedNotification(t, db, "alice", false, now)
	seedNotification(t, db, "alice", false, now)
	seedNotification(t, db, "alice", true, now)
	seedNotification(t, db, "bob", false, now)

	count, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	affected, err := repo.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 2, affected)

	count, err = repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 0, count)

	count, err = repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "other users are untouched")
}

func TestNotificationDeleteScopedToOwner(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	record := seedNotification(t, db, "alice", false, now)
	seedNotification(t, db, "alice", false, now)

	require.ErrorIs(t, repo.Delete(ctx, record.ID, "bob"), gorm.ErrRecordNotFound)
	require.NoError(t, repo.Delete(ctx, record.ID, "alice"))
	require.ErrorIs(t, repo.Delete(ctx, record.ID, "alice"), gorm.ErrRecordNotFound)

	affected, err := repo.DeleteAll(ctx, "alice")
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)
}
