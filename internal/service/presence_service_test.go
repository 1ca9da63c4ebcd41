package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/realtime"
	"github.com/campusconnect/campus-api/internal/repository"
)

func newPresenceServiceForTest(t *testing.T) (PresenceService, *realtime.PresenceStore, repository.ProfileRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PrivacySettings{}))

	store := realtime.NewPresenceStore(nil, "", nil, time.Minute, zerolog.Nop())
	profiles := repository.NewProfileRepository(db)
	return NewPresenceService(store, profiles, zerolog.Nop()), store, profiles
}

func TestPresenceStatusReflectsStore(t *testing.T) {
	svc, store, _ := newPresenceServiceForTest(t)
	ctx := context.Background()

	status, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, dto.PresenceStateUnknown, status.State, "never observed users are unknown, not offline")

	release := store.Track(ctx, "alice")
	defer release()

	status, err = svc.Status(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, dto.PresenceStateOnline, status.State)
	require.Equal(t, "alice", status.UserID)
}

func TestPresenceHiddenOnlineStatus(t *testing.T) {
	svc, store, profiles := newPresenceServiceForTest(t)
	ctx := context.Background()

	settings, err := profiles.SettingsFor(ctx, "alice")
	require.NoError(t, err)
	settings.ShowOnlineStatus = false
	require.NoError(t, profiles.SaveSettings(ctx, &settings))

	release := store.Track(ctx, "alice")
	defer release()

	status, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	require.NotEqual(t, dto.PresenceStateOnline, status.State, "hidden status never reads as online")
}

func TestPresenceHiddenLastSeen(t *testing.T) {
	svc, store, profiles := newPresenceServiceForTest(t)
	ctx := context.Background()

	release := store.Track(ctx, "alice")
	release()

	status, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, dto.PresenceStateOffline, status.State)
	require.NotNil(t, status.LastActive, "visible last-seen is reported after going offline")

	settings, err := profiles.SettingsFor(ctx, "alice")
	require.NoError(t, err)
	settings.ShowLastSeen = false
	require.NoError(t, profiles.SaveSettings(ctx, &settings))

	status, err = svc.Status(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, status.LastActive)
	require.Equal(t, dto.PresenceStateUnknown, status.State, "without a last-seen the user is simply unknown")
}

func TestPresenceStatusBatch(t *testing.T) {
	svc, store, _ := newPresenceServiceForTest(t)
	ctx := context.Background()

	release := store.Track(ctx, "alice")
	defer release()

	statuses, err := svc.StatusBatch(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, dto.PresenceStateOnline, statuses[0].State)
	require.Equal(t, dto.PresenceStateUnknown, statuses[1].State)
}
