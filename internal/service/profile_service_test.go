package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
)

func setupProfileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Profile{}, &models.PrivacySettings{}))
	return db
}

func newProfileServiceForTest(t *testing.T, db *gorm.DB) ProfileService {
	t.Helper()
	return NewProfileService(
		repository.NewProfileRepository(db),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
}

func strPtr(v string) *string { return &v }

func TestProfileUpdateCreatesAndMerges(t *testing.T) {
	db := setupProfileTestDB(t)
	svc := newProfileServiceForTest(t, db)
	ctx := context.Background()

	created, err := svc.Update(ctx, "alice", dto.ProfileUpdateRequest{
		Name:   strPtr("  Alice Chen  "),
		School: strPtr("State University"),
	})
	require.NoError(t, err)
	require.Equal(t, "Alice Chen", created.Name, "surrounding whitespace is trimmed")
	require.Equal(t, "State University", created.School)

	// A partial update leaves untouched fields alone.
	updated, err := svc.Update(ctx, "alice", dto.ProfileUpdateRequest{Bio: strPtr("coffee powered")})
	require.NoError(t, err)
	require.Equal(t, "Alice Chen", updated.Name)
	require.Equal(t, "coffee powered", updated.Bio)
}

func TestProfileGetStripsHiddenFields(t *testing.T) {
	db := setupProfileTestDB(t)
	svc := newProfileServiceForTest(t, db)
	ctx := context.Background()

	birthday := time.Date(2004, time.June, 12, 0, 0, 0, 0, time.UTC)
	_, err := svc.Update(ctx, "alice", dto.ProfileUpdateRequest{
		Name:     strPtr("Alice Chen"),
		School:   strPtr("State University"),
		Birthday: &birthday,
	})
	require.NoError(t, err)

	settings, err := repository.NewProfileRepository(db).SettingsFor(ctx, "alice")
	require.NoError(t, err)
	settings.ShowSchool = false
	settings.ShowBirthday = false
	require.NoError(t, db.Save(&settings).Error)

	asViewer, err := svc.Get(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Empty(t, asViewer.School)
	require.Nil(t, asViewer.Birthday)
	require.Equal(t, "Alice Chen", asViewer.Name, "name is always public")

	asOwner, err := svc.Get(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Equal(t, "State University", asOwner.School, "the owner always sees their own fields")
	require.NotNil(t, asOwner.Birthday)
}

func TestProfileGetUnknownUser(t *testing.T) {
	db := setupProfileTestDB(t)
	svc := newProfileServiceForTest(t, db)

	_, err := svc.Get(context.Background(), "bob", "ghost")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSetAvatarCreatesProfileWhenMissing(t *testing.T) {
	db := setupProfileTestDB(t)
	svc := newProfileServiceForTest(t, db)

	profile, err := svc.SetAvatar(context.Background(), "alice", "https://cdn.example.com/a.png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/a.png", profile.AvatarURL)
	require.Equal(t, "alice", profile.UserID)
}
