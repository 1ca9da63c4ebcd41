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

func newPushServiceForTest(t *testing.T) PushService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.PushSubscription{}))
	return NewPushService(
		repository.NewPushSubscriptionRepository(db),
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.Nop(),
	)
}

func TestPushSubscribeAndList(t *testing.T) {
	svc := newPushServiceForTest(t)
	ctx := context.Background()

	subscription, err := svc.Subscribe(ctx, "alice", "Mozilla/5.0", dto.PushSubscribeRequest{
		Endpoint: "https://push.example.com/reg/abc",
		P256dh:   "BPa1...",
		Auth:     "k9s...",
	})
	require.NoError(t, err)
	require.Equal(t, "https://push.example.com/reg/abc", subscription.Endpoint)

	// Re-registering the same endpoint refreshes it instead of duplicating.
	_, err = svc.Subscribe(ctx, "alice", "Mozilla/5.0", dto.PushSubscribeRequest{
		Endpoint: "https://push.example.com/reg/abc",
		P256dh:   "BPb2...",
		Auth:     "n4w...",
	})
	require.NoError(t, err)

	subscriptions, err := svc.Subscriptions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
}

func TestPushSubscribeValidatesEndpoint(t *testing.T) {
	svc := newPushServiceForTest(t)

	_, err := svc.Subscribe(context.Background(), "alice", "", dto.PushSubscribeRequest{
		Endpoint: "not a url",
		P256dh:   "key",
		Auth:     "auth",
	})
	require.Error(t, err)
}

func TestPushUnsubscribe(t *testing.T) {
	svc := newPushServiceForTest(t)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, "alice", "", dto.PushSubscribeRequest{
		Endpoint: "https://push.example.com/reg/xyz",
		P256dh:   "key",
		Auth:     "auth",
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Unsubscribe(ctx, "bob", "https://push.example.com/reg/xyz"), ErrPushSubscriptionNotFound, "only the owner can remove the endpoint")
	require.NoError(t, svc.Unsubscribe(ctx, "alice", "https://push.example.com/reg/xyz"))
	require.ErrorIs(t, svc.Unsubscribe(ctx, "alice", "https://push.example.com/reg/xyz"), ErrPushSubscriptionNotFound)

	subscriptions, err := svc.Subscriptions(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, subscriptions)
}
