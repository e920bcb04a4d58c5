package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

type webhookFixture struct {
	repo      *MockProfileRepository
	dedup     *MockIdempotencyStore
	publisher *MockEventPublisher
	svc       *WebhookService
	profile   *connection.ConnectionProfile
}

func newWebhookFixture(secret string) *webhookFixture {
	f := &webhookFixture{
		repo:      new(MockProfileRepository),
		dedup:     new(MockIdempotencyStore),
		publisher: new(MockEventPublisher),
		profile:   storedProfile(secret),
	}
	profiles := NewProfileService(f.repo, nil)
	f.svc = NewWebhookService(profiles, f.dedup, f.publisher, nil)
	f.repo.On("FindByID", mock.Anything, f.profile.ID).Return(f.profile, nil)
	f.repo.On("CurrentVersion", mock.Anything, f.profile.ID).Return(f.profile.Version, nil).Maybe()
	return f
}

func TestWebhookService_VerifyDelivery(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id":42,"stock_quantity":3}`)

	t.Run("signed delivery is accepted and published", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.dedup.On("MarkProcessed", ctx, dedupKey(f.profile.ID, "d-1"), 24*time.Hour).Return(true, nil)
		f.publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == connection.EventTypeWebhookDeliveryAccepted
		})).Return(nil)

		result, err := f.svc.VerifyDelivery(ctx, Delivery{
			ProfileID:  f.profile.ID,
			DeliveryID: "d-1",
			Topic:      "product.updated",
			Signature:  connection.SignPayload("hook-secret", payload),
			Payload:    payload,
		})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		assert.Equal(t, "product.updated", result.Topic)
		f.publisher.AssertExpectations(t)
	})

	t.Run("plain secret is accepted", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, Secret: "hook-secret"})
		require.NoError(t, err)
		f.dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejections are indistinguishable", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		unknown := uuid.New()
		f.repo.On("FindByID", mock.Anything, unknown).Return(nil, shared.ErrNotFound)

		cases := []Delivery{
			{ProfileID: f.profile.ID, Secret: "wrong"},
			{ProfileID: f.profile.ID, Signature: connection.SignPayload("wrong", payload), Payload: payload},
			{ProfileID: f.profile.ID},
			{ProfileID: unknown, Secret: "hook-secret"},
		}
		for _, d := range cases {
			_, err := f.svc.VerifyDelivery(ctx, d)
			assert.ErrorIs(t, err, shared.ErrDeliveryRejected)
		}
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("profile without a secret rejects everything", func(t *testing.T) {
		f := newWebhookFixture("")
		_, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, Secret: ""})
		assert.ErrorIs(t, err, shared.ErrDeliveryRejected)
	})

	t.Run("repeated delivery id is a duplicate", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.dedup.On("MarkProcessed", ctx, dedupKey(f.profile.ID, "d-2"), 24*time.Hour).Return(false, nil)

		result, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, DeliveryID: "d-2", Secret: "hook-secret"})
		require.NoError(t, err)
		assert.True(t, result.Duplicate)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("dedup outage does not drop the delivery", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.svc.SetDedupConfig(shared.IdempotencyConfig{Enabled: true, TTL: time.Hour})
		f.dedup.On("MarkProcessed", ctx, dedupKey(f.profile.ID, "d-3"), time.Hour).Return(false, errors.New("redis down"))
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		result, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, DeliveryID: "d-3", Secret: "hook-secret"})
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
	})

	t.Run("rotated secret no longer verifies", func(t *testing.T) {
		f := newWebhookFixture("old-secret")
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, Secret: "old-secret"})
		require.NoError(t, err)

		_, err = connection.NewWebhookSecretManager().Rotate(f.profile)
		require.NoError(t, err)

		_, err = f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, Secret: "old-secret"})
		assert.ErrorIs(t, err, shared.ErrDeliveryRejected)
	})
	t.Run("failed publish releases the delivery id for the retry", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		key := dedupKey(f.profile.ID, "d-4")
		f.dedup.On("MarkProcessed", ctx, key, 24*time.Hour).Return(true, nil).Once()
		f.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("bus stopped")).Once()
		f.dedup.On("Release", mock.Anything, key).Return(nil).Once()

		d := Delivery{ProfileID: f.profile.ID, DeliveryID: "d-4", Secret: "hook-secret"}
		_, err := f.svc.VerifyDelivery(ctx, d)
		require.Error(t, err)

		// The storefront's retry is claimed afresh and published.
		f.dedup.On("MarkProcessed", ctx, key, 24*time.Hour).Return(true, nil).Once()
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil).Once()
		result, err := f.svc.VerifyDelivery(ctx, d)
		require.NoError(t, err)
		assert.False(t, result.Duplicate)
		f.dedup.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("failed publish without a claim releases nothing", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.publisher.On("Publish", ctx, mock.Anything).Return(errors.New("bus down"))

		_, err := f.svc.VerifyDelivery(ctx, Delivery{ProfileID: f.profile.ID, Secret: "hook-secret"})
		require.Error(t, err)
		f.dedup.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("dedup switched off accepts repeats", func(t *testing.T) {
		f := newWebhookFixture("hook-secret")
		f.svc.SetDedupConfig(shared.IdempotencyConfig{Enabled: false})
		f.publisher.On("Publish", ctx, mock.Anything).Return(nil).Twice()

		d := Delivery{ProfileID: f.profile.ID, DeliveryID: "d-5", Secret: "hook-secret"}
		for i := 0; i < 2; i++ {
			result, err := f.svc.VerifyDelivery(ctx, d)
			require.NoError(t, err)
			assert.False(t, result.Duplicate)
		}
		f.dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}
