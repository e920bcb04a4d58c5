package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/telemetry"
)

// Delivery is one inbound storefront webhook call
type Delivery struct {
	ProfileID  uuid.UUID
	DeliveryID string
	Topic      string
	// Signature is the base64 HMAC-SHA256 of Payload
	Signature string
	// Secret is the plain shared secret from the X-Webhook-Secret header,
	// used when no signature is sent
	Secret  string
	Payload []byte
}

// DeliveryResult reports what happened to an authenticated delivery
type DeliveryResult struct {
	ProfileID  uuid.UUID `json:"profile_id"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Topic      string    `json:"topic,omitempty"`
	Duplicate  bool      `json:"duplicate"`
}

// WebhookService authenticates inbound deliveries and hands them to sync workers
type WebhookService struct {
	profiles  *ProfileService
	secrets   *connection.WebhookSecretManager
	dedup     shared.IdempotencyStore
	dedupCfg  shared.IdempotencyConfig
	publisher shared.EventPublisher
	metrics   *telemetry.SyncMetrics
	logger    *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	profiles *ProfileService,
	dedup shared.IdempotencyStore,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		profiles:  profiles,
		secrets:   profiles.secrets,
		dedup:     dedup,
		dedupCfg:  shared.DefaultIdempotencyConfig(),
		publisher: publisher,
		logger:    logger,
	}
}

// SetDedupConfig switches delivery dedup on or off and sets how long
// delivery ids are remembered. A zero TTL keeps the current one.
func (s *WebhookService) SetDedupConfig(cfg shared.IdempotencyConfig) {
	if cfg.TTL <= 0 {
		cfg.TTL = s.dedupCfg.TTL
	}
	s.dedupCfg = cfg
}

// SetSyncMetrics sets the sync metrics collector
func (s *WebhookService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// VerifyDelivery is the sole authentication gate for inbound deliveries.
// A delivery that fails verification is rejected before any processing.
// Authenticated deliveries are deduplicated by delivery id and published.
func (s *WebhookService) VerifyDelivery(ctx context.Context, d Delivery) (*DeliveryResult, error) {
	p, err := s.profiles.Live(ctx, d.ProfileID)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND" {
			return nil, s.reject(ctx, d, "unknown profile")
		}
		return nil, err
	}

	if !s.authenticate(p, d) {
		return nil, s.reject(ctx, d, "verification failed")
	}

	result := &DeliveryResult{ProfileID: p.ID, DeliveryID: d.DeliveryID, Topic: d.Topic}
	claimed := false
	if s.dedupActive(d) {
		fresh, err := s.dedup.MarkProcessed(ctx, dedupKey(p.ID, d.DeliveryID), s.dedupCfg.TTL)
		switch {
		case err != nil:
			// Dedup is best effort; the delivery is still processed.
			s.logger.Warn("Delivery dedup unavailable", zap.Error(err))
		case !fresh:
			result.Duplicate = true
			s.metrics.RecordWebhookDelivery(ctx, p.ID, telemetry.DeliveryOutcomeDuplicate)
			s.logger.Debug("Duplicate webhook delivery",
				zap.String("profile_id", p.ID.String()),
				zap.String("delivery_id", d.DeliveryID))
			return result, nil
		default:
			claimed = true
		}
	}

	if s.publisher != nil {
		event := connection.NewWebhookDeliveryAcceptedEvent(p.ID, p.TenantID, d.DeliveryID, d.Topic, d.Payload)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish webhook delivery", zap.Error(err))
			if claimed {
				// The storefront retries a failed delivery; the retry must not
				// be taken for a duplicate.
				s.release(ctx, p.ID, d.DeliveryID)
			}
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to accept delivery")
		}
	}

	s.metrics.RecordWebhookDelivery(ctx, p.ID, telemetry.DeliveryOutcomeAccepted)
	s.logger.Info("Webhook delivery accepted",
		zap.String("profile_id", p.ID.String()),
		zap.String("delivery_id", d.DeliveryID),
		zap.String("topic", d.Topic))
	return result, nil
}

func (s *WebhookService) authenticate(p *connection.ConnectionProfile, d Delivery) bool {
	if d.Signature != "" {
		return s.secrets.VerifySignature(p, d.Payload, d.Signature)
	}
	return s.secrets.Verify(p, d.Secret)
}

func (s *WebhookService) reject(ctx context.Context, d Delivery, reason string) error {
	s.metrics.RecordWebhookDelivery(ctx, d.ProfileID, telemetry.DeliveryOutcomeRejected)
	s.logger.Warn("Webhook delivery rejected",
		zap.String("profile_id", d.ProfileID.String()),
		zap.String("delivery_id", d.DeliveryID),
		zap.String("reason", reason))
	return shared.ErrDeliveryRejected
}

func (s *WebhookService) dedupActive(d Delivery) bool {
	return s.dedupCfg.Enabled && s.dedup != nil && d.DeliveryID != ""
}

func (s *WebhookService) release(ctx context.Context, profileID uuid.UUID, deliveryID string) {
	// The request context may already be cancelled by the time we get here.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.dedup.Release(ctx, dedupKey(profileID, deliveryID)); err != nil {
		s.logger.Warn("Failed to release webhook delivery id",
			zap.String("profile_id", profileID.String()),
			zap.String("delivery_id", deliveryID),
			zap.Error(err))
	}
}

func dedupKey(profileID uuid.UUID, deliveryID string) string {
	return "woocommerce:" + profileID.String() + ":" + deliveryID
}
