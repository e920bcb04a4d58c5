package integration

import (
	"context"
	"path"

	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// PayloadStore persists raw delivery bodies in object storage
type PayloadStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// DeliveryArchiveHandler keeps a copy of every accepted webhook body so a
// delivery can be replayed or audited after the dedup window has passed.
type DeliveryArchiveHandler struct {
	store  PayloadStore
	prefix string
	logger *zap.Logger
}

// NewDeliveryArchiveHandler creates a new archive handler writing below prefix
func NewDeliveryArchiveHandler(store PayloadStore, prefix string, logger *zap.Logger) *DeliveryArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryArchiveHandler{store: store, prefix: prefix, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *DeliveryArchiveHandler) EventTypes() []string {
	return []string{connection.EventTypeWebhookDeliveryAccepted}
}

// Handle uploads the payload of an accepted delivery
func (h *DeliveryArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	delivery, ok := event.(*connection.WebhookDeliveryAcceptedEvent)
	if !ok {
		return nil
	}

	key := ArchiveKey(h.prefix, delivery)
	if err := h.store.Upload(ctx, key, delivery.Payload, "application/json"); err != nil {
		h.logger.Error("Failed to archive webhook delivery",
			zap.String("profile_id", delivery.AggregateID().String()),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	h.logger.Debug("Webhook delivery archived", zap.String("key", key))
	return nil
}

// ArchiveKey is <prefix>/<tenant>/<profile>/<yyyy/mm/dd>/<delivery>.json.
// Deliveries without a storefront delivery id are named by event id.
func ArchiveKey(prefix string, delivery *connection.WebhookDeliveryAcceptedEvent) string {
	name := delivery.DeliveryID
	if name == "" {
		name = delivery.EventID().String()
	}
	return path.Join(prefix,
		delivery.TenantID().String(),
		delivery.AggregateID().String(),
		delivery.OccurredAt().UTC().Format("2006/01/02"),
		path.Base(name)+".json")
}

var _ shared.EventHandler = (*DeliveryArchiveHandler)(nil)
