package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
)

// Storefront webhook topics acted upon
const (
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
)

// productPayload is the part of a product webhook body the handler reads
type productPayload struct {
	ID  int64  `json:"id"`
	SKU string `json:"sku"`
}

// ItemSyncTrigger queues the item sync of one storefront product
type ItemSyncTrigger interface {
	ScheduleProductSync(tenantID, profileID uuid.UUID, productID string) (scheduler.SyncJob, error)
}

// DeliveryLogHandler records accepted webhook deliveries. A product change on
// the storefront forgets the link's last pushed payload so the next run pushes
// again; a deleted product deactivates the link. With a trigger set, created
// and updated products are also queued for item sync, linked or not.
type DeliveryLogHandler struct {
	links   integration.ItemLinkRepository
	trigger ItemSyncTrigger
	logger  *zap.Logger
}

// NewDeliveryLogHandler creates a new delivery log handler
func NewDeliveryLogHandler(links integration.ItemLinkRepository, logger *zap.Logger) *DeliveryLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryLogHandler{links: links, logger: logger}
}

// SetItemSyncTrigger sets where product changes are queued for item sync
func (h *DeliveryLogHandler) SetItemSyncTrigger(t ItemSyncTrigger) {
	h.trigger = t
}

// EventTypes returns the event types this handler is interested in
func (h *DeliveryLogHandler) EventTypes() []string {
	return []string{connection.EventTypeWebhookDeliveryAccepted}
}

// Handle processes an accepted delivery
func (h *DeliveryLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	delivery, ok := event.(*connection.WebhookDeliveryAcceptedEvent)
	if !ok {
		return nil
	}

	logger := h.logger.With(
		zap.String("profile_id", delivery.AggregateID().String()),
		zap.String("delivery_id", delivery.DeliveryID),
		zap.String("topic", delivery.Topic))
	logger.Info("Webhook delivery received", zap.Int("payload_bytes", len(delivery.Payload)))

	if !strings.HasPrefix(delivery.Topic, "product.") {
		return nil
	}

	var product productPayload
	if err := json.Unmarshal(delivery.Payload, &product); err != nil || product.ID <= 0 {
		logger.Warn("Product delivery without a product id")
		return nil
	}

	productID := strconv.FormatInt(product.ID, 10)
	if delivery.Topic == TopicProductCreated || delivery.Topic == TopicProductUpdated {
		h.queueItemSync(logger, delivery, productID)
	}

	link, err := h.links.FindByStorefrontProduct(ctx, delivery.TenantID(), delivery.AggregateID(), productID)
	if err != nil {
		if isItemLinkNotFound(err) {
			logger.Debug("Storefront product is not linked", zap.Int64("product_id", product.ID))
			return nil
		}
		return err
	}

	switch delivery.Topic {
	case TopicProductDeleted:
		link.Deactivate()
	case TopicProductCreated, TopicProductUpdated:
		link.ResetSyncHash()
		if product.SKU != "" {
			link.StorefrontSKU = product.SKU
		}
	default:
		return nil
	}

	if err := h.links.Save(ctx, link); err != nil {
		logger.Error("Failed to update item link", zap.Error(err))
		return err
	}
	logger.Info("Item link refreshed from storefront",
		zap.String("item_code", link.ItemCode),
		zap.Bool("is_active", link.IsActive))
	return nil
}

// queueItemSync schedules the product for item sync. A full queue is logged
// and dropped; the next delivery for the product queues it again.
func (h *DeliveryLogHandler) queueItemSync(logger *zap.Logger, delivery *connection.WebhookDeliveryAcceptedEvent, productID string) {
	if h.trigger == nil {
		return
	}
	job, err := h.trigger.ScheduleProductSync(delivery.TenantID(), delivery.AggregateID(), productID)
	if err != nil {
		logger.Warn("Failed to queue item sync", zap.String("product_id", productID), zap.Error(err))
		return
	}
	logger.Debug("Item sync queued", zap.String("product_id", productID), zap.String("job_id", job.ID.String()))
}

var _ shared.EventHandler = (*DeliveryLogHandler)(nil)
