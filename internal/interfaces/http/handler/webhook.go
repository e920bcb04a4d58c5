package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/logger"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
)

// WooCommerce webhook headers
const (
	HeaderWebhookSignature  = "X-WC-Webhook-Signature"
	HeaderWebhookTopic      = "X-WC-Webhook-Topic"
	HeaderWebhookDeliveryID = "X-WC-Webhook-Delivery-ID"
	// HeaderWebhookSecret carries the plain shared secret for senders that
	// cannot sign. It is never accepted from the query string, which ends up
	// in access logs.
	HeaderWebhookSecret = "X-Webhook-Secret"
)

// DefaultMaxWebhookPayload bounds a delivery body when no limit is configured
const DefaultMaxWebhookPayload int64 = 64 << 10

// WebhookHandler receives storefront deliveries. It runs outside tenant
// resolution: the profile in the path and its secret identify the caller.
type WebhookHandler struct {
	BaseHandler
	webhookService *connectionapp.WebhookService
	maxPayload     int64
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *connectionapp.WebhookService, maxPayload int64) *WebhookHandler {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxWebhookPayload
	}
	return &WebhookHandler{
		webhookService: webhookService,
		maxPayload:     maxPayload,
	}
}

// Receive authenticates one delivery and hands it on. Every authentication
// failure is the same 401, whatever the cause.
func (h *WebhookHandler) Receive(c *gin.Context) {
	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.Unauthorized(c, "Delivery rejected")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxPayload+1))
	if err != nil {
		h.BadRequest(c, "Unreadable request body")
		return
	}
	if int64(len(payload)) > h.maxPayload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Delivery payload too large")
		return
	}

	result, err := h.webhookService.VerifyDelivery(c.Request.Context(), connectionapp.Delivery{
		ProfileID:  profileID,
		DeliveryID: c.GetHeader(HeaderWebhookDeliveryID),
		Topic:      c.GetHeader(HeaderWebhookTopic),
		Signature:  c.GetHeader(HeaderWebhookSignature),
		Secret:     c.GetHeader(HeaderWebhookSecret),
		Payload:    payload,
	})
	if err != nil {
		if errors.Is(err, shared.ErrDeliveryRejected) {
			h.Unauthorized(c, "Delivery rejected")
			return
		}
		logger.GetGinLogger(c).Error("Webhook delivery failed", zap.Error(err))
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
