package connection

import (
	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// AggregateTypeConnectionProfile is the aggregate type for all profile events
const AggregateTypeConnectionProfile = "ConnectionProfile"

// Event types
const (
	EventTypeProfileCreated          = "ConnectionProfileCreated"
	EventTypeProfileUpdated          = "ConnectionProfileUpdated"
	EventTypeProfileDeleted          = "ConnectionProfileDeleted"
	EventTypeWebhookSecretRotated    = "WebhookSecretRotated"
	EventTypeWebhookDeliveryAccepted = "WebhookDeliveryAccepted"
)

// ProfileCreatedEvent is raised when a profile is first saved
type ProfileCreatedEvent struct {
	shared.BaseDomainEvent
	Name      string `json:"name"`
	ServerURL string `json:"server_url"`
}

// NewProfileCreatedEvent creates a ProfileCreatedEvent
func NewProfileCreatedEvent(p *ConnectionProfile) *ProfileCreatedEvent {
	return &ProfileCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProfileCreated, AggregateTypeConnectionProfile, p.ID, p.TenantID),
		Name:            p.Name,
		ServerURL:       p.Credentials.ServerURL,
	}
}

// ProfileUpdatedEvent is raised after a validated edit
type ProfileUpdatedEvent struct {
	shared.BaseDomainEvent
	Version    int  `json:"version"`
	SyncActive bool `json:"sync_active"`
}

// NewProfileUpdatedEvent creates a ProfileUpdatedEvent
func NewProfileUpdatedEvent(p *ConnectionProfile) *ProfileUpdatedEvent {
	return &ProfileUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProfileUpdated, AggregateTypeConnectionProfile, p.ID, p.TenantID),
		Version:         p.Version,
		SyncActive:      p.EnableSync,
	}
}

// ProfileDeletedEvent is raised once the profile and its secret are gone
type ProfileDeletedEvent struct {
	shared.BaseDomainEvent
	ServerURL string `json:"server_url"`
}

// NewProfileDeletedEvent creates a ProfileDeletedEvent
func NewProfileDeletedEvent(p *ConnectionProfile) *ProfileDeletedEvent {
	return &ProfileDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProfileDeleted, AggregateTypeConnectionProfile, p.ID, p.TenantID),
		ServerURL:       p.Credentials.ServerURL,
	}
}

// WebhookSecretRotatedEvent is raised after an explicit rotation.
// It never carries the secret itself.
type WebhookSecretRotatedEvent struct {
	shared.BaseDomainEvent
}

// NewWebhookSecretRotatedEvent creates a WebhookSecretRotatedEvent
func NewWebhookSecretRotatedEvent(p *ConnectionProfile) *WebhookSecretRotatedEvent {
	return &WebhookSecretRotatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWebhookSecretRotated, AggregateTypeConnectionProfile, p.ID, p.TenantID),
	}
}

// WebhookDeliveryAcceptedEvent hands an authenticated delivery to sync workers
type WebhookDeliveryAcceptedEvent struct {
	shared.BaseDomainEvent
	DeliveryID string `json:"delivery_id"`
	Topic      string `json:"topic"`
	Payload    []byte `json:"payload"`
}

// NewWebhookDeliveryAcceptedEvent creates a WebhookDeliveryAcceptedEvent
func NewWebhookDeliveryAcceptedEvent(profileID, tenantID uuid.UUID, deliveryID, topic string, payload []byte) *WebhookDeliveryAcceptedEvent {
	return &WebhookDeliveryAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWebhookDeliveryAccepted, AggregateTypeConnectionProfile, profileID, tenantID),
		DeliveryID:      deliveryID,
		Topic:           topic,
		Payload:         payload,
	}
}
