package shared

import "context"

// EventHandler reacts to published domain events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler subscribes to by default
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	// Publish fails only if no event could be handed on; handler failures
	// are the bus's concern.
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is an EventPublisher handlers can subscribe to
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
