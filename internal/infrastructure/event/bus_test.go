package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

func newProfileEvent(eventType string) shared.DomainEvent {
	base := shared.NewBaseDomainEvent(eventType, connection.AggregateTypeConnectionProfile, uuid.New(), uuid.New())
	return &base
}

type recordingHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	created := newRecordingHandler(connection.EventTypeProfileCreated)
	rotated := newRecordingHandler(connection.EventTypeWebhookSecretRotated)
	bus.Subscribe(created)
	bus.Subscribe(rotated)

	event := newProfileEvent(connection.EventTypeProfileCreated)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Equal(t, 1, created.count())
	assert.Same(t, event, created.handled[0])
	assert.Zero(t, rotated.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := newRecordingHandler(connection.EventTypeProfileCreated)
	bus.Subscribe(h, connection.EventTypeProfileDeleted)

	require.NoError(t, bus.Publish(context.Background(),
		newProfileEvent(connection.EventTypeProfileCreated),
		newProfileEvent(connection.EventTypeProfileDeleted),
	))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	all := newRecordingHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newProfileEvent(connection.EventTypeProfileUpdated),
		newProfileEvent(connection.EventTypeWebhookDeliveryAccepted),
	))
	assert.Equal(t, 2, all.count())
}

func TestInMemoryEventBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler(connection.EventTypeProfileUpdated)
	failing.err = errors.New("downstream unavailable")
	panicking := newRecordingHandler(connection.EventTypeProfileUpdated)
	panicking.panicWith = "boom"
	healthy := newRecordingHandler(connection.EventTypeProfileUpdated)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	event := newProfileEvent(connection.EventTypeProfileUpdated)
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Failures())
	require.Equal(t, 2, logs.Len())
	entry := logs.All()[1]
	assert.Equal(t, "Event handler failed", entry.Message)
	assert.Equal(t, event.AggregateID().String(), entry.ContextMap()["aggregate_id"])
	assert.Contains(t, entry.ContextMap()["error"], "handler panicked: boom")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	h := newRecordingHandler(connection.EventTypeProfileDeleted)
	bus.Subscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newProfileEvent(connection.EventTypeProfileDeleted)))

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newProfileEvent(connection.EventTypeProfileDeleted)))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_StopRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))

	err := bus.Publish(ctx, newProfileEvent(connection.EventTypeProfileCreated))
	assert.ErrorIs(t, err, ErrEventBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newProfileEvent(connection.EventTypeProfileCreated)))
}

func TestHandlerRegistry_GetHandlersOrdersTypedBeforeWildcard(t *testing.T) {
	r := NewHandlerRegistry()
	all := newRecordingHandler()
	typed := newRecordingHandler()

	r.Register(all)
	r.Register(typed, connection.EventTypeProfileCreated)

	handlers := r.GetHandlers(connection.EventTypeProfileCreated)
	require.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, all, handlers[1])

	r.Unregister(typed)
	assert.Len(t, r.GetHandlers(connection.EventTypeProfileCreated), 1)
}
