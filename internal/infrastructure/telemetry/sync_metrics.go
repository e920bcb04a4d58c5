package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// SyncMetrics tracks storefront synchronization: webhook deliveries, items
// pushed per domain, throttle waits and the number of sync-enabled profiles.
// A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	webhookDeliveryTotal *Counter
	itemSyncTotal        *Counter

	// Histogram metrics
	throttleWait *Histogram

	// Gauge metrics (point-in-time values)
	syncEnabledProfiles *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	profileProvider ProfileMetricsProvider
}

// ProfileMetricsProvider provides profile counts for periodic collection.
type ProfileMetricsProvider interface {
	// CountSyncEnabledProfiles returns the number of sync-enabled profiles of a tenant
	CountSyncEnabledProfiles(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	ProfileProvider ProfileMetricsProvider
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		profileProvider: cfg.ProfileProvider,
	}

	var err error

	sm.webhookDeliveryTotal, err = NewCounter(
		cfg.Meter,
		"fusion_webhook_delivery_total",
		"Total number of inbound webhook deliveries by outcome",
		"{deliveries}",
	)
	if err != nil {
		return nil, err
	}

	sm.itemSyncTotal, err = NewCounter(
		cfg.Meter,
		"fusion_item_sync_total",
		"Total number of items pushed to storefronts by domain and status",
		"{items}",
	)
	if err != nil {
		return nil, err
	}

	sm.throttleWait, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "fusion_throttle_wait_seconds",
		Description: "Time spent waiting for the per-item throttle",
		Unit:        "s",
		Boundaries:  ThrottleWaitBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.syncEnabledProfiles, err = NewGauge(
		cfg.Meter,
		"fusion_sync_enabled_profiles",
		"Number of connection profiles with sync switched on",
		"{profiles}",
	)
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// =============================================================================
// Webhook Metrics
// =============================================================================

// DeliveryOutcome labels a webhook delivery.
type DeliveryOutcome string

const (
	DeliveryOutcomeAccepted  DeliveryOutcome = "accepted"
	DeliveryOutcomeDuplicate DeliveryOutcome = "duplicate"
	DeliveryOutcomeRejected  DeliveryOutcome = "rejected"
)

// RecordWebhookDelivery counts an inbound webhook delivery.
func (sm *SyncMetrics) RecordWebhookDelivery(ctx context.Context, profileID uuid.UUID, outcome DeliveryOutcome) {
	if sm == nil {
		return
	}
	sm.webhookDeliveryTotal.Inc(ctx,
		AttrProfileID.String(profileID.String()),
		AttrDeliveryOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Sync Metrics
// =============================================================================

// RecordItemSync counts one item processed by a sync run.
func (sm *SyncMetrics) RecordItemSync(ctx context.Context, tenantID uuid.UUID, domain, status string) {
	if sm == nil {
		return
	}
	sm.itemSyncTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSyncDomain.String(domain),
		AttrSyncStatus.String(status),
	)
}

// RecordThrottleWait records how long a request waited at the throttle.
func (sm *SyncMetrics) RecordThrottleWait(ctx context.Context, domain string, d time.Duration) {
	if sm == nil {
		return
	}
	sm.throttleWait.RecordDuration(ctx, d, AttrSyncDomain.String(domain))
}

// RecordSyncEnabledProfiles records the sync-enabled profile count of a tenant.
func (sm *SyncMetrics) RecordSyncEnabledProfiles(ctx context.Context, tenantID uuid.UUID, count int64) {
	if sm == nil {
		return
	}
	sm.syncEnabledProfiles.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (sm *SyncMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	if sm == nil {
		return
	}
	sm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go sm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

func (sm *SyncMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sm.collectProfileMetrics(ctx, tenantProvider)

	for {
		select {
		case <-sm.stopChan:
			sm.logger.Info("Stopping periodic sync metrics collection")
			return
		case <-ctx.Done():
			sm.logger.Info("Context cancelled, stopping periodic sync metrics collection")
			return
		case <-ticker.C:
			sm.collectProfileMetrics(ctx, tenantProvider)
		}
	}
}

func (sm *SyncMetrics) collectProfileMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if sm.profileProvider == nil {
		sm.logger.Debug("No profile provider configured, skipping profile metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		sm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		count, err := sm.profileProvider.CountSyncEnabledProfiles(ctx, tenantID)
		if err != nil {
			sm.logger.Warn("Failed to count sync-enabled profiles",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		sm.RecordSyncEnabledProfiles(ctx, tenantID, count)
	}
}

// Stop stops the periodic collection.
func (sm *SyncMetrics) Stop() {
	if sm == nil {
		return
	}
	sm.stopOnce.Do(func() {
		close(sm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Sync attribute keys
var (
	AttrTenantID        = attribute.Key("tenant_id")
	AttrProfileID       = attribute.Key("profile_id")
	AttrSyncDomain      = attribute.Key("sync_domain")
	AttrSyncStatus      = attribute.Key("sync_status")
	AttrDeliveryOutcome = attribute.Key("delivery_outcome")
)

// ThrottleWaitBuckets are bucket boundaries for throttle waits (seconds).
var ThrottleWaitBuckets = []float64{0, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
