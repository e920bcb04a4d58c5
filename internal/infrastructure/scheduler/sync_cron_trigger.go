package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// TenantProvider provides a list of tenants for scheduling
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// SyncProfileSource lists the profiles of a tenant that have sync switched on
type SyncProfileSource interface {
	FindSyncEnabled(ctx context.Context, tenantID uuid.UUID) ([]*connection.ConnectionProfile, error)
}

// ---------------------------------------------------------------------------
// PriceListCronTriggerConfig
// ---------------------------------------------------------------------------

// PriceListCronTriggerConfig holds configuration for the price list trigger
type PriceListCronTriggerConfig struct {
	// CheckInterval is how often profiles are scanned
	CheckInterval time.Duration
	// SyncInterval is the minimum time between two price list runs of a profile
	SyncInterval time.Duration
}

// DefaultPriceListCronTriggerConfig returns default configuration
func DefaultPriceListCronTriggerConfig() PriceListCronTriggerConfig {
	return PriceListCronTriggerConfig{
		CheckInterval: time.Minute,
		SyncInterval:  time.Hour,
	}
}

// ---------------------------------------------------------------------------
// PriceListCronTrigger
// ---------------------------------------------------------------------------

// PriceListCronTrigger periodically queues price list pushes for every
// profile with price list sync enabled.
type PriceListCronTrigger struct {
	config         PriceListCronTriggerConfig
	scheduler      *SyncScheduler
	tenantProvider TenantProvider
	profiles       SyncProfileSource
	logger         *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last scheduled time per profile
	lastScheduledMu sync.RWMutex
	lastScheduled   map[uuid.UUID]time.Time
}

// NewPriceListCronTrigger creates a new price list cron trigger
func NewPriceListCronTrigger(
	config PriceListCronTriggerConfig,
	scheduler *SyncScheduler,
	tenantProvider TenantProvider,
	profiles SyncProfileSource,
	logger *zap.Logger,
) *PriceListCronTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceListCronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		profiles:       profiles,
		logger:         logger,
		lastScheduled:  make(map[uuid.UUID]time.Time),
	}
}

// Start starts the trigger loop
func (c *PriceListCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Price list cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.Duration("sync_interval", c.config.SyncInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *PriceListCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Price list cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PriceListCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	c.CheckAndSchedule(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.CheckAndSchedule(ctx, now)
		}
	}
}

// CheckAndSchedule queues a price list job for every due profile and returns
// how many were queued.
func (c *PriceListCronTrigger) CheckAndSchedule(ctx context.Context, now time.Time) int {
	tenantIDs, err := c.tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to get active tenants", zap.Error(err))
		return 0
	}

	scheduled := 0
	for _, tenantID := range tenantIDs {
		profiles, err := c.profiles.FindSyncEnabled(ctx, tenantID)
		if err != nil {
			c.logger.Error("Failed to list sync-enabled profiles",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}

		for _, p := range profiles {
			if !p.EnableSync || !p.EnablePriceListSync || !c.isDue(p.ID, now) {
				continue
			}
			if _, err := c.scheduler.SchedulePriceListSync(tenantID, p.ID); err != nil {
				c.logger.Error("Failed to schedule price list sync",
					zap.String("profile_id", p.ID.String()),
					zap.Error(err),
				)
				continue
			}
			c.markScheduled(p.ID, now)
			scheduled++
		}
	}

	if scheduled > 0 {
		c.logger.Info("Price list sync jobs scheduled", zap.Int("count", scheduled))
	}
	return scheduled
}

func (c *PriceListCronTrigger) isDue(profileID uuid.UUID, now time.Time) bool {
	c.lastScheduledMu.RLock()
	last, ok := c.lastScheduled[profileID]
	c.lastScheduledMu.RUnlock()
	return !ok || now.Sub(last) >= c.config.SyncInterval
}

func (c *PriceListCronTrigger) markScheduled(profileID uuid.UUID, t time.Time) {
	c.lastScheduledMu.Lock()
	c.lastScheduled[profileID] = t
	c.lastScheduledMu.Unlock()
}
