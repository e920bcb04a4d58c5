package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/telemetry"
)

// StockSyncService pushes the stock of an item to every storefront it is
// linked on
type StockSyncService struct {
	profiles ProfileSource
	resolver *connection.PolicyResolver
	links    integration.ItemLinkRepository
	bins     integration.BinReader
	client   integration.StorefrontClient
	metrics  *telemetry.SyncMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewStockSyncService creates a new stock sync service
func NewStockSyncService(
	profiles ProfileSource,
	links integration.ItemLinkRepository,
	bins integration.BinReader,
	client integration.StorefrontClient,
	logger *zap.Logger,
) *StockSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockSyncService{
		profiles: profiles,
		resolver: connection.NewPolicyResolver(nil),
		links:    links,
		bins:     bins,
		client:   client,
		now:      time.Now,
		logger:   logger,
	}
}

// SetSyncMetrics sets the sync metrics collector
func (s *StockSyncService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// SyncItem aggregates the stock of an item per linked profile and pushes it.
// Each profile counts only the bins of its own warehouse set. Profiles with
// stock sync off are skipped; a failing profile does not stop the others.
func (s *StockSyncService) SyncItem(ctx context.Context, tenantID uuid.UUID, itemCode string) (*integration.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_sync", "sync_item",
		telemetry.WithAttribute("item_code", itemCode))
	defer span.End()

	links, err := s.links.FindByItemCode(ctx, tenantID, itemCode)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result := integration.NewSyncResult(len(links))
	if len(links) == 0 {
		return result.Finish(s.now()), nil
	}

	bins, err := s.bins.FindByItem(ctx, tenantID, itemCode)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for i := range links {
		link := &links[i]
		if !link.IsSyncable() {
			result.RecordSkipped()
			continue
		}

		p, err := loadProfile(ctx, s.profiles, tenantID, link.ProfileID)
		if err != nil {
			result.RecordFailure(link.ProfileID.String(), "PROFILE_UNAVAILABLE", err)
			continue
		}
		policy, err := s.resolver.Resolve(p)
		if err != nil {
			result.RecordFailure(link.ProfileID.String(), "PROFILE_INVALID", err)
			continue
		}
		if !policy.Stock.Enabled {
			result.RecordSkipped()
			continue
		}

		qty := integration.AggregateStock(bins, policy.Stock)
		payload := "stock_quantity=" + qty.String()
		if link.IsUnchanged(integration.PushKindStock, payload) {
			result.RecordSkipped()
			continue
		}

		if err := s.client.UpdateStock(ctx, p.Credentials, link.StorefrontProductID, qty); err != nil {
			link.RecordSyncFailure(integration.PushKindStock, err.Error())
			result.RecordFailure(link.ProfileID.String(), errorCode(err), err)
			s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainStock.String(), string(integration.SyncStatusFailed))
			s.logger.Warn("Stock push failed",
				zap.String("profile_id", link.ProfileID.String()),
				zap.String("item_code", itemCode),
				zap.Error(err))
		} else {
			link.RecordSyncSuccess(integration.PushKindStock, payload)
			result.RecordSuccess()
			s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainStock.String(), string(integration.SyncStatusSuccess))
		}
		if err := s.links.Save(ctx, link); err != nil {
			s.logger.Error("Failed to record sync state", zap.String("item_code", itemCode), zap.Error(err))
		}
	}

	result.Finish(s.now())
	telemetry.SetOK(span)
	s.logger.Info("Stock sync finished",
		zap.String("item_code", itemCode),
		zap.String("status", string(result.Status)),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failed_count", result.FailedCount))
	return result, nil
}
