package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/telemetry"
)

// PriceListSyncService pushes price list rates of linked items to a storefront
type PriceListSyncService struct {
	profiles ProfileSource
	resolver *connection.PolicyResolver
	links    integration.ItemLinkRepository
	prices   integration.ItemPriceReader
	client   integration.StorefrontClient
	throttle *connection.ThrottleController
	metrics  *telemetry.SyncMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewPriceListSyncService creates a new price list sync service
func NewPriceListSyncService(
	profiles ProfileSource,
	links integration.ItemLinkRepository,
	prices integration.ItemPriceReader,
	client integration.StorefrontClient,
	throttle *connection.ThrottleController,
	logger *zap.Logger,
) *PriceListSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if throttle == nil {
		throttle = connection.NewThrottleController(nil)
	}
	return &PriceListSyncService{
		profiles: profiles,
		resolver: connection.NewPolicyResolver(nil),
		links:    links,
		prices:   prices,
		client:   client,
		throttle: throttle,
		now:      time.Now,
		logger:   logger,
	}
}

// SetSyncMetrics sets the sync metrics collector
func (s *PriceListSyncService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// Run pushes the current rate of every syncable link of a profile. Requests
// are paced by the profile's per-item delay; the run owns its own throttle so
// concurrent runs of other profiles are never slowed down.
func (s *PriceListSyncService) Run(ctx context.Context, tenantID, profileID uuid.UUID) (*integration.SyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "price_list_sync", "run",
		telemetry.WithAttribute("profile_id", profileID.String()))
	defer span.End()

	p, err := loadProfile(ctx, s.profiles, tenantID, profileID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	policy, err := s.resolver.Resolve(p)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !policy.PriceList.Enabled {
		return nil, integration.ErrSyncDomainDisabled
	}
	creds := p.Credentials

	links, err := s.links.FindSyncable(ctx, tenantID, profileID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger := s.logger.With(
		zap.String("profile_id", profileID.String()),
		zap.String("price_list", policy.PriceList.PriceList))
	logger.Info("Price list sync started",
		zap.Int("items", len(links)),
		zap.Duration("delay_per_item", policy.PriceList.Throttle))

	result := integration.NewSyncResult(len(links))
	run := s.throttle.NewRun(profileID)
	now := s.now()

	for i := range links {
		link := &links[i]

		prices, err := s.prices.FindByItemAndPriceList(ctx, tenantID, link.ItemCode, policy.PriceList.PriceList)
		if err != nil {
			result.RecordFailure(link.ItemCode, "PRICE_LOOKUP", err)
			continue
		}
		rate, ok := integration.SelectPriceRate(prices, now)
		if !ok {
			logger.Debug("No current price, item skipped", zap.String("item_code", link.ItemCode))
			result.RecordSkipped()
			continue
		}
		payload := "regular_price=" + rate.String()
		if link.IsUnchanged(integration.PushKindPrice, payload) {
			result.RecordSkipped()
			continue
		}

		if _, err := run.Pace(ctx, i, policy.PriceList.Throttle); err != nil {
			// Cancelled while waiting; report what was done so far.
			result.Waited = run.Waited()
			s.metrics.RecordThrottleWait(ctx, connection.SyncDomainPriceList.String(), result.Waited)
			telemetry.RecordError(span, err)
			return result.Finish(s.now()), err
		}

		if err := s.client.UpdatePrice(ctx, creds, link.StorefrontProductID, rate); err != nil {
			link.RecordSyncFailure(integration.PushKindPrice, err.Error())
			result.RecordFailure(link.ItemCode, errorCode(err), err)
			s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainPriceList.String(), string(integration.SyncStatusFailed))
			logger.Warn("Price push failed",
				zap.String("item_code", link.ItemCode),
				zap.String("storefront_product_id", link.StorefrontProductID),
				zap.Error(err))
		} else {
			link.RecordSyncSuccess(integration.PushKindPrice, payload)
			result.RecordSuccess()
			s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainPriceList.String(), string(integration.SyncStatusSuccess))
		}
		if err := s.links.Save(ctx, link); err != nil {
			logger.Error("Failed to record sync state", zap.String("item_code", link.ItemCode), zap.Error(err))
		}
	}

	result.Waited = run.Waited()
	s.metrics.RecordThrottleWait(ctx, connection.SyncDomainPriceList.String(), result.Waited)
	result.Finish(s.now())

	telemetry.SetAttributes(span,
		"status", string(result.Status),
		"success_count", result.SuccessCount,
		"failed_count", result.FailedCount)
	telemetry.SetOK(span)

	logger.Info("Price list sync finished",
		zap.String("status", string(result.Status)),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("skipped_count", result.SkippedCount),
		zap.Int("failed_count", result.FailedCount),
		zap.Duration("waited", result.Waited))
	return result, nil
}

// errorCode classifies a storefront error for the sync report
func errorCode(err error) string {
	switch {
	case errors.Is(err, integration.ErrStorefrontAuthFailed):
		return "AUTH_FAILED"
	case errors.Is(err, integration.ErrStorefrontProductNotFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, integration.ErrStorefrontRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, integration.ErrStorefrontUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, integration.ErrStorefrontInvalidResponse):
		return "INVALID_RESPONSE"
	default:
		return "REQUEST_FAILED"
	}
}
