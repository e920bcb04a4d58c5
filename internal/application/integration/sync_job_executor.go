package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
)

// SyncJobExecutor runs scheduler jobs by kind
type SyncJobExecutor struct {
	priceList *PriceListSyncService
	stock     *StockSyncService
	items     *ItemSyncService
	logger    *zap.Logger
}

// NewSyncJobExecutor creates a new sync job executor
func NewSyncJobExecutor(priceList *PriceListSyncService, stock *StockSyncService, items *ItemSyncService, logger *zap.Logger) *SyncJobExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncJobExecutor{priceList: priceList, stock: stock, items: items, logger: logger}
}

// Execute runs one job and copies the sync result onto it
func (e *SyncJobExecutor) Execute(ctx context.Context, job *scheduler.SyncJob) error {
	var (
		result *integration.SyncResult
		err    error
	)
	switch job.Kind {
	case scheduler.SyncJobKindPriceList:
		result, err = e.priceList.Run(ctx, job.TenantID, job.ProfileID)
	case scheduler.SyncJobKindStockItem:
		result, err = e.stock.SyncItem(ctx, job.TenantID, job.ItemCode)
	case scheduler.SyncJobKindProduct:
		result, err = e.syncProduct(ctx, job)
	default:
		return scheduler.Permanent(fmt.Errorf("%w: %s", scheduler.ErrSyncJobInvalidKind, job.Kind))
	}

	if err != nil {
		if result != nil {
			applyResult(job, result)
		}
		if isPermanent(err) {
			return scheduler.Permanent(err)
		}
		return fmt.Errorf("%w: %w", scheduler.ErrSyncJobFailed, err)
	}

	applyResult(job, result)
	return nil
}

func (e *SyncJobExecutor) syncProduct(ctx context.Context, job *scheduler.SyncJob) (*integration.SyncResult, error) {
	outcome, err := e.items.SyncProduct(ctx, job.TenantID, job.ProfileID, job.ProductID)
	if err != nil {
		return nil, err
	}
	result := integration.NewSyncResult(1)
	if outcome.Action.Changed() {
		result.RecordSuccess()
	} else {
		result.RecordSkipped()
	}
	return result.Finish(outcome.SyncedAt), nil
}

func applyResult(job *scheduler.SyncJob, r *integration.SyncResult) {
	job.Complete(r.TotalCount, r.SuccessCount, r.SkippedCount, r.FailedCount)
	job.Waited = r.Waited
	job.FailedItemIDs = make([]string, len(r.FailedItems))
	for i, f := range r.FailedItems {
		job.FailedItemIDs[i] = f.ItemID
	}
}

// isPermanent reports failures that a retry cannot fix
func isPermanent(err error) bool {
	var precondition *connection.PreconditionError
	switch {
	case errors.As(err, &precondition):
		return true
	case errors.Is(err, integration.ErrSyncDomainDisabled), errors.Is(err, integration.ErrStorefrontProductNotFound):
		return true
	case errors.Is(err, context.Canceled):
		return true
	default:
		return isNotFound(err)
	}
}

var _ scheduler.SyncJobExecutor = (*SyncJobExecutor)(nil)
