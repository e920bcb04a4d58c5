package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobKind is the kind of outbound sync a job performs
type SyncJobKind string

const (
	// SyncJobKindPriceList pushes the price list of one profile
	SyncJobKindPriceList SyncJobKind = "PRICE_LIST"
	// SyncJobKindStockItem pushes the stock of one item to every linked profile
	SyncJobKindStockItem SyncJobKind = "STOCK_ITEM"
	// SyncJobKindProduct syncs one storefront product with its ERP item
	SyncJobKindProduct SyncJobKind = "PRODUCT"
)

// IsValid returns true if the kind is known
func (k SyncJobKind) IsValid() bool {
	switch k {
	case SyncJobKindPriceList, SyncJobKindStockItem, SyncJobKindProduct:
		return true
	default:
		return false
	}
}

// ParseSyncJobKind accepts the URL forms "price-list", "stock-item" and
// "product" as well as the enum values.
func ParseSyncJobKind(s string) (SyncJobKind, error) {
	switch s {
	case "price-list", string(SyncJobKindPriceList):
		return SyncJobKindPriceList, nil
	case "stock-item", string(SyncJobKindStockItem):
		return SyncJobKindStockItem, nil
	case "product", string(SyncJobKindProduct):
		return SyncJobKindProduct, nil
	default:
		return "", ErrSyncJobInvalidKind
	}
}

// SyncJobStatus represents the status of a sync job
type SyncJobStatus string

const (
	SyncJobStatusPending SyncJobStatus = "PENDING"
	SyncJobStatusRunning SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess SyncJobStatus = "SUCCESS"
	SyncJobStatusPartial SyncJobStatus = "PARTIAL"
	SyncJobStatusSkipped SyncJobStatus = "SKIPPED"
	SyncJobStatusFailed  SyncJobStatus = "FAILED"
)

// SyncJob represents one queued sync run
type SyncJob struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Kind        SyncJobKind   `json:"kind"`
	ProfileID   uuid.UUID     `json:"profile_id,omitempty"`
	ItemCode    string        `json:"item_code,omitempty"`
	ProductID   string        `json:"product_id,omitempty"`
	Status      SyncJobStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	RetryCount  int           `json:"retry_count"`
	MaxRetries  int           `json:"max_retries"`
	NextRetryAt *time.Time    `json:"next_retry_at,omitempty"`

	// Sync results
	TotalCount    int           `json:"total_count"`
	SuccessCount  int           `json:"success_count"`
	SkippedCount  int           `json:"skipped_count"`
	FailedCount   int           `json:"failed_count"`
	FailedItemIDs []string      `json:"failed_item_ids,omitempty"`
	Waited        time.Duration `json:"waited"`
}

// NewPriceListSyncJob creates a job that pushes one profile's price list
func NewPriceListSyncJob(tenantID, profileID uuid.UUID, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       SyncJobKindPriceList,
		ProfileID:  profileID,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// NewStockSyncJob creates a job that pushes one item's stock
func NewStockSyncJob(tenantID uuid.UUID, itemCode string, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       SyncJobKindStockItem,
		ItemCode:   itemCode,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// NewProductSyncJob creates a job that syncs one storefront product
func NewProductSyncJob(tenantID, profileID uuid.UUID, productID string, maxRetries int) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Kind:       SyncJobKindProduct,
		ProfileID:  profileID,
		ProductID:  productID,
		Status:     SyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Snapshot returns a copy of the job that shares no memory with it
func (j *SyncJob) Snapshot() SyncJob {
	c := *j
	c.FailedItemIDs = append([]string(nil), j.FailedItemIDs...)
	return c
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the item counts and derives the final status
func (j *SyncJob) Complete(total, success, skipped, failed int) {
	now := time.Now()
	j.TotalCount = total
	j.SuccessCount = success
	j.SkippedCount = skipped
	j.FailedCount = failed
	j.CompletedAt = &now

	switch {
	case failed == 0 && success == 0:
		j.Status = SyncJobStatusSkipped
	case failed == 0:
		j.Status = SyncJobStatusSuccess
	case success > 0 || skipped > 0:
		j.Status = SyncJobStatusPartial
	default:
		j.Status = SyncJobStatusFailed
	}
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *SyncJob) ShouldRetry() bool {
	return j.Status == SyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *SyncJob) ScheduleRetry(baseDelay time.Duration) {
	j.RetryCount++
	j.Status = SyncJobStatusPending
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > 30*time.Minute {
		delay = 30 * time.Minute
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// ---------------------------------------------------------------------------
// SyncJobExecutor Interface
// ---------------------------------------------------------------------------

// SyncJobExecutor executes sync jobs. An error wrapped with Permanent is
// never retried.
type SyncJobExecutor interface {
	Execute(ctx context.Context, job *SyncJob) error
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// MaxConcurrentJobs is the number of workers
	MaxConcurrentJobs int
	// QueueSize is the capacity of the job queue
	QueueSize int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the base delay between retries (with exponential backoff)
	RetryDelay time.Duration
	// HistorySize is how many finished jobs are kept for inspection
	HistorySize int
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		MaxConcurrentJobs: 4,
		QueueSize:         100,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		HistorySize:       100,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 || c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// SyncScheduler runs sync jobs on a fixed worker pool. Each job paces its own
// outbound calls, so workers never share a throttle.
type SyncScheduler struct {
	config   SyncSchedulerConfig
	executor SyncJobExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu sync.RWMutex
	history   []*SyncJob
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, executor SyncJobExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncScheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *SyncJob, config.QueueSize),
		history:  make([]*SyncJob, 0, config.HistorySize),
	}, nil
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the workers are up
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job for execution
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	if !job.Kind.IsValid() {
		return ErrSyncJobInvalidKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("kind", string(job.Kind)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// SchedulePriceListSync queues a price list push for a profile. The returned
// job is the state at submission; the queued job belongs to the workers.
func (s *SyncScheduler) SchedulePriceListSync(tenantID, profileID uuid.UUID) (SyncJob, error) {
	return s.schedule(NewPriceListSyncJob(tenantID, profileID, s.config.RetryAttempts))
}

// ScheduleStockSync queues a stock push for an item
func (s *SyncScheduler) ScheduleStockSync(tenantID uuid.UUID, itemCode string) (SyncJob, error) {
	return s.schedule(NewStockSyncJob(tenantID, itemCode, s.config.RetryAttempts))
}

// ScheduleProductSync queues an item sync for one storefront product
func (s *SyncScheduler) ScheduleProductSync(tenantID, profileID uuid.UUID, productID string) (SyncJob, error) {
	return s.schedule(NewProductSyncJob(tenantID, profileID, productID, s.config.RetryAttempts))
}

func (s *SyncScheduler) schedule(job *SyncJob) (SyncJob, error) {
	// Taken before the send: a worker may pick the job up at once.
	snapshot := job.Snapshot()
	if err := s.SubmitJob(job); err != nil {
		return SyncJob{}, err
	}
	return snapshot, nil
}

func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	if job.NextRetryAt != nil {
		if wait := time.Until(*job.NextRetryAt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}

	job.Start()
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("kind", string(job.Kind)),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		if errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(ErrSyncJobTimeout, err)
		}
		job.Fail(err.Error())
		s.logger.Error("Sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Error(err),
		)

		if !errors.Is(err, ErrSyncJobPermanent) && job.ShouldRetry() && ctx.Err() == nil {
			job.ScheduleRetry(s.config.RetryDelay)
			s.logger.Info("Sync job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
			)
			select {
			case s.jobs <- job:
				return
			default:
				s.logger.Warn("Failed to re-queue sync job for retry",
					zap.String("job_id", job.ID.String()),
				)
			}
		}

		s.addToHistory(job)
		return
	}

	s.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("status", string(job.Status)),
		zap.Int("total_count", job.TotalCount),
		zap.Int("success_count", job.SuccessCount),
		zap.Int("skipped_count", job.SkippedCount),
		zap.Int("failed_count", job.FailedCount),
		zap.Duration("waited", job.Waited),
	)
	s.addToHistory(job)
}

func (s *SyncScheduler) addToHistory(job *SyncJob) {
	if s.config.HistorySize == 0 {
		return
	}
	snap := job.Snapshot()
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{&snap}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// GetJobHistory returns recent finished jobs, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByTenant returns recent finished jobs of one tenant
func (s *SyncScheduler) GetJobHistoryByTenant(tenantID uuid.UUID, limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*SyncJob, 0)
	for _, job := range s.history {
		if job.TenantID != tenantID {
			continue
		}
		result = append(result, job)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}
