package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ---------------------------------------------------------------------------
	// Sync Job Errors
	// ---------------------------------------------------------------------------

	// ErrSyncJobFailed is returned when a sync job fails as a whole
	ErrSyncJobFailed = errors.New("sync job failed")

	// ErrSyncJobTimeout is returned when a sync job runs past its timeout
	ErrSyncJobTimeout = errors.New("sync job timed out")

	// ErrSyncJobInvalidKind is returned for unknown job kinds
	ErrSyncJobInvalidKind = errors.New("invalid sync job kind")

	// ErrSyncJobPermanent marks a failure that a retry cannot fix
	ErrSyncJobPermanent = errors.New("sync job failed permanently")
)

// permanentError wraps an executor error that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() []error { return []error{e.err, ErrSyncJobPermanent} }

// Permanent marks err as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
