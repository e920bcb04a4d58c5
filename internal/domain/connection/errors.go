package connection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrProfileNotFound          = errors.New("connection: profile not found")
	ErrProfileInvalidTenantID   = errors.New("connection: invalid tenant ID")
	ErrProfileInvalidName       = errors.New("connection: profile name is required")
	ErrProfileInvalidServerURL  = errors.New("connection: server URL must be an absolute http(s) URL")
	ErrProfileAlreadyExists     = errors.New("connection: a profile for this server URL already exists")
	ErrInvalidNamingBasis       = errors.New("connection: invalid naming basis")
	ErrInvalidTransform         = errors.New("connection: invalid field transform")
	ErrFieldMappingEmptySource  = errors.New("connection: field mapping source is required")
	ErrFieldMappingEmptyTarget  = errors.New("connection: field mapping target is required")
	ErrWebhookSecretNotIssued   = errors.New("connection: webhook secret has not been issued")
	ErrThrottleInvalidIndex     = errors.New("connection: throttle item index must not be negative")
	ErrThrottleOutOfOrder       = errors.New("connection: throttle item index must increase within a run")
	ErrThrottleNegativeDelay    = errors.New("connection: throttle delay must not be negative")
	ErrSecretGenerationFailed   = errors.New("connection: failed to generate webhook secret")
	ErrResolvePolicyNilProfile  = errors.New("connection: cannot resolve policy of a nil profile")
	ErrValidateProfileNilTarget = errors.New("connection: cannot validate a nil profile")
)

// ---------------------------------------------------------------------------
// ValidationError
// ---------------------------------------------------------------------------

// ValidationError names the offending field and the rule it violates.
// It is recoverable: the editor fixes the field and saves again.
type ValidationError struct {
	Field  string `json:"field"`
	Rule   string `json:"rule"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("connection: %s: %s", e.Field, e.Reason)
}

// ValidationErrors is the collect-all form returned by ValidateAll.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Field + ": " + ve.Reason
	}
	return "connection: " + strings.Join(msgs, "; ")
}

// Fields returns the offending field names in rule order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, ve := range e {
		fields[i] = ve.Field
	}
	return fields
}

// First returns the first violation, or nil when the slice is empty.
func (e ValidationErrors) First() *ValidationError {
	if len(e) == 0 {
		return nil
	}
	return e[0]
}

// ---------------------------------------------------------------------------
// PreconditionError
// ---------------------------------------------------------------------------

// PreconditionError reports that policy resolution was invoked on a profile that
// does not pass validation. It indicates a caller bug and must not be retried.
type PreconditionError struct {
	Reason string
	Cause  error
}

func (e *PreconditionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection: precondition failed: %s: %v", e.Reason, e.Cause)
	}
	return "connection: precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

// ---------------------------------------------------------------------------
// AlreadyIssuedError
// ---------------------------------------------------------------------------

// AlreadyIssuedError is returned by Issue when the profile already holds a secret.
// Replacing a secret goes through Rotate.
type AlreadyIssuedError struct {
	ProfileID uuid.UUID
}

func (e *AlreadyIssuedError) Error() string {
	return fmt.Sprintf("connection: webhook secret already issued for profile %s", e.ProfileID)
}
