package shared

// DomainError is an error with a stable code the HTTP layer maps to a status
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	// ErrDeliveryRejected is the only answer an unauthenticated webhook
	// delivery gets. Unknown profile, missing secret and bad signature all
	// map to it.
	ErrDeliveryRejected = NewDomainError("DELIVERY_REJECTED", "Delivery rejected")
)
