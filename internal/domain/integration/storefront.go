package integration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// ---------------------------------------------------------------------------
// Storefront Errors
// ---------------------------------------------------------------------------

var (
	// Storefront errors
	ErrStorefrontNotConfigured   = errors.New("integration: storefront not configured")
	ErrStorefrontUnavailable     = errors.New("integration: storefront temporarily unavailable")
	ErrStorefrontRequestFailed   = errors.New("integration: storefront request failed")
	ErrStorefrontInvalidResponse = errors.New("integration: invalid storefront response")
	ErrStorefrontAuthFailed      = errors.New("integration: storefront authentication failed")
	ErrStorefrontRateLimited     = errors.New("integration: storefront rate limited")
	ErrStorefrontProductNotFound = errors.New("integration: storefront product not found")

	// Sync errors
	ErrSyncDomainDisabled = errors.New("integration: sync domain disabled for profile")
	ErrSyncNoPrice        = errors.New("integration: no valid price for item")

	// Item link errors
	ErrItemLinkInvalidTenantID  = errors.New("integration: invalid tenant ID")
	ErrItemLinkInvalidProfileID = errors.New("integration: invalid connection profile ID")
	ErrItemLinkInvalidItemCode  = errors.New("integration: invalid item code")
	ErrItemLinkInvalidProductID = errors.New("integration: invalid storefront product ID")
	ErrItemLinkAlreadyExists    = errors.New("integration: item link already exists")
	ErrItemLinkNotFound         = errors.New("integration: item link not found")
)

// ---------------------------------------------------------------------------
// SyncStatus represents the synchronization status
// ---------------------------------------------------------------------------

// SyncStatus represents the synchronization status
type SyncStatus string

const (
	// SyncStatusPending indicates sync is pending
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusInProgress indicates sync is in progress
	SyncStatusInProgress SyncStatus = "IN_PROGRESS"
	// SyncStatusSuccess indicates sync was successful
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates partial sync success
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates sync failed
	SyncStatusFailed SyncStatus = "FAILED"
	// SyncStatusSkipped indicates nothing had to be pushed
	SyncStatusSkipped SyncStatus = "SKIPPED"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusInProgress, SyncStatusSuccess, SyncStatusPartial, SyncStatusFailed, SyncStatusSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// StorefrontProduct is the subset of a storefront product the ERP cares about
type StorefrontProduct struct {
	ID               int64  `json:"id"`
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	RegularPrice     string `json:"regular_price"`
	ManageStock      bool   `json:"manage_stock"`
	StockQuantity    *int64 `json:"stock_quantity"`
	DateModified     string `json:"date_modified"`
	DateModifiedGMT  string `json:"date_modified_gmt"`
}

// storefrontTimeLayout is the timestamp format of the WooCommerce REST API
const storefrontTimeLayout = "2006-01-02T15:04:05"

// IDString returns the storefront product ID as text
func (p StorefrontProduct) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// SyncStamp identifies the product revision. It is what an item link
// remembers after an item sync.
func (p StorefrontProduct) SyncStamp() string {
	if p.DateModifiedGMT != "" {
		return p.DateModifiedGMT
	}
	return p.DateModified
}

// ModifiedAt parses the last modification time. Without a GMT stamp the
// local stamp is read as UTC.
func (p StorefrontProduct) ModifiedAt() (time.Time, error) {
	stamp := p.SyncStamp()
	if stamp == "" {
		return time.Time{}, fmt.Errorf("%w: product %d has no modification date", ErrStorefrontInvalidResponse, p.ID)
	}
	t, err := time.ParseInLocation(storefrontTimeLayout, stamp, time.UTC)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, stamp); err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrStorefrontInvalidResponse, err)
		}
	}
	return t, nil
}

// Record returns the product fields keyed by their REST names, the source
// side of a field mapping
func (p StorefrontProduct) Record() map[string]any {
	out := map[string]any{
		"id":                p.ID,
		"sku":               p.SKU,
		"name":              p.Name,
		"type":              p.Type,
		"status":            p.Status,
		"description":       p.Description,
		"short_description": p.ShortDescription,
		"regular_price":     p.RegularPrice,
		"manage_stock":      p.ManageStock,
		"date_modified":     p.DateModified,
	}
	if p.StockQuantity != nil {
		out["stock_quantity"] = *p.StockQuantity
	}
	return out
}

// ItemCodeFor derives the ERP item code for a storefront product.
// With the SKU basis the SKU is used when present; every other case falls
// back to the storefront product ID.
func ItemCodeFor(basis connection.NamingBasis, product StorefrontProduct) string {
	if basis == connection.NamingBasisProductSKU && product.SKU != "" {
		return product.SKU
	}
	return product.IDString()
}

// SyncResult represents the result of a sync operation
type SyncResult struct {
	// Status is the overall sync status
	Status SyncStatus `json:"status"`
	// TotalCount is the total number of items to sync
	TotalCount int `json:"total_count"`
	// SuccessCount is the number of successfully synced items
	SuccessCount int `json:"success_count"`
	// SkippedCount is the number of items that needed no update
	SkippedCount int `json:"skipped_count"`
	// FailedCount is the number of failed items
	FailedCount int `json:"failed_count"`
	// FailedItems contains details about failed items
	FailedItems []SyncFailure `json:"failed_items,omitempty"`
	// Waited is the total time spent pacing outbound requests
	Waited time.Duration `json:"waited"`
	// SyncedAt is when the sync completed
	SyncedAt time.Time `json:"synced_at"`
}

// SyncFailure represents a failed sync item
type SyncFailure struct {
	// ItemID is the identifier of the failed item
	ItemID string `json:"item_id"`
	// ErrorCode is the storefront error code
	ErrorCode string `json:"error_code,omitempty"`
	// ErrorMessage is the error description
	ErrorMessage string `json:"error_message"`
}

// NewSyncResult starts a result for total items
func NewSyncResult(total int) *SyncResult {
	return &SyncResult{
		Status:      SyncStatusInProgress,
		TotalCount:  total,
		FailedItems: make([]SyncFailure, 0),
	}
}

// RecordSuccess counts a pushed item
func (r *SyncResult) RecordSuccess() {
	r.SuccessCount++
}

// RecordSkipped counts an item that needed no push
func (r *SyncResult) RecordSkipped() {
	r.SkippedCount++
}

// RecordFailure counts a failed item
func (r *SyncResult) RecordFailure(itemID, code string, err error) {
	r.FailedCount++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.FailedItems = append(r.FailedItems, SyncFailure{ItemID: itemID, ErrorCode: code, ErrorMessage: msg})
}

// Finish derives the overall status
func (r *SyncResult) Finish(at time.Time) *SyncResult {
	r.SyncedAt = at
	switch {
	case r.FailedCount == 0 && r.SuccessCount == 0:
		r.Status = SyncStatusSkipped
	case r.FailedCount == 0:
		r.Status = SyncStatusSuccess
	case r.SuccessCount == 0 && r.SkippedCount == 0:
		r.Status = SyncStatusFailed
	default:
		r.Status = SyncStatusPartial
	}
	return r
}

// ---------------------------------------------------------------------------
// StorefrontClient Port Interface
// ---------------------------------------------------------------------------

// StorefrontClient defines the port for the storefront REST API.
// Credentials travel with every call so one client serves all profiles.
type StorefrontClient interface {
	// GetProduct retrieves a product from the storefront
	GetProduct(ctx context.Context, creds connection.Credentials, productID string) (*StorefrontProduct, error)

	// UpdateStock sets the stock quantity of a product
	UpdateStock(ctx context.Context, creds connection.Credentials, productID string, quantity decimal.Decimal) error

	// UpdatePrice sets the regular price of a product
	UpdatePrice(ctx context.Context, creds connection.Credentials, productID string, rate decimal.Decimal) error

	// UpdateProduct writes product fields and returns the stored product
	UpdateProduct(ctx context.Context, creds connection.Credentials, productID string, fields map[string]any) (*StorefrontProduct, error)
}
