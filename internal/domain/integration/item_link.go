package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ItemLink Entity
// ---------------------------------------------------------------------------

// ItemLink links an ERP item to a product on the storefront of one connection
// profile. An item may be linked to several profiles, at most once each.
type ItemLink struct {
	// ID is the unique identifier of this link
	ID uuid.UUID
	// TenantID is the tenant this link belongs to
	TenantID uuid.UUID
	// ProfileID is the connection profile of the storefront
	ProfileID uuid.UUID
	// ItemCode is the ERP item code
	ItemCode string
	// StorefrontProductID is the product ID on the storefront
	StorefrontProductID string
	// StorefrontSKU is the SKU on the storefront (for reference)
	StorefrontSKU string
	// IsActive indicates if this link is currently active
	IsActive bool
	// SyncEnabled indicates if the item takes part in synchronization
	SyncEnabled bool
	// LastSyncAt is when this link was last synced
	LastSyncAt *time.Time
	// LastSyncStatus is the result of the last sync
	LastSyncStatus SyncStatus
	// LastSyncError contains any error from last sync
	LastSyncError string
	// LastPriceHash fingerprints the last pushed price payload
	LastPriceHash string
	// LastStockHash fingerprints the last pushed stock payload
	LastStockHash string
	// LastItemHash fingerprints the last synced item fields
	LastItemHash string
	// CreatedAt is when this link was created
	CreatedAt time.Time
	// UpdatedAt is when this link was last updated
	UpdatedAt time.Time
}

// NewItemLink creates a new item link
func NewItemLink(
	tenantID uuid.UUID,
	profileID uuid.UUID,
	itemCode string,
	storefrontProductID string,
) (*ItemLink, error) {
	now := time.Now()
	l := &ItemLink{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		ProfileID:           profileID,
		ItemCode:            strings.TrimSpace(itemCode),
		StorefrontProductID: strings.TrimSpace(storefrontProductID),
		IsActive:            true,
		SyncEnabled:         true,
		LastSyncStatus:      SyncStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate validates the item link
func (l *ItemLink) Validate() error {
	if l.TenantID == uuid.Nil {
		return ErrItemLinkInvalidTenantID
	}
	if l.ProfileID == uuid.Nil {
		return ErrItemLinkInvalidProfileID
	}
	if l.ItemCode == "" {
		return ErrItemLinkInvalidItemCode
	}
	if l.StorefrontProductID == "" {
		return ErrItemLinkInvalidProductID
	}
	return nil
}

// IsSyncable returns true if the link takes part in synchronization
func (l *ItemLink) IsSyncable() bool {
	return l.IsActive && l.SyncEnabled
}

// Activate activates this link
func (l *ItemLink) Activate() {
	l.IsActive = true
	l.UpdatedAt = time.Now()
}

// Deactivate deactivates this link
func (l *ItemLink) Deactivate() {
	l.IsActive = false
	l.UpdatedAt = time.Now()
}

// EnableSync enables synchronization
func (l *ItemLink) EnableSync() {
	l.SyncEnabled = true
	l.UpdatedAt = time.Now()
}

// DisableSync disables synchronization
func (l *ItemLink) DisableSync() {
	l.SyncEnabled = false
	l.UpdatedAt = time.Now()
}

// PushKind names an independently tracked push of a link
type PushKind string

const (
	PushKindPrice PushKind = "price"
	PushKindStock PushKind = "stock"
	PushKindItem  PushKind = "item"
)

func (l *ItemLink) hashOf(kind PushKind) *string {
	switch kind {
	case PushKindPrice:
		return &l.LastPriceHash
	case PushKindStock:
		return &l.LastStockHash
	case PushKindItem:
		return &l.LastItemHash
	}
	return nil
}

// IsUnchanged reports whether payload equals the last successful push of
// the same kind
func (l *ItemLink) IsUnchanged(kind PushKind, payload string) bool {
	h := l.hashOf(kind)
	return h != nil && *h != "" && *h == PayloadHash(payload)
}

// RecordSyncSuccess records a successful push of payload
func (l *ItemLink) RecordSyncSuccess(kind PushKind, payload string) {
	now := time.Now()
	l.LastSyncAt = &now
	l.LastSyncStatus = SyncStatusSuccess
	l.LastSyncError = ""
	if h := l.hashOf(kind); h != nil {
		*h = PayloadHash(payload)
	}
	l.UpdatedAt = now
}

// RecordSyncFailure records a failed push. Only the hash of the failed kind
// is cleared so the next run pushes it again.
func (l *ItemLink) RecordSyncFailure(kind PushKind, errMsg string) {
	now := time.Now()
	l.LastSyncAt = &now
	l.LastSyncStatus = SyncStatusFailed
	l.LastSyncError = errMsg
	if h := l.hashOf(kind); h != nil {
		*h = ""
	}
	l.UpdatedAt = now
}

// ResetSyncHash forgets every pushed payload so the next runs push again
func (l *ItemLink) ResetSyncHash() {
	l.LastPriceHash = ""
	l.LastStockHash = ""
	l.LastItemHash = ""
	l.UpdatedAt = time.Now()
}

// PayloadHash returns the hex SHA-256 of a pushed payload
func PayloadHash(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ---------------------------------------------------------------------------
// ItemLinkRepository Interface
// ---------------------------------------------------------------------------

// ItemLinkReader defines the interface for reading item links
type ItemLinkReader interface {
	// FindByID finds a link by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ItemLink, error)

	// FindByItemCode finds the links of an item across all profiles
	FindByItemCode(ctx context.Context, tenantID uuid.UUID, itemCode string) ([]ItemLink, error)

	// FindByProfileAndItem finds the link of an item for one profile
	FindByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (*ItemLink, error)

	// FindByStorefrontProduct finds a link by storefront product ID
	FindByStorefrontProduct(ctx context.Context, tenantID, profileID uuid.UUID, productID string) (*ItemLink, error)
}

// ItemLinkFinder defines the interface for searching item links
type ItemLinkFinder interface {
	// FindAll finds all links for a tenant with optional filters
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ItemLinkFilter) ([]ItemLink, error)

	// FindSyncable finds the active, sync-enabled links of a profile ordered by item code
	FindSyncable(ctx context.Context, tenantID, profileID uuid.UUID) ([]ItemLink, error)

	// Count counts links matching the filter
	Count(ctx context.Context, tenantID uuid.UUID, filter ItemLinkFilter) (int64, error)

	// ExistsByProfileAndItem checks if a link exists
	ExistsByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (bool, error)
}

// ItemLinkWriter defines the interface for persisting item links
type ItemLinkWriter interface {
	// Save creates or updates a link
	Save(ctx context.Context, link *ItemLink) error

	// SaveBatch creates or updates multiple links
	SaveBatch(ctx context.Context, links []*ItemLink) error

	// Delete deletes a link
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemLinkRepository defines the full interface for item link persistence
type ItemLinkRepository interface {
	ItemLinkReader
	ItemLinkFinder
	ItemLinkWriter
}

// ItemLinkFilter defines filter criteria for item links
type ItemLinkFilter struct {
	// ProfileID filters by connection profile (optional)
	ProfileID *uuid.UUID
	// IsActive filters by active status (optional)
	IsActive *bool
	// SyncEnabled filters by sync enabled status (optional)
	SyncEnabled *bool
	// LastSyncStatus filters by last sync status (optional)
	LastSyncStatus *SyncStatus
	// ItemCodes filters by item codes (optional)
	ItemCodes []string
	// OrderBy and OrderDir sort the page; unknown columns fall back to item_code
	OrderBy  string
	OrderDir string
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}
