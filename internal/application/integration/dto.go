package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Item Link DTOs
// ---------------------------------------------------------------------------

// ItemLinkResponse represents an item link in API responses
type ItemLinkResponse struct {
	ID                  uuid.UUID              `json:"id"`
	TenantID            uuid.UUID              `json:"tenant_id"`
	ProfileID           uuid.UUID              `json:"profile_id"`
	ItemCode            string                 `json:"item_code"`
	StorefrontProductID string                 `json:"storefront_product_id"`
	StorefrontSKU       string                 `json:"storefront_sku,omitempty"`
	IsActive            bool                   `json:"is_active"`
	SyncEnabled         bool                   `json:"sync_enabled"`
	LastSyncAt          *time.Time             `json:"last_sync_at,omitempty"`
	LastSyncStatus      integration.SyncStatus `json:"last_sync_status"`
	LastSyncError       string                 `json:"last_sync_error,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// CreateItemLinkRequest links an ERP item to a storefront product
type CreateItemLinkRequest struct {
	ProfileID           uuid.UUID `json:"profile_id" binding:"required"`
	ItemCode            string    `json:"item_code" binding:"required,max=140"`
	StorefrontProductID string    `json:"storefront_product_id" binding:"required,max=64"`
	StorefrontSKU       string    `json:"storefront_sku,omitempty" binding:"max=140"`
}

// UpdateItemLinkRequest changes an existing link
type UpdateItemLinkRequest struct {
	StorefrontProductID *string `json:"storefront_product_id,omitempty" binding:"omitempty,max=64"`
	StorefrontSKU       *string `json:"storefront_sku,omitempty" binding:"omitempty,max=140"`
	IsActive            *bool   `json:"is_active,omitempty"`
	SyncEnabled         *bool   `json:"sync_enabled,omitempty"`
}

// ItemLinkListFilter represents query parameters for listing links
type ItemLinkListFilter struct {
	ProfileID   *uuid.UUID `form:"-"`
	ItemCode    string     `form:"item_code"`
	IsActive    *bool      `form:"is_active"`
	SyncEnabled *bool      `form:"sync_enabled"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToItemLinkResponse converts a link to its response
func ToItemLinkResponse(l *integration.ItemLink) ItemLinkResponse {
	return ItemLinkResponse{
		ID:                  l.ID,
		TenantID:            l.TenantID,
		ProfileID:           l.ProfileID,
		ItemCode:            l.ItemCode,
		StorefrontProductID: l.StorefrontProductID,
		StorefrontSKU:       l.StorefrontSKU,
		IsActive:            l.IsActive,
		SyncEnabled:         l.SyncEnabled,
		LastSyncAt:          l.LastSyncAt,
		LastSyncStatus:      l.LastSyncStatus,
		LastSyncError:       l.LastSyncError,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
	}
}
