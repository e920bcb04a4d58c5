package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
)

// ItemLinkModel is the persistence model for the ItemLink domain entity.
type ItemLinkModel struct {
	ID                  uuid.UUID              `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID              `gorm:"type:uuid;not null;index:idx_item_link_tenant_item,priority:1;uniqueIndex:uq_item_link_profile_item,priority:1"`
	ProfileID           uuid.UUID              `gorm:"type:uuid;not null;index:idx_item_link_profile_product,priority:1;uniqueIndex:uq_item_link_profile_item,priority:2"`
	ItemCode            string                 `gorm:"type:varchar(140);not null;index:idx_item_link_tenant_item,priority:2;uniqueIndex:uq_item_link_profile_item,priority:3"`
	StorefrontProductID string                 `gorm:"type:varchar(100);not null;index:idx_item_link_profile_product,priority:2"`
	StorefrontSKU       string                 `gorm:"type:varchar(140)"`
	IsActive            bool                   `gorm:"not null;default:true"`
	SyncEnabled         bool                   `gorm:"not null;default:true"`
	LastSyncAt          *time.Time             `gorm:"index"`
	LastSyncStatus      integration.SyncStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	LastSyncError       string                 `gorm:"type:text"`
	LastPriceHash       string                 `gorm:"type:varchar(64)"`
	LastStockHash       string                 `gorm:"type:varchar(64)"`
	LastItemHash        string                 `gorm:"type:varchar(64)"`
	CreatedAt           time.Time              `gorm:"not null"`
	UpdatedAt           time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemLinkModel) TableName() string {
	return "item_links"
}

// ToDomain converts the persistence model to a domain ItemLink entity.
func (m *ItemLinkModel) ToDomain() *integration.ItemLink {
	return &integration.ItemLink{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		ProfileID:           m.ProfileID,
		ItemCode:            m.ItemCode,
		StorefrontProductID: m.StorefrontProductID,
		StorefrontSKU:       m.StorefrontSKU,
		IsActive:            m.IsActive,
		SyncEnabled:         m.SyncEnabled,
		LastSyncAt:          m.LastSyncAt,
		LastSyncStatus:      m.LastSyncStatus,
		LastSyncError:       m.LastSyncError,
		LastPriceHash:       m.LastPriceHash,
		LastStockHash:       m.LastStockHash,
		LastItemHash:        m.LastItemHash,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ItemLink entity.
func (m *ItemLinkModel) FromDomain(l *integration.ItemLink) {
	m.ID = l.ID
	m.TenantID = l.TenantID
	m.ProfileID = l.ProfileID
	m.ItemCode = l.ItemCode
	m.StorefrontProductID = l.StorefrontProductID
	m.StorefrontSKU = l.StorefrontSKU
	m.IsActive = l.IsActive
	m.SyncEnabled = l.SyncEnabled
	m.LastSyncAt = l.LastSyncAt
	m.LastSyncStatus = l.LastSyncStatus
	m.LastSyncError = l.LastSyncError
	m.LastPriceHash = l.LastPriceHash
	m.LastStockHash = l.LastStockHash
	m.LastItemHash = l.LastItemHash
	m.CreatedAt = l.CreatedAt
	m.UpdatedAt = l.UpdatedAt
}

// ItemLinkModelFromDomain creates a new persistence model from a domain ItemLink entity.
func ItemLinkModelFromDomain(l *integration.ItemLink) *ItemLinkModel {
	m := &ItemLinkModel{}
	m.FromDomain(l)
	return m
}

// ItemPriceModel is a price list rate maintained by the ERP.
// The sync engine only reads it.
type ItemPriceModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_item_price_lookup,priority:1"`
	ItemCode      string          `gorm:"type:varchar(140);not null;index:idx_item_price_lookup,priority:2"`
	PriceList     string          `gorm:"type:varchar(140);not null;index:idx_item_price_lookup,priority:3"`
	PriceListRate decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ValidFrom     *time.Time
	ValidUpto     *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemPriceModel) TableName() string {
	return "item_prices"
}

// ToDomain converts the persistence model to a domain ItemPrice value.
func (m *ItemPriceModel) ToDomain() integration.ItemPrice {
	return integration.ItemPrice{
		ItemCode:      m.ItemCode,
		PriceList:     m.PriceList,
		PriceListRate: m.PriceListRate,
		ValidFrom:     m.ValidFrom,
		ValidUpto:     m.ValidUpto,
	}
}

// BinModel is the stock of one item in one warehouse, maintained by the ERP.
type BinModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_bin_item_warehouse,priority:1"`
	ItemCode    string          `gorm:"type:varchar(140);not null;uniqueIndex:uq_bin_item_warehouse,priority:2"`
	Warehouse   string          `gorm:"type:varchar(140);not null;uniqueIndex:uq_bin_item_warehouse,priority:3"`
	ActualQty   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BinModel) TableName() string {
	return "bins"
}

// ToDomain converts the persistence model to a domain Bin value.
func (m *BinModel) ToDomain() integration.Bin {
	return integration.Bin{
		ItemCode:    m.ItemCode,
		Warehouse:   m.Warehouse,
		ActualQty:   m.ActualQty,
		ReservedQty: m.ReservedQty,
	}
}

// ItemModel is the persistence model for the ERP Item entity.
type ItemModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_item_tenant_code,priority:1"`
	ItemCode    string    `gorm:"type:varchar(140);not null;uniqueIndex:uq_item_tenant_code,priority:2"`
	ItemName    string    `gorm:"type:varchar(140)"`
	ItemGroup   string    `gorm:"type:varchar(140)"`
	StockUOM    string    `gorm:"type:varchar(140)"`
	Description string    `gorm:"type:text"`
	FieldsJSON  string    `gorm:"type:jsonb;column:fields"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts the persistence model to a domain Item entity.
func (m *ItemModel) ToDomain() *integration.Item {
	item := &integration.Item{
		ID:          m.ID,
		TenantID:    m.TenantID,
		ItemCode:    m.ItemCode,
		ItemName:    m.ItemName,
		ItemGroup:   m.ItemGroup,
		StockUOM:    m.StockUOM,
		Description: m.Description,
		Fields:      make(map[string]any),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.FieldsJSON != "" {
		_ = json.Unmarshal([]byte(m.FieldsJSON), &item.Fields)
	}
	return item
}

// FromDomain populates the persistence model from a domain Item entity.
func (m *ItemModel) FromDomain(i *integration.Item) {
	m.ID = i.ID
	m.TenantID = i.TenantID
	m.ItemCode = i.ItemCode
	m.ItemName = i.ItemName
	m.ItemGroup = i.ItemGroup
	m.StockUOM = i.StockUOM
	m.Description = i.Description
	m.FieldsJSON = "{}"
	if len(i.Fields) > 0 {
		if jsonBytes, err := json.Marshal(i.Fields); err == nil {
			m.FieldsJSON = string(jsonBytes)
		}
	}
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}
