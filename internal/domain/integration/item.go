package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrItemInvalidTenantID = errors.New("integration: invalid item tenant ID")
	ErrItemInvalidCode     = errors.New("integration: invalid item code")
	ErrItemNotFound        = errors.New("integration: item not found")
)

// Item is the ERP item master record kept in step with storefront products
type Item struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ItemCode    string
	ItemName    string
	ItemGroup   string
	StockUOM    string
	Description string
	// Fields holds mapped values that have no column of their own
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item fields with a column of their own
const (
	ItemFieldCode        = "item_code"
	ItemFieldName        = "item_name"
	ItemFieldGroup       = "item_group"
	ItemFieldStockUOM    = "stock_uom"
	ItemFieldDescription = "description"
)

// NewItem creates a new ERP item
func NewItem(tenantID uuid.UUID, itemCode, itemName, itemGroup, stockUOM string) (*Item, error) {
	if tenantID == uuid.Nil {
		return nil, ErrItemInvalidTenantID
	}
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return nil, ErrItemInvalidCode
	}
	now := time.Now()
	return &Item{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ItemCode:  itemCode,
		ItemName:  strings.TrimSpace(itemName),
		ItemGroup: itemGroup,
		StockUOM:  stockUOM,
		Fields:    make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SetField writes one mapped value. The item code is the item's identity and
// is never overwritten.
func (i *Item) SetField(name string, value any) {
	switch name {
	case ItemFieldCode:
	case ItemFieldName:
		i.ItemName = asText(value)
	case ItemFieldGroup:
		i.ItemGroup = asText(value)
	case ItemFieldStockUOM:
		i.StockUOM = asText(value)
	case ItemFieldDescription:
		i.Description = asText(value)
	default:
		if i.Fields == nil {
			i.Fields = make(map[string]any)
		}
		i.Fields[name] = value
	}
}

// Record returns every field of the item keyed by field name
func (i *Item) Record() map[string]any {
	out := make(map[string]any, len(i.Fields)+5)
	for k, v := range i.Fields {
		out[k] = v
	}
	out[ItemFieldCode] = i.ItemCode
	out[ItemFieldName] = i.ItemName
	out[ItemFieldGroup] = i.ItemGroup
	out[ItemFieldStockUOM] = i.StockUOM
	out[ItemFieldDescription] = i.Description
	return out
}

func asText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ItemRepository persists ERP items
type ItemRepository interface {
	// FindByCode finds an item of a tenant by item code
	FindByCode(ctx context.Context, tenantID uuid.UUID, itemCode string) (*Item, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error
}
