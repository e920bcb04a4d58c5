package integration

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// Bin is the stock of one item in one warehouse
type Bin struct {
	ItemCode    string
	Warehouse   string
	ActualQty   decimal.Decimal
	ReservedQty decimal.Decimal
}

// AggregateStock sums the actual quantity over the bins of the warehouses the
// stock policy considers. Bins of other warehouses are ignored.
func AggregateStock(bins []Bin, policy connection.StockPolicy) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bins {
		if policy.Includes(b.Warehouse) {
			total = total.Add(b.ActualQty)
		}
	}
	return total
}

// BinReader reads item stock
type BinReader interface {
	// FindByItem returns every bin of an item
	FindByItem(ctx context.Context, tenantID uuid.UUID, itemCode string) ([]Bin, error)
}
