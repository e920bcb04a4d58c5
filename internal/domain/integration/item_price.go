package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemPrice is the rate of an item in a price list
type ItemPrice struct {
	ItemCode      string
	PriceList     string
	PriceListRate decimal.Decimal
	ValidFrom     *time.Time
	ValidUpto     *time.Time
}

// IsCurrent reports whether the price has not expired at now
func (p ItemPrice) IsCurrent(now time.Time) bool {
	return p.ValidUpto == nil || p.ValidUpto.After(now)
}

// SelectPriceRate returns the rate of the first price in prices that has not
// expired at now.
func SelectPriceRate(prices []ItemPrice, now time.Time) (decimal.Decimal, bool) {
	for _, p := range prices {
		if p.IsCurrent(now) {
			return p.PriceListRate, true
		}
	}
	return decimal.Zero, false
}

// ItemPriceReader reads price list rates
type ItemPriceReader interface {
	// FindByItemAndPriceList returns the prices of an item in a price list,
	// ordered by valid_from descending
	FindByItemAndPriceList(ctx context.Context, tenantID uuid.UUID, itemCode, priceList string) ([]ItemPrice, error)
}
