package connection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestProfile returns a profile that passes every rule with all sync
// domains switched on.
func newTestProfile(t *testing.T) *ConnectionProfile {
	t.Helper()
	p, err := NewConnectionProfile(uuid.New(), "Main store", Credentials{
		ServerURL:      "https://shop.example.com/",
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
	})
	require.NoError(t, err)

	p.EnableSync = true
	p.SyncSalesOrders = true
	p.EnableStockLevelSynchronisation = true
	p.EnablePriceListSync = true
	p.EnablePaymentsSync = true
	p.Defaults = Defaults{
		Company:   "Acme Ltd",
		Warehouse: "Stores - AL",
		ItemGroup: "Products",
	}
	p.PriceList = "Standard Selling"
	p.Accounting = Accounting{SalesTaxesAndChargesTemplate: "VAT 20%"}
	p.NameBy = NamingBasisProductSKU
	p.Warehouses = NewWarehouseSet("Stores - AL", "Finished Goods - AL")
	p.PaymentMethodAccounts = map[string]string{"bacs": "Bank - AL"}
	p.PriceListDelayPerItem = 2 * time.Second
	return p
}

// fakeClock advances instantly whenever After is called
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
