package connection

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyResolver_Resolve(t *testing.T) {
	r := NewPolicyResolver(nil)

	t.Run("fully enabled profile", func(t *testing.T) {
		p := newTestProfile(t)
		policy, err := r.Resolve(p)
		require.NoError(t, err)

		assert.Equal(t, p.ID, policy.ProfileID)
		assert.Equal(t, p.TenantID, policy.TenantID)
		assert.True(t, policy.SyncEnabled)
		assert.Equal(t, AllSyncDomains(), policy.EnabledDomains())

		assert.Equal(t, "Acme Ltd", policy.Orders.Company)
		assert.Equal(t, "Stores - AL", policy.Orders.Warehouse)
		assert.Equal(t, TaxPolicy{Mode: TaxModeTemplate, Template: "VAT 20%"}, policy.Orders.Tax)

		assert.Equal(t, "Products", policy.Items.ItemGroup)
		assert.Equal(t, NamingBasisProductSKU, policy.Items.NameBy)

		assert.Equal(t, []string{"Finished Goods - AL", "Stores - AL"}, policy.Stock.Warehouses())
		assert.True(t, policy.Stock.Includes("Stores - AL"))
		assert.False(t, policy.Stock.Includes("Transit - AL"))

		assert.Equal(t, "Standard Selling", policy.PriceList.PriceList)
		assert.Equal(t, 2*time.Second, policy.PriceList.Throttle)

		account, ok := policy.Payments.AccountFor("bacs")
		assert.True(t, ok)
		assert.Equal(t, "Bank - AL", account)
	})

	t.Run("fallback defaults", func(t *testing.T) {
		p := newTestProfile(t)
		policy, err := r.Resolve(p)
		require.NoError(t, err)

		assert.Equal(t, DefaultSalesOrderSeries, policy.Orders.SalesOrderSeries)
		assert.Equal(t, DefaultUOM, policy.Items.UOM)
		assert.Equal(t, DefaultDeliveryAfterDays, policy.Orders.DeliveryAfterDays)

		placed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC), policy.Orders.DeliveryDate(placed))
	})

	t.Run("explicit defaults win", func(t *testing.T) {
		p := newTestProfile(t)
		p.Defaults.SalesOrderSeries = "SO-SHOP-"
		p.Defaults.UOM = "Box"
		p.Defaults.DeliveryAfterDays = 3

		policy, err := r.Resolve(p)
		require.NoError(t, err)
		assert.Equal(t, "SO-SHOP-", policy.Orders.SalesOrderSeries)
		assert.Equal(t, "Box", policy.Items.UOM)
		assert.Equal(t, 3, policy.Orders.DeliveryAfterDays)
	})

	t.Run("actual tax type keeps only the account", func(t *testing.T) {
		p := newTestProfile(t)
		p.Accounting = Accounting{UseActualTaxType: true, TaxAccount: "VAT - AL", SalesTaxesAndChargesTemplate: "VAT 20%"}

		policy, err := r.Resolve(p)
		require.NoError(t, err)
		assert.Equal(t, TaxPolicy{Mode: TaxModeActual, Account: "VAT - AL"}, policy.Orders.Tax)
	})

	t.Run("price list throttle only when enabled", func(t *testing.T) {
		p := newTestProfile(t)
		p.EnablePriceListSync = false

		policy, err := r.Resolve(p)
		require.NoError(t, err)
		assert.False(t, policy.PriceList.Enabled)
		assert.Zero(t, policy.PriceList.Throttle)
	})

	t.Run("disabled profile resolves to an all-disabled policy", func(t *testing.T) {
		p := newTestProfile(t)
		p.EnableSync = false

		policy, err := r.Resolve(p)
		require.NoError(t, err)
		assert.False(t, policy.SyncEnabled)
		assert.Empty(t, policy.EnabledDomains())
		for _, d := range AllSyncDomains() {
			assert.False(t, policy.IsEnabled(d), d.String())
		}
		assert.Equal(t, DefaultUOM, policy.Items.UOM)
	})

	t.Run("invalid profile is a precondition error", func(t *testing.T) {
		p := newTestProfile(t)
		p.NameBy = NamingBasisUnset
		p.Warehouses = NewWarehouseSet()

		policy, err := r.Resolve(p)
		assert.Nil(t, policy)

		var pe *PreconditionError
		require.True(t, errors.As(err, &pe))
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "name_by", ve.Field)
	})

	t.Run("nil profile", func(t *testing.T) {
		_, err := r.Resolve(nil)
		assert.ErrorIs(t, err, ErrResolvePolicyNilProfile)
	})
}

func TestPolicyResolver_Deterministic(t *testing.T) {
	r := NewPolicyResolver(NewDependencyValidator())
	p := newTestProfile(t)
	p.FieldMappings = []FieldMapping{
		{Source: "name", Target: "item_name"},
		{Source: "sku", Target: "item_code", Transform: TransformUpper},
	}

	first, err := r.Resolve(p)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(p)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolvedSyncPolicy_Immutable(t *testing.T) {
	r := NewPolicyResolver(nil)
	p := newTestProfile(t)
	policy, err := r.Resolve(p)
	require.NoError(t, err)

	warehouses := policy.Stock.Warehouses()
	warehouses[0] = "tampered"
	assert.NotEqual(t, "tampered", policy.Stock.Warehouses()[0])

	accounts := policy.Payments.Accounts()
	accounts["bacs"] = "tampered"
	got, _ := policy.Payments.AccountFor("bacs")
	assert.Equal(t, "Bank - AL", got)

	p.PaymentMethodAccounts["cod"] = "Cash - AL"
	p.Warehouses.Add("Transit - AL")
	_, ok := policy.Payments.AccountFor("cod")
	assert.False(t, ok)
	assert.False(t, policy.Stock.Includes("Transit - AL"))
}
