package connection

import "strings"

// PolicyResolver converts a validated profile into a ResolvedSyncPolicy.
// Resolution reads nothing but the profile, so equal profiles always resolve
// to equal policies.
type PolicyResolver struct {
	validator *DependencyValidator
}

// NewPolicyResolver creates a resolver gated by the given validator.
// A nil validator uses the standard rule table.
func NewPolicyResolver(validator *DependencyValidator) *PolicyResolver {
	if validator == nil {
		validator = NewDependencyValidator()
	}
	return &PolicyResolver{validator: validator}
}

// Resolve derives the policy. A profile that fails validation yields a
// PreconditionError. A profile with sync switched off resolves to a policy in
// which every domain is disabled.
func (r *PolicyResolver) Resolve(p *ConnectionProfile) (*ResolvedSyncPolicy, error) {
	if p == nil {
		return nil, &PreconditionError{Reason: "profile is nil", Cause: ErrResolvePolicyNilProfile}
	}
	if err := r.validator.Validate(p); err != nil {
		return nil, &PreconditionError{Reason: "profile has not passed validation", Cause: err}
	}

	on := p.EnableSync
	mapping := BuildMapping(p.FieldMappings)

	policy := &ResolvedSyncPolicy{
		ProfileID:      p.ID,
		TenantID:       p.TenantID,
		ProfileVersion: p.Version,
		SyncEnabled:    on,
		Orders: OrdersPolicy{
			Enabled:           on && p.SyncSalesOrders,
			Company:           strings.TrimSpace(p.Defaults.Company),
			Warehouse:         strings.TrimSpace(p.Defaults.Warehouse),
			SalesOrderSeries:  orDefault(p.Defaults.SalesOrderSeries, DefaultSalesOrderSeries),
			DeliveryAfterDays: resolveDeliveryOffset(p.Defaults.DeliveryAfterDays),
			Tax:               resolveTax(p.Accounting),
		},
		Items: ItemsPolicy{
			Enabled:   on,
			ItemGroup: strings.TrimSpace(p.Defaults.ItemGroup),
			UOM:       orDefault(p.Defaults.UOM, DefaultUOM),
			NameBy:    p.NameBy,
			Mapping:   mapping,
		},
		Stock: StockPolicy{
			Enabled:    on && p.EnableStockLevelSynchronisation,
			NameBy:     p.NameBy,
			warehouses: p.Warehouses.Sorted(),
		},
		PriceList: PriceListPolicy{
			Enabled:   on && p.EnablePriceListSync,
			PriceList: strings.TrimSpace(p.PriceList),
		},
		Payments: PaymentsPolicy{
			Enabled:  on && p.EnablePaymentsSync,
			Company:  strings.TrimSpace(p.Defaults.Company),
			accounts: copyAccounts(p.PaymentMethodAccounts),
		},
	}
	if policy.PriceList.Enabled {
		policy.PriceList.Throttle = p.PriceListDelayPerItem
	}
	return policy, nil
}

// resolveTax keeps only the counterpart selected by UseActualTaxType
func resolveTax(a Accounting) TaxPolicy {
	if a.UseActualTaxType {
		return TaxPolicy{Mode: TaxModeActual, Account: strings.TrimSpace(a.TaxAccount)}
	}
	return TaxPolicy{Mode: TaxModeTemplate, Template: strings.TrimSpace(a.SalesTaxesAndChargesTemplate)}
}

func resolveDeliveryOffset(days int) int {
	if days <= 0 {
		return DefaultDeliveryAfterDays
	}
	return days
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func copyAccounts(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}
