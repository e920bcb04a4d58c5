package connection

import (
	"fmt"
	"strings"
)

// Rule identifiers reported in ValidationError.Rule
const (
	RuleRequired          = "required"
	RuleRequiredIf        = "required_if"
	RuleNonEmptySet       = "non_empty_set"
	RuleNonNegative       = "non_negative"
	RuleOneOf             = "one_of"
	RuleFieldMappingValid = "field_mapping_valid"
)

// rule is one entry of the statically enumerated rule table. check returns
// nil when the rule holds.
type rule struct {
	name  string
	check func(p *ConnectionProfile) *ValidationError
}

// DependencyValidator enforces the conditional-mandatory field rules of a
// connection profile. It is stateless and safe for concurrent use.
type DependencyValidator struct {
	rules []rule
}

// NewDependencyValidator creates a validator with the standard rule table
func NewDependencyValidator() *DependencyValidator {
	return &DependencyValidator{rules: profileRules}
}

// Validate returns the first violated rule, or nil
func (v *DependencyValidator) Validate(p *ConnectionProfile) error {
	if p == nil {
		return ErrValidateProfileNilTarget
	}
	for _, r := range v.table() {
		if ve := r.check(p); ve != nil {
			return ve
		}
	}
	return nil
}

// ValidateAll runs every rule and collects all violations in table order.
// It returns nil for a valid profile.
func (v *DependencyValidator) ValidateAll(p *ConnectionProfile) ValidationErrors {
	if p == nil {
		return ValidationErrors{{Field: "profile", Rule: RuleRequired, Reason: "profile is required"}}
	}
	var errs ValidationErrors
	for _, r := range v.table() {
		if ve := r.check(p); ve != nil {
			errs = append(errs, ve)
		}
	}
	return errs
}

func (v *DependencyValidator) table() []rule {
	if v == nil || v.rules == nil {
		return profileRules
	}
	return v.rules
}

// ---------------------------------------------------------------------------
// Rule table
// ---------------------------------------------------------------------------

var profileRules = []rule{
	// Tax: exactly one counterpart is required, chosen by use_actual_tax_type
	requireWhen("tax_account", "use_actual_tax_type is set",
		func(p *ConnectionProfile) bool { return p.Accounting.UseActualTaxType },
		func(p *ConnectionProfile) string { return p.Accounting.TaxAccount }),
	requireWhen("sales_taxes_and_charges_template", "use_actual_tax_type is not set",
		func(p *ConnectionProfile) bool { return !p.Accounting.UseActualTaxType },
		func(p *ConnectionProfile) string { return p.Accounting.SalesTaxesAndChargesTemplate }),

	// Price list sync
	requireWhen("price_list", "enable_price_list_sync is set",
		func(p *ConnectionProfile) bool { return p.EnablePriceListSync },
		func(p *ConnectionProfile) string { return p.PriceList }),

	// Stock level sync
	requireWhen("name_by", "enable_stock_level_synchronisation is set",
		func(p *ConnectionProfile) bool { return p.EnableStockLevelSynchronisation },
		func(p *ConnectionProfile) string { return string(p.NameBy) }),
	{
		name: "warehouses",
		check: func(p *ConnectionProfile) *ValidationError {
			if p.EnableStockLevelSynchronisation && p.Warehouses.IsEmpty() {
				return &ValidationError{
					Field:  "warehouses",
					Rule:   RuleNonEmptySet,
					Reason: "at least one warehouse is required when enable_stock_level_synchronisation is set",
				}
			}
			return nil
		},
	},

	// Always required once sync is on
	requireWhen("company", "enable_sync is set", syncEnabled,
		func(p *ConnectionProfile) string { return p.Defaults.Company }),
	requireWhen("warehouse", "enable_sync is set", syncEnabled,
		func(p *ConnectionProfile) string { return p.Defaults.Warehouse }),
	requireWhen("item_group", "enable_sync is set", syncEnabled,
		func(p *ConnectionProfile) string { return p.Defaults.ItemGroup }),

	// Storefront credentials
	requireWhen("api_consumer_key", "enable_sync is set", syncEnabled,
		func(p *ConnectionProfile) string { return p.Credentials.ConsumerKey }),
	requireWhen("api_consumer_secret", "enable_sync is set", syncEnabled,
		func(p *ConnectionProfile) string { return p.Credentials.ConsumerSecret }),

	// Throttle
	{
		name: "price_list_delay_per_item",
		check: func(p *ConnectionProfile) *ValidationError {
			if p.PriceListDelayPerItem < 0 {
				return &ValidationError{
					Field:  "price_list_delay_per_item",
					Rule:   RuleNonNegative,
					Reason: "must be zero or greater",
				}
			}
			return nil
		},
	},
	{
		name: "delivery_after_days",
		check: func(p *ConnectionProfile) *ValidationError {
			if p.Defaults.DeliveryAfterDays < 0 {
				return &ValidationError{
					Field:  "delivery_after_days",
					Rule:   RuleNonNegative,
					Reason: "must be zero or greater",
				}
			}
			return nil
		},
	},

	// Closed enums and mapping integrity
	{
		name: "name_by_variant",
		check: func(p *ConnectionProfile) *ValidationError {
			if p.NameBy.IsSet() && !p.NameBy.IsValid() {
				return &ValidationError{
					Field:  "name_by",
					Rule:   RuleOneOf,
					Reason: fmt.Sprintf("must be one of %s, %s", NamingBasisWooCommerceID, NamingBasisProductSKU),
				}
			}
			return nil
		},
	},
	{
		name: "field_mappings",
		check: func(p *ConnectionProfile) *ValidationError {
			for i, m := range p.FieldMappings {
				if err := m.Validate(); err != nil {
					return &ValidationError{
						Field:  fmt.Sprintf("field_mappings[%d]", i),
						Rule:   RuleFieldMappingValid,
						Reason: strings.TrimPrefix(err.Error(), "connection: "),
					}
				}
			}
			return nil
		},
	},
}

func syncEnabled(p *ConnectionProfile) bool {
	return p.EnableSync
}

// requireWhen builds a conditional-mandatory rule for a text field
func requireWhen(field, condition string, when func(*ConnectionProfile) bool, value func(*ConnectionProfile) string) rule {
	return rule{
		name: field,
		check: func(p *ConnectionProfile) *ValidationError {
			if !when(p) || strings.TrimSpace(value(p)) != "" {
				return nil
			}
			return &ValidationError{
				Field:  field,
				Rule:   RuleRequiredIf,
				Reason: fmt.Sprintf("is required when %s", condition),
			}
		},
	}
}
