package connection

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// FieldMappingInput is one field mapping row of a profile form
type FieldMappingInput struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Transform string `json:"transform,omitempty"`
}

// ProfileInput carries every editable field of a connection profile.
// Conditional rules are enforced by the dependency validator, not by binding
// tags, so that violations name the profile field and rule.
type ProfileInput struct {
	Name           string `json:"name" binding:"required,max=140"`
	ServerURL      string `json:"server_url" binding:"required,max=512"`
	ConsumerKey    string `json:"api_consumer_key" binding:"max=255"`
	ConsumerSecret string `json:"api_consumer_secret" binding:"max=255"`

	EnableSync                      bool `json:"enable_sync"`
	SyncSalesOrders                 bool `json:"sync_sales_orders"`
	EnableStockLevelSynchronisation bool `json:"enable_stock_level_synchronisation"`
	EnablePriceListSync             bool `json:"enable_price_list_sync"`
	EnablePaymentsSync              bool `json:"enable_payments_sync"`

	Company           string `json:"company"`
	Warehouse         string `json:"warehouse"`
	ItemGroup         string `json:"item_group"`
	UOM               string `json:"uom"`
	SalesOrderSeries  string `json:"sales_order_series"`
	DeliveryAfterDays int    `json:"delivery_after_days"`

	PriceList                    string `json:"price_list"`
	UseActualTaxType             bool   `json:"use_actual_tax_type"`
	TaxAccount                   string `json:"tax_account"`
	SalesTaxesAndChargesTemplate string `json:"sales_taxes_and_charges_template"`

	NameBy                  string              `json:"name_by"`
	Warehouses              []string            `json:"warehouses"`
	FieldMappings           []FieldMappingInput `json:"field_mappings" binding:"omitempty,dive"`
	PaymentMethodAccounts   map[string]string   `json:"payment_method_accounts"`
	PriceListDelayPerItemMs int64               `json:"price_list_delay_per_item_ms"`
}

// applyTo copies the input onto a profile. Values the validator must judge
// are copied as given; an unparseable naming basis is kept verbatim so the
// validator reports it.
func (in ProfileInput) applyTo(p *connection.ConnectionProfile) error {
	if err := p.Rename(in.Name); err != nil {
		return err
	}
	if err := p.SetCredentials(connection.Credentials{
		ServerURL:      in.ServerURL,
		ConsumerKey:    strings.TrimSpace(in.ConsumerKey),
		ConsumerSecret: strings.TrimSpace(in.ConsumerSecret),
	}); err != nil {
		return err
	}

	p.EnableSync = in.EnableSync
	p.SyncSalesOrders = in.SyncSalesOrders
	p.EnableStockLevelSynchronisation = in.EnableStockLevelSynchronisation
	p.EnablePriceListSync = in.EnablePriceListSync
	p.EnablePaymentsSync = in.EnablePaymentsSync

	p.Defaults = connection.Defaults{
		Company:           strings.TrimSpace(in.Company),
		Warehouse:         strings.TrimSpace(in.Warehouse),
		ItemGroup:         strings.TrimSpace(in.ItemGroup),
		UOM:               strings.TrimSpace(in.UOM),
		SalesOrderSeries:  strings.TrimSpace(in.SalesOrderSeries),
		DeliveryAfterDays: in.DeliveryAfterDays,
	}
	p.PriceList = strings.TrimSpace(in.PriceList)
	p.Accounting = connection.Accounting{
		UseActualTaxType:             in.UseActualTaxType,
		TaxAccount:                   strings.TrimSpace(in.TaxAccount),
		SalesTaxesAndChargesTemplate: strings.TrimSpace(in.SalesTaxesAndChargesTemplate),
	}

	if basis, err := connection.ParseNamingBasis(in.NameBy); err == nil {
		p.NameBy = basis
	} else {
		p.NameBy = connection.NamingBasis(in.NameBy)
	}
	p.Warehouses = connection.NewWarehouseSet(in.Warehouses...)

	mappings := make([]connection.FieldMapping, len(in.FieldMappings))
	for i, m := range in.FieldMappings {
		mappings[i] = connection.FieldMapping{
			Source:    m.Source,
			Target:    m.Target,
			Transform: connection.TransformKind(strings.ToUpper(strings.TrimSpace(m.Transform))),
		}
	}
	p.ReplaceFieldMappings(mappings)

	accounts := make(map[string]string, len(in.PaymentMethodAccounts))
	for method, account := range in.PaymentMethodAccounts {
		accounts[method] = account
	}
	p.PaymentMethodAccounts = accounts
	p.PriceListDelayPerItem = time.Duration(in.PriceListDelayPerItemMs) * time.Millisecond
	return nil
}

// ProfileListFilter represents query parameters for listing profiles
type ProfileListFilter struct {
	Search      string `form:"search"`
	SyncEnabled *bool  `form:"sync_enabled"`
	OrderBy     string `form:"order_by"`
	OrderDir    string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// ProfileResponse is the regular read surface of a profile. It never carries
// a secret.
type ProfileResponse struct {
	ID                uuid.UUID `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	Name              string    `json:"name"`
	ServerURL         string    `json:"server_url"`
	ConsumerKey       string    `json:"api_consumer_key"`
	HasConsumerSecret bool      `json:"has_api_consumer_secret"`
	HasWebhookSecret  bool      `json:"has_webhook_secret"`

	EnableSync                      bool `json:"enable_sync"`
	SyncSalesOrders                 bool `json:"sync_sales_orders"`
	EnableStockLevelSynchronisation bool `json:"enable_stock_level_synchronisation"`
	EnablePriceListSync             bool `json:"enable_price_list_sync"`
	EnablePaymentsSync              bool `json:"enable_payments_sync"`

	Company           string `json:"company"`
	Warehouse         string `json:"warehouse"`
	ItemGroup         string `json:"item_group"`
	UOM               string `json:"uom"`
	SalesOrderSeries  string `json:"sales_order_series"`
	DeliveryAfterDays int    `json:"delivery_after_days"`

	PriceList                    string `json:"price_list"`
	UseActualTaxType             bool   `json:"use_actual_tax_type"`
	TaxAccount                   string `json:"tax_account"`
	SalesTaxesAndChargesTemplate string `json:"sales_taxes_and_charges_template"`

	NameBy                  string                    `json:"name_by"`
	NameByLabel             string                    `json:"name_by_label"`
	Warehouses              []string                  `json:"warehouses"`
	FieldMappings           []connection.FieldMapping `json:"field_mappings"`
	PaymentMethodAccounts   map[string]string         `json:"payment_method_accounts"`
	PriceListDelayPerItemMs int64                     `json:"price_list_delay_per_item_ms"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigurationResponse is the explicit "view configuration" surface, the
// only one that reveals secrets.
type ConfigurationResponse struct {
	ProfileResponse
	ConsumerSecret string `json:"api_consumer_secret"`
	WebhookSecret  string `json:"webhook_secret"`
}

// RotateSecretResponse carries a freshly rotated webhook secret
type RotateSecretResponse struct {
	ProfileID     uuid.UUID `json:"profile_id"`
	WebhookSecret string    `json:"webhook_secret"`
	RotatedAt     time.Time `json:"rotated_at"`
}

// ValidationResponse reports every violated rule of a draft profile
type ValidationResponse struct {
	Valid  bool                          `json:"valid"`
	Errors []*connection.ValidationError `json:"errors"`
}

// StockPolicyResponse exposes the stock policy including its warehouses
type StockPolicyResponse struct {
	Enabled    bool                   `json:"enabled"`
	NameBy     connection.NamingBasis `json:"name_by"`
	Warehouses []string               `json:"warehouses"`
	ThrottleMs int64                  `json:"throttle_ms"`
}

// ItemsPolicyResponse exposes the items policy including its mapping table
type ItemsPolicyResponse struct {
	connection.ItemsPolicy
	Mapping []connection.MappingEntry `json:"mapping"`
}

// PaymentsPolicyResponse exposes the payments policy including its accounts
type PaymentsPolicyResponse struct {
	connection.PaymentsPolicy
	Accounts map[string]string `json:"accounts"`
}

// PolicyResponse is the JSON rendering of a resolved sync policy
type PolicyResponse struct {
	ProfileID      uuid.UUID                  `json:"profile_id"`
	ProfileVersion int                        `json:"profile_version"`
	SyncEnabled    bool                       `json:"sync_enabled"`
	EnabledDomains []connection.SyncDomain    `json:"enabled_domains"`
	Orders         connection.OrdersPolicy    `json:"orders"`
	Items          ItemsPolicyResponse        `json:"items"`
	Stock          StockPolicyResponse        `json:"stock"`
	PriceList      connection.PriceListPolicy `json:"price_list"`
	Payments       PaymentsPolicyResponse     `json:"payments"`
}

// ---------------------------------------------------------------------------
// Converters
// ---------------------------------------------------------------------------

// ToProfileResponse converts a profile to its secret-free response
func ToProfileResponse(p *connection.ConnectionProfile) ProfileResponse {
	accounts := make(map[string]string, len(p.PaymentMethodAccounts))
	for k, v := range p.PaymentMethodAccounts {
		accounts[k] = v
	}
	mappings := make([]connection.FieldMapping, len(p.FieldMappings))
	copy(mappings, p.FieldMappings)

	return ProfileResponse{
		ID:                              p.ID,
		TenantID:                        p.TenantID,
		Name:                            p.Name,
		ServerURL:                       p.Credentials.ServerURL,
		ConsumerKey:                     p.Credentials.ConsumerKey,
		HasConsumerSecret:               p.Credentials.ConsumerSecret != "",
		HasWebhookSecret:                p.HasWebhookSecret(),
		EnableSync:                      p.EnableSync,
		SyncSalesOrders:                 p.SyncSalesOrders,
		EnableStockLevelSynchronisation: p.EnableStockLevelSynchronisation,
		EnablePriceListSync:             p.EnablePriceListSync,
		EnablePaymentsSync:              p.EnablePaymentsSync,
		Company:                         p.Defaults.Company,
		Warehouse:                       p.Defaults.Warehouse,
		ItemGroup:                       p.Defaults.ItemGroup,
		UOM:                             p.Defaults.UOM,
		SalesOrderSeries:                p.Defaults.SalesOrderSeries,
		DeliveryAfterDays:               p.Defaults.DeliveryAfterDays,
		PriceList:                       p.PriceList,
		UseActualTaxType:                p.Accounting.UseActualTaxType,
		TaxAccount:                      p.Accounting.TaxAccount,
		SalesTaxesAndChargesTemplate:    p.Accounting.SalesTaxesAndChargesTemplate,
		NameBy:                          p.NameBy.String(),
		NameByLabel:                     p.NameBy.DisplayName(),
		Warehouses:                      p.Warehouses.Sorted(),
		FieldMappings:                   mappings,
		PaymentMethodAccounts:           accounts,
		PriceListDelayPerItemMs:         p.PriceListDelayPerItem.Milliseconds(),
		Version:                         p.Version,
		CreatedAt:                       p.CreatedAt,
		UpdatedAt:                       p.UpdatedAt,
	}
}

// ToConfigurationResponse converts a profile including its secrets
func ToConfigurationResponse(p *connection.ConnectionProfile) ConfigurationResponse {
	return ConfigurationResponse{
		ProfileResponse: ToProfileResponse(p),
		ConsumerSecret:  p.Credentials.ConsumerSecret,
		WebhookSecret:   p.RevealWebhookSecret(),
	}
}

// ToPolicyResponse renders a resolved policy
func ToPolicyResponse(r *connection.ResolvedSyncPolicy) PolicyResponse {
	return PolicyResponse{
		ProfileID:      r.ProfileID,
		ProfileVersion: r.ProfileVersion,
		SyncEnabled:    r.SyncEnabled,
		EnabledDomains: r.EnabledDomains(),
		Orders:         r.Orders,
		Items: ItemsPolicyResponse{
			ItemsPolicy: r.Items,
			Mapping:     r.Items.Mapping.Entries(),
		},
		Stock: StockPolicyResponse{
			Enabled:    r.Stock.Enabled,
			NameBy:     r.Stock.NameBy,
			Warehouses: r.Stock.Warehouses(),
			ThrottleMs: r.Stock.Throttle.Milliseconds(),
		},
		PriceList: r.PriceList,
		Payments: PaymentsPolicyResponse{
			PaymentsPolicy: r.Payments,
			Accounts:       r.Payments.Accounts(),
		},
	}
}
