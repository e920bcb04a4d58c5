package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
)

// ConnectionProfileModel is the persistence model for the ConnectionProfile aggregate.
// Consumer and webhook secrets are stored sealed; the repository seals and
// opens them around ToDomain/FromDomain.
type ConnectionProfileModel struct {
	TenantAggregateModel
	Name                 string              `gorm:"type:varchar(140);not null"`
	ServerURL            string              `gorm:"type:varchar(255);not null;index:idx_connection_profile_server_url"`
	ConsumerKey          string              `gorm:"type:varchar(255)"`
	ConsumerSecretSealed string              `gorm:"type:text;column:consumer_secret"`
	WebhookSecretSealed  string              `gorm:"type:text;column:webhook_secret"`
	EnableSync           bool                `gorm:"not null;default:false;index:idx_connection_profile_enable_sync"`
	SyncSalesOrders      bool                `gorm:"not null;default:false"`
	EnableStockSync      bool                `gorm:"not null;default:false;column:enable_stock_level_synchronisation"`
	EnablePriceListSync  bool                `gorm:"not null;default:false"`
	EnablePaymentsSync   bool                `gorm:"not null;default:false"`
	Company              string              `gorm:"type:varchar(140)"`
	Warehouse            string              `gorm:"type:varchar(140)"`
	ItemGroup            string              `gorm:"type:varchar(140)"`
	UOM                  string              `gorm:"type:varchar(40);column:uom"`
	SalesOrderSeries     string              `gorm:"type:varchar(40)"`
	DeliveryAfterDays    int                 `gorm:"not null;default:0"`
	PriceList            string              `gorm:"type:varchar(140)"`
	UseActualTaxType     bool                `gorm:"not null;default:false"`
	TaxAccount           string              `gorm:"type:varchar(140)"`
	TaxesTemplate        string              `gorm:"type:varchar(140);column:sales_taxes_and_charges_template"`
	NameBy               string              `gorm:"type:varchar(20)"`
	WarehousesJSON       string              `gorm:"type:jsonb;column:warehouses"`
	PaymentAccountsJSON  string              `gorm:"type:jsonb;column:payment_method_accounts"`
	PriceListDelayMillis int64               `gorm:"not null;default:0;column:price_list_delay_ms"`
	FieldMappings        []FieldMappingModel `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	DeletedAt            gorm.DeletedAt      `gorm:"index"`
}

// TableName returns the table name for GORM
func (ConnectionProfileModel) TableName() string {
	return "connection_profiles"
}

// FieldMappingModel is one row of a profile's ordered field mapping list
type FieldMappingModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;index:idx_field_mapping_profile_position,priority:1"`
	Position  int       `gorm:"not null;index:idx_field_mapping_profile_position,priority:2"`
	Source    string    `gorm:"type:varchar(140);not null;column:source_field"`
	Target    string    `gorm:"type:varchar(140);not null;column:target_field"`
	Transform string    `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (FieldMappingModel) TableName() string {
	return "connection_profile_field_mappings"
}

// ToDomain converts the model to a domain profile. Secrets are passed in
// already opened.
func (m *ConnectionProfileModel) ToDomain(consumerSecret, webhookSecret string) *connection.ConnectionProfile {
	p := &connection.ConnectionProfile{
		Name:                            m.Name,
		EnableSync:                      m.EnableSync,
		SyncSalesOrders:                 m.SyncSalesOrders,
		EnableStockLevelSynchronisation: m.EnableStockSync,
		EnablePriceListSync:             m.EnablePriceListSync,
		EnablePaymentsSync:              m.EnablePaymentsSync,
		PriceList:                       m.PriceList,
		NameBy:                          connection.NamingBasis(m.NameBy),
		PaymentMethodAccounts:           make(map[string]string),
		FieldMappings:                   make([]connection.FieldMapping, len(m.FieldMappings)),
		PriceListDelayPerItem:           time.Duration(m.PriceListDelayMillis) * time.Millisecond,
	}
	p.Credentials = connection.Credentials{
		ServerURL:      m.ServerURL,
		ConsumerKey:    m.ConsumerKey,
		ConsumerSecret: consumerSecret,
	}
	p.Defaults = connection.Defaults{
		Company:           m.Company,
		Warehouse:         m.Warehouse,
		ItemGroup:         m.ItemGroup,
		UOM:               m.UOM,
		SalesOrderSeries:  m.SalesOrderSeries,
		DeliveryAfterDays: m.DeliveryAfterDays,
	}
	p.Accounting = connection.Accounting{
		UseActualTaxType:             m.UseActualTaxType,
		TaxAccount:                   m.TaxAccount,
		SalesTaxesAndChargesTemplate: m.TaxesTemplate,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)

	if m.WarehousesJSON != "" {
		var ws connection.WarehouseSet
		if err := json.Unmarshal([]byte(m.WarehousesJSON), &ws); err == nil {
			p.Warehouses = ws
		}
	}
	if m.PaymentAccountsJSON != "" {
		_ = json.Unmarshal([]byte(m.PaymentAccountsJSON), &p.PaymentMethodAccounts)
	}
	for i, fm := range m.FieldMappings {
		p.FieldMappings[i] = connection.FieldMapping{
			Source:    fm.Source,
			Target:    fm.Target,
			Transform: connection.TransformKind(fm.Transform),
		}
	}
	p.RestoreWebhookSecret(webhookSecret)
	return p
}

// FromDomain populates the model from a domain profile. Secret columns are
// left for the repository to fill with sealed values.
func (m *ConnectionProfileModel) FromDomain(p *connection.ConnectionProfile) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Name = p.Name
	m.ServerURL = p.Credentials.ServerURL
	m.ConsumerKey = p.Credentials.ConsumerKey
	m.EnableSync = p.EnableSync
	m.SyncSalesOrders = p.SyncSalesOrders
	m.EnableStockSync = p.EnableStockLevelSynchronisation
	m.EnablePriceListSync = p.EnablePriceListSync
	m.EnablePaymentsSync = p.EnablePaymentsSync
	m.Company = p.Defaults.Company
	m.Warehouse = p.Defaults.Warehouse
	m.ItemGroup = p.Defaults.ItemGroup
	m.UOM = p.Defaults.UOM
	m.SalesOrderSeries = p.Defaults.SalesOrderSeries
	m.DeliveryAfterDays = p.Defaults.DeliveryAfterDays
	m.PriceList = p.PriceList
	m.UseActualTaxType = p.Accounting.UseActualTaxType
	m.TaxAccount = p.Accounting.TaxAccount
	m.TaxesTemplate = p.Accounting.SalesTaxesAndChargesTemplate
	m.NameBy = p.NameBy.String()
	m.PriceListDelayMillis = p.PriceListDelayPerItem.Milliseconds()

	if jsonBytes, err := json.Marshal(p.Warehouses); err == nil {
		m.WarehousesJSON = string(jsonBytes)
	} else {
		m.WarehousesJSON = "[]"
	}
	if len(p.PaymentMethodAccounts) > 0 {
		if jsonBytes, err := json.Marshal(p.PaymentMethodAccounts); err == nil {
			m.PaymentAccountsJSON = string(jsonBytes)
		}
	} else {
		m.PaymentAccountsJSON = "{}"
	}

	m.FieldMappings = make([]FieldMappingModel, len(p.FieldMappings))
	for i, fm := range p.FieldMappings {
		m.FieldMappings[i] = FieldMappingModel{
			ID:        uuid.New(),
			ProfileID: p.ID,
			Position:  i,
			Source:    fm.Source,
			Target:    fm.Target,
			Transform: string(fm.Transform),
		}
	}
}

// ConnectionProfileModelFromDomain creates a new persistence model from a domain profile.
func ConnectionProfileModelFromDomain(p *connection.ConnectionProfile) *ConnectionProfileModel {
	m := &ConnectionProfileModel{}
	m.FromDomain(p)
	return m
}
