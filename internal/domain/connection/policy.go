package connection

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Fallbacks applied when a profile leaves a default empty
const (
	DefaultSalesOrderSeries  = "SO-WOO-"
	DefaultUOM               = "Nos"
	DefaultDeliveryAfterDays = 7
)

// SyncDomain identifies one synchronization domain
type SyncDomain string

const (
	SyncDomainOrders    SyncDomain = "ORDERS"
	SyncDomainItems     SyncDomain = "ITEMS"
	SyncDomainStock     SyncDomain = "STOCK"
	SyncDomainPriceList SyncDomain = "PRICE_LIST"
	SyncDomainPayments  SyncDomain = "PAYMENTS"
)

// AllSyncDomains returns every domain in resolution order
func AllSyncDomains() []SyncDomain {
	return []SyncDomain{SyncDomainOrders, SyncDomainItems, SyncDomainStock, SyncDomainPriceList, SyncDomainPayments}
}

// IsValid returns true if the domain is known
func (d SyncDomain) IsValid() bool {
	switch d {
	case SyncDomainOrders, SyncDomainItems, SyncDomainStock, SyncDomainPriceList, SyncDomainPayments:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncDomain
func (d SyncDomain) String() string {
	return string(d)
}

// TaxMode tells which tax counterpart a sales order uses
type TaxMode string

const (
	TaxModeActual   TaxMode = "ACTUAL"
	TaxModeTemplate TaxMode = "TEMPLATE"
)

// TaxPolicy carries exactly one of Account or Template, selected by Mode
type TaxPolicy struct {
	Mode     TaxMode `json:"mode"`
	Account  string  `json:"account,omitempty"`
	Template string  `json:"template,omitempty"`
}

// OrdersPolicy governs sales order import
type OrdersPolicy struct {
	Enabled           bool          `json:"enabled"`
	Company           string        `json:"company"`
	Warehouse         string        `json:"warehouse"`
	SalesOrderSeries  string        `json:"sales_order_series"`
	DeliveryAfterDays int           `json:"delivery_after_days"`
	Tax               TaxPolicy     `json:"tax"`
	Throttle          time.Duration `json:"throttle"`
}

// DeliveryDate returns the expected delivery date for an order placed at t
func (o OrdersPolicy) DeliveryDate(t time.Time) time.Time {
	return t.AddDate(0, 0, o.DeliveryAfterDays)
}

// ItemsPolicy governs item master synchronization
type ItemsPolicy struct {
	Enabled   bool          `json:"enabled"`
	ItemGroup string        `json:"item_group"`
	UOM       string        `json:"uom"`
	NameBy    NamingBasis   `json:"name_by"`
	Mapping   MappingTable  `json:"-"`
	Throttle  time.Duration `json:"throttle"`
}

// StockPolicy governs stock level pushes to the storefront
type StockPolicy struct {
	Enabled    bool          `json:"enabled"`
	NameBy     NamingBasis   `json:"name_by"`
	Throttle   time.Duration `json:"throttle"`
	warehouses []string
}

// Warehouses returns a sorted copy of the considered warehouses
func (s StockPolicy) Warehouses() []string {
	out := make([]string, len(s.warehouses))
	copy(out, s.warehouses)
	return out
}

// Includes reports whether stock in the warehouse counts towards the total
func (s StockPolicy) Includes(warehouse string) bool {
	i := sort.SearchStrings(s.warehouses, warehouse)
	return i < len(s.warehouses) && s.warehouses[i] == warehouse
}

// PriceListPolicy governs price pushes to the storefront
type PriceListPolicy struct {
	Enabled   bool          `json:"enabled"`
	PriceList string        `json:"price_list"`
	Throttle  time.Duration `json:"throttle"`
}

// PaymentsPolicy governs payment entry creation
type PaymentsPolicy struct {
	Enabled  bool          `json:"enabled"`
	Company  string        `json:"company"`
	Throttle time.Duration `json:"throttle"`
	accounts map[string]string
}

// AccountFor returns the ERP account mapped to a storefront payment method
func (p PaymentsPolicy) AccountFor(method string) (string, bool) {
	a, ok := p.accounts[method]
	return a, ok
}

// Accounts returns a copy of the payment method to account map
func (p PaymentsPolicy) Accounts() map[string]string {
	out := make(map[string]string, len(p.accounts))
	for k, v := range p.accounts {
		out[k] = v
	}
	return out
}

// ResolvedSyncPolicy is the immutable, fully-defaulted decision set handed to
// sync workers. Slices and maps are only reachable through copying accessors.
type ResolvedSyncPolicy struct {
	ProfileID      uuid.UUID       `json:"profile_id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	ProfileVersion int             `json:"profile_version"`
	SyncEnabled    bool            `json:"sync_enabled"`
	Orders         OrdersPolicy    `json:"orders"`
	Items          ItemsPolicy     `json:"items"`
	Stock          StockPolicy     `json:"stock"`
	PriceList      PriceListPolicy `json:"price_list"`
	Payments       PaymentsPolicy  `json:"payments"`
}

// IsEnabled reports whether the given domain is active
func (r *ResolvedSyncPolicy) IsEnabled(d SyncDomain) bool {
	switch d {
	case SyncDomainOrders:
		return r.Orders.Enabled
	case SyncDomainItems:
		return r.Items.Enabled
	case SyncDomainStock:
		return r.Stock.Enabled
	case SyncDomainPriceList:
		return r.PriceList.Enabled
	case SyncDomainPayments:
		return r.Payments.Enabled
	default:
		return false
	}
}

// EnabledDomains lists the active domains in resolution order
func (r *ResolvedSyncPolicy) EnabledDomains() []SyncDomain {
	out := make([]SyncDomain, 0, 5)
	for _, d := range AllSyncDomains() {
		if r.IsEnabled(d) {
			out = append(out, d)
		}
	}
	return out
}
