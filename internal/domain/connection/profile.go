package connection

import (
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// Credentials identify the storefront REST API
type Credentials struct {
	ServerURL      string
	ConsumerKey    string
	ConsumerSecret string
}

// Defaults are applied to documents created from storefront data
type Defaults struct {
	Company           string
	Warehouse         string
	ItemGroup         string
	UOM               string
	SalesOrderSeries  string
	DeliveryAfterDays int
}

// Accounting holds the tax settings used for sales orders.
// Exactly one of TaxAccount and SalesTaxesAndChargesTemplate is relevant,
// chosen by UseActualTaxType.
type Accounting struct {
	UseActualTaxType             bool
	TaxAccount                   string
	SalesTaxesAndChargesTemplate string
}

// ConnectionProfile is the aggregate root for one storefront connection.
// Profiles must be handled by pointer: the webhook secret slot is an atomic value.
type ConnectionProfile struct {
	shared.TenantAggregateRoot
	Name        string
	Credentials Credentials

	EnableSync                      bool
	SyncSalesOrders                 bool
	EnableStockLevelSynchronisation bool
	EnablePriceListSync             bool
	EnablePaymentsSync              bool

	Defaults              Defaults
	PriceList             string
	Accounting            Accounting
	NameBy                NamingBasis
	Warehouses            WarehouseSet
	FieldMappings         []FieldMapping
	PaymentMethodAccounts map[string]string
	PriceListDelayPerItem time.Duration

	webhookSecret secretSlot
}

// secretSlot holds the current webhook secret. Verification loads it without
// locking; rotation replaces it with a single atomic swap.
type secretSlot struct {
	value atomic.Pointer[string]
}

func (s *secretSlot) load() (string, bool) {
	p := s.value.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// NewConnectionProfile creates a new profile with sync disabled
func NewConnectionProfile(tenantID uuid.UUID, name string, creds Credentials) (*ConnectionProfile, error) {
	if tenantID == uuid.Nil {
		return nil, ErrProfileInvalidTenantID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProfileInvalidName
	}
	creds.ServerURL = NormalizeServerURL(creds.ServerURL)
	if !isHTTPURL(creds.ServerURL) {
		return nil, ErrProfileInvalidServerURL
	}

	p := &ConnectionProfile{
		TenantAggregateRoot:   shared.NewTenantAggregateRoot(tenantID),
		Name:                  name,
		Credentials:           creds,
		PaymentMethodAccounts: make(map[string]string),
		FieldMappings:         make([]FieldMapping, 0),
	}
	p.AddDomainEvent(NewProfileCreatedEvent(p))
	return p, nil
}

// Rename changes the display name
func (p *ConnectionProfile) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrProfileInvalidName
	}
	p.Name = name
	return nil
}

// SetCredentials replaces the storefront credentials. An empty consumer
// secret keeps the stored one so editors never have to re-enter it.
func (p *ConnectionProfile) SetCredentials(creds Credentials) error {
	creds.ServerURL = NormalizeServerURL(creds.ServerURL)
	if !isHTTPURL(creds.ServerURL) {
		return ErrProfileInvalidServerURL
	}
	if creds.ConsumerSecret == "" {
		creds.ConsumerSecret = p.Credentials.ConsumerSecret
	}
	p.Credentials = creds
	return nil
}

// ReplaceFieldMappings swaps the ordered mapping list
func (p *ConnectionProfile) ReplaceFieldMappings(mappings []FieldMapping) {
	out := make([]FieldMapping, len(mappings))
	for i, m := range mappings {
		out[i] = FieldMapping{
			Source:    ParseFieldRef(m.Source),
			Target:    ParseFieldRef(m.Target),
			Transform: m.Transform,
		}
	}
	p.FieldMappings = out
}

// Touch marks the profile as edited and bumps the version
func (p *ConnectionProfile) Touch() {
	p.IncrementVersion()
	p.AddDomainEvent(NewProfileUpdatedEvent(p))
}

// HasWebhookSecret reports whether a secret has been issued
func (p *ConnectionProfile) HasWebhookSecret() bool {
	_, ok := p.webhookSecret.load()
	return ok
}

// RevealWebhookSecret returns the current secret. It backs the explicit
// "view configuration" action and the storage adapter only.
func (p *ConnectionProfile) RevealWebhookSecret() string {
	s, _ := p.webhookSecret.load()
	return s
}

// RestoreWebhookSecret rehydrates a previously issued secret from storage.
// An empty value leaves the profile without a secret.
func (p *ConnectionProfile) RestoreWebhookSecret(secret string) {
	if secret == "" {
		p.webhookSecret.value.Store(nil)
		return
	}
	p.webhookSecret.value.Store(&secret)
}

// NormalizeServerURL trims whitespace and trailing slashes
func NormalizeServerURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
