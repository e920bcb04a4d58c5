package integration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// MockItemLinkRepository is a mock implementation of ItemLinkRepository
type MockItemLinkRepository struct {
	mock.Mock
}

func (m *MockItemLinkRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ItemLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) FindByItemCode(ctx context.Context, tenantID uuid.UUID, itemCode string) ([]integration.ItemLink, error) {
	args := m.Called(ctx, tenantID, itemCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) FindByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (*integration.ItemLink, error) {
	args := m.Called(ctx, tenantID, profileID, itemCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) FindByStorefrontProduct(ctx context.Context, tenantID, profileID uuid.UUID, productID string) (*integration.ItemLink, error) {
	args := m.Called(ctx, tenantID, profileID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter integration.ItemLinkFilter) ([]integration.ItemLink, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) FindSyncable(ctx context.Context, tenantID, profileID uuid.UUID) ([]integration.ItemLink, error) {
	args := m.Called(ctx, tenantID, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ItemLink), args.Error(1)
}

func (m *MockItemLinkRepository) Count(ctx context.Context, tenantID uuid.UUID, filter integration.ItemLinkFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemLinkRepository) ExistsByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (bool, error) {
	args := m.Called(ctx, tenantID, profileID, itemCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockItemLinkRepository) Save(ctx context.Context, link *integration.ItemLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockItemLinkRepository) SaveBatch(ctx context.Context, links []*integration.ItemLink) error {
	args := m.Called(ctx, links)
	return args.Error(0)
}

func (m *MockItemLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ integration.ItemLinkRepository = (*MockItemLinkRepository)(nil)

// fakeItems is an in-memory ItemRepository
type fakeItems struct {
	mu    sync.Mutex
	items map[string]*integration.Item
	saves int
}

func newFakeItems(items ...*integration.Item) *fakeItems {
	f := &fakeItems{items: make(map[string]*integration.Item)}
	for _, it := range items {
		f.items[it.ItemCode] = it
	}
	return f
}

func (f *fakeItems) FindByCode(_ context.Context, _ uuid.UUID, itemCode string) (*integration.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[itemCode]
	if !ok {
		return nil, integration.ErrItemNotFound
	}
	return it, nil
}

func (f *fakeItems) Save(_ context.Context, item *integration.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ItemCode] = item
	f.saves++
	return nil
}

var _ integration.ItemRepository = (*fakeItems)(nil)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeProfiles serves profiles from a map
type fakeProfiles map[uuid.UUID]*connection.ConnectionProfile

func (f fakeProfiles) Live(_ context.Context, id uuid.UUID) (*connection.ConnectionProfile, error) {
	p, ok := f[id]
	if !ok {
		return nil, shared.NewDomainError("NOT_FOUND", "Connection profile not found")
	}
	return p, nil
}

// fakePrices serves prices by item code
type fakePrices map[string][]integration.ItemPrice

func (f fakePrices) FindByItemAndPriceList(_ context.Context, _ uuid.UUID, itemCode, priceList string) ([]integration.ItemPrice, error) {
	out := make([]integration.ItemPrice, 0)
	for _, p := range f[itemCode] {
		if p.PriceList == priceList {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeBins serves bins by item code
type fakeBins map[string][]integration.Bin

func (f fakeBins) FindByItem(_ context.Context, _ uuid.UUID, itemCode string) ([]integration.Bin, error) {
	return f[itemCode], nil
}

// push is one recorded storefront write
type push struct {
	ServerURL string
	ProductID string
	Value     string
	At        time.Time
}

// productUpdate is one recorded product write
type productUpdate struct {
	ProductID string
	Fields    map[string]any
}

// fakeStorefront serves listed products, records pushes and fails for listed
// product ids
type fakeStorefront struct {
	mu       sync.Mutex
	clock    *fakeClock
	fail     map[string]error
	products map[string]*integration.StorefrontProduct
	prices   []push
	stock    []push
	updates  []productUpdate
}

func (f *fakeStorefront) GetProduct(_ context.Context, _ connection.Credentials, productID string) (*integration.StorefrontProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[productID]; err != nil {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, integration.ErrStorefrontProductNotFound
	}
	cp := *p
	return &cp, nil
}

// UpdateProduct applies name and sku writes and stamps the product with the
// fake clock
func (f *fakeStorefront) UpdateProduct(_ context.Context, _ connection.Credentials, productID string, fields map[string]any) (*integration.StorefrontProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, integration.ErrStorefrontProductNotFound
	}
	f.updates = append(f.updates, productUpdate{ProductID: productID, Fields: fields})
	if v, ok := fields["name"].(string); ok {
		p.Name = v
	}
	if v, ok := fields["description"].(string); ok {
		p.Description = v
	}
	now := time.Now().UTC()
	if f.clock != nil {
		now = f.clock.Now()
	}
	p.DateModifiedGMT = now.Format("2006-01-02T15:04:05")
	cp := *p
	return &cp, nil
}

func (f *fakeStorefront) UpdateStock(_ context.Context, creds connection.Credentials, productID string, qty decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[productID]; err != nil {
		return err
	}
	f.stock = append(f.stock, push{ServerURL: creds.ServerURL, ProductID: productID, Value: qty.String(), At: f.clock.Now()})
	return nil
}

func (f *fakeStorefront) UpdatePrice(_ context.Context, creds connection.Credentials, productID string, rate decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[productID]; err != nil {
		return err
	}
	f.prices = append(f.prices, push{ServerURL: creds.ServerURL, ProductID: productID, Value: rate.String(), At: f.clock.Now()})
	return nil
}

// fakeClock advances only when a wait is requested
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var testTenantID = uuid.New()

func newSyncProfile(serverURL string) *connection.ConnectionProfile {
	p, err := connection.NewConnectionProfile(testTenantID, "Store", connection.Credentials{
		ServerURL:      serverURL,
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
	})
	if err != nil {
		panic(err)
	}
	p.EnableSync = true
	p.EnableStockLevelSynchronisation = true
	p.EnablePriceListSync = true
	p.Defaults = connection.Defaults{Company: "Acme Ltd", Warehouse: "Stores - AL", ItemGroup: "Products"}
	p.PriceList = "Standard Selling"
	p.Accounting = connection.Accounting{SalesTaxesAndChargesTemplate: "VAT 20%"}
	p.NameBy = connection.NamingBasisProductSKU
	p.Warehouses = connection.NewWarehouseSet("Stores - AL")
	p.PriceListDelayPerItem = 2 * time.Second
	return p
}

func newLink(profileID uuid.UUID, itemCode, productID string) integration.ItemLink {
	l, err := integration.NewItemLink(testTenantID, profileID, itemCode, productID)
	if err != nil {
		panic(err)
	}
	return *l
}

func price(itemCode, rate string) integration.ItemPrice {
	return integration.ItemPrice{ItemCode: itemCode, PriceList: "Standard Selling", PriceListRate: decimal.RequireFromString(rate)}
}
