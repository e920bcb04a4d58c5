package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
	integrationapp "github.com/kossanah/woocommerce-fusion/internal/application/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/cache"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence/models"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/sealer"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/middleware"
)

var defaultTestTenant = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// fakeStorefront serves seeded products and records outbound pushes instead
// of calling a shop
type fakeStorefront struct {
	mu       sync.Mutex
	products map[string]integration.StorefrontProduct
	prices   map[string]decimal.Decimal
	stock    map[string]decimal.Decimal
	updates  map[string]map[string]any
	err      error
}

func newFakeStorefront() *fakeStorefront {
	return &fakeStorefront{
		products: map[string]integration.StorefrontProduct{},
		prices:   map[string]decimal.Decimal{},
		stock:    map[string]decimal.Decimal{},
		updates:  map[string]map[string]any{},
	}
}

func (f *fakeStorefront) addProduct(p integration.StorefrontProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.IDString()] = p
}

func (f *fakeStorefront) GetProduct(_ context.Context, _ connection.Credentials, productID string) (*integration.StorefrontProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, integration.ErrStorefrontProductNotFound
	}
	return &p, nil
}

func (f *fakeStorefront) UpdateProduct(_ context.Context, _ connection.Credentials, productID string, fields map[string]any) (*integration.StorefrontProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, integration.ErrStorefrontProductNotFound
	}
	f.updates[productID] = fields
	if v, ok := fields["name"].(string); ok {
		p.Name = v
	}
	p.DateModifiedGMT = time.Now().UTC().Format("2006-01-02T15:04:05")
	f.products[productID] = p
	return &p, nil
}

func (f *fakeStorefront) UpdateStock(_ context.Context, _ connection.Credentials, productID string, qty decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stock[productID] = qty
	return nil
}

func (f *fakeStorefront) UpdatePrice(_ context.Context, _ connection.Credentials, productID string, rate decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.prices[productID] = rate
	return nil
}

type testEnv struct {
	t          *testing.T
	db         *gorm.DB
	engine     *gin.Engine
	profiles   *connectionapp.ProfileService
	storefront *fakeStorefront
}

type testEnvOption func(*testEnvConfig)

type testEnvConfig struct {
	scheduler bool
}

func withScheduler() testEnvOption {
	return func(c *testEnvConfig) { c.scheduler = true }
}

// newTestEnv wires the real services over an in-memory sqlite database
func newTestEnv(t *testing.T, opts ...testEnvOption) *testEnv {
	t.Helper()
	var cfg testEnvConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.ConnectionProfileModel{},
		&models.FieldMappingModel{},
		&models.ItemLinkModel{},
		&models.ItemModel{},
		&models.ItemPriceModel{},
		&models.BinModel{},
	))

	key, err := sealer.GenerateKey()
	require.NoError(t, err)
	box, err := sealer.NewSecretBox(key)
	require.NoError(t, err)

	profileRepo := persistence.NewGormProfileRepository(db, box)
	linkRepo := persistence.NewGormItemLinkRepository(db)
	storefront := newFakeStorefront()

	profileSvc := connectionapp.NewProfileService(profileRepo, nil)
	deliveries := cache.NewMemoryDeliveryStore()
	t.Cleanup(func() { _ = deliveries.Close() })
	webhookSvc := connectionapp.NewWebhookService(profileSvc, deliveries, nil, nil)
	linkSvc := integrationapp.NewItemLinkService(linkRepo, profileSvc, nil)
	priceSvc := integrationapp.NewPriceListSyncService(profileSvc, linkRepo, persistence.NewGormItemPriceRepository(db), storefront, nil, nil)
	stockSvc := integrationapp.NewStockSyncService(profileSvc, linkRepo, persistence.NewGormBinRepository(db), storefront, nil)
	itemSvc := integrationapp.NewItemSyncService(profileSvc, linkRepo, persistence.NewGormItemRepository(db), storefront, nil)

	var sched *scheduler.SyncScheduler
	if cfg.scheduler {
		sched, err = scheduler.NewSyncScheduler(scheduler.DefaultSyncSchedulerConfig(),
			integrationapp.NewSyncJobExecutor(priceSvc, stockSvc, itemSvc, nil), nil)
		require.NoError(t, err)
		require.NoError(t, sched.Start(context.Background()))
		t.Cleanup(func() { _ = sched.Stop(context.Background()) })
	}

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())

	webhooks := NewWebhookHandler(webhookSvc, 1024)
	engine.POST("/webhooks/woocommerce/:id", webhooks.Receive)

	api := engine.Group("/api/v1", middleware.Tenant(middleware.TenantConfig{DefaultTenantID: defaultTestTenant}))

	profiles := NewConnectionProfileHandler(profileSvc)
	syncs := NewSyncHandler(profileSvc, priceSvc, stockSvc, itemSvc, sched)
	cp := api.Group("/connection-profiles")
	cp.POST("", profiles.Create)
	cp.GET("", profiles.List)
	cp.POST("/validate", profiles.Validate)
	cp.GET("/:id", profiles.GetByID)
	cp.PUT("/:id", profiles.Update)
	cp.DELETE("/:id", profiles.Delete)
	cp.GET("/:id/configuration", profiles.GetConfiguration)
	cp.GET("/:id/policy", profiles.GetPolicy)
	cp.POST("/:id/webhook-secret/rotate", profiles.RotateWebhookSecret)
	cp.POST("/:id/sync/price-list", syncs.SyncPriceList)
	cp.POST("/:id/sync/products/:product_id", syncs.SyncProduct)

	links := NewItemLinkHandler(linkSvc)
	il := api.Group("/item-links")
	il.POST("", links.Create)
	il.GET("", links.List)
	il.GET("/:id", links.GetByID)
	il.PUT("/:id", links.Update)
	il.DELETE("/:id", links.Delete)

	api.POST("/sync/stock-items", syncs.SyncStockItem)
	api.GET("/sync/jobs", syncs.ListJobs)

	return &testEnv{t: t, db: db, engine: engine, profiles: profileSvc, storefront: storefront}
}

// do sends a request; a non-nil body is JSON encoded unless it is raw bytes
func (e *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// data decodes the data member of a success envelope into out
func (e *testEnv) data(w *httptest.ResponseRecorder, out any) {
	e.t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(e.t, envelope.Success, w.Body.String())
	require.NoError(e.t, json.Unmarshal(envelope.Data, out))
}

// profileBody is a profile that passes every dependency rule
func profileBody() map[string]any {
	return map[string]any{
		"name":                               "Main store",
		"server_url":                         "https://shop.example.com",
		"api_consumer_key":                   "ck_live",
		"api_consumer_secret":                "cs_live",
		"enable_sync":                        true,
		"sync_sales_orders":                  true,
		"enable_stock_level_synchronisation": true,
		"enable_price_list_sync":             true,
		"company":                            "Acme Ltd",
		"warehouse":                          "Stores - AL",
		"item_group":                         "Products",
		"price_list":                         "Standard Selling",
		"sales_taxes_and_charges_template":   "VAT 20%",
		"name_by":                            "Product SKU",
		"warehouses":                         []string{"Stores - AL"},
		"field_mappings":                     []map[string]string{{"source": "name", "target": "item_name", "transform": "trim"}},
		"price_list_delay_per_item_ms":       0,
	}
}

// createProfile saves profileBody with overrides and returns its ID
func (e *testEnv) createProfile(overrides map[string]any) uuid.UUID {
	e.t.Helper()
	body := profileBody()
	for k, v := range overrides {
		body[k] = v
	}
	w := e.do(http.MethodPost, "/api/v1/connection-profiles", body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var created connectionapp.ProfileResponse
	e.data(w, &created)
	return created.ID
}

// webhookSecret reads the secret through the configuration view
func (e *testEnv) webhookSecret(profileID uuid.UUID) string {
	e.t.Helper()
	w := e.do(http.MethodGet, "/api/v1/connection-profiles/"+profileID.String()+"/configuration", nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())

	var config connectionapp.ConfigurationResponse
	e.data(w, &config)
	require.NotEmpty(e.t, config.WebhookSecret)
	return config.WebhookSecret
}
