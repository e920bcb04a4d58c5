package connection

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// MockProfileRepository is a mock implementation of connection.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*connection.ConnectionProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connection.ConnectionProfile), args.Error(1)
}

func (m *MockProfileRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*connection.ConnectionProfile, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connection.ConnectionProfile), args.Error(1)
}

func (m *MockProfileRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter connection.ProfileFilter) ([]*connection.ConnectionProfile, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connection.ConnectionProfile), args.Error(1)
}

func (m *MockProfileRepository) FindSyncEnabled(ctx context.Context, tenantID uuid.UUID) ([]*connection.ConnectionProfile, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connection.ConnectionProfile), args.Error(1)
}

func (m *MockProfileRepository) Count(ctx context.Context, tenantID uuid.UUID, filter connection.ProfileFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProfileRepository) CurrentVersion(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockProfileRepository) ExistsByServerURL(ctx context.Context, tenantID uuid.UUID, serverURL string) (bool, error) {
	args := m.Called(ctx, tenantID, serverURL)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *connection.ConnectionProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) SaveWithLock(ctx context.Context, profile *connection.ConnectionProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

var _ connection.ProfileRepository = (*MockProfileRepository)(nil)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// Test fixtures
var testTenantID = uuid.New()

func validInput() ProfileInput {
	return ProfileInput{
		Name:                            "Main store",
		ServerURL:                       "https://shop.example.com",
		ConsumerKey:                     "ck_live",
		ConsumerSecret:                  "cs_live",
		EnableSync:                      true,
		SyncSalesOrders:                 true,
		EnableStockLevelSynchronisation: true,
		EnablePriceListSync:             true,
		Company:                         "Acme Ltd",
		Warehouse:                       "Stores - AL",
		ItemGroup:                       "Products",
		PriceList:                       "Standard Selling",
		SalesTaxesAndChargesTemplate:    "VAT 20%",
		NameBy:                          "Product SKU",
		Warehouses:                      []string{"Stores - AL"},
		FieldMappings:                   []FieldMappingInput{{Source: "name", Target: "item_name", Transform: "trim"}},
		PriceListDelayPerItemMs:         250,
	}
}

// storedProfile builds a profile as the repository would return it
func storedProfile(secret string) *connection.ConnectionProfile {
	p, err := connection.NewConnectionProfile(testTenantID, "Main store", connection.Credentials{ServerURL: "https://shop.example.com"})
	if err != nil {
		panic(err)
	}
	if err := validInput().applyTo(p); err != nil {
		panic(err)
	}
	p.RestoreWebhookSecret(secret)
	p.ClearDomainEvents()
	return p
}

// storedProfileAt builds a stored profile with a fixed id and version
func storedProfileAt(id uuid.UUID, secret string, version int) *connection.ConnectionProfile {
	p := storedProfile(secret)
	p.ID = id
	p.Version = version
	return p
}
