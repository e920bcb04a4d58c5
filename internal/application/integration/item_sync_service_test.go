package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/scheduler"
)

var itemSyncNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type itemFixture struct {
	profile    *connection.ConnectionProfile
	links      *MockItemLinkRepository
	items      *fakeItems
	storefront *fakeStorefront
	svc        *ItemSyncService
}

func newItemFixture(items ...*integration.Item) *itemFixture {
	f := &itemFixture{
		profile:    newSyncProfile("https://shop.example.com"),
		links:      new(MockItemLinkRepository),
		items:      newFakeItems(items...),
		storefront: &fakeStorefront{clock: newFakeClock(), products: map[string]*integration.StorefrontProduct{}},
	}
	f.profile.ReplaceFieldMappings([]connection.FieldMapping{
		{Source: "description", Target: "description"},
		{Source: "short_description", Target: "web_summary", Transform: connection.TransformTrim},
	})
	f.svc = NewItemSyncService(fakeProfiles{f.profile.ID: f.profile}, f.links, f.items, f.storefront, nil)
	f.svc.now = func() time.Time { return itemSyncNow }
	return f
}

func (f *itemFixture) addProduct(p integration.StorefrontProduct) {
	f.storefront.products[p.IDString()] = &p
}

func (f *itemFixture) unlinked(productID string) {
	f.links.On("FindByStorefrontProduct", mock.Anything, testTenantID, f.profile.ID, productID).
		Return(nil, integration.ErrItemLinkNotFound)
}

func (f *itemFixture) linked(link *integration.ItemLink) {
	f.links.On("FindByStorefrontProduct", mock.Anything, testTenantID, f.profile.ID, link.StorefrontProductID).
		Return(link, nil)
}

func existingItem(code, name string, updatedAt time.Time) *integration.Item {
	item, err := integration.NewItem(testTenantID, code, name, "Products", "Nos")
	if err != nil {
		panic(err)
	}
	item.UpdatedAt = updatedAt
	return item
}

func mug() integration.StorefrontProduct {
	return integration.StorefrontProduct{
		ID:               42,
		SKU:              "MUG-01",
		Name:             "Mug",
		Description:      "Stoneware",
		ShortDescription: "  Big mug ",
		DateModifiedGMT:  "2026-03-01T08:00:00",
	}
}

func TestItemSyncService_SyncProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("unlinked product creates the item and the link", func(t *testing.T) {
		f := newItemFixture()
		f.addProduct(mug())
		f.unlinked("42")
		var saved *integration.ItemLink
		f.links.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			saved = args.Get(1).(*integration.ItemLink)
		}).Return(nil)

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncCreatedItem, outcome.Action)
		assert.Equal(t, "MUG-01", outcome.ItemCode)
		assert.Equal(t, itemSyncNow, outcome.SyncedAt)

		item := f.items.items["MUG-01"]
		require.NotNil(t, item)
		assert.Equal(t, "Mug", item.ItemName)
		assert.Equal(t, "Products", item.ItemGroup)
		assert.Equal(t, connection.DefaultUOM, item.StockUOM)
		assert.Equal(t, "Stoneware", item.Description)
		assert.Equal(t, "Big mug", item.Fields["web_summary"])

		require.NotNil(t, saved)
		assert.Equal(t, "MUG-01", saved.ItemCode)
		assert.Equal(t, "42", saved.StorefrontProductID)
		assert.Equal(t, "MUG-01", saved.StorefrontSKU)
		assert.NotEmpty(t, saved.LastItemHash)
		assert.Empty(t, saved.LastPriceHash)
		assert.Empty(t, saved.LastStockHash)
	})

	t.Run("product without SKU is named by its id", func(t *testing.T) {
		f := newItemFixture()
		p := mug()
		p.SKU = ""
		f.addProduct(p)
		f.unlinked("42")
		f.links.On("Save", mock.Anything, mock.Anything).Return(nil)

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, "42", outcome.ItemCode)
		assert.Contains(t, f.items.items, "42")
	})

	t.Run("newer product updates the item", func(t *testing.T) {
		item := existingItem("MUG-01", "Mug", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		f := newItemFixture(item)
		p := mug()
		p.Name = "Mug v2"
		f.addProduct(p)
		link := newLink(f.profile.ID, "MUG-01", "42")
		f.linked(&link)
		f.links.On("Save", mock.Anything, &link).Return(nil).Once()

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUpdatedItem, outcome.Action)
		assert.Equal(t, "Mug v2", item.ItemName)
		assert.Equal(t, "Stoneware", item.Description)
		assert.Equal(t, itemSyncNow, item.UpdatedAt)
		assert.Empty(t, f.storefront.updates)

		again, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUnchanged, again.Action)
		assert.Equal(t, 1, f.items.saves)
		f.links.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("newer item is pushed to the product", func(t *testing.T) {
		item := existingItem("MUG-01", "Mug Deluxe", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
		item.Description = "Glazed"
		f := newItemFixture(item)
		f.addProduct(mug())
		link := newLink(f.profile.ID, "MUG-01", "42")
		f.linked(&link)
		f.links.On("Save", mock.Anything, &link).Return(nil).Once()

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUpdatedProduct, outcome.Action)
		require.Len(t, f.storefront.updates, 1)
		assert.Equal(t, map[string]any{"name": "Mug Deluxe", "description": "Glazed"}, f.storefront.updates[0].Fields)
		assert.Equal(t, 0, f.items.saves)

		// The link remembers the revision the push produced.
		again, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUnchanged, again.Action)
		assert.Len(t, f.storefront.updates, 1)
	})

	t.Run("edit on the item side after a sync is not masked", func(t *testing.T) {
		item := existingItem("MUG-01", "Mug", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
		f := newItemFixture(item)
		f.addProduct(mug())
		link := newLink(f.profile.ID, "MUG-01", "42")
		f.linked(&link)
		f.links.On("Save", mock.Anything, &link).Return(nil)

		_, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)

		item.ItemName = "Mug Classic"
		item.UpdatedAt = itemSyncNow.Add(time.Hour)

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUpdatedProduct, outcome.Action)
		require.Len(t, f.storefront.updates, 1)
		assert.Equal(t, "Mug Classic", f.storefront.updates[0].Fields["name"])
	})

	t.Run("same timestamps leave both sides alone", func(t *testing.T) {
		item := existingItem("MUG-01", "Mug", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
		f := newItemFixture(item)
		f.addProduct(mug())
		link := newLink(f.profile.ID, "MUG-01", "42")
		f.linked(&link)

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncUnchanged, outcome.Action)
		f.links.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("inactive link is skipped", func(t *testing.T) {
		f := newItemFixture()
		f.addProduct(mug())
		link := newLink(f.profile.ID, "MUG-01", "42")
		link.Deactivate()
		f.linked(&link)

		outcome, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		require.NoError(t, err)
		assert.Equal(t, ItemSyncSkipped, outcome.Action)
		assert.Empty(t, f.items.items)
	})

	t.Run("sync switched off", func(t *testing.T) {
		f := newItemFixture()
		f.profile.EnableSync = false

		_, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		assert.ErrorIs(t, err, integration.ErrSyncDomainDisabled)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newItemFixture()

		_, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		assert.ErrorIs(t, err, integration.ErrStorefrontProductNotFound)
	})

	t.Run("failed reconcile is recorded on the link", func(t *testing.T) {
		item := existingItem("MUG-01", "Mug Deluxe", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC))
		f := newItemFixture(item)
		p := mug()
		p.DateModifiedGMT = "not a date"
		f.addProduct(p)
		link := newLink(f.profile.ID, "MUG-01", "42")
		link.RecordSyncSuccess(integration.PushKindPrice, "regular_price=5")
		f.linked(&link)
		f.links.On("Save", mock.Anything, &link).Return(nil).Once()

		_, err := f.svc.SyncProduct(ctx, testTenantID, f.profile.ID, "42")
		assert.ErrorIs(t, err, integration.ErrStorefrontInvalidResponse)
		assert.Equal(t, integration.SyncStatusFailed, link.LastSyncStatus)
		assert.NotEmpty(t, link.LastPriceHash)
	})
}

func TestSyncJobExecutor_ProductJob(t *testing.T) {
	ctx := context.Background()

	t.Run("created item counts as success", func(t *testing.T) {
		f := newItemFixture()
		f.addProduct(mug())
		f.unlinked("42")
		f.links.On("Save", mock.Anything, mock.Anything).Return(nil)

		job := scheduler.NewProductSyncJob(testTenantID, f.profile.ID, "42", 3)
		job.Start()
		require.NoError(t, NewSyncJobExecutor(nil, nil, f.svc, nil).Execute(ctx, job))
		assert.Equal(t, scheduler.SyncJobStatusSuccess, job.Status)
		assert.Equal(t, 1, job.SuccessCount)
	})

	t.Run("deleted product is permanent", func(t *testing.T) {
		f := newItemFixture()

		err := NewSyncJobExecutor(nil, nil, f.svc, nil).Execute(ctx, scheduler.NewProductSyncJob(testTenantID, f.profile.ID, "42", 3))
		assert.ErrorIs(t, err, scheduler.ErrSyncJobPermanent)
	})
}
