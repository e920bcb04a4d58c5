package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/telemetry"
)

// ItemSyncAction tells what an item sync changed
type ItemSyncAction string

const (
	ItemSyncCreatedItem    ItemSyncAction = "CREATED_ITEM"
	ItemSyncUpdatedItem    ItemSyncAction = "UPDATED_ITEM"
	ItemSyncUpdatedProduct ItemSyncAction = "UPDATED_PRODUCT"
	ItemSyncUnchanged      ItemSyncAction = "UNCHANGED"
	ItemSyncSkipped        ItemSyncAction = "SKIPPED"
)

// Changed reports whether either side was written
func (a ItemSyncAction) Changed() bool {
	return a == ItemSyncCreatedItem || a == ItemSyncUpdatedItem || a == ItemSyncUpdatedProduct
}

// ItemSyncOutcome is the result of syncing one storefront product
type ItemSyncOutcome struct {
	ProfileID uuid.UUID      `json:"profile_id"`
	ProductID string         `json:"product_id"`
	ItemCode  string         `json:"item_code"`
	Action    ItemSyncAction `json:"action"`
	SyncedAt  time.Time      `json:"synced_at"`
}

// ItemSyncService keeps ERP items and storefront products in step. A product
// without an item creates one; when both exist the side modified last wins.
type ItemSyncService struct {
	profiles ProfileSource
	resolver *connection.PolicyResolver
	links    integration.ItemLinkRepository
	items    integration.ItemRepository
	client   integration.StorefrontClient
	metrics  *telemetry.SyncMetrics
	now      func() time.Time
	logger   *zap.Logger
}

// NewItemSyncService creates a new item sync service
func NewItemSyncService(
	profiles ProfileSource,
	links integration.ItemLinkRepository,
	items integration.ItemRepository,
	client integration.StorefrontClient,
	logger *zap.Logger,
) *ItemSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemSyncService{
		profiles: profiles,
		resolver: connection.NewPolicyResolver(nil),
		links:    links,
		items:    items,
		client:   client,
		now:      time.Now,
		logger:   logger,
	}
}

// SetSyncMetrics sets the sync metrics collector
func (s *ItemSyncService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// SyncProduct syncs one storefront product of a profile with its ERP item.
// The link remembers the product and item revisions it last reconciled, so a
// repeated delivery of the same revision changes nothing.
func (s *ItemSyncService) SyncProduct(ctx context.Context, tenantID, profileID uuid.UUID, productID string) (*ItemSyncOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "item_sync", "sync_product",
		telemetry.WithAttribute("profile_id", profileID.String()),
		telemetry.WithAttribute("product_id", productID))
	defer span.End()

	p, err := loadProfile(ctx, s.profiles, tenantID, profileID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	policy, err := s.resolver.Resolve(p)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !policy.Items.Enabled {
		return nil, integration.ErrSyncDomainDisabled
	}

	product, err := s.client.GetProduct(ctx, p.Credentials, productID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	link, err := s.links.FindByStorefrontProduct(ctx, tenantID, profileID, product.IDString())
	if err != nil {
		if !isItemLinkNotFound(err) {
			telemetry.RecordError(span, err)
			return nil, err
		}
		link = nil
	}

	outcome := &ItemSyncOutcome{ProfileID: profileID, ProductID: product.IDString()}
	if link != nil && !link.IsSyncable() {
		outcome.ItemCode = link.ItemCode
		outcome.Action = ItemSyncSkipped
		outcome.SyncedAt = s.now()
		return outcome, nil
	}

	itemCode := integration.ItemCodeFor(policy.Items.NameBy, *product)
	if link != nil {
		itemCode = link.ItemCode
	}
	outcome.ItemCode = itemCode

	item, err := s.items.FindByCode(ctx, tenantID, itemCode)
	if err != nil && !errors.Is(err, integration.ErrItemNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch {
	case item == nil:
		item, err = s.createItem(tenantID, itemCode, product, policy.Items)
		if err == nil {
			err = s.items.Save(ctx, item)
		}
		outcome.Action = ItemSyncCreatedItem
	case link != nil && link.IsUnchanged(integration.PushKindItem, itemSyncStamp(product, item)):
		outcome.Action = ItemSyncUnchanged
	default:
		outcome.Action, product, err = s.reconcile(ctx, p.Credentials, policy.Items, item, product)
	}
	if err != nil {
		s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainItems.String(), string(integration.SyncStatusFailed))
		if link != nil {
			link.RecordSyncFailure(integration.PushKindItem, err.Error())
			if saveErr := s.links.Save(ctx, link); saveErr != nil {
				s.logger.Error("Failed to record sync state", zap.String("item_code", itemCode), zap.Error(saveErr))
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	outcome.SyncedAt = s.now()
	if outcome.Action == ItemSyncUnchanged {
		s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainItems.String(), string(integration.SyncStatusSkipped))
		return outcome, nil
	}

	if link == nil {
		link, err = integration.NewItemLink(tenantID, profileID, itemCode, product.IDString())
		if err != nil {
			return nil, err
		}
	}
	if product.SKU != "" {
		link.StorefrontSKU = product.SKU
	}
	link.RecordSyncSuccess(integration.PushKindItem, itemSyncStamp(product, item))
	if err := s.links.Save(ctx, link); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordItemSync(ctx, tenantID, connection.SyncDomainItems.String(), string(integration.SyncStatusSuccess))
	telemetry.SetOK(span)
	s.logger.Info("Item synced",
		zap.String("profile_id", profileID.String()),
		zap.String("product_id", outcome.ProductID),
		zap.String("item_code", itemCode),
		zap.String("action", string(outcome.Action)))
	return outcome, nil
}

// itemSyncStamp identifies the pair of revisions a link last reconciled. An
// edit on either side changes it.
func itemSyncStamp(product *integration.StorefrontProduct, item *integration.Item) string {
	return fmt.Sprintf("%s|%d", product.SyncStamp(), item.UpdatedAt.UnixMilli())
}

// createItem builds a new ERP item from a product. Mapped fields are applied
// over the name, item group and UOM defaults.
func (s *ItemSyncService) createItem(tenantID uuid.UUID, itemCode string, product *integration.StorefrontProduct, policy connection.ItemsPolicy) (*integration.Item, error) {
	item, err := integration.NewItem(tenantID, itemCode, product.Name, policy.ItemGroup, policy.UOM)
	if err != nil {
		return nil, err
	}
	for field, v := range policy.Mapping.Apply(product.Record()) {
		item.SetField(field, v)
	}
	return item, nil
}

// reconcile copies the newer side onto the older one. Equal timestamps leave
// both sides alone.
func (s *ItemSyncService) reconcile(
	ctx context.Context,
	creds connection.Credentials,
	policy connection.ItemsPolicy,
	item *integration.Item,
	product *integration.StorefrontProduct,
) (ItemSyncAction, *integration.StorefrontProduct, error) {
	productModified, err := product.ModifiedAt()
	if err != nil {
		return "", product, err
	}

	switch {
	case productModified.After(item.UpdatedAt):
		item.ItemName = product.Name
		for field, v := range policy.Mapping.Apply(product.Record()) {
			item.SetField(field, v)
		}
		item.UpdatedAt = s.now()
		if err := s.items.Save(ctx, item); err != nil {
			return "", product, err
		}
		return ItemSyncUpdatedItem, product, nil

	case productModified.Before(item.UpdatedAt):
		fields := productChanges(policy.Mapping, item, product)
		if len(fields) == 0 {
			return ItemSyncUnchanged, product, nil
		}
		updated, err := s.client.UpdateProduct(ctx, creds, product.IDString(), fields)
		if err != nil {
			return "", product, err
		}
		return ItemSyncUpdatedProduct, updated, nil

	default:
		return ItemSyncUnchanged, product, nil
	}
}

// productChanges returns the product fields that differ from the item. The
// item name always maps onto the product name unless a rule says otherwise.
func productChanges(mapping connection.MappingTable, item *integration.Item, product *integration.StorefrontProduct) map[string]any {
	want := mapping.ApplyReverse(item.Record())
	if _, mapped := mapping.ForSource("name"); !mapped {
		want["name"] = item.ItemName
	}
	delete(want, "id")

	current := product.Record()
	changes := make(map[string]any, len(want))
	for field, v := range want {
		if cur, ok := current[field]; ok && fmt.Sprint(cur) == fmt.Sprint(v) {
			continue
		}
		changes[field] = v
	}
	return changes
}
