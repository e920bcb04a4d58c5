package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence/models"
)

// GormItemLinkRepository implements integration.ItemLinkRepository using GORM
type GormItemLinkRepository struct {
	db *gorm.DB
}

// NewGormItemLinkRepository creates a new GormItemLinkRepository
func NewGormItemLinkRepository(db *gorm.DB) *GormItemLinkRepository {
	return &GormItemLinkRepository{db: db}
}

// ---------------------------------------------------------------------------
// ItemLinkReader implementation
// ---------------------------------------------------------------------------

// FindByID finds a link by its ID
func (r *GormItemLinkRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ItemLink, error) {
	var model models.ItemLinkModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrItemLinkNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByItemCode finds the links of an item across all profiles
func (r *GormItemLinkRepository) FindByItemCode(ctx context.Context, tenantID uuid.UUID, itemCode string) ([]integration.ItemLink, error) {
	var linkModels []models.ItemLinkModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_code = ?", tenantID, strings.TrimSpace(itemCode)).
		Order("created_at ASC").
		Find(&linkModels).Error; err != nil {
		return nil, err
	}
	return toItemLinks(linkModels), nil
}

// FindByProfileAndItem finds the link of an item for one profile
func (r *GormItemLinkRepository) FindByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (*integration.ItemLink, error) {
	var model models.ItemLinkModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ? AND item_code = ?", tenantID, profileID, strings.TrimSpace(itemCode)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrItemLinkNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStorefrontProduct finds a link by storefront product ID
func (r *GormItemLinkRepository) FindByStorefrontProduct(ctx context.Context, tenantID, profileID uuid.UUID, productID string) (*integration.ItemLink, error) {
	var model models.ItemLinkModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ? AND storefront_product_id = ?", tenantID, profileID, productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrItemLinkNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ---------------------------------------------------------------------------
// ItemLinkFinder implementation
// ---------------------------------------------------------------------------

// FindAll finds all links for a tenant with optional filters
func (r *GormItemLinkRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter integration.ItemLinkFilter) ([]integration.ItemLink, error) {
	var linkModels []models.ItemLinkModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ItemLinkModel{}).Where("tenant_id = ?", tenantID), filter)

	if err := query.Find(&linkModels).Error; err != nil {
		return nil, err
	}
	return toItemLinks(linkModels), nil
}

// FindSyncable finds the active, sync-enabled links of a profile ordered by item code
func (r *GormItemLinkRepository) FindSyncable(ctx context.Context, tenantID, profileID uuid.UUID) ([]integration.ItemLink, error) {
	var linkModels []models.ItemLinkModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ? AND is_active = ? AND sync_enabled = ?", tenantID, profileID, true, true).
		Order("item_code ASC").
		Find(&linkModels).Error; err != nil {
		return nil, err
	}
	return toItemLinks(linkModels), nil
}

// Count counts links matching the filter
func (r *GormItemLinkRepository) Count(ctx context.Context, tenantID uuid.UUID, filter integration.ItemLinkFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ItemLinkModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByProfileAndItem checks if a link exists
func (r *GormItemLinkRepository) ExistsByProfileAndItem(ctx context.Context, tenantID, profileID uuid.UUID, itemCode string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ItemLinkModel{}).
		Where("tenant_id = ? AND profile_id = ? AND item_code = ?", tenantID, profileID, strings.TrimSpace(itemCode)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// ItemLinkWriter implementation
// ---------------------------------------------------------------------------

// Save creates or updates a link
func (r *GormItemLinkRepository) Save(ctx context.Context, link *integration.ItemLink) error {
	model := models.ItemLinkModelFromDomain(link)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveBatch creates or updates multiple links
func (r *GormItemLinkRepository) SaveBatch(ctx context.Context, links []*integration.ItemLink) error {
	if len(links) == 0 {
		return nil
	}

	linkModels := make([]*models.ItemLinkModel, len(links))
	for i, l := range links {
		linkModels[i] = models.ItemLinkModelFromDomain(l)
	}

	return r.db.WithContext(ctx).Save(linkModels).Error
}

// Delete deletes a link
func (r *GormItemLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ItemLinkModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrItemLinkNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Filter helpers
// ---------------------------------------------------------------------------

// applyFilter applies filter options to the query
func (r *GormItemLinkRepository) applyFilter(query *gorm.DB, filter integration.ItemLinkFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	column := ValidateSortField(filter.OrderBy, ItemLinkSortFields, "item_code")
	dir := "ASC"
	if filter.OrderDir != "" {
		dir = ValidateSortOrder(filter.OrderDir)
	}
	return query.Order(column + " " + dir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormItemLinkRepository) applyFilterWithoutPagination(query *gorm.DB, filter integration.ItemLinkFilter) *gorm.DB {
	if filter.ProfileID != nil {
		query = query.Where("profile_id = ?", *filter.ProfileID)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if filter.SyncEnabled != nil {
		query = query.Where("sync_enabled = ?", *filter.SyncEnabled)
	}

	if filter.LastSyncStatus != nil && filter.LastSyncStatus.IsValid() {
		query = query.Where("last_sync_status = ?", *filter.LastSyncStatus)
	}

	if len(filter.ItemCodes) > 0 {
		query = query.Where("item_code IN ?", filter.ItemCodes)
	}

	return query
}

func toItemLinks(linkModels []models.ItemLinkModel) []integration.ItemLink {
	links := make([]integration.ItemLink, len(linkModels))
	for i, model := range linkModels {
		links[i] = *model.ToDomain()
	}
	return links
}
