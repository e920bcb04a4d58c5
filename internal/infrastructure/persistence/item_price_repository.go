package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence/models"
)

// GormItemPriceRepository reads ERP price list rates using GORM
type GormItemPriceRepository struct {
	db *gorm.DB
}

// NewGormItemPriceRepository creates a new GormItemPriceRepository
func NewGormItemPriceRepository(db *gorm.DB) *GormItemPriceRepository {
	return &GormItemPriceRepository{db: db}
}

// FindByItemAndPriceList returns the prices of an item in a price list, newest
// valid_from first. Rows without valid_from sort last.
func (r *GormItemPriceRepository) FindByItemAndPriceList(ctx context.Context, tenantID uuid.UUID, itemCode, priceList string) ([]integration.ItemPrice, error) {
	var priceModels []models.ItemPriceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_code = ? AND price_list = ?", tenantID, itemCode, priceList).
		Order("CASE WHEN valid_from IS NULL THEN 1 ELSE 0 END, valid_from DESC").
		Find(&priceModels).Error; err != nil {
		return nil, err
	}

	prices := make([]integration.ItemPrice, len(priceModels))
	for i := range priceModels {
		prices[i] = priceModels[i].ToDomain()
	}
	return prices, nil
}

// GormBinRepository reads ERP stock bins using GORM
type GormBinRepository struct {
	db *gorm.DB
}

// NewGormBinRepository creates a new GormBinRepository
func NewGormBinRepository(db *gorm.DB) *GormBinRepository {
	return &GormBinRepository{db: db}
}

// FindByItem returns every bin of an item ordered by warehouse
func (r *GormBinRepository) FindByItem(ctx context.Context, tenantID uuid.UUID, itemCode string) ([]integration.Bin, error) {
	var binModels []models.BinModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_code = ?", tenantID, itemCode).
		Order("warehouse ASC").
		Find(&binModels).Error; err != nil {
		return nil, err
	}

	bins := make([]integration.Bin, len(binModels))
	for i := range binModels {
		bins[i] = binModels[i].ToDomain()
	}
	return bins, nil
}
