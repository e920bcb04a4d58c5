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

// GormItemRepository implements integration.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByCode finds an item of a tenant by item code
func (r *GormItemRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, itemCode string) (*integration.Item, error) {
	var model models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND item_code = ?", tenantID, strings.TrimSpace(itemCode)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *integration.Item) error {
	model := &models.ItemModel{}
	model.FromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

var _ integration.ItemRepository = (*GormItemRepository)(nil)
