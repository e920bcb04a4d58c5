package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProfileMetricsProvider implements ProfileMetricsProvider using GORM.
type GormProfileMetricsProvider struct {
	db *gorm.DB
}

// NewGormProfileMetricsProvider creates a new GormProfileMetricsProvider.
func NewGormProfileMetricsProvider(db *gorm.DB) *GormProfileMetricsProvider {
	return &GormProfileMetricsProvider{db: db}
}

// CountSyncEnabledProfiles returns the number of sync-enabled profiles of a tenant.
func (p *GormProfileMetricsProvider) CountSyncEnabledProfiles(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("connection_profiles").
		Where("tenant_id = ? AND deleted_at IS NULL AND enable_sync = ?", tenantID, true).
		Count(&count).Error

	return count, err
}

// GormTenantProvider implements TenantProvider using GORM.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns every tenant that owns at least one profile.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("connection_profiles").
		Distinct("tenant_id").
		Where("deleted_at IS NULL").
		Pluck("tenant_id", &ids).Error

	return ids, err
}
