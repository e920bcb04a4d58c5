package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/persistence/models"
)

// SecretSealer encrypts credentials at rest
type SecretSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// GormProfileRepository implements connection.ProfileRepository using GORM
type GormProfileRepository struct {
	db     *gorm.DB
	sealer SecretSealer
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB, sealer SecretSealer) *GormProfileRepository {
	return &GormProfileRepository{db: db, sealer: sealer}
}

// ---------------------------------------------------------------------------
// ProfileReader implementation
// ---------------------------------------------------------------------------

// FindByID finds a profile by its ID
func (r *GormProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*connection.ConnectionProfile, error) {
	var model models.ConnectionProfileModel
	if err := r.preloaded(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connection.ErrProfileNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindByIDForTenant finds a profile by ID within a specific tenant
func (r *GormProfileRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*connection.ConnectionProfile, error) {
	var model models.ConnectionProfileModel
	if err := r.preloaded(ctx).First(&model, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, connection.ErrProfileNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindAll lists the profiles of a tenant
func (r *GormProfileRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter connection.ProfileFilter) ([]*connection.ConnectionProfile, error) {
	var profileModels []models.ConnectionProfileModel
	query := r.applyFilter(r.preloaded(ctx).Where("tenant_id = ?", tenantID), filter)
	if err := query.Find(&profileModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(profileModels)
}

// FindSyncEnabled lists the profiles of a tenant with sync switched on
func (r *GormProfileRepository) FindSyncEnabled(ctx context.Context, tenantID uuid.UUID) ([]*connection.ConnectionProfile, error) {
	var profileModels []models.ConnectionProfileModel
	if err := r.preloaded(ctx).
		Where("tenant_id = ? AND enable_sync = ?", tenantID, true).
		Order("name ASC").
		Find(&profileModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainList(profileModels)
}

// Count counts profiles matching the filter
func (r *GormProfileRepository) Count(ctx context.Context, tenantID uuid.UUID, filter connection.ProfileFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ConnectionProfileModel{}).Where("tenant_id = ?", tenantID)
	query = r.applyFilterWithoutPagination(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CurrentVersion returns the stored version of a live profile
func (r *GormProfileRepository) CurrentVersion(ctx context.Context, id uuid.UUID) (int, error) {
	var versions []int
	if err := r.db.WithContext(ctx).
		Model(&models.ConnectionProfileModel{}).
		Where("id = ?", id).
		Limit(1).
		Pluck("version", &versions).Error; err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, connection.ErrProfileNotFound
	}
	return versions[0], nil
}

// ExistsByServerURL checks whether a storefront is already connected
func (r *GormProfileRepository) ExistsByServerURL(ctx context.Context, tenantID uuid.UUID, serverURL string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ConnectionProfileModel{}).
		Where("tenant_id = ? AND server_url = ?", tenantID, connection.NormalizeServerURL(serverURL)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ---------------------------------------------------------------------------
// ProfileWriter implementation
// ---------------------------------------------------------------------------

// Save creates or updates a profile. The field mapping rows are replaced as a
// whole so their order always matches the aggregate.
func (r *GormProfileRepository) Save(ctx context.Context, profile *connection.ConnectionProfile) error {
	model, err := r.fromDomain(profile)
	if err != nil {
		return err
	}
	mappings := model.FieldMappings
	model.FieldMappings = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return replaceFieldMappings(tx, model.ID, mappings)
	})
}

// SaveWithLock updates an existing profile if the stored version is the one
// the edit started from (profile.Version-1). Otherwise it fails with
// shared.ErrConcurrencyConflict and nothing is written.
func (r *GormProfileRepository) SaveWithLock(ctx context.Context, profile *connection.ConnectionProfile) error {
	model, err := r.fromDomain(profile)
	if err != nil {
		return err
	}
	mappings := model.FieldMappings
	model.FieldMappings = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ConnectionProfileModel{}).
			Where("id = ? AND tenant_id = ? AND version = ?", profile.ID, profile.TenantID, profile.Version-1).
			Select("*").
			Omit(clause.Associations, "id", "tenant_id", "created_at", "deleted_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return replaceFieldMappings(tx, model.ID, mappings)
	})
}

// Delete removes the whole profile of a tenant
func (r *GormProfileRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.ConnectionProfileModel{}, "id = ? AND tenant_id = ?", id, tenantID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return connection.ErrProfileNotFound
		}
		if err := tx.Where("profile_id = ?", id).Delete(&models.FieldMappingModel{}).Error; err != nil {
			return err
		}
		// Links are hard deleted with the profile; the soft-deleted row never
		// triggers the ON DELETE CASCADE.
		return tx.Where("tenant_id = ? AND profile_id = ?", tenantID, id).Delete(&models.ItemLinkModel{}).Error
	})
}

func replaceFieldMappings(tx *gorm.DB, profileID uuid.UUID, mappings []models.FieldMappingModel) error {
	if err := tx.Where("profile_id = ?", profileID).Delete(&models.FieldMappingModel{}).Error; err != nil {
		return err
	}
	if len(mappings) == 0 {
		return nil
	}
	return tx.Create(&mappings).Error
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func (r *GormProfileRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("FieldMappings", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *GormProfileRepository) toDomain(model *models.ConnectionProfileModel) (*connection.ConnectionProfile, error) {
	consumerSecret, err := r.sealer.Open(model.ConsumerSecretSealed)
	if err != nil {
		return nil, fmt.Errorf("open consumer secret of profile %s: %w", model.ID, err)
	}
	webhookSecret, err := r.sealer.Open(model.WebhookSecretSealed)
	if err != nil {
		return nil, fmt.Errorf("open webhook secret of profile %s: %w", model.ID, err)
	}
	return model.ToDomain(consumerSecret, webhookSecret), nil
}

func (r *GormProfileRepository) toDomainList(profileModels []models.ConnectionProfileModel) ([]*connection.ConnectionProfile, error) {
	profiles := make([]*connection.ConnectionProfile, len(profileModels))
	for i := range profileModels {
		p, err := r.toDomain(&profileModels[i])
		if err != nil {
			return nil, err
		}
		profiles[i] = p
	}
	return profiles, nil
}

func (r *GormProfileRepository) fromDomain(profile *connection.ConnectionProfile) (*models.ConnectionProfileModel, error) {
	model := models.ConnectionProfileModelFromDomain(profile)
	sealed, err := r.sealer.Seal(profile.Credentials.ConsumerSecret)
	if err != nil {
		return nil, fmt.Errorf("seal consumer secret: %w", err)
	}
	model.ConsumerSecretSealed = sealed
	sealed, err = r.sealer.Seal(profile.RevealWebhookSecret())
	if err != nil {
		return nil, fmt.Errorf("seal webhook secret: %w", err)
	}
	model.WebhookSecretSealed = sealed
	return model, nil
}

// ---------------------------------------------------------------------------
// Filter helpers
// ---------------------------------------------------------------------------

func (r *GormProfileRepository) applyFilter(query *gorm.DB, filter connection.ProfileFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	column := ValidateSortField(filter.OrderBy, ProfileSortFields, "name")
	dir := "ASC"
	if filter.OrderDir != "" {
		dir = ValidateSortOrder(filter.OrderDir)
	}
	return query.Order(column + " " + dir)
}

func (r *GormProfileRepository) applyFilterWithoutPagination(query *gorm.DB, filter connection.ProfileFilter) *gorm.DB {
	if filter.SyncEnabled != nil {
		query = query.Where("enable_sync = ?", *filter.SyncEnabled)
	}

	// LOWER/LIKE instead of ILIKE keeps the query portable to SQLite
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(escapeLikePattern(search)) + "%"
		query = query.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(server_url) LIKE ? ESCAPE '\\')", pattern, pattern)
	}

	return query
}

// escapeLikePattern escapes special characters in LIKE patterns
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
