package connection

import (
	"context"

	"github.com/google/uuid"
)

// ProfileFilter defines filtering options for profile queries
type ProfileFilter struct {
	Search      string
	SyncEnabled *bool
	OrderBy     string
	OrderDir    string
	Page        int
	PageSize    int
}

// ProfileReader defines read operations for connection profiles
type ProfileReader interface {
	// FindByID finds a profile by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ConnectionProfile, error)
	// FindByIDForTenant finds a profile by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ConnectionProfile, error)
	// FindAll lists profiles of a tenant
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ProfileFilter) ([]*ConnectionProfile, error)
	// FindSyncEnabled lists profiles of a tenant with sync switched on
	FindSyncEnabled(ctx context.Context, tenantID uuid.UUID) ([]*ConnectionProfile, error)
	// Count counts profiles matching the filter
	Count(ctx context.Context, tenantID uuid.UUID, filter ProfileFilter) (int64, error)
	// CurrentVersion returns the stored version of a profile, or
	// ErrProfileNotFound once it is deleted
	CurrentVersion(ctx context.Context, id uuid.UUID) (int, error)
	// ExistsByServerURL checks whether a storefront is already connected
	ExistsByServerURL(ctx context.Context, tenantID uuid.UUID, serverURL string) (bool, error)
}

// ProfileWriter defines write operations for connection profiles
type ProfileWriter interface {
	// Save creates or updates a profile including its ordered field mappings
	Save(ctx context.Context, profile *ConnectionProfile) error
	// SaveWithLock updates a profile only if the stored version is
	// profile.Version-1 and fails with shared.ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, profile *ConnectionProfile) error
	// Delete removes the whole profile of a tenant together with its field
	// mappings and item links
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// ProfileRepository combines read and write operations
type ProfileRepository interface {
	ProfileReader
	ProfileWriter
}
