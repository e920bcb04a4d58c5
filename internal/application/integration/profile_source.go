package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// ProfileSource hands out the live instance of a connection profile
type ProfileSource interface {
	Live(ctx context.Context, id uuid.UUID) (*connection.ConnectionProfile, error)
}

// ErrProfileNotFound is returned when a profile is missing or belongs to
// another tenant
var ErrProfileNotFound = shared.NewDomainError("NOT_FOUND", "Connection profile not found")

// loadProfile returns the live profile if it belongs to tenantID
func loadProfile(ctx context.Context, src ProfileSource, tenantID, profileID uuid.UUID) (*connection.ConnectionProfile, error) {
	p, err := src.Live(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// isNotFound matches every not-found flavor a repository or service returns
func isNotFound(err error) bool {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, ErrProfileNotFound) || errors.Is(err, connection.ErrProfileNotFound) {
		return true
	}
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == "NOT_FOUND"
}
