package connection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// ProfileService manages connection profiles and their webhook secrets
type ProfileService struct {
	repo      connection.ProfileRepository
	validator *connection.DependencyValidator
	resolver  *connection.PolicyResolver
	secrets   *connection.WebhookSecretManager
	registry  *ProfileRegistry
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// ProfileServiceOption configures a ProfileService
type ProfileServiceOption func(*ProfileService)

// WithEventPublisher publishes profile events after each change
func WithEventPublisher(p shared.EventPublisher) ProfileServiceOption {
	return func(s *ProfileService) { s.publisher = p }
}

// WithSecretManager replaces the webhook secret manager
func WithSecretManager(m *connection.WebhookSecretManager) ProfileServiceOption {
	return func(s *ProfileService) { s.secrets = m }
}

// NewProfileService creates a new profile service
func NewProfileService(repo connection.ProfileRepository, logger *zap.Logger, opts ...ProfileServiceOption) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	validator := connection.NewDependencyValidator()
	s := &ProfileService{
		repo:      repo,
		validator: validator,
		resolver:  connection.NewPolicyResolver(validator),
		secrets:   connection.NewWebhookSecretManager(),
		registry:  NewProfileRegistry(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the live profile registry
func (s *ProfileService) Registry() *ProfileRegistry {
	return s.registry
}

// ---------------------------------------------------------------------------
// CRUD Operations
// ---------------------------------------------------------------------------

// Create validates and persists a new profile. The webhook secret is issued
// as part of the first save.
func (s *ProfileService) Create(ctx context.Context, tenantID uuid.UUID, in ProfileInput) (*ProfileResponse, error) {
	p, err := connection.NewConnectionProfile(tenantID, in.Name, connection.Credentials{ServerURL: in.ServerURL})
	if err != nil {
		return nil, toInputError(err)
	}
	if err := in.applyTo(p); err != nil {
		return nil, toInputError(err)
	}
	if errs := s.validator.ValidateAll(p); len(errs) > 0 {
		return nil, errs
	}

	exists, err := s.repo.ExistsByServerURL(ctx, tenantID, p.Credentials.ServerURL)
	if err != nil {
		s.logger.Error("Failed to check server URL", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check server URL availability")
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A connection profile for this server URL already exists")
	}

	if _, err := s.secrets.Issue(p); err != nil {
		s.logger.Error("Failed to issue webhook secret", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to issue webhook secret")
	}

	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("Failed to save connection profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection profile")
	}
	s.registry.Put(p)
	s.publishEvents(ctx, p)

	s.logger.Info("Connection profile created",
		zap.String("profile_id", p.ID.String()),
		zap.String("server_url", p.Credentials.ServerURL))

	resp := ToProfileResponse(p)
	return &resp, nil
}

// Update applies a validated edit. The edit holds the profile's exclusive
// lock from load to persist, and the live instance is swapped afterwards.
// A concurrent edit on another replica surfaces as CONCURRENCY_CONFLICT.
func (s *ProfileService) Update(ctx context.Context, tenantID, id uuid.UUID, in ProfileInput) (*ProfileResponse, error) {
	unlock := s.registry.Lock(id)
	defer unlock()

	live, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	// Edit a fresh copy so readers of the live instance never see a
	// half-applied edit.
	draft, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, s.mapFindError(err)
	}
	draft.ClearDomainEvents()
	draft.RestoreWebhookSecret(live.RevealWebhookSecret())

	if err := in.applyTo(draft); err != nil {
		return nil, toInputError(err)
	}
	if errs := s.validator.ValidateAll(draft); len(errs) > 0 {
		return nil, errs
	}

	if draft.Credentials.ServerURL != live.Credentials.ServerURL {
		exists, err := s.repo.ExistsByServerURL(ctx, tenantID, draft.Credentials.ServerURL)
		if err != nil {
			s.logger.Error("Failed to check server URL", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check server URL availability")
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A connection profile for this server URL already exists")
		}
	}

	draft.Touch()
	if err := s.repo.SaveWithLock(ctx, draft); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.registry.Evict(id)
			return nil, err
		}
		s.logger.Error("Failed to save connection profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection profile")
	}
	s.registry.Put(draft)
	s.publishEvents(ctx, draft)

	s.logger.Info("Connection profile updated",
		zap.String("profile_id", id.String()),
		zap.Int("version", draft.Version))

	resp := ToProfileResponse(draft)
	return &resp, nil
}

// Get returns a profile without secrets
func (s *ProfileService) Get(ctx context.Context, tenantID, id uuid.UUID) (*ProfileResponse, error) {
	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToProfileResponse(p)
	return &resp, nil
}

// List returns a page of profiles and the total count
func (s *ProfileService) List(ctx context.Context, tenantID uuid.UUID, filter ProfileListFilter) ([]ProfileResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	domainFilter := connection.ProfileFilter{
		Search:      filter.Search,
		SyncEnabled: filter.SyncEnabled,
		OrderBy:     filter.OrderBy,
		OrderDir:    filter.OrderDir,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}

	profiles, err := s.repo.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		s.logger.Error("Failed to list connection profiles", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to list connection profiles")
	}
	total, err := s.repo.Count(ctx, tenantID, domainFilter)
	if err != nil {
		s.logger.Error("Failed to count connection profiles", zap.Error(err))
		return nil, 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to count connection profiles")
	}

	out := make([]ProfileResponse, len(profiles))
	for i, p := range profiles {
		out[i] = ToProfileResponse(p)
	}
	return out, total, nil
}

// Delete removes the whole profile. The webhook secret is revoked before the
// row goes, so no delivery verifies against a profile being deleted.
func (s *ProfileService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	unlock := s.registry.Lock(id)
	defer unlock()

	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return err
	}

	secret := p.RevealWebhookSecret()
	s.secrets.Revoke(p)

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		p.RestoreWebhookSecret(secret)
		s.logger.Error("Failed to delete connection profile", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete connection profile")
	}
	s.registry.Evict(id)

	p.AddDomainEvent(connection.NewProfileDeletedEvent(p))
	s.publishEvents(ctx, p)

	s.logger.Info("Connection profile deleted", zap.String("profile_id", id.String()))
	return nil
}

// ---------------------------------------------------------------------------
// Validation and Policy
// ---------------------------------------------------------------------------

// ValidateDraft runs every rule against an unsaved profile
func (s *ProfileService) ValidateDraft(tenantID uuid.UUID, in ProfileInput) ValidationResponse {
	p, err := connection.NewConnectionProfile(tenantID, in.Name, connection.Credentials{ServerURL: in.ServerURL})
	if err == nil {
		err = in.applyTo(p)
	}
	if err != nil {
		var ve *connection.ValidationError
		if errors.As(toInputError(err), &ve) {
			return ValidationResponse{Valid: false, Errors: []*connection.ValidationError{ve}}
		}
		return ValidationResponse{Valid: false, Errors: []*connection.ValidationError{{Field: "profile", Rule: connection.RuleRequired, Reason: err.Error()}}}
	}

	errs := s.validator.ValidateAll(p)
	if errs == nil {
		errs = connection.ValidationErrors{}
	}
	return ValidationResponse{Valid: len(errs) == 0, Errors: errs}
}

// ResolvePolicy derives the sync policy of a stored profile
func (s *ProfileService) ResolvePolicy(ctx context.Context, tenantID, id uuid.UUID) (*connection.ResolvedSyncPolicy, error) {
	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	policy, err := s.resolver.Resolve(p)
	if err != nil {
		s.logger.Error("Stored connection profile failed resolution",
			zap.String("profile_id", id.String()),
			zap.Error(err))
		return nil, err
	}
	return policy, nil
}

// ---------------------------------------------------------------------------
// Secrets
// ---------------------------------------------------------------------------

// RotateWebhookSecret replaces the webhook secret. The rotation is persisted
// as a new profile version before it goes live, so every replica stops
// accepting the old secret on its next version check.
func (s *ProfileService) RotateWebhookSecret(ctx context.Context, tenantID, id uuid.UUID) (*RotateSecretResponse, error) {
	unlock := s.registry.Lock(id)
	defer unlock()

	if _, err := s.load(ctx, tenantID, id); err != nil {
		return nil, err
	}
	draft, err := s.repo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, s.mapFindError(err)
	}
	draft.ClearDomainEvents()

	secret, err := s.secrets.Rotate(draft)
	if errors.Is(err, connection.ErrWebhookSecretNotIssued) {
		// Profiles stored before secrets existed get their first one here.
		secret, err = s.secrets.Issue(draft)
	}
	if err != nil {
		s.logger.Error("Failed to rotate webhook secret", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to rotate webhook secret")
	}

	draft.IncrementVersion()
	if err := s.repo.SaveWithLock(ctx, draft); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.registry.Evict(id)
			return nil, err
		}
		s.logger.Error("Failed to persist rotated webhook secret", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to persist webhook secret")
	}
	s.registry.Put(draft)
	s.publishEvents(ctx, draft)

	s.logger.Info("Webhook secret rotated",
		zap.String("profile_id", id.String()),
		zap.Int("version", draft.Version))
	return &RotateSecretResponse{ProfileID: id, WebhookSecret: secret, RotatedAt: time.Now()}, nil
}

// ViewConfiguration returns the profile including its secrets
func (s *ProfileService) ViewConfiguration(ctx context.Context, tenantID, id uuid.UUID) (*ConfigurationResponse, error) {
	p, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Connection profile configuration viewed", zap.String("profile_id", id.String()))
	resp := ToConfigurationResponse(p)
	return &resp, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Live returns the live instance of a profile for any tenant. A cached
// instance is only served while its version matches the stored one, so
// rotations and deletes made by other replicas take effect here too. It
// backs webhook verification, which has no tenant context.
func (s *ProfileService) Live(ctx context.Context, id uuid.UUID) (*connection.ConnectionProfile, error) {
	cached, ok := s.registry.Get(id)
	if ok {
		stored, err := s.repo.CurrentVersion(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) || errors.Is(err, connection.ErrProfileNotFound) {
				s.registry.Evict(id)
			}
			return nil, s.mapFindError(err)
		}
		if stored <= cached.Version {
			return cached, nil
		}
		s.logger.Debug("Reloading stale connection profile",
			zap.String("profile_id", id.String()),
			zap.Int("cached_version", cached.Version),
			zap.Int("stored_version", stored))
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, connection.ErrProfileNotFound) {
			s.registry.Evict(id)
		}
		return nil, s.mapFindError(err)
	}
	p.ClearDomainEvents()
	return s.registry.Refresh(p), nil
}

// load returns the live instance of a tenant's profile
func (s *ProfileService) load(ctx context.Context, tenantID, id uuid.UUID) (*connection.ConnectionProfile, error) {
	p, err := s.Live(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, shared.NewDomainError("NOT_FOUND", "Connection profile not found")
	}
	return p, nil
}

func (s *ProfileService) mapFindError(err error) error {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, connection.ErrProfileNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Connection profile not found")
	}
	s.logger.Error("Failed to load connection profile", zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to load connection profile")
}

func (s *ProfileService) publishEvents(ctx context.Context, p *connection.ConnectionProfile) {
	events := p.GetDomainEvents()
	p.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err))
	}
}

// toInputError turns constructor failures into field-level validation errors
func toInputError(err error) error {
	switch {
	case errors.Is(err, connection.ErrProfileInvalidName):
		return &connection.ValidationError{Field: "name", Rule: connection.RuleRequired, Reason: "is required"}
	case errors.Is(err, connection.ErrProfileInvalidServerURL):
		return &connection.ValidationError{Field: "server_url", Rule: "url", Reason: "must be an http or https URL"}
	case errors.Is(err, connection.ErrProfileInvalidTenantID):
		return shared.NewDomainError("INVALID_INPUT", "Invalid tenant")
	default:
		return err
	}
}
