package integration

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
)

// ItemLinkService manages the links between ERP items and storefront products
type ItemLinkService struct {
	links    integration.ItemLinkRepository
	profiles ProfileSource
	logger   *zap.Logger
}

// NewItemLinkService creates a new item link service
func NewItemLinkService(links integration.ItemLinkRepository, profiles ProfileSource, logger *zap.Logger) *ItemLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemLinkService{
		links:    links,
		profiles: profiles,
		logger:   logger,
	}
}

// ---------------------------------------------------------------------------
// CRUD Operations
// ---------------------------------------------------------------------------

// Create links an item to a product of a profile's storefront
func (s *ItemLinkService) Create(ctx context.Context, tenantID uuid.UUID, req CreateItemLinkRequest) (*ItemLinkResponse, error) {
	if _, err := loadProfile(ctx, s.profiles, tenantID, req.ProfileID); err != nil {
		return nil, err
	}

	exists, err := s.links.ExistsByProfileAndItem(ctx, tenantID, req.ProfileID, strings.TrimSpace(req.ItemCode))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Item is already linked for this connection profile")
	}

	existing, err := s.links.FindByStorefrontProduct(ctx, tenantID, req.ProfileID, strings.TrimSpace(req.StorefrontProductID))
	if err == nil && existing != nil {
		return nil, shared.NewDomainError("ALREADY_MAPPED", "Storefront product is already linked to another item")
	}
	if err != nil && !isItemLinkNotFound(err) {
		return nil, err
	}

	link, err := integration.NewItemLink(tenantID, req.ProfileID, req.ItemCode, req.StorefrontProductID)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	link.StorefrontSKU = strings.TrimSpace(req.StorefrontSKU)

	if err := s.links.Save(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("Item link created",
		zap.String("profile_id", link.ProfileID.String()),
		zap.String("item_code", link.ItemCode),
		zap.String("storefront_product_id", link.StorefrontProductID))

	resp := ToItemLinkResponse(link)
	return &resp, nil
}

// Update changes the product, SKU or switches of a link
func (s *ItemLinkService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateItemLinkRequest) (*ItemLinkResponse, error) {
	link, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.StorefrontProductID != nil {
		link.StorefrontProductID = strings.TrimSpace(*req.StorefrontProductID)
		link.ResetSyncHash()
	}
	if req.StorefrontSKU != nil {
		link.StorefrontSKU = strings.TrimSpace(*req.StorefrontSKU)
	}
	if req.IsActive != nil {
		if *req.IsActive {
			link.Activate()
		} else {
			link.Deactivate()
		}
	}
	if req.SyncEnabled != nil {
		if *req.SyncEnabled {
			link.EnableSync()
		} else {
			link.DisableSync()
		}
	}

	if err := link.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", err.Error())
	}
	if err := s.links.Save(ctx, link); err != nil {
		return nil, err
	}

	resp := ToItemLinkResponse(link)
	return &resp, nil
}

// Delete removes a link
func (s *ItemLinkService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, id); err != nil {
		return err
	}
	return s.links.Delete(ctx, id)
}

// Get returns a link by ID
func (s *ItemLinkService) Get(ctx context.Context, tenantID, id uuid.UUID) (*ItemLinkResponse, error) {
	link, err := s.load(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToItemLinkResponse(link)
	return &resp, nil
}

// List returns a page of links and the total count
func (s *ItemLinkService) List(ctx context.Context, tenantID uuid.UUID, filter ItemLinkListFilter) ([]ItemLinkResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := integration.ItemLinkFilter{
		ProfileID:   filter.ProfileID,
		IsActive:    filter.IsActive,
		SyncEnabled: filter.SyncEnabled,
		OrderBy:     filter.OrderBy,
		OrderDir:    filter.OrderDir,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}
	if code := strings.TrimSpace(filter.ItemCode); code != "" {
		domainFilter.ItemCodes = []string{code}
	}

	links, err := s.links.FindAll(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.links.Count(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ItemLinkResponse, len(links))
	for i := range links {
		out[i] = ToItemLinkResponse(&links[i])
	}
	return out, count, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *ItemLinkService) load(ctx context.Context, tenantID, id uuid.UUID) (*integration.ItemLink, error) {
	link, err := s.links.FindByID(ctx, id)
	if err != nil {
		if isItemLinkNotFound(err) {
			return nil, shared.NewDomainError("NOT_FOUND", "Item link not found")
		}
		return nil, err
	}
	if link.TenantID != tenantID {
		return nil, shared.NewDomainError("NOT_FOUND", "Item link not found")
	}
	return link, nil
}

func isItemLinkNotFound(err error) bool {
	return errors.Is(err, integration.ErrItemLinkNotFound) || isNotFound(err)
}
