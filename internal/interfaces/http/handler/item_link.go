package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	integrationapp "github.com/kossanah/woocommerce-fusion/internal/application/integration"
)

// ItemLinkHandler handles the item to storefront product links of a tenant
type ItemLinkHandler struct {
	BaseHandler
	linkService *integrationapp.ItemLinkService
}

// NewItemLinkHandler creates a new ItemLinkHandler
func NewItemLinkHandler(linkService *integrationapp.ItemLinkService) *ItemLinkHandler {
	return &ItemLinkHandler{
		linkService: linkService,
	}
}

// Create links an ERP item to a storefront product
func (h *ItemLinkHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req integrationapp.CreateItemLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	link, err := h.linkService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, link)
}

// GetByID returns one link
func (h *ItemLinkHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	linkID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item link ID format")
		return
	}

	link, err := h.linkService.Get(c.Request.Context(), tenantID, linkID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, link)
}

// List returns a page of links, optionally narrowed to one profile or item
func (h *ItemLinkHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter integrationapp.ItemLinkListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if raw := c.Query("profile_id"); raw != "" {
		profileID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid profile ID format")
			return
		}
		filter.ProfileID = &profileID
	}

	links, total, err := h.linkService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, links, total, filter.Page, filter.PageSize)
}

// Update changes the product, SKU or switches of a link
func (h *ItemLinkHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	linkID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item link ID format")
		return
	}

	var req integrationapp.UpdateItemLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	link, err := h.linkService.Update(c.Request.Context(), tenantID, linkID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, link)
}

// Delete removes a link
func (h *ItemLinkHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	linkID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item link ID format")
		return
	}

	if err := h.linkService.Delete(c.Request.Context(), tenantID, linkID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
