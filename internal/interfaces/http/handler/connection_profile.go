package handler

import (
	"github.com/gin-gonic/gin"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
)

// ConnectionProfileHandler handles connection profile API endpoints
type ConnectionProfileHandler struct {
	BaseHandler
	profileService *connectionapp.ProfileService
}

// NewConnectionProfileHandler creates a new ConnectionProfileHandler
func NewConnectionProfileHandler(profileService *connectionapp.ProfileService) *ConnectionProfileHandler {
	return &ConnectionProfileHandler{
		profileService: profileService,
	}
}

// Create saves a new profile. The webhook secret is issued on this first
// save and is only visible through the configuration endpoint.
func (h *ConnectionProfileHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req connectionapp.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	profile, err := h.profileService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, profile)
}

// Update replaces every editable field of a profile
func (h *ConnectionProfileHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	var req connectionapp.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	profile, err := h.profileService.Update(c.Request.Context(), tenantID, profileID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// GetByID returns a profile without its secrets
func (h *ConnectionProfileHandler) GetByID(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	profile, err := h.profileService.Get(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// List returns a page of profiles
func (h *ConnectionProfileHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter connectionapp.ProfileListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	profiles, total, err := h.profileService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, profiles, total, filter.Page, filter.PageSize)
}

// Delete removes a profile
func (h *ConnectionProfileHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	if err := h.profileService.Delete(c.Request.Context(), tenantID, profileID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Validate runs the dependency validator on a draft without saving it. It
// answers 200 with every violated rule, so a form can show them all at once.
func (h *ConnectionProfileHandler) Validate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req connectionapp.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	h.Success(c, h.profileService.ValidateDraft(tenantID, req))
}

// GetConfiguration is the explicit view that reveals the profile's secrets
func (h *ConnectionProfileHandler) GetConfiguration(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	config, err := h.profileService.ViewConfiguration(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	h.Success(c, config)
}

// GetPolicy returns the resolved sync policy of the live profile
func (h *ConnectionProfileHandler) GetPolicy(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	policy, err := h.profileService.ResolvePolicy(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, connectionapp.ToPolicyResponse(policy))
}

// RotateWebhookSecret replaces the webhook secret and returns the new value once
func (h *ConnectionProfileHandler) RotateWebhookSecret(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	profileID, err := pathUUID(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid profile ID format")
		return
	}

	rotated, err := h.profileService.RotateWebhookSecret(c.Request.Context(), tenantID, profileID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	h.Success(c, rotated)
}
