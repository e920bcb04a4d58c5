package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/logger"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
)

const (
	// TenantIDKey is the gin context key holding the resolved tenant UUID
	TenantIDKey = "tenant_id"
	// TenantHeader names the tenant of an API request
	TenantHeader = "X-Tenant-ID"
)

// TenantConfig holds configuration for tenant resolution
type TenantConfig struct {
	// DefaultTenantID serves requests without a tenant header
	DefaultTenantID uuid.UUID
	// SkipPaths are path prefixes resolved without a tenant, e.g. the
	// webhook receiver which finds its tenant through the profile
	SkipPaths []string
}

// Tenant resolves the request tenant from the X-Tenant-ID header. A missing
// header falls back to the configured default tenant; a malformed one is
// rejected with 400.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		tenantID := cfg.DefaultTenantID
		if raw := c.GetHeader(TenantHeader); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil || parsed == uuid.Nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeBadRequest, "Invalid tenant ID", GetRequestID(c)))
				return
			}
			tenantID = parsed
		}
		if tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Tenant identification required", GetRequestID(c)))
			return
		}

		c.Set(TenantIDKey, tenantID)
		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantUUID returns the tenant resolved by Tenant
func GetTenantUUID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
