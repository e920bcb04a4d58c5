package router

import (
	"github.com/gin-gonic/gin"

	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/handler"
)

// WebhookPrefix is served outside the tenant-scoped API; deliveries find
// their tenant through the connection profile in the path
const WebhookPrefix = "/webhooks"

// Handlers groups the HTTP handlers the routes are bound to
type Handlers struct {
	System    *handler.SystemHandler
	Profiles  *handler.ConnectionProfileHandler
	ItemLinks *handler.ItemLinkHandler
	Sync      *handler.SyncHandler
	Webhooks  *handler.WebhookHandler
}

// RegisterPublicRoutes binds the routes that live outside /api/<version>
func RegisterPublicRoutes(engine *gin.Engine, h Handlers) {
	engine.GET("/health", h.System.Health)
	engine.POST(WebhookPrefix+"/woocommerce/:id", h.Webhooks.Receive)
}

// APIGroups returns the tenant-scoped route groups of the versioned API
func APIGroups(h Handlers) []*DomainGroup {
	system := NewDomainGroup("system", "/system")
	system.GET("/ping", h.System.Ping).Describe("Liveness check")
	system.GET("/info", h.System.GetSystemInfo).Describe("Service name and version")

	profiles := NewDomainGroup("connection-profiles", "/connection-profiles")
	profiles.POST("", h.Profiles.Create).Describe("Create a connection profile")
	profiles.GET("", h.Profiles.List).Describe("List connection profiles")
	profiles.POST("/validate", h.Profiles.Validate).Describe("Check a draft profile without saving it")
	profiles.GET("/:id", h.Profiles.GetByID).Describe("Get a connection profile")
	profiles.PUT("/:id", h.Profiles.Update).Describe("Replace the settings of a profile")
	profiles.DELETE("/:id", h.Profiles.Delete).Describe("Delete a connection profile")
	profiles.GET("/:id/configuration", h.Profiles.GetConfiguration).Describe("Storefront-side configuration with secrets")
	profiles.GET("/:id/policy", h.Profiles.GetPolicy).Describe("Resolved sync policy")
	profiles.POST("/:id/webhook-secret/rotate", h.Profiles.RotateWebhookSecret).Describe("Issue a new webhook secret")
	profiles.POST("/:id/sync/price-list", h.Sync.SyncPriceList).Describe("Push the profile price list")
	profiles.POST("/:id/sync/products/:product_id", h.Sync.SyncProduct).Describe("Reconcile one storefront product with its item")

	links := NewDomainGroup("item-links", "/item-links")
	links.POST("", h.ItemLinks.Create).Describe("Link an item to a storefront product")
	links.GET("", h.ItemLinks.List).Describe("List item links")
	links.GET("/:id", h.ItemLinks.GetByID).Describe("Get an item link")
	links.PUT("/:id", h.ItemLinks.Update).Describe("Update an item link")
	links.DELETE("/:id", h.ItemLinks.Delete).Describe("Delete an item link")

	sync := NewDomainGroup("sync", "/sync")
	sync.POST("/stock-items", h.Sync.SyncStockItem).Describe("Push the stock of one item")
	sync.GET("/jobs", h.Sync.ListJobs).Describe("Recent sync jobs")

	return []*DomainGroup{system, profiles, links, sync}
}

// Mount registers the public routes and the API groups on the engine of r
func Mount(r *Router, h Handlers) {
	RegisterPublicRoutes(r.engine, h)
	for _, g := range APIGroups(h) {
		r.Register(g)
	}
	r.Setup()
}
