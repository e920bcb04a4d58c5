package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/handler"
)

func testHandlers() Handlers {
	return Handlers{
		System:    handler.NewSystemHandler("woocommerce-fusion", nil),
		Profiles:  handler.NewConnectionProfileHandler(nil),
		ItemLinks: handler.NewItemLinkHandler(nil),
		Sync:      handler.NewSyncHandler(nil, nil, nil, nil, nil),
		Webhooks:  handler.NewWebhookHandler(nil, handler.DefaultMaxWebhookPayload),
	}
}

func TestMount(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	Mount(r, testHandlers())

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"POST /webhooks/woocommerce/:id",
		"GET /api/v1/system/ping",
		"GET /api/v1/system/info",
		"POST /api/v1/connection-profiles",
		"GET /api/v1/connection-profiles",
		"POST /api/v1/connection-profiles/validate",
		"GET /api/v1/connection-profiles/:id",
		"PUT /api/v1/connection-profiles/:id",
		"DELETE /api/v1/connection-profiles/:id",
		"GET /api/v1/connection-profiles/:id/configuration",
		"GET /api/v1/connection-profiles/:id/policy",
		"POST /api/v1/connection-profiles/:id/webhook-secret/rotate",
		"POST /api/v1/connection-profiles/:id/sync/price-list",
		"POST /api/v1/connection-profiles/:id/sync/products/:product_id",
		"POST /api/v1/item-links",
		"GET /api/v1/item-links",
		"GET /api/v1/item-links/:id",
		"PUT /api/v1/item-links/:id",
		"DELETE /api/v1/item-links/:id",
		"POST /api/v1/sync/stock-items",
		"GET /api/v1/sync/jobs",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}

	// Every API route carries a description for the startup listing.
	for _, info := range r.Routes() {
		assert.NotEmpty(t, info.Description, "%s %s", info.Method, info.Path)
	}
}

func TestMount_SystemRoutes(t *testing.T) {
	engine := gin.New()
	Mount(NewRouter(engine), testHandlers())

	for _, path := range []string{"/health", "/api/v1/system/ping", "/api/v1/system/info"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}
