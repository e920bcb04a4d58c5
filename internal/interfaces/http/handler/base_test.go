package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestGetTenantID(t *testing.T) {
	t.Run("resolved by middleware", func(t *testing.T) {
		tenant := uuid.New()
		c, _ := newTestContext()
		c.Set(middleware.TenantIDKey, tenant)

		got, err := getTenantID(c)
		require.NoError(t, err)
		assert.Equal(t, tenant, got)
	})

	t.Run("missing", func(t *testing.T) {
		c, _ := newTestContext()

		_, err := getTenantID(c)
		assert.Error(t, err)
	})
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"a", "b"}, 100, 0, 0)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(100), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, dto.DefaultPageSize, resp.Meta.PageSize)
}

func TestBaseHandlerNoContent(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.DELETE("/test", func(c *gin.Context) { h.NoContent(c) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/test", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(middleware.RequestIDKey, "req-42")

	h.NotFound(c, "Connection profile not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}

func TestHandleDomainError(t *testing.T) {
	violations := connection.ValidationErrors{
		{Field: "name_by", Rule: "required_when_stock_sync", Reason: "naming basis is required"},
		{Field: "warehouses", Rule: "required_when_stock_sync", Reason: "at least one warehouse is required"},
	}

	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"validation errors", violations, http.StatusBadRequest, dto.ErrCodeValidation},
		{"single validation error", &connection.ValidationError{Field: "server_url", Rule: "url", Reason: "bad"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"already issued", &connection.AlreadyIssuedError{ProfileID: uuid.New()}, http.StatusConflict, dto.ErrCodeConflict},
		{"precondition wrapping violations", &connection.PreconditionError{Reason: "invalid", Cause: violations}, http.StatusInternalServerError, dto.ErrCodePreconditionFailed},
		{"sync disabled", fmt.Errorf("run: %w", integration.ErrSyncDomainDisabled), http.StatusUnprocessableEntity, dto.ErrCodeSyncDisabled},
		{"storefront unavailable", integration.ErrStorefrontUnavailable, http.StatusBadGateway, dto.ErrCodeStorefrontUnavailable},
		{"storefront rate limited", integration.ErrStorefrontRateLimited, http.StatusBadGateway, dto.ErrCodeStorefrontUnavailable},
		{"not found", shared.NewDomainError("NOT_FOUND", "Connection profile not found"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.NewDomainError("ALREADY_EXISTS", "exists"), http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"already mapped", shared.NewDomainError("ALREADY_MAPPED", "mapped"), http.StatusConflict, dto.ErrCodeConflict},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, dto.ErrCodeInternal},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleDomainError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestHandleDomainError_ValidationDetails(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleDomainError(c, connection.ValidationErrors{
		{Field: "tax_account", Rule: "exclusive_tax_source", Reason: "set either a tax account or a template"},
	})

	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "tax_account", resp.Error.Details[0].Field)
	assert.Equal(t, "exclusive_tax_source", resp.Error.Details[0].Rule)
	assert.Equal(t, "set either a tax account or a template", resp.Error.Details[0].Message)
}

func TestHandleDomainError_Nil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleDomainError(c, nil)
	assert.Empty(t, w.Body.Bytes())
}
