package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connectionapp "github.com/kossanah/woocommerce-fusion/internal/application/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/middleware"
)

func profilePath(id uuid.UUID, suffix string) string {
	return "/api/v1/connection-profiles/" + id.String() + suffix
}

func TestConnectionProfileHandler_Create(t *testing.T) {
	t.Run("issues a secret but never returns it", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/v1/connection-profiles", profileBody())
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var created connectionapp.ProfileResponse
		env.data(w, &created)
		assert.Equal(t, defaultTestTenant, created.TenantID)
		assert.True(t, created.HasWebhookSecret)
		assert.True(t, created.HasConsumerSecret)
		assert.Equal(t, "Product SKU", created.NameByLabel)
		assert.NotContains(t, w.Body.String(), "cs_live")

		secret := env.webhookSecret(created.ID)
		assert.NotContains(t, w.Body.String(), secret)
	})

	t.Run("dependency violations are all reported", func(t *testing.T) {
		env := newTestEnv(t)
		body := profileBody()
		body["name_by"] = ""
		body["warehouses"] = []string{}

		w := env.do(http.MethodPost, "/api/v1/connection-profiles", body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := make([]string, len(resp.Error.Details))
		for i, d := range resp.Error.Details {
			fields[i] = d.Field
			assert.NotEmpty(t, d.Rule)
		}
		assert.Equal(t, []string{"name_by", "warehouses"}, fields)
	})

	t.Run("binding errors use json names", func(t *testing.T) {
		env := newTestEnv(t)
		body := profileBody()
		delete(body, "name")

		w := env.do(http.MethodPost, "/api/v1/connection-profiles", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/v1/connection-profiles", []byte(`{"name":`))
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decodeResponse(t, w).Error.Code)
	})

	t.Run("duplicate server url", func(t *testing.T) {
		env := newTestEnv(t)
		env.createProfile(nil)

		w := env.do(http.MethodPost, "/api/v1/connection-profiles", profileBody())
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed tenant header", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(http.MethodPost, "/api/v1/connection-profiles", profileBody(), middleware.TenantHeader, "acme")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestConnectionProfileHandler_GetByID(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(nil)

	t.Run("found", func(t *testing.T) {
		w := env.do(http.MethodGet, profilePath(id, ""), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got connectionapp.ProfileResponse
		env.data(w, &got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, []string{"Stores - AL"}, got.Warehouses)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/connection-profiles/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(http.MethodGet, profilePath(uuid.New(), ""), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other tenant cannot see it", func(t *testing.T) {
		w := env.do(http.MethodGet, profilePath(id, ""), nil, middleware.TenantHeader, uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestConnectionProfileHandler_List(t *testing.T) {
	env := newTestEnv(t)
	env.createProfile(nil)
	env.createProfile(map[string]any{"name": "Outlet", "server_url": "https://outlet.example.com", "enable_sync": false})

	w := env.do(http.MethodGet, "/api/v1/connection-profiles?page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.PageSize)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = env.do(http.MethodGet, "/api/v1/connection-profiles?sync_enabled=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []connectionapp.ProfileResponse
	env.data(w, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "Outlet", listed[0].Name)

	w = env.do(http.MethodGet, "/api/v1/connection-profiles?page_size=1000", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionProfileHandler_Update(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(nil)
	secret := env.webhookSecret(id)

	t.Run("applies the edit and keeps the secret", func(t *testing.T) {
		body := profileBody()
		body["name"] = "Renamed store"
		body["uom"] = "Box"

		w := env.do(http.MethodPut, profilePath(id, ""), body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated connectionapp.ProfileResponse
		env.data(w, &updated)
		assert.Equal(t, "Renamed store", updated.Name)
		assert.Equal(t, "Box", updated.UOM)
		assert.Equal(t, secret, env.webhookSecret(id))
	})

	t.Run("invalid edit is rejected", func(t *testing.T) {
		body := profileBody()
		body["use_actual_tax_type"] = true

		w := env.do(http.MethodPut, profilePath(id, ""), body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "tax_account", decodeResponse(t, w).Error.Details[0].Field)

		w = env.do(http.MethodGet, profilePath(id, ""), nil)
		var current connectionapp.ProfileResponse
		env.data(w, &current)
		assert.False(t, current.UseActualTaxType)
	})
}

func TestConnectionProfileHandler_Validate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("valid draft", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/v1/connection-profiles/validate", profileBody())
		require.Equal(t, http.StatusOK, w.Code)

		var result connectionapp.ValidationResponse
		env.data(w, &result)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("invalid draft answers 200 with every violation", func(t *testing.T) {
		body := profileBody()
		body["price_list"] = ""
		body["warehouses"] = []string{}

		w := env.do(http.MethodPost, "/api/v1/connection-profiles/validate", body)
		require.Equal(t, http.StatusOK, w.Code)

		var result connectionapp.ValidationResponse
		env.data(w, &result)
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 2)
	})

	t.Run("nothing is saved", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/connection-profiles", nil)
		assert.Equal(t, int64(0), decodeResponse(t, w).Meta.Total)
	})
}

func TestConnectionProfileHandler_Configuration(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(nil)

	w := env.do(http.MethodGet, profilePath(id, "/configuration"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var config connectionapp.ConfigurationResponse
	env.data(w, &config)
	assert.Equal(t, "cs_live", config.ConsumerSecret)
	assert.NotEmpty(t, config.WebhookSecret)
}

func TestConnectionProfileHandler_Policy(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(map[string]any{"enable_payments_sync": false})

	w := env.do(http.MethodGet, profilePath(id, "/policy"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var policy connectionapp.PolicyResponse
	env.data(w, &policy)
	assert.Equal(t, id, policy.ProfileID)
	assert.True(t, policy.SyncEnabled)
	assert.Contains(t, policy.EnabledDomains, connection.SyncDomainPriceList)
	assert.Contains(t, policy.EnabledDomains, connection.SyncDomainStock)
	assert.NotContains(t, policy.EnabledDomains, connection.SyncDomainPayments)
	assert.Equal(t, "Standard Selling", policy.PriceList.PriceList)
	assert.Equal(t, []string{"Stores - AL"}, policy.Stock.Warehouses)
}

func TestConnectionProfileHandler_RotateWebhookSecret(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(nil)
	before := env.webhookSecret(id)

	w := env.do(http.MethodPost, profilePath(id, "/webhook-secret/rotate"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var rotated connectionapp.RotateSecretResponse
	env.data(w, &rotated)
	assert.Equal(t, id, rotated.ProfileID)
	assert.NotEqual(t, before, rotated.WebhookSecret)
	assert.Equal(t, rotated.WebhookSecret, env.webhookSecret(id))

	w = env.do(http.MethodPost, profilePath(uuid.New(), "/webhook-secret/rotate"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConnectionProfileHandler_Delete(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProfile(nil)

	w := env.do(http.MethodDelete, profilePath(id, ""), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, profilePath(id, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, profilePath(id, ""), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
