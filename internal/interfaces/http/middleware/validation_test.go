package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
)

type itemLinkBody struct {
	ItemCode  string `json:"item_code" binding:"required,max=8"`
	ProfileID string `json:"profile_id" binding:"required,uuid"`
}

func newValidationEngine() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/item-links", func(c *gin.Context) {
		var body itemLinkBody
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})
	return engine
}

func postItemLink(engine *gin.Engine, body string) (*httptest.ResponseRecorder, dto.Response) {
	req := httptest.NewRequest(http.MethodPost, "/item-links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var resp dto.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHandleBindError(t *testing.T) {
	engine := newValidationEngine()

	t.Run("field errors use json names", func(t *testing.T) {
		w, resp := postItemLink(engine, `{"item_code":"TOO-LONG-CODE","profile_id":"nope"}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)

		byField := map[string]dto.ValidationDetail{}
		for _, d := range resp.Error.Details {
			byField[d.Field] = d
		}
		assert.Equal(t, "max", byField["item_code"].Rule)
		assert.Equal(t, "Must be at most 8 characters", byField["item_code"].Message)
		assert.Equal(t, "Invalid UUID format", byField["profile_id"].Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		w, resp := postItemLink(engine, `{}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("malformed json", func(t *testing.T) {
		w, resp := postItemLink(engine, `{"item_code":`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid body", func(t *testing.T) {
		w, _ := postItemLink(engine, `{"item_code":"SKU-1","profile_id":"6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestBindingDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, BindingDetails(errors.New("boom")))
}
