package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
	"github.com/kossanah/woocommerce-fusion/internal/domain/shared"
	"github.com/kossanah/woocommerce-fusion/internal/infrastructure/logger"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/dto"
	"github.com/kossanah/woocommerce-fusion/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getTenantID returns the tenant resolved by the tenant middleware
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantID, ok := middleware.GetTenantUUID(c)
	if !ok {
		return uuid.Nil, errors.New("tenant not resolved")
	}
	return tenantID, nil
}

// pathUUID parses a UUID path parameter
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(message, middleware.GetRequestID(c), details))
}

// BindError answers a failed request binding
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleBindError(c, err)
}

// HandleDomainError maps service errors onto HTTP responses:
//
//	*connection.PreconditionError                  500, logged
//	connection.ValidationErrors, *ValidationError  400 with one detail per rule
//	*connection.AlreadyIssuedError                 409
//	integration.ErrSyncDomainDisabled              422
//	storefront product not found                   404
//	storefront unavailable, rate limited or bad    502
//	*shared.DomainError                            by code
//	anything else                                  500, logged
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var (
		violations   connection.ValidationErrors
		violation    *connection.ValidationError
		issued       *connection.AlreadyIssuedError
		precondition *connection.PreconditionError
		domainErr    *shared.DomainError
	)
	switch {
	case errors.As(err, &precondition):
		logger.GetGinLogger(c).Error("Policy resolution precondition failed", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodePreconditionFailed, "Profile is not valid for policy resolution")
	case errors.As(err, &violations):
		h.ValidationError(c, "Profile validation failed", validationDetails(violations))
	case errors.As(err, &violation):
		h.ValidationError(c, "Profile validation failed", validationDetails(connection.ValidationErrors{violation}))
	case errors.As(err, &issued):
		h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "Webhook secret already issued; rotate it instead")
	case errors.Is(err, integration.ErrSyncDomainDisabled):
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeSyncDisabled, "Sync domain is disabled for this profile")
	case errors.Is(err, integration.ErrStorefrontProductNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Storefront product not found")
	case errors.Is(err, integration.ErrStorefrontUnavailable), errors.Is(err, integration.ErrStorefrontRateLimited),
		errors.Is(err, integration.ErrStorefrontInvalidResponse):
		h.Error(c, http.StatusBadGateway, dto.ErrCodeStorefrontUnavailable, "Storefront is unavailable")
	case errors.As(err, &domainErr):
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeInternal, "Request timed out")
	default:
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}

func validationDetails(errs connection.ValidationErrors) []dto.ValidationDetail {
	details := make([]dto.ValidationDetail, len(errs))
	for i, e := range errs {
		details[i] = dto.ValidationDetail{Field: e.Field, Rule: e.Rule, Message: e.Reason}
	}
	return details
}
