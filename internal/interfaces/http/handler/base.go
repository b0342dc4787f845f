// Package handler holds the gin handlers of the admin API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/domain/shared"
	"github.com/restoledger/backend/internal/infrastructure/reporting"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
	"github.com/restoledger/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BindingError answers a request that failed to bind
func (h *BaseHandler) BindingError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed", middleware.GetRequestID(c), details))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationFormat, "Malformed request body")
}

// HandleError maps application and infrastructure errors to responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := classifyError(err)
	h.ErrorWithCode(c, code, message)
}

func classifyError(err error) (code, message string) {
	var domainErr *shared.DomainError
	var stageErr *receiptimport.StageError
	var statusErr *reporting.StatusError

	switch {
	case errors.Is(err, receiptimport.ErrInvalidDateRange):
		return dto.ErrCodeInvalidDateRange, err.Error()
	case errors.Is(err, receiptimport.ErrInvalidFailurePolicy):
		return dto.ErrCodeValidation, err.Error()
	case errors.Is(err, receiptimport.ErrImportInProgress):
		return dto.ErrCodeImportInProgress, "An import of this day is already running"
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeTimeout, "The import did not finish in time"
	case errors.As(err, &domainErr):
		return dto.NormalizeErrorCode(domainErr.Code), domainErr.Message
	case errors.As(err, &stageErr) && stageErr.Stage == receipt.StagePersist:
		return dto.ErrCodeImportFailed, stageErr.Error()
	case errors.Is(err, reporting.ErrUnavailable),
		errors.Is(err, reporting.ErrUnauthorized),
		errors.Is(err, reporting.ErrInvalidResponse),
		errors.Is(err, reporting.ErrResponseTooLarge),
		errors.As(err, &statusErr):
		return dto.ErrCodeUpstreamFailed, err.Error()
	case stageErr != nil:
		return dto.ErrCodeImportFailed, stageErr.Error()
	}
	return dto.ErrCodeInternal, "An unexpected error occurred"
}
