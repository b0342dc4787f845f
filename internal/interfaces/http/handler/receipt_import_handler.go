package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
	"github.com/restoledger/backend/internal/interfaces/http/middleware"
)

// RangeRunner imports a range of days under a failure policy
type RangeRunner interface {
	ImportRangeWithPolicy(ctx context.Context, from, to time.Time, policy receiptimport.FailurePolicy) ([]receipt.ImportResult, error)
	Policy() receiptimport.FailurePolicy
}

// DefaultMaxRangeDays caps a range request when no limit is configured
const DefaultMaxRangeDays = 31

// ReceiptImportHandler triggers receipt imports on demand
type ReceiptImportHandler struct {
	BaseHandler
	days         receiptimport.DayRunner
	ranges       RangeRunner
	maxRangeDays int
}

// ReceiptImportOption configures a ReceiptImportHandler
type ReceiptImportOption func(*ReceiptImportHandler)

// WithMaxRangeDays limits how many days one range request may import
func WithMaxRangeDays(days int) ReceiptImportOption {
	return func(h *ReceiptImportHandler) {
		if days > 0 {
			h.maxRangeDays = days
		}
	}
}

// NewReceiptImportHandler creates a new ReceiptImportHandler
func NewReceiptImportHandler(days receiptimport.DayRunner, ranges RangeRunner, opts ...ReceiptImportOption) *ReceiptImportHandler {
	h := &ReceiptImportHandler{days: days, ranges: ranges, maxRangeDays: DefaultMaxRangeDays}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ImportDay handles POST /api/v1/receipt-imports/day
func (h *ReceiptImportHandler) ImportDay(c *gin.Context) {
	var req dto.ImportDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	day, err := receipt.ParseDay(req.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.days.ImportDay(c.Request.Context(), day)
	if err != nil {
		logger.GetGinLogger(c).Error("Manual day import failed",
			zap.String("date", req.Date), zap.Error(err))
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewImportResultResponse(result))
}

// ImportRange handles POST /api/v1/receipt-imports/range.
// Days finished before a failure stay committed, so failures still carry
// the per-day results in the data field.
func (h *ReceiptImportHandler) ImportRange(c *gin.Context) {
	var req dto.ImportRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	from, err := receipt.ParseDay(req.From)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := receipt.ParseDay(req.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if to.Sub(from) > time.Duration(h.maxRangeDays)*24*time.Hour {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidDateRange, fmt.Sprintf(
			"A range import may span at most %d days; run cmd/receipt-import for longer backfills", h.maxRangeDays))
		return
	}
	policy := h.ranges.Policy()
	if req.Policy != "" {
		if policy, err = receiptimport.ParseFailurePolicy(req.Policy); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	results, err := h.ranges.ImportRangeWithPolicy(c.Request.Context(), from, to, policy)
	if err != nil && results == nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.ImportRangeResponse{
		From:   req.From,
		To:     req.To,
		Policy: string(policy),
		Days:   make([]dto.ImportResultResponse, 0, len(results)),
	}
	for _, r := range results {
		resp.Days = append(resp.Days, dto.NewImportResultResponse(r))
	}
	resp.Created, resp.Updated, resp.Backfilled = receipt.Totals(results)

	if err == nil {
		h.Success(c, resp)
		return
	}

	logger.GetGinLogger(c).Error("Manual range import failed",
		zap.String("from", req.From), zap.String("to", req.To), zap.Error(err))
	resp.Error = err.Error()

	var rangeErr *receiptimport.RangeError
	if errors.As(err, &rangeErr) {
		for _, d := range rangeErr.FailedDates() {
			resp.FailedDates = append(resp.FailedDates, d.Format(receipt.DateLayout))
		}
	} else {
		var stageErr *receiptimport.StageError
		if errors.As(err, &stageErr) {
			resp.FailedDates = []string{stageErr.Date.Format(receipt.DateLayout)}
		}
	}

	code, message := classifyError(err)
	c.JSON(dto.GetHTTPStatus(code), dto.Response{
		Data:  resp,
		Error: &dto.ErrorInfo{Code: code, Message: message, RequestID: middleware.GetRequestID(c)},
	})
}
