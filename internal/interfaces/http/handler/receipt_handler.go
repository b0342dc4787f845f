package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/interfaces/http/dto"
)

// ReceiptHandler reads stored receipts
type ReceiptHandler struct {
	BaseHandler
	receipts receipt.ReceiptRepository
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receipts receipt.ReceiptRepository) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// ListByDate handles GET /api/v1/receipts?date=YYYY-MM-DD
func (h *ReceiptHandler) ListByDate(c *gin.Context) {
	var query dto.ReceiptListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}
	day, err := receipt.ParseDay(query.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	receipts, err := h.receipts.FindByDate(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.ReceiptResponse, 0, len(receipts))
	for i := range receipts {
		out = append(out, dto.NewReceiptResponse(&receipts[i]))
	}
	h.Success(c, out)
}

// GetByOrderNum handles GET /api/v1/receipts/:order_num?date=YYYY-MM-DD
func (h *ReceiptHandler) GetByOrderNum(c *gin.Context) {
	var query dto.ReceiptListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindingError(c, err)
		return
	}
	day, err := receipt.ParseDay(query.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	r, err := h.receipts.FindByKey(c.Request.Context(), c.Param("order_num"), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewReceiptResponse(r))
}
