package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// ImportDayRequest asks for one business day to be imported
type ImportDayRequest struct {
	Date string `json:"date" binding:"required,datetime=2006-01-02"`
}

// ImportRangeRequest asks for the days in [from, to) to be imported
type ImportRangeRequest struct {
	From   string `json:"from" binding:"required,datetime=2006-01-02"`
	To     string `json:"to" binding:"required,datetime=2006-01-02"`
	Policy string `json:"policy" binding:"omitempty,oneof=abort continue"`
}

// ReceiptListQuery selects stored receipts of one day
type ReceiptListQuery struct {
	Date string `form:"date" binding:"required,datetime=2006-01-02"`
}

// StageOutcomeResponse is how one stage of an import ended
type StageOutcomeResponse struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ImportResultResponse is the outcome of one imported day
type ImportResultResponse struct {
	Date       string                 `json:"date"`
	Created    int                    `json:"created"`
	Updated    int                    `json:"updated"`
	Backfilled int                    `json:"backfilled"`
	Degraded   bool                   `json:"degraded"`
	Stages     []StageOutcomeResponse `json:"stages,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// ImportRangeResponse summarizes a range import
type ImportRangeResponse struct {
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	Policy      string                 `json:"policy"`
	Days        []ImportResultResponse `json:"days"`
	Created     int                    `json:"created"`
	Updated     int                    `json:"updated"`
	Backfilled  int                    `json:"backfilled"`
	FailedDates []string               `json:"failed_dates,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// ReceiptItemResponse is one stored receipt line
type ReceiptItemResponse struct {
	LineNo      int             `json:"line_no"`
	DishID      string          `json:"dish_id,omitempty"`
	DishName    string          `json:"dish_name,omitempty"`
	Size        string          `json:"size,omitempty"`
	MeasureUnit string          `json:"measure_unit,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	Net         decimal.Decimal `json:"net"`
	Cost        decimal.Decimal `json:"cost"`
	ReturnSum   decimal.Decimal `json:"return_sum"`
}

// ReceiptResponse is one stored canonical receipt
type ReceiptResponse struct {
	ID                  string                `json:"id"`
	OrderNum            string                `json:"order_num"`
	Date                string                `json:"date"`
	Waiter              string                `json:"waiter,omitempty"`
	Register            string                `json:"register,omitempty"`
	CustomerName        string                `json:"customer_name,omitempty"`
	CustomerPhone       string                `json:"customer_phone,omitempty"`
	OrderType           string                `json:"order_type,omitempty"`
	DeliveryServiceType string                `json:"delivery_service_type,omitempty"`
	IsReturn            bool                  `json:"is_return"`
	IsDeleted           bool                  `json:"is_deleted"`
	DeletedWithWriteoff bool                  `json:"deleted_with_writeoff"`
	Net                 decimal.Decimal       `json:"net"`
	Cost                decimal.Decimal       `json:"cost"`
	ReturnSum           decimal.Decimal       `json:"return_sum"`
	Dishes              decimal.Decimal       `json:"dishes"`
	Guests              int                   `json:"guests"`
	PayTypes            []string              `json:"pay_types"`
	OpenTime            *time.Time            `json:"open_time,omitempty"`
	CloseTime           *time.Time            `json:"close_time,omitempty"`
	Items               []ReceiptItemResponse `json:"items"`
}

// NewImportResultResponse converts a day result
func NewImportResultResponse(r receipt.ImportResult) ImportResultResponse {
	resp := ImportResultResponse{
		Date:       r.Date.Format(receipt.DateLayout),
		Created:    r.Created,
		Updated:    r.Updated,
		Backfilled: r.Backfilled,
		Degraded:   r.Degraded(),
	}
	for _, s := range r.Stages {
		resp.Stages = append(resp.Stages, StageOutcomeResponse{
			Stage:  string(s.Stage),
			Status: string(s.Status),
			Error:  s.Error,
		})
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

// NewReceiptResponse converts a stored receipt and its items
func NewReceiptResponse(r *receipt.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		ID:                  r.ID.String(),
		OrderNum:            r.OrderNum,
		Date:                r.Date.Format(receipt.DateLayout),
		Waiter:              r.Waiter,
		Register:            r.Register,
		CustomerName:        r.CustomerName,
		CustomerPhone:       r.CustomerPhone,
		OrderType:           r.OrderType,
		DeliveryServiceType: r.DeliveryServiceType,
		IsReturn:            r.IsReturn,
		IsDeleted:           r.IsDeleted,
		DeletedWithWriteoff: r.DeletedWithWriteoff,
		Net:                 r.Net,
		Cost:                r.Cost,
		ReturnSum:           r.ReturnSum,
		Dishes:              r.Dishes,
		Guests:              r.Guests,
		PayTypes:            r.PayTypes,
		OpenTime:            r.OpenTime,
		CloseTime:           r.CloseTime,
		Items:               make([]ReceiptItemResponse, 0, len(r.Items)),
	}
	if resp.PayTypes == nil {
		resp.PayTypes = []string{}
	}
	for _, it := range r.Items {
		resp.Items = append(resp.Items, ReceiptItemResponse{
			LineNo:      it.LineNo,
			DishID:      it.DishID,
			DishName:    it.DishName,
			Size:        it.Size,
			MeasureUnit: it.MeasureUnit,
			Qty:         it.Qty,
			Net:         it.Net,
			Cost:        it.Cost,
			ReturnSum:   it.ReturnSum,
		})
	}
	return resp
}
