package dto

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/restoledger/backend/internal/domain/receipt"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidDateRange, http.StatusBadRequest},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeImportInProgress, http.StatusConflict},
		{ErrCodeUpstreamFailed, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("RECEIPT_NOT_FOUND"))
	assert.Equal(t, ErrCodeValidationFormat, NormalizeErrorCode("INVALID_DATE"))
	assert.Equal(t, "ERR_CUSTOM", NormalizeErrorCode("ERR_CUSTOM"))
}

func TestNewImportResultResponse(t *testing.T) {
	res := receipt.ImportResult{
		Date:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Created:    2,
		Updated:    1,
		Backfilled: 1,
		Err:        errors.New("persist failed"),
	}
	res.Record(receipt.StageQueryHeaders, receipt.StageOK, nil)
	res.Record(receipt.StageResolveReturnsAndBackfill, receipt.StageDegraded, errors.New("returns query timed out"))

	resp := NewImportResultResponse(res)
	assert.Equal(t, "2025-01-15", resp.Date)
	assert.True(t, resp.Degraded)
	assert.Len(t, resp.Stages, 2)
	assert.Equal(t, "DEGRADED", resp.Stages[1].Status)
	assert.Equal(t, "persist failed", resp.Error)
}

func TestNewReceiptResponse_EmptyCollections(t *testing.T) {
	r := receipt.NewReceipt("42", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	r.Net = decimal.NewFromInt(2000)

	resp := NewReceiptResponse(r)
	assert.Equal(t, "42", resp.OrderNum)
	assert.Equal(t, "2025-01-15", resp.Date)
	assert.NotNil(t, resp.PayTypes)
	assert.NotNil(t, resp.Items)
	assert.True(t, decimal.NewFromInt(2000).Equal(resp.Net))
}
