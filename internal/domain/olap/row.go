package olap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// timestampLayouts are the shapes the cube uses for OpenTime/CloseTime/OpenDate.
// Timestamps carry the restaurant's wall clock without an offset.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// Row is one aggregate row returned by the cube, keyed by upstream column name.
type Row map[string]any

// Value returns the raw cell value; ok is false for missing and null cells
func (r Row) Value(col string) (any, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the cell as trimmed text; ok is false for missing, null and blank cells
func (r Row) String(col string) (string, bool) {
	v, ok := r.Value(col)
	if !ok {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Number returns the cell as a decimal; ok is false when the cell is missing or not numeric
func (r Row) Number(col string) (decimal.Decimal, bool) {
	v, ok := r.Value(col)
	if !ok {
		return decimal.Zero, false
	}
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case decimal.Decimal:
		return t, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

// Time parses a timestamp cell; nil when missing or unparseable
func (r Row) Time(col string) *time.Time {
	s, ok := r.String(col)
	if !ok {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

func (r Row) decimalOrZero(col string) decimal.Decimal {
	d, _ := r.Number(col)
	return d
}

func (r Row) text(col string) string {
	s, _ := r.String(col)
	return s
}

// OrderNum is the order number, the merge key of every extract
func (r Row) OrderNum() string { return normalizeOrderNum(r.text(ColOrderNum)) }

// SourceOrderNum is the order a return reverses
func (r Row) SourceOrderNum() string { return normalizeOrderNum(r.text(ColSourceOrderNum)) }

// DiscountedSum is the discount-adjusted amount
func (r Row) DiscountedSum() decimal.Decimal { return r.decimalOrZero(ColDiscountedSum) }

// GrossSum is the original pre-discount amount
func (r Row) GrossSum() decimal.Decimal { return r.decimalOrZero(ColGrossSum) }

// ReturnSum is the reversal amount
func (r Row) ReturnSum() decimal.Decimal { return r.decimalOrZero(ColReturnSum) }

// Cost is the product cost
func (r Row) Cost() decimal.Decimal { return r.decimalOrZero(ColCost) }

// DishAmount is the dish quantity
func (r Row) DishAmount() decimal.Decimal { return r.decimalOrZero(ColDishAmount) }

// Guests is the guest count of the order
func (r Row) Guests() int {
	d, ok := r.Number(ColGuests)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func (r Row) DishID() string              { return r.text(ColDishID) }
func (r Row) DishName() string            { return r.text(ColDishName) }
func (r Row) DishSize() string            { return r.text(ColDishSize) }
func (r Row) MeasureUnit() string         { return r.text(ColDishMeasureUnit) }
func (r Row) PayType() string             { return r.text(ColPayTypes) }
func (r Row) Waiter() string              { return r.text(ColWaiter) }
func (r Row) Register() string            { return r.text(ColCashRegister) }
func (r Row) CustomerName() string        { return r.text(ColCustomerName) }
func (r Row) CustomerPhone() string       { return r.text(ColCustomerPhone) }
func (r Row) OrderType() string           { return r.text(ColOrderType) }
func (r Row) DeliveryServiceType() string { return r.text(ColDeliveryServiceType) }
func (r Row) OpenTime() *time.Time        { return r.Time(ColOpenTime) }
func (r Row) CloseTime() *time.Time       { return r.Time(ColCloseTime) }

// OpenDate is the business day the order was opened on
func (r Row) OpenDate() (time.Time, bool) {
	t := r.Time(ColOpenDate)
	if t == nil {
		return time.Time{}, false
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
}

// IsDeleted reports an upstream cancellation, with or without write-off
func (r Row) IsDeleted() bool {
	if strings.EqualFold(r.text(ColOrderDeleted), OrderDeleted) {
		return true
	}
	switch strings.ToUpper(r.text(ColDeletedWithWriteoff)) {
	case DeletedWithWriteoff, DeletedWithoutWriteoff:
		return true
	}
	return false
}

// DeletedWithWriteoff reports a cancellation that wrote inventory off
func (r Row) DeletedWithWriteoff() bool {
	return strings.EqualFold(r.text(ColDeletedWithWriteoff), DeletedWithWriteoff)
}

// IsReturn reports a reversal row
func (r Row) IsReturn() bool {
	v, ok := r.Value(ColStorned)
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	return strings.EqualFold(r.text(ColStorned), StornedTrue)
}

// normalizeOrderNum strips the ".0" tail numeric order numbers pick up in transit
func normalizeOrderNum(s string) string {
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}
