package receiptimport

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/restoledger/backend/internal/domain/olap"
)

var testDay = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func num(v string) json.Number { return json.Number(v) }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func headerRow(orderNum, payType, discounted string) olap.Row {
	return olap.Row{
		olap.ColOrderNum:      num(orderNum),
		olap.ColPayTypes:      payType,
		olap.ColDiscountedSum: num(discounted),
		olap.ColGrossSum:      num(discounted),
		olap.ColOrderDeleted:  olap.OrderNotDeleted,
		olap.ColStorned:       olap.StornedFalse,
		olap.ColGuests:        num("2"),
		olap.ColDishAmount:    num("1"),
		olap.ColCost:          num("0"),
		olap.ColOpenTime:      "2025-01-15T12:00:00.000",
		olap.ColCloseTime:     "2025-01-15T12:45:00.000",
	}
}

func itemRow(orderNum, dishID, name, size, qty, discounted string) olap.Row {
	return olap.Row{
		olap.ColOrderNum:        num(orderNum),
		olap.ColDishID:          dishID,
		olap.ColDishName:        name,
		olap.ColDishSize:        size,
		olap.ColDishMeasureUnit: "pcs",
		olap.ColDishAmount:      num(qty),
		olap.ColDiscountedSum:   num(discounted),
		olap.ColGrossSum:        num(discounted),
		olap.ColCost:            num("1"),
		olap.ColOrderDeleted:    olap.OrderNotDeleted,
		olap.ColStorned:         olap.StornedFalse,
	}
}

func with(r olap.Row, kv ...any) olap.Row {
	out := olap.Row{}
	for k, v := range r {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}
