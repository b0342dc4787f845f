package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Level is the grain of a diagnostic cell
type Level string

const (
	LevelReceipt Level = "RECEIPT"
	LevelItem    Level = "ITEM"
)

// OlapRowKV is one raw cube cell kept for diagnostics.
// ItemKey is empty at RECEIPT level.
type OlapRowKV struct {
	Date     time.Time
	OrderNum string
	Level    Level
	ItemKey  string
	Col      string
	ValNum   *decimal.Decimal
	ValStr   *string
}

// KVKey is the natural key of a diagnostic cell
type KVKey struct {
	Date     time.Time
	OrderNum string
	Level    Level
	ItemKey  string
	Col      string
}

// Key returns the natural key of the cell
func (kv OlapRowKV) Key() KVKey {
	return KVKey{Date: kv.Date, OrderNum: kv.OrderNum, Level: kv.Level, ItemKey: kv.ItemKey, Col: kv.Col}
}
