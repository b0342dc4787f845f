package receipt

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restoledger/backend/internal/domain/shared"
)

// Receipt is one canonical per-order record for a business day.
// Its natural key is (OrderNum, Date); Date is always a UTC-midnight calendar day.
type Receipt struct {
	shared.BaseEntity

	OrderNum string
	Date     time.Time

	Waiter              string
	Register            string
	CustomerName        string
	CustomerPhone       string
	OrderType           string
	DeliveryServiceType string

	IsReturn            bool
	IsDeleted           bool
	DeletedWithWriteoff bool

	Net       decimal.Decimal
	Cost      decimal.Decimal
	ReturnSum decimal.Decimal
	Dishes    decimal.Decimal
	Guests    int

	PayTypes  []string
	OpenTime  *time.Time
	CloseTime *time.Time

	Items []ReceiptItem
}

// ReceiptItem is one line of a receipt
type ReceiptItem struct {
	ID          uuid.UUID
	ReceiptID   uuid.UUID
	LineNo      int
	DishID      string
	DishName    string
	Size        string
	MeasureUnit string
	Qty         decimal.Decimal
	Net         decimal.Decimal
	Cost        decimal.Decimal
	ReturnSum   decimal.Decimal
}

// NewReceipt creates an empty receipt for an order on a day
func NewReceipt(orderNum string, day time.Time) *Receipt {
	return &Receipt{
		OrderNum:  orderNum,
		Date:      Day(day),
		Net:       decimal.Zero,
		Cost:      decimal.Zero,
		ReturnSum: decimal.Zero,
		Dishes:    decimal.Zero,
	}
}

// Day truncates t to its calendar day at UTC midnight, keeping the wall-clock date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD business date
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, shared.NewDomainError("INVALID_DATE", "date must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// DateLayout is the textual form of a business date
const DateLayout = "2006-01-02"

// Key is the natural key of the receipt
func (r *Receipt) Key() Key {
	return Key{OrderNum: r.OrderNum, Date: r.Date}
}

// HasPayType reports whether label is already in the pay-type set
func (r *Receipt) HasPayType(label string) bool {
	for _, p := range r.PayTypes {
		if p == label {
			return true
		}
	}
	return false
}

// AddPayType adds label to the pay-type set, keeping it sorted
func (r *Receipt) AddPayType(label string) {
	if label == "" || r.HasPayType(label) {
		return
	}
	r.PayTypes = append(r.PayTypes, label)
	sort.Strings(r.PayTypes)
}

// NumberItems regenerates line numbers 1..n in slice order
func (r *Receipt) NumberItems() {
	for i := range r.Items {
		r.Items[i].LineNo = i + 1
		r.Items[i].ReceiptID = r.ID
	}
}

// Key is the natural key of a receipt
type Key struct {
	OrderNum string
	Date     time.Time
}

// String renders the key for logs
func (k Key) String() string {
	return k.OrderNum + "@" + k.Date.Format(DateLayout)
}
