package receiptimport

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
)

type entry struct {
	receipt   *receipt.Receipt
	items     map[string]*receipt.ReceiptItem
	itemOrder []string
}

// WorkingSet folds the extracts of one import into receipts keyed by order number.
// It is owned by a single day import and is not safe for concurrent use.
type WorkingSet struct {
	day     time.Time
	entries map[string]*entry

	// dateFromRows dates each receipt by its OpenDate column instead of the import day
	dateFromRows bool
}

// NewWorkingSet creates an empty working set for a business day
func NewWorkingSet(day time.Time) *WorkingSet {
	return &WorkingSet{
		day:     receipt.Day(day),
		entries: make(map[string]*entry),
	}
}

func newSourceWorkingSet(day time.Time) *WorkingSet {
	ws := NewWorkingSet(day)
	ws.dateFromRows = true
	return ws
}

// Day returns the business day of the working set
func (ws *WorkingSet) Day() time.Time { return ws.day }

// Len returns the number of orders in the set
func (ws *WorkingSet) Len() int { return len(ws.entries) }

// Has reports whether the order is in the set
func (ws *WorkingSet) Has(orderNum string) bool {
	_, ok := ws.entries[orderNum]
	return ok
}

// Get returns the in-progress receipt of an order, without items attached
func (ws *WorkingSet) Get(orderNum string) (*receipt.Receipt, bool) {
	e, ok := ws.entries[orderNum]
	if !ok {
		return nil, false
	}
	return e.receipt, true
}

// OrderNums returns the order numbers in ascending order
func (ws *WorkingSet) OrderNums() []string {
	nums := make([]string, 0, len(ws.entries))
	for k := range ws.entries {
		nums = append(nums, k)
	}
	sort.Strings(nums)
	return nums
}

// Receipts returns the merged receipts in ascending order-number order, items attached
func (ws *WorkingSet) Receipts() []*receipt.Receipt {
	out := make([]*receipt.Receipt, 0, len(ws.entries))
	for _, num := range ws.OrderNums() {
		e := ws.entries[num]
		items := make([]receipt.ReceiptItem, 0, len(e.itemOrder))
		for _, key := range e.itemOrder {
			items = append(items, *e.items[key])
		}
		e.receipt.Items = items
		e.receipt.NumberItems()
		out = append(out, e.receipt)
	}
	return out
}

func (ws *WorkingSet) entryFor(row olap.Row, orderNum string) *entry {
	if e, ok := ws.entries[orderNum]; ok {
		return e
	}
	date := ws.day
	if ws.dateFromRows {
		if openDate, ok := row.OpenDate(); ok {
			date = openDate
		}
	}
	e := &entry{
		receipt: receipt.NewReceipt(orderNum, date),
		items:   make(map[string]*receipt.ReceiptItem),
	}
	ws.entries[orderNum] = e
	return e
}

// MergeHeaders folds primary header rows into the set and returns how many rows were merged
func (ws *WorkingSet) MergeHeaders(rows []olap.Row) int {
	merged := 0
	for _, row := range rows {
		num := row.OrderNum()
		if num == "" {
			continue
		}
		r := ws.entryFor(row, num).receipt

		isReturn, isDeleted := row.IsReturn(), row.IsDeleted()
		r.Net = r.Net.Add(receipt.ResolveNet(row.GrossSum(), row.DiscountedSum(), row.ReturnSum(), isReturn, isDeleted))
		r.Cost = r.Cost.Add(row.Cost())
		r.Dishes = r.Dishes.Add(row.DishAmount())
		if g := row.Guests(); g > r.Guests {
			r.Guests = g
		}

		firstNonEmpty(&r.Waiter, row.Waiter())
		firstNonEmpty(&r.Register, row.Register())
		firstNonEmpty(&r.CustomerName, row.CustomerName())
		firstNonEmpty(&r.CustomerPhone, row.CustomerPhone())
		firstNonEmpty(&r.OrderType, row.OrderType())
		firstNonEmpty(&r.DeliveryServiceType, row.DeliveryServiceType())

		r.AddPayType(normalizeLabel(row.PayType()))
		mergeFlags(r, row)
		mergeTimes(r, row)
		merged++
	}
	return merged
}

// MergeDeletedTimes applies the cancelled-orders extract to orders already in the set.
// Its timestamps take precedence over the primary extract.
func (ws *WorkingSet) MergeDeletedTimes(rows []olap.Row) int {
	merged := 0
	for _, row := range rows {
		e, ok := ws.entries[row.OrderNum()]
		if !ok {
			continue
		}
		e.receipt.IsDeleted = true
		mergeFlags(e.receipt, row)
		mergeTimes(e.receipt, row)
		merged++
	}
	return merged
}

// MergeReturns adds reversal sums to orders already in the set and returns
// the distinct source orders the reversals reference, in first-seen order.
func (ws *WorkingSet) MergeReturns(rows []olap.Row) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, row := range rows {
		num := row.OrderNum()
		if num == "" {
			continue
		}
		if e, ok := ws.entries[num]; ok {
			e.receipt.ReturnSum = e.receipt.ReturnSum.Add(row.ReturnSum())
			e.receipt.IsReturn = true
		}
		src := row.SourceOrderNum()
		if src == "" || src == num {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	return sources
}

// MergeItems folds line rows into the items of orders present in the set.
// Rows for unknown orders are dropped; the number of merged rows is returned.
func (ws *WorkingSet) MergeItems(rows []olap.Row) int {
	merged := 0
	for _, row := range rows {
		e, ok := ws.entries[row.OrderNum()]
		if !ok {
			continue
		}
		key := itemKey(row)
		if key == "" {
			continue
		}
		it, ok := e.items[key]
		if !ok {
			it = &receipt.ReceiptItem{
				DishID: row.DishID(),
				Size:   row.DishSize(),
			}
			e.items[key] = it
			e.itemOrder = append(e.itemOrder, key)
		}
		firstNonEmpty(&it.DishName, row.DishName())
		firstNonEmpty(&it.MeasureUnit, row.MeasureUnit())

		it.Qty = it.Qty.Add(row.DishAmount())
		it.Net = it.Net.Add(receipt.ResolveNet(row.GrossSum(), row.DiscountedSum(), row.ReturnSum(), row.IsReturn(), row.IsDeleted()))
		it.Cost = it.Cost.Add(row.Cost())
		it.ReturnSum = it.ReturnSum.Add(row.ReturnSum())
		merged++
	}
	return merged
}

// itemKey identifies a dish line by id and size, falling back to the dish name
func itemKey(row olap.Row) string {
	id := row.DishID()
	if id == "" {
		id = row.DishName()
	}
	if id == "" {
		return ""
	}
	return id + "|" + row.DishSize()
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func mergeFlags(r *receipt.Receipt, row olap.Row) {
	r.IsReturn = r.IsReturn || row.IsReturn()
	r.IsDeleted = r.IsDeleted || row.IsDeleted()
	r.DeletedWithWriteoff = r.DeletedWithWriteoff || row.DeletedWithWriteoff()
}

func mergeTimes(r *receipt.Receipt, row olap.Row) {
	if t := row.OpenTime(); t != nil {
		r.OpenTime = t
	}
	if t := row.CloseTime(); t != nil {
		r.CloseTime = t
	}
}

// normalizeLabel folds pay-type labels that differ only in Unicode form or padding
func normalizeLabel(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
