package receipt

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReceiptRepository persists canonical receipts keyed by (OrderNum, Date)
type ReceiptRepository interface {
	// Upsert inserts or updates the scalar part of r and assigns r.ID; created is true on insert
	Upsert(ctx context.Context, r *Receipt) (created bool, err error)
	// ReplaceItems deletes every item of the receipt and inserts items with line numbers 1..n
	ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []ReceiptItem) error
	// SaveWithItems runs Upsert and ReplaceItems in one transaction
	SaveWithItems(ctx context.Context, r *Receipt) (created bool, err error)
	FindByKey(ctx context.Context, orderNum string, date time.Time) (*Receipt, error)
	FindByDate(ctx context.Context, date time.Time) ([]Receipt, error)
	FindItems(ctx context.Context, receiptID uuid.UUID) ([]ReceiptItem, error)
	// ExistsByOrderNumBetween reports whether the order is stored on a date in [from, to]
	ExistsByOrderNumBetween(ctx context.Context, orderNum string, from, to time.Time) (bool, error)
}

// OlapRowKVRepository stores the diagnostic cell dump
type OlapRowKVRepository interface {
	// ReplaceDay deletes all cells of the day and inserts rows, skipping natural-key duplicates
	ReplaceDay(ctx context.Context, day time.Time, rows []OlapRowKV) (inserted int, err error)
	CountByDate(ctx context.Context, day time.Time) (int64, error)
}
