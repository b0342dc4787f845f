package receiptimport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
)

// Backfiller makes sure the order a return reverses is stored locally
type Backfiller struct {
	client       olap.Client
	receipts     receipt.ReceiptRepository
	persister    persister
	lookbackDays int
	logger       *zap.Logger
}

// NewBackfiller creates a backfiller that searches lookbackDays before the return's day
func NewBackfiller(client olap.Client, receipts receipt.ReceiptRepository, lookbackDays int, atomic bool, logger *zap.Logger) *Backfiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultOptions().ReturnSourceLookbackDays
	}
	return &Backfiller{
		client:       client,
		receipts:     receipts,
		persister:    persister{repo: receipts, atomic: atomic},
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// EnsureSourcePresent fetches and stores sourceOrderNum unless it is in ws or already
// stored within the lookback window. Order numbers repeat across days, so only the
// latest occurrence on or before day is taken as the source.
// It returns the number of receipts it persisted.
func (b *Backfiller) EnsureSourcePresent(ctx context.Context, ws *WorkingSet, sourceOrderNum string, day time.Time) (int, error) {
	if sourceOrderNum == "" || ws.Has(sourceOrderNum) {
		return 0, nil
	}
	day = receipt.Day(day)
	from := day.AddDate(0, 0, -b.lookbackDays)

	exists, err := b.receipts.ExistsByOrderNumBetween(ctx, sourceOrderNum, from, day)
	if err != nil {
		return 0, fmt.Errorf("check source order %s: %w", sourceOrderNum, err)
	}
	if exists {
		return 0, nil
	}

	headersQ, _ := sourceQueries(sourceOrderNum, from, day)
	headers, err := b.client.Query(ctx, headersQ)
	if err != nil {
		return 0, fmt.Errorf("query source order %s: %w", sourceOrderNum, err)
	}
	sourceDay, headers := latestOccurrence(headers, day)
	src := newSourceWorkingSet(day)
	if src.MergeHeaders(headers) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrSourceOrderNotFound, sourceOrderNum)
	}

	_, itemsQ := sourceQueries(sourceOrderNum, sourceDay, sourceDay)
	items, err := b.client.Query(ctx, itemsQ)
	if err != nil {
		return 0, fmt.Errorf("query source order %s items: %w", sourceOrderNum, err)
	}
	src.MergeItems(items)

	persisted := 0
	for _, r := range src.Receipts() {
		if _, err := b.persister.persist(ctx, r); err != nil {
			return persisted, fmt.Errorf("persist source order %s: %w", sourceOrderNum, err)
		}
		persisted++
		b.logger.Info("Backfilled return source order",
			zap.String("order_num", r.OrderNum),
			zap.Time("receipt_date", r.Date),
			zap.Time("return_day", day),
		)
	}
	return persisted, nil
}

// latestOccurrence keeps the header rows of the latest business day found in rows.
// Rows without an OpenDate count as fallback.
func latestOccurrence(rows []olap.Row, fallback time.Time) (time.Time, []olap.Row) {
	dateOf := func(row olap.Row) time.Time {
		if d, ok := row.OpenDate(); ok {
			return d
		}
		return fallback
	}
	var latest time.Time
	for _, row := range rows {
		if row.OrderNum() == "" {
			continue
		}
		if d := dateOf(row); d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return fallback, nil
	}
	kept := make([]olap.Row, 0, len(rows))
	for _, row := range rows {
		if row.OrderNum() != "" && dateOf(row).Equal(latest) {
			kept = append(kept, row)
		}
	}
	return latest, kept
}
