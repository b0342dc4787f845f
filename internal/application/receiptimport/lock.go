package receiptimport

import (
	"context"
	"time"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// DayLocker guards a business day against two imports writing it at once
type DayLocker interface {
	// Lock acquires the day's lock. It returns ErrImportInProgress when the lock is held elsewhere.
	Lock(ctx context.Context, day time.Time) (unlock func(context.Context) error, err error)
}

// NopLocker never blocks; imports rely on single-writer deployment
type NopLocker struct{}

// Lock implements DayLocker
func (NopLocker) Lock(context.Context, time.Time) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

// Recorder receives the outcome of every day import
type Recorder interface {
	RecordDayImport(ctx context.Context, result receipt.ImportResult, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordDayImport(context.Context, receipt.ImportResult, time.Duration) {}
