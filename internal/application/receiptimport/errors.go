package receiptimport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/restoledger/backend/internal/domain/receipt"
)

var (
	// ErrInvalidDateRange is returned when a range ends before it starts
	ErrInvalidDateRange = errors.New("invalid date range: to is before from")

	// ErrImportInProgress is returned when another process holds the day's import lock
	ErrImportInProgress = errors.New("receipt import already in progress for this day")

	// ErrSourceOrderNotFound is returned when a return's source order is not in the cube
	ErrSourceOrderNotFound = errors.New("return source order not found upstream")

	// ErrInvalidFailurePolicy is returned for an unknown range failure policy
	ErrInvalidFailurePolicy = errors.New("invalid range failure policy")
)

// StageError is a fatal failure of one stage of a day import
type StageError struct {
	Stage receipt.Stage
	Date  time.Time
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("import %s failed at %s: %v", e.Date.Format(receipt.DateLayout), e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage receipt.Stage, day time.Time, err error) *StageError {
	return &StageError{Stage: stage, Date: day, Err: err}
}

// DayFailure is one failed day of a range
type DayFailure struct {
	Date time.Time
	Err  error
}

// RangeError lists the days of a range that failed under the continue policy
type RangeError struct {
	Failures []DayFailure
}

func (e *RangeError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Date.Format(receipt.DateLayout), f.Err))
	}
	return fmt.Sprintf("%d day(s) failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// Unwrap exposes every per-day failure to errors.Is and errors.As
func (e *RangeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailedDates returns the failed days in the order they were processed
func (e *RangeError) FailedDates() []time.Time {
	dates := make([]time.Time, 0, len(e.Failures))
	for _, f := range e.Failures {
		dates = append(dates, f.Date)
	}
	return dates
}
