package receiptimport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/domain/receipt"
)

// DayRunner imports a single business day
type DayRunner interface {
	ImportDay(ctx context.Context, day time.Time) (receipt.ImportResult, error)
}

// RangeImporter imports consecutive days one after another
type RangeImporter struct {
	days   DayRunner
	policy FailurePolicy
	logger *zap.Logger
}

// NewRangeImporter creates a range importer with the given default failure policy
func NewRangeImporter(days DayRunner, policy FailurePolicy, logger *zap.Logger) *RangeImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyAbort
	}
	return &RangeImporter{days: days, policy: policy, logger: logger}
}

// Policy returns the default failure policy
func (r *RangeImporter) Policy() FailurePolicy {
	return r.policy
}

// ImportRange imports the days in [from, to) using the default failure policy
func (r *RangeImporter) ImportRange(ctx context.Context, from, to time.Time) ([]receipt.ImportResult, error) {
	return r.ImportRangeWithPolicy(ctx, from, to, r.policy)
}

// ImportRangeWithPolicy imports the days in [from, to) in ascending order.
//
// With PolicyAbort it stops at the first failure and returns the results of the
// days before it together with that error; those days stay committed.
// With PolicyContinue every day is attempted, failed days carry Err, and a
// *RangeError listing them is returned alongside all results.
func (r *RangeImporter) ImportRangeWithPolicy(ctx context.Context, from, to time.Time, policy FailurePolicy) ([]receipt.ImportResult, error) {
	from, to = receipt.Day(from), receipt.Day(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}

	results := make([]receipt.ImportResult, 0, int(to.Sub(from).Hours()/24))
	var failures []DayFailure

	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := r.days.ImportDay(ctx, day)
		if err == nil {
			results = append(results, res)
			continue
		}

		r.logger.Error("Day import failed",
			zap.String("business_date", day.Format(receipt.DateLayout)),
			zap.String("policy", string(policy)),
			zap.Error(err),
		)
		if policy != PolicyContinue {
			return results, err
		}
		res.Date, res.Err = day, err
		results = append(results, res)
		failures = append(failures, DayFailure{Date: day, Err: err})
	}

	created, updated, backfilled := receipt.Totals(results)
	r.logger.Info("Range import finished",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("days", len(results)),
		zap.Int("failed_days", len(failures)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("backfilled", backfilled),
	)
	if len(failures) > 0 {
		return results, &RangeError{Failures: failures}
	}
	return results, nil
}
