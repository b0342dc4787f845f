package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/restoledger/backend/internal/domain/receipt"
)

var (
	AttrOutcome = attribute.Key("outcome")
	AttrStage   = attribute.Key("stage")
)

// Day import outcomes
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

// ImportMetrics records the outcome of every day import.
type ImportMetrics struct {
	imports        *Counter
	created        *Counter
	updated        *Counter
	backfilled     *Counter
	degradedStages *Counter
	duration       *Histogram
}

// NewImportMetrics registers the import instruments on meter
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	m := &ImportMetrics{}
	var err error
	if m.imports, err = NewCounter(meter, "receipt_import_days_total", "Day imports by outcome", "{import}"); err != nil {
		return nil, err
	}
	if m.created, err = NewCounter(meter, "receipt_import_receipts_created_total", "Receipts inserted", "{receipt}"); err != nil {
		return nil, err
	}
	if m.updated, err = NewCounter(meter, "receipt_import_receipts_updated_total", "Receipts overwritten", "{receipt}"); err != nil {
		return nil, err
	}
	if m.backfilled, err = NewCounter(meter, "receipt_import_receipts_backfilled_total", "Return source receipts backfilled", "{receipt}"); err != nil {
		return nil, err
	}
	if m.degradedStages, err = NewCounter(meter, "receipt_import_degraded_stages_total", "Enrichment stages that failed", "{stage}"); err != nil {
		return nil, err
	}
	m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "receipt_import_day_duration_seconds",
		Description: "Wall time of one day import",
		Unit:        "s",
		Boundaries:  ImportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordDayImport records one finished day import
func (m *ImportMetrics) RecordDayImport(ctx context.Context, result receipt.ImportResult, elapsed time.Duration) {
	outcome := OutcomeOK
	switch {
	case result.Failed():
		outcome = OutcomeFailed
	case result.Degraded():
		outcome = OutcomeDegraded
	}
	m.imports.Inc(ctx, AttrOutcome.String(outcome))
	m.duration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))

	m.created.Add(ctx, int64(result.Created))
	m.updated.Add(ctx, int64(result.Updated))
	m.backfilled.Add(ctx, int64(result.Backfilled))
	for _, s := range result.Stages {
		if s.Status == receipt.StageDegraded {
			m.degradedStages.Inc(ctx, AttrStage.String(string(s.Stage)))
		}
	}
}
