package receiptimport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/infrastructure/telemetry"
)

// DayImporter reconciles one business day of cube extracts into stored receipts
type DayImporter struct {
	client     olap.Client
	receipts   receipt.ReceiptRepository
	backfiller *Backfiller
	dumper     *DiagnosticDumper
	persister  persister
	locker     DayLocker
	recorder   Recorder
	opts       Options
	logger     *zap.Logger
}

// NewDayImporter creates a day importer. kv may be nil when the diagnostic dump is disabled.
func NewDayImporter(
	client olap.Client,
	receipts receipt.ReceiptRepository,
	kv receipt.OlapRowKVRepository,
	opts Options,
	logger *zap.Logger,
) *DayImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	d := &DayImporter{
		client:     client,
		receipts:   receipts,
		backfiller: NewBackfiller(client, receipts, opts.ReturnSourceLookbackDays, opts.AtomicPersist, logger),
		persister:  persister{repo: receipts, atomic: opts.AtomicPersist},
		locker:     NopLocker{},
		recorder:   nopRecorder{},
		opts:       opts,
		logger:     logger,
	}
	if kv != nil {
		d.dumper = NewDiagnosticDumper(client, kv, opts.MaxAggregatesPerQuery, opts.MaxGroupColumnsPerQuery, logger)
	}
	return d
}

// SetLocker installs the single-writer guard
func (d *DayImporter) SetLocker(l DayLocker) {
	if l != nil {
		d.locker = l
	}
}

// SetRecorder installs the import metrics sink
func (d *DayImporter) SetRecorder(r Recorder) {
	if r != nil {
		d.recorder = r
	}
}

// ImportDay runs every stage for day and returns the created/updated counts.
// Fatal failures are returned as *StageError; enrichment failures are listed in result.Stages.
func (d *DayImporter) ImportDay(ctx context.Context, day time.Time) (result receipt.ImportResult, err error) {
	day = receipt.Day(day)
	result = receipt.ImportResult{Date: day}
	started := time.Now()
	ctx, log := logger.WithImportRun(ctx, d.logger, uuid.NewString(), day.Format(receipt.DateLayout))

	ctx, span := telemetry.StartServiceSpan(ctx, "receipt_import", "import_day",
		telemetry.WithAttribute(telemetry.SpanAttrBusinessDate, day.Format(receipt.DateLayout)),
	)
	defer func() {
		if err != nil {
			result.Err = err
			telemetry.RecordError(span, err)
		}
		telemetry.SetAttributes(span,
			"receipts_created", result.Created,
			"receipts_updated", result.Updated,
			"receipts_backfilled", result.Backfilled,
		)
		span.End()
		d.recorder.RecordDayImport(ctx, result, time.Since(started))
	}()

	unlock, err := d.locker.Lock(ctx, day)
	if err != nil {
		return result, err
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			log.Warn("Failed to release import lock", zap.Error(uerr))
		}
	}()

	log.Info("Starting receipt import")
	ws := NewWorkingSet(day)

	headers, deleted, deletedErr, err := d.queryHeaders(ctx, day)
	if err != nil {
		return result, stageError(receipt.StageQueryHeaders, day, err)
	}
	if deletedErr != nil {
		log.Warn("Deleted orders extract failed, timestamps of cancelled orders may be missing", zap.Error(deletedErr))
		result.Record(receipt.StageQueryHeaders, receipt.StageDegraded, deletedErr)
	} else {
		result.Record(receipt.StageQueryHeaders, receipt.StageOK, nil)
	}

	ws.MergeHeaders(headers)
	ws.MergeDeletedTimes(deleted)
	result.Record(receipt.StageMerge, receipt.StageOK, nil)
	log.Debug("Headers merged", zap.Int("header_rows", len(headers)), zap.Int("orders", ws.Len()))

	d.resolveReturns(ctx, ws, &result, log)

	if err := d.mergeItems(ctx, ws); err != nil {
		return result, stageError(receipt.StageQueryItemsAndMerge, day, err)
	}
	result.Record(receipt.StageQueryItemsAndMerge, receipt.StageOK, nil)

	d.dumpDiagnostics(ctx, day, &result, log)

	if err := d.persistAll(ctx, ws, &result); err != nil {
		return result, stageError(receipt.StagePersist, day, err)
	}
	result.Record(receipt.StagePersist, receipt.StageOK, nil)

	log.Info("Receipt import completed",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("backfilled", result.Backfilled),
		zap.Bool("degraded", result.Degraded()),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (d *DayImporter) queryHeaders(ctx context.Context, day time.Time) (headers, deleted []olap.Row, deletedErr, err error) {
	ctx, span := stageSpan(ctx, receipt.StageQueryHeaders)
	defer span.End()

	headers, err = d.client.Query(ctx, headerQuery(day))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, nil, nil, err
	}
	deleted, deletedErr = d.client.Query(ctx, deletedTimesQuery(day))
	return headers, deleted, deletedErr, nil
}

func (d *DayImporter) resolveReturns(ctx context.Context, ws *WorkingSet, result *receipt.ImportResult, log *zap.Logger) {
	ctx, span := stageSpan(ctx, receipt.StageResolveReturnsAndBackfill)
	defer span.End()

	rows, err := d.client.Query(ctx, returnsQuery(ws.Day()))
	if err != nil {
		log.Warn("Returns extract failed, skipping return sums and source backfill", zap.Error(err))
		result.Record(receipt.StageResolveReturnsAndBackfill, receipt.StageDegraded, err)
		return
	}
	sources := ws.MergeReturns(rows)
	result.Record(receipt.StageResolveReturnsAndBackfill, receipt.StageOK, nil)

	for _, src := range sources {
		n, err := d.backfiller.EnsureSourcePresent(ctx, ws, src, ws.Day())
		result.Backfilled += n
		if err != nil {
			log.Warn("Return source backfill failed", zap.String("source_order_num", src), zap.Error(err))
			result.Record(receipt.StageResolveReturnsAndBackfill, receipt.StageDegraded, err)
		}
	}
}

func (d *DayImporter) mergeItems(ctx context.Context, ws *WorkingSet) error {
	ctx, span := stageSpan(ctx, receipt.StageQueryItemsAndMerge)
	defer span.End()

	rows, err := d.client.Query(ctx, itemsQuery(ws.Day()))
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	ws.MergeItems(rows)
	return nil
}

func (d *DayImporter) dumpDiagnostics(ctx context.Context, day time.Time, result *receipt.ImportResult, log *zap.Logger) {
	if !d.opts.DiagnosticDumpEnabled || d.dumper == nil {
		result.Record(receipt.StageDiagnosticDump, receipt.StageSkipped, nil)
		return
	}
	ctx, span := stageSpan(ctx, receipt.StageDiagnosticDump)
	defer span.End()

	cells, err := d.dumper.Dump(ctx, day)
	if err != nil {
		log.Warn("Diagnostic dump failed", zap.Error(err))
		result.Record(receipt.StageDiagnosticDump, receipt.StageDegraded, err)
		return
	}
	telemetry.SetAttribute(span, "cells", cells)
	result.Record(receipt.StageDiagnosticDump, receipt.StageOK, nil)
}

func (d *DayImporter) persistAll(ctx context.Context, ws *WorkingSet, result *receipt.ImportResult) error {
	ctx, span := stageSpan(ctx, receipt.StagePersist)
	defer span.End()

	for _, r := range ws.Receipts() {
		created, err := d.persister.persist(ctx, r)
		if err != nil {
			telemetry.RecordError(span, err)
			return err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return nil
}

func stageSpan(ctx context.Context, stage receipt.Stage) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, fmt.Sprintf("receipt_import.%s", strings.ToLower(string(stage))))
}
