// Command receipt-import imports one business day or a range of days from
// the POS reporting API into the receipt store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/bootstrap"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/config"
	"github.com/restoledger/backend/internal/infrastructure/logger"
)

type options struct {
	date            string
	from            string
	to              string
	continueOnError bool
	timeout         time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.date, "date", "", "business day to import (YYYY-MM-DD); defaults to yesterday")
	flag.StringVar(&opts.from, "from", "", "first day of a range (inclusive)")
	flag.StringVar(&opts.to, "to", "", "end of a range (exclusive)")
	flag.BoolVar(&opts.continueOnError, "continue-on-error", false, "keep importing the range after a failed day")
	flag.DurationVar(&opts.timeout, "timeout", 0, "abort the whole run after this long (0 = no limit)")
	flag.Usage = usage
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, log, opts))
}

func run(cfg *config.Config, log *zap.Logger, opts options) int {
	defer func() { _ = logger.Sync(log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start import pipeline", zap.Error(err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
	}()
	log = app.Logger

	if opts.from != "" {
		return importRange(ctx, app, log, opts)
	}

	day, err := opts.day(app.Location)
	if err != nil {
		log.Error("Invalid date", zap.Error(err))
		return 2
	}
	result, err := app.Days.ImportDay(ctx, day)
	logResult(log, result)
	if err != nil {
		log.Error("Import failed", zap.String("date", day.Format(receipt.DateLayout)), zap.Error(err))
		return 1
	}
	return 0
}

func importRange(ctx context.Context, app *bootstrap.App, log *zap.Logger, opts options) int {
	from, err := receipt.ParseDay(opts.from)
	if err != nil {
		log.Error("Invalid -from", zap.Error(err))
		return 2
	}
	to, err := receipt.ParseDay(opts.to)
	if err != nil {
		log.Error("Invalid -to", zap.Error(err))
		return 2
	}
	policy := app.Ranges.Policy()
	if opts.continueOnError {
		policy = receiptimport.PolicyContinue
	}

	results, err := app.Ranges.ImportRangeWithPolicy(ctx, from, to, policy)
	for _, r := range results {
		logResult(log, r)
	}
	created, updated, backfilled := receipt.Totals(results)
	log.Info("Range import finished",
		zap.String("from", opts.from),
		zap.String("to", opts.to),
		zap.String("policy", string(policy)),
		zap.Int("days", len(results)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("backfilled", backfilled),
	)
	if err == nil {
		return 0
	}

	var rangeErr *receiptimport.RangeError
	if errors.As(err, &rangeErr) {
		failed := make([]string, 0, len(rangeErr.Failures))
		for _, d := range rangeErr.FailedDates() {
			failed = append(failed, d.Format(receipt.DateLayout))
		}
		log.Error("Some days failed", zap.Strings("failed_dates", failed), zap.Error(err))
	} else {
		log.Error("Range import aborted", zap.Error(err))
	}
	return 1
}

func logResult(log *zap.Logger, r receipt.ImportResult) {
	fields := []zap.Field{
		zap.String("date", r.Date.Format(receipt.DateLayout)),
		zap.Int("created", r.Created),
		zap.Int("updated", r.Updated),
		zap.Int("backfilled", r.Backfilled),
	}
	for _, s := range r.Stages {
		if s.Status != receipt.StageOK {
			fields = append(fields, zap.String(string(s.Stage), string(s.Status)+" "+s.Error))
		}
	}
	switch {
	case r.Failed():
		log.Error("Day failed", append(fields, zap.Error(r.Err))...)
	case r.Degraded():
		log.Warn("Day imported with degraded stages", fields...)
	default:
		log.Info("Day imported", fields...)
	}
}

func (o options) validate() error {
	if o.date != "" && (o.from != "" || o.to != "") {
		return errors.New("use either -date or -from/-to")
	}
	if (o.from == "") != (o.to == "") {
		return errors.New("-from and -to must be given together")
	}
	if o.continueOnError && o.from == "" {
		return errors.New("-continue-on-error applies to ranges only")
	}
	return nil
}

// day is -date, or yesterday in the business timezone
func (o options) day(loc *time.Location) (time.Time, error) {
	if o.date != "" {
		return receipt.ParseDay(o.date)
	}
	return receipt.Day(time.Now().In(loc).AddDate(0, 0, -1)), nil
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: receipt-import [-date YYYY-MM-DD | -from YYYY-MM-DD -to YYYY-MM-DD [-continue-on-error]]

Imports receipts from the POS reporting API. Without flags the previous
business day is imported. Ranges are half-open: -to is not imported.

Configuration comes from config.toml and RESTO_* environment variables,
for example RESTO_REPORTING_BASE_URL, RESTO_REPORTING_LOGIN,
RESTO_REPORTING_PASSWORD and RESTO_DATABASE_HOST.

Flags:
`)
	flag.PrintDefaults()
}
