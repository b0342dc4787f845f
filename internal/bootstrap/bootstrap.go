// Package bootstrap assembles the import pipeline from configuration.
// Both the API server and the command line importer start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/cache"
	"github.com/restoledger/backend/internal/infrastructure/config"
	"github.com/restoledger/backend/internal/infrastructure/logger"
	"github.com/restoledger/backend/internal/infrastructure/persistence"
	"github.com/restoledger/backend/internal/infrastructure/reporting"
	"github.com/restoledger/backend/internal/infrastructure/telemetry"
)

// App is a fully wired import pipeline
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *persistence.Database
	Telemetry *telemetry.Providers
	Reporting *reporting.Client
	Days      *receiptimport.DayImporter
	Ranges    *receiptimport.RangeImporter
	Location  *time.Location

	cache    *cache.Factory
	receipts *persistence.GormReceiptRepository
}

// ImportOptions maps the import and reporting sections onto day import options
func ImportOptions(cfg *config.Config) (receiptimport.Options, error) {
	policy, err := receiptimport.ParseFailurePolicy(cfg.Import.RangeFailurePolicy)
	if err != nil {
		return receiptimport.Options{}, err
	}
	return receiptimport.Options{
		DiagnosticDumpEnabled:    cfg.Import.DiagnosticDumpEnabled,
		AtomicPersist:            cfg.Import.AtomicPersist,
		ReturnSourceLookbackDays: cfg.Import.ReturnSourceLookbackDays,
		MaxAggregatesPerQuery:    cfg.Reporting.MaxAggregatesPerQuery,
		MaxGroupColumnsPerQuery:  cfg.Reporting.MaxGroupColumnsPerQuery,
		RangeFailurePolicy:       policy,
	}, nil
}

// New connects every dependency. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger) (app *App, err error) {
	app = &App{Config: cfg, Logger: base}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	app.Location, err = cfg.Import.Location()
	if err != nil {
		return app, fmt.Errorf("import.timezone: %w", err)
	}
	opts, err := ImportOptions(cfg)
	if err != nil {
		return app, err
	}

	app.Telemetry, err = telemetry.Setup(ctx, telemetry.FromAppConfig(cfg.Telemetry), base)
	if err != nil {
		return app, fmt.Errorf("telemetry: %w", err)
	}
	app.Logger = app.Telemetry.Logs.Bridge(base, zapcore.InfoLevel)
	log := app.Logger

	app.DB, err = OpenDatabase(cfg, log)
	if err != nil {
		return app, err
	}

	app.cache = cache.NewFactory(cfg.Redis, log)
	tokens, err := app.cache.TokenStore(ctx, cfg.Reporting.TokenStore)
	if err != nil {
		return app, fmt.Errorf("token store: %w", err)
	}
	locker, err := app.cache.DayLocker(ctx, cfg.Import)
	if err != nil {
		return app, fmt.Errorf("day locker: %w", err)
	}

	app.Reporting, err = reporting.NewClient(reporting.FromAppConfig(cfg.Reporting), tokens, log)
	if err != nil {
		return app, err
	}

	app.receipts = persistence.NewGormReceiptRepository(app.DB.DB)
	var kv receipt.OlapRowKVRepository
	if opts.DiagnosticDumpEnabled {
		kv = persistence.NewGormOlapRowKVRepository(app.DB.DB, cfg.Import.KVBatchSize)
	}

	metrics, err := telemetry.NewImportMetrics(app.Telemetry.Meter.Meter("receipt-import"))
	if err != nil {
		return app, fmt.Errorf("import metrics: %w", err)
	}

	app.Days = receiptimport.NewDayImporter(app.Reporting, app.receipts, kv, opts, log)
	app.Days.SetLocker(locker)
	app.Days.SetRecorder(metrics)
	app.Ranges = receiptimport.NewRangeImporter(app.Days, opts.RangeFailurePolicy, log)

	log.Info("Import pipeline ready",
		zap.String("timezone", app.Location.String()),
		zap.String("token_store", cfg.Reporting.TokenStore),
		zap.Bool("lock_enabled", cfg.Import.LockEnabled),
		zap.Bool("diagnostic_dump", opts.DiagnosticDumpEnabled),
		zap.String("range_failure_policy", string(opts.RangeFailurePolicy)),
	)
	return app, nil
}

// Receipts returns the receipt store the importers write to
func (a *App) Receipts() receipt.ReceiptRepository {
	return a.receipts
}

// OpenDatabase connects to postgres with the zap-backed GORM logger and
// registers otelgorm when database tracing is on
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	storeLogOpts := []logger.StoreLoggerOption{logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh)}
	if cfg.Telemetry.DBLogFullSQL {
		storeLogOpts = append(storeLogOpts, logger.WithSQLLimit(0))
	}
	gormLog := logger.NewStoreLogger(log, logger.MapGormLogLevel(cfg.Log.Level), storeLogOpts...)

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := tracing.RegisterOtelGorm(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database tracing: %w", err)
	}

	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
	)
	return db, nil
}

// Close logs out of the reporting API and releases every connection
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Reporting != nil {
		if err := a.Reporting.Logout(ctx); err != nil {
			a.Logger.Warn("Reporting logout failed", zap.Error(err))
		}
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
