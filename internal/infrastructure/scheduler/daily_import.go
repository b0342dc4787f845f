package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/application/receiptimport"
	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/config"
)

// DailyImportConfig holds configuration for the daily receipt import trigger
type DailyImportConfig struct {
	Enabled bool
	// Hour and Minute are the wall-clock time in Location at which yesterday is imported
	Hour     int
	Minute   int
	Location *time.Location
	// CheckInterval is how often the clock is compared against the schedule
	CheckInterval time.Duration
	// JobTimeout bounds one day import
	JobTimeout time.Duration
}

// DefaultDailyImportConfig runs at 04:00 UTC
func DefaultDailyImportConfig() DailyImportConfig {
	return DailyImportConfig{
		Enabled:       true,
		Hour:          4,
		Location:      time.UTC,
		CheckInterval: time.Minute,
		JobTimeout:    30 * time.Minute,
	}
}

// DailyImportConfigFrom maps the application config sections
func DailyImportConfigFrom(s config.SchedulerConfig, loc *time.Location) DailyImportConfig {
	return DailyImportConfig{
		Enabled:       s.Enabled,
		Hour:          s.DailyHour,
		Minute:        s.DailyMinute,
		Location:      loc,
		CheckInterval: s.CheckInterval,
		JobTimeout:    s.JobTimeout,
	}
}

// Validate checks the schedule
func (c *DailyImportConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return ErrInvalidConfig
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Minute
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Minute
	}
	return nil
}

// RunRecord describes the most recent triggered import
type RunRecord struct {
	Day        time.Time `json:"day"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Backfilled int       `json:"backfilled"`
	Degraded   bool      `json:"degraded"`
	Error      string    `json:"error,omitempty"`
}

// Status is a snapshot of the trigger state
type Status struct {
	Enabled   bool       `json:"enabled"`
	IsRunning bool       `json:"is_running"`
	Hour      int        `json:"hour"`
	Minute    int        `json:"minute"`
	Timezone  string     `json:"timezone"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastRun   *RunRecord `json:"last_run,omitempty"`
}

// DailyImportTrigger imports the previous business day once a day.
// A day whose scheduled time passed while the process was down is not caught up.
type DailyImportTrigger struct {
	config   DailyImportConfig
	importer receiptimport.DayRunner
	logger   *zap.Logger
	now      func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	busy      bool
	lastFired time.Time // business day of the last scheduled firing
	lastRun   *RunRecord
}

// NewDailyImportTrigger creates a daily trigger around a day importer
func NewDailyImportTrigger(cfg DailyImportConfig, importer receiptimport.DayRunner, logger *zap.Logger) (*DailyImportTrigger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyImportTrigger{
		config:   cfg,
		importer: importer,
		logger:   logger.Named("daily_import"),
		now:      time.Now,
	}, nil
}

// Start begins watching the clock
func (s *DailyImportTrigger) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Daily receipt import is disabled")
		return nil
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	// a start after today's slot waits for tomorrow
	now := s.now().In(s.config.Location)
	if !now.Before(s.slot(now)) {
		s.lastFired = receipt.Day(now)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Daily receipt import scheduled",
		zap.Int("hour", s.config.Hour),
		zap.Int("minute", s.config.Minute),
		zap.String("timezone", s.config.Location.String()),
		zap.Time("next_run_at", s.nextRunAt(now)),
	)
	return nil
}

// Stop cancels the loop and waits for a running import up to ctx's deadline
func (s *DailyImportTrigger) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Daily receipt import stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Daily receipt import stop timed out")
		return ctx.Err()
	}
}

func (s *DailyImportTrigger) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires the import when today's slot has passed and today has not fired yet
func (s *DailyImportTrigger) tick(ctx context.Context) {
	now := s.now().In(s.config.Location)
	today := receipt.Day(now)

	s.mu.Lock()
	due := now.After(s.slot(now)) || now.Equal(s.slot(now))
	if !due || s.lastFired.Equal(today) || s.busy {
		s.mu.Unlock()
		return
	}
	s.lastFired = today
	s.mu.Unlock()

	_, _ = s.run(ctx, today.AddDate(0, 0, -1))
}

// RunNow imports day immediately, outside the schedule
func (s *DailyImportTrigger) RunNow(ctx context.Context, day time.Time) (*RunRecord, error) {
	return s.run(ctx, receipt.Day(day))
}

func (s *DailyImportTrigger) run(ctx context.Context, day time.Time) (*RunRecord, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, receiptimport.ErrImportInProgress
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	rec := &RunRecord{Day: day, StartedAt: s.now()}
	s.logger.Info("Starting scheduled receipt import", zap.Time("day", day))

	result, err := s.importer.ImportDay(ctx, day)
	rec.FinishedAt = s.now()
	rec.Created, rec.Updated, rec.Backfilled = result.Created, result.Updated, result.Backfilled
	rec.Degraded = result.Degraded()
	if err != nil {
		rec.Error = err.Error()
		s.logger.Error("Scheduled receipt import failed", zap.Time("day", day), zap.Error(err))
	} else {
		s.logger.Info("Scheduled receipt import completed",
			zap.Time("day", day),
			zap.Int("created", rec.Created),
			zap.Int("updated", rec.Updated),
			zap.Int("backfilled", rec.Backfilled),
			zap.Bool("degraded", rec.Degraded),
			zap.Duration("duration", rec.FinishedAt.Sub(rec.StartedAt)),
		)
	}

	s.mu.Lock()
	s.lastRun = rec
	s.mu.Unlock()
	return rec, err
}

// Status returns a snapshot of the trigger state
func (s *DailyImportTrigger) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Enabled:   s.config.Enabled,
		IsRunning: s.isRunning,
		Hour:      s.config.Hour,
		Minute:    s.config.Minute,
		Timezone:  s.config.Location.String(),
	}
	if s.isRunning {
		next := s.nextRunAt(s.now().In(s.config.Location))
		st.NextRunAt = &next
	}
	if s.lastRun != nil {
		rec := *s.lastRun
		st.LastRun = &rec
	}
	return st
}

// slot is today's scheduled time in the business timezone
func (s *DailyImportTrigger) slot(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
}

// nextRunAt must be called with mu held or before the loop starts
func (s *DailyImportTrigger) nextRunAt(now time.Time) time.Time {
	next := s.slot(now)
	if s.lastFired.Equal(receipt.Day(now)) || now.After(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
