package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Reporting ReportingConfig
	Import    ImportConfig
	Scheduler SchedulerConfig
	HTTP      HTTPConfig
	Admin     AdminConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr is the host:port pair go-redis dials
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// ReportingConfig holds the upstream POS reporting API settings
type ReportingConfig struct {
	BaseURL                 string
	Login                   string
	Password                string
	ReportType              string
	Timeout                 time.Duration
	TokenTTL                time.Duration
	RequestsPerSecond       float64
	MaxAggregatesPerQuery   int
	MaxGroupColumnsPerQuery int
	TokenStore              string // memory, redis
}

// ImportConfig holds receipt import settings
type ImportConfig struct {
	Timezone                 string
	DiagnosticDumpEnabled    bool
	KVBatchSize              int
	AtomicPersist            bool
	ReturnSourceLookbackDays int
	RangeFailurePolicy       string // abort, continue
	LockEnabled              bool
	LockTTL                  time.Duration
}

// Location resolves the business timezone; UTC when unset
func (c ImportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SchedulerConfig holds the daily import trigger settings
type SchedulerConfig struct {
	Enabled       bool
	DailyHour     int
	DailyMinute   int
	CheckInterval time.Duration
	JobTimeout    time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	RateLimitRPS   float64 // per client IP; 0 disables
	RateLimitBurst int
	// MaxImportRangeDays caps the span of one range import request
	MaxImportRangeDays int
}

// AdminConfig holds the admin API token settings
type AdminConfig struct {
	JWTSecret string
	Issuer    string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RESTO_ prefix (e.g., RESTO_REPORTING_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("RESTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Settings whose zero value is meaningful need a viper default
	v.SetDefault("import.atomic_persist", true)
	v.SetDefault("scheduler.daily_hour", 4)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Reporting: ReportingConfig{
			BaseURL:                 v.GetString("reporting.base_url"),
			Login:                   v.GetString("reporting.login"),
			Password:                v.GetString("reporting.password"),
			ReportType:              v.GetString("reporting.report_type"),
			Timeout:                 v.GetDuration("reporting.timeout"),
			TokenTTL:                v.GetDuration("reporting.token_ttl"),
			RequestsPerSecond:       v.GetFloat64("reporting.requests_per_second"),
			MaxAggregatesPerQuery:   v.GetInt("reporting.max_aggregates_per_query"),
			MaxGroupColumnsPerQuery: v.GetInt("reporting.max_group_columns_per_query"),
			TokenStore:              v.GetString("reporting.token_store"),
		},
		Import: ImportConfig{
			Timezone:                 v.GetString("import.timezone"),
			DiagnosticDumpEnabled:    v.GetBool("import.diagnostic_dump_enabled"),
			KVBatchSize:              v.GetInt("import.kv_batch_size"),
			AtomicPersist:            v.GetBool("import.atomic_persist"),
			ReturnSourceLookbackDays: v.GetInt("import.return_source_lookback_days"),
			RangeFailurePolicy:       v.GetString("import.range_failure_policy"),
			LockEnabled:              v.GetBool("import.lock_enabled"),
			LockTTL:                  v.GetDuration("import.lock_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			DailyHour:     v.GetInt("scheduler.daily_hour"),
			DailyMinute:   v.GetInt("scheduler.daily_minute"),
			CheckInterval: v.GetDuration("scheduler.check_interval"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:        v.GetDuration("http.read_timeout"),
			WriteTimeout:       v.GetDuration("http.write_timeout"),
			IdleTimeout:        v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:     v.GetInt("http.max_header_bytes"),
			MaxBodySize:        v.GetInt64("http.max_body_size"),
			RateLimitRPS:       v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:     v.GetInt("http.rate_limit_burst"),
			MaxImportRangeDays: v.GetInt("http.max_import_range_days"),
		},
		Admin: AdminConfig{
			JWTSecret: v.GetString("admin.jwt_secret"),
			Issuer:    v.GetString("admin.issuer"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "restoledger"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "restoledger"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "restoledger"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}

	if cfg.Reporting.ReportType == "" {
		cfg.Reporting.ReportType = "SALES"
	}
	if cfg.Reporting.Timeout == 0 {
		cfg.Reporting.Timeout = 60 * time.Second
	}
	if cfg.Reporting.TokenTTL == 0 {
		cfg.Reporting.TokenTTL = 50 * time.Minute
	}
	if cfg.Reporting.RequestsPerSecond == 0 {
		cfg.Reporting.RequestsPerSecond = 2
	}
	if cfg.Reporting.MaxAggregatesPerQuery == 0 {
		cfg.Reporting.MaxAggregatesPerQuery = 20
	}
	if cfg.Reporting.MaxGroupColumnsPerQuery == 0 {
		cfg.Reporting.MaxGroupColumnsPerQuery = 10
	}
	if cfg.Reporting.TokenStore == "" {
		cfg.Reporting.TokenStore = "memory"
	}

	if cfg.Import.Timezone == "" {
		cfg.Import.Timezone = "UTC"
	}
	if cfg.Import.KVBatchSize == 0 {
		cfg.Import.KVBatchSize = 500
	}
	if cfg.Import.ReturnSourceLookbackDays == 0 {
		cfg.Import.ReturnSourceLookbackDays = 30
	}
	if cfg.Import.RangeFailurePolicy == "" {
		cfg.Import.RangeFailurePolicy = "abort"
	}
	if cfg.Import.LockTTL == 0 {
		cfg.Import.LockTTL = 30 * time.Minute
	}

	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Range imports run inside the request
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.MaxImportRangeDays == 0 {
		cfg.HTTP.MaxImportRangeDays = 31
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 10
	}

	if cfg.Admin.Issuer == "" {
		cfg.Admin.Issuer = "restoledger"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Admin.JWTSecret == "" {
			return fmt.Errorf("admin.jwt_secret is required in production")
		}
		if len(c.Admin.JWTSecret) < 32 {
			return fmt.Errorf("admin.jwt_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	switch c.Reporting.TokenStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("reporting.token_store must be memory or redis, got %q", c.Reporting.TokenStore)
	}
	if c.Reporting.RequestsPerSecond < 0 {
		return fmt.Errorf("reporting.requests_per_second cannot be negative")
	}

	switch c.Import.RangeFailurePolicy {
	case "abort", "continue":
	default:
		return fmt.Errorf("import.range_failure_policy must be abort or continue, got %q", c.Import.RangeFailurePolicy)
	}
	if c.Import.ReturnSourceLookbackDays < 0 {
		return fmt.Errorf("import.return_source_lookback_days cannot be negative")
	}
	if _, err := c.Import.Location(); err != nil {
		return fmt.Errorf("import.timezone: %w", err)
	}

	if c.Scheduler.DailyHour < 0 || c.Scheduler.DailyHour > 23 {
		return fmt.Errorf("scheduler.daily_hour must be between 0 and 23, got %d", c.Scheduler.DailyHour)
	}
	if c.Scheduler.DailyMinute < 0 || c.Scheduler.DailyMinute > 59 {
		return fmt.Errorf("scheduler.daily_minute must be between 0 and 59, got %d", c.Scheduler.DailyMinute)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
