package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "restoledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "restoledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.Equal(t, "SALES", cfg.Reporting.ReportType)
		assert.Equal(t, 50*time.Minute, cfg.Reporting.TokenTTL)
		assert.Equal(t, 20, cfg.Reporting.MaxAggregatesPerQuery)
		assert.Equal(t, 10, cfg.Reporting.MaxGroupColumnsPerQuery)
		assert.Equal(t, "memory", cfg.Reporting.TokenStore)

		assert.False(t, cfg.Import.DiagnosticDumpEnabled)
		assert.True(t, cfg.Import.AtomicPersist)
		assert.Equal(t, 30, cfg.Import.ReturnSourceLookbackDays)
		assert.Equal(t, 31, cfg.HTTP.MaxImportRangeDays)
		assert.Equal(t, "abort", cfg.Import.RangeFailurePolicy)
		assert.Equal(t, 500, cfg.Import.KVBatchSize)

		assert.Equal(t, 4, cfg.Scheduler.DailyHour)
		assert.Equal(t, time.Minute, cfg.Scheduler.CheckInterval)
	})

	t.Run("loads values from environment variables with RESTO prefix", func(t *testing.T) {
		t.Setenv("RESTO_APP_NAME", "test-app")
		t.Setenv("RESTO_DATABASE_HOST", "testdb.local")
		t.Setenv("RESTO_DATABASE_PORT", "5433")
		t.Setenv("RESTO_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("RESTO_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("RESTO_REPORTING_BASE_URL", "https://pos.example.com")
		t.Setenv("RESTO_REPORTING_TOKEN_STORE", "redis")
		t.Setenv("RESTO_IMPORT_DIAGNOSTIC_DUMP_ENABLED", "true")
		t.Setenv("RESTO_IMPORT_ATOMIC_PERSIST", "false")
		t.Setenv("RESTO_IMPORT_RANGE_FAILURE_POLICY", "continue")
		t.Setenv("RESTO_IMPORT_TIMEZONE", "Europe/Moscow")
		t.Setenv("RESTO_SCHEDULER_DAILY_HOUR", "6")
		t.Setenv("RESTO_SCHEDULER_DAILY_MINUTE", "30")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "https://pos.example.com", cfg.Reporting.BaseURL)
		assert.Equal(t, "redis", cfg.Reporting.TokenStore)
		assert.True(t, cfg.Import.DiagnosticDumpEnabled)
		assert.False(t, cfg.Import.AtomicPersist)
		assert.Equal(t, "continue", cfg.Import.RangeFailurePolicy)
		assert.Equal(t, 6, cfg.Scheduler.DailyHour)
		assert.Equal(t, 30, cfg.Scheduler.DailyMinute)

		loc, err := cfg.Import.Location()
		require.NoError(t, err)
		assert.Equal(t, "Europe/Moscow", loc.String())
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("RESTO_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("RESTO_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		t.Setenv("RESTO_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects unknown token store", func(t *testing.T) {
		t.Setenv("RESTO_REPORTING_TOKEN_STORE", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reporting.token_store")
	})

	t.Run("rejects unknown range failure policy", func(t *testing.T) {
		t.Setenv("RESTO_IMPORT_RANGE_FAILURE_POLICY", "retry")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "range_failure_policy")
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		t.Setenv("RESTO_IMPORT_TIMEZONE", "Mars/Olympus")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import.timezone")
	})

	t.Run("rejects out of range daily hour", func(t *testing.T) {
		t.Setenv("RESTO_SCHEDULER_DAILY_HOUR", "24")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler.daily_hour")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("RESTO_APP_ENV", "production")
		t.Setenv("RESTO_ADMIN_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("RESTO_DATABASE_PASSWORD", "secure-password")
	}

	t.Run("requires admin.jwt_secret in production", func(t *testing.T) {
		t.Setenv("RESTO_APP_ENV", "production")
		t.Setenv("RESTO_DATABASE_PASSWORD", "secure-password")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "admin.jwt_secret is required in production")
	})

	t.Run("requires admin.jwt_secret at least 32 characters in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("RESTO_ADMIN_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		t.Setenv("RESTO_APP_ENV", "production")
		t.Setenv("RESTO_ADMIN_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
