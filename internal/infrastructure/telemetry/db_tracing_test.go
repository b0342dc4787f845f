package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restoledger/backend/internal/infrastructure/telemetry"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T, cfg telemetry.DBTracingConfig) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, telemetry.NewDBTracingPlugin(cfg, zapNop()).RegisterOtelGorm(db))
	return db
}

func TestDBTracingPlugin_RecordsQuerySpans(t *testing.T) {
	sr := setupTestTracer(t)
	cfg := telemetry.DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	db := openTracedDB(t, cfg)

	ctx, parent := telemetry.StartSpan(context.Background(), "receipt_import.persist")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "42"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	parent.End()

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Parent().SpanID() == parent.SpanContext().SpanID() {
			dbSpans++
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	db := openTracedDB(t, telemetry.DefaultDBTracingConfig())

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Name: "42"}).Error)
	assert.Empty(t, sr.Ended())
}
