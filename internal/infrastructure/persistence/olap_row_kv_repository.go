package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/infrastructure/persistence/models"
)

// DefaultKVBatchSize bounds the rows of one diagnostic insert statement
const DefaultKVBatchSize = 500

// GormOlapRowKVRepository implements receipt.OlapRowKVRepository on GORM
type GormOlapRowKVRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewGormOlapRowKVRepository creates a new diagnostic dump repository
func NewGormOlapRowKVRepository(db *gorm.DB, batchSize int) *GormOlapRowKVRepository {
	if batchSize <= 0 {
		batchSize = DefaultKVBatchSize
	}
	return &GormOlapRowKVRepository{db: db, batchSize: batchSize}
}

// ReplaceDay deletes the day's cells and inserts rows in batches, skipping duplicate keys
func (r *GormOlapRowKVRepository) ReplaceDay(ctx context.Context, day time.Time, rows []receipt.OlapRowKV) (int, error) {
	day = receipt.Day(day)
	inserted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", day).Delete(&models.OlapRowKVModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		batch := make([]*models.OlapRowKVModel, len(rows))
		for i, kv := range rows {
			kv.Date = day
			batch[i] = models.OlapRowKVModelFromDomain(kv)
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(batch, r.batchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// CountByDate returns the number of cells stored for a day
func (r *GormOlapRowKVRepository) CountByDate(ctx context.Context, day time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OlapRowKVModel{}).
		Where("date = ?", receipt.Day(day)).
		Count(&count).Error
	return count, err
}

// FindByDate returns the cells of a day
func (r *GormOlapRowKVRepository) FindByDate(ctx context.Context, day time.Time) ([]receipt.OlapRowKV, error) {
	var rows []models.OlapRowKVModel
	if err := r.db.WithContext(ctx).
		Where("date = ?", receipt.Day(day)).
		Order("order_num, level, item_key, col").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]receipt.OlapRowKV, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
