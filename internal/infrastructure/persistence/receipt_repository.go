package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/domain/shared"
	"github.com/restoledger/backend/internal/infrastructure/persistence/models"
)

const itemInsertBatchSize = 100

// GormReceiptRepository implements receipt.ReceiptRepository on GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new receipt repository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// Upsert inserts or overwrites the scalar fields of r keyed by (OrderNum, Date)
func (r *GormReceiptRepository) Upsert(ctx context.Context, rec *receipt.Receipt) (bool, error) {
	return upsertReceipt(r.db.WithContext(ctx), rec)
}

// ReplaceItems deletes every item of the receipt and inserts items numbered 1..n
func (r *GormReceiptRepository) ReplaceItems(ctx context.Context, receiptID uuid.UUID, items []receipt.ReceiptItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceItems(tx, receiptID, items)
	})
}

// SaveWithItems upserts the receipt and replaces its items in one transaction
func (r *GormReceiptRepository) SaveWithItems(ctx context.Context, rec *receipt.Receipt) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = upsertReceipt(tx, rec)
		if err != nil {
			return err
		}
		rec.NumberItems()
		return replaceItems(tx, rec.ID, rec.Items)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// FindByKey returns the receipt with its items
func (r *GormReceiptRepository) FindByKey(ctx context.Context, orderNum string, date time.Time) (*receipt.Receipt, error) {
	var model models.ReceiptModel
	err := r.db.WithContext(ctx).
		Where("order_num = ? AND date = ?", orderNum, receipt.Day(date)).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, receipt.ErrReceiptNotFound
		}
		return nil, err
	}
	rec := model.ToDomain()
	items, err := r.FindItems(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Items = items
	return rec, nil
}

// FindByDate returns every receipt of a day ordered by order number, items attached
func (r *GormReceiptRepository) FindByDate(ctx context.Context, date time.Time) ([]receipt.Receipt, error) {
	var rows []models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Where("date = ?", receipt.Day(date)).
		Order("order_num ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []receipt.Receipt{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var itemRows []models.ReceiptItemModel
	if err := r.db.WithContext(ctx).
		Where("receipt_id IN ?", ids).
		Order("line_no ASC").
		Find(&itemRows).Error; err != nil {
		return nil, err
	}
	byReceipt := make(map[uuid.UUID][]receipt.ReceiptItem, len(rows))
	for i := range itemRows {
		byReceipt[itemRows[i].ReceiptID] = append(byReceipt[itemRows[i].ReceiptID], itemRows[i].ToDomain())
	}

	out := make([]receipt.Receipt, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
		out[i].Items = byReceipt[rows[i].ID]
	}
	return out, nil
}

// FindItems returns the items of a receipt ordered by line number
func (r *GormReceiptRepository) FindItems(ctx context.Context, receiptID uuid.UUID) ([]receipt.ReceiptItem, error) {
	var rows []models.ReceiptItemModel
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("line_no ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]receipt.ReceiptItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// ExistsByOrderNumBetween reports whether the order is stored on a date in [from, to]
func (r *GormReceiptRepository) ExistsByOrderNumBetween(ctx context.Context, orderNum string, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("order_num = ? AND date BETWEEN ? AND ?", orderNum, receipt.Day(from), receipt.Day(to)).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func upsertReceipt(db *gorm.DB, rec *receipt.Receipt) (bool, error) {
	rec.Date = receipt.Day(rec.Date)

	var existing models.ReceiptModel
	err := db.Where("order_num = ? AND date = ?", rec.OrderNum, rec.Date).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec.BaseEntity = shared.NewBaseEntity()
		if err := db.Create(models.ReceiptModelFromDomain(rec)).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	if err := db.Save(models.ReceiptModelFromDomain(rec)).Error; err != nil {
		return false, err
	}
	return false, nil
}

func replaceItems(tx *gorm.DB, receiptID uuid.UUID, items []receipt.ReceiptItem) error {
	if err := tx.Where("receipt_id = ?", receiptID).Delete(&models.ReceiptItemModel{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]*models.ReceiptItemModel, len(items))
	for i, it := range items {
		rows[i] = models.ReceiptItemModelFromDomain(receiptID, i+1, it, now)
	}
	return tx.CreateInBatches(rows, itemInsertBatchSize).Error
}
