package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restoledger/backend/internal/domain/receipt"
)

var repoDay = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func setupReceiptTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func sampleReceipt(orderNum string, items ...string) *receipt.Receipt {
	r := receipt.NewReceipt(orderNum, repoDay)
	r.Waiter = "Anna"
	r.Net = decimal.NewFromInt(2000)
	r.Cost = decimal.RequireFromString("640.5")
	r.Guests = 4
	r.AddPayType("cash")
	r.AddPayType("card")
	open := repoDay.Add(12 * time.Hour)
	r.OpenTime = &open
	for _, name := range items {
		r.Items = append(r.Items, receipt.ReceiptItem{
			DishID:   name,
			DishName: name,
			Qty:      decimal.NewFromInt(1),
			Net:      decimal.NewFromInt(100),
		})
	}
	return r
}

func TestGormReceiptRepository_Upsert(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	t.Run("inserts then updates by natural key", func(t *testing.T) {
		r := sampleReceipt("42")
		created, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
		assert.True(t, created)
		firstID := r.ID

		again := sampleReceipt("42")
		again.Waiter = ""
		again.Net = decimal.NewFromInt(1500)
		again.IsDeleted = true
		created, err = repo.Upsert(ctx, again)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, firstID, again.ID)

		found, err := repo.FindByKey(ctx, "42", repoDay.Add(5*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, firstID, found.ID)
		assert.True(t, decimal.NewFromInt(1500).Equal(found.Net))
		assert.Equal(t, "", found.Waiter)
		assert.True(t, found.IsDeleted)
		assert.Equal(t, []string{"card", "cash"}, found.PayTypes)
		assert.Equal(t, 4, found.Guests)
		require.NotNil(t, found.OpenTime)
		assert.Equal(t, 12, found.OpenTime.Hour())
	})

	t.Run("same order on another day is a new receipt", func(t *testing.T) {
		r := sampleReceipt("42")
		r.Date = repoDay.AddDate(0, 0, 1)
		created, err := repo.Upsert(ctx, r)
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestGormReceiptRepository_ReplaceItems(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	r := sampleReceipt("42", "soup", "tea", "cake")
	_, err := repo.SaveWithItems(ctx, r)
	require.NoError(t, err)

	items, err := repo.FindItems(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NoError(t, repo.ReplaceItems(ctx, r.ID, []receipt.ReceiptItem{{DishID: "tea", DishName: "tea"}}))
	items, err = repo.FindItems(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tea", items[0].DishName)
	assert.Equal(t, 1, items[0].LineNo)

	require.NoError(t, repo.ReplaceItems(ctx, r.ID, nil))
	items, err = repo.FindItems(ctx, r.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormReceiptRepository_SaveWithItemsIsIdempotent(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	created, err := repo.SaveWithItems(ctx, sampleReceipt("42", "soup", "tea"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.SaveWithItems(ctx, sampleReceipt("42", "soup", "tea"))
	require.NoError(t, err)
	assert.False(t, created)

	var receipts, items int64
	db.Table("receipts").Count(&receipts)
	db.Table("receipt_items").Count(&items)
	assert.Equal(t, int64(1), receipts)
	assert.Equal(t, int64(2), items)
}

func TestGormReceiptRepository_FindByDate(t *testing.T) {
	db := setupReceiptTestDB(t)
	repo := NewGormReceiptRepository(db)
	ctx := context.Background()

	for _, num := range []string{"30", "10", "20"} {
		_, err := repo.SaveWithItems(ctx, sampleReceipt(num, "soup"))
		require.NoError(t, err)
	}
	other := sampleReceipt("99")
	other.Date = repoDay.AddDate(0, 0, -1)
	_, err := repo.Upsert(ctx, other)
	require.NoError(t, err)

	found, err := repo.FindByDate(ctx, repoDay)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "10", found[0].OrderNum)
	assert.Equal(t, "30", found[2].OrderNum)
	assert.Len(t, found[1].Items, 1)

	empty, err := repo.FindByDate(ctx, repoDay.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormReceiptRepository_FindByKeyNotFound(t *testing.T) {
	repo := NewGormReceiptRepository(setupReceiptTestDB(t))
	_, err := repo.FindByKey(context.Background(), "404", repoDay)
	assert.ErrorIs(t, err, receipt.ErrReceiptNotFound)
}

func TestGormReceiptRepository_ExistsByOrderNumBetween(t *testing.T) {
	repo := NewGormReceiptRepository(setupReceiptTestDB(t))
	ctx := context.Background()

	r := sampleReceipt("777")
	r.Date = repoDay.AddDate(0, 0, -20)
	_, err := repo.Upsert(ctx, r)
	require.NoError(t, err)

	tests := []struct {
		name     string
		orderNum string
		from, to time.Time
		want     bool
	}{
		{"inside window", "777", repoDay.AddDate(0, 0, -30), repoDay, true},
		{"window bounds are inclusive", "777", r.Date, r.Date, true},
		{"before window", "777", repoDay.AddDate(0, 0, -10), repoDay, false},
		{"after window", "777", repoDay.AddDate(0, 0, -40), repoDay.AddDate(0, 0, -21), false},
		{"other order", "778", repoDay.AddDate(0, 0, -30), repoDay, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists, err := repo.ExistsByOrderNumBetween(ctx, tt.orderNum, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, exists)
		})
	}
}
