package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/restoledger/backend/internal/domain/receipt"
	"github.com/restoledger/backend/internal/domain/shared"
)

// MemoryReceiptRepository is an in-memory receipt.ReceiptRepository
type MemoryReceiptRepository struct {
	mu       sync.Mutex
	receipts map[receipt.Key]receipt.Receipt
	items    map[uuid.UUID][]receipt.ReceiptItem

	// FailOrder makes any write of that order number fail with FailErr
	FailOrder string
	FailErr   error

	Upserts  int
	Replaces int
}

// NewMemoryReceiptRepository creates an empty repository
func NewMemoryReceiptRepository() *MemoryReceiptRepository {
	return &MemoryReceiptRepository{
		receipts: make(map[receipt.Key]receipt.Receipt),
		items:    make(map[uuid.UUID][]receipt.ReceiptItem),
	}
}

// Upsert implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) Upsert(_ context.Context, r *receipt.Receipt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(r)
}

func (m *MemoryReceiptRepository) upsertLocked(r *receipt.Receipt) (bool, error) {
	if m.FailOrder != "" && r.OrderNum == m.FailOrder {
		return false, m.FailErr
	}
	m.Upserts++
	key := receipt.Key{OrderNum: r.OrderNum, Date: receipt.Day(r.Date)}
	stored, ok := m.receipts[key]
	if ok {
		r.BaseEntity = stored.BaseEntity
		r.UpdatedAt = time.Now().UTC()
	} else {
		r.BaseEntity = shared.NewBaseEntity()
	}
	cp := *r
	cp.Items = nil
	cp.PayTypes = append([]string(nil), r.PayTypes...)
	m.receipts[key] = cp
	return !ok, nil
}

// ReplaceItems implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) ReplaceItems(_ context.Context, receiptID uuid.UUID, items []receipt.ReceiptItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceLocked(receiptID, items)
	return nil
}

func (m *MemoryReceiptRepository) replaceLocked(receiptID uuid.UUID, items []receipt.ReceiptItem) {
	m.Replaces++
	cp := make([]receipt.ReceiptItem, len(items))
	for i, it := range items {
		it.ReceiptID = receiptID
		it.LineNo = i + 1
		cp[i] = it
	}
	m.items[receiptID] = cp
}

// SaveWithItems implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) SaveWithItems(_ context.Context, r *receipt.Receipt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created, err := m.upsertLocked(r)
	if err != nil {
		return false, err
	}
	m.replaceLocked(r.ID, r.Items)
	return created, nil
}

// FindByKey implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) FindByKey(_ context.Context, orderNum string, date time.Time) (*receipt.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[receipt.Key{OrderNum: orderNum, Date: receipt.Day(date)}]
	if !ok {
		return nil, receipt.ErrReceiptNotFound
	}
	r.Items = append([]receipt.ReceiptItem(nil), m.items[r.ID]...)
	return &r, nil
}

// FindByDate implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) FindByDate(_ context.Context, date time.Time) ([]receipt.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	day := receipt.Day(date)
	var out []receipt.Receipt
	for k, r := range m.receipts {
		if k.Date.Equal(day) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

// FindItems implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) FindItems(_ context.Context, receiptID uuid.UUID) ([]receipt.ReceiptItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]receipt.ReceiptItem(nil), m.items[receiptID]...), nil
}

// ExistsByOrderNumBetween implements receipt.ReceiptRepository
func (m *MemoryReceiptRepository) ExistsByOrderNumBetween(_ context.Context, orderNum string, from, to time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, to = receipt.Day(from), receipt.Day(to)
	for k := range m.receipts {
		if k.OrderNum == orderNum && !k.Date.Before(from) && !k.Date.After(to) {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of stored receipts
func (m *MemoryReceiptRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receipts)
}

// MemoryKVRepository is an in-memory receipt.OlapRowKVRepository
type MemoryKVRepository struct {
	mu   sync.Mutex
	Days map[time.Time][]receipt.OlapRowKV
	Err  error
}

// NewMemoryKVRepository creates an empty repository
func NewMemoryKVRepository() *MemoryKVRepository {
	return &MemoryKVRepository{Days: make(map[time.Time][]receipt.OlapRowKV)}
}

// ReplaceDay implements receipt.OlapRowKVRepository
func (m *MemoryKVRepository) ReplaceDay(_ context.Context, day time.Time, rows []receipt.OlapRowKV) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	seen := make(map[receipt.KVKey]struct{}, len(rows))
	kept := make([]receipt.OlapRowKV, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Key()]; dup {
			continue
		}
		seen[r.Key()] = struct{}{}
		kept = append(kept, r)
	}
	m.Days[receipt.Day(day)] = kept
	return len(kept), nil
}

// CountByDate implements receipt.OlapRowKVRepository
func (m *MemoryKVRepository) CountByDate(_ context.Context, day time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Days[receipt.Day(day)])), nil
}
