package receiptimport

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
)

// DiagnosticDumper snapshots every cube column of a day into the wide-column store
type DiagnosticDumper struct {
	client        olap.Client
	kv            receipt.OlapRowKVRepository
	maxAggregates int
	maxGroups     int
	logger        *zap.Logger
}

// NewDiagnosticDumper creates a dumper that batches columns per the given limits
func NewDiagnosticDumper(client olap.Client, kv receipt.OlapRowKVRepository, maxAggregates, maxGroups int, logger *zap.Logger) *DiagnosticDumper {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if maxAggregates <= 0 {
		maxAggregates = def.MaxAggregatesPerQuery
	}
	if maxGroups <= 0 {
		maxGroups = def.MaxGroupColumnsPerQuery
	}
	return &DiagnosticDumper{client: client, kv: kv, maxAggregates: maxAggregates, maxGroups: maxGroups, logger: logger}
}

// Dump replaces the day's diagnostic cells and returns how many were stored
func (d *DiagnosticDumper) Dump(ctx context.Context, day time.Time) (int, error) {
	day = receipt.Day(day)
	cols, err := d.client.Columns(ctx)
	if err != nil {
		return 0, fmt.Errorf("list cube columns: %w", err)
	}
	aggregates, groups := splitColumns(cols)

	collector := newKVCollector(day)
	filters := []olap.Filter{dayFilter(day)}

	for _, batch := range chunk(aggregates, d.maxAggregates) {
		rows, err := d.client.Query(ctx, olap.Query{GroupBy: []string{olap.ColOrderNum}, Aggregates: batch, Filters: filters})
		if err != nil {
			return 0, fmt.Errorf("receipt-level aggregates: %w", err)
		}
		collector.add(rows, receipt.LevelReceipt)

		rows, err = d.client.Query(ctx, olap.Query{GroupBy: []string{olap.ColOrderNum, olap.ColDishID}, Aggregates: batch, Filters: filters})
		if err != nil {
			return 0, fmt.Errorf("item-level aggregates: %w", err)
		}
		collector.add(rows, receipt.LevelItem)
	}
	for _, batch := range chunk(groups, d.maxGroups) {
		groupBy := append([]string{olap.ColOrderNum}, batch...)
		rows, err := d.client.Query(ctx, olap.Query{GroupBy: groupBy, Filters: filters})
		if err != nil {
			return 0, fmt.Errorf("receipt-level dimensions: %w", err)
		}
		collector.add(rows, receipt.LevelReceipt)
	}

	inserted, err := d.kv.ReplaceDay(ctx, day, collector.rows)
	if err != nil {
		return 0, fmt.Errorf("replace diagnostic cells: %w", err)
	}
	d.logger.Debug("Diagnostic dump stored",
		zap.Time("date", day),
		zap.Int("cells", inserted),
		zap.Int("duplicates_skipped", collector.duplicates),
	)
	return inserted, nil
}

// splitColumns returns aggregatable and groupable columns, sorted, without the merge keys
func splitColumns(cols map[string]olap.ColumnInfo) (aggregates, groups []string) {
	for name, info := range cols {
		if name == olap.ColOrderNum || name == olap.ColDishID {
			continue
		}
		if info.AggregationAllowed {
			aggregates = append(aggregates, name)
		} else if info.GroupingAllowed {
			groups = append(groups, name)
		}
	}
	sort.Strings(aggregates)
	sort.Strings(groups)
	return aggregates, groups
}

func chunk(cols []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(cols); start += size {
		end := min(start+size, len(cols))
		out = append(out, cols[start:end])
	}
	return out
}

type kvCollector struct {
	day        time.Time
	seen       map[receipt.KVKey]struct{}
	rows       []receipt.OlapRowKV
	duplicates int
}

func newKVCollector(day time.Time) *kvCollector {
	return &kvCollector{day: day, seen: make(map[receipt.KVKey]struct{})}
}

func (c *kvCollector) add(rows []olap.Row, level receipt.Level) {
	for _, row := range rows {
		num := row.OrderNum()
		if num == "" {
			continue
		}
		itemKey := ""
		if level == receipt.LevelItem {
			itemKey = row.DishID()
		}
		for col := range row {
			if col == olap.ColOrderNum || (level == receipt.LevelItem && col == olap.ColDishID) {
				continue
			}
			cell, ok := toCell(row, col)
			if !ok {
				continue
			}
			cell.Date, cell.OrderNum, cell.Level, cell.ItemKey = c.day, num, level, itemKey
			if _, dup := c.seen[cell.Key()]; dup {
				c.duplicates++
				continue
			}
			c.seen[cell.Key()] = struct{}{}
			c.rows = append(c.rows, cell)
		}
	}
}

func toCell(row olap.Row, col string) (receipt.OlapRowKV, bool) {
	v, ok := row.Value(col)
	if !ok {
		return receipt.OlapRowKV{}, false
	}
	cell := receipt.OlapRowKV{Col: col}
	switch v.(type) {
	case json.Number, float64, float32, int, int64:
		if n, ok := row.Number(col); ok {
			cell.ValNum = &n
			return cell, true
		}
	}
	s, ok := row.String(col)
	if !ok {
		return receipt.OlapRowKV{}, false
	}
	cell.ValStr = &s
	return cell, true
}
