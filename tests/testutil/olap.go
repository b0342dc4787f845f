package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/restoledger/backend/internal/domain/olap"
	"github.com/restoledger/backend/internal/domain/receipt"
)

// Query kinds recognised by ClassifyQuery
const (
	KindHeaders       = "headers"
	KindDeleted       = "deleted"
	KindReturns       = "returns"
	KindItems         = "items"
	KindSourceHeaders = "source_headers"
	KindSourceItems   = "source_items"
	KindDiagnostic    = "diagnostic"
)

// ClassifyQuery names the extract a query asks for, judged by its filters and grouping
func ClassifyQuery(q olap.Query) string {
	byItem := slices.Contains(q.GroupBy, olap.ColDishName)
	for _, f := range q.Filters {
		if f.Kind != olap.FilterIncludeValues {
			continue
		}
		switch f.Column {
		case olap.ColOrderNum:
			if byItem {
				return KindSourceItems
			}
			return KindSourceHeaders
		case olap.ColStorned:
			return KindReturns
		case olap.ColOrderDeleted:
			if len(f.Values) == 1 && f.Values[0] == olap.OrderDeleted {
				return KindDeleted
			}
			if byItem {
				return KindItems
			}
			return KindHeaders
		}
	}
	return KindDiagnostic
}

// SourceRows are the rows the cube returns for one backfilled order
type SourceRows struct {
	Headers []olap.Row
	Items   []olap.Row
}

// FakeOlapClient answers cube queries from canned rows, keyed by query kind
type FakeOlapClient struct {
	mu sync.Mutex

	Rows    map[string][]olap.Row
	Errors  map[string]error
	Sources map[string]SourceRows

	// Diagnostic answers diagnostic queries when set
	Diagnostic func(q olap.Query) []olap.Row
	ColumnSet  map[string]olap.ColumnInfo
	ColumnsErr error

	queries []olap.Query
}

// NewFakeOlapClient creates an empty fake client
func NewFakeOlapClient() *FakeOlapClient {
	return &FakeOlapClient{
		Rows:    make(map[string][]olap.Row),
		Errors:  make(map[string]error),
		Sources: make(map[string]SourceRows),
	}
}

// Query implements olap.Client
func (c *FakeOlapClient) Query(_ context.Context, q olap.Query) ([]olap.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)

	if err := q.Validate(); err != nil {
		return nil, err
	}
	kind := ClassifyQuery(q)
	if err := c.Errors[kind]; err != nil {
		return nil, err
	}
	switch kind {
	case KindSourceHeaders, KindSourceItems:
		src := c.Sources[sourceOrderNum(q)]
		if kind == KindSourceHeaders {
			return inDateRange(q, src.Headers), nil
		}
		return inDateRange(q, src.Items), nil
	case KindDiagnostic:
		if c.Diagnostic != nil {
			return c.Diagnostic(q), nil
		}
		return nil, nil
	}
	return inDateRange(q, c.Rows[kind]), nil
}

// inDateRange drops rows whose OpenDate falls outside the query's date filter.
// Rows without an OpenDate are kept.
func inDateRange(q olap.Query, rows []olap.Row) []olap.Row {
	var out []olap.Row
	for _, row := range rows {
		if matchesDateFilters(q, row) {
			out = append(out, row)
		}
	}
	return out
}

func matchesDateFilters(q olap.Query, row olap.Row) bool {
	for _, f := range q.Filters {
		if f.Kind != olap.FilterDateRange || f.Column != olap.ColOpenDate {
			continue
		}
		day, ok := row.OpenDate()
		if !ok {
			continue
		}
		if day.Before(receipt.Day(f.From)) || day.After(receipt.Day(f.To)) {
			return false
		}
	}
	return true
}

// Columns implements olap.Client
func (c *FakeOlapClient) Columns(context.Context) (map[string]olap.ColumnInfo, error) {
	if c.ColumnsErr != nil {
		return nil, c.ColumnsErr
	}
	return c.ColumnSet, nil
}

// Queries returns the queries received so far
func (c *FakeOlapClient) Queries() []olap.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]olap.Query(nil), c.queries...)
}

// CountKind returns how many queries of a kind were received
func (c *FakeOlapClient) CountKind(kind string) int {
	n := 0
	for _, q := range c.Queries() {
		if ClassifyQuery(q) == kind {
			n++
		}
	}
	return n
}

func sourceOrderNum(q olap.Query) string {
	for _, f := range q.Filters {
		if f.Column == olap.ColOrderNum && len(f.Values) > 0 {
			return f.Values[0]
		}
	}
	return ""
}
