package olap

import (
	"context"
	"errors"
	"time"
)

// FilterKind distinguishes the filter shapes the cube understands
type FilterKind string

const (
	FilterDateRange     FilterKind = "DateRange"
	FilterIncludeValues FilterKind = "IncludeValues"
)

const (
	dateLayout           = "2006-01-02"
	maxQueryColumnsTotal = 200
)

var (
	// ErrEmptyQuery is returned for a query without grouping columns
	ErrEmptyQuery = errors.New("olap: query needs at least one grouping column")
	// ErrInvalidFilter is returned for a malformed filter
	ErrInvalidFilter = errors.New("olap: invalid filter")
	// ErrColumnConflict is returned when a column is both grouped and aggregated
	ErrColumnConflict = errors.New("olap: column cannot be grouped and aggregated at once")
)

// Filter restricts the rows a query returns.
// Date ranges are inclusive on both ends and compare calendar days only.
type Filter struct {
	Column string
	Kind   FilterKind
	From   time.Time
	To     time.Time
	Values []string
}

// DateRange builds an inclusive calendar-day range filter
func DateRange(column string, from, to time.Time) Filter {
	return Filter{Column: column, Kind: FilterDateRange, From: from, To: to}
}

// IncludeValues builds a value-inclusion filter
func IncludeValues(column string, values ...string) Filter {
	return Filter{Column: column, Kind: FilterIncludeValues, Values: values}
}

// FromDay formats the lower bound as the cube expects it
func (f Filter) FromDay() string { return f.From.Format(dateLayout) }

// ToDay formats the upper bound as the cube expects it
func (f Filter) ToDay() string { return f.To.Format(dateLayout) }

// Validate checks the filter shape
func (f Filter) Validate() error {
	if f.Column == "" {
		return ErrInvalidFilter
	}
	switch f.Kind {
	case FilterDateRange:
		if f.From.IsZero() || f.To.IsZero() || f.To.Before(f.From) {
			return ErrInvalidFilter
		}
	case FilterIncludeValues:
		if len(f.Values) == 0 {
			return ErrInvalidFilter
		}
	default:
		return ErrInvalidFilter
	}
	return nil
}

// Query is one parameterized cube request
type Query struct {
	GroupBy    []string
	Aggregates []string
	Filters    []Filter
}

// Validate checks that the query can be sent upstream
func (q Query) Validate() error {
	if len(q.GroupBy) == 0 {
		return ErrEmptyQuery
	}
	if len(q.GroupBy)+len(q.Aggregates) > maxQueryColumnsTotal {
		return ErrInvalidFilter
	}
	grouped := make(map[string]struct{}, len(q.GroupBy))
	for _, c := range q.GroupBy {
		grouped[c] = struct{}{}
	}
	for _, c := range q.Aggregates {
		if _, ok := grouped[c]; ok {
			return ErrColumnConflict
		}
	}
	for _, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Client is the boundary to the upstream reporting API.
// Implementations own session handling and per-call timeouts.
type Client interface {
	// Query runs a cube query and returns its rows
	Query(ctx context.Context, q Query) ([]Row, error)
	// Columns lists every column the cube supports
	Columns(ctx context.Context) (map[string]ColumnInfo, error)
}
