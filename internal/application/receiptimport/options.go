package receiptimport

import "fmt"

// FailurePolicy decides what a range import does after a day fails
type FailurePolicy string

const (
	// PolicyAbort stops at the first failed day; earlier days stay committed
	PolicyAbort FailurePolicy = "abort"
	// PolicyContinue records the failed day and moves on
	PolicyContinue FailurePolicy = "continue"
)

// ParseFailurePolicy converts a configuration value into a FailurePolicy
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicyContinue:
		return PolicyContinue, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFailurePolicy, s)
	}
}

// Options tunes a day import
type Options struct {
	DiagnosticDumpEnabled    bool
	AtomicPersist            bool
	ReturnSourceLookbackDays int
	MaxAggregatesPerQuery    int
	MaxGroupColumnsPerQuery  int
	RangeFailurePolicy       FailurePolicy
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		DiagnosticDumpEnabled:    false,
		AtomicPersist:            true,
		ReturnSourceLookbackDays: 30,
		MaxAggregatesPerQuery:    20,
		MaxGroupColumnsPerQuery:  10,
		RangeFailurePolicy:       PolicyAbort,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ReturnSourceLookbackDays <= 0 {
		o.ReturnSourceLookbackDays = def.ReturnSourceLookbackDays
	}
	if o.MaxAggregatesPerQuery <= 0 {
		o.MaxAggregatesPerQuery = def.MaxAggregatesPerQuery
	}
	if o.MaxGroupColumnsPerQuery <= 0 {
		o.MaxGroupColumnsPerQuery = def.MaxGroupColumnsPerQuery
	}
	if o.RangeFailurePolicy == "" {
		o.RangeFailurePolicy = def.RangeFailurePolicy
	}
	return o
}
