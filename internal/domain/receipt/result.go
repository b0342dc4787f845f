package receipt

import "time"

// Stage names one step of a day import
type Stage string

const (
	StageQueryHeaders              Stage = "QUERY_HEADERS"
	StageMerge                     Stage = "MERGE"
	StageResolveReturnsAndBackfill Stage = "RESOLVE_RETURNS_AND_BACKFILL"
	StageQueryItemsAndMerge        Stage = "QUERY_ITEMS_AND_MERGE"
	StageDiagnosticDump            Stage = "DIAGNOSTIC_DUMP"
	StagePersist                   Stage = "PERSIST"
)

// StageStatus is how a stage ended
type StageStatus string

const (
	StageOK       StageStatus = "OK"
	StageDegraded StageStatus = "DEGRADED"
	StageSkipped  StageStatus = "SKIPPED"
)

// StageOutcome records how one stage of an import ended
type StageOutcome struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// ImportResult is the outcome of importing one business day
type ImportResult struct {
	Date       time.Time      `json:"date"`
	Created    int            `json:"created"`
	Updated    int            `json:"updated"`
	Backfilled int            `json:"backfilled"`
	Stages     []StageOutcome `json:"stages,omitempty"`
	Err        error          `json:"-"`
}

// Degraded reports whether any enrichment stage failed
func (r ImportResult) Degraded() bool {
	for _, s := range r.Stages {
		if s.Status == StageDegraded {
			return true
		}
	}
	return false
}

// Failed reports whether the day did not complete
func (r ImportResult) Failed() bool {
	return r.Err != nil
}

// Record appends a stage outcome, folding repeated degradations of the same stage into one entry
func (r *ImportResult) Record(stage Stage, status StageStatus, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	for i := range r.Stages {
		if r.Stages[i].Stage != stage {
			continue
		}
		if status == StageDegraded {
			r.Stages[i].Status = StageDegraded
			if r.Stages[i].Error == "" {
				r.Stages[i].Error = msg
			} else if msg != "" {
				r.Stages[i].Error += "; " + msg
			}
		}
		return
	}
	r.Stages = append(r.Stages, StageOutcome{Stage: stage, Status: status, Error: msg})
}

// Totals sums the counters of a range of results
func Totals(results []ImportResult) (created, updated, backfilled int) {
	for _, r := range results {
		created += r.Created
		updated += r.Updated
		backfilled += r.Backfilled
	}
	return created, updated, backfilled
}
