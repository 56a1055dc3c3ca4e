package engine

import (
	"time"

	"db-transfer/internal/gateway"
)

type SyncMode string

const (
	ModeFull        SyncMode = "FULL"
	ModeIncremental SyncMode = "INCREMENTAL"
)

// SyncDecision is derived from the destination on every run and never stored.
type SyncDecision struct {
	Mode      SyncMode
	Predicate *gateway.Predicate // nil copies the whole source table
	Truncate  bool
	Reason    string
}

// PredicateText is the human-readable extraction predicate, empty when the
// whole table is copied.
func (d SyncDecision) PredicateText() string {
	return d.Predicate.String()
}

// TransferResult is the outcome of copying one table.
type TransferResult struct {
	Source          string
	Table           string
	Destination     string
	Mode            SyncMode
	Predicate       string
	Success         bool
	TotalRows       int64 // source rows under the predicate
	TransferredRows int64
	DestinationRows int64 // -1 when the post-copy count could not be read
	CoercedValues   int64
	Err             error
	StartedAt       time.Time
	FinishedAt      time.Time
}

func (r TransferResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r TransferResult) ErrMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// TransferSummary aggregates a run. Results keep selection order.
type TransferSummary struct {
	Attempted       int
	Succeeded       int
	Failed          int
	RowsTransferred int64
	Duration        time.Duration
	Results         []TransferResult
}

func newSummary(results []TransferResult, elapsed time.Duration) TransferSummary {
	s := TransferSummary{Attempted: len(results), Duration: elapsed, Results: results}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.RowsTransferred += r.TransferredRows
	}
	return s
}

// Failures returns the failed results in selection order.
func (s TransferSummary) Failures() []TransferResult {
	var failed []TransferResult
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}
