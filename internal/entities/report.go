package entities

import (
	"sort"
	"time"
)

// ExclusionReason says why rows or columns were left out of a result
type ExclusionReason string

const (
	ReasonMissingValue       ExclusionReason = "missing_value"
	ReasonUnknownColumn      ExclusionReason = "unknown_column"
	ReasonAggregateRow       ExclusionReason = "aggregate_row"
	ReasonNoPopulation       ExclusionReason = "no_population"
	ReasonInsufficientWindow ExclusionReason = "insufficient_window"
)

// Exclusion records rows dropped by a pipeline stage for one reason and subject
type Exclusion struct {
	Stage   string          `json:"stage"`
	Reason  ExclusionReason `json:"reason"`
	Subject string          `json:"subject"` // District, column or source row the rows belong to
	Rows    int             `json:"rows"`
}

// RunReport summarizes one pipeline run
type RunReport struct {
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	RawRows       int         `json:"raw_rows"`
	WideRows      int         `json:"wide_rows"`
	Districts     int         `json:"districts"`
	LongRows      int         `json:"long_rows"`
	RollingRows   int         `json:"rolling_rows"`
	IncidenceRows int         `json:"incidence_rows"`
	FirstDate     Date        `json:"first_date"`
	LastDate      Date        `json:"last_date"`
	Exclusions    []Exclusion `json:"exclusions"`
}

// Add appends exclusions to the report
func (r *RunReport) Add(exclusions ...Exclusion) {
	r.Exclusions = append(r.Exclusions, exclusions...)
}

// Excluded returns the number of rows dropped for a reason
func (r RunReport) Excluded(reason ExclusionReason) int {
	total := 0
	for _, e := range r.Exclusions {
		if e.Reason == reason {
			total += e.Rows
		}
	}
	return total
}

// ExcludedByReason returns row counts keyed by reason, reasons sorted
func (r RunReport) ExcludedByReason() ([]ExclusionReason, map[ExclusionReason]int) {
	counts := make(map[ExclusionReason]int)
	for _, e := range r.Exclusions {
		counts[e.Reason] += e.Rows
	}
	reasons := make([]ExclusionReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons, counts
}

// Duration is the wall time of the run
func (r RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
