// Package query answers the dashboard's questions over exported records:
// rows are filtered by an inclusive date range first, then aggregated.
package query

import (
	"math"
	"sort"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	Start entities.Date
	End   entities.Date
}

// Contains reports whether d lies within the range
func (r DateRange) Contains(d entities.Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

// Empty reports whether the range can contain no day at all
func (r DateRange) Empty() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.After(r.End)
}

// FilterRolling keeps rolling records within [start, end]
func FilterRolling(records []entities.RollingRecord, r DateRange) []entities.RollingRecord {
	out := []entities.RollingRecord{}
	if r.Empty() {
		return out
	}
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// FilterIncidence keeps incidence records within [start, end]
func FilterIncidence(records []entities.IncidenceRecord, r DateRange) []entities.IncidenceRecord {
	out := []entities.IncidenceRecord{}
	if r.Empty() {
		return out
	}
	for _, rec := range records {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// DistrictMean is the average of a district's rows over a range
type DistrictMean struct {
	District  string  `json:"district"`
	Days      int     `json:"days"`
	Cases     float64 `json:"cases"`
	Incidence float64 `json:"incidence"`
}

// MeanIncidenceByDistrict averages Cases and Incidence per district, sorted
// by Incidence ascending with ties broken by name
func MeanIncidenceByDistrict(records []entities.IncidenceRecord) []DistrictMean {
	index := make(map[string]int)
	means := []DistrictMean{}
	for _, rec := range records {
		i, ok := index[rec.District]
		if !ok {
			i = len(means)
			index[rec.District] = i
			means = append(means, DistrictMean{District: rec.District})
		}
		means[i].Days++
		means[i].Cases += float64(rec.Cases)
		means[i].Incidence += rec.Incidence
	}
	for i := range means {
		n := float64(means[i].Days)
		means[i].Cases /= n
		means[i].Incidence /= n
	}
	sort.SliceStable(means, func(i, j int) bool {
		if means[i].Incidence != means[j].Incidence {
			return means[i].Incidence < means[j].Incidence
		}
		return means[i].District < means[j].District
	})
	return means
}

// Spread is the five-number summary of a district's incidence
type Spread struct {
	District string  `json:"district"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
}

// IncidenceSpread computes per-district min, quartiles and max of Incidence,
// districts in first-seen order
func IncidenceSpread(records []entities.IncidenceRecord) []Spread {
	var order []string
	values := make(map[string][]float64)
	for _, rec := range records {
		if _, ok := values[rec.District]; !ok {
			order = append(order, rec.District)
		}
		values[rec.District] = append(values[rec.District], rec.Incidence)
	}

	spreads := make([]Spread, 0, len(order))
	for _, district := range order {
		v := values[district]
		sort.Float64s(v)
		spreads = append(spreads, Spread{
			District: district,
			Min:      v[0],
			Q1:       Quantile(v, 0.25),
			Median:   Quantile(v, 0.5),
			Q3:       Quantile(v, 0.75),
			Max:      v[len(v)-1],
		})
	}
	return spreads
}

// Quantile returns the q-th quantile of sorted values using linear
// interpolation between closest ranks. NaN for an empty slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// LatestByDistrict returns the most recent incidence row for each district,
// sorted by district name
func LatestByDistrict(records []entities.IncidenceRecord) []entities.IncidenceRecord {
	latest := make(map[string]entities.IncidenceRecord)
	for _, rec := range records {
		if cur, ok := latest[rec.District]; !ok || rec.Date.After(cur.Date) {
			latest[rec.District] = rec
		}
	}
	out := make([]entities.IncidenceRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].District < out[j].District })
	return out
}

// LatestRolling returns the most recent rolling average of one district
func LatestRolling(records []entities.RollingRecord, district string) (entities.RollingRecord, bool) {
	var (
		found  entities.RollingRecord
		exists bool
	)
	for _, rec := range records {
		if rec.District != district {
			continue
		}
		if !exists || rec.Date.After(found.Date) {
			found, exists = rec, true
		}
	}
	return found, exists
}

// DateBounds returns the first and last date in dates; ok is false when empty
func DateBounds(dates []entities.Date) (first, last entities.Date, ok bool) {
	for i, d := range dates {
		if i == 0 || d.Before(first) {
			first = d
		}
		if i == 0 || d.After(last) {
			last = d
		}
	}
	return first, last, len(dates) > 0
}

// IncidenceDates lists the dates of records, in record order
func IncidenceDates(records []entities.IncidenceRecord) []entities.Date {
	dates := make([]entities.Date, len(records))
	for i, rec := range records {
		dates[i] = rec.Date
	}
	return dates
}

// RollingDates lists the dates of records, in record order
func RollingDates(records []entities.RollingRecord) []entities.Date {
	dates := make([]entities.Date, len(records))
	for i, rec := range records {
		dates[i] = rec.Date
	}
	return dates
}

// LastDays is the inclusive range of n days ending at end
func LastDays(end entities.Date, n int) DateRange {
	if n < 1 {
		n = 1
	}
	return DateRange{Start: end.AddDays(-(n - 1)), End: end}
}

// Districts lists the distinct districts of records, sorted
func Districts(records []entities.IncidenceRecord) []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range records {
		if !seen[rec.District] {
			seen[rec.District] = true
			names = append(names, rec.District)
		}
	}
	sort.Strings(names)
	return names
}
