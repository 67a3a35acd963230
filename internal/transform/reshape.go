package transform

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// Melt reshapes a wide table into tidy records, one per (date, district).
// Records are ordered by district in column order, then by date.
func Melt(wide entities.WideTable) []entities.CaseRecord {
	records := make([]entities.CaseRecord, 0, len(wide.Dates)*len(wide.Districts))
	for col, district := range wide.Districts {
		for row, date := range wide.Dates {
			records = append(records, entities.CaseRecord{
				Date:     date,
				District: district,
				Cases:    wide.Values[row][col],
			})
		}
	}
	return records
}

// Pivot is the inverse of Melt. Districts keep their order of first
// appearance and dates are sorted ascending. Every (date, district) pair must
// occur exactly once.
func Pivot(records []entities.CaseRecord) (entities.WideTable, error) {
	var districtOrder []string
	districtCol := make(map[string]int)
	dateSet := make(map[entities.Date]struct{})
	for _, r := range records {
		if _, ok := districtCol[r.District]; !ok {
			districtCol[r.District] = len(districtOrder)
			districtOrder = append(districtOrder, r.District)
		}
		dateSet[r.Date] = struct{}{}
	}

	dates := make([]entities.Date, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	dateRow := make(map[entities.Date]int, len(dates))
	for i, d := range dates {
		dateRow[d] = i
	}

	values := make([][]int, len(dates))
	filled := make([][]bool, len(dates))
	for i := range values {
		values[i] = make([]int, len(districtOrder))
		filled[i] = make([]bool, len(districtOrder))
	}
	for _, r := range records {
		row, col := dateRow[r.Date], districtCol[r.District]
		if filled[row][col] {
			return entities.WideTable{}, eris.Errorf("duplicate record for %s on %s", r.District, r.Date)
		}
		values[row][col] = r.Cases
		filled[row][col] = true
	}
	for row := range filled {
		for col, ok := range filled[row] {
			if !ok {
				return entities.WideTable{}, eris.Errorf("no record for %s on %s", districtOrder[col], dates[row])
			}
		}
	}

	return entities.WideTable{Dates: dates, Districts: districtOrder, Values: values}, nil
}
