// Package transform turns scraped tables into the tidy datasets the
// dashboard reads: wide normalization, wide/long reshape, rolling means and
// per-capita incidence. Every function takes the previous stage's output
// and returns a new value; nothing is shared between calls.
package transform

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
)

const (
	StageNormalize  = "normalize"
	StageRolling    = "rolling"
	StagePopulation = "population"
	StageIncidence  = "incidence"
)

// NormalizeWide renames the case table columns to canonical district names,
// drops rows with missing values and coerces cells to dates and integers.
// Columns that are neither the date nor a known district are excluded.
// Any value that cannot be coerced aborts with a FormatError.
func NormalizeWide(raw entities.RawTable, lookup *districts.Lookup) (entities.WideTable, []entities.Exclusion, error) {
	dateCol := -1
	var cols []int
	var names []string
	var exclusions []entities.Exclusion
	seenName := make(map[string]bool)

	for i, h := range raw.Header {
		if lookup.IsDateColumn(h) {
			if dateCol < 0 {
				dateCol = i
			}
			continue
		}
		name, ok := lookup.Name(h)
		if !ok || seenName[name] {
			exclusions = append(exclusions, entities.Exclusion{
				Stage:   StageNormalize,
				Reason:  entities.ReasonUnknownColumn,
				Subject: h,
				Rows:    len(raw.Rows),
			})
			continue
		}
		seenName[name] = true
		cols = append(cols, i)
		names = append(names, name)
	}
	if dateCol < 0 {
		return entities.WideTable{}, exclusions, &entities.FormatError{
			Stage: StageNormalize, Row: -1, Column: lookup.DateColumn().Code,
			Err: eris.New("date column missing"),
		}
	}
	if len(cols) == 0 {
		return entities.WideTable{}, exclusions, &entities.FormatError{
			Stage: StageNormalize, Row: -1, Column: "districts",
			Err: eris.New("no known district columns"),
		}
	}

	type wideRow struct {
		date   entities.Date
		values []int
	}
	rows := make([]wideRow, 0, len(raw.Rows))
	seenDate := make(map[entities.Date]int)
	dropped := 0

	for r, cells := range raw.Rows {
		if hasMissing(cells, dateCol, cols) {
			dropped++
			zap.L().Debug("dropping row with missing values", zap.Int("row", r), zap.Strings("cells", cells))
			continue
		}

		date, err := parseDate(cells[dateCol])
		if err != nil {
			return entities.WideTable{}, exclusions, &entities.FormatError{
				Stage: StageNormalize, Row: r, Column: lookup.DateColumn().Code, Value: cells[dateCol], Err: err,
			}
		}
		if prev, dup := seenDate[date]; dup {
			return entities.WideTable{}, exclusions, &entities.FormatError{
				Stage: StageNormalize, Row: r, Column: lookup.DateColumn().Code, Value: cells[dateCol],
				Err: eris.Errorf("duplicate date, first seen in row %d", prev),
			}
		}
		seenDate[date] = r

		values := make([]int, len(cols))
		for j, c := range cols {
			n, err := parseCount(cells[c])
			if err != nil {
				return entities.WideTable{}, exclusions, &entities.FormatError{
					Stage: StageNormalize, Row: r, Column: raw.Header[c], Value: cells[c], Err: err,
				}
			}
			values[j] = n
		}
		rows = append(rows, wideRow{date: date, values: values})
	}

	if dropped > 0 {
		exclusions = append(exclusions, entities.Exclusion{
			Stage:   StageNormalize,
			Reason:  entities.ReasonMissingValue,
			Subject: "case table",
			Rows:    dropped,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	wide := entities.WideTable{
		Dates:     make([]entities.Date, len(rows)),
		Districts: names,
		Values:    make([][]int, len(rows)),
	}
	for i, row := range rows {
		wide.Dates[i] = row.date
		wide.Values[i] = row.values
	}

	zap.L().Info("normalized case table",
		zap.Int("raw_rows", len(raw.Rows)),
		zap.Int("rows", len(wide.Dates)),
		zap.Int("districts", len(wide.Districts)),
		zap.Int("dropped_rows", dropped),
	)
	return wide, exclusions, nil
}

func hasMissing(cells []string, dateCol int, cols []int) bool {
	if dateCol >= len(cells) || isMissing(cells[dateCol]) {
		return true
	}
	for _, c := range cols {
		if c >= len(cells) || isMissing(cells[c]) {
			return true
		}
	}
	return false
}
