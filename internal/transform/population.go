package transform

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
)

// NormalizePopulation turns a two-column (District, Population) table into a
// population lookup. The last row is the city-wide total and is dropped.
// Names are cleaned of footnotes and whitespace and resolved to canonical
// names where the lookup knows them; unknown names are kept as cleaned so
// the join reports them.
func NormalizePopulation(raw entities.RawTable, lookup *districts.Lookup) (entities.Population, []entities.Exclusion, error) {
	if len(raw.Header) < 2 {
		return nil, nil, &entities.FormatError{
			Stage: StagePopulation, Row: -1, Column: "Population",
			Err: eris.Errorf("expected District and Population columns, got %v", raw.Header),
		}
	}
	if len(raw.Rows) == 0 {
		return nil, nil, &entities.FormatError{
			Stage: StagePopulation, Row: -1, Column: "Population",
			Err: eris.New("population table is empty"),
		}
	}

	last := len(raw.Rows) - 1
	exclusions := []entities.Exclusion{{
		Stage:   StagePopulation,
		Reason:  entities.ReasonAggregateRow,
		Subject: districts.NormalizeName(cellAt(raw.Rows[last], 0)),
		Rows:    1,
	}}

	population := make(entities.Population, last)
	dropped := 0
	for r, cells := range raw.Rows[:last] {
		name := districts.NormalizeName(cellAt(cells, 0))
		value := cellAt(cells, 1)
		if name == "" || isMissing(value) {
			dropped++
			continue
		}
		count, err := parseCount(value)
		if err != nil {
			return nil, exclusions, &entities.FormatError{
				Stage: StagePopulation, Row: r, Column: raw.Header[1], Value: value, Err: err,
			}
		}
		if count == 0 {
			return nil, exclusions, &entities.FormatError{
				Stage: StagePopulation, Row: r, Column: raw.Header[1], Value: value,
				Err: eris.New("population must be positive"),
			}
		}
		if canonical, ok := lookup.Canonical(name); ok {
			name = canonical
		} else {
			zap.L().Warn("population district does not match a known district", zap.String("district", name))
		}
		if _, dup := population[name]; dup {
			return nil, exclusions, &entities.FormatError{
				Stage: StagePopulation, Row: r, Column: raw.Header[0], Value: name,
				Err: eris.New("duplicate district"),
			}
		}
		population[name] = count
	}
	if dropped > 0 {
		exclusions = append(exclusions, entities.Exclusion{
			Stage:   StagePopulation,
			Reason:  entities.ReasonMissingValue,
			Subject: "population table",
			Rows:    dropped,
		})
	}

	zap.L().Info("normalized population table",
		zap.Int("districts", len(population)),
		zap.Int("dropped_rows", dropped),
	)
	return population, exclusions, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
