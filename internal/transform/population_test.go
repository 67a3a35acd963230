package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

func populationTable(rows ...[]string) entities.RawTable {
	return entities.RawTable{Header: []string{"District", "Population"}, Rows: rows}
}

func TestNormalizePopulation(t *testing.T) {
	raw := populationTable(
		[]string{"Mitte[1]", "332,919"},
		[]string{" Neukölln ", "310,283"},
		[]string{"Treptow–Köpenick", "241 335"},
		[]string{"Footnote row", ""},
		[]string{"Total", "3,443,342"},
	)
	pop, exclusions, err := NormalizePopulation(raw, newTestLookup(t))
	require.NoError(t, err)

	assert.Equal(t, entities.Population{
		"Mitte":            332919,
		"Neukölln":         310283,
		"Treptow-Köpenick": 241335,
	}, pop)

	report := entities.RunReport{Exclusions: exclusions}
	assert.Equal(t, 1, report.Excluded(entities.ReasonAggregateRow))
	assert.Equal(t, 1, report.Excluded(entities.ReasonMissingValue))
	assert.Equal(t, "Total", exclusions[0].Subject)
}

func TestNormalizePopulationKeepsUnknownNames(t *testing.T) {
	pop, _, err := NormalizePopulation(populationTable(
		[]string{"Westend", "1000"},
		[]string{"Total", "1000"},
	), newTestLookup(t))
	require.NoError(t, err)
	assert.Equal(t, entities.Population{"Westend": 1000}, pop)
}

func TestNormalizePopulationErrors(t *testing.T) {
	tests := map[string]entities.RawTable{
		"empty":      populationTable(),
		"one column": {Header: []string{"District"}, Rows: [][]string{{"Mitte"}}},
		"bad number": populationTable([]string{"Mitte", "lots"}, []string{"Total", "1"}),
		"zero":       populationTable([]string{"Mitte", "0"}, []string{"Total", "1"}),
		"duplicate":  populationTable([]string{"Mitte", "1"}, []string{"Mitte[2]", "2"}, []string{"Total", "3"}),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := NormalizePopulation(raw, newTestLookup(t))
			require.Error(t, err)
			assert.True(t, entities.IsFormatError(err))
		})
	}
}
