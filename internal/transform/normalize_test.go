package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

func TestNormalizeWide(t *testing.T) {
	raw := entities.RawTable{
		Header: []string{"Datum", "MI", "PA", "Berlin"},
		Rows: [][]string{
			{"10.03.2020", "20", "2", "22"},
			{"09.03.2020", "10", "1", "11"},
			{"11.03.2020", "1.030", "3", "1033"},
			{"Summe", "1.060", "", "1066"},
		},
	}

	wide, exclusions, err := NormalizeWide(raw, newTestLookup(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Mitte", "Pankow"}, wide.Districts)
	assert.Equal(t, []entities.Date{day(0), day(1), day(2)}, wide.Dates, "rows are sorted by date")
	assert.Equal(t, [][]int{{10, 1}, {20, 2}, {1030, 3}}, wide.Values)

	report := entities.RunReport{Exclusions: exclusions}
	assert.Equal(t, 1, report.Excluded(entities.ReasonMissingValue))
	assert.Equal(t, 4, report.Excluded(entities.ReasonUnknownColumn))
	assert.Equal(t, "Berlin", exclusions[0].Subject)
}

func TestNormalizeWideShortRowIsMissing(t *testing.T) {
	raw := entities.RawTable{
		Header: []string{"Datum", "MI"},
		Rows:   [][]string{{"09.03.2020", "1"}, {"Stand: 15.12.2020"}},
	}
	wide, exclusions, err := NormalizeWide(raw, newTestLookup(t))
	require.NoError(t, err)
	assert.Len(t, wide.Dates, 1)
	require.Len(t, exclusions, 1)
	assert.Equal(t, entities.ReasonMissingValue, exclusions[0].Reason)
}

func TestNormalizeWideFormatErrors(t *testing.T) {
	tests := map[string]entities.RawTable{
		"bad integer": {
			Header: []string{"Datum", "MI"},
			Rows:   [][]string{{"09.03.2020", "ten"}},
		},
		"negative": {
			Header: []string{"Datum", "MI"},
			Rows:   [][]string{{"09.03.2020", "-1"}},
		},
		"bad date": {
			Header: []string{"Datum", "MI"},
			Rows:   [][]string{{"March 9th", "1"}},
		},
		"duplicate date": {
			Header: []string{"Datum", "MI"},
			Rows:   [][]string{{"09.03.2020", "1"}, {"9.3.2020", "2"}},
		},
		"no date column": {
			Header: []string{"Tag", "MI"},
			Rows:   [][]string{{"09.03.2020", "1"}},
		},
		"no districts": {
			Header: []string{"Datum", "XX"},
			Rows:   [][]string{{"09.03.2020", "1"}},
		},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := NormalizeWide(raw, newTestLookup(t))
			require.Error(t, err)
			assert.True(t, entities.IsFormatError(err))
		})
	}
}

func TestNormalizeWideDuplicateColumnExcluded(t *testing.T) {
	raw := entities.RawTable{
		Header: []string{"Datum", "MI", "MI"},
		Rows:   [][]string{{"09.03.2020", "1", "2"}},
	}
	wide, exclusions, err := NormalizeWide(raw, newTestLookup(t))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1}}, wide.Values)
	require.Len(t, exclusions, 1)
	assert.Equal(t, entities.ReasonUnknownColumn, exclusions[0].Reason)
}
