package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
)

func newTestLookup(t *testing.T) *districts.Lookup {
	t.Helper()
	l, err := districts.Default()
	require.NoError(t, err)
	return l
}

func day(n int) entities.Date {
	return entities.NewDate(2020, 3, 9).AddDays(n)
}

// mitteWide is seven days of Mitte cases 10, 20, ... 70
func mitteWide() entities.WideTable {
	w := entities.WideTable{Districts: []string{"Mitte"}}
	for i := 0; i < 7; i++ {
		w.Dates = append(w.Dates, day(i))
		w.Values = append(w.Values, []int{10 * (i + 1)})
	}
	return w
}
