package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/usecases"
)

func march(day int) entities.Date {
	return entities.NewDate(2020, time.March, day)
}

// seededQueries exports eight days of Mitte and Pankow figures and returns
// a query use case reading them
func seededQueries(t *testing.T) *usecases.QueryUseCase {
	t.Helper()
	repo, err := repository.NewCSVRepository(t.TempDir())
	require.NoError(t, err)

	var incidence []entities.IncidenceRecord
	var rolling []entities.RollingRecord
	for day := 9; day <= 16; day++ {
		mitte := (day - 8) * 10
		pankow := day - 8
		incidence = append(incidence,
			entities.IncidenceRecord{Date: march(day), District: "Mitte", Cases: mitte, Incidence: float64(mitte) / 380000 * 100000},
			entities.IncidenceRecord{Date: march(day), District: "Pankow", Cases: pankow, Incidence: float64(pankow) / 400000 * 100000},
		)
	}
	rolling = append(rolling,
		entities.RollingRecord{Date: march(15), District: "Mitte", Cases: 40},
		entities.RollingRecord{Date: march(16), District: "Mitte", Cases: 50},
		entities.RollingRecord{Date: march(15), District: "Pankow", Cases: 4},
		entities.RollingRecord{Date: march(16), District: "Pankow", Cases: 5},
	)
	require.NoError(t, repo.SaveRolling(rolling))
	require.NoError(t, repo.SaveIncidence(incidence))

	lookup, err := districts.Default()
	require.NoError(t, err)
	return usecases.NewQueryUseCase(repo, lookup)
}

func emptyQueries(t *testing.T) *usecases.QueryUseCase {
	t.Helper()
	repo, err := repository.NewCSVRepository(t.TempDir())
	require.NoError(t, err)
	lookup, err := districts.Default()
	require.NoError(t, err)
	return usecases.NewQueryUseCase(repo, lookup)
}
