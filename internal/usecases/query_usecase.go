package usecases

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
	"github.com/abelzeko/berlin-covid/internal/query"
	"github.com/abelzeko/berlin-covid/internal/repository"
)

// ErrUnknownDistrict is returned when a district name or code matches nothing
var ErrUnknownDistrict = eris.New("unknown district")

// DistrictSummary is the latest state of one district
type DistrictSummary struct {
	Latest     entities.IncidenceRecord
	Rolling    entities.RollingRecord
	HasRolling bool
}

// QueryUseCase serves read-only queries over the exported datasets. Records
// are cached and reloaded when the export files change.
type QueryUseCase struct {
	repo   repository.CaseRepository
	lookup *districts.Lookup

	mu        sync.RWMutex
	loadedAt  time.Time
	rolling   []entities.RollingRecord
	incidence []entities.IncidenceRecord
}

// NewQueryUseCase creates a new query use case
func NewQueryUseCase(repo repository.CaseRepository, lookup *districts.Lookup) *QueryUseCase {
	return &QueryUseCase{repo: repo, lookup: lookup}
}

// snapshot returns the cached records, reloading them if the exports changed
func (uc *QueryUseCase) snapshot() ([]entities.RollingRecord, []entities.IncidenceRecord, error) {
	updated, err := uc.repo.GetLastUpdateTime()
	if err != nil {
		return nil, nil, err
	}

	uc.mu.RLock()
	if !uc.loadedAt.IsZero() && uc.loadedAt.Equal(updated) {
		rolling, incidence := uc.rolling, uc.incidence
		uc.mu.RUnlock()
		return rolling, incidence, nil
	}
	uc.mu.RUnlock()

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if !uc.loadedAt.IsZero() && uc.loadedAt.Equal(updated) {
		return uc.rolling, uc.incidence, nil
	}

	rolling, err := uc.repo.LoadRolling()
	if err != nil {
		return nil, nil, err
	}
	incidence, err := uc.repo.LoadIncidence()
	if err != nil {
		return nil, nil, err
	}
	uc.rolling, uc.incidence, uc.loadedAt = rolling, incidence, updated
	zap.L().Info("loaded exported datasets",
		zap.Int("rolling_rows", len(rolling)),
		zap.Int("incidence_rows", len(incidence)),
		zap.Time("updated", updated),
	)
	return rolling, incidence, nil
}

// LastUpdate returns when the exports were last written
func (uc *QueryUseCase) LastUpdate() (time.Time, error) {
	return uc.repo.GetLastUpdateTime()
}

// Rolling returns rolling averages within the range
func (uc *QueryUseCase) Rolling(r query.DateRange) ([]entities.RollingRecord, error) {
	rolling, _, err := uc.snapshot()
	if err != nil {
		return nil, err
	}
	return query.FilterRolling(rolling, r), nil
}

// Incidence returns incidence rows within the range
func (uc *QueryUseCase) Incidence(r query.DateRange) ([]entities.IncidenceRecord, error) {
	_, incidence, err := uc.snapshot()
	if err != nil {
		return nil, err
	}
	return query.FilterIncidence(incidence, r), nil
}

// MeanIncidence filters by range, then averages per district
func (uc *QueryUseCase) MeanIncidence(r query.DateRange) ([]query.DistrictMean, error) {
	rows, err := uc.Incidence(r)
	if err != nil {
		return nil, err
	}
	return query.MeanIncidenceByDistrict(rows), nil
}

// Spread filters by range, then summarizes incidence per district
func (uc *QueryUseCase) Spread(r query.DateRange) ([]query.Spread, error) {
	rows, err := uc.Incidence(r)
	if err != nil {
		return nil, err
	}
	return query.IncidenceSpread(rows), nil
}

// Bounds returns the first and last date of the incidence dataset
func (uc *QueryUseCase) Bounds() (entities.Date, entities.Date, error) {
	_, incidence, err := uc.snapshot()
	if err != nil {
		return entities.Date{}, entities.Date{}, err
	}
	first, last, ok := query.DateBounds(query.IncidenceDates(incidence))
	if !ok {
		return entities.Date{}, entities.Date{}, repository.ErrNoData
	}
	return first, last, nil
}

// Districts lists the districts with incidence data
func (uc *QueryUseCase) Districts() ([]string, error) {
	_, incidence, err := uc.snapshot()
	if err != nil {
		return nil, err
	}
	return query.Districts(incidence), nil
}

// Top returns the n districts with the highest mean incidence over the
// last days of the dataset, highest first
func (uc *QueryUseCase) Top(n, days int) ([]query.DistrictMean, error) {
	_, last, err := uc.Bounds()
	if err != nil {
		return nil, err
	}
	means, err := uc.MeanIncidence(query.LastDays(last, days))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(means, func(i, j int) bool { return means[i].Incidence > means[j].Incidence })
	if n > 0 && len(means) > n {
		means = means[:n]
	}
	return means, nil
}

// ResolveDistrict maps a user supplied name or code to a canonical name
func (uc *QueryUseCase) ResolveDistrict(input string) (string, error) {
	known, err := uc.Districts()
	if err != nil {
		return "", err
	}
	candidate := strings.TrimSpace(input)
	if name, ok := uc.lookup.Name(candidate); ok {
		candidate = name
	} else if name, ok := uc.lookup.Canonical(candidate); ok {
		candidate = name
	}
	for _, name := range known {
		if strings.EqualFold(name, candidate) {
			return name, nil
		}
	}
	return "", eris.Wrapf(ErrUnknownDistrict, "%q", input)
}

// DistrictSummary returns the latest incidence and rolling average of a district
func (uc *QueryUseCase) DistrictSummary(input string) (DistrictSummary, error) {
	zap.L().Debug("retrieving district summary", zap.String("district", input))

	name, err := uc.ResolveDistrict(input)
	if err != nil {
		return DistrictSummary{}, err
	}
	rolling, incidence, err := uc.snapshot()
	if err != nil {
		return DistrictSummary{}, err
	}

	var summary DistrictSummary
	for _, rec := range query.LatestByDistrict(incidence) {
		if rec.District == name {
			summary.Latest = rec
		}
	}
	summary.Rolling, summary.HasRolling = query.LatestRolling(rolling, name)
	return summary, nil
}

// FormatDistrictInfo formats a district summary for display
func (uc *QueryUseCase) FormatDistrictInfo(s DistrictSummary) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("COVID-19 figures for %s:\n\n", s.Latest.District))
	result.WriteString(fmt.Sprintf("📅 Date: %s\n", s.Latest.Date))
	result.WriteString(fmt.Sprintf("🦠 New cases: %d\n", s.Latest.Cases))
	result.WriteString(fmt.Sprintf("📈 Incidence: %.1f per 100,000\n", s.Latest.Incidence))
	if s.HasRolling {
		result.WriteString(fmt.Sprintf("〰️ 7-day average: %.1f (as of %s)\n", s.Rolling.Cases, s.Rolling.Date))
	}
	return result.String()
}

// FormatTop formats a ranking of districts for display
func (uc *QueryUseCase) FormatTop(means []query.DistrictMean, days int) string {
	if len(means) == 0 {
		return "No incidence data available yet."
	}
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Highest mean incidence over the last %d days:\n\n", days))
	for i, m := range means {
		result.WriteString(fmt.Sprintf("%d. %s: %.1f\n", i+1, m.District, m.Incidence))
	}
	return result.String()
}
