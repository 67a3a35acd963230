package transform

import (
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

// PerCapita is the population base incidence is expressed in
const PerCapita = 100000

// ComputeIncidence joins tidy case records with population and computes
// cases per 100,000 inhabitants. Rows whose district has no population are
// excluded, never zero-filled.
func ComputeIncidence(records []entities.CaseRecord, population entities.Population) ([]entities.IncidenceRecord, []entities.Exclusion) {
	out := make([]entities.IncidenceRecord, 0, len(records))
	missing := make(map[string]int)
	var missingOrder []string

	for _, r := range records {
		pop, ok := population[r.District]
		if !ok || pop <= 0 {
			if _, seen := missing[r.District]; !seen {
				missingOrder = append(missingOrder, r.District)
			}
			missing[r.District]++
			continue
		}
		out = append(out, entities.IncidenceRecord{
			Date:      r.Date,
			District:  r.District,
			Cases:     r.Cases,
			Incidence: float64(r.Cases) / float64(pop) * PerCapita,
		})
	}

	exclusions := make([]entities.Exclusion, 0, len(missingOrder))
	for _, district := range missingOrder {
		zap.L().Warn("excluding district from incidence",
			zap.String("district", district),
			zap.Int("rows", missing[district]),
			zap.Error(entities.ErrNoPopulation),
		)
		exclusions = append(exclusions, entities.Exclusion{
			Stage:   StageIncidence,
			Reason:  entities.ReasonNoPopulation,
			Subject: district,
			Rows:    missing[district],
		})
	}

	zap.L().Info("computed incidence", zap.Int("rows", len(out)), zap.Int("excluded_districts", len(missingOrder)))
	return out, exclusions
}
