// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/transform"
)

// CaseSource provides the raw daily case table
type CaseSource interface {
	FetchCaseTable(ctx context.Context) (entities.RawTable, error)
}

// PopulationSource provides the raw district population table
type PopulationSource interface {
	FetchPopulation(ctx context.Context) (entities.RawTable, error)
}

// PipelineUseCase runs the ingestion and reshape pipeline end to end
type PipelineUseCase struct {
	repo       repository.CaseRepository
	cases      CaseSource
	population PopulationSource
	lookup     *districts.Lookup
	window     int
	now        func() time.Time
}

// NewPipelineUseCase creates a new pipeline use case
func NewPipelineUseCase(repo repository.CaseRepository, cases CaseSource, population PopulationSource, lookup *districts.Lookup) *PipelineUseCase {
	return &PipelineUseCase{
		repo:       repo,
		cases:      cases,
		population: population,
		lookup:     lookup,
		window:     transform.DefaultWindow,
		now:        time.Now,
	}
}

// RefreshCaseData fetches both source tables, derives the rolling average
// and incidence datasets and exports them. Nothing is written unless every
// stage succeeded. Fetch and format failures are returned as
// *entities.FetchError and *entities.FormatError.
func (uc *PipelineUseCase) RefreshCaseData(ctx context.Context) (entities.RunReport, error) {
	report := entities.RunReport{StartedAt: uc.now()}
	zap.L().Info("starting case data refresh")

	raw, err := uc.cases.FetchCaseTable(ctx)
	if err != nil {
		return report, err
	}
	report.RawRows = len(raw.Rows)

	wide, exclusions, err := transform.NormalizeWide(raw, uc.lookup)
	report.Add(exclusions...)
	if err != nil {
		return report, err
	}
	report.WideRows = len(wide.Dates)
	report.Districts = len(wide.Districts)
	if len(wide.Dates) > 0 {
		report.FirstDate = wide.Dates[0]
		report.LastDate = wide.Dates[len(wide.Dates)-1]
	}

	long := transform.Melt(wide)
	report.LongRows = len(long)

	rolling, exclusions, err := transform.RollingMean(wide, uc.window)
	report.Add(exclusions...)
	if err != nil {
		return report, err
	}
	report.RollingRows = len(rolling)

	rawPopulation, err := uc.population.FetchPopulation(ctx)
	if err != nil {
		return report, err
	}
	population, exclusions, err := transform.NormalizePopulation(rawPopulation, uc.lookup)
	report.Add(exclusions...)
	if err != nil {
		return report, err
	}

	incidence, exclusions := transform.ComputeIncidence(long, population)
	report.Add(exclusions...)
	report.IncidenceRows = len(incidence)

	if err := uc.repo.SaveRolling(rolling); err != nil {
		return report, err
	}
	if err := uc.repo.SaveIncidence(incidence); err != nil {
		return report, err
	}

	report.FinishedAt = uc.now()
	zap.L().Info("case data refresh finished",
		zap.Int("rolling_rows", report.RollingRows),
		zap.Int("incidence_rows", report.IncidenceRows),
		zap.Int("exclusions", len(report.Exclusions)),
		zap.Duration("took", report.Duration()),
	)
	return report, nil
}
