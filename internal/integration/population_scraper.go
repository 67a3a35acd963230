package integration

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

const (
	// DefaultPopulationURL is the reference page with population by borough
	DefaultPopulationURL = "https://en.wikipedia.org/wiki/Demographics_of_Berlin"
	// DefaultPopulationTableIndex is the ordinal of the borough table on that page
	DefaultPopulationTableIndex = 4
	// DefaultPopulationColumn is the census column used as denominator
	DefaultPopulationColumn = "Population 2010"
)

// PopulationScraper scrapes district population from a wiki-style page
type PopulationScraper struct {
	fetcher    *PageFetcher
	sourceURL  string
	tableIndex int
	column     string
}

// NewPopulationScraper creates a new population table scraper
func NewPopulationScraper(fetcher *PageFetcher, url string, tableIndex int, column string) *PopulationScraper {
	if url == "" {
		url = DefaultPopulationURL
	}
	if column == "" {
		column = DefaultPopulationColumn
	}
	return &PopulationScraper{
		fetcher:    fetcher,
		sourceURL:  url,
		tableIndex: tableIndex,
		column:     column,
	}
}

// URL returns the page the scraper reads
func (ps *PopulationScraper) URL() string { return ps.sourceURL }

// FetchPopulation retrieves the population table projected to two columns,
// District and Population. The aggregate last row is still present.
func (ps *PopulationScraper) FetchPopulation(ctx context.Context) (entities.RawTable, error) {
	zap.L().Info("fetching population table", zap.String("url", ps.sourceURL))

	doc, err := ps.fetcher.FetchDocument(ctx, ps.sourceURL)
	if err != nil {
		return entities.RawTable{}, err
	}

	tables := ExtractTables(doc, ps.sourceURL)
	table, err := SelectTable(tables, ps.tableIndex, ps.fingerprint)
	if err != nil {
		zap.L().Error("population table not found", zap.String("url", ps.sourceURL), zap.Error(err))
		return entities.RawTable{}, entities.NewFetchError(ps.sourceURL, err)
	}

	districtCol := HeaderIndex(table.Header, isDistrictHeader)
	popCol := ps.populationIndex(table.Header)

	projected := entities.RawTable{
		Source: table.Source,
		Index:  table.Index,
		Header: []string{"District", "Population"},
		Rows:   make([][]string, 0, len(table.Rows)),
	}
	for _, row := range table.Rows {
		// short rows (captions, notes) become incomplete rows and are dropped later
		projected.Rows = append(projected.Rows, []string{cellAt(row, districtCol), cellAt(row, popCol)})
	}

	zap.L().Info("parsed population table",
		zap.Int("table", table.Index),
		zap.String("district_column", table.Header[districtCol]),
		zap.String("population_column", table.Header[popCol]),
		zap.Int("rows", len(projected.Rows)),
	)
	if len(projected.Rows) == 0 {
		return entities.RawTable{}, entities.NewFetchError(ps.sourceURL, eris.New("population table has no rows"))
	}
	return projected, nil
}

func (ps *PopulationScraper) fingerprint(header []string) bool {
	return HeaderIndex(header, isDistrictHeader) >= 0 && ps.populationIndex(header) >= 0
}

// populationIndex prefers the configured column and falls back to the first
// header starting with "Population"
func (ps *PopulationScraper) populationIndex(header []string) int {
	if i := HeaderIndex(header, func(h string) bool { return strings.EqualFold(h, ps.column) }); i >= 0 {
		return i
	}
	return HeaderIndex(header, func(h string) bool {
		return strings.HasPrefix(strings.ToLower(h), "population")
	})
}

func isDistrictHeader(h string) bool {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "borough", "district", "bezirk":
		return true
	}
	return false
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
