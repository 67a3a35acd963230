package integration

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
)

// DefaultCasesURL is the LaGeSo page with daily new cases by district
const DefaultCasesURL = "https://www.berlin.de/lageso/gesundheit/infektionsepidemiologie-infektionsschutz/corona/tabelle-bezirke-gesamtuebersicht/"

// CaseScraper provides functionality to scrape the daily case table
type CaseScraper struct {
	fetcher    *PageFetcher
	sourceURL  string
	tableIndex int
	lookup     *districts.Lookup
}

// NewCaseScraper creates a new case table scraper
func NewCaseScraper(fetcher *PageFetcher, url string, tableIndex int, lookup *districts.Lookup) *CaseScraper {
	if url == "" {
		url = DefaultCasesURL
	}
	return &CaseScraper{
		fetcher:    fetcher,
		sourceURL:  url,
		tableIndex: tableIndex,
		lookup:     lookup,
	}
}

// URL returns the page the scraper reads
func (cs *CaseScraper) URL() string { return cs.sourceURL }

// FetchCaseTable retrieves the wide case table: a date column followed by
// one column per district code
func (cs *CaseScraper) FetchCaseTable(ctx context.Context) (entities.RawTable, error) {
	zap.L().Info("fetching case table", zap.String("url", cs.sourceURL))

	doc, err := cs.fetcher.FetchDocument(ctx, cs.sourceURL)
	if err != nil {
		return entities.RawTable{}, err
	}

	tables := ExtractTables(doc, cs.sourceURL)
	table, err := SelectTable(tables, cs.tableIndex, cs.fingerprint)
	if err != nil {
		zap.L().Error("case table not found", zap.String("url", cs.sourceURL), zap.Error(err))
		return entities.RawTable{}, entities.NewFetchError(cs.sourceURL, err)
	}

	zap.L().Info("parsed case table",
		zap.Int("table", table.Index),
		zap.Int("columns", len(table.Header)),
		zap.Int("rows", len(table.Rows)),
	)
	return table, nil
}

// fingerprint accepts a header with the date column and at least half of the
// known district codes
func (cs *CaseScraper) fingerprint(header []string) bool {
	hasDate := false
	known := 0
	for _, h := range header {
		if cs.lookup.IsDateColumn(h) {
			hasDate = true
			continue
		}
		if _, ok := cs.lookup.Name(strings.TrimSpace(h)); ok {
			known++
		}
	}
	return hasDate && known*2 >= len(cs.lookup.Names())
}
