package usecases

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/entities"
	"github.com/abelzeko/berlin-covid/internal/integration"
	"github.com/abelzeko/berlin-covid/internal/repository"
)

// mockHTMLServer creates a test server that serves a fixed HTML response
func mockHTMLServer(html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, html)
	}))
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "integration", "testdata", name))
	require.NoError(t, err)
	return string(b)
}

func newTestLookup(t *testing.T) *districts.Lookup {
	t.Helper()
	l, err := districts.Default()
	require.NoError(t, err)
	return l
}

// newFixturePipeline wires real scrapers against mock pages serving the
// fixture snapshots and a CSV repository in dir
func newFixturePipeline(t *testing.T, dir string) (*PipelineUseCase, *repository.CSVRepository) {
	t.Helper()
	casesServer := mockHTMLServer(readFixture(t, "cases.html"))
	t.Cleanup(casesServer.Close)
	populationServer := mockHTMLServer(readFixture(t, "population.html"))
	t.Cleanup(populationServer.Close)

	lookup := newTestLookup(t)
	fetcher := integration.NewPageFetcher(integration.FetcherOptions{
		Timeout:   2 * time.Second,
		RetryWait: 10 * time.Millisecond,
	})
	repo, err := repository.NewCSVRepository(dir)
	require.NoError(t, err)

	uc := NewPipelineUseCase(
		repo,
		integration.NewCaseScraper(fetcher, casesServer.URL, 0, lookup),
		integration.NewPopulationScraper(fetcher, populationServer.URL, integration.DefaultPopulationTableIndex, ""),
		lookup,
	)
	return uc, repo
}

type stubCases struct {
	table entities.RawTable
	err   error
}

func (s stubCases) FetchCaseTable(context.Context) (entities.RawTable, error) {
	return s.table, s.err
}

type stubPopulation struct {
	table entities.RawTable
	err   error
	calls *int
}

func (s stubPopulation) FetchPopulation(context.Context) (entities.RawTable, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.table, s.err
}

func populationTable() entities.RawTable {
	return entities.RawTable{
		Header: []string{"District", "Population"},
		Rows: [][]string{
			{"Mitte", "380,000"},
			{"Pankow", "400,000"},
			{"Total", "780,000"},
		},
	}
}

func caseTable(rows ...[]string) entities.RawTable {
	return entities.RawTable{Header: []string{"Datum", "MI", "PA"}, Rows: rows}
}
