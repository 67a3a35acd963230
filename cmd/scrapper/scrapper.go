package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/config"
	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/integration"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/usecases"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "scrapper",
	Short:         "Scrape Berlin COVID-19 district cases and export derived datasets",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newPipeline wires the scrapers and the CSV repository from configuration
func newPipeline(cfg *config.Config) (*usecases.PipelineUseCase, error) {
	lookup, err := districts.Default()
	if err != nil {
		return nil, err
	}
	zap.L().Info("using district lookup",
		zap.String("version", lookup.Version()),
		zap.Int("entries", lookup.Len()),
	)

	repo, err := repository.NewCSVRepository(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}

	fetcher := integration.NewPageFetcher(integration.FetcherOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
	})
	cases := integration.NewCaseScraper(fetcher, cfg.Sources.CasesURL, cfg.Sources.CasesTableIndex, lookup)
	population := integration.NewPopulationScraper(fetcher, cfg.Sources.PopulationURL, cfg.Sources.PopulationTableIndex, cfg.Sources.PopulationColumn)

	return usecases.NewPipelineUseCase(repo, cases, population, lookup), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("scrapper failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
