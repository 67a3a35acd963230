package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abelzeko/berlin-covid/internal/api"
	"github.com/abelzeko/berlin-covid/internal/config"
	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/geo"
	"github.com/abelzeko/berlin-covid/internal/integration"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/usecases"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg       *config.Config
	servePort int
)

var rootCmd = &cobra.Command{
	Use:           "dashboard",
	Short:         "Serve the exported COVID-19 datasets over HTTP",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handler, err := newHandler(ctx, cfg)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		return serve(ctx, srv)
	},
}

// newHandler wires the dashboard from configuration. A boundary file that
// cannot be loaded disables the map endpoint instead of failing startup.
func newHandler(ctx context.Context, cfg *config.Config) (http.Handler, error) {
	lookup, err := districts.Default()
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewCSVRepository(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	queries := usecases.NewQueryUseCase(repo, lookup)

	var boundaries *geo.Boundaries
	if cfg.Geo.BoundariesURL != "" {
		fetcher := integration.NewPageFetcher(integration.FetcherOptions{
			UserAgent:  cfg.HTTP.UserAgent,
			Timeout:    cfg.HTTP.Timeout(),
			MaxRetries: cfg.HTTP.MaxRetries,
		})
		boundaries, err = geo.LoadBoundaries(ctx, fetcher, cfg.Geo.BoundariesURL, cfg.Geo.FeatureKey, lookup)
		if err != nil {
			zap.L().Warn("district boundaries unavailable, map disabled", zap.Error(err))
			boundaries = nil
		}
	}

	return api.NewDashboard(queries, boundaries).AllowOrigins(cfg.Server.AllowedOrigins...).Router(), nil
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func init() {
	rootCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("dashboard failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
