package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/usecases"
)

var scheduleSkipInitial bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline now and then on the configured cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("schedule"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline, err := newPipeline(cfg)
		if err != nil {
			return err
		}
		return runSchedule(ctx, pipeline, cfg.Schedule.Cron, !scheduleSkipInitial)
	},
}

// runSchedule refreshes the data on every tick of spec until ctx is done.
// A run still in progress when the next tick fires causes that tick to be
// skipped. Failed runs are logged and retried on the next tick.
func runSchedule(ctx context.Context, pipeline *usecases.PipelineUseCase, spec string, runNow bool) error {
	refresh := func() {
		report, err := pipeline.RefreshCaseData(ctx)
		if err != nil {
			zap.L().Error("scheduled data refresh failed", zap.Error(err))
			return
		}
		zap.L().Info("scheduled data refresh complete",
			zap.Int("incidence_rows", report.IncidenceRows),
			zap.Duration("took", report.Duration()),
		)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(spec, refresh); err != nil {
		return eris.Wrapf(err, "failed to set up cron job %q", spec)
	}

	if runNow {
		refresh()
	}

	zap.L().Info("scraper has been scheduled", zap.String("cron", spec))
	c.Start()

	<-ctx.Done()
	zap.L().Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleSkipInitial, "skip-initial", false, "wait for the first tick instead of running immediately")
	rootCmd.AddCommand(scheduleCmd)
}
