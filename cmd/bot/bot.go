package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/berlin-covid/internal/api"
	"github.com/abelzeko/berlin-covid/internal/config"
	"github.com/abelzeko/berlin-covid/internal/districts"
	"github.com/abelzeko/berlin-covid/internal/repository"
	"github.com/abelzeko/berlin-covid/internal/usecases"
)

var rootCmd = &cobra.Command{
	Use:           "bot",
	Short:         "Answer district COVID-19 questions on Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		defer zap.L().Sync()

		if err := cfg.Validate("bot"); err != nil {
			return err
		}
		zap.L().Info("starting berlin covid bot")

		lookup, err := districts.Default()
		if err != nil {
			return err
		}
		repo, err := repository.NewCSVRepository(cfg.Output.Dir)
		if err != nil {
			return err
		}
		queries := usecases.NewQueryUseCase(repo, lookup)

		telegramBot, err := api.NewTelegramBot(cfg.Telegram.Token, queries)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		telegramBot.Start(ctx)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("bot failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
