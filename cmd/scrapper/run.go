package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abelzeko/berlin-covid/internal/entities"
)

var runQuiet bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and export the CSV files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scrape"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		report, err := pipeline.RefreshCaseData(ctx)
		if err != nil {
			return err
		}
		if !runQuiet {
			printReport(cmd.OutOrStdout(), report)
		}
		return nil
	},
}

// printReport renders the run summary and its exclusions as tables
func printReport(w io.Writer, report entities.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Pipeline run")
	t.AppendHeader(table.Row{"Stage", "Rows"})
	t.AppendRows([]table.Row{
		{"raw case rows", report.RawRows},
		{"wide rows", report.WideRows},
		{"districts", report.Districts},
		{"long rows", report.LongRows},
		{"rolling rows", report.RollingRows},
		{"incidence rows", report.IncidenceRows},
	})
	t.AppendFooter(table.Row{"dates", fmt.Sprintf("%s .. %s", report.FirstDate, report.LastDate)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(report.Exclusions) == 0 {
		return
	}
	ex := table.NewWriter()
	ex.SetOutputMirror(w)
	ex.SetTitle("Exclusions")
	ex.AppendHeader(table.Row{"Stage", "Reason", "Subject", "Rows"})
	for _, e := range report.Exclusions {
		ex.AppendRow(table.Row{e.Stage, e.Reason, e.Subject, e.Rows})
	}
	reasons, counts := report.ExcludedByReason()
	for _, reason := range reasons {
		ex.AppendFooter(table.Row{"", reason, "total", counts[reason]})
	}
	ex.SetStyle(table.StyleRounded)
	ex.Render()
}

func init() {
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print the run summary")
	rootCmd.AddCommand(runCmd)
}
