package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/exporter"
)

var exportCmd = &cobra.Command{
	Use:   "export ASSESSMENT_ID " + serverUsage,
	Short: "Export an assessment's targets, clicks and send status",
	Long: `Writes data_{id}.json with pseudonymized targets and the clicks and
send status of every campaign of the assessment. Nothing on the server is
changed.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runE("export", runExport),
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	info.assessmentID = args[0]

	client, err := connect(ctx, args, 1)
	if err != nil {
		return err
	}

	report, err := exporter.New(client, env.logger).Export(ctx, args[0])
	if err != nil {
		return err
	}

	path, err := report.Write(env.cfg.Wizard.OutputDir, args[0])
	if err != nil {
		return err
	}

	clicks := 0
	for _, c := range report.Campaigns {
		clicks += len(c.Clicks)
	}
	info.counts = map[string]int{
		"targets":   len(report.Targets),
		"campaigns": len(report.Campaigns),
		"clicks":    clicks,
	}
	success.Printf("Data written to: %s\n", path)
	return nil
}
