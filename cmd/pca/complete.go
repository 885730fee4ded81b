package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/completer"
)

var (
	completeCampaign    string
	completeSummaryOnly bool
)

var completeCmd = &cobra.Command{
	Use:   "complete " + serverUsage,
	Short: "Complete a campaign and print its summary",
	Long: `Completes the campaign named with --campaign, or one chosen from an
assessment's campaigns, and prints its summary.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runE("complete", runComplete),
}

func init() {
	completeCmd.Flags().StringVar(&completeCampaign, "campaign", "", "exact name of the campaign")
	completeCmd.Flags().BoolVar(&completeSummaryOnly, "summary-only", false, "print the summary without completing")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	client, err := connect(ctx, args, 0)
	if err != nil {
		return err
	}

	p, closePrompt, err := newPrompter()
	if err != nil {
		return err
	}
	defer closePrompt()

	return completer.New(client, env.logger).Run(ctx, p, completer.Options{
		Campaign:    completeCampaign,
		SummaryOnly: completeSummaryOnly,
	})
}
