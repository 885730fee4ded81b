package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/tester"
)

var testCmd = &cobra.Command{
	Use:   "test ASSESSMENT_ID " + serverUsage,
	Short: "Send an assessment's campaigns to a test group",
	Long: `Asks for test targets until "done", creates the Test-{id} group and a
Test- copy of every campaign of the assessment aimed at it.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runE("test", runTest),
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	info.assessmentID = args[0]

	client, err := connect(ctx, args, 1)
	if err != nil {
		return err
	}

	p, closePrompt, err := newPrompter()
	if err != nil {
		return err
	}
	defer closePrompt()

	n, err := tester.New(client, env.logger).Run(ctx, p, args[0])
	info.counts = map[string]int{"campaigns": n}
	if err != nil {
		return err
	}
	if n > 0 {
		success.Printf("Created %d test campaigns for group %s\n", n, tester.GroupName(args[0]))
	}
	return nil
}
