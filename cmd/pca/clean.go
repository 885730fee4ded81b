package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/cleaner"
)

var cleanKinds = []cleaner.Kind{
	cleaner.Assessment,
	cleaner.Campaigns,
	cleaner.Groups,
	cleaner.Pages,
	cleaner.SMTP,
	cleaner.Templates,
}

var cleanFlags = make(map[cleaner.Kind]*bool)

var cleanCmd = &cobra.Command{
	Use:   "clean (--assessment | --campaigns | --groups | --pages | --smtp | --templates) ASSESSMENT_ID " + serverUsage,
	Short: "Remove an assessment's objects from Gophish",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runE("clean", runClean),
}

func init() {
	names := make([]string, 0, len(cleanKinds))
	for _, kind := range cleanKinds {
		name := string(kind)
		cleanFlags[kind] = cleanCmd.Flags().Bool(name, false, fmt.Sprintf("remove the assessment's %s", name))
		names = append(names, name)
	}
	cleanCmd.MarkFlagsMutuallyExclusive(names...)
	cleanCmd.MarkFlagsOneRequired(names...)

	rootCmd.AddCommand(cleanCmd)
}

func runClean(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	id := args[0]
	info.assessmentID = id

	var kind cleaner.Kind
	for _, k := range cleanKinds {
		if *cleanFlags[k] {
			kind = k
		}
	}

	client, err := connect(ctx, args, 1)
	if err != nil {
		return err
	}

	p, closePrompt, err := newPrompter()
	if err != nil {
		return err
	}
	defer closePrompt()

	ok, err := cleaner.Confirm(p, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		env.logger.Info("nothing removed", "assessment", id)
		return nil
	}

	n, err := cleaner.New(client, env.logger).Remove(ctx, kind, id)
	info.counts = map[string]int{string(kind): n}
	if err != nil {
		return err
	}
	success.Printf("Removed %d objects of %s\n", n, id)
	return nil
}
