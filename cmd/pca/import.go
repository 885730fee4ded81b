package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/importer"
	"github.com/foxzi/pca/internal/models"
)

var importReschedule bool

var importCmd = &cobra.Command{
	Use:   "import ASSESSMENT_FILE " + serverUsage,
	Short: "Load an assessment into Gophish",
	Long: `Creates the pages, groups, templates, SMTP profiles and campaigns of an
assessment. Objects whose name is already in use are deleted and created
again once.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runE("import", runImport),
}

func init() {
	importCmd.Flags().BoolVar(&importReschedule, "reschedule", false, "only reload campaigns from the file's start_campaign on")
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	a, err := models.Load(args[0])
	if err != nil {
		return err
	}
	info.assessmentID = a.ID

	client, err := connect(ctx, args, 1)
	if err != nil {
		return err
	}

	opts := importer.Options{Reschedule: importReschedule}
	if a.Reschedule && !importReschedule {
		env.logger.Warn("file was rescheduled; pass --reschedule to reload only the moved campaigns", "file", args[0])
	}

	banner.Printf("Importing %s into %s\n", a.ID, client.BaseURL())
	res, err := importer.New(client, env.logger).Import(ctx, a, opts)
	if res != nil {
		info.counts = map[string]int{
			"pages":     res.Pages,
			"groups":    res.Groups,
			"templates": res.Templates,
			"smtp":      res.SMTP,
			"campaigns": res.Campaigns,
			"replaced":  res.Replaced,
		}
	}
	if err != nil {
		return err
	}

	success.Printf("Import complete: %d pages, %d groups, %d templates, %d SMTP profiles, %d campaigns (%d replaced)\n",
		res.Pages, res.Groups, res.Templates, res.SMTP, res.Campaigns, res.Replaced)
	return nil
}
