package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/builder"
	"github.com/foxzi/pca/internal/filetemplate"
	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/reschedule"
	"github.com/foxzi/pca/internal/smtpcheck"
)

var (
	templatesEmails  bool
	templatesTargets bool
	smtpCheckTimeout time.Duration
)

var wizardCmd = &cobra.Command{
	Use:   "wizard ASSESSMENT_ID",
	Short: "Create an assessment JSON file interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runE("wizard", runWizard),
}

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule ASSESSMENT_FILE",
	Short: "Move the dates of an assessment's campaigns",
	Long: `Asks for the campaign to start rescheduling at and new dates for it and
every later campaign, then writes {id}-reschedule.json for "pca import --reschedule".`,
	Args: cobra.ExactArgs(1),
	RunE: runE("reschedule", runReschedule),
}

var templatesCmd = &cobra.Command{
	Use:   "templates (--emails | --targets)",
	Short: "Write a template email import file or target CSV",
	Args:  cobra.NoArgs,
	RunE:  runE("templates", runTemplates),
}

var smtpCheckCmd = &cobra.Command{
	Use:   "smtp-check ASSESSMENT_FILE",
	Short: "Check that the assessment's SMTP profiles reach their relay and log in",
	Args:  cobra.ExactArgs(1),
	RunE:  runE("smtp-check", runSMTPCheck),
}

func init() {
	templatesCmd.Flags().BoolVar(&templatesEmails, "emails", false, "write "+filetemplate.EmailFile)
	templatesCmd.Flags().BoolVar(&templatesTargets, "targets", false, "write "+filetemplate.TargetsFile)
	templatesCmd.MarkFlagsMutuallyExclusive("emails", "targets")
	templatesCmd.MarkFlagsOneRequired("emails", "targets")

	smtpCheckCmd.Flags().DurationVar(&smtpCheckTimeout, "timeout", 10*time.Second, "timeout for dialing and for each SMTP command")

	rootCmd.AddCommand(wizardCmd, rescheduleCmd, templatesCmd, smtpCheckCmd)
}

func runWizard(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	info.assessmentID = args[0]

	p, closePrompt, err := newPrompter()
	if err != nil {
		return err
	}
	defer closePrompt()

	b := builder.New(p, env.logger, builder.Options{SMTPHost: env.cfg.Wizard.SMTPHost})
	a, err := b.Build(args[0])
	if err != nil {
		return err
	}

	path, err := builder.Write(env.cfg.Wizard.OutputDir, a)
	if err != nil {
		return err
	}
	info.counts = map[string]int{
		"pages":     len(a.Pages),
		"groups":    len(a.Groups),
		"campaigns": len(a.Campaigns),
	}
	success.Printf("Assessment JSON ready: %s\n", path)
	return nil
}

func runReschedule(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	a, err := models.Load(args[0])
	if err != nil {
		return err
	}
	info.assessmentID = a.ID

	p, closePrompt, err := newPrompter()
	if err != nil {
		return err
	}
	defer closePrompt()

	if err := reschedule.New(p, env.logger).Run(a); err != nil {
		return err
	}

	path := filepath.Join(env.cfg.Wizard.OutputDir, reschedule.FileName(a.ID))
	if err := a.Save(path); err != nil {
		return err
	}
	info.counts = map[string]int{"start_campaign": a.StartCampaign}
	success.Printf("Rescheduled assessment ready: %s\n", path)
	return nil
}

func runTemplates(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	var (
		path string
		err  error
	)
	if templatesEmails {
		path, err = filetemplate.WriteEmail(env.cfg.Wizard.OutputDir)
	} else {
		path, err = filetemplate.WriteTargets(env.cfg.Wizard.OutputDir)
	}
	if err != nil {
		return err
	}
	success.Printf("Template written: %s\n", path)
	return nil
}

func runSMTPCheck(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	a, err := models.Load(args[0])
	if err != nil {
		return err
	}
	info.assessmentID = a.ID

	banner.Printf("Checking SMTP profiles of %s\n", a.ID)
	results, err := smtpcheck.New(env.logger, smtpCheckTimeout).CheckAssessment(ctx, a)
	for _, res := range results {
		tls := "no"
		if res.StartTLS {
			tls = "TLS " + res.TLSVersion
		}
		shared := ""
		if res.Shared {
			shared = "  (same relay and login as above)"
		}
		fmt.Printf("  [OK] %s  %s  starttls=%s  auth=%t  (%v)%s\n",
			res.Profile, res.Addr, tls, res.Authenticated, res.Latency.Round(time.Millisecond), shared)
	}
	info.counts = map[string]int{"profiles": len(results)}
	return err
}
