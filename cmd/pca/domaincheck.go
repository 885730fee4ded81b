package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/pca/internal/dnscheck"
	"github.com/foxzi/pca/internal/models"
)

var domainCheckTimeout time.Duration

var domainCheckCmd = &cobra.Command{
	Use:   "domain-check ASSESSMENT_FILE",
	Short: "Check DNS of the assessment's landing domain and sender domains",
	Long: `Resolves the assessment domain and looks up the MX, SPF and DMARC records
of every from address domain used by its campaigns.`,
	Args: cobra.ExactArgs(1),
	RunE: runE("domain-check", runDomainCheck),
}

func init() {
	domainCheckCmd.Flags().DurationVar(&domainCheckTimeout, "timeout", 15*time.Second, "timeout for all lookups")
	rootCmd.AddCommand(domainCheckCmd)
}

func runDomainCheck(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error {
	a, err := models.Load(args[0])
	if err != nil {
		return err
	}
	info.assessmentID = a.ID

	ctx, cancel := context.WithTimeout(ctx, domainCheckTimeout)
	defer cancel()

	banner.Printf("Checking DNS of %s\n", a.ID)
	results, err := dnscheck.New(nil).CheckAssessment(ctx, a)
	if err != nil {
		return err
	}

	failed := 0
	for _, d := range results {
		fmt.Printf("\n%s (%s)\n", d.Domain, d.Role)
		for _, r := range d.Results {
			fmt.Printf("  [%s] %s: %s\n", statusTag(r.Status), r.Type, detail(r))
		}
		if d.Failed() {
			failed++
		}
	}
	info.counts = map[string]int{"domains": len(results), "failed": failed}

	if failed > 0 {
		return fmt.Errorf("%d of %d domains failed DNS checks", failed, len(results))
	}
	success.Printf("\nAll %d domains passed\n", len(results))
	return nil
}

func statusTag(status string) string {
	switch status {
	case dnscheck.StatusOK:
		return "OK"
	case dnscheck.StatusWarning:
		return "WARN"
	case dnscheck.StatusNotFound:
		return "MISSING"
	default:
		return strings.ToUpper(status)
	}
}

func detail(r dnscheck.CheckResult) string {
	switch {
	case r.Value != "" && r.Message != "":
		return r.Value + " (" + r.Message + ")"
	case r.Value != "":
		return r.Value
	default:
		return r.Message
	}
}
