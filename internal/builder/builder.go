// Package builder walks an operator through creating an assessment
// document: time zone, domains, landing pages, target groups, the sending
// profile and finally the campaigns.
package builder

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/foxzi/pca/internal/dnscheck"
	"github.com/foxzi/pca/internal/logging"
	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
	"github.com/foxzi/pca/internal/validate"
)

const modifyPrompt = "Do you need to modify any of the values for this %s?"

// Options carries the wizard defaults taken from the config file
type Options struct {
	SMTPHost string
}

// Builder runs the assessment wizard
type Builder struct {
	prompt *prompt.Prompter
	logger *slog.Logger
	opts   Options
}

// New creates a Builder
func New(p *prompt.Prompter, logger *slog.Logger, opts Options) *Builder {
	if opts.SMTPHost == "" {
		opts.SMTPHost = models.DefaultSMTPHost
	}
	return &Builder{
		prompt: p,
		logger: logger.With("component", "builder"),
		opts:   opts,
	}
}

// FileName returns the name of the assessment file written by the wizard
func FileName(assessmentID string) string {
	return assessmentID + ".json"
}

// Write saves a into dir and returns the file path
func Write(dir string, a *models.Assessment) (string, error) {
	path := filepath.Join(dir, FileName(a.ID))
	if err := a.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Build asks for every part of a new assessment in a fixed order
func (b *Builder) Build(id string) (*models.Assessment, error) {
	if !validate.AssessmentID(id) {
		b.logger.Warn("assessment id does not follow the RV#### convention", "id", id)
	}
	b.logger.Info("building assessment", "id", id)

	tz, err := b.prompt.Select("Assessment time zone", models.Timezones, indexOf(models.Timezones, models.DefaultTimezone))
	if err != nil {
		return nil, err
	}
	a := models.NewAssessment(id, models.Timezones[tz])

	if a.Domain, err = b.prompt.Input("Assessment domain (subdomain.domain.tld)", ""); err != nil {
		return nil, err
	}
	domains, err := b.prompt.Input("Targeted domain(s) separated by spaces", "")
	if err != nil {
		return nil, err
	}
	a.TargetDomains = strings.Fields(strings.ToLower(domains))
	for _, d := range append([]string{a.Domain}, a.TargetDomains...) {
		if err := dnscheck.ValidateDomain(d); err != nil {
			b.logger.Warn("domain does not look like a host name", "error", err)
		}
	}

	if a.Pages, err = b.buildPages(id); err != nil {
		return nil, err
	}
	if a.Groups, err = b.buildGroups(id, a.TargetDomains); err != nil {
		return nil, err
	}

	smtp, err := b.buildSMTP(id)
	if err != nil {
		return nil, err
	}

	b.logger.Info("building campaigns")
	n, err := b.prompt.Number("How many campaigns?", 0, 1, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i <= n; i++ {
		if err := b.buildCampaign(a, i, smtp); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// buildSMTP asks for the relay settings shared by every campaign's profile
func (b *Builder) buildSMTP(id string) (*models.SMTP, error) {
	smtp := models.NewSMTP(id + "-SP")

	var err error
	if smtp.Host, err = b.prompt.Input("SMTP host", b.opts.SMTPHost); err != nil {
		return nil, err
	}
	if smtp.Username, err = b.prompt.Optional("SMTP user", ""); err != nil {
		return nil, err
	}
	if smtp.Password, err = b.prompt.Secret("SMTP password"); err != nil {
		return nil, err
	}
	return smtp, nil
}

// editField asks which of fields to change. The last option ends the review.
func (b *Builder) editField(kind string, fields []string) (string, bool, error) {
	modify, err := b.prompt.YesNo(fmt.Sprintf(modifyPrompt, kind), false)
	if err != nil || !modify {
		return "", false, err
	}
	i, err := b.prompt.Select("Which field", fields, -1)
	if err != nil {
		return "", false, err
	}
	return fields[i], true, nil
}

func (b *Builder) critical(msg string, args ...any) {
	logging.Critical(b.logger, msg, args...)
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func title(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
