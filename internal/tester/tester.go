// Package tester clones an assessment's campaigns onto a group of test
// addresses entered by the operator, so the emails can be checked before
// the real send.
package tester

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/importer"
	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
)

// Prefix is prepended to the names of test groups and campaigns
const Prefix = "Test-"

// doneWord ends target entry
const doneWord = "done"

// ErrNoTargets is returned when the operator enters no test target
var ErrNoTargets = errors.New("no test targets entered")

// Tester creates test campaigns
type Tester struct {
	client *gophish.Client
	logger *slog.Logger
}

// New creates a Tester
func New(client *gophish.Client, logger *slog.Logger) *Tester {
	return &Tester{
		client: client,
		logger: logger.With("component", "tester"),
	}
}

// GroupName returns the name of the test group of an assessment
func GroupName(assessmentID string) string {
	return Prefix + assessmentID
}

// Run asks for test targets, creates the test group and one test campaign
// per assessment campaign. It returns the number of campaigns created.
func (t *Tester) Run(ctx context.Context, p *prompt.Prompter, assessmentID string) (int, error) {
	t.logger.Info("gathering campaigns", "assessment", assessmentID)
	campaigns, err := t.client.Campaigns.Filter(ctx, func(name string) bool {
		return models.MatchAssessmentID(assessmentID, name)
	})
	if err != nil {
		return 0, err
	}
	t.logger.Debug("campaigns found", "count", len(campaigns))
	if len(campaigns) == 0 {
		t.logger.Warn("no campaigns found", "assessment", assessmentID)
		return 0, nil
	}

	targets, err := ReadTargets(p)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		return 0, ErrNoTargets
	}

	// earlier test campaigns reference the test group
	for _, c := range campaigns {
		old, err := t.client.Campaigns.ByName(ctx, Prefix+c.Name)
		if err != nil {
			return 0, err
		}
		for _, o := range old {
			if err := t.client.Campaigns.Delete(ctx, o.ID); err != nil {
				return 0, err
			}
		}
	}

	t.logger.Info("adding test group", "name", GroupName(assessmentID), "targets", len(targets))
	group := &gophish.Group{Name: GroupName(assessmentID), Targets: targets}
	if _, _, err := importer.CreateOrReplace(ctx, t.client.Groups, group, t.logger); err != nil {
		return 0, err
	}

	created := 0
	for _, c := range campaigns {
		test := &gophish.Campaign{
			Name:     Prefix + c.Name,
			Groups:   []gophish.Group{{Name: group.Name}},
			Page:     gophish.Page{Name: c.Page.Name},
			Template: gophish.Template{Name: c.Template.Name},
			SMTP:     gophish.SMTP{Name: c.SMTP.Name},
			URL:      c.URL,
		}
		out, err := t.client.Campaigns.Create(ctx, test)
		if err != nil {
			return created, err
		}
		t.logger.Debug("test campaign added", "name", out.Name, "id", out.ID)
		created++
	}

	t.logger.Info("all test campaigns added", "count", created)
	return created, nil
}

// ReadTargets asks for test targets until the operator enters "done" as a
// first name.
func ReadTargets(p *prompt.Prompter) ([]gophish.Target, error) {
	var targets []gophish.Target
	msg := "Enter First Name"
	for {
		first, err := p.Input(msg, "")
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(first, doneWord) {
			return targets, nil
		}
		last, err := p.Input("Enter Last Name", "")
		if err != nil {
			return nil, err
		}
		email, err := p.Email("Enter Email", "")
		if err != nil {
			return nil, err
		}
		org, err := p.Optional("Enter Org", "")
		if err != nil {
			return nil, err
		}
		targets = append(targets, gophish.Target{
			FirstName: first,
			LastName:  last,
			Email:     email,
			Position:  org,
		})
		msg = "Enter First Name or 'done'"
	}
}
