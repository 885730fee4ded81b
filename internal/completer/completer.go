// Package completer completes Gophish campaigns and prints their summary.
package completer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
)

// ErrCampaignNotFound is returned when no campaign matches the request
var ErrCampaignNotFound = errors.New("campaign not found")

// Options select the campaign and the action
type Options struct {
	// Campaign is the exact campaign name. When empty the operator is asked
	// for an assessment id and picks one of its campaigns.
	Campaign    string
	SummaryOnly bool
}

// Completer completes campaigns
type Completer struct {
	client *gophish.Client
	logger *slog.Logger
}

// New creates a Completer
func New(client *gophish.Client, logger *slog.Logger) *Completer {
	return &Completer{
		client: client,
		logger: logger.With("component", "completer"),
	}
}

// Run resolves the campaign, completes it unless SummaryOnly is set and
// prints its summary.
func (c *Completer) Run(ctx context.Context, p *prompt.Prompter, opts Options) error {
	var (
		id  int64
		err error
	)
	if opts.Campaign != "" {
		id, err = c.FindByName(ctx, opts.Campaign)
	} else {
		id, err = c.choose(ctx, p)
	}
	if err != nil {
		return err
	}

	if !opts.SummaryOnly {
		msg, err := c.client.CompleteCampaign(ctx, id)
		if err != nil {
			return err
		}
		p.Println()
		p.Println(msg)
		c.logger.Info("campaign completed", "id", id)
	}

	sum, err := c.client.CampaignSummary(ctx, id)
	if err != nil {
		return err
	}
	PrintSummary(p.Out(), sum)
	return nil
}

// FindByName returns the ID of the campaign named name
func (c *Completer) FindByName(ctx context.Context, name string) (int64, error) {
	found, err := c.client.Campaigns.ByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrCampaignNotFound, name)
	}
	return found[0].ID, nil
}

// AssessmentCampaigns returns the campaigns belonging to assessmentID
func (c *Completer) AssessmentCampaigns(ctx context.Context, assessmentID string) ([]gophish.Campaign, error) {
	found, err := c.client.Campaigns.Filter(ctx, func(name string) bool {
		return models.MatchAssessmentID(assessmentID, name)
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: no campaigns for assessment %s", ErrCampaignNotFound, assessmentID)
	}
	return found, nil
}

func (c *Completer) choose(ctx context.Context, p *prompt.Prompter) (int64, error) {
	assessmentID, err := p.Input("Enter the Assessment ID", "")
	if err != nil {
		return 0, err
	}
	campaigns, err := c.AssessmentCampaigns(ctx, assessmentID)
	if err != nil {
		return 0, err
	}

	options := make([]string, len(campaigns))
	for i, camp := range campaigns {
		options[i] = fmt.Sprintf("%s (id %d)", camp.Name, camp.ID)
	}
	p.Println("Please select a Campaign:")
	i, err := p.Select("Campaign", options, -1)
	if err != nil {
		return 0, err
	}
	return campaigns[i].ID, nil
}

// PrintSummary writes a campaign summary to w
func PrintSummary(w io.Writer, s *gophish.Summary) {
	fmt.Fprintln(w, "Campaign Summary:")
	fmt.Fprintf(w, "\tName: %s\n", s.Name)
	fmt.Fprintf(w, "\tStatus: %s\n", s.Status)
	fmt.Fprintf(w, "\tLaunch Date: %s\n", s.LaunchDate)
	fmt.Fprintf(w, "\tCompleted Date: %s\n", s.CompletedDate)
	fmt.Fprintf(w, "\tTotal Users: %d\n", s.Stats.Total)
	fmt.Fprintf(w, "\tTotal Sent: %d\n", s.Stats.Sent)
	fmt.Fprintf(w, "\tTotal Clicks: %d\n", s.Stats.Clicked)
}
