// Package reschedule moves the dates of an assessment's campaigns from a
// chosen campaign onward.
package reschedule

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
)

// FileName returns the name of the rescheduled assessment file
func FileName(assessmentID string) string {
	return assessmentID + "-reschedule.json"
}

// Rescheduler walks the operator through new campaign dates
type Rescheduler struct {
	prompt *prompt.Prompter
	logger *slog.Logger
}

// New creates a Rescheduler
func New(p *prompt.Prompter, logger *slog.Logger) *Rescheduler {
	return &Rescheduler{
		prompt: p,
		logger: logger.With("component", "reschedule"),
	}
}

// Run asks for the first campaign to move and new dates for it and every
// later campaign. The assessment is marked for a reschedule import.
func (r *Rescheduler) Run(a *models.Assessment) error {
	r.logger.Info("determining where to start rescheduling")
	a.Reschedule = true
	DisplayDates(r.prompt.Out(), a)

	last := 0
	for _, c := range a.Campaigns {
		if n, ok := c.Number(); ok && n > last {
			last = n
		}
	}
	if last == 0 {
		return fmt.Errorf("assessment %s has no numbered campaigns", a.ID)
	}

	start, err := r.prompt.Number("Select a Campaign to start rescheduling at", 0, 1, last)
	if err != nil {
		return err
	}
	a.StartCampaign = start

	for i := range a.Campaigns {
		c := &a.Campaigns[i]
		if n, ok := c.Number(); !ok || n < start {
			continue
		}
		if err := r.changeDates(c, a.Timezone); err != nil {
			return err
		}
		if err := a.ExtendDates(c); err != nil {
			return err
		}
	}

	r.logger.Info("dates have been changed")
	DisplayDates(r.prompt.Out(), a)
	return nil
}

func (r *Rescheduler) changeDates(c *models.Campaign, timezone string) error {
	r.logger.Info("changing dates", "campaign", c.Name)
	r.logger.Debug("pre-change dates", "launch", c.LaunchDate, "complete", c.CompleteDate)

	launch, err := r.prompt.Time("Campaign start", timezone, models.InputDate(c.LaunchDate, timezone))
	if err != nil {
		return err
	}
	for {
		complete, err := r.prompt.Time("Campaign end", timezone, models.InputDate(c.CompleteDate, timezone))
		if err != nil {
			return err
		}
		if err := models.CheckDates(launch, complete); err != nil {
			r.logger.Error("complete date is not after launch date", "launch", launch, "complete", complete)
			continue
		}
		c.LaunchDate, c.CompleteDate = launch, complete
		break
	}

	r.logger.Debug("post-change dates", "launch", c.LaunchDate, "complete", c.CompleteDate)
	return nil
}

// DisplayDates prints the assessment range and a table of campaign dates
func DisplayDates(out io.Writer, a *models.Assessment) {
	fmt.Fprintf(out, "Assessment ID: %s\n", a.ID)
	fmt.Fprintf(out, "Start Date: %s    End Date: %s\n\n", a.StartDate, a.EndDate)

	w := tabwriter.NewWriter(out, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "CAMPAIGN\tLAUNCH\tEND")
	for _, c := range a.Campaigns {
		num := "?"
		if n, ok := c.Number(); ok {
			num = fmt.Sprintf("%d", n)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", num, c.LaunchDate, c.CompleteDate)
	}
	w.Flush()
	fmt.Fprintln(out)
}
