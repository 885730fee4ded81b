// Package cleaner removes an assessment's objects from a Gophish server.
package cleaner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
)

// Kind selects which objects to remove
type Kind string

// Removable kinds
const (
	Assessment Kind = "assessment"
	Campaigns  Kind = "campaigns"
	SMTP       Kind = "smtp"
	Groups     Kind = "groups"
	Templates  Kind = "templates"
	Pages      Kind = "pages"
)

// assessmentOrder is the removal order for a whole assessment. Campaigns
// go first since they reference everything else.
var assessmentOrder = []Kind{Campaigns, SMTP, Groups, Templates, Pages}

// Cleaner deletes remote objects belonging to an assessment
type Cleaner struct {
	client *gophish.Client
	logger *slog.Logger
}

// New creates a Cleaner
func New(client *gophish.Client, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		client: client,
		logger: logger.With("component", "cleaner"),
	}
}

// Confirm warns the operator and asks for a y/n confirmation
func Confirm(p *prompt.Prompter, kind Kind, assessmentID string) (bool, error) {
	if kind == Assessment {
		p.Warn("NOTE: THIS WILL REMOVE ALL DATA ASSOCIATED WITH ASSESSMENT %s", assessmentID)
	} else {
		p.Warn("NOTE: THIS WILL REMOVE ALL %s DATA ASSOCIATED WITH ASSESSMENT %s", strings.ToUpper(string(kind)), assessmentID)
	}
	return p.YesNo("Is this really what you want to do?", false)
}

// Remove deletes every object of kind whose name belongs to assessmentID
// and returns the number of objects removed.
func (c *Cleaner) Remove(ctx context.Context, kind Kind, assessmentID string) (int, error) {
	if kind == Assessment {
		total := 0
		for _, k := range assessmentOrder {
			n, err := c.Remove(ctx, k, assessmentID)
			total += n
			if err != nil {
				return total, err
			}
		}
		c.logger.Info("removed all elements of assessment", "assessment", assessmentID, "objects", total)
		return total, nil
	}

	switch kind {
	case Campaigns:
		return removeAll(ctx, c.client.Campaigns, assessmentID, c.logger)
	case SMTP:
		return removeAll(ctx, c.client.SMTP, assessmentID, c.logger)
	case Groups:
		return removeAll(ctx, c.client.Groups, assessmentID, c.logger)
	case Templates:
		return removeAll(ctx, c.client.Templates, assessmentID, c.logger)
	case Pages:
		return removeAll(ctx, c.client.Pages, assessmentID, c.logger)
	}
	return 0, fmt.Errorf("unknown kind %q", kind)
}

func removeAll[T gophish.Object](ctx context.Context, ep *gophish.Endpoint[T], assessmentID string, logger *slog.Logger) (int, error) {
	objs, err := ep.Filter(ctx, func(name string) bool {
		return models.MatchAssessmentID(assessmentID, name)
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, o := range objs {
		if err := ep.Delete(ctx, o.ObjectID()); err != nil {
			return removed, err
		}
		logger.Debug("removed", "kind", ep.Kind(), "name", o.ObjectName(), "id", o.ObjectID())
		removed++
	}
	logger.Info("removed objects", "kind", ep.Kind(), "count", removed, "assessment", assessmentID)
	return removed, nil
}
