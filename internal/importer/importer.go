// Package importer pushes an assessment document to a Gophish server.
// Objects are reconciled by name: a create rejected because the name is
// in use deletes the existing object and is retried once.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/metrics"
	"github.com/foxzi/pca/internal/models"
)

// Options control an import run
type Options struct {
	// Reschedule reloads only the campaigns numbered at or after the
	// assessment's start_campaign, leaving pages and groups untouched.
	Reschedule bool
}

// Result summarizes an import run
type Result struct {
	Pages     int
	Groups    int
	Templates int
	SMTP      int
	Campaigns int
	Replaced  int
}

// Importer loads assessments into Gophish
type Importer struct {
	client *gophish.Client
	logger *slog.Logger
}

// New creates an Importer
func New(client *gophish.Client, logger *slog.Logger) *Importer {
	return &Importer{
		client: client,
		logger: logger.With("component", "importer"),
	}
}

// Import creates every page, group and campaign of a. The document is
// validated before the first remote call. Any error other than a single
// name collision per object aborts the run, leaving what was already
// created in place.
func (im *Importer) Import(ctx context.Context, a *models.Assessment, opts Options) (*Result, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("assessment %s: %w", a.ID, err)
	}

	res := &Result{}

	if !opts.Reschedule {
		for _, p := range a.Pages {
			replaced, err := im.loadPage(ctx, p)
			if err != nil {
				return res, err
			}
			res.Pages++
			res.add(replaced)
		}

		for _, g := range a.Groups {
			replaced, err := im.loadGroup(ctx, g)
			if err != nil {
				return res, err
			}
			res.Groups++
			res.add(replaced)
		}
	}

	im.logger.Info("building campaigns", "count", len(a.Campaigns), "reschedule", opts.Reschedule)
	for i := range a.Campaigns {
		c := &a.Campaigns[i]
		if opts.Reschedule {
			n, ok := c.Number()
			if !ok {
				return res, fmt.Errorf("campaign %q: name does not end in a campaign number", c.Name)
			}
			if n < a.StartCampaign {
				im.logger.Debug("skipping campaign before start", "campaign", c.Name, "start", a.StartCampaign)
				continue
			}
		}
		if err := im.loadCampaign(ctx, c, res); err != nil {
			return res, err
		}
	}

	return res, nil
}

func (r *Result) add(replaced bool) {
	if replaced {
		r.Replaced++
	}
}

func (im *Importer) loadPage(ctx context.Context, p models.Page) (bool, error) {
	page := &gophish.Page{
		Name:               p.Name,
		HTML:               p.HTML,
		CaptureCredentials: p.CaptureCredentials,
		CapturePasswords:   p.CapturePasswords,
		RedirectURL:        p.RedirectURL,
	}
	im.logger.Debug("loading page", "name", p.Name, "redirect_url", p.RedirectURL)

	created, replaced, err := CreateOrReplace(ctx, im.client.Pages, page, im.logger)
	if err != nil {
		return false, err
	}
	im.logger.Info("landing page loaded", "name", created.Name, "id", created.ID)
	return replaced, nil
}

func (im *Importer) loadGroup(ctx context.Context, g models.Group) (bool, error) {
	group := &gophish.Group{Name: g.Name}
	for _, t := range g.Targets {
		group.Targets = append(group.Targets, gophish.Target{
			Email:     t.Email,
			FirstName: t.FirstName,
			LastName:  t.LastName,
			Position:  t.Position,
		})
	}
	im.logger.Info("loading group", "name", g.Name, "targets", len(group.Targets))

	created, replaced, err := CreateOrReplace(ctx, im.client.Groups, group, im.logger)
	if err != nil {
		return false, err
	}
	im.logger.Info("group ready", "name", created.Name, "id", created.ID)
	return replaced, nil
}

func (im *Importer) loadCampaign(ctx context.Context, c *models.Campaign, res *Result) error {
	im.logger.Info("building campaign", "name", c.Name)

	tmpl := &gophish.Template{
		Name:    c.Template.Name,
		Subject: c.Template.Subject,
		HTML:    c.Template.HTML,
		Text:    c.Template.Text,
	}
	_, replaced, err := CreateOrReplace(ctx, im.client.Templates, tmpl, im.logger)
	if err != nil {
		return err
	}
	res.Templates++
	res.add(replaced)

	profile := &gophish.SMTP{
		Name:             c.SMTP.Name,
		Host:             c.SMTP.Host,
		FromAddress:      c.SMTP.FromAddress,
		InterfaceType:    c.SMTP.InterfaceType,
		IgnoreCertErrors: c.SMTP.IgnoreCert,
	}
	if profile.InterfaceType == "" {
		profile.InterfaceType = models.SMTPInterfaceType
	}
	if c.SMTP.Username != "" && c.SMTP.Password != "" {
		profile.Username = c.SMTP.Username
		profile.Password = c.SMTP.Password
	}
	_, replaced, err = CreateOrReplace(ctx, im.client.SMTP, profile, im.logger)
	if err != nil {
		return err
	}
	res.SMTP++
	res.add(replaced)

	old, err := im.client.Campaigns.ByName(ctx, c.Name)
	if err != nil {
		return err
	}
	for _, o := range old {
		im.logger.Warn("deleting previous campaign with the same name", "name", c.Name, "id", o.ID)
		if err := im.client.Campaigns.Delete(ctx, o.ID); err != nil {
			return err
		}
		res.Replaced++
	}

	campaign := &gophish.Campaign{
		Name:          c.Name,
		Groups:        []gophish.Group{{Name: c.GroupName}},
		Page:          gophish.Page{Name: c.PageName},
		Template:      gophish.Template{Name: tmpl.Name},
		SMTP:          gophish.SMTP{Name: profile.Name},
		URL:           c.URL,
		LaunchDate:    c.LaunchDate,
		CompletedDate: c.CompleteDate,
	}
	created, err := im.client.Campaigns.Create(ctx, campaign)
	if err != nil {
		return err
	}
	res.Campaigns++

	im.logger.Info("campaign loaded", "name", created.Name, "id", created.ID)
	return nil
}

// CreateOrReplace creates obj. When the name is already in use the
// existing objects with that name are deleted and the create is retried
// once; a second collision is returned to the caller.
func CreateOrReplace[T gophish.Object](ctx context.Context, ep *gophish.Endpoint[T], obj *T, logger *slog.Logger) (*T, bool, error) {
	name := (*obj).ObjectName()

	created, err := ep.Create(ctx, obj)
	if err == nil {
		return created, false, nil
	}
	if !errors.Is(err, gophish.ErrNameInUse) {
		return nil, false, err
	}

	metrics.IncNameCollisions(ep.Kind())
	logger.Warn("name already in use, replacing previous object", "kind", ep.Kind(), "name", name)

	old, err := ep.ByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	for _, o := range old {
		logger.Debug("deleting previous object", "kind", ep.Kind(), "id", o.ObjectID())
		if err := ep.Delete(ctx, o.ObjectID()); err != nil {
			return nil, false, err
		}
	}

	created, err = ep.Create(ctx, obj)
	if err != nil {
		return nil, false, fmt.Errorf("replace %s %q: %w", ep.Kind(), name, err)
	}
	return created, true, nil
}
