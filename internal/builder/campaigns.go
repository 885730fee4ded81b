package builder

import (
	"errors"

	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/validate"
)

var (
	campaignFields = []string{"name", "launch_date", "complete_date", "url", "group_name", "page_name", "smtp"}
	smtpFields     = []string{"name", "from_address", "username", "password", "host", "interface_type", "ignore_cert"}
)

func (b *Builder) buildCampaign(a *models.Assessment, n int, shared *models.SMTP) error {
	c := models.Campaign{Name: models.CampaignName(a.ID, n)}
	b.logger.Info("building campaign", "name", c.Name)

	var err error
	if c.LaunchDate, err = b.prompt.FutureTime("Campaign start", a.Timezone, "", ""); err != nil {
		return err
	}
	if c.CompleteDate, err = b.prompt.FutureTime("Campaign end", a.Timezone, "", c.LaunchDate); err != nil {
		return err
	}

	imported, err := b.prompt.YesNo("Import the email from a JSON file?", true)
	if err != nil {
		return err
	}
	if imported {
		c.SMTP, c.Template, err = b.importEmail(a.ID, n, shared)
	} else {
		c.SMTP, c.Template, err = b.createEmail(a.ID, n, shared)
	}
	if err != nil {
		return err
	}

	if c.GroupName, err = b.selectGroup(a); err != nil {
		return err
	}
	if c.PageName, err = b.selectPage(a); err != nil {
		return err
	}
	if c.URL, err = b.prompt.Input("Campaign URL", "http://"+a.Domain); err != nil {
		return err
	}

	for {
		if err := b.reviewCampaign(a, &c); err != nil {
			return err
		}
		// only date checks can fail here; the review is repeated to fix them
		if err := a.AddCampaign(c); err != nil {
			b.prompt.Warn("%v", err)
			continue
		}
		break
	}

	b.logger.Info("successfully added campaign", "name", c.Name)
	return nil
}

// importEmail loads the template and sender from an email import file.
// A file missing a required key is reported and asked for again.
func (b *Builder) importEmail(id string, n int, shared *models.SMTP) (*models.SMTP, *models.Template, error) {
	for {
		path, data, err := b.prompt.File("Import file name", ".json")
		if err != nil {
			return nil, nil, err
		}

		imp, err := validate.ParseEmailImport(data)
		var missing *validate.MissingKeyError
		switch {
		case errors.As(err, &missing):
			b.critical("missing field from import", "path", path, "key", missing.Key)
			b.prompt.Warn("Email import is missing the %q field, please correct it before continuing.\n %s: %s",
				missing.Key, missing.Key, missing.Description)
			continue
		case err != nil:
			b.logger.Error("failed to read email import", "path", path, "error", err)
			continue
		}

		smtp := *shared
		smtp.Name = models.SMTPName(id, n)
		smtp.FromAddress = imp.FromAddress

		return &smtp, &models.Template{
			Name:    models.TemplateName(id, n, imp.ID),
			Subject: imp.Subject,
			HTML:    imp.HTML,
			Text:    imp.Text,
		}, nil
	}
}

// createEmail composes the template from separate HTML and text files
func (b *Builder) createEmail(id string, n int, shared *models.SMTP) (*models.SMTP, *models.Template, error) {
	tmpl := &models.Template{Name: models.TemplateName(id, n, "")}

	_, html, err := b.prompt.File("HTML template file name", ".html")
	if err != nil {
		return nil, nil, err
	}
	tmpl.HTML = string(html)

	_, text, err := b.prompt.File("Text template file name", ".txt")
	if err != nil {
		return nil, nil, err
	}
	tmpl.Text = string(text)

	if tmpl.Subject, err = b.prompt.Input("Email subject", ""); err != nil {
		return nil, nil, err
	}

	smtp := *shared
	smtp.Name = models.SMTPName(id, n)
	if smtp.FromAddress, err = b.prompt.Input(`From address ("Display Name<email@domain.tld>")`, ""); err != nil {
		return nil, nil, err
	}
	return &smtp, tmpl, nil
}

func (b *Builder) selectGroup(a *models.Assessment) (string, error) {
	names := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		names[i] = g.Name
	}
	return b.selectName("group", names)
}

func (b *Builder) selectPage(a *models.Assessment) (string, error) {
	names := make([]string, len(a.Pages))
	for i, p := range a.Pages {
		names[i] = p.Name
	}
	return b.selectName("page", names)
}

// selectName picks one of names, skipping the question when there is only one
func (b *Builder) selectName(kind string, names []string) (string, error) {
	if len(names) == 1 {
		b.logger.Info(kind+" auto set", "name", names[0])
		return names[0], nil
	}
	i, err := b.prompt.Select("Select the "+kind+" for this campaign", names, -1)
	if err != nil {
		return "", err
	}
	return names[i], nil
}

func (b *Builder) printCampaign(c *models.Campaign) {
	b.prompt.Println()
	b.prompt.Printf("Name: %s\n", c.Name)
	b.prompt.Printf("Launch Date: %s\n", c.LaunchDate)
	b.prompt.Printf("Complete Date: %s\n", c.CompleteDate)
	b.prompt.Printf("Url: %s\n", c.URL)
	b.prompt.Printf("Group Name: %s\n", c.GroupName)
	b.prompt.Printf("Page Name: %s\n", c.PageName)
	if c.Template != nil {
		b.prompt.Printf("Template: %s (%s)\n", c.Template.Name, c.Template.Subject)
	}
	if s := c.SMTP; s != nil {
		password := ""
		if s.Password != "" {
			password = "********"
		}
		b.prompt.Println("SMTP:")
		b.prompt.Printf("\tName: %s\n", s.Name)
		b.prompt.Printf("\tFrom Address: %s\n", s.FromAddress)
		b.prompt.Printf("\tUsername: %s\n", s.Username)
		b.prompt.Printf("\tPassword: %s\n", password)
		b.prompt.Printf("\tHost: %s\n", s.Host)
		b.prompt.Printf("\tInterface Type: %s\n", s.InterfaceType)
		b.prompt.Printf("\tIgnore Cert: %t\n", s.IgnoreCert)
	}
}

// reviewCampaign shows the campaign and applies edits until the operator
// has nothing more to change.
func (b *Builder) reviewCampaign(a *models.Assessment, c *models.Campaign) error {
	for {
		b.printCampaign(c)

		field, ok, err := b.editField("campaign", campaignFields)
		if err != nil || !ok {
			return err
		}

		switch field {
		case "name":
			c.Name, err = b.prompt.Input(title(field), c.Name)
		case "launch_date":
			c.LaunchDate, err = b.prompt.FutureTime(title(field), a.Timezone, models.InputDate(c.LaunchDate, a.Timezone), "")
		case "complete_date":
			c.CompleteDate, err = b.prompt.FutureTime(title(field), a.Timezone, models.InputDate(c.CompleteDate, a.Timezone), c.LaunchDate)
		case "url":
			c.URL, err = b.prompt.Input(title(field), c.URL)
		case "group_name":
			c.GroupName, err = b.selectGroup(a)
		case "page_name":
			c.PageName, err = b.selectPage(a)
		case "smtp":
			err = b.editSMTP(c.SMTP)
		}
		if err != nil {
			return err
		}
	}
}

func (b *Builder) editSMTP(s *models.SMTP) error {
	i, err := b.prompt.Select("Which indicator", smtpFields, -1)
	if err != nil {
		return err
	}

	field := smtpFields[i]
	switch field {
	case "name":
		s.Name, err = b.prompt.Input(title(field), s.Name)
	case "from_address":
		s.FromAddress, err = b.prompt.Input(title(field), s.FromAddress)
	case "username":
		s.Username, err = b.prompt.Optional(title(field), s.Username)
	case "password":
		s.Password, err = b.prompt.Secret(title(field))
	case "host":
		s.Host, err = b.prompt.Input(title(field), s.Host)
	case "interface_type":
		s.InterfaceType, err = b.prompt.Input(title(field), s.InterfaceType)
	case "ignore_cert":
		s.IgnoreCert, err = b.prompt.YesNo(title(field), s.IgnoreCert)
	}
	return err
}
