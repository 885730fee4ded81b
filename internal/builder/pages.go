package builder

import (
	"github.com/foxzi/pca/internal/models"
)

var pageFields = []string{"name", "capture_credentials", "capture_passwords", "redirect_url"}

func (b *Builder) buildPages(id string) ([]models.Page, error) {
	b.logger.Info("getting page metadata")

	n, err := b.prompt.Number("How many pages do you need?", 0, 1, 0)
	if err != nil {
		return nil, err
	}

	pages := make([]models.Page, 0, n)
	for i := 1; i <= n; i++ {
		b.logger.Info("building page", "number", i)
		page, err := b.buildPage(id, i)
		if err != nil {
			return nil, err
		}
		if err := b.reviewPage(page); err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

func (b *Builder) buildPage(id string, n int) (*models.Page, error) {
	autoForward, err := b.prompt.YesNo("Will this page auto forward?", false)
	if err != nil {
		return nil, err
	}

	page := &models.Page{Name: models.PageName(id, n, autoForward)}
	if autoForward {
		page.HTML = models.AutoForwardHTML
		if page.RedirectURL, err = b.prompt.Input("URL to redirect to", ""); err != nil {
			return nil, err
		}
	} else {
		forward, err := b.prompt.YesNo("Will this page forward after action?", false)
		if err != nil {
			return nil, err
		}
		if forward {
			if page.RedirectURL, err = b.prompt.Input("URL to redirect to", ""); err != nil {
				return nil, err
			}
		}
		_, html, err := b.prompt.File("Landing page file name", ".html")
		if err != nil {
			return nil, err
		}
		page.HTML = string(html)
	}

	b.logger.Debug("page built",
		"name", page.Name,
		"redirect_url", page.RedirectURL,
		"capture_credentials", page.CaptureCredentials,
		"capture_passwords", page.CapturePasswords,
	)
	return page, nil
}

func (b *Builder) reviewPage(page *models.Page) error {
	for {
		b.prompt.Println()
		b.prompt.Printf("Name: %s\n", page.Name)
		b.prompt.Printf("Capture Credentials: %t\n", page.CaptureCredentials)
		b.prompt.Printf("Capture Passwords: %t\n", page.CapturePasswords)
		b.prompt.Printf("Redirect Url: %s\n", page.RedirectURL)

		field, ok, err := b.editField("page", pageFields)
		if err != nil || !ok {
			return err
		}

		switch field {
		case "name":
			page.Name, err = b.prompt.Input(title(field), page.Name)
		case "capture_credentials":
			page.CaptureCredentials, err = b.prompt.YesNo(title(field), page.CaptureCredentials)
		case "capture_passwords":
			page.CapturePasswords, err = b.prompt.YesNo(title(field), page.CapturePasswords)
		case "redirect_url":
			page.RedirectURL, err = b.prompt.Optional(title(field), page.RedirectURL)
		}
		if err != nil {
			return err
		}
	}
}
