package models

import "encoding/json"

// AutoForwardHTML is the landing page body that immediately posts to the
// configured redirect URL.
const AutoForwardHTML = `
                <html>
                    <body onload="document.forms['auto_forward'].submit()">
                        <form action="" method="POST" name="auto_forward"> </form>
                </html>
               `

// Page is a landing page shown to a target after interacting with an email
type Page struct {
	Name               string `json:"name,omitempty"`
	CaptureCredentials bool   `json:"capture_credentials"`
	CapturePasswords   bool   `json:"capture_passwords"`
	HTML               string `json:"html,omitempty"`
	RedirectURL        string `json:"redirect_url,omitempty"`
}

// ParsePage decodes a page from JSON
func ParsePage(data []byte) (*Page, error) {
	p := &Page{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}
