package models

import "encoding/json"

// Default SMTP profile values
const (
	DefaultSMTPHost   = "postfix:587"
	SMTPInterfaceType = "SMTP"
)

// Template is an email template
type Template struct {
	Name    string `json:"name,omitempty"`
	Subject string `json:"subject,omitempty"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SMTP is a sending profile
type SMTP struct {
	Name          string `json:"name,omitempty"`
	FromAddress   string `json:"from_address,omitempty"`
	Username      string `json:"username,omitempty"`
	Password      string `json:"password,omitempty"`
	Host          string `json:"host,omitempty"`
	InterfaceType string `json:"interface_type,omitempty"`
	IgnoreCert    bool   `json:"ignore_cert"`
}

// NewSMTP returns an SMTP profile with the default host and interface type
func NewSMTP(name string) *SMTP {
	return &SMTP{
		Name:          name,
		Host:          DefaultSMTPHost,
		InterfaceType: SMTPInterfaceType,
		IgnoreCert:    true,
	}
}

// UnmarshalJSON applies defaults for keys missing from data
func (s *SMTP) UnmarshalJSON(data []byte) error {
	type plain SMTP
	p := plain(*NewSMTP(""))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SMTP(p)
	return nil
}

// ParseTemplate decodes a template from JSON
func ParseTemplate(data []byte) (*Template, error) {
	t := &Template{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseSMTP decodes an SMTP profile from JSON
func ParseSMTP(data []byte) (*SMTP, error) {
	s := &SMTP{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
