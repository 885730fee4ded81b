package gophish

import (
	"bytes"
	"encoding/json"
)

// Object is a remote record reconciled by name
type Object interface {
	ObjectName() string
	ObjectID() int64
}

// Target is a recipient inside a group
type Target struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position,omitempty"`
}

// Group is a named list of targets
type Group struct {
	ID           int64    `json:"id,omitempty"`
	Name         string   `json:"name"`
	Targets      []Target `json:"targets,omitempty"`
	ModifiedDate string   `json:"modified_date,omitempty"`
}

func (g Group) ObjectName() string { return g.Name }
func (g Group) ObjectID() int64    { return g.ID }

// Page is a landing page
type Page struct {
	ID                 int64  `json:"id,omitempty"`
	Name               string `json:"name"`
	HTML               string `json:"html,omitempty"`
	CaptureCredentials bool   `json:"capture_credentials"`
	CapturePasswords   bool   `json:"capture_passwords"`
	RedirectURL        string `json:"redirect_url,omitempty"`
	ModifiedDate       string `json:"modified_date,omitempty"`
}

func (p Page) ObjectName() string { return p.Name }
func (p Page) ObjectID() int64    { return p.ID }

// Template is an email template
type Template struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"name"`
	Subject      string `json:"subject,omitempty"`
	Text         string `json:"text,omitempty"`
	HTML         string `json:"html,omitempty"`
	ModifiedDate string `json:"modified_date,omitempty"`
}

func (t Template) ObjectName() string { return t.Name }
func (t Template) ObjectID() int64    { return t.ID }

// SMTP is a sending profile
type SMTP struct {
	ID               int64  `json:"id,omitempty"`
	Name             string `json:"name"`
	InterfaceType    string `json:"interface_type,omitempty"`
	Host             string `json:"host,omitempty"`
	Username         string `json:"username,omitempty"`
	Password         string `json:"password,omitempty"`
	FromAddress      string `json:"from_address,omitempty"`
	IgnoreCertErrors bool   `json:"ignore_cert_errors"`
	ModifiedDate     string `json:"modified_date,omitempty"`
}

func (s SMTP) ObjectName() string { return s.Name }
func (s SMTP) ObjectID() int64    { return s.ID }

// Browser is the client information recorded with an event
type Browser struct {
	Address   string `json:"address"`
	UserAgent string `json:"user-agent"`
}

// EventDetails is the payload attached to a timeline event
type EventDetails struct {
	Browser Browser `json:"browser"`
}

// UnmarshalJSON accepts the details either as an object or as the JSON
// encoded string the server stores.
func (d *EventDetails) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*d = EventDetails{}
			return nil
		}
		data = []byte(s)
	}
	type plain EventDetails
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = EventDetails(p)
	return nil
}

// Event is one entry of a campaign timeline
type Event struct {
	Email   string       `json:"email"`
	Time    string       `json:"time"`
	Message string       `json:"message"`
	Details EventDetails `json:"details"`
}

// Timeline messages
const (
	EventEmailSent  = "Email Sent"
	EventSendError  = "Error Sending Email"
	EventClicked    = "Clicked Link"
	EventCampaignUp = "Campaign Created"
)

// Campaign is a remote campaign. Group, page, template and profile are
// referenced by name on create.
type Campaign struct {
	ID            int64    `json:"id,omitempty"`
	Name          string   `json:"name"`
	CreatedDate   string   `json:"created_date,omitempty"`
	LaunchDate    string   `json:"launch_date,omitempty"`
	CompletedDate string   `json:"completed_date,omitempty"`
	Status        string   `json:"status,omitempty"`
	URL           string   `json:"url,omitempty"`
	Template      Template `json:"template"`
	Page          Page     `json:"page"`
	SMTP          SMTP     `json:"smtp"`
	Groups        []Group  `json:"groups,omitempty"`
	Timeline      []Event  `json:"timeline,omitempty"`
}

func (c Campaign) ObjectName() string { return c.Name }
func (c Campaign) ObjectID() int64    { return c.ID }

// Stats are campaign counters
type Stats struct {
	Total         int `json:"total"`
	Sent          int `json:"sent"`
	Opened        int `json:"opened"`
	Clicked       int `json:"clicked"`
	SubmittedData int `json:"submitted_data"`
	EmailReported int `json:"email_reported"`
	Error         int `json:"error"`
}

// Summary is the condensed view of a campaign
type Summary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Status        string `json:"status"`
	CreatedDate   string `json:"created_date,omitempty"`
	LaunchDate    string `json:"launch_date,omitempty"`
	CompletedDate string `json:"completed_date,omitempty"`
	Stats         Stats  `json:"stats"`
}

// Response is the generic body the server returns for actions and errors
type Response struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
}
