// Package models describes an assessment document: the groups, landing
// pages and campaigns of one phishing exercise, keyed by name.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultTimezone is used when an assessment file does not carry one.
const DefaultTimezone = "US/Eastern"

// Assessment is the top-level document of a phishing exercise
type Assessment struct {
	ID            string     `json:"id,omitempty"`
	Timezone      string     `json:"timezone,omitempty"`
	Domain        string     `json:"domain,omitempty"`
	TargetDomains []string   `json:"target_domains,omitempty"`
	StartDate     string     `json:"start_date,omitempty"`
	EndDate       string     `json:"end_date,omitempty"`
	Reschedule    bool       `json:"reschedule"`
	StartCampaign int        `json:"start_campaign,omitempty"`
	Groups        []Group    `json:"groups,omitempty"`
	Pages         []Page     `json:"pages,omitempty"`
	Campaigns     []Campaign `json:"campaigns,omitempty"`
}

// NewAssessment returns an empty assessment with defaults applied
func NewAssessment(id, timezone string) *Assessment {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	return &Assessment{
		ID:            id,
		Timezone:      timezone,
		StartCampaign: 1,
	}
}

// UnmarshalJSON applies defaults for keys missing from data
func (a *Assessment) UnmarshalJSON(data []byte) error {
	type plain Assessment
	p := plain(*NewAssessment("", ""))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	// empty lists are omitted on output, keep them nil so documents round trip
	if len(p.TargetDomains) == 0 {
		p.TargetDomains = nil
	}
	if len(p.Groups) == 0 {
		p.Groups = nil
	}
	if len(p.Pages) == 0 {
		p.Pages = nil
	}
	if len(p.Campaigns) == 0 {
		p.Campaigns = nil
	}
	*a = Assessment(p)
	return nil
}

// ParseAssessment decodes an assessment document
func ParseAssessment(data []byte) (*Assessment, error) {
	a := &Assessment{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Load reads an assessment document from path
func Load(path string) (*Assessment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assessment file: %w", err)
	}
	a, err := ParseAssessment(data)
	if err != nil {
		return nil, fmt.Errorf("parse assessment file: %w", err)
	}
	return a, nil
}

// Marshal encodes the assessment with 4-space indentation
func (a *Assessment) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the assessment document to path
func (a *Assessment) Save(path string) error {
	data, err := a.Marshal()
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write assessment file: %w", err)
	}
	return nil
}

// SetStartDate moves the start date earlier when date precedes it.
// The range never shrinks.
func (a *Assessment) SetStartDate(date string) error {
	if a.StartDate == "" {
		a.StartDate = date
		return nil
	}
	current, err := ParseDate(a.StartDate)
	if err != nil {
		return err
	}
	candidate, err := ParseDate(date)
	if err != nil {
		return err
	}
	if current.After(candidate) {
		a.StartDate = date
	}
	return nil
}

// SetEndDate moves the end date later when date follows it.
// The range never shrinks.
func (a *Assessment) SetEndDate(date string) error {
	if a.EndDate == "" {
		a.EndDate = date
		return nil
	}
	current, err := ParseDate(a.EndDate)
	if err != nil {
		return err
	}
	candidate, err := ParseDate(date)
	if err != nil {
		return err
	}
	if current.Before(candidate) {
		a.EndDate = date
	}
	return nil
}

// ExtendDates widens the assessment range to cover c.
func (a *Assessment) ExtendDates(c *Campaign) error {
	if err := a.SetStartDate(c.LaunchDate); err != nil {
		return err
	}
	return a.SetEndDate(c.CompleteDate)
}

// AddCampaign validates c, appends it and extends the assessment range.
func (a *Assessment) AddCampaign(c Campaign) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("campaign %s: %w", c.Name, err)
	}
	a.Campaigns = append(a.Campaigns, c)
	return a.ExtendDates(&a.Campaigns[len(a.Campaigns)-1])
}

// GroupByName returns the group with the given name
func (a *Assessment) GroupByName(name string) *Group {
	for i := range a.Groups {
		if a.Groups[i].Name == name {
			return &a.Groups[i]
		}
	}
	return nil
}

// PageByName returns the page with the given name
func (a *Assessment) PageByName(name string) *Page {
	for i := range a.Pages {
		if a.Pages[i].Name == name {
			return &a.Pages[i]
		}
	}
	return nil
}

// ReferenceError lists campaign references that name no group or page in
// the document.
type ReferenceError struct {
	Unresolved []string
}

func (e *ReferenceError) Error() string {
	return "unresolved references: " + strings.Join(e.Unresolved, ", ")
}

// CheckReferences verifies every campaign names a group and a page that
// exist in the document. All unresolved references are reported at once.
func (a *Assessment) CheckReferences() error {
	var missing []string
	for _, c := range a.Campaigns {
		if c.GroupName == "" || a.GroupByName(c.GroupName) == nil {
			missing = append(missing, fmt.Sprintf("%s: group %q", c.Name, c.GroupName))
		}
		if c.PageName == "" || a.PageByName(c.PageName) == nil {
			missing = append(missing, fmt.Sprintf("%s: page %q", c.Name, c.PageName))
		}
	}
	if len(missing) > 0 {
		return &ReferenceError{Unresolved: missing}
	}
	return nil
}

// Validate checks campaign dates and name references.
func (a *Assessment) Validate() error {
	for i := range a.Campaigns {
		c := &a.Campaigns[i]
		if err := c.Validate(); err != nil {
			return fmt.Errorf("campaign %s: %w", c.Name, err)
		}
		if c.Template == nil {
			return fmt.Errorf("campaign %s: template is missing", c.Name)
		}
		if c.SMTP == nil {
			return fmt.Errorf("campaign %s: smtp profile is missing", c.Name)
		}
	}
	return a.CheckReferences()
}
