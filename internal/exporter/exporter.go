// Package exporter assembles a de-identified report of an assessment from
// the objects stored on a Gophish server. Target addresses never leave
// this package in clear text: every address is replaced by its SHA-256
// hex digest.
package exporter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mssola/useragent"

	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/metrics"
	"github.com/foxzi/pca/internal/models"
)

// ErrAssessmentNotFound is returned when no campaign belongs to the assessment
var ErrAssessmentNotFound = errors.New("assessment does not exist in Gophish")

// Send statuses
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "Failed"
)

// Report is the exported document
type Report struct {
	Targets   []Target   `json:"targets"`
	Campaigns []Campaign `json:"campaigns"`
}

// Target is a pseudonymized recipient
type Target struct {
	ID                    string              `json:"id"`
	CustomerDefinedLabels map[string][]string `json:"customer_defined_labels"`
}

// Campaign is the exported view of one campaign
type Campaign struct {
	ID        string   `json:"id"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	URL       string   `json:"url"`
	Subject   string   `json:"subject"`
	Template  string   `json:"template"`
	Clicks    []Click  `json:"clicks"`
	Status    []Status `json:"status"`
}

// Click is one "Clicked Link" event
type Click struct {
	User        string      `json:"user"`
	SourceIP    string      `json:"source_ip"`
	Time        string      `json:"time"`
	Application Application `json:"application"`
}

// Application is the platform parsed from the clicking browser
type Application struct {
	ExternalIP string `json:"external_ip"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}

// Status is the send result for one recipient
type Status struct {
	User   string `json:"user"`
	Time   string `json:"time"`
	Status string `json:"status"`
}

// Hash returns the hex SHA-256 digest of an email address
func Hash(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

// Exporter reads assessment data from Gophish
type Exporter struct {
	client *gophish.Client
	logger *slog.Logger
}

// New creates an Exporter
func New(client *gophish.Client, logger *slog.Logger) *Exporter {
	return &Exporter{
		client: client,
		logger: logger.With("component", "exporter"),
	}
}

// Export builds the report for assessmentID. The server is only read.
func (e *Exporter) Export(ctx context.Context, assessmentID string) (*Report, error) {
	match := func(name string) bool { return models.MatchAssessmentID(assessmentID, name) }

	campaigns, err := e.client.Campaigns.Filter(ctx, match)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
	}

	report := &Report{
		Targets:   []Target{},
		Campaigns: []Campaign{},
	}

	groups, err := e.client.Groups.Filter(ctx, match)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		full, err := e.client.Groups.Get(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range full.Targets {
			target := Target{
				ID:                    Hash(t.Email),
				CustomerDefinedLabels: map[string][]string{},
			}
			if t.Position != "" {
				target.CustomerDefinedLabels[assessmentID] = []string{t.Position}
			}
			report.Targets = append(report.Targets, target)
		}
	}
	e.logger.Info("email targets found", "count", len(report.Targets), "assessment", assessmentID)

	clicks := 0
	for _, c := range campaigns {
		ec, err := e.campaign(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		clicks += len(ec.Clicks)
		report.Campaigns = append(report.Campaigns, *ec)
	}
	e.logger.Info("campaigns found", "count", len(report.Campaigns), "assessment", assessmentID)

	metrics.SetExported(len(report.Targets), len(report.Campaigns), clicks)
	return report, nil
}

func (e *Exporter) campaign(ctx context.Context, id int64) (*Campaign, error) {
	c, err := e.client.Campaigns.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	templateName := c.Template.Name
	if c.Template.ID != 0 {
		t, err := e.client.Templates.Get(ctx, c.Template.ID)
		if err != nil && !errors.Is(err, gophish.ErrNotFound) {
			return nil, err
		}
		if t != nil {
			templateName = t.Name
		}
	}

	out := &Campaign{
		ID:        c.Name,
		StartTime: c.LaunchDate,
		EndTime:   c.CompletedDate,
		URL:       c.URL,
		Subject:   c.Template.Subject,
		Template:  TemplateShortName(templateName),
		Clicks:    []Click{},
		Status:    []Status{},
	}

	for _, ev := range c.Timeline {
		switch ev.Message {
		case gophish.EventClicked:
			out.Clicks = append(out.Clicks, Click{
				User:        Hash(ev.Email),
				SourceIP:    ev.Details.Browser.Address,
				Time:        ev.Time,
				Application: application(ev.Details.Browser),
			})
		case gophish.EventEmailSent:
			out.Status = append(out.Status, Status{User: Hash(ev.Email), Time: ev.Time, Status: StatusSuccess})
		case gophish.EventSendError:
			out.Status = append(out.Status, Status{User: Hash(ev.Email), Time: ev.Time, Status: StatusFailed})
		}
	}

	e.logger.Debug("campaign exported", "name", c.Name, "clicks", len(out.Clicks), "status", len(out.Status))
	return out, nil
}

// TemplateShortName returns the email identifier carried in the third
// hyphen-separated segment of a template name ("RV0001-T1-E100" gives
// "E100"). Names with fewer segments yield an empty string.
func TemplateShortName(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

func application(b gophish.Browser) Application {
	name, version := "", ""
	if b.UserAgent != "" {
		info := useragent.New(b.UserAgent).OSInfo()
		name, version = info.Name, info.Version
	}
	return Application{
		ExternalIP: b.Address,
		Name:       name,
		Version:    version,
	}
}

// FileName returns the report file name for an assessment
func FileName(assessmentID string) string {
	return "data_" + assessmentID + ".json"
}

// Marshal encodes the report with 4-space indentation
func (r *Report) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the report as data_{id}.json under dir and returns the path
func (r *Report) Write(dir, assessmentID string) (string, error) {
	data, err := r.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	path := filepath.Join(dir, FileName(assessmentID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
