package builder

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/pca/internal/models"
	"github.com/foxzi/pca/internal/prompt"
)

const emailImport = `{
    "id": "Sample",
    "from_address": "IT Desk<it@phish.example.org>",
    "subject": "Password expiry",
    "html": "<p>{{.URL}}</p>",
    "text": "{{.URL}}"
}`

func newTestBuilder(t *testing.T, lines ...string) (*Builder, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	input := strings.Join(lines, "\n") + "\n"
	p := prompt.New(prompt.NewStream(strings.NewReader(input), out), out, logger)
	p.SetClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })

	return New(p, logger, Options{SMTPHost: "mail.relay:587"}), out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "landing.html", "<html>landing</html>")
	csvPath := writeFile(t, dir, "targets.csv", `First Name,Last Name,Email,Position
Jane,Smith,jane.smith@domain.tld,HR
John,Doe,john.doe@other.tld,
Bad,Format,bad-at-domain.tld,IT
Out,Side,out.side@elsewhere.tld,IT
`)
	emailPath := writeFile(t, dir, "email.json", emailImport)

	b, _ := newTestBuilder(t,
		"",                             // time zone: default US/Eastern
		"phish.example.org",            // domain
		"Domain.TLD other.tld",         // target domains
		"2",                            // pages
		"y", "https://example.org", "", // page 1: auto forward, redirect, no changes
		"n", "n", filepath.Join(dir, "landing"), // page 2: landing file without extension
		"y", "capture_credentials", "y", "n", // page 2 review
		"1", "y", // groups, labels
		csvPath,
		"bad@domain.tld",        // format fix
		"out.side@domain.tld",   // domain fix
		"Finance",               // missing label for john.doe
		"", "phisher", "s3cret", // smtp host default, user, password
		"1",                // campaigns
		"02/01/2026 09:00", // launch
		"02/03/2026 17:00", // complete
		"",                 // import email: default yes
		emailPath,
		"2",                                              // page selection
		"",                                               // url default
		"y", "smtp", "host", "relay.example.org:25", "n", // review
	)

	a, err := b.Build("RV0001")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if a.Timezone != "US/Eastern" {
		t.Errorf("Timezone = %q", a.Timezone)
	}
	if a.Domain != "phish.example.org" {
		t.Errorf("Domain = %q", a.Domain)
	}
	if got := strings.Join(a.TargetDomains, " "); got != "domain.tld other.tld" {
		t.Errorf("TargetDomains = %q", got)
	}

	if len(a.Pages) != 2 {
		t.Fatalf("len(Pages) = %d, want 2", len(a.Pages))
	}
	if a.Pages[0].Name != "RV0001-1-AutoForward" || a.Pages[0].HTML != models.AutoForwardHTML || a.Pages[0].RedirectURL != "https://example.org" {
		t.Errorf("page 1 = %+v", a.Pages[0])
	}
	if a.Pages[1].Name != "RV0001-2-Landing" || a.Pages[1].HTML != "<html>landing</html>" || !a.Pages[1].CaptureCredentials {
		t.Errorf("page 2 = %+v", a.Pages[1])
	}

	if len(a.Groups) != 1 || a.Groups[0].Name != "RV0001-G1" {
		t.Fatalf("Groups = %+v", a.Groups)
	}
	wantTargets := []models.Target{
		{FirstName: "Jane", LastName: "Smith", Email: "jane.smith@domain.tld", Position: "HR"},
		{FirstName: "John", LastName: "Doe", Email: "john.doe@other.tld", Position: "Finance"},
		{FirstName: "Bad", LastName: "Format", Email: "bad@domain.tld", Position: "IT"},
		{FirstName: "Out", LastName: "Side", Email: "out.side@domain.tld", Position: "IT"},
	}
	if len(a.Groups[0].Targets) != len(wantTargets) {
		t.Fatalf("targets = %+v", a.Groups[0].Targets)
	}
	for i, want := range wantTargets {
		if a.Groups[0].Targets[i] != want {
			t.Errorf("target %d = %+v, want %+v", i, a.Groups[0].Targets[i], want)
		}
	}

	if len(a.Campaigns) != 1 {
		t.Fatalf("len(Campaigns) = %d, want 1", len(a.Campaigns))
	}
	c := a.Campaigns[0]
	if c.Name != "RV0001-C1" {
		t.Errorf("Name = %q", c.Name)
	}
	if c.LaunchDate != "2026-02-01T09:00:00-05:00" || c.CompleteDate != "2026-02-03T17:00:00-05:00" {
		t.Errorf("dates = %s .. %s", c.LaunchDate, c.CompleteDate)
	}
	if a.StartDate != c.LaunchDate || a.EndDate != c.CompleteDate {
		t.Errorf("assessment range = %s .. %s", a.StartDate, a.EndDate)
	}
	if c.GroupName != "RV0001-G1" || c.PageName != "RV0001-2-Landing" {
		t.Errorf("references = %q, %q", c.GroupName, c.PageName)
	}
	if c.URL != "http://phish.example.org" {
		t.Errorf("URL = %q", c.URL)
	}
	if c.Template.Name != "RV0001-T1-Sample" || c.Template.Subject != "Password expiry" {
		t.Errorf("Template = %+v", c.Template)
	}
	wantSMTP := models.SMTP{
		Name:          "RV0001-SP-1",
		FromAddress:   "IT Desk<it@phish.example.org>",
		Username:      "phisher",
		Password:      "s3cret",
		Host:          "relay.example.org:25",
		InterfaceType: models.SMTPInterfaceType,
		IgnoreCert:    true,
	}
	if *c.SMTP != wantSMTP {
		t.Errorf("SMTP = %+v, want %+v", *c.SMTP, wantSMTP)
	}

	if err := a.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestGroupRestartsWhenNoTargets(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.csv", `First Name,Last Name,Email,Position
A,One,a.one@elsewhere.tld,
B,Two,b.two@elsewhere.tld,
`)
	good := writeFile(t, dir, "good.csv", `First Name,Last Name,Email,Position
Jane,Smith,jane.smith@domain.tld,HR
`)

	b, out := newTestBuilder(t,
		"1", "n",
		filepath.Join(dir, "missing.csv"),
		empty,
		"n", // do not fix the two mismatches
		good,
	)

	groups, err := b.buildGroups("RV0001", []string{"domain.tld"})
	if err != nil {
		t.Fatalf("buildGroups() error = %v", err)
	}
	if len(groups) != 1 || len(groups[0].Targets) != 1 || groups[0].Targets[0].Email != "jane.smith@domain.tld" {
		t.Errorf("groups = %+v", groups)
	}
	if !strings.Contains(out.String(), "No targets loaded") {
		t.Errorf("output does not report the empty load:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Please try again") {
		t.Errorf("output does not report the missing file:\n%s", out.String())
	}
}

func TestGroupFixesEveryFormatError(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "targets.csv", `First Name,Last Name,Email,Position
Jane,Smith,jane.smith@domain.tld,HR
Carl,Dee,carl.dee-domain.tld,IT
Erin,Eff,erin.eff@@other.tld,IT
`)

	b, out := newTestBuilder(t,
		"1", "n",
		csvPath,
		"y",                   // correct both formatting errors
		"carl.dee@domain.tld", // first fix
		"erin.eff@other.tld",  // second fix, still outside the target domains
		"erin.eff@domain.tld", // domain fix
	)

	groups, err := b.buildGroups("RV0001", []string{"domain.tld"})
	if err != nil {
		t.Fatalf("buildGroups() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}

	want := []string{"jane.smith@domain.tld", "carl.dee@domain.tld", "erin.eff@domain.tld"}
	got := groups[0].Targets
	if len(got) != len(want) {
		t.Fatalf("targets = %+v", got)
	}
	for i, email := range want {
		if got[i].Email != email {
			t.Errorf("target %d email = %q, want %q", i, got[i].Email, email)
		}
	}
	if got[1].FirstName != "Carl" || got[1].Position != "IT" {
		t.Errorf("fixed row lost its fields: %+v", got[1])
	}
	if strings.Contains(out.String(), "will not be added") {
		t.Errorf("rows reported as dropped:\n%s", out.String())
	}
}

func TestImportEmailRepeatsOnMissingKey(t *testing.T) {
	dir := t.TempDir()
	partial := writeFile(t, dir, "partial.json", `{"id": "X", "from_address": "a<a@b.tld>", "subject": "s", "html": "h"}`)
	full := writeFile(t, dir, "full.json", emailImport)

	b, out := newTestBuilder(t, partial, full)
	shared := models.NewSMTP("RV0001-SP")

	smtp, tmpl, err := b.importEmail("RV0001", 2, shared)
	if err != nil {
		t.Fatalf("importEmail() error = %v", err)
	}
	if !strings.Contains(out.String(), `"text"`) {
		t.Errorf("output does not name the missing key:\n%s", out.String())
	}
	if smtp.Name != "RV0001-SP-2" || smtp.FromAddress != "IT Desk<it@phish.example.org>" {
		t.Errorf("SMTP = %+v", smtp)
	}
	if shared.Name != "RV0001-SP" || shared.FromAddress != "" {
		t.Errorf("shared profile modified: %+v", shared)
	}
	if tmpl.Name != "RV0001-T2-Sample" {
		t.Errorf("Template name = %q", tmpl.Name)
	}
}

func TestCreateEmail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "body.html", "<b>hi</b>")
	writeFile(t, dir, "body.txt", "hi")

	b, _ := newTestBuilder(t,
		filepath.Join(dir, "body"),
		filepath.Join(dir, "body"),
		"Hello",
		"IT<it@phish.example.org>",
	)

	smtp, tmpl, err := b.createEmail("RV0001", 3, models.NewSMTP("RV0001-SP"))
	if err != nil {
		t.Fatalf("createEmail() error = %v", err)
	}
	if tmpl.Name != "RV0001-T3" || tmpl.HTML != "<b>hi</b>" || tmpl.Text != "hi" || tmpl.Subject != "Hello" {
		t.Errorf("Template = %+v", tmpl)
	}
	if smtp.Name != "RV0001-SP-3" || smtp.FromAddress != "IT<it@phish.example.org>" {
		t.Errorf("SMTP = %+v", smtp)
	}
}

func TestCampaignReviewRejectsInvertedDates(t *testing.T) {
	dir := t.TempDir()
	emailPath := writeFile(t, dir, "email.json", emailImport)

	a := models.NewAssessment("RV0001", "US/Eastern")
	a.Domain = "phish.example.org"
	a.Groups = []models.Group{{Name: "RV0001-G1"}}
	a.Pages = []models.Page{{Name: "RV0001-1-Landing"}}

	b, out := newTestBuilder(t,
		"02/01/2026 09:00",
		"01/31/2026 09:00", // before launch, asked again
		"02/03/2026 17:00",
		"y", emailPath,
		"",
		"y", "launch_date", "02/05/2026 09:00", "n", // now after complete
		"y", "complete_date", "02/06/2026 17:00", "n",
	)

	if err := b.buildCampaign(a, 1, models.NewSMTP("RV0001-SP")); err != nil {
		t.Fatalf("buildCampaign() error = %v", err)
	}
	if !strings.Contains(out.String(), "must be after") {
		t.Errorf("output does not reject the early complete date:\n%s", out.String())
	}
	if !strings.Contains(out.String(), models.ErrCompleteBeforeLaunch.Error()) {
		t.Errorf("output does not reject the inverted review:\n%s", out.String())
	}

	c := a.Campaigns[0]
	if c.LaunchDate != "2026-02-05T09:00:00-05:00" || c.CompleteDate != "2026-02-06T17:00:00-05:00" {
		t.Errorf("dates = %s .. %s", c.LaunchDate, c.CompleteDate)
	}
	if a.StartDate != c.LaunchDate || a.EndDate != c.CompleteDate {
		t.Errorf("assessment range = %s .. %s", a.StartDate, a.EndDate)
	}
}

func TestParseTargetRows(t *testing.T) {
	rows, err := parseTargetRows(strings.NewReader("First Name,Last Name,Email,Position\nJane,Smith,jane@domain.tld\n\nJohn, Doe ,john@domain.tld,IT\n"))
	if err != nil {
		t.Fatalf("parseTargetRows() error = %v", err)
	}
	want := []row{
		{"Jane", "Smith", "jane@domain.tld", ""},
		{"John", "Doe", "john@domain.tld", "IT"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}

	rows, err = parseTargetRows(strings.NewReader(""))
	if err != nil || len(rows) != 0 {
		t.Errorf("empty file = %v, %v", rows, err)
	}
}

func TestClassify(t *testing.T) {
	rows := []row{
		{"A", "", "a.b@domain.tld", ""},
		{"B", "", "not-an-email", ""},
		{"C", "", "c.d@other.tld", ""},
		{"D", "", "D.E@DOMAIN.TLD", ""},
	}

	ok, format, mismatch := classify(rows, []string{"domain.tld"})
	if len(ok) != 2 || ok[0][0] != "A" || ok[1][0] != "D" {
		t.Errorf("ok = %v", ok)
	}
	if len(format) != 1 || format[0][0] != "B" {
		t.Errorf("format = %v", format)
	}
	if len(mismatch) != 1 || mismatch[0][0] != "C" {
		t.Errorf("mismatch = %v", mismatch)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	a := models.NewAssessment("RV0002", "")

	path, err := Write(dir, a)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if path != filepath.Join(dir, "RV0002.json") {
		t.Errorf("path = %q", path)
	}

	loaded, err := models.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != "RV0002" || loaded.Timezone != models.DefaultTimezone {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestTitle(t *testing.T) {
	if got := title("capture_credentials"); got != "Capture Credentials" {
		t.Errorf("title() = %q", got)
	}
}
