// Package filetemplate writes blank input files for the assessment wizard:
// an email import JSON file and a target CSV file.
package filetemplate

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foxzi/pca/internal/validate"
)

// File names written by this package
const (
	EmailFile   = "template_email.json"
	TargetsFile = "template_targets.csv"
)

// TargetsHeader is the header row of a target CSV file
var TargetsHeader = []string{"First Name", "Last Name", "Email", "Position"}

// Email is the content of a blank email import file
var Email = validate.EmailImport{
	ID:          "Database ID",
	FromAddress: "John Doe <john.doe@domain.tld>",
	Subject:     "Subject",
	HTML:        `<div><div id="body"><p> </p></div></div>`,
	Text:        "",
}

// WriteEmail writes the email import template into dir and returns its path
func WriteEmail(dir string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Email); err != nil {
		return "", fmt.Errorf("encode email template: %w", err)
	}
	return write(dir, EmailFile, buf.Bytes())
}

// WriteTargets writes the target CSV template into dir and returns its path
func WriteTargets(dir string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TargetsHeader); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("encode targets template: %w", err)
	}
	return write(dir, TargetsFile, buf.Bytes())
}

func write(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
