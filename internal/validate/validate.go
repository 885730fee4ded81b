// Package validate holds the input checks shared by the wizard and the
// import/export tools.
package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	emailRe        = regexp.MustCompile(`^[a-zA-Z0-9]+[a-zA-Z0-9.+_-]+@(\[?)[a-zA-Z0-9.-]+..([a-zA-Z]{2,3}|[0-9]{2,6})(\]?)$`)
	assessmentIDRe = regexp.MustCompile(`^RV\d{4}`)
)

// FormatError reports a value that does not have the expected shape.
type FormatError struct {
	Kind  string
	Value string
}

func (e *FormatError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("ERROR: %s incorrect format", e.Value)
	}
	return fmt.Sprintf("ERROR: %s incorrect %s format", e.Value, e.Kind)
}

// Email checks the address format. It returns a *FormatError when the
// address is rejected.
func Email(email string) error {
	if !emailRe.MatchString(email) {
		return &FormatError{Kind: "email", Value: email}
	}
	return nil
}

// Domain reports whether the domain part of email is one of domains.
// Matching is exact after lower-casing the address.
func Domain(email string, domains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	return slices.Contains(domains, strings.ToLower(email[at+1:]))
}

// AssessmentID reports whether id follows the RV#### convention.
func AssessmentID(id string) bool {
	return assessmentIDRe.MatchString(id)
}

// EmailImportFields lists the keys an email import file must carry,
// with the description shown to the operator when one is missing.
var EmailImportFields = []struct {
	Key         string
	Description string
}{
	{"id", "Template ID from Database"},
	{"from_address", `Full email address format "Display Name<email@domain.com>"`},
	{"subject", "Email Subject with GoPhish tags if desired"},
	{"html", "HTML Body of the email"},
	{"text", "Text Body of the email"},
}

// MissingKeyError names a required key absent from an email import file.
type MissingKeyError struct {
	Key         string
	Description string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing field %q: %s", e.Key, e.Description)
}

// EmailImport is the decoded content of an email import file.
type EmailImport struct {
	ID          string `json:"id"`
	FromAddress string `json:"from_address"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
	Text        string `json:"text"`
}

// ParseEmailImport decodes an email import file and checks that every
// required key is present. Values may be empty; keys may not be absent.
func ParseEmailImport(data []byte) (*EmailImport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode email import: %w", err)
	}
	for _, f := range EmailImportFields {
		if _, ok := raw[f.Key]; !ok {
			return nil, &MissingKeyError{Key: f.Key, Description: f.Description}
		}
	}

	var imp EmailImport
	if err := json.Unmarshal(data, &imp); err != nil {
		return nil, fmt.Errorf("decode email import: %w", err)
	}
	return &imp, nil
}
