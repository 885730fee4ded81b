package validate

import (
	"errors"
	"testing"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{"simple", "name.last@domain.test", true},
		{"plus tag", "name.last+phish@domain.test", true},
		{"underscore", "first_last@sub.domain.test", true},
		{"no local part", "@domain.test", false},
		{"no tld", "phish@test", false},
		{"no at", "name.domain.test", false},
		{"empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Email(tc.email)
			if tc.valid && err != nil {
				t.Errorf("Email(%q) error = %v, want nil", tc.email, err)
			}
			if !tc.valid {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("Email(%q) error = %v, want *FormatError", tc.email, err)
				}
				if fe.Value != tc.email {
					t.Errorf("FormatError.Value = %q, want %q", fe.Value, tc.email)
				}
			}
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		domains []string
		want    bool
	}{
		{"match", "name.last@domain.test", []string{"domain.test"}, true},
		{"no match", "name.last@domain.test", []string{"test.test"}, false},
		{"upper case address", "Name.Last@DOMAIN.test", []string{"domain.test"}, true},
		{"second domain", "a.b@other.test", []string{"domain.test", "other.test"}, true},
		{"subdomain is not a match", "a.b@mail.domain.test", []string{"domain.test"}, false},
		{"no at", "domain.test", []string{"domain.test"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Domain(tc.email, tc.domains); got != tc.want {
				t.Errorf("Domain(%q, %v) = %v, want %v", tc.email, tc.domains, got, tc.want)
			}
		})
	}
}

func TestAssessmentID(t *testing.T) {
	if !AssessmentID("RV0001") {
		t.Error("AssessmentID(RV0001) = false, want true")
	}
	if AssessmentID("ER0001") {
		t.Error("AssessmentID(ER0001) = true, want false")
	}
	if AssessmentID("RV12") {
		t.Error("AssessmentID(RV12) = true, want false")
	}
}

func TestParseEmailImport(t *testing.T) {
	data := []byte(`{"id": "5566", "from_address": "IT <it@domain.test>", "subject": "Reset", "html": "<p>hi</p>", "text": ""}`)

	imp, err := ParseEmailImport(data)
	if err != nil {
		t.Fatalf("ParseEmailImport() error = %v", err)
	}
	if imp.ID != "5566" || imp.Subject != "Reset" || imp.FromAddress != "IT <it@domain.test>" {
		t.Errorf("ParseEmailImport() = %+v", imp)
	}
}

func TestParseEmailImportMissingKey(t *testing.T) {
	data := []byte(`{"id": "5566", "from_address": "IT <it@domain.test>", "html": "<p>hi</p>", "text": ""}`)

	_, err := ParseEmailImport(data)
	var mk *MissingKeyError
	if !errors.As(err, &mk) {
		t.Fatalf("ParseEmailImport() error = %v, want *MissingKeyError", err)
	}
	if mk.Key != "subject" {
		t.Errorf("MissingKeyError.Key = %q, want subject", mk.Key)
	}
	if mk.Description == "" {
		t.Error("MissingKeyError.Description is empty")
	}
}

func TestParseEmailImportInvalidJSON(t *testing.T) {
	if _, err := ParseEmailImport([]byte(`{`)); err == nil {
		t.Error("ParseEmailImport() error = nil, want decode error")
	}
}
