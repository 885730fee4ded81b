package models

import (
	"fmt"
	"strings"
)

// GroupName returns the name of the n-th group of an assessment.
func GroupName(id string, n int) string { return fmt.Sprintf("%s-G%d", id, n) }

// CampaignName returns the name of the n-th campaign of an assessment.
func CampaignName(id string, n int) string { return fmt.Sprintf("%s-C%d", id, n) }

// TemplateName returns the name of the template used by the n-th campaign.
// emailID is the identifier of the imported email, when there is one.
func TemplateName(id string, n int, emailID string) string {
	if emailID == "" {
		return fmt.Sprintf("%s-T%d", id, n)
	}
	return fmt.Sprintf("%s-T%d-%s", id, n, emailID)
}

// SMTPName returns the name of the sending profile used by the n-th campaign.
func SMTPName(id string, n int) string { return fmt.Sprintf("%s-SP-%d", id, n) }

// PageName returns the name of the n-th landing page.
func PageName(id string, n int, autoForward bool) string {
	if autoForward {
		return fmt.Sprintf("%s-%d-AutoForward", id, n)
	}
	return fmt.Sprintf("%s-%d-Landing", id, n)
}

// MatchAssessmentID reports whether name belongs to the assessment: the
// name must start with the id immediately followed by a hyphen.
func MatchAssessmentID(id, name string) bool {
	if id == "" {
		return false
	}
	return strings.HasPrefix(name, id+"-")
}
