package models

import (
	"time"
	_ "time/tzdata"

	"github.com/foxzi/pca/internal/validate"
)

// DateLayout is the ISO-8601 layout used for campaign and assessment dates.
const DateLayout = "2006-01-02T15:04:05-07:00"

// InputLayout is the layout operators type dates in (mm/dd/YYYY HH:MM, 24h).
const InputLayout = "01/02/2006 15:04"

// ParseDate parses an ISO-8601 date with offset. Malformed values
// yield a *validate.FormatError.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &validate.FormatError{Kind: "date", Value: s}
	}
	return t, nil
}

// FormatDate renders t in DateLayout, keeping t's offset.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// LocalDate interprets an operator-entered "mm/dd/YYYY HH:MM" value in the
// named time zone and returns it in DateLayout.
func LocalDate(input, timezone string) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	t, err := time.ParseInLocation(InputLayout, input, loc)
	if err != nil {
		return "", &validate.FormatError{Kind: "date", Value: input}
	}
	return FormatDate(t), nil
}

// Timezones lists the zones an operator may pick for an assessment.
var Timezones = []string{
	"US/Alaska",
	"US/Arizona",
	"US/Central",
	"US/Eastern",
	"US/Hawaii",
	"US/Mountain",
	"US/Pacific",
}

// InputDate converts an ISO-8601 date to the operator input layout in the
// named zone. Unparseable dates yield an empty string.
func InputDate(date, timezone string) string {
	t, err := ParseDate(date)
	if err != nil {
		return ""
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return ""
	}
	return t.In(loc).Format(InputLayout)
}
