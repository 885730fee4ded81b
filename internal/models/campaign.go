package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCompleteBeforeLaunch is returned when a campaign does not end strictly
// after it starts.
var ErrCompleteBeforeLaunch = errors.New("complete date is not after launch date")

// Campaign is one scheduled send of a template to a group
type Campaign struct {
	Name         string    `json:"name,omitempty"`
	LaunchDate   string    `json:"launch_date,omitempty"`
	CompleteDate string    `json:"complete_date,omitempty"`
	URL          string    `json:"url,omitempty"`
	Template     *Template `json:"template,omitempty"`
	SMTP         *SMTP     `json:"smtp,omitempty"`
	GroupName    string    `json:"group_name,omitempty"`
	PageName     string    `json:"page_name,omitempty"`
}

// ParseCampaign decodes a campaign from JSON
func ParseCampaign(data []byte) (*Campaign, error) {
	c := &Campaign{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks both dates parse and that the campaign completes after
// it launches.
func (c *Campaign) Validate() error {
	return CheckDates(c.LaunchDate, c.CompleteDate)
}

// CheckDates validates a launch/complete pair.
func CheckDates(launch, complete string) error {
	l, err := ParseDate(launch)
	if err != nil {
		return err
	}
	e, err := ParseDate(complete)
	if err != nil {
		return err
	}
	if !e.After(l) {
		return fmt.Errorf("%w: %s <= %s", ErrCompleteBeforeLaunch, complete, launch)
	}
	return nil
}

// Number returns the n of a "{id}-C{n}" campaign name.
func (c *Campaign) Number() (int, bool) {
	i := strings.LastIndex(c.Name, "-C")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(c.Name[i+2:])
	if err != nil {
		return 0, false
	}
	return n, true
}
