package models

import "encoding/json"

// Target is one recipient of a campaign
type Target struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Position  string `json:"position,omitempty"`
}

// Group is a named, ordered list of targets. An empty target list is
// omitted when serialized and always decodes as nil.
type Group struct {
	Name    string   `json:"name,omitempty"`
	Targets []Target `json:"targets,omitempty"`
}

// UnmarshalJSON decodes a group, storing an empty target list as nil
func (g *Group) UnmarshalJSON(data []byte) error {
	type plain Group
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Targets) == 0 {
		p.Targets = nil
	}
	*g = Group(p)
	return nil
}

// ParseGroup decodes a group from JSON
func ParseGroup(data []byte) (*Group, error) {
	g := &Group{}
	if err := json.Unmarshal(data, g); err != nil {
		return nil, err
	}
	return g, nil
}
