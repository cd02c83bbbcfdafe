package profile

import (
	"encoding/json"
	"strings"
)

// Summary is a condensed view of a profile for display.
type Summary struct {
	Background   string   `json:"background"`
	TopInterests []string `json:"topInterests"`
	TopSkills    []string `json:"topSkills"`
	WorkStyle    string   `json:"workStyle,omitempty"`
	Location     string   `json:"location,omitempty"`
}

// Summarize returns the first three interests and skills along with the
// student's background.
func (p Profile) Summarize() Summary {
	return Summary{
		Background:   p.Background(),
		TopInterests: First(p.Interests, 3),
		TopSkills:    First(p.Skills, 3),
		WorkStyle:    p.WorkStyle,
		Location:     p.Location,
	}
}

// Background is the stream when set, otherwise the education level.
func (p Profile) Background() string {
	if p.Stream != "" {
		return p.Stream
	}
	return p.EducationLevel
}

// JoinFirst joins the first n values with " and ".
func JoinFirst(list []string, n int) string {
	return strings.Join(First(list, n), " and ")
}

// First returns at most n leading elements of list.
func First(list []string, n int) []string {
	if len(list) < n {
		n = len(list)
	}
	out := make([]string, n)
	copy(out, list[:n])
	return out
}

// JSON serializes the profile for embedding in prompts. Nil slices are
// written as empty arrays.
func (p Profile) JSON() string {
	c := p
	for _, s := range []*[]string{&c.Interests, &c.Subjects, &c.Skills} {
		if *s == nil {
			*s = []string{}
		}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}
