// Package catalog holds the fixed list of careers the matcher ranks and the
// affinity rules that boost them.
package catalog

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed careers.yaml
var careersYAML []byte

// Career is a static career definition.
type Career struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description" yaml:"description"`
	BaseMatch        int      `json:"baseMatchPercentage" yaml:"base_match"`
	AverageSalary    string   `json:"averageSalary" yaml:"average_salary"`
	GrowthProspects  string   `json:"growthProspects" yaml:"growth_prospects"`
	WorkEnvironment  string   `json:"workEnvironment" yaml:"work_environment"`
	RequiredSkills   []string `json:"requiredSkills" yaml:"required_skills"`
	EducationPath    []string `json:"educationPath" yaml:"education_path"`
	PopularCompanies []string `json:"popularCompanies" yaml:"popular_companies"`
	WhyMatch         []string `json:"whyMatch" yaml:"why_match"`

	// Affinities are filled from the catalog rules on load.
	InterestAffinities  []string       `json:"-" yaml:"-"`
	StreamAffinities    []string       `json:"-" yaml:"-"`
	SubjectAffinities   map[string]int `json:"-" yaml:"-"`
	WorkStyleAffinities map[string]int `json:"-" yaml:"-"`
}

// Bonuses are the flat per-match increments.
type Bonuses struct {
	Interest int `yaml:"interest"`
	Skill    int `yaml:"skill"`
	Stream   int `yaml:"stream"`
}

type weightedRule struct {
	Subject string   `yaml:"subject"`
	Style   string   `yaml:"style"`
	Bonus   int      `yaml:"bonus"`
	Careers []string `yaml:"careers"`
}

type document struct {
	Bonuses    Bonuses             `yaml:"bonuses"`
	Careers    []Career            `yaml:"careers"`
	Interests  map[string][]string `yaml:"interests"`
	Streams    map[string][]string `yaml:"streams"`
	Subjects   []weightedRule      `yaml:"subjects"`
	WorkStyles []weightedRule      `yaml:"work_styles"`
}

// Catalog is an immutable, ordered set of careers.
type Catalog struct {
	careers []Career
	byID    map[string]int
	bonuses Bonuses
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	return Load(careersYAML)
})

// Default returns the built-in catalog. It panics if the embedded data is
// malformed, which can only happen on a broken build.
func Default() *Catalog {
	c, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded careers.yaml: %v", err))
	}
	return c
}

// Load parses a YAML catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(doc.Careers) == 0 {
		return nil, fmt.Errorf("catalog has no careers")
	}

	c := &Catalog{
		careers: doc.Careers,
		byID:    make(map[string]int, len(doc.Careers)),
		bonuses: doc.Bonuses,
	}
	for i, career := range c.careers {
		if career.ID == "" || career.Title == "" {
			return nil, fmt.Errorf("career %d: id and title are required", i)
		}
		if _, dup := c.byID[career.ID]; dup {
			return nil, fmt.Errorf("duplicate career id %q", career.ID)
		}
		c.byID[career.ID] = i
		c.careers[i].SubjectAffinities = map[string]int{}
		c.careers[i].WorkStyleAffinities = map[string]int{}
	}

	// Sorted keys keep the affinity slices deterministic.
	for _, interest := range slices.Sorted(maps.Keys(doc.Interests)) {
		for _, id := range doc.Interests[interest] {
			career, err := c.ref(id, "interest "+interest)
			if err != nil {
				return nil, err
			}
			career.InterestAffinities = append(career.InterestAffinities, interest)
		}
	}
	for _, stream := range slices.Sorted(maps.Keys(doc.Streams)) {
		for _, id := range doc.Streams[stream] {
			career, err := c.ref(id, "stream "+stream)
			if err != nil {
				return nil, err
			}
			career.StreamAffinities = append(career.StreamAffinities, stream)
		}
	}
	for _, r := range doc.Subjects {
		for _, id := range r.Careers {
			career, err := c.ref(id, "subject "+r.Subject)
			if err != nil {
				return nil, err
			}
			career.SubjectAffinities[r.Subject] += r.Bonus
		}
	}
	for _, r := range doc.WorkStyles {
		for _, id := range r.Careers {
			career, err := c.ref(id, "work style "+r.Style)
			if err != nil {
				return nil, err
			}
			career.WorkStyleAffinities[r.Style] += r.Bonus
		}
	}

	return c, nil
}

func (c *Catalog) ref(id, rule string) (*Career, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%s references unknown career %q", rule, id)
	}
	return &c.careers[i], nil
}

// Careers returns all careers in catalog order.
func (c *Catalog) Careers() []Career {
	return slices.Clone(c.careers)
}

// Get looks up a career by id.
func (c *Catalog) Get(id string) (Career, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Career{}, false
	}
	return c.careers[i], true
}

// Bonuses returns the flat bonus values.
func (c *Catalog) Bonuses() Bonuses {
	return c.bonuses
}

// Len returns the number of careers.
func (c *Catalog) Len() int {
	return len(c.careers)
}
