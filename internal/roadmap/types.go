package roadmap

// Stage ids, in order.
const (
	StageEntry      = "entry"
	StageGrowth     = "growth"
	StageLeadership = "leadership"
)

// StageCount is the number of stages every roadmap carries.
const StageCount = 3

// GenericID identifies roadmaps built by the generic template.
const GenericID = "generic"

// Stage is one step of a roadmap.
type Stage struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Duration       string   `json:"duration"`
	Description    string   `json:"description"`
	Skills         []string `json:"skills"`
	Courses        []string `json:"courses"`
	Certifications []string `json:"certifications"`
	Projects       []string `json:"projects"`
	Milestones     []string `json:"milestones"`
	Networking     []string `json:"networking"`
	SalaryRange    string   `json:"salaryRange"`
}

// Roadmap is a three-stage career plan.
type Roadmap struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Overview         string   `json:"overview"`
	TotalDuration    string   `json:"totalDuration"`
	IndustryInsights []string `json:"industryInsights"`
	Stages           []Stage  `json:"stages"`
	LongTermOptions  []string `json:"longTermOptions"`
	KeyCompanies     []string `json:"keyCompanies"`
	PersonalizedNote string   `json:"personalizedNote,omitempty"`
}

// lists returns the stage's item lists in display order.
func (s Stage) lists() [][]string {
	return [][]string{s.Skills, s.Courses, s.Certifications, s.Projects, s.Milestones, s.Networking}
}

// Complete reports whether the stage has every field populated.
func (s Stage) Complete() bool {
	if s.ID == "" || s.Title == "" || s.Duration == "" || s.Description == "" || s.SalaryRange == "" {
		return false
	}
	for _, l := range s.lists() {
		if len(l) == 0 {
			return false
		}
	}
	return true
}

// Stage returns the stage with the given id.
func (r Roadmap) Stage(id string) (Stage, bool) {
	for _, s := range r.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}
