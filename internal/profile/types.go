package profile

import "slices"

// Profile holds a student's questionnaire answers. Values are created once at
// the boundary and treated as read-only afterwards.
type Profile struct {
	Interests      []string `json:"interests"`
	EducationLevel string   `json:"educationLevel"`
	CurrentClass   string   `json:"currentClass"`
	Stream         string   `json:"stream"`
	Subjects       []string `json:"subjects"`
	Skills         []string `json:"skills"`
	WorkStyle      string   `json:"workStyle"`
	Location       string   `json:"location"`
}

// Interests.
const (
	InterestTechnology    = "Technology & Computers"
	InterestHealthcare    = "Healthcare & Medicine"
	InterestBusiness      = "Business & Finance"
	InterestCreativeArts  = "Creative Arts & Design"
	InterestScience       = "Science & Research"
	InterestEducation     = "Education & Teaching"
	InterestSports        = "Sports & Fitness"
	InterestSocialService = "Social Service"
	InterestEngineering   = "Engineering"
	InterestLaw           = "Law & Justice"
	InterestMedia         = "Media & Communication"
	InterestEnvironment   = "Environment & Nature"
)

// Subjects referenced by scoring rules and roadmap signals.
const (
	SubjectMathematics     = "Mathematics"
	SubjectPhysics         = "Physics"
	SubjectComputerScience = "Computer Science"
	SubjectEconomics       = "Economics"
	SubjectPsychology      = "Psychology"
	SubjectBusinessStudies = "Business Studies"
	SubjectArtsAndCrafts   = "Arts & Crafts"
)

const (
	LevelSecondary       = "secondary"
	LevelSeniorSecondary = "senior-secondary"
	LevelUndergraduate   = "undergraduate"
	LevelPostgraduate    = "postgraduate"
)

const (
	WorkStyleTeam        = "team"
	WorkStyleIndependent = "independent"
	WorkStyleMixed       = "mixed"
	WorkStyleLeadership  = "leadership"
)

const (
	LocationMetro         = "metro"
	LocationTier2         = "tier2"
	LocationHometown      = "hometown"
	LocationFlexible      = "flexible"
	LocationInternational = "international"
)

var (
	interests = []string{
		InterestTechnology, InterestHealthcare, InterestBusiness, InterestCreativeArts,
		InterestScience, InterestEducation, InterestSports, InterestSocialService,
		InterestEngineering, InterestLaw, InterestMedia, InterestEnvironment,
	}
	subjects = []string{
		"Mathematics", "Physics", "Chemistry", "Biology", "Computer Science",
		"Economics", "English", "Hindi", "History", "Geography", "Political Science",
		"Psychology", "Commerce", "Accountancy", "Business Studies", "Arts & Crafts",
	}
	skills = []string{
		"Problem Solving", "Communication", "Leadership", "Creativity",
		"Analytical Thinking", "Teamwork", "Public Speaking", "Technical Skills",
		"Research", "Writing", "Mathematical Skills", "Artistic Skills",
		"Organization", "Time Management",
	}
	educationLevels = []string{LevelSecondary, LevelSeniorSecondary, LevelUndergraduate, LevelPostgraduate}
	classes         = []string{"9", "10", "11", "12", "1st-year", "2nd-year", "3rd-year", "4th-year", "masters"}
	streams         = []string{"science", "commerce", "arts", "engineering", "medical", "business"}
	workStyles      = []string{WorkStyleTeam, WorkStyleIndependent, WorkStyleMixed, WorkStyleLeadership}
	locations       = []string{LocationMetro, LocationTier2, LocationHometown, LocationFlexible, LocationInternational}
)

// OptionSet lists every value the questionnaire accepts, grouped by field.
type OptionSet struct {
	Interests       []string `json:"interests"`
	EducationLevels []string `json:"educationLevels"`
	Classes         []string `json:"classes"`
	Streams         []string `json:"streams"`
	Subjects        []string `json:"subjects"`
	Skills          []string `json:"skills"`
	WorkStyles      []string `json:"workStyles"`
	Locations       []string `json:"locations"`
}

// Options returns copies of all enumerations.
func Options() OptionSet {
	return OptionSet{
		Interests:       slices.Clone(interests),
		EducationLevels: slices.Clone(educationLevels),
		Classes:         slices.Clone(classes),
		Streams:         slices.Clone(streams),
		Subjects:        slices.Clone(subjects),
		Skills:          slices.Clone(skills),
		WorkStyles:      slices.Clone(workStyles),
		Locations:       slices.Clone(locations),
	}
}

// HasInterest reports whether the profile lists interest.
func (p Profile) HasInterest(interest string) bool { return slices.Contains(p.Interests, interest) }

// HasSubject reports whether the profile lists subject.
func (p Profile) HasSubject(subject string) bool { return slices.Contains(p.Subjects, subject) }

// HasSkill reports whether the profile lists skill.
func (p Profile) HasSkill(skill string) bool { return slices.Contains(p.Skills, skill) }
