package roadmap

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kalambet/careerpath/internal/catalog"
	"github.com/kalambet/careerpath/internal/profile"
)

func sampleProfiles() map[string]profile.Profile {
	return map[string]profile.Profile{
		"empty": {},
		"tech": {
			Interests:      []string{profile.InterestTechnology, profile.InterestScience},
			EducationLevel: profile.LevelUndergraduate,
			CurrentClass:   "2nd-year",
			Stream:         "engineering",
			Subjects:       []string{"Computer Science", "Mathematics"},
			Skills:         []string{"Technical Skills", "Problem Solving"},
			WorkStyle:      profile.WorkStyleIndependent,
			Location:       profile.LocationMetro,
		},
		"creative": {
			Interests:      []string{profile.InterestCreativeArts, profile.InterestMedia},
			EducationLevel: profile.LevelSeniorSecondary,
			CurrentClass:   "12",
			Stream:         "arts",
			Subjects:       []string{"Arts & Crafts", "Psychology"},
			Skills:         []string{"Creativity", "Writing"},
			WorkStyle:      profile.WorkStyleTeam,
			Location:       profile.LocationHometown,
		},
		"business": {
			Interests:      []string{profile.InterestBusiness, profile.InterestHealthcare},
			EducationLevel: profile.LevelPostgraduate,
			CurrentClass:   "masters",
			Stream:         "commerce",
			Subjects:       []string{"Economics", "Business Studies"},
			Skills:         []string{"Leadership", "Analytical Thinking"},
			WorkStyle:      profile.WorkStyleLeadership,
			Location:       profile.LocationInternational,
		},
	}
}

func TestDefaultTemplates_IDs(t *testing.T) {
	want := []string{
		"business-analyst", "cybersecurity-specialist", "data-scientist", "digital-marketer",
		"product-manager", "software-engineer", "ux-designer",
	}
	got := DefaultTemplates().IDs()
	if !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestDefaultTemplates_EveryCatalogCareerHasBank(t *testing.T) {
	tmpl := DefaultTemplates()
	for _, c := range catalog.Default().Careers() {
		if !tmpl.Has(c.ID) {
			t.Errorf("career %q has no phrase bank", c.ID)
		}
	}
}

func TestGenerate_Complete(t *testing.T) {
	tmpl := DefaultTemplates()
	ids := append(tmpl.IDs(), "marine-biologist")

	for _, id := range ids {
		for name, p := range sampleProfiles() {
			t.Run(id+"/"+name, func(t *testing.T) {
				r := tmpl.Generate(id, "Some Title", p)
				checkComplete(t, r)
			})
		}
	}
}

func checkComplete(t *testing.T, r Roadmap) {
	t.Helper()
	if r.ID == "" || r.Title == "" || r.Overview == "" || r.TotalDuration == "" {
		t.Errorf("blank header field: id=%q title=%q overview=%q duration=%q",
			r.ID, r.Title, r.Overview, r.TotalDuration)
	}
	if len(r.IndustryInsights) == 0 || len(r.LongTermOptions) == 0 || len(r.KeyCompanies) == 0 {
		t.Errorf("empty list: insights=%d longTerm=%d companies=%d",
			len(r.IndustryInsights), len(r.LongTermOptions), len(r.KeyCompanies))
	}
	if len(r.Stages) != StageCount {
		t.Fatalf("len(Stages) = %d, want %d", len(r.Stages), StageCount)
	}
	for i, want := range []string{StageEntry, StageGrowth, StageLeadership} {
		s := r.Stages[i]
		if s.ID != want {
			t.Errorf("Stages[%d].ID = %q, want %q", i, s.ID, want)
		}
		if !s.Complete() {
			t.Errorf("stage %q is incomplete: %+v", s.ID, s)
		}
	}
}

func TestGenerate_Generic(t *testing.T) {
	p := sampleProfiles()["tech"]
	r := DefaultTemplates().Generate("marine-biologist", "Marine Biologist", p)

	if r.ID != GenericID {
		t.Errorf("ID = %q, want %q", r.ID, GenericID)
	}
	if r.Title != "Marine Biologist" {
		t.Errorf("Title = %q", r.Title)
	}
	if got, want := r.IndustryInsights[0], "Growing demand for Marine Biologist professionals in India"; got != want {
		t.Errorf("IndustryInsights[0] = %q, want %q", got, want)
	}
	wantOverview := "Marine Biologist is an exciting career path that aligns well with your interests in " +
		"Technology & Computers and Science & Research. This field offers great opportunities for growth and impact."
	if r.Overview != wantOverview {
		t.Errorf("Overview = %q, want %q", r.Overview, wantOverview)
	}
	wantNote := "Based on your engineering background and skills in Technical Skills and Problem Solving, " +
		"you have a solid foundation for Marine Biologist."
	if r.PersonalizedNote != wantNote {
		t.Errorf("PersonalizedNote = %q, want %q", r.PersonalizedNote, wantNote)
	}
	if r.LongTermOptions[0] != "C-level executive in Marine Biologist" {
		t.Errorf("LongTermOptions[0] = %q", r.LongTermOptions[0])
	}
	if got := r.Stages[0].SalaryRange; got != "₹3-10 LPA" {
		t.Errorf("entry salary = %q", got)
	}
}

func TestGenerate_ProductManagerExperience(t *testing.T) {
	tests := []struct {
		level        string
		wantDuration string
		wantSalary   string
	}{
		{profile.LevelPostgraduate, "2-4 years to senior PM level", "₹6-15 LPA"},
		{profile.LevelUndergraduate, "3-5 years to senior PM level", "₹4-12 LPA"},
		{"", "3-5 years to senior PM level", "₹4-12 LPA"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			p := profile.Profile{EducationLevel: tt.level, Interests: []string{profile.InterestBusiness}}
			r := DefaultTemplates().Generate("product-manager", "Product Manager", p)
			if r.TotalDuration != tt.wantDuration {
				t.Errorf("TotalDuration = %q, want %q", r.TotalDuration, tt.wantDuration)
			}
			if got := r.Stages[0].SalaryRange; got != tt.wantSalary {
				t.Errorf("entry SalaryRange = %q, want %q", got, tt.wantSalary)
			}
		})
	}
}

func TestGenerate_SoftwareEngineerBackground(t *testing.T) {
	tmpl := DefaultTemplates()

	cs := tmpl.Generate("software-engineer", "Software Engineer", profile.Profile{Subjects: []string{"Computer Science"}})
	if cs.TotalDuration != "3-5 years to senior level" {
		t.Errorf("with CS: TotalDuration = %q", cs.TotalDuration)
	}
	if cs.Stages[0].SalaryRange != "₹4-18 LPA" {
		t.Errorf("with CS: entry salary = %q", cs.Stages[0].SalaryRange)
	}

	eng := tmpl.Generate("software-engineer", "Software Engineer", profile.Profile{Stream: "engineering"})
	if eng.TotalDuration != "3-5 years to senior level" {
		t.Errorf("engineering stream: TotalDuration = %q", eng.TotalDuration)
	}

	none := tmpl.Generate("software-engineer", "Software Engineer", profile.Profile{Stream: "arts"})
	if none.TotalDuration != "4-6 years to senior level" {
		t.Errorf("without CS: TotalDuration = %q", none.TotalDuration)
	}
	if none.Stages[0].SalaryRange != "₹3-15 LPA" {
		t.Errorf("without CS: entry salary = %q", none.Stages[0].SalaryRange)
	}
}

func TestGenerate_ConditionalCompanies(t *testing.T) {
	tmpl := DefaultTemplates()

	health := tmpl.Generate("ux-designer", "UX Designer", profile.Profile{Interests: []string{profile.InterestHealthcare}})
	if !slices.Contains(health.KeyCompanies, "Practo") {
		t.Errorf("healthcare interest: companies %v lack Practo", health.KeyCompanies)
	}

	plain := tmpl.Generate("ux-designer", "UX Designer", profile.Profile{Interests: []string{profile.InterestSports}})
	if slices.Contains(plain.KeyCompanies, "Practo") {
		t.Errorf("no healthcare interest: companies %v contain Practo", plain.KeyCompanies)
	}
	if slices.Contains(plain.KeyCompanies, "") {
		t.Errorf("companies contain an empty entry: %q", plain.KeyCompanies)
	}
	if len(health.KeyCompanies) <= len(plain.KeyCompanies) {
		t.Errorf("healthcare list (%d) not longer than plain list (%d)", len(health.KeyCompanies), len(plain.KeyCompanies))
	}
}

func TestGenerate_WhitespaceCollapsed(t *testing.T) {
	tmpl := DefaultTemplates()
	for _, id := range tmpl.IDs() {
		for name, p := range sampleProfiles() {
			r := tmpl.Generate(id, "Title", p)
			for _, s := range allStrings(r) {
				if s != strings.TrimSpace(s) || strings.Contains(s, "  ") || strings.Contains(s, "\n") {
					t.Errorf("%s/%s: untidy phrase %q", id, name, s)
				}
			}
		}
	}
}

func allStrings(r Roadmap) []string {
	out := []string{r.Overview, r.TotalDuration, r.PersonalizedNote}
	out = append(out, r.IndustryInsights...)
	out = append(out, r.LongTermOptions...)
	out = append(out, r.KeyCompanies...)
	for _, s := range r.Stages {
		out = append(out, s.Title, s.Duration, s.Description, s.SalaryRange)
		for _, l := range s.lists() {
			out = append(out, l...)
		}
	}
	return out
}

func TestGenerate_Deterministic(t *testing.T) {
	tmpl := DefaultTemplates()
	p := sampleProfiles()["business"]
	a := tmpl.Generate("data-scientist", "Data Scientist", p)
	b := tmpl.Generate("data-scientist", "Data Scientist", p)
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Error("two generations for the same input differ")
	}
}

// bankYAML builds a minimal bank with three stages. Extra top-level lines are
// appended verbatim.
func bankYAML(id string, stages int, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", id)
	b.WriteString("overview: Overview\ntotal_duration: 1 year\n")
	b.WriteString("industry_insights: [Insight]\nlong_term_options: [Option]\n")
	b.WriteString("stages:\n")
	for i := range stages {
		fmt.Fprintf(&b, "  - id: s%d\n    title: T\n    duration: D\n    description: Desc\n    salary_range: S\n", i)
		b.WriteString("    skills: [a]\n    courses: [b]\n    certifications: [c]\n")
		b.WriteString("    projects: [d]\n    milestones: [e]\n    networking: [f]\n")
	}
	b.WriteString(extra)
	return b.String()
}

func TestLoadTemplates_Errors(t *testing.T) {
	generic := bankYAML(GenericID, 3, "key_companies: [G]\n")
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "no generic bank",
			files: map[string]string{"banks/a.yaml": bankYAML("a", 3, "")},
			want:  "no \"generic\" bank",
		},
		{
			name:  "wrong stage count",
			files: map[string]string{"banks/generic.yaml": generic, "banks/a.yaml": bankYAML("a", 2, "")},
			want:  "has 2 stages",
		},
		{
			name:  "missing id",
			files: map[string]string{"banks/generic.yaml": generic, "banks/a.yaml": bankYAML("", 3, "")},
			want:  "missing id",
		},
		{
			name: "template syntax",
			files: map[string]string{
				"banks/generic.yaml": generic,
				"banks/a.yaml":       bankYAML("a", 3, "key_companies: ['{{if .Title}}X']\n"),
			},
			want: "bank a",
		},
		{
			name: "unknown signal",
			files: map[string]string{
				"banks/generic.yaml": generic,
				"banks/a.yaml":       bankYAML("a", 3, "key_companies: ['{{if .Is.nope}}X{{end}}']\n"),
			},
			want: "bank a",
		},
		{
			name: "duplicate id",
			files: map[string]string{
				"banks/generic.yaml": generic,
				"banks/a.yaml":       bankYAML("a", 3, ""),
				"banks/b.yaml":       bankYAML("a", 3, ""),
			},
			want: "duplicate bank id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, data := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(data)}
			}
			_, err := LoadTemplates(fsys)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestGenerate_FillsEmptyListsFromGeneric(t *testing.T) {
	fsys := fstest.MapFS{
		"banks/generic.yaml": {Data: []byte(bankYAML(GenericID, 3, "key_companies: [Fallback Co]\n"))},
		"banks/lawyer.yaml": {Data: []byte(bankYAML("lawyer", 3,
			"signals:\n  law:\n    interests: [Law & Justice]\n"+
				"key_companies: ['{{if .Is.law}}Law Firm{{end}}']\n"))},
	}
	tmpl, err := LoadTemplates(fsys)
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	r := tmpl.Generate("lawyer", "Lawyer", profile.Profile{})
	if !slices.Equal(r.KeyCompanies, []string{"Fallback Co"}) {
		t.Errorf("KeyCompanies = %v, want [Fallback Co]", r.KeyCompanies)
	}
	if r.ID != "lawyer" {
		t.Errorf("ID = %q, want lawyer", r.ID)
	}

	r = tmpl.Generate("lawyer", "Lawyer", profile.Profile{Interests: []string{profile.InterestLaw}})
	if !slices.Equal(r.KeyCompanies, []string{"Law Firm"}) {
		t.Errorf("KeyCompanies = %v, want [Law Firm]", r.KeyCompanies)
	}
}

func TestLookup_FallsBackToGeneric(t *testing.T) {
	tmpl := DefaultTemplates()
	r := tmpl.Lookup("no-such-career")("Astronaut", profile.Profile{})
	if r.ID != GenericID {
		t.Errorf("ID = %q, want %q", r.ID, GenericID)
	}
	if tmpl.Has("no-such-career") {
		t.Error("Has reported a bank for an unknown id")
	}
}
