package roadmap

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kalambet/careerpath/internal/profile"
)

//go:embed banks/*.yaml
var banksFS embed.FS

// Generator builds a roadmap for a career title from a profile without I/O.
type Generator func(title string, p profile.Profile) Roadmap

// signal is a profile predicate. It holds when any listed value is present.
type signal struct {
	Interests       []string `yaml:"interests"`
	Subjects        []string `yaml:"subjects"`
	Skills          []string `yaml:"skills"`
	Streams         []string `yaml:"streams"`
	EducationLevels []string `yaml:"education_levels"`
}

func (s signal) holds(p profile.Profile) bool {
	for _, v := range s.Interests {
		if p.HasInterest(v) {
			return true
		}
	}
	for _, v := range s.Subjects {
		if p.HasSubject(v) {
			return true
		}
	}
	for _, v := range s.Skills {
		if p.HasSkill(v) {
			return true
		}
	}
	return slices.Contains(s.Streams, p.Stream) && p.Stream != "" ||
		slices.Contains(s.EducationLevels, p.EducationLevel) && p.EducationLevel != ""
}

type stageBank struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Duration       string   `yaml:"duration"`
	Description    string   `yaml:"description"`
	SalaryRange    string   `yaml:"salary_range"`
	Skills         []string `yaml:"skills"`
	Courses        []string `yaml:"courses"`
	Certifications []string `yaml:"certifications"`
	Projects       []string `yaml:"projects"`
	Milestones     []string `yaml:"milestones"`
	Networking     []string `yaml:"networking"`
}

// bank is the phrase bank of one career. Every string is a text/template
// evaluated against a view of the profile.
type bank struct {
	ID               string            `yaml:"id"`
	Signals          map[string]signal `yaml:"signals"`
	Overview         string            `yaml:"overview"`
	TotalDuration    string            `yaml:"total_duration"`
	PersonalizedNote string            `yaml:"personalized_note"`
	IndustryInsights []string          `yaml:"industry_insights"`
	Stages           []stageBank       `yaml:"stages"`
	LongTermOptions  []string          `yaml:"long_term_options"`
	KeyCompanies     []string          `yaml:"key_companies"`

	tmpl *template.Template
}

// view is the data a phrase template sees.
type view struct {
	Title         string
	Background    string
	TopInterests  string
	TopSkills     string
	FirstInterest string
	Location      string
	WorkStyle     string
	Is            map[string]bool

	p profile.Profile
}

func (v view) Interest(s string) bool { return v.p.HasInterest(s) }
func (v view) Subject(s string) bool  { return v.p.HasSubject(s) }
func (v view) Skill(s string) bool    { return v.p.HasSkill(s) }

// Graduate reports an undergraduate or postgraduate education level.
func (v view) Graduate() bool { return strings.Contains(v.p.EducationLevel, "graduate") }

var funcs = template.FuncMap{
	"lower": strings.ToLower,
}

func (b *bank) newView(title string, p profile.Profile) view {
	v := view{
		Title:         title,
		Background:    p.Background(),
		TopInterests:  profile.JoinFirst(p.Interests, 2),
		TopSkills:     profile.JoinFirst(p.Skills, 2),
		FirstInterest: strings.Join(profile.First(p.Interests, 1), ""),
		Location:      p.Location,
		WorkStyle:     p.WorkStyle,
		Is:            make(map[string]bool, len(b.Signals)),
		p:             p,
	}
	for name, s := range b.Signals {
		v.Is[name] = s.holds(p)
	}
	return v
}

// compile parses every phrase of the bank into one template set. Each phrase
// is registered under a path-like name so it can be executed individually.
func (b *bank) compile() error {
	root := template.New(b.ID).Funcs(funcs).Option("missingkey=error")
	add := func(name, text string) error {
		if _, err := root.New(name).Parse(text); err != nil {
			return fmt.Errorf("bank %s: %s: %w", b.ID, name, err)
		}
		return nil
	}
	addList := func(prefix string, items []string) error {
		for i, item := range items {
			if err := add(fmt.Sprintf("%s/%d", prefix, i), item); err != nil {
				return err
			}
		}
		return nil
	}

	for name, text := range map[string]string{
		"overview":          b.Overview,
		"total_duration":    b.TotalDuration,
		"personalized_note": b.PersonalizedNote,
	} {
		if err := add(name, text); err != nil {
			return err
		}
	}
	if err := addList("insights", b.IndustryInsights); err != nil {
		return err
	}
	if err := addList("long_term", b.LongTermOptions); err != nil {
		return err
	}
	if err := addList("companies", b.KeyCompanies); err != nil {
		return err
	}
	for i, s := range b.Stages {
		prefix := fmt.Sprintf("stage%d", i)
		for name, text := range map[string]string{
			"title":       s.Title,
			"duration":    s.Duration,
			"description": s.Description,
			"salary":      s.SalaryRange,
		} {
			if err := add(prefix+"/"+name, text); err != nil {
				return err
			}
		}
		for kind, items := range map[string][]string{
			"skills": s.Skills, "courses": s.Courses, "certifications": s.Certifications,
			"projects": s.Projects, "milestones": s.Milestones, "networking": s.Networking,
		} {
			if err := addList(prefix+"/"+kind, items); err != nil {
				return err
			}
		}
	}
	b.tmpl = root
	return nil
}

// render executes one phrase and collapses runs of whitespace left behind by
// empty conditional fragments.
func (b *bank) render(name string, v view) string {
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		slog.Error("rendering roadmap phrase", "bank", b.ID, "phrase", name, "error", err)
		return ""
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

// renderList renders every item and drops the ones that came out empty.
func (b *bank) renderList(prefix string, n int, v view) []string {
	out := make([]string, 0, n)
	for i := range n {
		if s := b.render(fmt.Sprintf("%s/%d", prefix, i), v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (b *bank) generate(title string, p profile.Profile) Roadmap {
	v := b.newView(title, p)
	r := Roadmap{
		ID:               b.ID,
		Title:            title,
		Overview:         b.render("overview", v),
		TotalDuration:    b.render("total_duration", v),
		PersonalizedNote: b.render("personalized_note", v),
		IndustryInsights: b.renderList("insights", len(b.IndustryInsights), v),
		LongTermOptions:  b.renderList("long_term", len(b.LongTermOptions), v),
		KeyCompanies:     b.renderList("companies", len(b.KeyCompanies), v),
		Stages:           make([]Stage, 0, len(b.Stages)),
	}
	for i, s := range b.Stages {
		prefix := fmt.Sprintf("stage%d", i)
		r.Stages = append(r.Stages, Stage{
			ID:             s.ID,
			Title:          b.render(prefix+"/title", v),
			Duration:       b.render(prefix+"/duration", v),
			Description:    b.render(prefix+"/description", v),
			SalaryRange:    b.render(prefix+"/salary", v),
			Skills:         b.renderList(prefix+"/skills", len(s.Skills), v),
			Courses:        b.renderList(prefix+"/courses", len(s.Courses), v),
			Certifications: b.renderList(prefix+"/certifications", len(s.Certifications), v),
			Projects:       b.renderList(prefix+"/projects", len(s.Projects), v),
			Milestones:     b.renderList(prefix+"/milestones", len(s.Milestones), v),
			Networking:     b.renderList(prefix+"/networking", len(s.Networking), v),
		})
	}
	return r
}

// Templates maps career ids to their roadmap generators. Ids without a
// dedicated phrase bank use the generic generator.
type Templates struct {
	generators map[string]Generator
	generic    *bank
}

var loadDefault = sync.OnceValues(func() (*Templates, error) {
	return LoadTemplates(banksFS)
})

// DefaultTemplates returns the built-in phrase banks. It panics if the
// embedded banks are malformed.
func DefaultTemplates() *Templates {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("roadmap: embedded banks: %v", err))
	}
	return t
}

// LoadTemplates reads every banks/*.yaml file from fsys. A bank with id
// "generic" is required.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	names, err := fs.Glob(fsys, "banks/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("listing banks: %w", err)
	}

	t := &Templates{generators: make(map[string]Generator)}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		b := &bank{}
		if err := yaml.Unmarshal(data, b); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path.Base(name), err)
		}
		if b.ID == "" {
			return nil, fmt.Errorf("%s: missing id", path.Base(name))
		}
		if len(b.Stages) != StageCount {
			return nil, fmt.Errorf("bank %s: has %d stages, want %d", b.ID, len(b.Stages), StageCount)
		}
		if err := b.compile(); err != nil {
			return nil, err
		}
		if err := b.check(); err != nil {
			return nil, err
		}

		if b.ID == GenericID {
			t.generic = b
			continue
		}
		if _, dup := t.generators[b.ID]; dup {
			return nil, fmt.Errorf("duplicate bank id %q", b.ID)
		}
		t.generators[b.ID] = b.generate
	}

	if t.generic == nil {
		return nil, fmt.Errorf("no %q bank", GenericID)
	}
	return t, nil
}

// check renders the bank against sample profiles so template errors surface
// at load time rather than during a request.
func (b *bank) check() error {
	opts := profile.Options()
	samples := []profile.Profile{
		{},
		{
			Interests: opts.Interests, Subjects: opts.Subjects, Skills: opts.Skills,
			EducationLevel: profile.LevelPostgraduate, Stream: "engineering",
			WorkStyle: profile.WorkStyleTeam, Location: profile.LocationMetro,
		},
		{Location: profile.LocationInternational, WorkStyle: profile.WorkStyleIndependent},
		{Location: profile.LocationHometown},
	}
	for _, p := range samples {
		v := b.newView("Sample", p)
		for _, tmpl := range b.tmpl.Templates() {
			if tmpl.Name() == b.ID {
				continue
			}
			if err := tmpl.Execute(&bytes.Buffer{}, v); err != nil {
				return fmt.Errorf("bank %s: %w", b.ID, err)
			}
		}
	}
	return nil
}

// Lookup returns the generator registered for careerID, or the generic
// generator when there is none.
func (t *Templates) Lookup(careerID string) Generator {
	if g, ok := t.generators[careerID]; ok {
		return g
	}
	return t.generic.generate
}

// Has reports whether careerID has a dedicated phrase bank.
func (t *Templates) Has(careerID string) bool {
	_, ok := t.generators[careerID]
	return ok
}

// IDs returns the career ids with dedicated phrase banks, sorted.
func (t *Templates) IDs() []string {
	ids := make([]string, 0, len(t.generators))
	for id := range t.generators {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Generate builds the template roadmap for careerID. Every list of the result
// is non-empty: a list that renders empty is filled from the generic bank.
func (t *Templates) Generate(careerID, title string, p profile.Profile) Roadmap {
	r := t.Lookup(careerID)(title, p)
	if r.ID == GenericID {
		return r
	}
	return t.fill(r, title, p)
}

func (t *Templates) fill(r Roadmap, title string, p profile.Profile) Roadmap {
	g := t.generic.generate(title, p)
	orEmpty := func(dst *[]string, src []string) {
		if len(*dst) == 0 {
			*dst = src
		}
	}
	orBlank := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	orBlank(&r.Overview, g.Overview)
	orBlank(&r.TotalDuration, g.TotalDuration)
	orEmpty(&r.IndustryInsights, g.IndustryInsights)
	orEmpty(&r.LongTermOptions, g.LongTermOptions)
	orEmpty(&r.KeyCompanies, g.KeyCompanies)
	for i := range r.Stages {
		s, gs := &r.Stages[i], g.Stages[i]
		orBlank(&s.Title, gs.Title)
		orBlank(&s.Duration, gs.Duration)
		orBlank(&s.Description, gs.Description)
		orBlank(&s.SalaryRange, gs.SalaryRange)
		orEmpty(&s.Skills, gs.Skills)
		orEmpty(&s.Courses, gs.Courses)
		orEmpty(&s.Certifications, gs.Certifications)
		orEmpty(&s.Projects, gs.Projects)
		orEmpty(&s.Milestones, gs.Milestones)
		orEmpty(&s.Networking, gs.Networking)
	}
	return r
}
