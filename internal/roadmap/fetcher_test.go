package roadmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kalambet/careerpath/internal/gemini"
	"github.com/kalambet/careerpath/internal/metrics"
	"github.com/kalambet/careerpath/internal/profile"
)

type mockGenerator struct {
	text    string
	err     error
	prompts []string
	block   bool
}

func (m *mockGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.text, m.err
}

// remoteJSON returns a schema-valid payload that differs from any template.
func remoteJSON(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	r := DefaultTemplates().Generate("software-engineer", "Software Engineer", profile.Profile{})
	r.Overview = "Remote overview"
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if mutate != nil {
		mutate(doc)
	}
	data, err = json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func stageAt(doc map[string]any, i int) map[string]any {
	return doc["stages"].([]any)[i].(map[string]any)
}

func TestFetch_Remote(t *testing.T) {
	gen := &mockGenerator{text: remoteJSON(t, nil)}
	f := NewFetcher(gen)

	res := f.Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})
	if res.Source != SourceRemote {
		t.Fatalf("Source = %q (reason %q), want remote", res.Source, res.Reason)
	}
	if res.Reason != "" {
		t.Errorf("Reason = %q, want empty", res.Reason)
	}
	if res.Roadmap.Overview != "Remote overview" {
		t.Errorf("Overview = %q", res.Roadmap.Overview)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("generator called %d times, want 1", len(gen.prompts))
	}
}

func TestFetch_StripsFences(t *testing.T) {
	for name, wrap := range map[string]string{
		"json fence":  "```json\n%s\n```",
		"plain fence": "```\n%s\n```",
		"padded":      "  \n%s\n\n",
	} {
		t.Run(name, func(t *testing.T) {
			gen := &mockGenerator{text: fmt.Sprintf(wrap, remoteJSON(t, nil))}
			res := NewFetcher(gen).Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})
			if res.Source != SourceRemote {
				t.Errorf("Source = %q (reason %q), want remote", res.Source, res.Reason)
			}
		})
	}
}

func TestFetch_MissingIDFilled(t *testing.T) {
	gen := &mockGenerator{text: remoteJSON(t, func(doc map[string]any) { delete(doc, "id") })}
	res := NewFetcher(gen).Fetch(context.Background(), "data-scientist", "Data Scientist", profile.Profile{})
	if res.Source != SourceRemote {
		t.Fatalf("Source = %q (reason %q)", res.Source, res.Reason)
	}
	if res.Roadmap.ID != "data-scientist" {
		t.Errorf("ID = %q, want data-scientist", res.Roadmap.ID)
	}
}

func TestFetch_Fallback(t *testing.T) {
	tests := []struct {
		name       string
		gen        *mockGenerator
		wantReason string
	}{
		{"transport error", &mockGenerator{err: errors.New("connection refused")}, ReasonTransport},
		{"status error", &mockGenerator{err: &gemini.StatusError{Status: 503}}, ReasonStatus},
		{"no content", &mockGenerator{err: gemini.ErrNoContent}, ReasonNoContent},
		{"not json", &mockGenerator{text: "Here is your roadmap!"}, ReasonMalformed},
		{"truncated json", &mockGenerator{text: `{"title": "x", "stages": [`}, ReasonMalformed},
		{"two stages", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			doc["stages"] = doc["stages"].([]any)[:2]
		})}, ReasonSchema},
		{"empty stage list", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			stageAt(doc, 1)["skills"] = []any{}
		})}, ReasonSchema},
		{"missing stage field", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			delete(stageAt(doc, 2), "networking")
		})}, ReasonSchema},
		{"empty title", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			doc["title"] = ""
		})}, ReasonSchema},
		{"missing companies", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			delete(doc, "keyCompanies")
		})}, ReasonSchema},
		{"repeated stage id", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			stageAt(doc, 1)["id"] = StageEntry
		})}, ReasonSchema},
		{"unknown stage id", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			stageAt(doc, 0)["id"] = "a"
		})}, ReasonSchema},
		{"stages out of order", &mockGenerator{text: remoteJSON(t, func(doc map[string]any) {
			stages := doc["stages"].([]any)
			stages[0], stages[2] = stages[2], stages[0]
		})}, ReasonSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.gen)
			res := f.Fetch(context.Background(), "product-manager", "Product Manager", profile.Profile{})
			if res.Source != SourceFallback {
				t.Fatalf("Source = %q, want fallback", res.Source)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.wantReason)
			}
			want := DefaultTemplates().Generate("product-manager", "Product Manager", profile.Profile{})
			if res.Roadmap.ID != want.ID || res.Roadmap.Overview != want.Overview {
				t.Errorf("fallback roadmap is not the product-manager template: id=%q", res.Roadmap.ID)
			}
			checkComplete(t, res.Roadmap)
		})
	}
}

func TestFetch_FallbackUnknownCareerUsesGeneric(t *testing.T) {
	f := NewFetcher(&mockGenerator{err: errors.New("down")})
	r := f.Roadmap(context.Background(), "astronaut", "Astronaut", profile.Profile{})
	if r.ID != GenericID {
		t.Errorf("ID = %q, want %q", r.ID, GenericID)
	}
	if r.Title != "Astronaut" {
		t.Errorf("Title = %q", r.Title)
	}
}

func TestFetch_SchemaValidationDisabled(t *testing.T) {
	text := remoteJSON(t, func(doc map[string]any) {
		stageAt(doc, 0)["skills"] = []any{}
		delete(doc, "keyCompanies")
	})

	res := NewFetcher(&mockGenerator{text: text}, WithSchemaValidation(false)).
		Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})
	if res.Source != SourceRemote {
		t.Errorf("Source = %q (reason %q), want remote with validation disabled", res.Source, res.Reason)
	}

	twoStages := remoteJSON(t, func(doc map[string]any) { doc["stages"] = doc["stages"].([]any)[:2] })
	res = NewFetcher(&mockGenerator{text: twoStages}, WithSchemaValidation(false)).
		Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})
	if res.Source != SourceFallback || res.Reason != ReasonSchema {
		t.Errorf("two stages without validation: source=%q reason=%q", res.Source, res.Reason)
	}
}

func TestFetch_Disabled(t *testing.T) {
	res := NewFetcher(nil).Fetch(context.Background(), "ux-designer", "UX Designer", profile.Profile{})
	if res.Source != SourceFallback || res.Reason != ReasonDisabled {
		t.Errorf("source=%q reason=%q, want fallback/disabled", res.Source, res.Reason)
	}
	if res.Roadmap.ID != "ux-designer" {
		t.Errorf("ID = %q", res.Roadmap.ID)
	}
}

func TestFetch_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := NewFetcher(&mockGenerator{block: true}).Fetch(ctx, "software-engineer", "Software Engineer", profile.Profile{})
	if res.Source != SourceFallback || res.Reason != ReasonTransport {
		t.Errorf("source=%q reason=%q, want fallback/transport", res.Source, res.Reason)
	}
}

func TestFetch_GeminiServer(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSource string
		wantReason string
	}{
		{
			name:       "ok",
			status:     http.StatusOK,
			body:       "",
			wantSource: SourceRemote,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			body:       `{"error":{"code":500}}`,
			wantSource: SourceFallback,
			wantReason: ReasonStatus,
		},
		{
			name:       "no candidates",
			status:     http.StatusOK,
			body:       `{"candidates":[]}`,
			wantSource: SourceFallback,
			wantReason: ReasonNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				text, _ := json.Marshal("```json\n" + remoteJSON(t, nil) + "\n```")
				body = fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%s}]}}]}`, text)
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			f := NewFetcher(gemini.NewClient("k", gemini.WithBaseURL(srv.URL)))
			res := f.Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})
			if res.Source != tt.wantSource || res.Reason != tt.wantReason {
				t.Errorf("source=%q reason=%q, want %q/%q", res.Source, res.Reason, tt.wantSource, tt.wantReason)
			}
		})
	}
}

func TestFetch_Metrics(t *testing.T) {
	counter := metrics.RoadmapFetches.WithLabelValues(SourceFallback, ReasonTransport)
	before := testutil.ToFloat64(counter)

	NewFetcher(&mockGenerator{err: errors.New("down")}).
		Fetch(context.Background(), "software-engineer", "Software Engineer", profile.Profile{})

	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("fallback counter = %v, want %v", got, before+1)
	}
}

func TestPrompt(t *testing.T) {
	p := profile.Profile{
		Interests:      []string{profile.InterestTechnology},
		EducationLevel: profile.LevelUndergraduate,
	}
	got := Prompt("Data Scientist", p)

	for _, want := range []string{
		`Generate a detailed career roadmap for the role "Data Scientist"`,
		`"interests":["Technology & Computers"]`,
		`"educationLevel":"undergraduate"`,
		`"subjects":[]`,
		"Return JSON format matching the CareerRoadmap interface.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestParse(t *testing.T) {
	r, err := Parse(remoteJSON(t, nil), "x", true)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.ID != "software-engineer" {
		t.Errorf("ID = %q, want payload id kept", r.ID)
	}

	_, err = Parse(`[1, 2, 3]`, "x", true)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("array payload: error = %v, want ErrSchema", err)
	}

	dup := remoteJSON(t, func(doc map[string]any) {
		for i := range 3 {
			stageAt(doc, i)["id"] = "a"
		}
	})
	_, err = Parse(dup, "x", false)
	if !errors.Is(err, ErrSchema) {
		t.Errorf("repeated stage ids without validation: error = %v, want ErrSchema", err)
	}

	_, err = Parse(`{"title": 5, "stages": [{}, {}, {}]}`, "x", false)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("wrong types without validation: error = %v, want ErrMalformed", err)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{}\n```", "{}"},
		{"```\n{}\n```", "{}"},
		{"{}", "{}"},
		{"  {}  ", "{}"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
