package roadmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/careerpath/internal/gemini"
	"github.com/kalambet/careerpath/internal/metrics"
	"github.com/kalambet/careerpath/internal/profile"
)

// Roadmap sources.
const (
	SourceRemote   = metrics.SourceRemote
	SourceFallback = metrics.SourceFallback
)

// Fallback reasons.
const (
	ReasonDisabled  = "disabled"
	ReasonTransport = "transport"
	ReasonStatus    = "status"
	ReasonNoContent = "no_content"
	ReasonMalformed = "malformed"
	ReasonSchema    = "schema"
)

// RemoteGenerator produces text for a prompt. *gemini.Client implements it.
type RemoteGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of a fetch. Reason is empty for remote results.
type Result struct {
	Roadmap Roadmap `json:"roadmap"`
	Source  string  `json:"source"`
	Reason  string  `json:"reason,omitempty"`
}

// Fetcher asks the generative service for a roadmap and falls back to the
// template generators on any failure.
type Fetcher struct {
	gen       RemoteGenerator
	templates *Templates
	validate  bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTemplates replaces the built-in phrase banks.
func WithTemplates(t *Templates) FetcherOption {
	return func(f *Fetcher) { f.templates = t }
}

// WithSchemaValidation toggles JSON Schema validation of remote payloads.
func WithSchemaValidation(on bool) FetcherOption {
	return func(f *Fetcher) { f.validate = on }
}

// NewFetcher returns a fetcher backed by gen. A nil gen disables remote
// generation and every fetch is served from templates.
func NewFetcher(gen RemoteGenerator, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{gen: gen, validate: true}
	for _, opt := range opts {
		opt(f)
	}
	if f.templates == nil {
		f.templates = DefaultTemplates()
	}
	return f
}

// Templates returns the fallback generators.
func (f *Fetcher) Templates() *Templates { return f.templates }

// Prompt builds the generation request for a career title and profile.
func Prompt(title string, p profile.Profile) string {
	return fmt.Sprintf("Generate a detailed career roadmap for the role %q considering this user profile: %s. "+
		"Return JSON format matching the CareerRoadmap interface.", title, p.JSON())
}

// Fetch returns a roadmap and where it came from. It never fails.
func (f *Fetcher) Fetch(ctx context.Context, careerID, title string, p profile.Profile) Result {
	start := time.Now()

	res, err := f.remote(ctx, careerID, title, p)
	if err != nil {
		reason := reasonFor(err)
		if reason == ReasonDisabled {
			slog.Debug("remote generation disabled, using template", "career", careerID)
		} else {
			slog.Warn("roadmap fetch failed, using template", "career", careerID, "reason", reason, "error", err)
		}
		res = Result{
			Roadmap: f.templates.Generate(careerID, title, p),
			Source:  SourceFallback,
			Reason:  reason,
		}
	}

	metrics.RoadmapFetches.WithLabelValues(res.Source, res.Reason).Inc()
	metrics.RoadmapFetchDuration.WithLabelValues(res.Source).Observe(time.Since(start).Seconds())
	return res
}

// Roadmap is Fetch without the source annotation.
func (f *Fetcher) Roadmap(ctx context.Context, careerID, title string, p profile.Profile) Roadmap {
	return f.Fetch(ctx, careerID, title, p).Roadmap
}

var errDisabled = errors.New("remote generation disabled")

func (f *Fetcher) remote(ctx context.Context, careerID, title string, p profile.Profile) (Result, error) {
	if f.gen == nil {
		return Result{}, errDisabled
	}
	text, err := f.gen.GenerateContent(ctx, Prompt(title, p))
	if err != nil {
		return Result{}, err
	}
	r, err := Parse(text, careerID, f.validate)
	if err != nil {
		return Result{}, err
	}
	slog.Debug("roadmap generated remotely", "career", careerID, "stages", len(r.Stages))
	return Result{Roadmap: r, Source: SourceRemote}, nil
}

func reasonFor(err error) string {
	var se *gemini.StatusError
	switch {
	case errors.Is(err, errDisabled):
		return ReasonDisabled
	case errors.As(err, &se):
		return ReasonStatus
	case errors.Is(err, gemini.ErrNoContent):
		return ReasonNoContent
	case errors.Is(err, ErrSchema):
		return ReasonSchema
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	default:
		return ReasonTransport
	}
}
