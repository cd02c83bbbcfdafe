package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/careerpath/internal/catalog"
	"github.com/kalambet/careerpath/internal/matching"
	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/roadmap"
	"github.com/kalambet/careerpath/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// RoadmapFetcher produces a roadmap and reports where it came from.
// Implemented by roadmap.Fetcher.
type RoadmapFetcher interface {
	Fetch(ctx context.Context, careerID, title string, p profile.Profile) roadmap.Result
}

// Deps holds the dependencies of the HTTP API.
type Deps struct {
	Sessions *session.Manager
	Fetcher  RoadmapFetcher
}

// RecommendationsResponse is returned by POST /recommendations.
type RecommendationsResponse struct {
	Summary         profile.Summary         `json:"summary"`
	Recommendations []matching.ScoredCareer `json:"recommendations"`
}

// RoadmapRequest asks for a single roadmap outside any session.
// CareerTitle may be omitted for careers in the catalog.
type RoadmapRequest struct {
	CareerID    string          `json:"careerId"`
	CareerTitle string          `json:"careerTitle"`
	Profile     profile.Profile `json:"profile"`
}

// NewHandler returns the careerpath REST API.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/options", handleOptions)
	r.Get("/careers", handleCareers(deps))
	r.Post("/recommendations", handleRecommendations(deps))
	r.Post("/roadmaps", handleRoadmap(deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Get("/{id}", handleGetSession(deps))
		r.Delete("/{id}", handleDeleteSession(deps))
		r.Get("/{id}/roadmaps/{careerID}", handleGetSessionRoadmap(deps))
		r.Post("/{id}/roadmaps/{careerID}", handleGenerateSessionRoadmap(deps))
		r.Get("/{id}/roadmaps/{careerID}/progress", handleGetProgress(deps))
		r.Put("/{id}/roadmaps/{careerID}/items/{itemID}", handleSetItem(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profile.Options())
}

func handleCareers(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Sessions.Catalog().Careers())
	}
}

func handleRecommendations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p profile.Profile
		if !decodeBody(w, r, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, RecommendationsResponse{
			Summary:         p.Summarize(),
			Recommendations: deps.Sessions.Recommend(p),
		})
	}
}

func handleRoadmap(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RoadmapRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.CareerID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "careerId is required")
			return
		}
		if err := req.Profile.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid profile: %v", err)
			return
		}
		title, err := careerTitle(deps.Sessions.Catalog(), req.CareerID, req.CareerTitle)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		writeJSON(w, http.StatusOK, deps.Fetcher.Fetch(r.Context(), req.CareerID, title, req.Profile))
	}
}

// careerTitle resolves the display title for a roadmap request. An explicit
// title wins; otherwise the career must be in the catalog.
func careerTitle(c *catalog.Catalog, careerID, title string) (string, error) {
	if title != "" {
		return title, nil
	}
	if career, ok := c.Get(careerID); ok {
		return career.Title, nil
	}
	return "", fmt.Errorf("careerTitle is required for career %q outside the catalog", careerID)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
