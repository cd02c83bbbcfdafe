package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/session"
)

// ItemRequest marks a roadmap item done or not done.
type ItemRequest struct {
	Done *bool `json:"done"`
}

// ProgressResponse carries per-stage completion percentages keyed by stage id.
type ProgressResponse struct {
	Progress map[string]int `json:"progress"`
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p profile.Profile
		if !decodeBody(w, r, &p) {
			return
		}
		if err := p.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid profile: %v", err)
			return
		}

		sess, err := deps.Sessions.Start(p)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
			sessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleGetSessionRoadmap(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Sessions.Roadmap(chi.URLParam(r, "id"), chi.URLParam(r, "careerID"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleGenerateSessionRoadmap(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Sessions.Generate(chi.URLParam(r, "id"), chi.URLParam(r, "careerID"))
		if err != nil {
			sessionError(w, err)
			return
		}
		code := http.StatusAccepted
		if view.Status == session.StatusReady {
			code = http.StatusOK
		}
		writeJSON(w, code, view)
	}
}

func handleGetProgress(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress, err := deps.Sessions.Progress(chi.URLParam(r, "id"), chi.URLParam(r, "careerID"))
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ProgressResponse{Progress: progress})
	}
}

func handleSetItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ItemRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Done == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "done is required")
			return
		}

		// Item ids embed free text, so clients escape them; chi routes on the raw path.
		itemID := chi.URLParam(r, "itemID")
		if unescaped, err := url.PathUnescape(itemID); err == nil {
			itemID = unescaped
		}

		progress, err := deps.Sessions.SetItem(chi.URLParam(r, "id"), chi.URLParam(r, "careerID"), itemID, *req.Done)
		if err != nil {
			sessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ProgressResponse{Progress: progress})
	}
}

func sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrUnknownCareer),
		errors.Is(err, session.ErrUnknownItem):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, session.ErrNotReady):
		httpError(w, http.StatusConflict, "conflict_error", "%v", err)
	default:
		slog.Error("session request failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
