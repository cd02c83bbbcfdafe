package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would overwrite a record that may only
// be written once.
var ErrConflict = errors.New("conflict")

// Roadmap slot states. A career without a row is idle.
const (
	StatusGenerating = "generating"
	StatusReady      = "ready"
)

type Session struct {
	ID                  string
	CreatedAt           time.Time
	ProfileJSON         string
	RecommendationsJSON string // JSON array stored as text
}

type RoadmapRecord struct {
	SessionID   string
	CareerID    string
	CareerTitle string
	Status      string // "generating", "ready"
	Source      string
	Reason      string
	RoadmapJSON string // empty until ready
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
