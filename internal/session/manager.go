// Package session keeps a student's recommendations and the roadmaps
// generated for them. Roadmap generation runs in the background, one
// outstanding call per career, and each career's slot is written once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kalambet/careerpath/internal/catalog"
	"github.com/kalambet/careerpath/internal/matching"
	"github.com/kalambet/careerpath/internal/metrics"
	"github.com/kalambet/careerpath/internal/profile"
	"github.com/kalambet/careerpath/internal/roadmap"
	"github.com/kalambet/careerpath/internal/storage"
)

// Roadmap slot states.
const (
	StatusIdle       = "idle"
	StatusGenerating = storage.StatusGenerating
	StatusReady      = storage.StatusReady
)

// DefaultMaxConcurrent bounds simultaneous remote fetches.
const DefaultMaxConcurrent = 3

var (
	ErrNotFound      = errors.New("session not found")
	ErrUnknownCareer = errors.New("unknown career")
	ErrNotReady      = errors.New("roadmap not ready")
	ErrUnknownItem   = errors.New("unknown roadmap item")
)

// Store is the persistence the Manager needs. Implemented by storage.Store.
type Store interface {
	CreateSession(sess storage.Session) error
	GetSession(id string) (storage.Session, error)
	DeleteSession(id string) error
	ClaimRoadmap(sessionID, careerID, careerTitle string) (bool, error)
	CompleteRoadmap(rec storage.RoadmapRecord) error
	ReleaseRoadmap(sessionID, careerID string) error
	GetRoadmap(sessionID, careerID string) (storage.RoadmapRecord, error)
	ListRoadmaps(sessionID string) ([]storage.RoadmapRecord, error)
	SetItem(sessionID, careerID, itemID string, done bool) error
	CompletedItems(sessionID, careerID string) (map[string]bool, error)
}

// Fetcher produces roadmaps. Implemented by roadmap.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, careerID, title string, p profile.Profile) roadmap.Result
}

// Slot is the state of one career's roadmap within a session.
type Slot struct {
	CareerID string `json:"careerId"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Source   string `json:"source,omitempty"`
}

// Session is the user-facing view of a stored session.
type Session struct {
	ID              string                  `json:"id"`
	CreatedAt       time.Time               `json:"createdAt"`
	Profile         profile.Profile         `json:"profile"`
	Summary         profile.Summary         `json:"summary"`
	Recommendations []matching.ScoredCareer `json:"recommendations"`
	Roadmaps        []Slot                  `json:"roadmaps"`
}

// RoadmapView is a slot with its roadmap and stage progress once ready.
type RoadmapView struct {
	Slot
	Reason   string           `json:"reason,omitempty"`
	Roadmap  *roadmap.Roadmap `json:"roadmap,omitempty"`
	Progress map[string]int   `json:"progress,omitempty"`
}

// Manager coordinates scoring, persistence, and background generation.
type Manager struct {
	store   Store
	fetcher Fetcher
	catalog *catalog.Catalog
	limit   *semaphore.Weighted
	now     func() time.Time
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithCatalog replaces the built-in career catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithMaxConcurrent bounds simultaneous fetches. Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewManager creates a Manager. Call Close to stop in-flight generation.
func NewManager(store Store, fetcher Fetcher, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:   store,
		fetcher: fetcher,
		catalog: catalog.Default(),
		limit:   semaphore.NewWeighted(DefaultMaxConcurrent),
		now:     time.Now,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the catalog used for scoring.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Recommend scores a profile without storing anything.
func (m *Manager) Recommend(p profile.Profile) []matching.ScoredCareer {
	metrics.Recommendations.Inc()
	return matching.Score(p, m.catalog)
}

// Start scores p, stores a new session, and starts roadmap generation for
// every recommended career.
func (m *Manager) Start(p profile.Profile) (Session, error) {
	recs := m.Recommend(p)
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return Session{}, fmt.Errorf("marshaling recommendations: %w", err)
	}

	sess := storage.Session{
		ID:                  uuid.New().String(),
		CreatedAt:           m.now().UTC().Truncate(time.Second),
		ProfileJSON:         p.JSON(),
		RecommendationsJSON: string(recsJSON),
	}
	if err := m.store.CreateSession(sess); err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	m.logger.Info("session started", "session", sess.ID, "careers", len(recs))

	for _, rec := range recs {
		if _, err := m.start(sess.ID, rec.ID, rec.Title, p); err != nil {
			return Session{}, err
		}
	}
	return m.Get(sess.ID)
}

// Get returns a session with the status of each roadmap slot.
func (m *Manager) Get(sessionID string) (Session, error) {
	stored, p, err := m.load(sessionID)
	if err != nil {
		return Session{}, err
	}

	var recs []matching.ScoredCareer
	if err := json.Unmarshal([]byte(stored.RecommendationsJSON), &recs); err != nil {
		return Session{}, fmt.Errorf("decoding recommendations: %w", err)
	}

	records, err := m.store.ListRoadmaps(sessionID)
	if err != nil {
		return Session{}, fmt.Errorf("listing roadmaps: %w", err)
	}
	byCareer := make(map[string]storage.RoadmapRecord, len(records))
	for _, r := range records {
		byCareer[r.CareerID] = r
	}

	slots := make([]Slot, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		slots = append(slots, slotFor(rec.ID, rec.Title, byCareer))
		seen[rec.ID] = true
	}
	for _, r := range records {
		if !seen[r.CareerID] {
			slots = append(slots, slotFor(r.CareerID, r.CareerTitle, byCareer))
		}
	}

	return Session{
		ID:              stored.ID,
		CreatedAt:       stored.CreatedAt,
		Profile:         p,
		Summary:         p.Summarize(),
		Recommendations: recs,
		Roadmaps:        slots,
	}, nil
}

func slotFor(careerID, title string, records map[string]storage.RoadmapRecord) Slot {
	r, ok := records[careerID]
	if !ok {
		return Slot{CareerID: careerID, Title: title, Status: StatusIdle}
	}
	return Slot{CareerID: careerID, Title: title, Status: r.Status, Source: r.Source}
}

// Delete removes a session. Generation still in flight for it is discarded.
func (m *Manager) Delete(sessionID string) error {
	if err := m.store.DeleteSession(sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting session: %w", err)
	}
	m.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Generate starts roadmap generation for careerID if its slot is idle and
// returns the slot's state. Generating and ready slots are left untouched.
func (m *Manager) Generate(sessionID, careerID string) (RoadmapView, error) {
	_, p, err := m.load(sessionID)
	if err != nil {
		return RoadmapView{}, err
	}
	career, ok := m.catalog.Get(careerID)
	if !ok {
		return RoadmapView{}, fmt.Errorf("%w: %s", ErrUnknownCareer, careerID)
	}
	if _, err := m.start(sessionID, career.ID, career.Title, p); err != nil {
		return RoadmapView{}, err
	}
	return m.Roadmap(sessionID, careerID)
}

// start claims the slot and launches generation. It reports whether this
// call won the claim.
func (m *Manager) start(sessionID, careerID, title string, p profile.Profile) (bool, error) {
	claimed, err := m.store.ClaimRoadmap(sessionID, careerID, title)
	if err != nil {
		return false, fmt.Errorf("claiming roadmap %s: %w", careerID, err)
	}
	if !claimed {
		return false, nil
	}

	metrics.RoadmapsGenerating.Inc()
	m.group.Go(func() error {
		defer metrics.RoadmapsGenerating.Dec()
		m.generate(sessionID, careerID, title, p)
		return nil
	})
	return true, nil
}

func (m *Manager) generate(sessionID, careerID, title string, p profile.Profile) {
	log := m.logger.With("session", sessionID, "career", careerID)

	if err := m.limit.Acquire(m.ctx, 1); err != nil {
		log.Debug("generation cancelled before start", "error", err)
		m.release(sessionID, careerID)
		return
	}
	res := m.fetcher.Fetch(m.ctx, careerID, title, p)
	m.limit.Release(1)

	// Cancelled by Close: leave the slot idle so it can be generated again.
	if m.ctx.Err() != nil {
		log.Debug("generation cancelled", "error", m.ctx.Err())
		m.release(sessionID, careerID)
		return
	}

	data, err := json.Marshal(res.Roadmap)
	if err != nil {
		log.Error("marshaling roadmap", "error", err)
		m.release(sessionID, careerID)
		return
	}

	err = m.store.CompleteRoadmap(storage.RoadmapRecord{
		SessionID:   sessionID,
		CareerID:    careerID,
		Source:      res.Source,
		Reason:      res.Reason,
		RoadmapJSON: string(data),
	})
	switch {
	case err == nil:
		log.Info("roadmap ready", "source", res.Source)
	case errors.Is(err, storage.ErrNotFound):
		log.Debug("session gone before roadmap completed")
	default:
		log.Error("storing roadmap", "error", err)
		m.release(sessionID, careerID)
	}
}

func (m *Manager) release(sessionID, careerID string) {
	if err := m.store.ReleaseRoadmap(sessionID, careerID); err != nil {
		m.logger.Error("releasing roadmap slot", "session", sessionID, "career", careerID, "error", err)
	}
}

// Roadmap returns the slot for careerID with its roadmap and progress when
// ready. An idle slot is not an error.
func (m *Manager) Roadmap(sessionID, careerID string) (RoadmapView, error) {
	if _, _, err := m.load(sessionID); err != nil {
		return RoadmapView{}, err
	}

	rec, err := m.store.GetRoadmap(sessionID, careerID)
	if errors.Is(err, storage.ErrNotFound) {
		title := careerID
		if c, ok := m.catalog.Get(careerID); ok {
			title = c.Title
		}
		return RoadmapView{Slot: Slot{CareerID: careerID, Title: title, Status: StatusIdle}}, nil
	}
	if err != nil {
		return RoadmapView{}, fmt.Errorf("loading roadmap: %w", err)
	}

	view := RoadmapView{
		Slot:   Slot{CareerID: rec.CareerID, Title: rec.CareerTitle, Status: rec.Status, Source: rec.Source},
		Reason: rec.Reason,
	}
	if rec.Status != StatusReady {
		return view, nil
	}

	r, done, err := m.ready(rec)
	if err != nil {
		return RoadmapView{}, err
	}
	view.Roadmap = &r
	view.Progress = r.Progress(done)
	return view, nil
}

func (m *Manager) ready(rec storage.RoadmapRecord) (roadmap.Roadmap, map[string]bool, error) {
	var r roadmap.Roadmap
	if err := json.Unmarshal([]byte(rec.RoadmapJSON), &r); err != nil {
		return roadmap.Roadmap{}, nil, fmt.Errorf("decoding roadmap: %w", err)
	}
	done, err := m.store.CompletedItems(rec.SessionID, rec.CareerID)
	if err != nil {
		return roadmap.Roadmap{}, nil, fmt.Errorf("loading progress: %w", err)
	}
	return r, done, nil
}

// Progress returns per-stage completion for a ready roadmap.
func (m *Manager) Progress(sessionID, careerID string) (map[string]int, error) {
	view, err := m.Roadmap(sessionID, careerID)
	if err != nil {
		return nil, err
	}
	if view.Status != StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotReady, careerID, view.Status)
	}
	return view.Progress, nil
}

// SetItem marks a roadmap item done or not done and returns the updated
// per-stage completion.
func (m *Manager) SetItem(sessionID, careerID, itemID string, done bool) (map[string]int, error) {
	view, err := m.Roadmap(sessionID, careerID)
	if err != nil {
		return nil, err
	}
	if view.Status != StatusReady {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotReady, careerID, view.Status)
	}
	if !view.Roadmap.HasItem(itemID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	if err := m.store.SetItem(sessionID, careerID, itemID, done); err != nil {
		return nil, fmt.Errorf("saving progress: %w", err)
	}
	return m.Progress(sessionID, careerID)
}

// Wait blocks until every generation started so far has finished.
func (m *Manager) Wait() error {
	return m.group.Wait()
}

// Close cancels in-flight generation and waits for it to finish. Slots whose
// generation was cancelled return to idle.
func (m *Manager) Close() error {
	m.cancel()
	return m.group.Wait()
}

func (m *Manager) load(sessionID string) (storage.Session, profile.Profile, error) {
	stored, err := m.store.GetSession(sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return storage.Session{}, profile.Profile{}, fmt.Errorf("loading session: %w", err)
	}
	var p profile.Profile
	if err := json.Unmarshal([]byte(stored.ProfileJSON), &p); err != nil {
		return storage.Session{}, profile.Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return stored, p, nil
}
