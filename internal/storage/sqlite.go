package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryDir opens a database that lives only as long as the process.
const MemoryDir = ":memory:"

// Store wraps a SQLite database with methods for sessions, roadmap slots, and
// stage progress.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database.
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == MemoryDir || dataDir == "" {
		dsn = MemoryDir
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "careerpath.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection serializes writers and keeps an in-memory database
	// alive for the lifetime of the Store.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", field, err)
	}
	return t, nil
}

// --- Sessions ---

func (s *Store) CreateSession(sess Session) error {
	recs := sess.RecommendationsJSON
	if recs == "" {
		recs = "[]"
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, created_at, profile_json, recommendations_json)
		VALUES (?, ?, ?, ?)`,
		sess.ID, formatTime(sess.CreatedAt), sess.ProfileJSON, recs,
	)
	return err
}

func (s *Store) GetSession(id string) (Session, error) {
	var sess Session
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, profile_json, recommendations_json
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &createdAt, &sess.ProfileJSON, &sess.RecommendationsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if sess.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// CountSessions returns the number of stored sessions.
func (s *Store) CountSessions() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

// DeleteSession removes a session together with its roadmaps and progress.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec("DELETE FROM roadmaps WHERE session_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM roadmap_progress WHERE session_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Roadmaps ---

// ClaimRoadmap moves an idle slot to generating. It reports false when the
// slot was already generating or ready.
func (s *Store) ClaimRoadmap(sessionID, careerID, careerTitle string) (bool, error) {
	now := formatTime(time.Now())
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO roadmaps (session_id, career_id, career_title, status, created_at, updated_at)
		VALUES (?, ?, ?, 'generating', ?, ?)`,
		sessionID, careerID, careerTitle, now, now,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteRoadmap moves a generating slot to ready. Ready slots are never
// rewritten: completing one returns ErrConflict.
func (s *Store) CompleteRoadmap(rec RoadmapRecord) error {
	res, err := s.db.Exec(`
		UPDATE roadmaps SET status = 'ready', source = ?, reason = ?, roadmap_json = ?, updated_at = ?
		WHERE session_id = ? AND career_id = ? AND status = 'generating'`,
		rec.Source, rec.Reason, rec.RoadmapJSON, formatTime(time.Now()), rec.SessionID, rec.CareerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.GetRoadmap(rec.SessionID, rec.CareerID); err != nil {
		return err
	}
	return ErrConflict
}

// ReleaseRoadmap returns a generating slot to idle.
func (s *Store) ReleaseRoadmap(sessionID, careerID string) error {
	_, err := s.db.Exec(`DELETE FROM roadmaps WHERE session_id = ? AND career_id = ? AND status = 'generating'`,
		sessionID, careerID)
	return err
}

// ReleaseAbandoned returns every generating slot to idle. It is called at
// startup, when no generation can be in flight.
func (s *Store) ReleaseAbandoned() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM roadmaps WHERE status = 'generating'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const roadmapColumns = `session_id, career_id, career_title, status, source, reason, roadmap_json, created_at, updated_at`

func scanRoadmap(scan func(dest ...any) error) (RoadmapRecord, error) {
	var r RoadmapRecord
	var createdAt, updatedAt string
	if err := scan(&r.SessionID, &r.CareerID, &r.CareerTitle, &r.Status, &r.Source, &r.Reason,
		&r.RoadmapJSON, &createdAt, &updatedAt); err != nil {
		return RoadmapRecord{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return RoadmapRecord{}, err
	}
	if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return RoadmapRecord{}, err
	}
	return r, nil
}

// GetRoadmap returns the slot for a career. ErrNotFound means the slot is idle.
func (s *Store) GetRoadmap(sessionID, careerID string) (RoadmapRecord, error) {
	row := s.db.QueryRow(`SELECT `+roadmapColumns+` FROM roadmaps WHERE session_id = ? AND career_id = ?`,
		sessionID, careerID)
	r, err := scanRoadmap(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return RoadmapRecord{}, ErrNotFound
	}
	return r, err
}

// ListRoadmaps returns every non-idle slot of a session ordered by career id.
func (s *Store) ListRoadmaps(sessionID string) ([]RoadmapRecord, error) {
	rows, err := s.db.Query(`SELECT `+roadmapColumns+` FROM roadmaps WHERE session_id = ? ORDER BY career_id`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RoadmapRecord
	for rows.Next() {
		r, err := scanRoadmap(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Progress ---

// SetItem marks an item done or not done. Marking is idempotent.
func (s *Store) SetItem(sessionID, careerID, itemID string, done bool) error {
	if !done {
		_, err := s.db.Exec(`DELETE FROM roadmap_progress WHERE session_id = ? AND career_id = ? AND item_id = ?`,
			sessionID, careerID, itemID)
		return err
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO roadmap_progress (session_id, career_id, item_id, completed_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, careerID, itemID, formatTime(time.Now()),
	)
	return err
}

// CompletedItems returns the ids of items marked done for a career.
func (s *Store) CompletedItems(sessionID, careerID string) (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT item_id FROM roadmap_progress WHERE session_id = ? AND career_id = ?`,
		sessionID, careerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}
