// Package store persists segments and cached analyses in a SQLite database.
//
// Segments are kept per track, where a track is the audio file they tag.
// Analyses are cached per audio path and invalidated when the file's
// modification time changes.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/daviddao/cascadance/internal/timeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS segments (
	id       TEXT PRIMARY KEY,
	track    TEXT NOT NULL,
	position INTEGER NOT NULL,
	start    REAL NOT NULL,
	end_time REAL NOT NULL,
	tag      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_segments_track ON segments(track, position);

CREATE TABLE IF NOT EXISTS analyses (
	path     TEXT PRIMARY KEY,
	mtime    INTEGER NOT NULL,
	duration REAL NOT NULL,
	tracks   TEXT NOT NULL,
	saved_at INTEGER NOT NULL
);
`

// Store is a handle on the project database.
type Store struct {
	db   *sql.DB
	path string
}

// TrackInfo summarises the segments saved for one track.
type TrackInfo struct {
	Track    string
	Segments int
}

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Path is the database file path.
func (s *Store) Path() string { return s.path }

// SaveSegments replaces the stored segments of track with segs, keeping
// their order. Segments without an ID are given one.
func (s *Store) SaveSegments(track string, segs []timeline.Segment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM segments WHERE track = ?`, track); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO segments (id, track, position, start, end_time, tag) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range segs {
		id := seg.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.Exec(id, track, i, seg.Start, seg.End, seg.Tag); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSegments returns the segments of track in saved order.
func (s *Store) LoadSegments(track string) ([]timeline.Segment, error) {
	rows, err := s.db.Query(`SELECT id, start, end_time, tag FROM segments WHERE track = ? ORDER BY position`, track)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []timeline.Segment
	for rows.Next() {
		var seg timeline.Segment
		if err := rows.Scan(&seg.ID, &seg.Start, &seg.End, &seg.Tag); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

// ListTracks returns every track with saved segments.
func (s *Store) ListTracks() ([]TrackInfo, error) {
	rows, err := s.db.Query(`SELECT track, COUNT(*) FROM segments GROUP BY track ORDER BY track`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var out []TrackInfo
	for rows.Next() {
		var ti TrackInfo
		if err := rows.Scan(&ti.Track, &ti.Segments); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

// CachedAnalysis returns the analysis stored for path if it was computed
// for a file with modification time mtime.
func (s *Store) CachedAnalysis(path string, mtime time.Time) (timeline.Analysis, bool, error) {
	var (
		stored   int64
		duration float64
		raw      string
	)
	err := s.db.QueryRow(`SELECT mtime, duration, tracks FROM analyses WHERE path = ?`, path).
		Scan(&stored, &duration, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return timeline.Analysis{}, false, nil
	}
	if err != nil {
		return timeline.Analysis{}, false, fmt.Errorf("query analysis: %w", err)
	}
	if stored != mtime.UnixNano() {
		return timeline.Analysis{}, false, nil
	}
	a := timeline.Analysis{Duration: duration}
	if err := json.Unmarshal([]byte(raw), &a.Tracks); err != nil {
		return timeline.Analysis{}, false, fmt.Errorf("decode cached tracks: %w", err)
	}
	if err := a.Tracks.Validate(); err != nil {
		return timeline.Analysis{}, false, nil
	}
	return a, true, nil
}

// CacheAnalysis stores a for path, replacing any earlier entry.
func (s *Store) CacheAnalysis(path string, mtime time.Time, a timeline.Analysis) error {
	raw, err := json.Marshal(a.Tracks)
	if err != nil {
		return fmt.Errorf("encode tracks: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO analyses (path, mtime, duration, tracks, saved_at)
		VALUES (?, ?, ?, ?, ?)`,
		path, mtime.UnixNano(), a.Duration, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache analysis: %w", err)
	}
	return nil
}
