// Package history keeps a SQLite log of every entry attempt.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Entry is one attempt to enter a giveaway.
type Entry struct {
	ID          int64
	RunID       string
	Code        string
	Title       string
	RelativeURL string
	Points      int
	Success     bool
	Message     string
	AttemptedAt time.Time
}

// Totals summarizes the successful entries in the log.
type Totals struct {
	Entered     int
	PointsSpent int
	Runs        int
}

// Store is the entry log database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// dsn adds WAL and busy-timeout settings in each driver's syntax.
func dsn(driver, path string) (string, error) {
	switch driver {
	case "sqlite3":
		return path + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case "sqlite":
		return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported history driver: %s", driver)
	}
}

// Open creates or opens the entry log at path using driver ("sqlite3" or "sqlite").
func Open(driver, path string) (*Store, error) {
	source, err := dsn(driver, path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		code TEXT NOT NULL,
		title TEXT NOT NULL,
		relative_url TEXT NOT NULL,
		points INTEGER NOT NULL,
		success INTEGER NOT NULL,
		message TEXT,
		attempted_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id);
	CREATE INDEX IF NOT EXISTS idx_entries_attempted ON entries(attempted_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends e to the log and returns its row ID. A zero AttemptedAt
// is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.AttemptedAt.IsZero() {
		e.AttemptedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (run_id, code, title, relative_url, points, success, message, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Code, e.Title, e.RelativeURL, e.Points, boolToInt(e.Success), e.Message, e.AttemptedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record entry: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, code, title, relative_url, points, success, COALESCE(message, ''), attempted_at
		 FROM entries ORDER BY attempted_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			success int
			millis  int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Code, &e.Title, &e.RelativeURL, &e.Points, &success, &e.Message, &millis); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Success = success != 0
		e.AttemptedAt = time.UnixMilli(millis)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Totals counts successful entries, the points they cost, and distinct runs.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(success), 0),
		        COALESCE(SUM(CASE WHEN success = 1 THEN points ELSE 0 END), 0),
		        COUNT(DISTINCT run_id)
		 FROM entries`).Scan(&t.Entered, &t.PointsSpent, &t.Runs)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to compute totals: %w", err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
