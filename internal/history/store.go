// Package history records generated prompts and LLM responses in SQLite so
// earlier summaries can be retrieved after the single-slot cache moved on.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("history entry not found")

// Entry is one processed request.
type Entry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	VideoID   string    `json:"videoId"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	Method    string    `json:"transcriptionMethod"`
	Model     string    `json:"whisperModel,omitempty"`
	Runner    string    `json:"llmRunner,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a SQLite-backed history.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		video_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		channel TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		runner TEXT NOT NULL DEFAULT '',
		prompt TEXT NOT NULL,
		response TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores e, assigning ID and CreatedAt when empty, and returns the ID.
func (s *Store) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (id, url, video_id, title, channel, method, model, runner, prompt, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.URL, e.VideoID, e.Title, e.Channel, e.Method, e.Model, e.Runner, e.Prompt, e.Response, e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert history entry: %w", err)
	}
	return e.ID, nil
}

// List returns up to limit entries, newest first, without prompt and response bodies.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, video_id, title, channel, method, model, runner, created_at
		 FROM history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.URL, &e.VideoID, &e.Title, &e.Channel, &e.Method, &e.Model, &e.Runner, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one full entry.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, video_id, title, channel, method, model, runner, prompt, response, created_at
		 FROM history WHERE id = ?`, id).
		Scan(&e.ID, &e.URL, &e.VideoID, &e.Title, &e.Channel, &e.Method, &e.Model, &e.Runner, &e.Prompt, &e.Response, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
