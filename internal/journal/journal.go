// Package journal records every import applied to a save in a SQLite
// database so that a run can be reviewed or rolled back later.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/pkdex/core/errors"
	"github.com/FocuswithJustin/pkdex/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS imports (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	at            INTEGER NOT NULL,
	save_path     TEXT NOT NULL,
	game          TEXT NOT NULL,
	species       INTEGER NOT NULL,
	form          INTEGER NOT NULL,
	shiny         INTEGER NOT NULL,
	gender        INTEGER NOT NULL,
	language      INTEGER NOT NULL,
	native        INTEGER NOT NULL,
	before_sha256 TEXT NOT NULL,
	after_sha256  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS imports_save_at ON imports (save_path, at);
`

const columns = `id, run_id, at, save_path, game, species, form, shiny, gender, language, native, before_sha256, after_sha256`

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Entry is one imported specimen.
type Entry struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	At           time.Time `json:"at"`
	SavePath     string    `json:"save_path"`
	Game         string    `json:"game"`
	Species      int       `json:"species"`
	Form         int       `json:"form"`
	Shiny        bool      `json:"shiny"`
	Gender       int       `json:"gender"`
	Language     int       `json:"language"`
	Native       bool      `json:"native"`
	BeforeSHA256 string    `json:"before_sha256"`
	AfterSHA256  string    `json:"after_sha256"`
}

// Journal is an open import journal.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.NewIO("create directory", filepath.Dir(path), err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// OpenReadOnly opens an existing journal for queries. A journal that was
// never created is reported as not found.
func OpenReadOnly(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("journal", path)
		}
		return nil, errors.NewIO("stat", path, err)
	}
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// NewRunID returns an identifier grouping the entries of one invocation.
func NewRunID() string {
	return uuid.New().String()
}

// Record stores e, assigning its ID and timestamp. A missing RunID is
// replaced by a fresh one.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.ID = uuid.New().String()
	e.At = now()
	if e.RunID == "" {
		e.RunID = NewRunID()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO imports (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RunID, e.At.UnixNano(), e.SavePath, e.Game,
		e.Species, e.Form, e.Shiny, e.Gender, e.Language, e.Native,
		e.BeforeSHA256, e.AfterSHA256,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record import: %w", err)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A limit of 0 or less
// returns every entry.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+columns+` FROM imports ORDER BY at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with the given ID.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+columns+` FROM imports WHERE id = ?`, id)
	e, err := scan(row)
	if err == sql.ErrNoRows {
		return Entry{}, errors.NewNotFound("import", id)
	}
	return e, err
}

// Run returns the entries of one run in the order they were applied.
func (j *Journal) Run(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+columns+` FROM imports WHERE run_id = ? ORDER BY at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewNotFound("run", runID)
	}
	return entries, nil
}

// Latest returns the most recent entry recorded against savePath.
func (j *Journal) Latest(ctx context.Context, savePath string) (Entry, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM imports WHERE save_path = ? ORDER BY at DESC, rowid DESC LIMIT 1`, savePath)
	e, err := scan(row)
	if err == sql.ErrNoRows {
		return Entry{}, errors.NewNotFound("import for save", savePath)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Entry, error) {
	var (
		e  Entry
		at int64
	)
	err := s.Scan(&e.ID, &e.RunID, &at, &e.SavePath, &e.Game,
		&e.Species, &e.Form, &e.Shiny, &e.Gender, &e.Language, &e.Native,
		&e.BeforeSHA256, &e.AfterSHA256)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan import: %w", err)
	}
	e.At = time.Unix(0, at).UTC()
	return e, nil
}
