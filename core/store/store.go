// Package store persists generated results in sqlite.
// A result's raw text is append-only while generation runs and frozen after;
// the store enforces both rules.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/gaurav-prasanna/gtmkit/core"
)

// Store is a sqlite-backed core.ResultStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database file at path and brings its schema
// up to date. An empty path or ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path == "" || path == ":memory:" {
		return OpenMemory()
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return newStore(db)
}

// OpenMemory opens an in-memory database, mostly for tests and one-shot CLI runs.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if err := migrate(db, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// migrate applies every schema version newer than the one recorded in metadata.
func migrate(db *sql.DB, versions []string) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (id integer primary key, schemaVersion integer)`); err != nil {
		return fmt.Errorf("creating metadata table: %w", err)
	}

	var current int
	err := db.QueryRow(`SELECT schemaVersion FROM metadata WHERE id = 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for v := current; v < len(versions); v++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(versions[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying schema version %d: %w", v+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO metadata (id, schemaVersion) VALUES (1, ?)
			ON CONFLICT(id) DO UPDATE SET schemaVersion = excluded.schemaVersion`, v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new result. It assigns an ID and timestamps and fills in
// the default title. A second result for the same order fails with
// core.ErrResultExists.
func (s *Store) Create(ctx context.Context, r *core.Result) error {
	if r.OrderID == "" {
		return errors.New("creating result: empty order id")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Title == "" {
		r.Title = core.DefaultTitle
	}
	if r.Chunks == 0 {
		r.Chunks = 1
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, orderId, rawText, title, model, provider, finishReason, chunks, frozen, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.OrderID, r.RawText, r.Title, r.Model, r.Provider, r.FinishReason, r.Chunks, r.Frozen, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", r.OrderID, core.ErrResultExists)
	}
	if err != nil {
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// Get returns the result for an order, or core.ErrNotFound.
func (s *Store) Get(ctx context.Context, orderID string) (*core.Result, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, orderId, rawText, title, model, provider, finishReason, chunks, frozen, created, updated
		FROM results WHERE orderId = ?`, orderID)

	var r core.Result
	err := row.Scan(&r.ID, &r.OrderID, &r.RawText, &r.Title, &r.Model, &r.Provider,
		&r.FinishReason, &r.Chunks, &r.Frozen, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	return &r, nil
}

// AppendRaw appends a continuation chunk to an unfrozen result's raw text.
func (s *Store) AppendRaw(ctx context.Context, orderID string, chunk string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE results SET rawText = rawText || ?, chunks = chunks + 1, updated = ?
		WHERE orderId = ? AND NOT frozen`, chunk, s.now(), orderID)
	if err != nil {
		return fmt.Errorf("appending to result: %w", err)
	}
	return s.checkUpdated(ctx, res, orderID)
}

// Freeze marks a result complete. Its raw text never changes afterwards.
func (s *Store) Freeze(ctx context.Context, orderID string, finishReason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE results SET frozen = true, finishReason = ?, updated = ?
		WHERE orderId = ? AND NOT frozen`, finishReason, s.now(), orderID)
	if err != nil {
		return fmt.Errorf("freezing result: %w", err)
	}
	return s.checkUpdated(ctx, res, orderID)
}

// checkUpdated turns "no row changed" into core.ErrNotFound or core.ErrFrozen.
func (s *Store) checkUpdated(ctx context.Context, res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, orderID); err != nil {
		return err
	}
	return fmt.Errorf("order %s: %w", orderID, core.ErrFrozen)
}

// Recent returns the most recently updated results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, orderId, rawText, title, model, provider, finishReason, chunks, frozen, created, updated
		FROM results ORDER BY updated DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []core.Result
	for rows.Next() {
		var r core.Result
		err := rows.Scan(&r.ID, &r.OrderID, &r.RawText, &r.Title, &r.Model, &r.Provider,
			&r.FinishReason, &r.Chunks, &r.Frozen, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
