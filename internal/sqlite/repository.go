// Package sqlite persists the CLI session between invocations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackmichael/connectify/internal/domain"
	_ "modernc.org/sqlite"
)

// sessionSlot is the primary key of the only session row. A client holds at
// most one session.
const sessionSlot = 1

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	user_id    TEXT NOT NULL,
	identity   TEXT NOT NULL,
	credential TEXT NOT NULL,
	saved_at   TIMESTAMP NOT NULL
)`

// Repository implements domain.SessionRepository using a SQLite file.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository opens (creating if needed) the SQLite database at path,
// verifies the connection and applies the schema. The caller should call
// Close when the repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveSession upserts the session row.
func (r *Repository) SaveSession(ctx context.Context, identity domain.Identity, credential string) error {
	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (slot, user_id, identity, credential, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			user_id = excluded.user_id,
			identity = excluded.identity,
			credential = excluded.credential,
			saved_at = excluded.saved_at`,
		sessionSlot, identity.ID, string(blob), credential, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session for %s: %w", identity.ID, err)
	}
	return nil
}

// LoadSession returns the stored session, if any.
func (r *Repository) LoadSession(ctx context.Context) (domain.Identity, string, bool, error) {
	var blob, credential string
	err := r.db.QueryRowContext(ctx,
		`SELECT identity, credential FROM sessions WHERE slot = ?`, sessionSlot,
	).Scan(&blob, &credential)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, "", false, nil
	}
	if err != nil {
		return domain.Identity{}, "", false, fmt.Errorf("query session: %w", err)
	}

	var identity domain.Identity
	if err := json.Unmarshal([]byte(blob), &identity); err != nil {
		return domain.Identity{}, "", false, fmt.Errorf("decode stored identity: %w", err)
	}
	return identity, credential, true, nil
}

// DeleteSession removes the session row.
func (r *Repository) DeleteSession(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE slot = ?`, sessionSlot); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SavedAt reports when the stored session was written. ok is false when no
// session is stored.
func (r *Repository) SavedAt(ctx context.Context) (time.Time, bool, error) {
	var savedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT saved_at FROM sessions WHERE slot = ?`, sessionSlot,
	).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query session time: %w", err)
	}
	return savedAt, true, nil
}
