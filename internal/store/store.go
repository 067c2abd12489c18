package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/devZenta/SafeSend/internal/models"
)

var createTableSQL = `
CREATE TABLE IF NOT EXISTS tokens (
token TEXT NOT NULL PRIMARY KEY,
pattern TEXT NOT NULL,
status TEXT NOT NULL
);`

// Store is the durable token table. Set is a per-key atomic upsert, so
// concurrent writers to different tokens never clobber each other; a
// same-key race is last-writer-wins.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// Open connects to the backing database and creates the token table if
// needed. driver is "sqlite3" (embedded, the default) or "postgres".
func Open(driver, dsn string, log *slog.Logger) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect token store: %w", err)
	}
	if driver == "sqlite3" {
		// one connection serializes writers and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create token table: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get looks up one record. A missing, corrupt or unreadable row reads as
// absent; Get never fails.
func (s *Store) Get(ctx context.Context, token string) (models.Record, bool) {
	var rec models.Record
	err := s.db.GetContext(ctx, &rec,
		"SELECT token, pattern, status FROM tokens WHERE token=$1", token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Error("token store read failed, treating as absent",
				"token", token, "err", err)
		}
		return models.Record{}, false
	}
	return rec, true
}

// Set creates or overwrites the record for token. A persistence failure
// is returned to the caller, never swallowed.
func (s *Store) Set(ctx context.Context, token string, rec models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (token, pattern, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET
		  pattern = excluded.pattern,
		  status  = excluded.status`,
		token, rec.Pattern, rec.Status)
	if err != nil {
		return fmt.Errorf("persist token %s: %w", token, err)
	}
	return nil
}
