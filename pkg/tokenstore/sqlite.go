package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStorage persists the credential in a single-row SQLite table.
type SQLiteStorage struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStorage opens (or creates) the token database.
func NewSQLiteStorage(dbPath string, logger zerolog.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping token database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS auth_token (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("token storage initialized")
	return &SQLiteStorage{
		db:     db,
		logger: logger.With().Str("component", "token_storage").Logger(),
	}, nil
}

func (s *SQLiteStorage) ReadToken(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM auth_token WHERE id = 1").Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return value, nil
}

func (s *SQLiteStorage) WriteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_token (id, value, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		token, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM auth_token WHERE id = 1"); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	return nil
}

// Ping verifies the database connection, for readiness checks.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
