package settings

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

const (
	createPreferencesTable = `CREATE TABLE IF NOT EXISTS advisor_preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

	selectPreference = `SELECT value FROM advisor_preferences WHERE key = $1`

	upsertPreference = `INSERT INTO advisor_preferences (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
)

// PostgresStore keeps records in the advisor_preferences table.
type PostgresStore struct {
	db     *sql.DB
	prefix string
}

func NewPostgresStore(db *sql.DB, prefix string) *PostgresStore {
	return &PostgresStore{db: db, prefix: prefix}
}

// EnsureSchema creates the preferences table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createPreferencesTable); err != nil {
		return errors.NewPreferencesStorageError("schema", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectPreference, s.prefix+key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewPreferencesStorageError(key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertPreference, s.prefix+key, value); err != nil {
		return errors.NewPreferencesStorageError(key, err)
	}
	return nil
}
