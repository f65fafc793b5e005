package settings

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MathNerdzRule/dietary-menu-advisor/internal/common/errors"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db, "advisor:"), mock
}

func TestPostgresStoreGet(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(mock sqlmock.Sqlmock)
		wantValue string
		wantFound bool
		wantErr   bool
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectPreference)).
					WithArgs("advisor:restrictions").
					WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"vegan":true}`))
			},
			wantValue: `{"vegan":true}`,
			wantFound: true,
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectPreference)).
					WithArgs("advisor:restrictions").
					WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "query error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(selectPreference)).
					WithArgs("advisor:restrictions").
					WillReturnError(fmt.Errorf("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			value, found, err := store.Get(context.Background(), KeyRestrictions)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodePreferencesStorageFailed, errors.CodeOf(err))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantValue, value)
			assert.Equal(t, tt.wantFound, found)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStoreSetUpserts(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertPreference)).
		WithArgs("advisor:favorites", "[]").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(context.Background(), KeyFavorites, "[]"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSetError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(upsertPreference)).
		WithArgs("advisor:favorites", "[]").
		WillReturnError(fmt.Errorf("disk full"))

	err := store.Set(context.Background(), KeyFavorites, "[]")
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.True(t, stdErr.Retryable)
}

func TestPostgresStoreEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS advisor_preferences")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
