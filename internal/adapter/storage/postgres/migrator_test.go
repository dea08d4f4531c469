package postgres

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"0002_runs.sql":     {Data: []byte("CREATE TABLE reconciliation_runs (id UUID)")},
		"0001_accounts.sql": {Data: []byte("CREATE TABLE accounts (id UUID)")},
		"README.md":         {Data: []byte("not a migration")},
	}
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	// 0001 already applied.
	mock.ExpectQuery("SELECT 1 FROM schema_migrations").
		WithArgs("0001_accounts.sql").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	mock.ExpectQuery("SELECT 1 FROM schema_migrations").
		WithArgs("0002_runs.sql").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE reconciliation_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("0002_runs.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := Migrate(context.Background(), mock, testMigrations(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_runs.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_NothingPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for _, v := range []string{"0001_accounts.sql", "0002_runs.sql"} {
		mock.ExpectQuery("SELECT 1 FROM schema_migrations").
			WithArgs(v).
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	}

	applied, err := Migrate(context.Background(), mock, testMigrations(), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT 1 FROM schema_migrations").
		WithArgs("0001_accounts.sql").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE accounts").
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := Migrate(context.Background(), mock, testMigrations(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_accounts.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SchemaTableError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("permission denied"))

	_, err = Migrate(context.Background(), mock, testMigrations(), zerolog.Nop())
	assert.ErrorContains(t, err, "schema_migrations")
}
