package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/potzenhotz/sankash/internal/database"
)

// newTestDB migrates and opens a throwaway sqlite database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestAccount(t *testing.T, db *sql.DB) int64 {
	t.Helper()

	id, err := NewAccountRepo(db).Create(context.Background(), Account{
		Name: "Giro", Bank: "Deutsche Bank", Currency: "EUR", IsActive: true,
	})
	require.NoError(t, err)
	return id
}
