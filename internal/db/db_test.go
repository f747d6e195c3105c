package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "0001_init.up.sql")
	assert.Contains(t, names, "0001_init.down.sql")
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
}

func TestMigrateDown_RejectsNonPositiveSteps(t *testing.T) {
	require.Error(t, MigrateDown(nil, 0))
}

func TestMigrate_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	conn, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, MigrateUp(conn))
	require.NoError(t, MigrateUp(conn))
	version, dirty, err := Version(conn)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	conn, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, MigrateUp(conn))

	boom := errors.New("boom")
	err = WithTx(context.Background(), conn, nil, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO municipalities (code, name) VALUES ('tx-test', 'Tx')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM municipalities WHERE code = 'tx-test'`).Scan(&count))
	assert.Equal(t, 0, count)
}
