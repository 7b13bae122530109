package backend_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/sqlite"
)

type trackRow struct {
	ID     int64   `db:"id"`
	Name   string  `db:"name"`
	Length float64 `db:"length"`
}

func setup(t *testing.T) *backend.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "t.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(context.Background(),
		db.Dialect().ExpandDDL("CREATE TABLE tracks ({{pk}}, name TEXT UNIQUE, length DOUBLE PRECISION)"),
		nil)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *backend.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(),
		"SELECT count(*) FROM tracks", nil).Scan(&n))
	return n
}

func TestInTxCommit(t *testing.T) {
	db := setup(t)
	err := db.InTx(context.Background(), func(tx *backend.Tx) error {
		_, err := tx.Exec(context.Background(),
			"INSERT INTO tracks (name, length) VALUES (:name, :length)",
			backend.Params{"name": "ks_monza", "length": 5793.0})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestInTxRollbackOnError(t *testing.T) {
	db := setup(t)
	boom := errors.New("boom")
	err := db.InTx(context.Background(), func(tx *backend.Tx) error {
		if _, err := tx.Exec(context.Background(),
			"INSERT INTO tracks (name) VALUES (:name)",
			backend.Params{"name": "ks_monza"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestInTxRollbackOnPanic(t *testing.T) {
	db := setup(t)
	assert.PanicsWithValue(t, "boom", func() {
		_ = db.InTx(context.Background(), func(tx *backend.Tx) error {
			_, _ = tx.Exec(context.Background(),
				"INSERT INTO tracks (name) VALUES (:name)",
				backend.Params{"name": "ks_monza"})
			panic("boom")
		})
	})
	// the connection must be usable again
	assert.Equal(t, 0, count(t, db))
}

func TestSelectAndGet(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	for _, name := range []string{"ks_monza", "spa", "imola"} {
		_, err := db.InsertID(ctx, "INSERT INTO tracks (name, length) VALUES (:name, 1000)",
			backend.Params{"name": name})
		require.NoError(t, err)
	}
	rows, err := backend.Select[trackRow](ctx, db,
		"SELECT id, name, length FROM tracks WHERE name IN (:names) ORDER BY name",
		backend.Params{"names": []string{"spa", "imola"}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "imola", rows[0].Name)
	assert.InDelta(t, 1000.0, rows[1].Length, 0)

	_, err = backend.Get[trackRow](ctx, db,
		"SELECT id, name, length FROM tracks WHERE name = :name",
		backend.Params{"name": "nordschleife"})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	names, err := backend.Column[string](ctx, db, "SELECT name FROM tracks ORDER BY id", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ks_monza", "spa", "imola"}, names)
}

func TestColumnNames(t *testing.T) {
	db := setup(t)
	rows, err := db.Query(context.Background(), "SELECT id, name AS track FROM tracks", nil)
	require.NoError(t, err)
	defer rows.Close()
	cols, err := backend.ColumnNames(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "track"}, cols)
}

func TestTablesColumnsVersion(t *testing.T) {
	db := setup(t)
	ctx := context.Background()
	tables, err := backend.Tables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"tracks"}, tables)

	cols, err := backend.Columns(ctx, db, "tracks")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "length"}, cols)

	v, err := db.Dialect().SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
	require.NoError(t, db.Dialect().SetSchemaVersion(ctx, db, 7))
	v, err = db.Dialect().SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
