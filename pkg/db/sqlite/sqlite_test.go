package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
)

func openTemp(t *testing.T, name string, opts ...backend.Option) *backend.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), name), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAndInsertID(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t, "store.db")
	assert.Equal(t, backend.KindSQLite, db.Kind())

	_, err := db.Exec(ctx, "CREATE TABLE t ("+db.Dialect().PrimaryKey()+", name TEXT, flag INTEGER)", nil)
	require.NoError(t, err)
	id, err := db.InsertID(ctx, "INSERT INTO t (name, flag) VALUES (:name, :flag)",
		backend.Params{"name": "monza", "flag": true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	var flag int
	require.NoError(t, db.QueryRow(ctx, "SELECT flag FROM t WHERE id = :id",
		backend.Params{"id": id}).Scan(&flag))
	assert.Equal(t, 1, flag)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t, "store.db")
	_, err := db.Exec(ctx, "CREATE TABLE t (x INTEGER)", nil)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "store.db.bak_1_2")
	require.NoError(t, Backup(ctx, db, dest))
	_, err = os.Stat(dest)
	require.NoError(t, err)
	assert.ErrorIs(t, Backup(ctx, db, dest), os.ErrExist)
}

// holds a write lock on the store from a second handle for hold
func lockFor(t *testing.T, path string, hold time.Duration, started chan<- struct{}) {
	t.Helper()
	other, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer other.Close()
	tx, err := other.Begin(context.Background())
	require.NoError(t, err)
	_, err = tx.Exec(context.Background(), "INSERT INTO t (x) VALUES (0)", nil)
	require.NoError(t, err)
	close(started)
	time.Sleep(hold)
	require.NoError(t, tx.Commit())
}

func TestBusyRetry(t *testing.T) {
	tests := []struct {
		name     string
		hold     time.Duration
		wantBusy bool
	}{
		{name: "lock released within budget", hold: 500 * time.Millisecond},
		{name: "lock held beyond budget", hold: 1500 * time.Millisecond, wantBusy: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "busy.db")
			db, err := Open(ctx, path)
			require.NoError(t, err)
			defer db.Close()
			_, err = db.Exec(ctx, "CREATE TABLE t (x INTEGER)", nil)
			require.NoError(t, err)

			started := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				lockFor(t, path, tt.hold, started)
			}()
			<-started
			_, err = db.Exec(ctx, "INSERT INTO t (x) VALUES (1)", nil)
			wg.Wait()
			if tt.wantBusy {
				require.Error(t, err)
				assert.ErrorIs(t, err, backend.ErrDatabaseBusy)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
