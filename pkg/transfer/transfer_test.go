package transfer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/migrate"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/pkg/transfer"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

// fill writes a session with laps, a ban and a chat line into db
func fill(t *testing.T, db *backend.DB) {
	t.Helper()
	ctx := context.Background()
	s := service.NewStore(db, service.WithClock(basedata.Clock()))
	h, err := s.NewSession(ctx, basedata.SampleSession())
	require.NoError(t, err)
	for i, lapTime := range []int64{39000, 38000} {
		rec := basedata.SampleLap("p1", basedata.Car1, int64(i+1), lapTime)
		rec.Trajectory = basedata.SampleTrajectory(10)
		_, err := s.RegisterLap(ctx, h, rec)
		require.NoError(t, err)
	}
	_, err = s.RegisterLap(ctx, h, basedata.SampleLap("p2", basedata.Car2, 1, 41000))
	require.NoError(t, err)
	require.NoError(t, s.RecordChat(ctx, "p1", "hello"))
	require.NoError(t, s.FinishSession(ctx, h, []service.FinishEntry{
		{GUID: "p1", Finished: true},
		{GUID: "p2", Finished: true},
	}))
	require.NoError(t, s.BlacklistPlayer(ctx, "p3", time.Hour, "spam"))
}

func rowCounts(t *testing.T, db *backend.DB) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	tables, err := backend.Tables(ctx, db)
	require.NoError(t, err)
	ret := map[string]int64{}
	for _, table := range tables {
		var n int64
		require.NoError(t, db.QueryRow(ctx, "select count(*) from "+table, nil).Scan(&n))
		ret[table] = n
	}
	return ret
}

// verify checks dst holds the same data as src and accepts new rows
func verify(t *testing.T, dst, src *backend.DB) {
	t.Helper()
	ctx := context.Background()
	assert.Equal(t, rowCounts(t, src), rowCounts(t, dst))

	s := service.NewStore(dst, service.WithClock(basedata.Clock()))
	best, err := s.GetBestLap(ctx, service.BestLapQuery{
		Track: basedata.Track, Car: basedata.Car1, ValidOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(38000), best.LapTime)
	require.NotNil(t, best.Trajectory)
	assert.Equal(t, 10, best.Trajectory.Len())

	h, err := s.NewSession(ctx, basedata.SampleSession())
	require.NoError(t, err)
	_, err = s.RegisterLap(ctx, h, basedata.SampleLap("p4", basedata.Car1, 1, 37000))
	require.NoError(t, err, "sequences must continue after the copied ids")
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	src := testdb.SQLite(t)
	fill(t, src)

	tests := []struct {
		name string
		dst  func(t *testing.T) *backend.DB
	}{
		{name: "sqlite", dst: testdb.EmptySQLite},
		{name: "postgres", dst: testdb.EmptyPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.dst(t)
			res, err := transfer.Populate(ctx, dst, src)
			require.NoError(t, err)
			assert.Equal(t, migrate.Latest, res.Version)
			assert.Equal(t, int64(3), res.Rows["laps"])
			verify(t, dst, src)
		})
	}
}

func TestPopulateFromPostgres(t *testing.T) {
	ctx := context.Background()
	src := testdb.Postgres(t)
	fill(t, src)
	dst := testdb.EmptySQLite(t)
	_, err := transfer.Populate(ctx, dst, src)
	require.NoError(t, err)
	verify(t, dst, src)
}

func TestPopulateRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	src := testdb.SQLite(t)
	fill(t, src)
	dst := testdb.EmptySQLite(t)
	_, err := transfer.Populate(ctx, dst, src)
	require.NoError(t, err)
	before := rowCounts(t, dst)

	_, err = transfer.Populate(ctx, dst, src)
	assert.ErrorIs(t, err, transfer.ErrIntegrityViolation)
	assert.Equal(t, before, rowCounts(t, dst))
}

func TestPopulateKeepsSourceVersion(t *testing.T) {
	ctx := context.Background()
	src := testdb.EmptySQLite(t)
	_, err := migrate.Migrate(ctx, src, migrate.WithTarget(10))
	require.NoError(t, err)
	dst := testdb.EmptySQLite(t)

	res, err := transfer.Populate(ctx, dst, src)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Version)
	v, err := dst.Dialect().SchemaVersion(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	srcTables, err := backend.Tables(ctx, src)
	require.NoError(t, err)
	dstTables, err := backend.Tables(ctx, dst)
	require.NoError(t, err)
	assert.ElementsMatch(t, srcTables, dstTables)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	src := testdb.SQLite(t)
	fill(t, src)
	dest := filepath.Join(t.TempDir(), "backup.db")

	require.NoError(t, transfer.Backup(ctx, src, dest))
	verify(t, testdb.OpenSQLite(t, dest), src)

	err := transfer.Backup(ctx, src, dest)
	assert.True(t, errors.Is(err, os.ErrExist))
}
