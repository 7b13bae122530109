package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blob"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

func TestCompactBlobs(t *testing.T) {
	testdb.Each(t, func(t *testing.T, db *backend.DB) {
		ctx := context.Background()
		s := newStore(db)
		h := openSession(t, s)
		lapIDs := map[int64]int64{}
		for i, lapTime := range []int64{40000, 39000, 41000} {
			rec := basedata.SampleLap("p1", basedata.Car1, int64(i+1), lapTime)
			rec.Trajectory = basedata.SampleTrajectory(20)
			res, err := s.RegisterLap(ctx, h, rec)
			require.NoError(t, err)
			lapIDs[lapTime] = res.LapID
		}
		recent := basedata.SampleLap("p2", basedata.Car1, 1, 42000)
		recent.Trajectory = basedata.SampleTrajectory(20)
		recent.Timestamp = basedata.TestTime().AddDate(0, 1, 0)
		res, err := s.RegisterLap(ctx, h, recent)
		require.NoError(t, err)
		lapIDs[42000] = res.LapID

		n, err := s.CompactBlobs(ctx, basedata.TestTime().AddDate(0, 0, 7))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		tests := []struct {
			lapTime  int64
			wantBlob bool
		}{
			{lapTime: 39000, wantBlob: true}, // best lap of p1
			{lapTime: 40000},
			{lapTime: 41000},
			{lapTime: 42000, wantBlob: true}, // too recent
		}
		for _, tt := range tests {
			_, err := blob.LoadForLap(ctx, db, lapIDs[tt.lapTime])
			if tt.wantBlob {
				assert.NoError(t, err, "lap %d", tt.lapTime)
			} else {
				assert.ErrorIs(t, err, repository.ErrNotFound, "lap %d", tt.lapTime)
			}
		}
		var blobs int
		require.NoError(t, db.QueryRow(ctx, "select count(*) from lap_bin_blobs", nil).
			Scan(&blobs))
		assert.Equal(t, 2, blobs)
	})
}

func TestSetLapValid(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	h := openSession(t, s)
	res, err := s.RegisterLap(ctx, h, basedata.SampleLap("p1", basedata.Car1, 1, 40000))
	require.NoError(t, err)

	require.NoError(t, s.SetLapValid(ctx, res.LapID, false))
	_, err = s.GetBestLap(ctx, service.BestLapQuery{Track: basedata.Track, ValidOnly: true})
	require.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, s.SetLapValid(ctx, res.LapID, true))
	_, err = s.GetBestLap(ctx, service.BestLapQuery{Track: basedata.Track, ValidOnly: true})
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetLapValid(ctx, 4711, true), service.ErrNotFound)
}
