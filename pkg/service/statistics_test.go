package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

func TestStatistics(t *testing.T) {
	testdb.Each(t, func(t *testing.T, db *backend.DB) {
		ctx := context.Background()
		s := newStore(db)
		nextDay := basedata.SampleLap("p2", basedata.Car2, 5, 45000)
		nextDay.Timestamp = basedata.TestTime().AddDate(0, 0, 1)
		cutter := basedata.SampleLap("p2", basedata.Car1, 1, 41000)
		cutter.Cuts = 3
		openSession(t, s,
			basedata.SampleLap("p1", basedata.Car1, 1, 39000),
			basedata.SampleLap("p1", basedata.Car1, 2, 38000),
			cutter,
			nextDay,
		)
		require.NoError(t, s.BlacklistPlayer(ctx, "p3", time.Hour, "spam"))

		got, err := s.Statistics(ctx, service.StatisticsQuery{
			From: basedata.TestTime().Add(-time.Hour),
			To:   basedata.TestTime().AddDate(0, 0, 2),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.Laps)
		assert.Equal(t, map[string]int64{basedata.Track: 4}, got.LapsPerTrack)
		assert.Equal(t, map[string]int64{basedata.Car1: 3, basedata.Car2: 1}, got.LapsPerCar)
		assert.Equal(t, map[string]int64{
			basedata.Track + ": " + basedata.Car1 + "," + basedata.Car2: 4,
		}, got.LapsPerCombo)
		assert.Equal(t, map[string]int64{"2024-04-28": 2, "2024-04-29": 1}, got.PlayersPerDay)
		assert.Equal(t, int64(1), got.Bans)
		assert.Equal(t, int64(0), got.InvalidatedLaps)

		got, err = s.Statistics(ctx, service.StatisticsQuery{
			From: basedata.TestTime().Add(-time.Hour),
			To:   basedata.TestTime().Add(time.Hour),
			Invalidate: &service.InvalidateFilter{
				Track:      basedata.Track,
				MaxLapTime: 38500,
				MaxCuts:    null.From(int64(2)),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Laps)
		assert.Equal(t, int64(2), got.InvalidatedLaps)

		best, err := s.GetBestLap(ctx, service.BestLapQuery{Track: basedata.Track, ValidOnly: true})
		require.NoError(t, err)
		assert.Equal(t, int64(39000), best.LapTime)
	})
}

func TestStatisticsInvalidateNeedsLimit(t *testing.T) {
	s := newStore(testdb.SQLite(t))
	_, err := s.Statistics(context.Background(), service.StatisticsQuery{
		Invalidate: &service.InvalidateFilter{Track: basedata.Track},
	})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}
