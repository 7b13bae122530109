package service_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository/player"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

func TestPlayerDetails(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	invalid := basedata.SampleLap("p1", basedata.Car1, 4, 35000)
	invalid.Valid = false
	openSession(t, s,
		basedata.SampleLap("p1", basedata.Car1, 1, 40000),
		basedata.SampleLap("p1", basedata.Car1, 2, 42000),
		basedata.SampleLap("p1", basedata.Car1, 3, 44000),
		invalid,
		basedata.SampleLap("p1", basedata.Car2, 1, 50000),
		basedata.SampleLap("p2", basedata.Car1, 1, 39000),
	)

	got, err := s.PlayerDetails(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Driver p1", got.Name)
	assert.Equal(t, int64(5), got.Laps)
	assert.Equal(t, int64(4), got.ValidLaps)
	assert.False(t, got.Blacklisted)
	require.Len(t, got.Best, 2)

	assert.Equal(t, basedata.Car1, got.Best[0].Car)
	assert.Equal(t, basedata.Track, got.Best[0].Track)
	assert.Equal(t, int64(40000), got.Best[0].LapTime)
	assert.Equal(t, 3, got.Best[0].Laps)
	assert.InDelta(t, 42000.0, got.Best[0].Mean, 1e-6)
	assert.InDelta(t, 2000.0, got.Best[0].StdDev, 1e-6)

	assert.Equal(t, basedata.Car2, got.Best[1].Car)
	assert.InDelta(t, 50000.0, got.Best[1].Mean, 1e-6)
	assert.Zero(t, got.Best[1].StdDev)

	_, err = s.PlayerDetails(ctx, "nobody")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestPlayerFlags(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	openSession(t, s,
		basedata.SampleLap("p1", basedata.Car1, 1, 40000),
		basedata.SampleLap("p2", basedata.Car1, 1, 40000),
	)
	require.NoError(t, s.SetPlayerOnline(ctx, "p1", true))
	require.NoError(t, s.SetWhitelisted(ctx, "p2", true))
	require.NoError(t, s.SetMessageOptOut(ctx, "p2", true))
	assert.ErrorIs(t, s.SetPlayerOnline(ctx, "nobody", true), service.ErrNotFound)

	online, err := s.ListPlayers(ctx, player.Filter{OnlineOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"},
		lo.Map(online, func(p model.Player, _ int) string { return p.SteamGUID }))

	got, err := s.PlayerDetails(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, got.Whitelisted)
	assert.True(t, got.MessageOptOut)
	assert.False(t, got.IsOnline)
}
