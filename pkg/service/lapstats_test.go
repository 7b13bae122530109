package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

func TestLapStatsModes(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	openSession(t, s,
		basedata.SampleLap("p1", basedata.Car1, 1, 40000),
		basedata.SampleLap("p1", basedata.Car1, 2, 39000),
		basedata.SampleLap("p1", basedata.Car2, 1, 41000),
		basedata.SampleLap("p2", basedata.Car1, 1, 39500),
	)
	type row struct {
		guid string
		car  string
		time int64
	}
	tests := []struct {
		mode service.LapStatsMode
		want []row
	}{
		{mode: service.ModeTop, want: []row{
			{"p1", basedata.Car1, 39000},
			{"p2", basedata.Car1, 39500},
			{"p1", basedata.Car2, 41000},
		}},
		{mode: service.ModeTopPlayer, want: []row{
			{"p1", basedata.Car1, 39000},
			{"p2", basedata.Car1, 39500},
		}},
		{mode: service.ModeTopCar, want: []row{
			{"p1", basedata.Car1, 39000},
			{"p1", basedata.Car2, 41000},
		}},
		{mode: service.ModeAll, want: []row{
			{"p1", basedata.Car1, 39000},
			{"p2", basedata.Car1, 39500},
			{"p1", basedata.Car1, 40000},
			{"p1", basedata.Car2, 41000},
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			offset := 0
			got, err := s.LapStats(ctx, service.LapStatsQuery{
				Mode:   tt.mode,
				Offset: &offset,
				Track:  basedata.Track,
			})
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), got.Total)
			assert.Equal(t, tt.want, lo.Map(got.Rows, func(r service.LapStatsRow, _ int) row {
				return row{r.GUID, r.Car, r.LapTime}
			}))
			assert.Equal(t, tt.want[1].time-tt.want[0].time, got.Rows[1].Gap)
			assert.Equal(t, map[string]int64{
				basedata.Car1: 39000,
				basedata.Car2: 41000,
			}, got.BestLapPerCar)
		})
	}

	_, err := s.LapStats(ctx, service.LapStatsQuery{Mode: "fastest"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
}

func TestLapStatsCentersOnEgo(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	var laps []service.LapRecord
	for i := 1; i <= 20; i++ {
		laps = append(laps,
			basedata.SampleLap(fmt.Sprintf("p%02d", i), basedata.Car1, 1, 40000+int64(i)*100))
	}
	openSession(t, s, laps...)

	tests := []struct {
		name       string
		ego        string
		wantOffset int
	}{
		{name: "middle", ego: "p15", wantOffset: 11},
		{name: "near end", ego: "p20", wantOffset: 14},
		{name: "near start", ego: "p02", wantOffset: 0},
		{name: "unknown", ego: "nobody", wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LapStats(ctx, service.LapStatsQuery{
				Mode:    service.ModeTop,
				Limit:   6,
				Track:   basedata.Track,
				EgoGUID: tt.ego,
			})
			require.NoError(t, err)
			assert.Equal(t, 20, got.Total)
			assert.Equal(t, tt.wantOffset, got.Offset)
			require.Len(t, got.Rows, 6)
			assert.Equal(t, tt.wantOffset+1, got.Rows[0].Pos)
			assert.Equal(t, int64(40100), got.BestLap.GetOr(0))
		})
	}
}

func TestLapStatsFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(testdb.SQLite(t))
	invalid := basedata.SampleLap("p2", basedata.Car1, 1, 30000)
	invalid.Valid = false
	soft := basedata.SampleLap("p3", basedata.Car1, 1, 38000)
	soft.Tyre = "S"
	openSession(t, s,
		basedata.SampleLap("p1", basedata.Car1, 1, 40000),
		invalid,
		soft,
	)
	offset := 0
	tests := []struct {
		name  string
		query service.LapStatsQuery
		want  []string
	}{
		{name: "valid only", want: []string{"p3", "p1"}},
		{
			name:  "with invalid",
			query: service.LapStatsQuery{Valid: []int{0, 1}},
			want:  []string{"p2", "p3", "p1"},
		},
		{
			name:  "tyre",
			query: service.LapStatsQuery{Tyres: []string{"M"}},
			want:  []string{"p1"},
		},
		{
			name:  "other car",
			query: service.LapStatsQuery{Cars: []string{basedata.Car2}},
			want:  []string{},
		},
		{
			name:  "time window",
			query: service.LapStatsQuery{From: basedata.TestTime().AddDate(0, 0, 1)},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			q.Track = basedata.Track
			q.Offset = &offset
			got, err := s.LapStats(ctx, q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lo.Map(got.Rows, func(r service.LapStatsRow, _ int) string {
				return r.GUID
			}))
		})
	}
}
