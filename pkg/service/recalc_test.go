package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository/pis"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/testsupport/basedata"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

// race runs a 3 lap race with laps of 100s. a, b and c finish at 300s,
// 301s and 302s, d retires after the first lap.
func race(t *testing.T, s *service.Store) (sessionID int64, pisIDs map[string]int64) {
	t.Helper()
	ctx := context.Background()
	var laps []service.LapRecord
	for _, guid := range []string{"a", "b", "c"} {
		for i := int64(1); i <= 3; i++ {
			laps = append(laps, basedata.SampleLap(guid, basedata.Car1, i, 100000))
		}
	}
	laps = append(laps, basedata.SampleLap("d", basedata.Car1, 1, 100000))
	h := openSession(t, s, laps...)
	require.NoError(t, s.FinishSession(ctx, h, []service.FinishEntry{
		{GUID: "a", Finished: true, FinishTime: 300000},
		{GUID: "b", Finished: true, FinishTime: 301000},
		{GUID: "c", Finished: true, FinishTime: 302000},
		{GUID: "d", Finished: false},
	}))
	details, err := s.SessionDetails(ctx, h.SessionID)
	require.NoError(t, err)
	pisIDs = map[string]int64{}
	for _, p := range details.Participants {
		pisIDs[p.GUID] = p.PisID
	}
	return h.SessionID, pisIDs
}

func positions(t *testing.T, db *backend.DB, sessionID int64) map[string]int64 {
	t.Helper()
	items, err := pis.LoadParticipants(context.Background(), db, sessionID)
	require.NoError(t, err)
	ret := map[string]int64{}
	for _, p := range items {
		ret[p.GUID] = p.FinishPosition.GetOr(0)
	}
	return ret
}

func TestRecalculateWithoutCorrections(t *testing.T) {
	ctx := context.Background()
	db := testdb.SQLite(t)
	s := newStore(db)
	sessionID, ids := race(t, s)
	// recorded positions are kept even if they contradict the lap times
	require.NoError(t, pis.SetPosition(ctx, db, ids["c"], 7))

	require.NoError(t, s.RecalculateSessionPositions(ctx, sessionID))
	assert.Equal(t, map[string]int64{"a": 1, "b": 2, "c": 7, "d": 1004},
		positions(t, db, sessionID))
}

func TestRecalculateWithCorrections(t *testing.T) {
	tests := []struct {
		name       string
		guid       string
		correction model.PisCorrection
		want       map[string]int64
	}{
		{
			name:       "time penalty swaps a and b",
			guid:       "a",
			correction: model.PisCorrection{DeltaTime: 1500, Comment: "jump start"},
			want:       map[string]int64{"b": 1, "a": 2, "c": 3, "d": 1004},
		},
		{
			name:       "time penalty moves a to the end",
			guid:       "a",
			correction: model.PisCorrection{DeltaTime: 5000},
			want:       map[string]int64{"b": 1, "c": 2, "a": 3, "d": 1004},
		},
		{
			name:       "lap penalty",
			guid:       "a",
			correction: model.PisCorrection{DeltaLaps: -1, Comment: "cut"},
			want:       map[string]int64{"b": 1, "c": 2, "a": 3, "d": 1004},
		},
		{
			name:       "neutral correction keeps the order",
			guid:       "b",
			correction: model.PisCorrection{DeltaPoints: 3},
			want:       map[string]int64{"a": 1, "b": 2, "c": 3, "d": 1004},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testdb.Each(t, func(t *testing.T, db *backend.DB) {
				ctx := context.Background()
				s := newStore(db)
				sessionID, ids := race(t, s)
				c := tt.correction
				c.PisID = ids[tt.guid]
				require.NoError(t, s.SetCorrection(ctx, &c))
				assert.Equal(t, tt.want, positions(t, db, sessionID))

				// recalculating again is stable
				require.NoError(t, s.RecalculateSessionPositions(ctx, sessionID))
				assert.Equal(t, tt.want, positions(t, db, sessionID))
			})
		})
	}
}

func TestSetCorrectionUnknownParticipant(t *testing.T) {
	s := newStore(testdb.SQLite(t))
	err := s.SetCorrection(context.Background(), &model.PisCorrection{PisID: 4711})
	assert.ErrorIs(t, err, service.ErrNotFound)
}
