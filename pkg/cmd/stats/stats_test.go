package stats

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/service"
)

func TestQuery(t *testing.T) {
	ref := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		cfg      statsConfig
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{
			name:     "defaults",
			cfg:      statsConfig{maxCuts: -1},
			wantFrom: ref.AddDate(0, 0, -7),
			wantTo:   ref,
		},
		{
			name:     "dates",
			cfg:      statsConfig{from: "2024-04-01", to: "2024-04-15", maxCuts: -1},
			wantFrom: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "rfc3339",
			cfg:      statsConfig{to: "2024-04-15T10:00:00Z", maxCuts: -1},
			wantFrom: time.Date(2024, 4, 8, 10, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "reversed",
			cfg:     statsConfig{from: "2024-04-15", to: "2024-04-01"},
			wantErr: true,
		},
		{
			name:    "garbage",
			cfg:     statsConfig{from: "yesterday"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.timeReference = ref
			q, err := tt.cfg.query()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(q.From), "from %v", q.From)
			assert.True(t, tt.wantTo.Equal(q.To), "to %v", q.To)
			assert.Nil(t, q.Invalidate)
		})
	}
}

func TestQueryInvalidate(t *testing.T) {
	cfg := statsConfig{
		invalidate:    true,
		track:         "ks_testtrack",
		cars:          []string{"a", "b"},
		maxLapTime:    90 * time.Second,
		maxCuts:       -1,
		timeReference: time.Now(),
	}
	q, err := cfg.query()
	require.NoError(t, err)
	require.NotNil(t, q.Invalidate)
	assert.Equal(t, int64(90000), q.Invalidate.MaxLapTime)
	assert.False(t, q.Invalidate.MaxCuts.IsValue())

	cfg.maxCuts = 2
	q, err = cfg.query()
	require.NoError(t, err)
	assert.Equal(t, int64(2), q.Invalidate.MaxCuts.GetOr(-1))
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	err := writeYAML(&buf, &service.Statistics{
		Laps:         3,
		LapsPerTrack: map[string]int64{"ks_testtrack": 3},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "laps: 3\n")
	assert.Contains(t, buf.String(), "lapsPerTrack:\n  ks_testtrack: 3\n")
}
