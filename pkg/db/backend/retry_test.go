package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errLocked = errors.New("database is locked (5) (SQLITE_BUSY)")

// lockedFor simulates a lock held by someone else for d
func lockedFor(d time.Duration) func() error {
	start := time.Now()
	return func() error {
		if time.Since(start) < d {
			return errLocked
		}
		return nil
	}
}

func TestRetryPolicyDo(t *testing.T) {
	tests := []struct {
		name       string
		contention time.Duration
		wantBusy   bool
	}{
		{name: "no contention", contention: 0},
		{name: "contention within budget", contention: 900 * time.Millisecond},
		{name: "contention beyond budget", contention: 1500 * time.Millisecond, wantBusy: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultRetryPolicy.Do(context.Background(),
				SQLite{}.IsBusy, lockedFor(tt.contention))
			if tt.wantBusy {
				assert.ErrorIs(t, err, ErrDatabaseBusy)
				assert.ErrorIs(t, err, errLocked)
				var busy *BusyError
				if assert.ErrorAs(t, err, &busy) {
					assert.LessOrEqual(t, busy.Waited, DefaultRetryPolicy.Budget)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryPolicyOtherError(t *testing.T) {
	calls := 0
	other := errors.New("no such table: laps")
	err := DefaultRetryPolicy.Do(context.Background(), SQLite{}.IsBusy, func() error {
		calls++
		return other
	})
	assert.ErrorIs(t, err, other)
	assert.False(t, IsBusy(err))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyZero(t *testing.T) {
	err := RetryPolicy{}.Do(context.Background(), SQLite{}.IsBusy,
		func() error { return errLocked })
	assert.True(t, IsBusy(err))
}

func TestRetryPolicyContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := DefaultRetryPolicy.Do(ctx, SQLite{}.IsBusy, func() error { return errLocked })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyWaitedWithinBudget(t *testing.T) {
	calls := 0
	p := RetryPolicy{Interval: 10 * time.Millisecond, Budget: 35 * time.Millisecond}
	err := p.Do(context.Background(), SQLite{}.IsBusy, func() error {
		calls++
		return errLocked
	})
	var busy *BusyError
	if assert.ErrorAs(t, err, &busy) {
		assert.Equal(t, 30*time.Millisecond, busy.Waited)
	}
	assert.Equal(t, 4, calls)
}
