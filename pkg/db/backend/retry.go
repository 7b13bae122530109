package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrDatabaseBusy is reported when a statement could not acquire a lock
// within the retry budget. Callers may apply their own backoff.
var ErrDatabaseBusy = errors.New("database busy")

type BusyError struct {
	Waited time.Duration
	Err    error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("database busy (waited %v): %v", e.Waited, e.Err)
}

func (e *BusyError) Unwrap() []error {
	return []error{ErrDatabaseBusy, e.Err}
}

// RetryPolicy controls how statements are retried while the database is locked.
// A statement is retried after Interval as long as the accumulated wait stays
// within Budget.
type RetryPolicy struct {
	Interval time.Duration
	Budget   time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	Interval: 200 * time.Millisecond,
	Budget:   time.Second,
}

// Do calls fn until it succeeds, fails with a non-busy error or the budget is
// exhausted. In the latter case a *BusyError is returned.
func (p RetryPolicy) Do(ctx context.Context, isBusy func(error) bool, fn func() error) error {
	var waited time.Duration
	err := backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(_ error, d time.Duration) {
		waited += d
	})
	if err != nil && isBusy(err) {
		return &BusyError{Waited: waited, Err: err}
	}
	return err
}

// constant backoff with as many retries as fit into Budget
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	var retries uint64
	if p.Interval > 0 && p.Budget > 0 {
		retries = uint64(p.Budget / p.Interval)
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), retries), ctx)
}

func IsBusy(err error) bool {
	return errors.Is(err, ErrDatabaseBusy)
}
