// Package service implements the operations used by the game server
// integration (producer side) and the presentation layer (query side).
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionActive  = errors.New("another session is active")
	ErrNotFound       = repository.ErrNotFound
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotPermitted   = errors.New("not permitted")
)

// SessionHandle identifies the session opened by NewSession.
// It must be passed to RegisterLap and FinishSession.
type SessionHandle struct {
	ID        uuid.UUID
	SessionID int64
	TrackID   int64
	ComboID   int64
	carIDs    []int64
	closed    bool
}

type Store struct {
	db  *backend.DB
	log *log.Logger
	now func() time.Time

	mu     sync.Mutex
	active *SessionHandle
}

type Option func(s *Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithClock replaces the clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(db *backend.DB, opts ...Option) *Store {
	ret := &Store{
		db:  db,
		log: log.Default().Named("store"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Store) DB() *backend.DB {
	return s.db
}

// Active returns the handle of the open session or nil
func (s *Store) Active() *SessionHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// checkHandle returns ErrNoSession unless h is the open session.
// The caller must hold s.mu.
func (s *Store) checkHandle(h *SessionHandle) error {
	if h == nil || h.closed || s.active != h {
		return ErrNoSession
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return s.db.InTx(ctx, func(tx *backend.Tx) error {
		return fn(tx)
	})
}
