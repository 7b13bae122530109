// Package migrate brings the schema of a store to the version of this release.
//
// The chain of steps from the persisted version to the target runs in one
// transaction, followed by the data fixups the chain crossed. Either all of
// it is committed or nothing.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/sqlite"
)

var (
	// ErrSchemaIncompatible is logged when the store is newer than this release
	ErrSchemaIncompatible = errors.New("schema version is newer than supported")
	ErrMigrationFailure   = errors.New("schema migration failed")
)

// MigrationError reports a failed migration chain. The store is unchanged.
type MigrationError struct {
	From, To int
	Err      error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate %d -> %d: %v", e.From, e.To, e.Err)
}

func (e *MigrationError) Unwrap() []error {
	return []error{ErrMigrationFailure, e.Err}
}

// BackupFunc writes a copy of db to dest
type BackupFunc func(ctx context.Context, db *backend.DB, dest string) error

// Result describes what Migrate did
type Result struct {
	From, To     int
	Backup       string // path of the backup created before migrating
	Incompatible bool   // the store is newer than the target, nothing was done
}

type Migrator struct {
	db          *backend.DB
	target      int
	backups     bool
	backupDir   string
	backupFn    BackupFunc
	attempts    int
	pause       time.Duration
	freshCreate bool
	steps       []Step
	fixups      []Fixup
	log         *log.Logger
}

type Option func(m *Migrator)

func WithTarget(version int) Option {
	return func(m *Migrator) {
		m.target = version
	}
}

// WithBackups enables backups before migrating. An empty dir places the
// backup next to the store.
func WithBackups(dir string) Option {
	return func(m *Migrator) {
		m.backups = true
		m.backupDir = dir
	}
}

func WithBackupFunc(fn BackupFunc) Option {
	return func(m *Migrator) {
		m.backupFn = fn
	}
}

// WithRetry configures how often the chain is attempted on a busy database
func WithRetry(attempts int, pause time.Duration) Option {
	return func(m *Migrator) {
		m.attempts = attempts
		m.pause = pause
	}
}

// WithFreshCreate creates an empty store directly at the latest version
// instead of running the whole chain.
func WithFreshCreate(enabled bool) Option {
	return func(m *Migrator) {
		m.freshCreate = enabled
	}
}

func WithSteps(steps []Step, fixups []Fixup) Option {
	return func(m *Migrator) {
		m.steps = steps
		m.fixups = fixups
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Migrator) {
		m.log = l
	}
}

func NewMigrator(db *backend.DB, opts ...Option) *Migrator {
	ret := &Migrator{
		db:          db,
		target:      Latest,
		attempts:    5,
		pause:       5 * time.Second,
		freshCreate: true,
		fixups:      DefaultFixups(),
		log:         log.Default().Named("migrate"),
	}
	if db.Kind() == backend.KindSQLite {
		ret.backupFn = sqlite.Backup
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Migrate brings db to the target version
func Migrate(ctx context.Context, db *backend.DB, opts ...Option) (*Result, error) {
	return NewMigrator(db, opts...).Run(ctx)
}

//nolint:funlen // sequential protocol
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	if m.steps == nil {
		steps, err := DefaultSteps()
		if err != nil {
			return nil, err
		}
		m.steps = steps
	}
	v, err := m.db.Dialect().SchemaVersion(ctx, m.db)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	res := &Result{From: v, To: v}
	if v > m.target {
		m.log.Warn("store was written by a newer release, continuing",
			log.Int("version", v),
			log.Int("supported", m.target),
			log.ErrorField(ErrSchemaIncompatible))
		res.Incompatible = true
		return res, nil
	}
	if v == m.target {
		m.log.Debug("schema is up to date", log.Int("version", v))
		return res, nil
	}

	if m.backups && v > 0 {
		if res.Backup, err = m.backup(ctx, v); err != nil {
			return nil, &MigrationError{From: v, To: m.target, Err: err}
		}
	}

	attempt := 0
	err = backoff.RetryNotify(func() error {
		attempt++
		err := m.db.InTx(ctx, func(tx *backend.Tx) error {
			return m.apply(ctx, tx, v)
		})
		if err != nil && !backend.IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, m.retryBackOff(ctx), func(err error, pause time.Duration) {
		m.log.Warn("database busy, retrying migration",
			log.Int("attempt", attempt),
			log.Duration("pause", pause),
			log.ErrorField(err))
	})
	if err != nil {
		return nil, &MigrationError{From: v, To: m.target, Err: err}
	}
	res.To = m.target
	m.log.Info("schema migrated", log.Int("from", v), log.Int("to", m.target))
	return res, nil
}

// the chain is attempted m.attempts times while the store is busy
func (m *Migrator) retryBackOff(ctx context.Context) backoff.BackOffContext {
	retries := uint64(max(m.attempts-1, 0))
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.pause), retries), ctx)
}

func (m *Migrator) apply(ctx context.Context, tx *backend.Tx, from int) error {
	if from == 0 && m.freshCreate && m.target == Latest {
		tables, err := backend.Tables(ctx, tx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			m.log.Info("creating empty store", log.Int("version", Latest))
			if err := execScript(ctx, tx, latestSchema); err != nil {
				return err
			}
			return tx.Dialect().SetSchemaVersion(ctx, tx, Latest)
		}
	}
	for _, s := range m.steps {
		if s.From < from || s.To > m.target {
			continue
		}
		m.log.Info("applying migration",
			log.Int("from", s.From), log.Int("to", s.To), log.String("name", s.Name))
		if err := s.Apply(ctx, tx); err != nil {
			return fmt.Errorf("step %d -> %d (%s): %w", s.From, s.To, s.Name, err)
		}
		if err := tx.Dialect().SetSchemaVersion(ctx, tx, s.To); err != nil {
			return err
		}
	}
	// fixups expect the latest schema
	if m.target != Latest {
		return nil
	}
	for _, f := range m.fixups {
		if from < f.Since && f.Since <= m.target {
			m.log.Info("applying fixup", log.Int("since", f.Since), log.String("name", f.Name))
			if err := f.Apply(ctx, tx); err != nil {
				return fmt.Errorf("fixup %d (%s): %w", f.Since, f.Name, err)
			}
		}
	}
	return nil
}

// BackupName returns the name of the backup for a migration from -> to
func BackupName(dir, location string, from, to int) string {
	if dir == "" {
		dir = filepath.Dir(location)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.bak_%d_%d", filepath.Base(location), from, to))
}

func (m *Migrator) backup(ctx context.Context, from int) (string, error) {
	dest := BackupName(m.backupDir, m.db.Location(), from, m.target)
	if _, err := os.Stat(dest); err == nil {
		m.log.Info("backup exists, skipping", log.String("backup", dest))
		return dest, nil
	}
	if m.backupFn == nil {
		m.log.Warn("no backup function for store, skipping backup",
			log.String("kind", string(m.db.Kind())))
		return "", nil
	}
	m.log.Info("creating backup", log.String("backup", dest))
	if err := m.backupFn(ctx, m.db, dest); err != nil {
		return "", fmt.Errorf("backup %s: %w", dest, err)
	}
	return dest, nil
}
