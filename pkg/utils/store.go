package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/config"
	"github.com/mpapenbr/racestore/pkg/db"
	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/migrate"
	"github.com/mpapenbr/racestore/pkg/db/postgres"
	"github.com/mpapenbr/racestore/pkg/transfer"
)

// ParseDuration returns defaultVal if s is not a valid duration
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("Invalid duration value, using default",
			log.String("value", s),
			log.Duration("default", defaultVal),
			log.ErrorField(err))
		return defaultVal
	}
	return d
}

// RetryPolicy builds the busy retry policy from the configured values
func RetryPolicy() backend.RetryPolicy {
	return backend.RetryPolicy{
		Interval: ParseDuration(config.BusyInterval, backend.DefaultRetryPolicy.Interval),
		Budget:   ParseDuration(config.BusyBudget, backend.DefaultRetryPolicy.Budget),
	}
}

// OpenDB opens the store at dsn. Postgres servers are awaited for
// config.WaitForServices first.
func OpenDB(ctx context.Context, dsn string, sqlLogger *log.Logger) (*backend.DB, error) {
	if db.IsPostgresURL(dsn) {
		addr := ExtractFromDBURL(dsn)
		timeout := ParseDuration(config.WaitForServices, 60*time.Second)
		if err := WaitForTCP(ctx, addr, timeout); err != nil {
			return nil, fmt.Errorf("database not ready: %w", err)
		}
	}
	log.Debug("Opening store", log.String("db", RedactDBURL(dsn)))
	return db.Open(ctx, dsn,
		db.WithBackendOptions(
			backend.WithRetryPolicy(RetryPolicy()),
			backend.WithLogger(sqlLogger)),
		db.WithPoolOptions(postgres.WithTracer(sqlLogger, log.DebugLevel)),
	)
}

// MigrateOptions builds the migration options from the configured values
func MigrateOptions(store *backend.DB) []migrate.Option {
	opts := []migrate.Option{
		migrate.WithRetry(config.MigrationRetries,
			ParseDuration(config.MigrationRetryPause, 5*time.Second)),
		migrate.WithFreshCreate(config.FreshCreate),
		migrate.WithLogger(log.Default().Named("schema")),
	}
	if config.Backups {
		opts = append(opts, migrate.WithBackups(config.BackupDir))
	}
	if store.Kind() == backend.KindPostgres {
		opts = append(opts, migrate.WithBackupFunc(transfer.Backup))
	}
	return opts
}

// OpenStore opens the configured store and brings its schema to the latest
// version. The caller closes the store.
func OpenStore(ctx context.Context, sqlLogger *log.Logger) (*backend.DB, error) {
	store, err := OpenDB(ctx, config.DB, sqlLogger)
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Migrate(ctx, store, MigrateOptions(store)...); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
