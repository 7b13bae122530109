// Package sqlite opens file based stores using the pure go driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mpapenbr/racestore/pkg/db/backend"
)

// busy_timeout is 0 on purpose, lock contention is handled by backend.RetryPolicy
const dsnOptions = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)" +
	"&_pragma=busy_timeout(0)&_txlock=immediate"

// Open opens (or creates) the store located at path.
// The store is used by a single connection.
func Open(ctx context.Context, path string, opts ...backend.Option) (*backend.DB, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return backend.New(db, backend.SQLite{},
		append([]backend.Option{backend.WithLocation(path)}, opts...)...), nil
}

func dsn(path string) string {
	return path + "?" + dsnOptions
}

// Backup writes a consistent copy of the store to dest.
// dest must not exist.
func Backup(ctx context.Context, db *backend.DB, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup %s: %w", dest, os.ErrExist)
	}
	_, err := db.Exec(ctx, "VACUUM INTO :dest", backend.Params{"dest": dest})
	return err
}
