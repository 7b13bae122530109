// Package testdb provides stores for tests.
package testdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/testcontainers/testcontainers-go"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/migrate"
	"github.com/mpapenbr/racestore/pkg/db/postgres"
	"github.com/mpapenbr/racestore/pkg/db/sqlite"
	tcpg "github.com/mpapenbr/racestore/testsupport/tcpostgres"
)

// EmptySQLite opens a new sqlite store at version 0
func EmptySQLite(t *testing.T) *backend.DB {
	t.Helper()
	return OpenSQLite(t, filepath.Join(t.TempDir(), "test.db"))
}

func OpenSQLite(t *testing.T, path string) *backend.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SQLite returns a sqlite store at the latest version
func SQLite(t *testing.T) *backend.DB {
	t.Helper()
	db := EmptySQLite(t)
	migrateLatest(t, db)
	return db
}

// EmptyPostgres returns a postgres store at version 0 in its own database.
// The server of TESTDB_URL is used if set, otherwise a test container is
// started. The test is skipped if neither is available.
func EmptyPostgres(t *testing.T) *backend.DB {
	t.Helper()
	ctx := context.Background()
	baseURL := os.Getenv("TESTDB_URL")
	if baseURL == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		var err error
		if baseURL, err = tcpg.SetupTestDBURL(); err != nil {
			t.Skipf("postgres container not available: %v", err)
		}
	}
	url, drop, err := tcpg.CreateDatabase(ctx, baseURL)
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(drop)
	db, err := postgres.Open(ctx, url, nil)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Postgres returns a postgres store at the latest version
func Postgres(t *testing.T) *backend.DB {
	t.Helper()
	db := EmptyPostgres(t)
	migrateLatest(t, db)
	return db
}

// Each runs fn for every engine available in the test environment
func Each(t *testing.T, fn func(t *testing.T, db *backend.DB)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, SQLite(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, Postgres(t)) })
}

func migrateLatest(t *testing.T, db *backend.DB) {
	t.Helper()
	if _, err := migrate.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
