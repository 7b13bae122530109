// Package db opens a store for a connection string.
// postgres:// and postgresql:// URLs use the postgres engine, everything else
// is treated as path of a sqlite file.
package db

import (
	"context"
	"strings"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/postgres"
	"github.com/mpapenbr/racestore/pkg/db/sqlite"
)

type openConfig struct {
	backendOpts []backend.Option
	poolOpts    []postgres.PoolConfigOption
}

type OpenOption func(cfg *openConfig)

func WithBackendOptions(opts ...backend.Option) OpenOption {
	return func(cfg *openConfig) {
		cfg.backendOpts = append(cfg.backendOpts, opts...)
	}
}

// WithPoolOptions are applied when the store is a postgres database
func WithPoolOptions(opts ...postgres.PoolConfigOption) OpenOption {
	return func(cfg *openConfig) {
		cfg.poolOpts = append(cfg.poolOpts, opts...)
	}
}

func Open(ctx context.Context, dsn string, opts ...OpenOption) (*backend.DB, error) {
	cfg := &openConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if IsPostgresURL(dsn) {
		return postgres.Open(ctx, dsn, cfg.poolOpts, cfg.backendOpts...)
	}
	return sqlite.Open(ctx, dsn, cfg.backendOpts...)
}

func IsPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
