// Package transfer copies the content of one store into another, possibly of
// a different engine.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/db/migrate"
	"github.com/mpapenbr/racestore/pkg/db/sqlite"
)

// ErrIntegrityViolation is returned if the destination already contains data
var ErrIntegrityViolation = errors.New("destination store is not empty")

// tables in the order they are copied, referenced tables first.
// Tables of older schema versions not listed here are copied afterwards.
var copyOrder = []string{
	"tracks",
	"cars",
	"players",
	"tyre_compounds",
	"teams",
	"combos",
	"combo_cars",
	"sessions",
	"player_in_session",
	"lap_bin_blobs",
	"laps",
	"pis_corrections",
	"player_groups",
	"player_group_entries",
	"setup_deposits",
	"blacklist",
	"chat_history",
	"cs_point_schemas",
	"cs_seasons",
	"cs_events",
	"cs_event_sessions",
}

type config struct {
	log *log.Logger
}

type Option func(cfg *config)

func WithLogger(l *log.Logger) Option {
	return func(cfg *config) {
		cfg.log = l
	}
}

// Result holds the number of copied rows per table
type Result struct {
	Version int
	Rows    map[string]int64
}

// Populate copies all tables of src into the empty store dst. dst is brought
// to the schema version of src first. Primary keys are preserved.
//
//nolint:funlen // sequential protocol
func Populate(ctx context.Context, dst, src *backend.DB, opts ...Option) (*Result, error) {
	cfg := &config{log: log.GetFromContext(ctx).Named("transfer")}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := ensureEmpty(ctx, dst); err != nil {
		return nil, err
	}
	version, err := src.Dialect().SchemaVersion(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("read source version: %w", err)
	}
	res, err := migrate.Migrate(ctx, dst, migrate.WithTarget(version),
		migrate.WithLogger(cfg.log.Named("migrate")))
	if err != nil {
		return nil, err
	}
	if res.Incompatible {
		return nil, fmt.Errorf("%w: destination is at version %d, source at %d",
			migrate.ErrSchemaIncompatible, res.From, version)
	}

	tables, err := backend.Tables(ctx, src)
	if err != nil {
		return nil, err
	}
	dstTables, err := backend.Tables(ctx, dst)
	if err != nil {
		return nil, err
	}
	ret := &Result{Version: version, Rows: map[string]int64{}}
	err = dst.InTx(ctx, func(tx *backend.Tx) error {
		if err := backend.DeferConstraints(ctx, tx); err != nil {
			return err
		}
		for _, table := range ordered(tables) {
			if !slices.Contains(dstTables, table) {
				return fmt.Errorf("table %s missing in destination", table)
			}
			n, err := copyTable(ctx, tx, src, table)
			if err != nil {
				return fmt.Errorf("copy %s: %w", table, err)
			}
			ret.Rows[table] = n
			cfg.log.Info("table copied", log.String("table", table), log.Int64("rows", n))
		}
		for _, table := range tables {
			cols, err := backend.Columns(ctx, tx, table)
			if err != nil {
				return err
			}
			if !slices.Contains(cols, "id") {
				continue
			}
			if err := backend.ResetSequence(ctx, tx, table); err != nil {
				return fmt.Errorf("reset sequence of %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Backup writes a copy of src as sqlite store to dest. dest must not exist.
func Backup(ctx context.Context, src *backend.DB, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup %s: %w", dest, os.ErrExist)
	}
	dst, err := sqlite.Open(ctx, dest)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = Populate(ctx, dst, src)
	return err
}

// ensureEmpty rejects stores containing any row
func ensureEmpty(ctx context.Context, db *backend.DB) error {
	tables, err := backend.Tables(ctx, db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if !backend.ValidIdent(table) {
			return fmt.Errorf("unexpected table name %q", table)
		}
		var cnt int64
		if err := db.QueryRow(ctx,
			fmt.Sprintf("select count(*) from %s", table), nil).Scan(&cnt); err != nil {
			return err
		}
		if cnt > 0 {
			return fmt.Errorf("%w: table %s has %d rows", ErrIntegrityViolation, table, cnt)
		}
	}
	return nil
}

func ordered(tables []string) []string {
	ret := make([]string, 0, len(tables))
	for _, t := range copyOrder {
		if slices.Contains(tables, t) {
			ret = append(ret, t)
		}
	}
	for _, t := range tables {
		if !slices.Contains(copyOrder, t) {
			ret = append(ret, t)
		}
	}
	return ret
}

func copyTable(ctx context.Context, dst backend.Querier, src *backend.DB, table string) (
	int64, error,
) {
	cols, err := backend.Columns(ctx, src, table)
	if err != nil {
		return 0, err
	}
	if !backend.ValidIdent(table) || !all(cols, backend.ValidIdent) {
		return 0, fmt.Errorf("unexpected identifier in %s(%v)", table, cols)
	}
	query := fmt.Sprintf("select %s from %s", strings.Join(cols, ","), table)
	if slices.Contains(cols, "id") {
		query += " order by id"
	}
	names := make([]string, len(cols))
	for i := range cols {
		names[i] = fmt.Sprintf(":c%d", i)
	}
	insert := fmt.Sprintf("insert into %s (%s) values (%s)",
		table, strings.Join(cols, ","), strings.Join(names, ","))

	rows, err := src.Query(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	var n int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, err
		}
		params := make(backend.Params, len(cols))
		for i, v := range values {
			params[fmt.Sprintf("c%d", i)] = v
		}
		if _, err := dst.Exec(ctx, insert, params); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}

func all(items []string, pred func(string) bool) bool {
	for _, item := range items {
		if !pred(item) {
			return false
		}
	}
	return true
}
