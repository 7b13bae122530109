package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect contains everything that differs between the engines.
type Dialect interface {
	Kind() Kind
	// Bind rewrites named parameters to the native placeholder syntax
	Bind(query string, params Params) (string, []any, error)
	// PrimaryKey is the DDL fragment of an auto incrementing id column
	PrimaryKey() string
	BlobType() string
	// ExpandDDL replaces the {{pk}} and {{blob}} markers of a migration script
	ExpandDDL(script string) string
	// OrderedAggregateSelect builds a query returning nonAggCol and the comma
	// separated, ascending list of aggCol values per nonAggCol as alias.
	OrderedAggregateSelect(nonAggCol, aggCol, alias, table string) string
	IsBusy(err error) bool
	// RetryInTx reports whether a busy statement may be retried inside a transaction
	RetryInTx() bool
	// ReturningID reports whether inserts need "RETURNING id" to report the new id
	ReturningID() bool
	ResetSequenceSQL(table string) string
	DeferConstraintsSQL() string
	ListTablesSQL() string
	// ListColumnsSQL expects the table name as :table
	ListColumnsSQL() string
	SchemaVersion(ctx context.Context, q Querier) (int, error)
	SetSchemaVersion(ctx context.Context, q Querier, version int) error
}

func ExpandDDL(d Dialect, script string) string {
	return strings.NewReplacer(
		"{{pk}}", d.PrimaryKey(),
		"{{blob}}", d.BlobType(),
	).Replace(script)
}

type SQLite struct{}

var _ Dialect = SQLite{}

func (SQLite) Kind() Kind { return KindSQLite }

func (SQLite) Bind(query string, params Params) (string, []any, error) {
	return bindNamed(query, params, sqlx.QUESTION)
}

func (SQLite) PrimaryKey() string { return "id INTEGER PRIMARY KEY AUTOINCREMENT" }
func (SQLite) BlobType() string   { return "BLOB" }

func (d SQLite) ExpandDDL(script string) string { return ExpandDDL(d, script) }

func (SQLite) OrderedAggregateSelect(nonAggCol, aggCol, alias, table string) string {
	mustIdent(nonAggCol, aggCol, alias, table)
	return fmt.Sprintf(
		"SELECT %[1]s, group_concat(%[2]s, ',' ORDER BY %[2]s) AS %[3]s FROM %[4]s GROUP BY %[1]s",
		nonAggCol, aggCol, alias, table)
}

func (SQLite) IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func (SQLite) RetryInTx() bool   { return true }
func (SQLite) ReturningID() bool { return false }

// AUTOINCREMENT counters follow explicitly inserted ids
func (SQLite) ResetSequenceSQL(string) string { return "" }

func (SQLite) DeferConstraintsSQL() string { return "PRAGMA defer_foreign_keys = ON" }

func (SQLite) ListTablesSQL() string {
	return `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (SQLite) ListColumnsSQL() string {
	return "SELECT name FROM pragma_table_info(:table) ORDER BY cid"
}

func (SQLite) SchemaVersion(ctx context.Context, q Querier) (int, error) {
	var v int
	err := q.QueryRow(ctx, "PRAGMA user_version", nil).Scan(&v)
	return v, err
}

func (SQLite) SetSchemaVersion(ctx context.Context, q Querier, version int) error {
	_, err := q.Exec(ctx, fmt.Sprintf("PRAGMA user_version = %d", version), nil)
	return err
}

type Postgres struct{}

var _ Dialect = Postgres{}

func (Postgres) Kind() Kind { return KindPostgres }

func (Postgres) Bind(query string, params Params) (string, []any, error) {
	return bindNamed(query, params, sqlx.DOLLAR)
}

func (Postgres) PrimaryKey() string { return "id SERIAL PRIMARY KEY" }
func (Postgres) BlobType() string   { return "BYTEA" }

func (d Postgres) ExpandDDL(script string) string { return ExpandDDL(d, script) }

func (Postgres) OrderedAggregateSelect(nonAggCol, aggCol, alias, table string) string {
	mustIdent(nonAggCol, aggCol, alias, table)
	return fmt.Sprintf(
		"SELECT %[1]s, array_to_string(array_agg(%[2]s ORDER BY %[2]s), ',') AS %[3]s "+
			"FROM %[4]s GROUP BY %[1]s",
		nonAggCol, aggCol, alias, table)
}

// lock_not_available, serialization_failure, deadlock_detected
var pgBusyCodes = []string{"55P03", "40001", "40P01"}

func (Postgres) IsBusy(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, c := range pgBusyCodes {
			if pgErr.Code == c {
				return true
			}
		}
	}
	return false
}

func (Postgres) RetryInTx() bool   { return false }
func (Postgres) ReturningID() bool { return true }

func (Postgres) ResetSequenceSQL(table string) string {
	mustIdent(table)
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), "+
			"COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)", table)
}

func (Postgres) DeferConstraintsSQL() string { return "SET CONSTRAINTS ALL DEFERRED" }

func (Postgres) ListTablesSQL() string {
	return `SELECT table_name FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
AND table_name <> 'db_version' ORDER BY table_name`
}

func (Postgres) ListColumnsSQL() string {
	return `SELECT column_name FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = :table ORDER BY ordinal_position`
}

func (Postgres) SchemaVersion(ctx context.Context, q Querier) (int, error) {
	var cnt int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables
WHERE table_schema = current_schema() AND table_name = 'db_version'`, nil).
		Scan(&cnt); err != nil {
		return 0, err
	}
	if cnt == 0 {
		return 0, nil
	}
	var v int
	err := q.QueryRow(ctx, "SELECT version FROM db_version", nil).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

func (Postgres) SetSchemaVersion(ctx context.Context, q Querier, version int) error {
	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS db_version (version INTEGER NOT NULL)",
		"DELETE FROM db_version",
	} {
		if _, err := q.Exec(ctx, stmt, nil); err != nil {
			return err
		}
	}
	_, err := q.Exec(ctx, "INSERT INTO db_version (version) VALUES (:version)",
		Params{"version": version})
	return err
}

// Tables lists the user tables of the store
func Tables(ctx context.Context, q Querier) ([]string, error) {
	return Column[string](ctx, q, q.Dialect().ListTablesSQL(), nil)
}

// Columns lists the column names of table in definition order
func Columns(ctx context.Context, q Querier, table string) ([]string, error) {
	return Column[string](ctx, q, q.Dialect().ListColumnsSQL(), Params{"table": table})
}

func ResetSequence(ctx context.Context, q Querier, table string) error {
	stmt := q.Dialect().ResetSequenceSQL(table)
	if stmt == "" {
		return nil
	}
	_, err := q.Exec(ctx, stmt, nil)
	return err
}

func DeferConstraints(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, q.Dialect().DeferConstraintsSQL(), nil)
	return err
}
