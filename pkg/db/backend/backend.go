// Package backend hides the differences between the supported SQL engines
// behind a single query/transaction interface.
//
// Queries are written once with named parameters (:name) and are rewritten to
// the native placeholder syntax of the engine.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mpapenbr/racestore/log"
)

type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Params holds the named parameters of a statement
type Params map[string]any

// Querier is implemented by *DB and *Tx
type Querier interface {
	Dialect() Dialect
	Exec(ctx context.Context, query string, params Params) (sql.Result, error)
	Query(ctx context.Context, query string, params Params) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, params Params) *Row
	// InsertID executes an insert statement and returns the id of the new row
	InsertID(ctx context.Context, query string, params Params) (int64, error)
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type DB struct {
	conn
	db       *sql.DB
	location string
	onClose  []func()
}

type Tx struct {
	conn
	tx *sql.Tx
}

type Option func(db *DB)

// WithOnClose registers a function called after the database is closed
func WithOnClose(fn func()) Option {
	return func(db *DB) {
		db.onClose = append(db.onClose, fn)
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(db *DB) {
		db.retry = p
	}
}

// WithLogger sets the logger used to trace statements (debug level)
func WithLogger(l *log.Logger) Option {
	return func(db *DB) {
		db.log = l
	}
}

// WithLocation names the store (file path or database name). Used for backups.
func WithLocation(location string) Option {
	return func(db *DB) {
		db.location = location
	}
}

func New(sqlDB *sql.DB, dialect Dialect, opts ...Option) *DB {
	ret := &DB{
		conn: conn{
			exec:    sqlDB,
			dialect: dialect,
			retry:   DefaultRetryPolicy,
			log:     log.Default().Named("sql"),
		},
		db: sqlDB,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (d *DB) Kind() Kind {
	return d.dialect.Kind()
}

func (d *DB) Location() string {
	return d.location
}

// SQL returns the underlying database handle
func (d *DB) SQL() *sql.DB {
	return d.db
}

func (d *DB) RetryPolicy() RetryPolicy {
	return d.retry
}

func (d *DB) Close() error {
	err := d.db.Close()
	for _, fn := range d.onClose {
		fn()
	}
	return err
}

// Begin starts a transaction. A busy database is retried according to the
// retry policy.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	var tx *sql.Tx
	err := d.retry.Do(ctx, d.dialect.IsBusy, func() error {
		var err error
		tx, err = d.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	retry := d.retry
	if !d.dialect.RetryInTx() {
		// a failed statement aborts the whole transaction
		retry = RetryPolicy{}
	}
	return &Tx{
		conn: conn{exec: tx, dialect: d.dialect, retry: retry, log: d.log},
		tx:   tx,
	}, nil
}

// InTx runs fn inside a transaction. The transaction is committed if fn
// returns nil and rolled back otherwise. A panic inside fn rolls back the
// transaction and is re-raised afterwards.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := d.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				d.log.Warn("rollback failed", log.ErrorField(rbErr))
			}
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

type conn struct {
	exec    executor
	dialect Dialect
	retry   RetryPolicy
	log     *log.Logger
}

func (c *conn) Dialect() Dialect {
	return c.dialect
}

func (c *conn) bind(query string, params Params) (string, []any, error) {
	q, args, err := c.dialect.Bind(query, params)
	if err != nil {
		return "", nil, fmt.Errorf("bind %q: %w", firstLine(query), err)
	}
	c.log.Debug("sql", log.String("query", q), log.Any("args", args))
	return q, args, nil
}

func (c *conn) Exec(ctx context.Context, query string, params Params) (sql.Result, error) {
	q, args, err := c.bind(query, params)
	if err != nil {
		return nil, err
	}
	var res sql.Result
	err = c.retry.Do(ctx, c.dialect.IsBusy, func() error {
		var err error
		res, err = c.exec.ExecContext(ctx, q, args...)
		return err
	})
	return res, err
}

func (c *conn) Query(ctx context.Context, query string, params Params) (*sql.Rows, error) {
	q, args, err := c.bind(query, params)
	if err != nil {
		return nil, err
	}
	var rows *sql.Rows
	err = c.retry.Do(ctx, c.dialect.IsBusy, func() error {
		var err error
		rows, err = c.exec.QueryContext(ctx, q, args...)
		return err
	})
	return rows, err
}

func (c *conn) QueryRow(ctx context.Context, query string, params Params) *Row {
	rows, err := c.Query(ctx, query, params)
	return &Row{rows: rows, err: err}
}

func (c *conn) InsertID(ctx context.Context, query string, params Params) (int64, error) {
	if c.dialect.ReturningID() {
		var id int64
		err := c.QueryRow(ctx, query+" RETURNING id", params).Scan(&id)
		return id, err
	}
	res, err := c.Exec(ctx, query, params)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Row is the result of QueryRow. Errors are deferred until Scan.
type Row struct {
	rows *sql.Rows
	err  error
}

func (r *Row) Err() error {
	return r.err
}

// Scan copies the columns of the first row into dest.
// sql.ErrNoRows is returned if there is no row.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := r.rows.Scan(dest...); err != nil {
		return err
	}
	return r.rows.Close()
}

// ColumnNames returns the column names of a query result
func ColumnNames(rows *sql.Rows) ([]string, error) {
	return rows.Columns()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
