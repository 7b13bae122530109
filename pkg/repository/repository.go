// Package repository contains helpers shared by the entity repositories.
// Every repository function works on a backend.Querier so it can be used
// with and without a surrounding transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mpapenbr/racestore/pkg/db/backend"
)

type Querier = backend.Querier

var ErrNotFound = errors.New("not found")

// EnsureByName returns the id of the row of table with the given name.
// The row is inserted if it does not exist yet.
// table must be one of the dimension tables with a unique name column.
func EnsureByName(ctx context.Context, conn Querier, table, name string) (int64, error) {
	if !backend.ValidIdent(table) {
		return 0, fmt.Errorf("invalid table %q", table)
	}
	id, err := IDByName(ctx, conn, table, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	return conn.InsertID(ctx,
		fmt.Sprintf("insert into %s (name) values (:name)", table),
		backend.Params{"name": name})
}

func IDByName(ctx context.Context, conn Querier, table, name string) (int64, error) {
	if !backend.ValidIdent(table) {
		return 0, fmt.Errorf("invalid table %q", table)
	}
	var id int64
	err := conn.QueryRow(ctx,
		fmt.Sprintf("select id from %s where name=:name", table),
		backend.Params{"name": name}).Scan(&id)
	return id, NotFound(err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// NotFound maps sql.ErrNoRows to ErrNotFound
func NotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// RowsAffected returns the number of affected rows of res (0 on error)
func RowsAffected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
