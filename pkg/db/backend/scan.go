package backend

import (
	"context"
	"database/sql"

	"github.com/stephenafamo/scan"
)

// Select maps all result rows into T. Columns are matched by the db tag of T's fields.
func Select[T any](ctx context.Context, q Querier, query string, params Params) ([]T, error) {
	rows, err := q.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scan.AllFromRows(ctx, scan.StructMapper[T](), rows)
}

// Get returns the first row mapped into T or sql.ErrNoRows
func Get[T any](ctx context.Context, q Querier, query string, params Params) (T, error) {
	var zero T
	res, err := Select[T](ctx, q, query, params)
	if err != nil {
		return zero, err
	}
	if len(res) == 0 {
		return zero, sql.ErrNoRows
	}
	return res[0], nil
}

// Column collects the values of a single column result
func Column[T any](ctx context.Context, q Querier, query string, params Params) ([]T, error) {
	rows, err := q.Query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]T, 0)
	for rows.Next() {
		var v T
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
	return ret, rows.Err()
}
