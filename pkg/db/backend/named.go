package backend

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/jmoiron/sqlx"
)

// ErrBind is reported when the named parameters of a query cannot be bound,
// usually because a parameter is missing.
var ErrBind = errors.New("cannot bind parameters")

// bindNamed rewrites :name placeholders of query into the bindvars of
// bindType (see sqlx.BindType). A literal colon is written as ::.
// Slice values (except []byte) are expanded into a list of placeholders for
// use with IN (...). An empty slice binds a single NULL.
func bindNamed(query string, params Params, bindType int) (string, []any, error) {
	values := make(map[string]any, len(params))
	for k, v := range params {
		values[k] = coerce(v)
	}
	q, args, err := sqlx.Named(query, values)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBind, err)
	}
	if q, args, err = sqlx.In(q, args...); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBind, err)
	}
	return sqlx.Rebind(bindType, q), args, nil
}

// flag columns are stored as integers on all engines
func coerce(v any) any {
	switch b := v.(type) {
	case nil, []byte:
		return v
	case bool:
		if b {
			return int64(1)
		}
		return int64(0)
	case *bool:
		if b == nil {
			return nil
		}
		return coerce(*b)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return nil
	}
	return v
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// ValidIdent reports whether name may be interpolated into SQL as identifier.
func ValidIdent(name string) bool {
	if name == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isIdentPart(name[i]) && name[i] != '.' {
			return false
		}
	}
	return true
}

func mustIdent(names ...string) {
	for _, name := range names {
		if !ValidIdent(name) {
			panic(fmt.Sprintf("invalid sql identifier %q", name))
		}
	}
}
