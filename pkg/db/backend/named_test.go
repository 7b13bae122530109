package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	type args struct {
		query  string
		params Params
	}
	tests := []struct {
		name       string
		dialect    Dialect
		args       args
		wantQuery  string
		wantArgs   []any
		wantErr    bool
		errMissing bool
	}{
		{
			name:    "sqlite repeated param",
			dialect: SQLite{},
			args: args{
				query:  "select * from laps where lap_time < :t or lap_time = :t and valid = :v",
				params: Params{"t": 38000, "v": true},
			},
			wantQuery: "select * from laps where lap_time < ? or lap_time = ? and valid = ?",
			wantArgs:  []any{38000, 38000, int64(1)},
		},
		{
			name:    "postgres repeated param",
			dialect: Postgres{},
			args: args{
				query:  "select * from laps where lap_time < :t or lap_time = :t and valid = :v",
				params: Params{"t": 38000, "v": false},
			},
			wantQuery: "select * from laps where lap_time < $1 or lap_time = $2 and valid = $3",
			wantArgs:  []any{38000, 38000, int64(0)},
		},
		{
			name:    "escaped colon",
			dialect: Postgres{},
			args: args{
				query:  "select name from tracks where name <> 'a::b' and id = :id",
				params: Params{"id": 1},
			},
			wantQuery: "select name from tracks where name <> 'a:b' and id = $1",
			wantArgs:  []any{1},
		},
		{
			name:    "list expansion postgres",
			dialect: Postgres{},
			args: args{
				query:  "select * from cars where id in (:ids) and name <> :n",
				params: Params{"ids": []int64{3, 5}, "n": "x"},
			},
			wantQuery: "select * from cars where id in ($1, $2) and name <> $3",
			wantArgs:  []any{int64(3), int64(5), "x"},
		},
		{
			name:    "list expansion sqlite",
			dialect: SQLite{},
			args: args{
				query:  "select * from cars where id in (:ids)",
				params: Params{"ids": []string{"a", "b", "c"}},
			},
			wantQuery: "select * from cars where id in (?, ?, ?)",
			wantArgs:  []any{"a", "b", "c"},
		},
		{
			name:    "empty list",
			dialect: SQLite{},
			args: args{
				query:  "select * from cars where id in (:ids)",
				params: Params{"ids": []int64{}},
			},
			wantQuery: "select * from cars where id in (?)",
			wantArgs:  []any{nil},
		},
		{
			name:    "blob is not a list",
			dialect: SQLite{},
			args: args{
				query:  "insert into lap_bin_blobs (history_info) values (:b)",
				params: Params{"b": []byte{1, 2}},
			},
			wantQuery: "insert into lap_bin_blobs (history_info) values (?)",
			wantArgs:  []any{[]byte{1, 2}},
		},
		{
			name:      "no params",
			dialect:   Postgres{},
			args:      args{query: "select count(*) from laps"},
			wantQuery: "select count(*) from laps",
			wantArgs:  []any{},
		},
		{
			name:       "missing param",
			dialect:    SQLite{},
			args:       args{query: "select :a, :b", params: Params{"a": 1}},
			wantErr:    true,
			errMissing: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, a, err := tt.dialect.Bind(tt.args.query, tt.args.params)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMissing {
					assert.ErrorIs(t, err, ErrBind)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, q)
			assert.Equal(t, tt.wantArgs, a)
		})
	}
}

func TestExpandDDL(t *testing.T) {
	script := "CREATE TABLE x ({{pk}}, data {{blob}})"
	assert.Equal(t,
		"CREATE TABLE x (id INTEGER PRIMARY KEY AUTOINCREMENT, data BLOB)",
		SQLite{}.ExpandDDL(script))
	assert.Equal(t,
		"CREATE TABLE x (id SERIAL PRIMARY KEY, data BYTEA)",
		Postgres{}.ExpandDDL(script))
}

func TestOrderedAggregateSelect(t *testing.T) {
	assert.Equal(t,
		"SELECT combo_id, group_concat(car_id, ',' ORDER BY car_id) AS cars "+
			"FROM combo_cars GROUP BY combo_id",
		SQLite{}.OrderedAggregateSelect("combo_id", "car_id", "cars", "combo_cars"))
	assert.Equal(t,
		"SELECT combo_id, array_to_string(array_agg(car_id ORDER BY car_id), ',') AS cars "+
			"FROM combo_cars GROUP BY combo_id",
		Postgres{}.OrderedAggregateSelect("combo_id", "car_id", "cars", "combo_cars"))
	assert.Panics(t, func() {
		SQLite{}.OrderedAggregateSelect("combo_id; drop table x", "car_id", "cars", "combo_cars")
	})
}

func TestValidIdent(t *testing.T) {
	assert.True(t, ValidIdent("player_in_session"))
	assert.True(t, ValidIdent("l.lap_time"))
	assert.False(t, ValidIdent("1abc"))
	assert.False(t, ValidIdent("a b"))
	assert.False(t, ValidIdent(""))
}
