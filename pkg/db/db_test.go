package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racestore/pkg/db/backend"
)

func TestIsPostgresURL(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"postgresql://user:pw@localhost:5432/racestore", true},
		{"postgres://localhost/racestore", true},
		{"/var/lib/racestore/stracker.db3", false},
		{"sqlite://stracker.db3", false},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPostgresURL(tt.dsn))
		})
	}
}

func TestOpenSqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, backend.KindSQLite, db.Kind())
	assert.Equal(t, path, db.Location())
}
