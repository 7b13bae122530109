package track_test

import (
	"context"
	"testing"

	"github.com/aarondl/opt/null"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/track"
	"github.com/mpapenbr/racestore/testsupport/testdb"
)

func TestEnsure(t *testing.T) {
	testdb.Each(t, func(t *testing.T, db *backend.DB) {
		ctx := context.Background()
		id, err := track.Ensure(ctx, db, "ks_testtrack", null.Val[string]{}, null.Val[float64]{})
		assert.NilError(t, err)

		tests := []struct {
			name       string
			uiName     null.Val[string]
			length     null.Val[float64]
			wantUIName null.Val[string]
			wantLength null.Val[float64]
		}{
			{
				name: "no info",
			},
			{
				name:       "ui name",
				uiName:     null.From("Test Track"),
				wantUIName: null.From("Test Track"),
			},
			{
				name:       "length keeps ui name",
				length:     null.From(4200.5),
				wantUIName: null.From("Test Track"),
				wantLength: null.From(4200.5),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := track.Ensure(ctx, db, "ks_testtrack", tt.uiName, tt.length)
				assert.NilError(t, err)
				assert.Equal(t, got, id)

				item, err := track.LoadByID(ctx, db, id)
				assert.NilError(t, err)
				assert.Equal(t, item.UIName.GetOr(""), tt.wantUIName.GetOr(""))
				assert.Equal(t, item.Length.GetOr(0), tt.wantLength.GetOr(0))
			})
		}

		all, err := track.LoadAll(ctx, db)
		assert.NilError(t, err)
		assert.Equal(t, len(all), 1)
	})
}

func TestLoadByName(t *testing.T) {
	testdb.Each(t, func(t *testing.T, db *backend.DB) {
		ctx := context.Background()
		_, err := track.LoadByName(ctx, db, "unknown")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		id, err := track.Ensure(ctx, db, "ks_testtrack", null.Val[string]{}, null.Val[float64]{})
		assert.NilError(t, err)
		item, err := track.LoadByName(ctx, db, "ks_testtrack")
		assert.NilError(t, err)
		assert.Equal(t, item.ID, id)
	})
}
