//nolint:whitespace //can't make both the linter and editor happy :(
package track

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

// Ensure returns the id of the track with name, creating it if needed.
// Display name and length are updated when given.
func Ensure(
	ctx context.Context,
	conn repository.Querier,
	name string,
	uiName null.Val[string],
	length null.Val[float64],
) (int64, error) {
	id, err := repository.EnsureByName(ctx, conn, "tracks", name)
	if err != nil {
		return 0, err
	}
	if uiName.IsValue() || length.IsValue() {
		_, err = conn.Exec(ctx, `update tracks set
	uiname=coalesce(:uiname, uiname),
	length=coalesce(:length, length)
	where id=:id`,
			backend.Params{"uiname": uiName, "length": length, "id": id})
	}
	return id, err
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (*model.Track, error) {
	item, err := backend.Get[model.Track](ctx, conn,
		fmt.Sprintf("%s where id=:id", selector), backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func LoadByName(ctx context.Context, conn repository.Querier, name string) (
	*model.Track, error,
) {
	item, err := backend.Get[model.Track](ctx, conn,
		fmt.Sprintf("%s where name=:name", selector), backend.Params{"name": name})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]model.Track, error) {
	return backend.Select[model.Track](ctx, conn,
		fmt.Sprintf("%s order by name", selector), nil)
}

// little helper
const selector = string(`select id,name,uiname,length from tracks`)
