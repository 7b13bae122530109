//nolint:whitespace //can't make both the linter and editor happy :(
package car

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Ensure(ctx context.Context, conn repository.Querier, name string) (int64, error) {
	return repository.EnsureByName(ctx, conn, "cars", name)
}

// EnsureAll returns the ids of all names in the same order
func EnsureAll(ctx context.Context, conn repository.Querier, names []string) (
	[]int64, error,
) {
	ret := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := Ensure(ctx, conn, name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, id)
	}
	return ret, nil
}

func UpdateInfo(
	ctx context.Context,
	conn repository.Querier,
	id int64,
	uiName, brand null.Val[string],
) error {
	_, err := conn.Exec(ctx, `update cars set
	uiname=coalesce(:uiname, uiname),
	brand=coalesce(:brand, brand)
	where id=:id`,
		backend.Params{"uiname": uiName, "brand": brand, "id": id})
	return err
}

func LoadByName(ctx context.Context, conn repository.Querier, name string) (
	*model.Car, error,
) {
	item, err := backend.Get[model.Car](ctx, conn,
		fmt.Sprintf("%s where name=:name", selector), backend.Params{"name": name})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

// IDsByNames resolves existing cars. Unknown names are ignored.
func IDsByNames(ctx context.Context, conn repository.Querier, names []string) (
	[]int64, error,
) {
	return backend.Column[int64](ctx, conn,
		"select id from cars where name in (:names) order by id",
		backend.Params{"names": names})
}

func LoadByIDs(ctx context.Context, conn repository.Querier, ids []int64) (
	[]model.Car, error,
) {
	return backend.Select[model.Car](ctx, conn,
		fmt.Sprintf("%s where id in (:ids) order by name", selector),
		backend.Params{"ids": ids})
}

// little helper
const selector = string(`select id,name,uiname,brand from cars`)
