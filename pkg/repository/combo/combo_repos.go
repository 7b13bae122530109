//nolint:whitespace //can't make both the linter and editor happy :(
package combo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

// CarSet returns the sorted, duplicate free car ids
func CarSet(carIDs []int64) []int64 {
	ret := lo.Uniq(carIDs)
	slices.Sort(ret)
	return ret
}

// Key renders a car set the way the ordered aggregate of the database does
func Key(carIDs []int64) string {
	return strings.Join(lo.Map(CarSet(carIDs), func(id int64, _ int) string {
		return strconv.FormatInt(id, 10)
	}), ",")
}

// aggregated car list per combo
func carLists(q repository.Querier) string {
	return q.Dialect().OrderedAggregateSelect("combo_id", "car_id", "cars", "combo_cars")
}

// Find returns the id of the combo for the track and exactly the given cars
func Find(
	ctx context.Context,
	conn repository.Querier,
	trackID int64,
	carIDs []int64,
) (int64, error) {
	var query string
	params := backend.Params{"trackID": trackID}
	if len(CarSet(carIDs)) == 0 {
		query = `select id from combos
	where track_id=:trackID and id not in (select combo_id from combo_cars)
	order by id limit 1`
	} else {
		query = fmt.Sprintf(`select c.id from combos c
	join (%s) cc on cc.combo_id=c.id
	where c.track_id=:trackID and cc.cars=:cars
	order by c.id limit 1`, carLists(conn))
		params["cars"] = Key(carIDs)
	}
	var id int64
	err := conn.QueryRow(ctx, query, params).Scan(&id)
	return id, repository.NotFound(err)
}

// Resolve returns the combo for track and cars, creating it if needed.
// The order of carIDs and duplicates in it do not matter.
func Resolve(
	ctx context.Context,
	conn repository.Querier,
	trackID int64,
	carIDs []int64,
) (int64, error) {
	id, err := Find(ctx, conn, trackID, carIDs)
	if err == nil || !errors.Is(err, repository.ErrNotFound) {
		return id, err
	}
	id, err = conn.InsertID(ctx,
		"insert into combos (track_id) values (:trackID)",
		backend.Params{"trackID": trackID})
	if err != nil {
		return 0, err
	}
	for _, carID := range CarSet(carIDs) {
		if _, err := conn.Exec(ctx,
			"insert into combo_cars (combo_id, car_id) values (:comboID, :carID)",
			backend.Params{"comboID": id, "carID": carID}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (*model.Combo, error) {
	item, err := backend.Get[model.Combo](ctx, conn,
		"select id,track_id from combos where id=:id", backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	if item.CarIDs, err = CarIDs(ctx, conn, id); err != nil {
		return nil, err
	}
	return &item, nil
}

func CarIDs(ctx context.Context, conn repository.Querier, comboID int64) ([]int64, error) {
	return backend.Column[int64](ctx, conn,
		"select car_id from combo_cars where combo_id=:id order by car_id",
		backend.Params{"id": comboID})
}

// Listing is a combo with its car set as rendered by Key
type Listing struct {
	ID      int64  `db:"id"`
	TrackID int64  `db:"track_id"`
	Cars    string `db:"cars"`
}

// LoadAll returns all combos ordered by id
func LoadAll(ctx context.Context, conn repository.Querier) ([]Listing, error) {
	return backend.Select[Listing](ctx, conn, fmt.Sprintf(`select c.id, c.track_id,
	coalesce(cc.cars, '') as cars from combos c
	left join (%s) cc on cc.combo_id=c.id
	order by c.id`, carLists(conn)), nil)
}

// Merge moves all references of combo from to combo into and deletes from
func Merge(ctx context.Context, conn repository.Querier, from, into int64) error {
	params := backend.Params{"from": from, "into": into}
	for _, stmt := range []string{
		"update sessions set combo_id=:into where combo_id=:from",
		"delete from combo_cars where combo_id=:from",
		"delete from combos where id=:from",
	} {
		if _, err := conn.Exec(ctx, stmt, params); err != nil {
			return err
		}
	}
	return nil
}
