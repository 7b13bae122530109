//nolint:whitespace //can't make both the linter and editor happy :(
package correction

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

// Upsert stores the correction of a participation, replacing an existing one
func Upsert(ctx context.Context, conn repository.Querier, c *model.PisCorrection) error {
	params := backend.Params{
		"pisID":       c.PisID,
		"deltaTime":   c.DeltaTime,
		"deltaPoints": c.DeltaPoints,
		"deltaLaps":   c.DeltaLaps,
		"comment":     c.Comment,
	}
	var id int64
	err := conn.QueryRow(ctx, "select id from pis_corrections where pis_id=:pisID",
		params).Scan(&id)
	if err = repository.NotFound(err); err == nil {
		params["id"] = id
		_, err = conn.Exec(ctx, `update pis_corrections set delta_time=:deltaTime,
	delta_points=:deltaPoints, delta_laps=:deltaLaps, comment=:comment where id=:id`, params)
		c.ID = id
		return err
	}
	if !repository.IsNotFound(err) {
		return err
	}
	id, err = conn.InsertID(ctx, `insert into pis_corrections
	(pis_id, delta_time, delta_points, delta_laps, comment)
	values (:pisID, :deltaTime, :deltaPoints, :deltaLaps, :comment)`, params)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// LoadBySession returns the corrections of a session keyed by pis id
func LoadBySession(ctx context.Context, conn repository.Querier, sessionID int64) (
	map[int64]model.PisCorrection, error,
) {
	items, err := backend.Select[model.PisCorrection](ctx, conn, `select
	c.id, c.pis_id, c.delta_time, c.delta_points, c.delta_laps, c.comment
	from pis_corrections c join player_in_session p on p.id=c.pis_id
	where p.session_id=:sessionID`, backend.Params{"sessionID": sessionID})
	if err != nil {
		return nil, err
	}
	ret := make(map[int64]model.PisCorrection, len(items))
	for _, item := range items {
		ret[item.PisID] = item
	}
	return ret, nil
}

func DeleteByPis(ctx context.Context, conn repository.Querier, pisID int64) (int, error) {
	return repository.RowsAffected(conn.Exec(ctx,
		"delete from pis_corrections where pis_id=:pisID",
		backend.Params{"pisID": pisID}))
}
