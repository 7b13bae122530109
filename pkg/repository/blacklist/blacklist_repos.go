//nolint:whitespace //can't make both the linter and editor happy :(
package blacklist

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Add(ctx context.Context, conn repository.Querier, e *model.BlacklistEntry) error {
	id, err := conn.InsertID(ctx, `insert into blacklist
	(player_id, added_at, duration, reason) values (:playerID, :addedAt, :duration, :reason)`,
		backend.Params{
			"playerID": e.PlayerID,
			"addedAt":  e.AddedAt,
			"duration": e.Duration,
			"reason":   e.Reason,
		})
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func RemovePlayer(ctx context.Context, conn repository.Querier, playerID int64) (int, error) {
	return repository.RowsAffected(conn.Exec(ctx,
		"delete from blacklist where player_id=:playerID",
		backend.Params{"playerID": playerID}))
}

// Active returns the bans in effect at unix time now
func Active(ctx context.Context, conn repository.Querier, now int64) (
	[]model.BlacklistEntry, error,
) {
	return backend.Select[model.BlacklistEntry](ctx, conn, `select
	id,player_id,added_at,duration,reason from blacklist
	where duration=0 or added_at+duration>:now order by added_at, id`,
		backend.Params{"now": now})
}

// ActiveForPlayer returns the bans of a player in effect at unix time now
func ActiveForPlayer(
	ctx context.Context,
	conn repository.Querier,
	playerID, now int64,
) ([]model.BlacklistEntry, error) {
	return backend.Select[model.BlacklistEntry](ctx, conn, `select
	id,player_id,added_at,duration,reason from blacklist
	where player_id=:playerID and (duration=0 or added_at+duration>:now)
	order by added_at, id`,
		backend.Params{"playerID": playerID, "now": now})
}

// CountAddedBetween counts the bans issued within [from, to)
func CountAddedBetween(ctx context.Context, conn repository.Querier, from, to int64) (
	int64, error,
) {
	var ret int64
	err := conn.QueryRow(ctx,
		"select count(*) from blacklist where added_at>=:from and added_at<:to",
		backend.Params{"from": from, "to": to}).Scan(&ret)
	return ret, err
}
