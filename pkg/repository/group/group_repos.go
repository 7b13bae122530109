//nolint:whitespace //can't make both the linter and editor happy :(
package group

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, name string) (int64, error) {
	return conn.InsertID(ctx, "insert into player_groups (name) values (:name)",
		backend.Params{"name": name})
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]model.Named, error) {
	return backend.Select[model.Named](ctx, conn,
		"select id,name from player_groups order by name", nil)
}

// AddPlayer adds the player to the group. Adding a member twice is a no-op.
func AddPlayer(ctx context.Context, conn repository.Querier, groupID, playerID int64) error {
	params := backend.Params{"groupID": groupID, "playerID": playerID}
	var cnt int64
	if err := conn.QueryRow(ctx, `select count(*) from player_group_entries
	where group_id=:groupID and player_id=:playerID`, params).Scan(&cnt); err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	_, err := conn.Exec(ctx, `insert into player_group_entries (group_id, player_id)
	values (:groupID, :playerID)`, params)
	return err
}

func RemovePlayer(
	ctx context.Context,
	conn repository.Querier,
	groupID, playerID int64,
) (int, error) {
	return repository.RowsAffected(conn.Exec(ctx, `delete from player_group_entries
	where group_id=:groupID and player_id=:playerID`,
		backend.Params{"groupID": groupID, "playerID": playerID}))
}

func Members(ctx context.Context, conn repository.Querier, groupID int64) (
	[]model.Player, error,
) {
	return backend.Select[model.Player](ctx, conn, `select
	p.id,p.steam_guid,p.name,p.is_ai,p.whitelisted,p.is_online,p.message_opt_out
	from players p join player_group_entries e on e.player_id=p.id
	where e.group_id=:groupID order by p.name`,
		backend.Params{"groupID": groupID})
}

// IsMember reports whether the player is part of the group
func IsMember(ctx context.Context, conn repository.Querier, groupID, playerID int64) (
	bool, error,
) {
	var cnt int64
	err := conn.QueryRow(ctx, `select count(*) from player_group_entries
	where group_id=:groupID and player_id=:playerID`,
		backend.Params{"groupID": groupID, "playerID": playerID}).Scan(&cnt)
	return cnt > 0, err
}
