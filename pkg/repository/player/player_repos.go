//nolint:whitespace //can't make both the linter and editor happy :(
package player

import (
	"context"
	"fmt"
	"strings"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

// Flag names a boolean column of the players table
type Flag string

const (
	FlagOnline        Flag = "is_online"
	FlagWhitelisted   Flag = "whitelisted"
	FlagMessageOptOut Flag = "message_opt_out"
)

// Ensure returns the player with guid. A new player is created if needed,
// the name and ai flag of an existing player are updated.
func Ensure(
	ctx context.Context,
	conn repository.Querier,
	guid, name string,
	isAI bool,
) (*model.Player, error) {
	p, err := LoadByGUID(ctx, conn, guid)
	switch {
	case err == nil:
		if p.Name != name || p.IsAI != isAI {
			if _, err := conn.Exec(ctx,
				"update players set name=:name, is_ai=:isAI where id=:id",
				backend.Params{"name": name, "isAI": isAI, "id": p.ID}); err != nil {
				return nil, err
			}
			p.Name, p.IsAI = name, isAI
		}
		return p, nil
	case repository.IsNotFound(err):
		id, err := conn.InsertID(ctx,
			"insert into players (steam_guid, name, is_ai) values (:guid, :name, :isAI)",
			backend.Params{"guid": guid, "name": name, "isAI": isAI})
		if err != nil {
			return nil, err
		}
		return &model.Player{ID: id, SteamGUID: guid, Name: name, IsAI: isAI}, nil
	default:
		return nil, err
	}
}

func LoadByGUID(ctx context.Context, conn repository.Querier, guid string) (
	*model.Player, error,
) {
	item, err := backend.Get[model.Player](ctx, conn,
		fmt.Sprintf("%s where steam_guid=:guid", selector), backend.Params{"guid": guid})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (
	*model.Player, error,
) {
	item, err := backend.Get[model.Player](ctx, conn,
		fmt.Sprintf("%s where id=:id", selector), backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

type Filter struct {
	Search     string // part of the name, case insensitive
	OnlineOnly bool
	Limit      int
	Offset     int
}

func List(ctx context.Context, conn repository.Querier, f Filter) ([]model.Player, error) {
	where := []string{"1=1"}
	params := backend.Params{}
	if f.Search != "" {
		where = append(where, "lower(name) like :search")
		params["search"] = "%" + strings.ToLower(f.Search) + "%"
	}
	if f.OnlineOnly {
		where = append(where, "is_online=1")
	}
	query := fmt.Sprintf("%s where %s order by name, id", selector, strings.Join(where, " and "))
	if f.Limit > 0 {
		query += " limit :limit offset :offset"
		params["limit"] = f.Limit
		params["offset"] = f.Offset
	}
	return backend.Select[model.Player](ctx, conn, query, params)
}

// SetFlag changes a flag of the player, returns the number of updated rows
func SetFlag(
	ctx context.Context,
	conn repository.Querier,
	guid string,
	flag Flag,
	value bool,
) (int, error) {
	switch flag {
	case FlagOnline, FlagWhitelisted, FlagMessageOptOut:
	default:
		return 0, fmt.Errorf("unknown player flag %q", flag)
	}
	return repository.RowsAffected(conn.Exec(ctx,
		fmt.Sprintf("update players set %s=:value where steam_guid=:guid", flag),
		backend.Params{"value": value, "guid": guid}))
}

// little helper
const selector = string(`select id,steam_guid,name,is_ai,whitelisted,is_online,
message_opt_out from players`)
