//nolint:whitespace //can't make both the linter and editor happy :(
package pis

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

// ClientInfo is reported by the game client of a participant
type ClientInfo struct {
	TeamID      null.Val[int64]
	Checksum    null.Val[string]
	ACVersion   null.Val[string]
	InputMethod null.Val[string]
	Shifter     null.Val[int64]
}

// Ensure returns the participation of player with car in session.
// It is created on first use, afterwards the client info is refreshed.
func Ensure(
	ctx context.Context,
	conn repository.Querier,
	sessionID, playerID, carID int64,
	info ClientInfo,
) (int64, error) {
	params := backend.Params{
		"sessionID":   sessionID,
		"playerID":    playerID,
		"carID":       carID,
		"teamID":      info.TeamID,
		"checksum":    info.Checksum,
		"acVersion":   info.ACVersion,
		"inputMethod": info.InputMethod,
		"shifter":     info.Shifter,
	}
	var id int64
	err := conn.QueryRow(ctx, `select id from player_in_session
	where session_id=:sessionID and player_id=:playerID and car_id=:carID
	order by id limit 1`, params).Scan(&id)
	if err = repository.NotFound(err); err == nil {
		params["id"] = id
		_, err = conn.Exec(ctx, `update player_in_session set
	team_id=coalesce(:teamID, team_id),
	checksum=coalesce(:checksum, checksum),
	ac_version=coalesce(:acVersion, ac_version),
	input_method=coalesce(:inputMethod, input_method),
	shifter=coalesce(:shifter, shifter)
	where id=:id`, params)
		return id, err
	}
	if !repository.IsNotFound(err) {
		return 0, err
	}
	return conn.InsertID(ctx, `insert into player_in_session
	(session_id, player_id, car_id, team_id, checksum, ac_version, input_method, shifter)
	values (:sessionID, :playerID, :carID, :teamID, :checksum, :acVersion,
	:inputMethod, :shifter)`, params)
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (
	*model.PlayerInSession, error,
) {
	item, err := backend.Get[model.PlayerInSession](ctx, conn,
		fmt.Sprintf("%s where id=:id", selector), backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func LoadBySession(ctx context.Context, conn repository.Querier, sessionID int64) (
	[]model.PlayerInSession, error,
) {
	return backend.Select[model.PlayerInSession](ctx, conn,
		fmt.Sprintf("%s where session_id=:sessionID order by id", selector),
		backend.Params{"sessionID": sessionID})
}

func LoadBySessionAndPlayer(
	ctx context.Context,
	conn repository.Querier,
	sessionID, playerID int64,
) ([]model.PlayerInSession, error) {
	return backend.Select[model.PlayerInSession](ctx, conn,
		fmt.Sprintf("%s where session_id=:sessionID and player_id=:playerID order by id",
			selector),
		backend.Params{"sessionID": sessionID, "playerID": playerID})
}

// SetFinish stores the result of a participation
func SetFinish(
	ctx context.Context,
	conn repository.Querier,
	id int64,
	position int64,
	finishTime null.Val[int64],
) error {
	_, err := conn.Exec(ctx, `update player_in_session
	set finish_position=:position, finish_time=:finishTime where id=:id`,
		backend.Params{"position": position, "finishTime": finishTime, "id": id})
	return err
}

func SetPosition(ctx context.Context, conn repository.Querier, id, position int64) error {
	_, err := conn.Exec(ctx,
		"update player_in_session set finish_position=:position where id=:id",
		backend.Params{"position": position, "id": id})
	return err
}

// Participant is a participation joined with player, car and team names
type Participant struct {
	model.PlayerInSession
	GUID       string           `db:"steam_guid"`
	PlayerName string           `db:"player_name"`
	Car        string           `db:"car"`
	Team       null.Val[string] `db:"team"`
	Laps       int64            `db:"laps"`
	BestLap    null.Val[int64]  `db:"best_lap"`
}

func LoadParticipants(ctx context.Context, conn repository.Querier, sessionID int64) (
	[]Participant, error,
) {
	return backend.Select[Participant](ctx, conn, `select
	p.id, p.session_id, p.player_id, p.car_id, p.team_id, p.finish_position,
	p.finish_time, p.checksum, p.ac_version, p.input_method, p.shifter,
	pl.steam_guid, pl.name as player_name, c.name as car, t.name as team,
	(select count(*) from laps l where l.pis_id=p.id) as laps,
	(select min(l.lap_time) from laps l where l.pis_id=p.id and l.valid=1) as best_lap
	from player_in_session p
	join players pl on pl.id=p.player_id
	join cars c on c.id=p.car_id
	left join teams t on t.id=p.team_id
	where p.session_id=:sessionID
	order by coalesce(p.finish_position, 100000), p.id`,
		backend.Params{"sessionID": sessionID})
}

// little helper
const selector = string(`select id,session_id,player_id,car_id,team_id,
finish_position,finish_time,checksum,ac_version,input_method,shifter
from player_in_session`)
