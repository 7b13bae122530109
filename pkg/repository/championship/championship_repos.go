//nolint:whitespace //can't make both the linter and editor happy :(
package championship

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func CreatePointSchema(ctx context.Context, conn repository.Querier, name, points string) (
	int64, error,
) {
	return conn.InsertID(ctx,
		"insert into cs_point_schemas (name, points) values (:name, :points)",
		backend.Params{"name": name, "points": points})
}

func CreateSeason(ctx context.Context, conn repository.Querier, name string, schemaID int64) (
	int64, error,
) {
	return conn.InsertID(ctx,
		"insert into cs_seasons (name, point_schema_id) values (:name, :schemaID)",
		backend.Params{"name": name, "schemaID": schemaID})
}

func CreateEvent(ctx context.Context, conn repository.Querier, e *model.Event) error {
	id, err := conn.InsertID(ctx, `insert into cs_events (season_id, name, event_date)
	values (:seasonID, :name, :eventDate)`,
		backend.Params{"seasonID": e.SeasonID, "name": e.Name, "eventDate": e.EventDate})
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func AssignSession(
	ctx context.Context,
	conn repository.Querier,
	eventID, sessionID int64,
	factor float64,
) (int64, error) {
	return conn.InsertID(ctx, `insert into cs_event_sessions
	(event_id, session_id, points_factor) values (:eventID, :sessionID, :factor)`,
		backend.Params{"eventID": eventID, "sessionID": sessionID, "factor": factor})
}

// LoadSeasonSchema returns the point schema of a season
func LoadSeasonSchema(ctx context.Context, conn repository.Querier, seasonID int64) (
	*model.PointSchema, error,
) {
	item, err := backend.Get[model.PointSchema](ctx, conn, `select
	ps.id, ps.name, ps.points from cs_point_schemas ps
	join cs_seasons s on s.point_schema_id=ps.id where s.id=:seasonID`,
		backend.Params{"seasonID": seasonID})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func LoadEvents(ctx context.Context, conn repository.Querier, seasonID int64) (
	[]model.Event, error,
) {
	return backend.Select[model.Event](ctx, conn, `select id, season_id, name, event_date
	from cs_events where season_id=:seasonID order by event_date, id`,
		backend.Params{"seasonID": seasonID})
}

// Result is the scoring relevant outcome of one participation in a season session
type Result struct {
	EventID        int64   `db:"event_id"`
	SessionID      int64   `db:"session_id"`
	PointsFactor   float64 `db:"points_factor"`
	PlayerID       int64   `db:"player_id"`
	GUID           string  `db:"steam_guid"`
	Name           string  `db:"name"`
	FinishPosition int64   `db:"finish_position"`
	DeltaPoints    int64   `db:"delta_points"`
}

// LoadResults returns all classified participations of the season's sessions
func LoadResults(ctx context.Context, conn repository.Querier, seasonID int64) (
	[]Result, error,
) {
	return backend.Select[Result](ctx, conn, `select
	es.event_id, es.session_id, es.points_factor, p.player_id, pl.steam_guid, pl.name,
	coalesce(p.finish_position, 1000) as finish_position,
	coalesce(c.delta_points, 0) as delta_points
	from cs_event_sessions es
	join cs_events e on e.id=es.event_id
	join player_in_session p on p.session_id=es.session_id
	join players pl on pl.id=p.player_id
	left join pis_corrections c on c.pis_id=p.id
	where e.season_id=:seasonID
	order by es.event_id, es.session_id, finish_position, p.id`,
		backend.Params{"seasonID": seasonID})
}
