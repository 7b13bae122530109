//nolint:whitespace //can't make both the linter and editor happy :(
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, s *model.Session) error {
	id, err := conn.InsertID(ctx, `insert into sessions (combo_id, session_type, name,
	num_laps, duration, server, multiplayer, finished, penalties_enabled,
	allowed_tyres_out, tyre_wear_factor, fuel_rate, damage, start_time_date)
	values (:comboID, :sessionType, :name, :numLaps, :duration, :server, :multiplayer,
	:finished, :penaltiesEnabled, :allowedTyresOut, :tyreWearFactor, :fuelRate, :damage,
	:start)`,
		backend.Params{
			"comboID":          s.ComboID,
			"sessionType":      s.SessionType,
			"name":             s.Name,
			"numLaps":          s.NumLaps,
			"duration":         s.Duration,
			"server":           s.Server,
			"multiplayer":      s.Multiplayer,
			"finished":         s.Finished,
			"penaltiesEnabled": s.PenaltiesEnabled,
			"allowedTyresOut":  s.AllowedTyresOut,
			"tyreWearFactor":   s.TyreWearFactor,
			"fuelRate":         s.FuelRate,
			"damage":           s.Damage,
			"start":            s.StartTimeDate,
		})
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (*model.Session, error) {
	item, err := backend.Get[model.Session](ctx, conn,
		fmt.Sprintf("%s where id=:id", selector), backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

func SetCombo(ctx context.Context, conn repository.Querier, id, comboID int64) error {
	_, err := conn.Exec(ctx, "update sessions set combo_id=:comboID where id=:id",
		backend.Params{"comboID": comboID, "id": id})
	return err
}

// Finish marks the session as finished at unix time end
func Finish(ctx context.Context, conn repository.Querier, id, end int64) error {
	_, err := conn.Exec(ctx,
		"update sessions set finished=1, end_time_date=:end where id=:id",
		backend.Params{"end": end, "id": id})
	return err
}

// Summary is a session together with its track and participant count
type Summary struct {
	model.Session
	Track        string `db:"track"`
	Participants int64  `db:"participants"`
}

type Filter struct {
	Track       string
	SessionType string
	Server      string
	From, To    null.Val[int64] // unix seconds, compared with start_time_date
	Limit       int
	Offset      int
}

func (f *Filter) where() (string, backend.Params) {
	where := []string{"1=1"}
	params := backend.Params{}
	if f.Track != "" {
		where = append(where, "t.name=:track")
		params["track"] = f.Track
	}
	if f.SessionType != "" {
		where = append(where, "s.session_type=:sessionType")
		params["sessionType"] = f.SessionType
	}
	if f.Server != "" {
		where = append(where, "s.server=:server")
		params["server"] = f.Server
	}
	if v, ok := f.From.Get(); ok {
		where = append(where, "s.start_time_date>=:from")
		params["from"] = v
	}
	if v, ok := f.To.Get(); ok {
		where = append(where, "s.start_time_date<:to")
		params["to"] = v
	}
	return strings.Join(where, " and "), params
}

// List returns the matching sessions (newest first) and the total number of matches
func List(ctx context.Context, conn repository.Querier, f Filter) ([]Summary, int64, error) {
	where, params := f.where()
	from := `from sessions s
	left join combos c on c.id=s.combo_id
	left join tracks t on t.id=c.track_id`
	var total int64
	if err := conn.QueryRow(ctx,
		fmt.Sprintf("select count(*) %s where %s", from, where), params).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`select %s, coalesce(t.name, '') as track,
	(select count(*) from player_in_session p where p.session_id=s.id) as participants
	%s where %s order by s.start_time_date desc, s.id desc`, columns("s."), from, where)
	if f.Limit > 0 {
		query += " limit :limit offset :offset"
		params["limit"] = f.Limit
		params["offset"] = f.Offset
	}
	items, err := backend.Select[Summary](ctx, conn, query, params)
	return items, total, err
}

// IDsInWindow returns the sessions started within [from, to)
func IDsInWindow(ctx context.Context, conn repository.Querier, from, to int64) (
	[]int64, error,
) {
	return backend.Column[int64](ctx, conn,
		`select id from sessions where start_time_date>=:from and start_time_date<:to
	order by id`,
		backend.Params{"from": from, "to": to})
}

var columnNames = []string{
	"id", "combo_id", "session_type", "name", "num_laps", "duration", "server",
	"multiplayer", "finished", "penalties_enabled", "allowed_tyres_out",
	"tyre_wear_factor", "fuel_rate", "damage", "start_time_date", "end_time_date",
}

func columns(prefix string) string {
	cols := make([]string, len(columnNames))
	for i, c := range columnNames {
		cols[i] = prefix + c
	}
	return strings.Join(cols, ",")
}

// little helper
var selector = fmt.Sprintf("select %s from sessions", columns(""))
