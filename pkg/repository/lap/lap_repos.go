//nolint:whitespace //can't make both the linter and editor happy :(
package lap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, l *model.Lap) error {
	id, err := conn.InsertID(ctx, `insert into laps (pis_id, tyre_id, lap_bin_blob_id,
	lap_count, session_time, lap_time,
	sector_time0, sector_time1, sector_time2, sector_time3, sector_time4,
	sector_time5, sector_time6, sector_time7, sector_time8, sector_time9,
	valid, ts, cuts, fuel_ratio, max_speed,
	aid_abs, aid_tc, aid_auto_blip, aid_auto_brake, aid_auto_clutch, aid_auto_shift,
	aid_ideal_line, aid_stability_control, aid_tyre_blankets,
	grip_level, ambient_temp, road_temp)
	values (:pisID, :tyreID, :blobID, :lapCount, :sessionTime, :lapTime,
	:s0, :s1, :s2, :s3, :s4, :s5, :s6, :s7, :s8, :s9,
	:valid, :ts, :cuts, :fuelRatio, :maxSpeed,
	:abs, :tc, :autoBlip, :autoBrake, :autoClutch, :autoShift,
	:idealLine, :stabilityControl, :tyreBlankets,
	:gripLevel, :ambientTemp, :roadTemp)`,
		backend.Params{
			"pisID":            l.PisID,
			"tyreID":           l.TyreID,
			"blobID":           l.LapBinBlobID,
			"lapCount":         l.LapCount,
			"sessionTime":      l.SessionTime,
			"lapTime":          l.LapTime,
			"s0":               l.SectorTime0,
			"s1":               l.SectorTime1,
			"s2":               l.SectorTime2,
			"s3":               l.SectorTime3.GetOr(model.SectorSentinel),
			"s4":               l.SectorTime4.GetOr(model.SectorSentinel),
			"s5":               l.SectorTime5.GetOr(model.SectorSentinel),
			"s6":               l.SectorTime6.GetOr(model.SectorSentinel),
			"s7":               l.SectorTime7.GetOr(model.SectorSentinel),
			"s8":               l.SectorTime8.GetOr(model.SectorSentinel),
			"s9":               l.SectorTime9.GetOr(model.SectorSentinel),
			"valid":            l.Valid,
			"ts":               l.Timestamp,
			"cuts":             l.Cuts,
			"fuelRatio":        l.FuelRatio,
			"maxSpeed":         l.MaxSpeed,
			"abs":              l.AidABS,
			"tc":               l.AidTC,
			"autoBlip":         l.AidAutoBlip,
			"autoBrake":        l.AidAutoBrake,
			"autoClutch":       l.AidAutoClutch,
			"autoShift":        l.AidAutoShift,
			"idealLine":        l.AidIdealLine,
			"stabilityControl": l.AidStabilityControl,
			"tyreBlankets":     l.AidTyreBlankets,
			"gripLevel":        l.GripLevel,
			"ambientTemp":      l.AmbientTemp,
			"roadTemp":         l.RoadTemp,
		})
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (*model.Lap, error) {
	item, err := backend.Get[model.Lap](ctx, conn,
		fmt.Sprintf("%s where id=:id", selector), backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

// SetValid changes the validity of a lap, returns the number of updated rows
func SetValid(ctx context.Context, conn repository.Querier, id int64, valid bool) (
	int, error,
) {
	return repository.RowsAffected(conn.Exec(ctx,
		"update laps set valid=:valid where id=:id",
		backend.Params{"valid": valid, "id": id}))
}

// LapTimes returns the lap times of a participation in driving order
func LapTimes(ctx context.Context, conn repository.Querier, pisID int64) ([]int64, error) {
	return backend.Column[int64](ctx, conn,
		"select lap_time from laps where pis_id=:pisID order by lap_count, id",
		backend.Params{"pisID": pisID})
}

// Filter selects laps for the aggregating queries. Zero values do not filter.
type Filter struct {
	Track     string
	Cars      []string
	GUID      string
	Valid     []int
	From, To  null.Val[int64] // unix seconds, [From, To)
	Server    string
	GroupID   null.Val[int64]
	Tyres     []string
	SessionID null.Val[int64]
	ComboID   null.Val[int64]
}

const fromClause = `from laps l
join player_in_session p on p.id=l.pis_id
join players pl on pl.id=p.player_id
join cars c on c.id=p.car_id
join sessions s on s.id=p.session_id
left join combos co on co.id=s.combo_id
left join tracks t on t.id=co.track_id
left join tyre_compounds ty on ty.id=l.tyre_id`

//nolint:cyclop // one branch per filter
func (f *Filter) where() (string, backend.Params) {
	where := []string{"1=1"}
	params := backend.Params{}
	add := func(cond, name string, value any) {
		where = append(where, cond)
		params[name] = value
	}
	if f.Track != "" {
		add("t.name=:track", "track", f.Track)
	}
	if len(f.Cars) > 0 {
		add("c.name in (:cars)", "cars", f.Cars)
	}
	if f.GUID != "" {
		add("pl.steam_guid=:guid", "guid", f.GUID)
	}
	if len(f.Valid) > 0 {
		add("l.valid in (:valid)", "valid", f.Valid)
	}
	if v, ok := f.From.Get(); ok {
		add("l.ts>=:from", "from", v)
	}
	if v, ok := f.To.Get(); ok {
		add("l.ts<:to", "to", v)
	}
	if f.Server != "" {
		add("s.server=:server", "server", f.Server)
	}
	if v, ok := f.GroupID.Get(); ok {
		add(`p.player_id in
	(select player_id from player_group_entries where group_id=:groupID)`, "groupID", v)
	}
	if len(f.Tyres) > 0 {
		add("ty.name in (:tyres)", "tyres", f.Tyres)
	}
	if v, ok := f.SessionID.Get(); ok {
		add("s.id=:sessionID", "sessionID", v)
	}
	if v, ok := f.ComboID.Get(); ok {
		add("s.combo_id=:comboID", "comboID", v)
	}
	return strings.Join(where, " and "), params
}

// Ranked is a lap together with the names needed for leaderboards
type Ranked struct {
	LapID        int64            `db:"id"`
	PisID        int64            `db:"pis_id"`
	PlayerID     int64            `db:"player_id"`
	GUID         string           `db:"steam_guid"`
	PlayerName   string           `db:"player_name"`
	CarID        int64            `db:"car_id"`
	Car          string           `db:"car"`
	Track        null.Val[string] `db:"track"`
	ComboID      null.Val[int64]  `db:"combo_id"`
	Tyre         null.Val[string] `db:"tyre"`
	LapCount     int64            `db:"lap_count"`
	LapTime      int64            `db:"lap_time"`
	SectorTime0  null.Val[int64]  `db:"sector_time0"`
	SectorTime1  null.Val[int64]  `db:"sector_time1"`
	SectorTime2  null.Val[int64]  `db:"sector_time2"`
	SectorTime3  null.Val[int64]  `db:"sector_time3"`
	SectorTime4  null.Val[int64]  `db:"sector_time4"`
	SectorTime5  null.Val[int64]  `db:"sector_time5"`
	SectorTime6  null.Val[int64]  `db:"sector_time6"`
	SectorTime7  null.Val[int64]  `db:"sector_time7"`
	SectorTime8  null.Val[int64]  `db:"sector_time8"`
	SectorTime9  null.Val[int64]  `db:"sector_time9"`
	Valid        bool             `db:"valid"`
	Timestamp    null.Val[int64]  `db:"ts"`
	LapBinBlobID null.Val[int64]  `db:"lap_bin_blob_id"`
}

// Sectors returns the sector times, sentinel values are null
func (r *Ranked) Sectors() []null.Val[int64] {
	return model.SectorsFromRaw(r.rawSectors())
}

func (r *Ranked) rawSectors() []null.Val[int64] {
	return []null.Val[int64]{
		r.SectorTime0, r.SectorTime1, r.SectorTime2, r.SectorTime3, r.SectorTime4,
		r.SectorTime5, r.SectorTime6, r.SectorTime7, r.SectorTime8, r.SectorTime9,
	}
}

const rankedColumns = `l.id, l.pis_id, p.player_id, pl.steam_guid, pl.name as player_name,
p.car_id, c.name as car, t.name as track, s.combo_id, ty.name as tyre, l.lap_count,
l.lap_time, l.sector_time0, l.sector_time1, l.sector_time2, l.sector_time3,
l.sector_time4, l.sector_time5, l.sector_time6, l.sector_time7, l.sector_time8,
l.sector_time9, l.valid, l.ts, l.lap_bin_blob_id`

// Ranking returns the laps matching f, fastest first
func Ranking(ctx context.Context, conn repository.Querier, f Filter) ([]Ranked, error) {
	where, params := f.where()
	return backend.Select[Ranked](ctx, conn, fmt.Sprintf(
		"select %s %s where %s order by l.lap_time, l.id", rankedColumns, fromClause, where),
		params)
}

// Best returns the fastest lap matching f
func Best(ctx context.Context, conn repository.Querier, f Filter) (*Ranked, error) {
	where, params := f.where()
	item, err := backend.Get[Ranked](ctx, conn, fmt.Sprintf(
		"select %s %s where %s order by l.lap_time, l.id limit 1",
		rankedColumns, fromClause, where), params)
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

// BestTime returns the fastest lap time matching f
func BestTime(ctx context.Context, conn repository.Querier, f Filter) (
	null.Val[int64], error,
) {
	where, params := f.where()
	var ret null.Val[int64]
	err := conn.QueryRow(ctx, fmt.Sprintf(
		"select min(l.lap_time) %s where %s", fromClause, where), params).Scan(&ret)
	return ret, err
}

// SectorBests returns the fastest time of each sector over all laps matching f
func SectorBests(ctx context.Context, conn repository.Querier, f Filter) (
	[]null.Val[int64], error,
) {
	where, params := f.where()
	cols := make([]string, model.MaxSectors)
	ret := make([]null.Val[int64], model.MaxSectors)
	dest := make([]any, model.MaxSectors)
	for i := range cols {
		cols[i] = fmt.Sprintf("min(l.sector_time%d)", i)
		dest[i] = &ret[i]
	}
	err := conn.QueryRow(ctx, fmt.Sprintf("select %s %s where %s",
		strings.Join(cols, ","), fromClause, where), params).Scan(dest...)
	if err != nil {
		return nil, err
	}
	return model.SectorsFromRaw(ret), nil
}

// Count returns the number of laps matching f
func Count(ctx context.Context, conn repository.Querier, f Filter) (int64, error) {
	where, params := f.where()
	var ret int64
	err := conn.QueryRow(ctx, fmt.Sprintf(
		"select count(*) %s where %s", fromClause, where), params).Scan(&ret)
	return ret, err
}

// Grouping names the dimensions CountBy can group by
type Grouping string

const (
	ByTrack Grouping = "t.name"
	ByCar   Grouping = "c.name"
	ByCombo Grouping = "s.combo_id"
)

type KeyCount struct {
	Key   string `db:"k"`
	Count int64  `db:"cnt"`
}

// CountBy returns the number of laps matching f per group
func CountBy(ctx context.Context, conn repository.Querier, f Filter, g Grouping) (
	[]KeyCount, error,
) {
	switch g {
	case ByTrack, ByCar, ByCombo:
	default:
		return nil, fmt.Errorf("unknown grouping %q", g)
	}
	where, params := f.where()
	return backend.Select[KeyCount](ctx, conn, fmt.Sprintf(`select
	coalesce(cast(%[1]s as text), '') as k, count(*) as cnt
	%[2]s where %[3]s group by %[1]s order by cnt desc, k`, g, fromClause, where), params)
}

type PlayerLap struct {
	PlayerID  int64 `db:"player_id"`
	Timestamp int64 `db:"ts"`
}

// PlayerTimestamps returns player and timestamp of the laps matching f
func PlayerTimestamps(ctx context.Context, conn repository.Querier, f Filter) (
	[]PlayerLap, error,
) {
	where, params := f.where()
	return backend.Select[PlayerLap](ctx, conn, fmt.Sprintf(
		"select p.player_id, l.ts %s where %s and l.ts is not null order by l.ts",
		fromClause, where), params)
}

// IDs returns the ids of the laps matching f and extra, a condition on the
// columns of the lap query using only named parameters from extraParams.
func IDs(
	ctx context.Context,
	conn repository.Querier,
	f Filter,
	extra string,
	extraParams backend.Params,
) ([]int64, error) {
	where, params := f.where()
	if extra != "" {
		where += " and " + extra
		for k, v := range extraParams {
			params[k] = v
		}
	}
	return backend.Column[int64](ctx, conn, fmt.Sprintf(
		"select l.id %s where %s order by l.id", fromClause, where), params)
}

// Invalidate marks the given laps invalid, returns the number of updated rows
func Invalidate(ctx context.Context, conn repository.Querier, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return repository.RowsAffected(conn.Exec(ctx,
		"update laps set valid=0 where id in (:ids)", backend.Params{"ids": ids}))
}

// little helper
const selector = string(`select id,pis_id,tyre_id,lap_bin_blob_id,lap_count,
session_time,lap_time,sector_time0,sector_time1,sector_time2,sector_time3,
sector_time4,sector_time5,sector_time6,sector_time7,sector_time8,sector_time9,
valid,ts,cuts,fuel_ratio,max_speed,aid_abs,aid_tc,aid_auto_blip,aid_auto_brake,
aid_auto_clutch,aid_auto_shift,aid_ideal_line,aid_stability_control,
aid_tyre_blankets,grip_level,ambient_temp,road_temp from laps`)
