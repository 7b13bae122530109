package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blacklist"
	"github.com/mpapenbr/racestore/pkg/repository/car"
	"github.com/mpapenbr/racestore/pkg/repository/combo"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
	"github.com/mpapenbr/racestore/pkg/repository/track"
)

const dayLayout = "2006-01-02"

// Statistics computes usage numbers for the time window of query.
// If query.Invalidate is set the matching laps are marked invalid.
//
//nolint:funlen // collects several independent aggregates
func (s *Store) Statistics(ctx context.Context, query StatisticsQuery) (*Statistics, error) {
	to := query.To
	if to.IsZero() {
		to = s.now()
	}
	ret := &Statistics{From: query.From, To: to}
	f := lap.Filter{}
	f.From, f.To = window(query.From, to)

	err := s.inTx(ctx, func(q repository.Querier) error {
		if query.Invalidate != nil {
			n, err := s.invalidate(ctx, q, f, query.Invalidate)
			if err != nil {
				return err
			}
			ret.InvalidatedLaps = n
		}
		var err error
		if ret.Laps, err = lap.Count(ctx, q, f); err != nil {
			return err
		}
		if ret.LapsPerTrack, err = countBy(ctx, q, f, lap.ByTrack); err != nil {
			return err
		}
		if ret.LapsPerCar, err = countBy(ctx, q, f, lap.ByCar); err != nil {
			return err
		}
		perCombo, err := countBy(ctx, q, f, lap.ByCombo)
		if err != nil {
			return err
		}
		if ret.LapsPerCombo, err = comboLabels(ctx, q, perCombo); err != nil {
			return err
		}
		if ret.PlayersPerDay, err = playersPerDay(ctx, q, f); err != nil {
			return err
		}
		ret.Bans, err = blacklist.CountAddedBetween(ctx, q, query.From.Unix(), to.Unix())
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func countBy(ctx context.Context, q repository.Querier, f lap.Filter, g lap.Grouping) (
	map[string]int64, error,
) {
	items, err := lap.CountBy(ctx, q, f, g)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(items, func(kc lap.KeyCount) (string, int64) {
		return kc.Key, kc.Count
	}), nil
}

// comboLabels replaces the combo ids by "track: car,car"
func comboLabels(ctx context.Context, q repository.Querier, counts map[string]int64) (
	map[string]int64, error,
) {
	ret := make(map[string]int64, len(counts))
	for key, cnt := range counts {
		label := key
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			if label, err = comboLabel(ctx, q, id); err != nil {
				return nil, err
			}
		}
		ret[label] += cnt
	}
	return ret, nil
}

func comboLabel(ctx context.Context, q repository.Querier, comboID int64) (string, error) {
	c, err := combo.LoadByID(ctx, q, comboID)
	if err != nil {
		return "", err
	}
	t, err := track.LoadByID(ctx, q, c.TrackID)
	if err != nil {
		return "", err
	}
	if len(c.CarIDs) == 0 {
		return t.Name, nil
	}
	cars, err := car.LoadByIDs(ctx, q, c.CarIDs)
	if err != nil {
		return "", err
	}
	names := lo.Map(cars, func(c model.Car, _ int) string { return c.Name })
	return fmt.Sprintf("%s: %s", t.Name, strings.Join(names, ",")), nil
}

// playersPerDay counts the distinct players driving a lap per UTC day
func playersPerDay(ctx context.Context, q repository.Querier, f lap.Filter) (
	map[string]int64, error,
) {
	items, err := lap.PlayerTimestamps(ctx, q, f)
	if err != nil {
		return nil, err
	}
	perDay := lo.GroupBy(items, func(p lap.PlayerLap) string {
		return time.Unix(p.Timestamp, 0).UTC().Format(dayLayout)
	})
	return lo.MapValues(perDay, func(laps []lap.PlayerLap, _ string) int64 {
		return int64(len(lo.UniqBy(laps, func(p lap.PlayerLap) int64 { return p.PlayerID })))
	}), nil
}

func (s *Store) invalidate(
	ctx context.Context,
	q repository.Querier,
	window lap.Filter,
	inv *InvalidateFilter,
) (int64, error) {
	f := window
	f.Track, f.Cars, f.GUID = inv.Track, inv.Cars, inv.GUID
	f.Valid = []int{1}
	var cond []string
	params := backend.Params{}
	if inv.MaxLapTime > 0 {
		cond = append(cond, "l.lap_time<:maxLapTime")
		params["maxLapTime"] = inv.MaxLapTime
	}
	if v, ok := inv.MaxCuts.Get(); ok {
		cond = append(cond, "l.cuts>:maxCuts")
		params["maxCuts"] = v
	}
	if len(cond) == 0 {
		return 0, fmt.Errorf("%w: invalidation needs a lap time or cut limit",
			ErrInvalidRequest)
	}
	ids, err := lap.IDs(ctx, q, f, "("+strings.Join(cond, " or ")+")", params)
	if err != nil {
		return 0, err
	}
	n, err := lap.Invalidate(ctx, q, ids)
	if err != nil {
		return 0, err
	}
	s.log.Warn("laps invalidated",
		log.Int("count", n),
		log.Int64s("laps", ids),
		log.String("track", inv.Track),
		log.Strings("cars", inv.Cars),
		log.String("guid", inv.GUID),
		log.Int64("maxLapTime", inv.MaxLapTime))
	return int64(n), nil
}
