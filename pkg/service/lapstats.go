package service

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
)

const defaultLapStatsLimit = 30

type groupKey struct {
	playerID int64
	carID    int64
}

// keyFunc returns the grouping of a mode. nil means no grouping.
func (m LapStatsMode) keyFunc() (func(r lap.Ranked) groupKey, error) {
	switch m {
	case ModeTop, "":
		return func(r lap.Ranked) groupKey { return groupKey{r.PlayerID, r.CarID} }, nil
	case ModeTopPlayer:
		return func(r lap.Ranked) groupKey { return groupKey{playerID: r.PlayerID} }, nil
	case ModeTopCar:
		return func(r lap.Ranked) groupKey { return groupKey{carID: r.CarID} }, nil
	case ModeAll:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown lap stats mode %q", ErrInvalidRequest, m)
	}
}

func (q *LapStatsQuery) filter() lap.Filter {
	f := lap.Filter{
		Track:   q.Track,
		Cars:    q.Cars,
		Valid:   q.Valid,
		Server:  q.Server,
		GroupID: q.GroupID,
		Tyres:   q.Tyres,
	}
	if len(f.Valid) == 0 {
		f.Valid = []int{1}
	}
	f.From, f.To = window(q.From, q.To)
	return f
}

// LapStats returns a page of the leaderboard selected by query.
// With a nil offset the page is centered on the rank of the ego player.
func (s *Store) LapStats(ctx context.Context, query LapStatsQuery) (*LapStats, error) {
	key, err := query.Mode.keyFunc()
	if err != nil {
		return nil, err
	}
	f := query.filter()
	laps, err := lap.Ranking(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	if key != nil {
		// laps are ordered fastest first, the first one of a group is its best
		laps = lo.UniqBy(laps, key)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultLapStatsLimit
	}
	ret := &LapStats{Total: len(laps)}
	if query.Offset != nil {
		ret.Offset = *query.Offset
	} else {
		ret.Offset = centerOn(laps, query.EgoGUID, limit)
	}
	ret.Offset = max(0, min(ret.Offset, len(laps)))
	page := laps[ret.Offset:min(ret.Offset+limit, len(laps))]
	ret.Rows = make([]LapStatsRow, len(page))
	for i := range page {
		r := &page[i]
		ret.Rows[i] = LapStatsRow{
			Pos:       ret.Offset + i + 1,
			LapID:     r.LapID,
			GUID:      r.GUID,
			Name:      r.PlayerName,
			Car:       r.Car,
			Tyre:      r.Tyre,
			LapTime:   r.LapTime,
			Gap:       r.LapTime - laps[0].LapTime,
			Sectors:   r.Sectors(),
			LapCount:  r.LapCount,
			Valid:     r.Valid,
			Timestamp: r.Timestamp,
		}
	}
	if len(laps) > 0 {
		ret.BestLap = null.From(laps[0].LapTime)
	}

	// auxiliary values degrade to empty results
	if ret.BestSectors, err = lap.SectorBests(ctx, s.db, f); err != nil {
		s.log.Warn("cannot compute best sectors", log.ErrorField(err))
		ret.BestSectors = nil
	}
	if ret.BestLapPerCar, err = s.bestLapPerCar(ctx, query); err != nil {
		s.log.Warn("cannot compute best laps per car", log.ErrorField(err))
		ret.BestLapPerCar = nil
	}
	return ret, nil
}

// centerOn returns the offset of a page of size limit around the first lap
// of guid. Without such a lap the first page is used.
func centerOn(laps []lap.Ranked, guid string, limit int) int {
	if guid == "" {
		return 0
	}
	_, idx, found := lo.FindIndexOf(laps, func(r lap.Ranked) bool { return r.GUID == guid })
	if !found {
		return 0
	}
	offset := idx - limit/2
	return max(0, min(offset, len(laps)-limit))
}

// bestLapPerCar ignores player related filters of the query
func (s *Store) bestLapPerCar(ctx context.Context, query LapStatsQuery) (
	map[string]int64, error,
) {
	f := lap.Filter{Track: query.Track, Cars: query.Cars, Valid: []int{1}}
	laps, err := lap.Ranking(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	ret := map[string]int64{}
	for _, r := range lo.UniqBy(laps, func(r lap.Ranked) int64 { return r.CarID }) {
		ret[r.Car] = r.LapTime
	}
	return ret, nil
}
