//nolint:whitespace //can't make both the linter and editor happy :(
package service

import (
	"context"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository/blacklist"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
	"github.com/mpapenbr/racestore/pkg/repository/player"
)

func (s *Store) ListPlayers(ctx context.Context, f player.Filter) ([]model.Player, error) {
	return player.List(ctx, s.db, f)
}

// PlayerDetails returns the player with lap counts and the best valid lap
// per track and car
func (s *Store) PlayerDetails(ctx context.Context, guid string) (*PlayerDetails, error) {
	p, err := player.LoadByGUID(ctx, s.db, guid)
	if err != nil {
		return nil, err
	}
	ret := &PlayerDetails{
		GUID:          p.SteamGUID,
		Name:          p.Name,
		IsAI:          p.IsAI,
		Whitelisted:   p.Whitelisted,
		IsOnline:      p.IsOnline,
		MessageOptOut: p.MessageOptOut,
	}
	f := lap.Filter{GUID: guid}
	if ret.Laps, err = lap.Count(ctx, s.db, f); err != nil {
		return nil, err
	}
	f.Valid = []int{1}
	if ret.ValidLaps, err = lap.Count(ctx, s.db, f); err != nil {
		return nil, err
	}
	laps, err := lap.Ranking(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	type key struct{ track, car string }
	keyOf := func(r lap.Ranked) key { return key{r.Track.GetOr(""), r.Car} }
	groups := lo.GroupBy(laps, keyOf)
	// laps is ordered fastest first, GroupBy keeps the order within a group
	for _, r := range lo.UniqBy(laps, keyOf) {
		k := keyOf(r)
		times := lo.Map(groups[k], func(r lap.Ranked, _ int) float64 {
			return float64(r.LapTime)
		})
		best := ComboBest{Track: k.track, Car: k.car, LapTime: r.LapTime, Laps: len(times)}
		if len(times) > 1 {
			best.Mean, best.StdDev = stat.MeanStdDev(times, nil)
		} else {
			best.Mean = times[0]
		}
		ret.Best = append(ret.Best, best)
	}
	bans, err := blacklist.ActiveForPlayer(ctx, s.db, p.ID, s.now().Unix())
	if err != nil {
		return nil, err
	}
	ret.Blacklisted = len(bans) > 0
	return ret, nil
}

func (s *Store) SetPlayerOnline(ctx context.Context, guid string, online bool) error {
	return s.setFlag(ctx, guid, player.FlagOnline, online)
}

func (s *Store) SetWhitelisted(ctx context.Context, guid string, whitelisted bool) error {
	return s.setFlag(ctx, guid, player.FlagWhitelisted, whitelisted)
}

func (s *Store) SetMessageOptOut(ctx context.Context, guid string, optOut bool) error {
	return s.setFlag(ctx, guid, player.FlagMessageOptOut, optOut)
}

func (s *Store) setFlag(ctx context.Context, guid string, flag player.Flag, value bool) error {
	n, err := player.SetFlag(ctx, s.db, guid, flag, value)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.log.Debug("player flag changed",
		log.String("guid", guid), log.String("flag", string(flag)), log.Bool("value", value))
	return nil
}
