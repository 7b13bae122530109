package service

import (
	"context"
	"sort"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/correction"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
	"github.com/mpapenbr/racestore/pkg/repository/pis"
	"github.com/mpapenbr/racestore/pkg/repository/session"
)

// crossing is a pass of the finish line
type crossing struct {
	pisID    int64
	ts       int64 // ms, relative to the virtual race start
	lapCount int64
}

// RecalculateSessionPositions rebuilds the classification of a session from
// its lap times and the manual corrections. Without corrections the recorded
// positions are kept.
func (s *Store) RecalculateSessionPositions(ctx context.Context, sessionID int64) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		return s.recalculate(ctx, q, sessionID)
	})
}

// SetCorrection stores the correction of a participation and recalculates
// the classification of its session
func (s *Store) SetCorrection(ctx context.Context, c *model.PisCorrection) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		p, err := pis.LoadByID(ctx, q, c.PisID)
		if err != nil {
			return err
		}
		if err := correction.Upsert(ctx, q, c); err != nil {
			return err
		}
		s.log.Info("correction stored",
			log.Int64("pis", c.PisID),
			log.Int64("deltaTime", c.DeltaTime),
			log.Int64("deltaLaps", c.DeltaLaps),
			log.Int64("deltaPoints", c.DeltaPoints),
			log.String("comment", c.Comment))
		return s.recalculate(ctx, q, p.SessionID)
	})
}

//nolint:funlen,cyclop // one pass per phase
func (s *Store) recalculate(ctx context.Context, q repository.Querier, sessionID int64) error {
	sess, err := session.LoadByID(ctx, q, sessionID)
	if err != nil {
		return err
	}
	corrections, err := correction.LoadBySession(ctx, q, sessionID)
	if err != nil {
		return err
	}
	if len(corrections) == 0 {
		s.log.Debug("no corrections, keeping positions", log.Int64("session", sessionID))
		return nil
	}
	participants, err := pis.LoadBySession(ctx, q, sessionID)
	if err != nil {
		return err
	}

	var all []crossing
	for i := range participants {
		p := &participants[i]
		laps, err := lap.LapTimes(ctx, q, p.ID)
		if err != nil {
			return err
		}
		all = append(all, crossings(p, laps, corrections[p.ID])...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].ts < all[j].ts })

	required := sess.NumLaps.GetOr(0)
	if required <= 0 {
		for _, c := range all {
			required = max(required, c.lapCount)
		}
	}
	t0 := -1
	for i, c := range all {
		if c.lapCount >= required {
			t0 = i
			break
		}
	}
	if t0 < 0 {
		return nil
	}

	// first crossing at or after t0 per participant, the last one before
	// for those who did not cross again
	finished := map[int64]crossing{}
	last := map[int64]crossing{}
	for i, c := range all {
		if i < t0 {
			last[c.pisID] = c
			continue
		}
		if _, ok := finished[c.pisID]; !ok {
			finished[c.pisID] = c
		}
	}
	order := func(m map[int64]crossing) []crossing {
		ret := make([]crossing, 0, len(m))
		for _, c := range m {
			ret = append(ret, c)
		}
		sort.Slice(ret, func(i, j int) bool {
			if ret[i].lapCount != ret[j].lapCount {
				return ret[i].lapCount > ret[j].lapCount
			}
			if ret[i].ts != ret[j].ts {
				return ret[i].ts < ret[j].ts
			}
			return ret[i].pisID < ret[j].pisID
		})
		return ret
	}
	for id := range finished {
		delete(last, id)
	}
	ranking := append(order(finished), order(last)...)

	original := make(map[int64]model.PlayerInSession, len(participants))
	for _, p := range participants {
		original[p.ID] = p
	}
	for i, c := range ranking {
		pos := int64(i + 1)
		if old, ok := original[c.pisID].FinishPosition.Get(); ok && old >= model.DNFOffset {
			pos += model.DNFOffset
		}
		if err := pis.SetPosition(ctx, q, c.pisID, pos); err != nil {
			return err
		}
	}
	s.log.Info("positions recalculated",
		log.Int64("session", sessionID),
		log.Int("participants", len(ranking)),
		log.Int("corrections", len(corrections)))
	return nil
}

// crossings returns the finish line passes of a participant: the start and
// the end of every lap. The start is derived from the recorded finish time
// and the lap times, shifted by the correction.
func crossings(p *model.PlayerInSession, laps []int64, c model.PisCorrection) []crossing {
	var total int64
	for _, l := range laps {
		total += l
	}
	start := p.FinishTime.GetOr(total) - total + c.DeltaTime
	ret := make([]crossing, 0, len(laps)+1)
	ret = append(ret, crossing{pisID: p.ID, ts: start, lapCount: c.DeltaLaps})
	ts := start
	for k, l := range laps {
		ts += l
		ret = append(ret, crossing{pisID: p.ID, ts: ts, lapCount: int64(k+1) + c.DeltaLaps})
	}
	return ret
}
