//nolint:whitespace //can't make both the linter and editor happy :(
package service

import (
	"context"
	"errors"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blob"
	"github.com/mpapenbr/racestore/pkg/repository/car"
	"github.com/mpapenbr/racestore/pkg/repository/combo"
	"github.com/mpapenbr/racestore/pkg/repository/correction"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
	"github.com/mpapenbr/racestore/pkg/repository/pis"
	"github.com/mpapenbr/racestore/pkg/repository/session"
	"github.com/mpapenbr/racestore/pkg/repository/track"
	"github.com/mpapenbr/racestore/pkg/telemetry"
)

func (q BestLapQuery) filter() lap.Filter {
	f := lap.Filter{Track: q.Track, GUID: q.GUID}
	if q.Car != "" {
		f.Cars = []string{q.Car}
	}
	if q.ValidOnly {
		f.Valid = []int{1}
	}
	return f
}

// GetBestLap returns the fastest lap matching query together with its
// trajectory. A missing or unreadable trajectory is reported as nil.
func (s *Store) GetBestLap(ctx context.Context, query BestLapQuery) (*BestLap, error) {
	best, err := lap.Best(ctx, s.db, query.filter())
	if err != nil {
		return nil, err
	}
	ret := &BestLap{
		LapID:      best.LapID,
		LapTime:    best.LapTime,
		Sectors:    best.Sectors(),
		GUID:       best.GUID,
		PlayerName: best.PlayerName,
		Car:        best.Car,
		Track:      best.Track.GetOr(""),
		Tyre:       best.Tyre,
		Timestamp:  best.Timestamp,
	}
	data, err := blob.LoadForLap(ctx, s.db, best.LapID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ret, nil
	case err != nil:
		return nil, err
	}
	if t, ok := telemetry.Decode(data); ok {
		ret.Trajectory = &t
	} else {
		s.log.Warn("unreadable trajectory", log.Int64("lap", best.LapID))
	}
	return ret, nil
}

// GetSBandPB returns the server best and the personal best of guid for the
// car on the track. Only valid laps are considered.
func (s *Store) GetSBandPB(ctx context.Context, trackName, carName, guid string) (
	*SBandPB, error,
) {
	f := lap.Filter{Track: trackName, Cars: []string{carName}, Valid: []int{1}}
	ret := &SBandPB{}
	var err error
	if ret.ServerBest, err = lap.BestTime(ctx, s.db, f); err != nil {
		return nil, err
	}
	f.GUID = guid
	if ret.PersonalBest, err = lap.BestTime(ctx, s.db, f); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetBestSectorTimes returns the fastest time per sector of the matching laps.
// Sectors without time are null.
func (s *Store) GetBestSectorTimes(ctx context.Context, query BestLapQuery) (
	[]null.Val[int64], error,
) {
	return lap.SectorBests(ctx, s.db, query.filter())
}

// ListSessions returns a page of sessions, newest first, and the number of
// all matching sessions
func (s *Store) ListSessions(ctx context.Context, f session.Filter) (
	[]SessionSummary, int64, error,
) {
	items, total, err := session.List(ctx, s.db, f)
	if err != nil {
		return nil, 0, err
	}
	ret := make([]SessionSummary, 0, len(items))
	for i := range items {
		cars, err := s.comboCars(ctx, items[i].ComboID)
		if err != nil {
			return nil, 0, err
		}
		ret = append(ret, summary(&items[i].Session, items[i].Track, cars,
			items[i].Participants))
	}
	return ret, total, nil
}

func (s *Store) SessionDetails(ctx context.Context, id int64) (*SessionDetails, error) {
	sess, err := session.LoadByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	var trackName string
	if comboID, ok := sess.ComboID.Get(); ok {
		c, err := combo.LoadByID(ctx, s.db, comboID)
		if err != nil {
			return nil, err
		}
		t, err := track.LoadByID(ctx, s.db, c.TrackID)
		if err != nil {
			return nil, err
		}
		trackName = t.Name
	}
	cars, err := s.comboCars(ctx, sess.ComboID)
	if err != nil {
		return nil, err
	}
	participants, err := pis.LoadParticipants(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	corrections, err := correction.LoadBySession(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	ret := &SessionDetails{
		SessionSummary: summary(sess, trackName, cars, int64(len(participants))),
	}
	ret.Participants = lo.Map(participants, func(p pis.Participant, _ int) Participant {
		item := Participant{
			PisID:          p.ID,
			GUID:           p.GUID,
			Name:           p.PlayerName,
			Car:            p.Car,
			Team:           p.Team,
			FinishPosition: p.FinishPosition,
			FinishTime:     p.FinishTime,
			Laps:           p.Laps,
			BestLap:        p.BestLap,
		}
		if c, ok := corrections[p.ID]; ok {
			item.Correction = &Correction{
				DeltaTime:   c.DeltaTime,
				DeltaPoints: c.DeltaPoints,
				DeltaLaps:   c.DeltaLaps,
				Comment:     c.Comment,
			}
		}
		return item
	})
	return ret, nil
}

func (s *Store) comboCars(ctx context.Context, comboID null.Val[int64]) ([]string, error) {
	id, ok := comboID.Get()
	if !ok {
		return nil, nil
	}
	ids, err := combo.CarIDs(ctx, s.db, id)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	cars, err := car.LoadByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	return lo.Map(cars, func(c model.Car, _ int) string { return c.Name }), nil
}

func summary(
	sess *model.Session,
	trackName string,
	cars []string,
	participants int64,
) SessionSummary {
	return SessionSummary{
		ID:           sess.ID,
		Track:        trackName,
		Cars:         cars,
		SessionType:  sess.SessionType,
		Name:         sess.Name,
		Server:       sess.Server,
		NumLaps:      sess.NumLaps,
		Duration:     sess.Duration,
		Start:        sess.StartTimeDate,
		End:          sess.EndTimeDate,
		Finished:     sess.Finished,
		Participants: participants,
	}
}
