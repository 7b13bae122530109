//nolint:whitespace //can't make both the linter and editor happy :(
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aarondl/opt/null"
	"github.com/google/uuid"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blob"
	"github.com/mpapenbr/racestore/pkg/repository/car"
	"github.com/mpapenbr/racestore/pkg/repository/combo"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
	"github.com/mpapenbr/racestore/pkg/repository/pis"
	"github.com/mpapenbr/racestore/pkg/repository/player"
	"github.com/mpapenbr/racestore/pkg/repository/session"
	"github.com/mpapenbr/racestore/pkg/repository/team"
	"github.com/mpapenbr/racestore/pkg/repository/track"
	"github.com/mpapenbr/racestore/pkg/repository/tyre"
	"github.com/mpapenbr/racestore/pkg/telemetry"
)

// NewSession opens a session. Only one session may be open at a time.
func (s *Store) NewSession(ctx context.Context, spec SessionSpec) (*SessionHandle, error) {
	if spec.Track == "" {
		return nil, fmt.Errorf("%w: session without track", ErrInvalidRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrSessionActive
	}
	h := &SessionHandle{ID: uuid.New()}
	err := s.inTx(ctx, func(q repository.Querier) error {
		var err error
		if h.TrackID, err = track.Ensure(ctx, q, spec.Track,
			spec.TrackUIName, spec.TrackLength); err != nil {
			return err
		}
		if h.carIDs, err = car.EnsureAll(ctx, q, spec.Cars); err != nil {
			return err
		}
		h.carIDs = combo.CarSet(h.carIDs)
		if h.ComboID, err = combo.Resolve(ctx, q, h.TrackID, h.carIDs); err != nil {
			return err
		}
		sess := &model.Session{
			ComboID:          null.From(h.ComboID),
			SessionType:      spec.SessionType,
			Name:             spec.Name,
			Server:           nullString(spec.Server),
			Multiplayer:      spec.Multiplayer,
			PenaltiesEnabled: spec.Rules.PenaltiesEnabled,
			AllowedTyresOut:  spec.Rules.AllowedTyresOut,
			TyreWearFactor:   spec.Rules.TyreWearFactor,
			FuelRate:         spec.Rules.FuelRate,
			Damage:           spec.Rules.Damage,
			StartTimeDate:    null.From(s.now().Unix()),
		}
		if spec.NumLaps > 0 {
			sess.NumLaps = null.From(spec.NumLaps)
		}
		if spec.Duration > 0 {
			sess.Duration = null.From(spec.Duration)
		}
		if err := session.Create(ctx, q, sess); err != nil {
			return err
		}
		h.SessionID = sess.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.active = h
	s.log.Info("session opened",
		log.Int64("session", h.SessionID),
		log.String("track", spec.Track),
		log.Strings("cars", spec.Cars),
		log.String("type", spec.SessionType))
	return h, nil
}

// RegisterLap stores a completed lap of the open session
//
//nolint:funlen // one step per dimension
func (s *Store) RegisterLap(ctx context.Context, h *SessionHandle, rec LapRecord) (
	*LapResult, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkHandle(h); err != nil {
		return nil, err
	}
	if rec.GUID == "" || rec.Car == "" {
		return nil, fmt.Errorf("%w: lap without player or car", ErrInvalidRequest)
	}
	var blobData []byte
	if rec.Trajectory != nil {
		var err error
		if blobData, err = telemetry.Compress(*rec.Trajectory); err != nil {
			return nil, err
		}
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	ret := &LapResult{}
	carIDs := h.carIDs
	comboID := h.ComboID
	err := s.inTx(ctx, func(q repository.Querier) error {
		p, err := player.Ensure(ctx, q, rec.GUID, rec.Name, rec.IsAI)
		if err != nil {
			return err
		}
		carID, err := car.Ensure(ctx, q, rec.Car)
		if err != nil {
			return err
		}
		info := pis.ClientInfo{
			Checksum:    rec.Checksum,
			ACVersion:   rec.ACVersion,
			InputMethod: rec.InputMethod,
			Shifter:     rec.Shifter,
		}
		if rec.Team != "" {
			teamID, err := team.Ensure(ctx, q, rec.Team)
			if err != nil {
				return err
			}
			info.TeamID = null.From(teamID)
		}
		if ret.PisID, err = pis.Ensure(ctx, q, h.SessionID, p.ID, carID, info); err != nil {
			return err
		}
		if !slices.Contains(carIDs, carID) {
			carIDs = combo.CarSet(append(slices.Clone(carIDs), carID))
			if comboID, err = combo.Resolve(ctx, q, h.TrackID, carIDs); err != nil {
				return err
			}
			if err := session.SetCombo(ctx, q, h.SessionID, comboID); err != nil {
				return err
			}
		}

		if rec.Valid {
			if ret.PersonalBest, ret.ServerBest, err = s.isBest(ctx, q, h, rec); err != nil {
				return err
			}
		}

		l := &model.Lap{
			PisID:               ret.PisID,
			LapCount:            rec.LapCount,
			SessionTime:         rec.SessionTime,
			LapTime:             rec.LapTime,
			Valid:               rec.Valid,
			Timestamp:           null.From(ts.Unix()),
			Cuts:                null.From(rec.Cuts),
			FuelRatio:           rec.FuelRatio,
			MaxSpeed:            rec.MaxSpeed,
			AidABS:              rec.Aids.ABS,
			AidTC:               rec.Aids.TC,
			AidAutoBlip:         rec.Aids.AutoBlip,
			AidAutoBrake:        rec.Aids.AutoBrake,
			AidAutoClutch:       rec.Aids.AutoClutch,
			AidAutoShift:        rec.Aids.AutoShift,
			AidIdealLine:        rec.Aids.IdealLine,
			AidStabilityControl: rec.Aids.StabilityControl,
			AidTyreBlankets:     rec.Aids.TyreBlankets,
			GripLevel:           rec.Environment.GripLevel,
			AmbientTemp:         rec.Environment.AmbientTemp,
			RoadTemp:            rec.Environment.RoadTemp,
		}
		l.SetSectors(rec.Sectors)
		if rec.Tyre != "" {
			tyreID, err := tyre.Ensure(ctx, q, rec.Tyre)
			if err != nil {
				return err
			}
			l.TyreID = null.From(tyreID)
		}
		if blobData != nil {
			blobID, err := blob.Create(ctx, q, blobData)
			if err != nil {
				return err
			}
			l.LapBinBlobID = null.From(blobID)
		}
		if err := lap.Create(ctx, q, l); err != nil {
			return err
		}
		ret.LapID = l.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.carIDs = carIDs
	h.ComboID = comboID
	s.log.Debug("lap registered",
		log.Int64("session", h.SessionID),
		log.String("guid", rec.GUID),
		log.String("car", rec.Car),
		log.Int64("lapTime", rec.LapTime),
		log.Bool("valid", rec.Valid),
		log.Bool("pb", ret.PersonalBest),
		log.Bool("sb", ret.ServerBest))
	return ret, nil
}

// isBest compares the lap with the stored valid laps of the same car on the
// session's track
func (s *Store) isBest(
	ctx context.Context,
	q repository.Querier,
	h *SessionHandle,
	rec LapRecord,
) (pb, sb bool, err error) {
	t, err := track.LoadByID(ctx, q, h.TrackID)
	if err != nil {
		return false, false, err
	}
	f := lap.Filter{Track: t.Name, Cars: []string{rec.Car}, Valid: []int{1}}
	server, err := lap.BestTime(ctx, q, f)
	if err != nil {
		return false, false, err
	}
	f.GUID = rec.GUID
	personal, err := lap.BestTime(ctx, q, f)
	if err != nil {
		return false, false, err
	}
	better := func(v null.Val[int64]) bool {
		best, ok := v.Get()
		return !ok || rec.LapTime < best
	}
	return better(personal), better(server), nil
}

// FinishSession stores the final classification and closes the session.
// entries are in finishing order. Players without a participation in the
// session are skipped.
func (s *Store) FinishSession(ctx context.Context, h *SessionHandle, entries []FinishEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkHandle(h); err != nil {
		return err
	}
	err := s.inTx(ctx, func(q repository.Querier) error {
		for i, e := range entries {
			p, err := player.LoadByGUID(ctx, q, e.GUID)
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warn("finishing player unknown, skipping",
					log.String("guid", e.GUID), log.String("name", e.Name))
				continue
			}
			if err != nil {
				return err
			}
			items, err := pis.LoadBySessionAndPlayer(ctx, q, h.SessionID, p.ID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				s.log.Warn("player left the session, skipping",
					log.String("guid", e.GUID), log.String("name", e.Name))
				continue
			}
			pos := int64(i + 1)
			var finishTime null.Val[int64]
			if e.Finished {
				finishTime = null.From(e.FinishTime)
			} else {
				pos += model.DNFOffset
			}
			for _, item := range items {
				if err := pis.SetFinish(ctx, q, item.ID, pos, finishTime); err != nil {
					return err
				}
			}
		}
		return session.Finish(ctx, q, h.SessionID, s.now().Unix())
	})
	if err != nil {
		return err
	}
	h.closed = true
	s.active = nil
	s.log.Info("session finished",
		log.Int64("session", h.SessionID), log.Int("entries", len(entries)))
	return nil
}

// AbortSession releases the open session without a classification
func (s *Store) AbortSession(ctx context.Context, h *SessionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkHandle(h); err != nil {
		return err
	}
	if err := s.inTx(ctx, func(q repository.Querier) error {
		return session.Finish(ctx, q, h.SessionID, s.now().Unix())
	}); err != nil {
		return err
	}
	h.closed = true
	s.active = nil
	s.log.Info("session aborted", log.Int64("session", h.SessionID))
	return nil
}
