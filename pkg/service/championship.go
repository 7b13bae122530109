package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository/championship"
)

// CreatePointSchema stores the points awarded per finish position,
// points[0] being the points of the winner
func (s *Store) CreatePointSchema(ctx context.Context, name string, points []decimal.Decimal) (
	int64, error,
) {
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: point schema without points", ErrInvalidRequest)
	}
	return championship.CreatePointSchema(ctx, s.db, name, formatPoints(points))
}

func (s *Store) CreateSeason(ctx context.Context, name string, schemaID int64) (int64, error) {
	return championship.CreateSeason(ctx, s.db, name, schemaID)
}

// CreateEvent adds an event to a season. A zero date leaves the date open.
func (s *Store) CreateEvent(ctx context.Context, seasonID int64, name string, date time.Time) (
	int64, error,
) {
	e := &model.Event{SeasonID: seasonID, Name: name}
	if !date.IsZero() {
		e.EventDate = null.From(date.Unix())
	}
	if err := championship.CreateEvent(ctx, s.db, e); err != nil {
		return 0, err
	}
	return e.ID, nil
}

// AssignSession counts the session for the event. The points of the
// session are multiplied by factor.
func (s *Store) AssignSession(
	ctx context.Context,
	eventID, sessionID int64,
	factor float64,
) error {
	_, err := championship.AssignSession(ctx, s.db, eventID, sessionID, factor)
	return err
}

// Standings sums up the points of a season. Non-finishers only get the
// points of their corrections.
func (s *Store) Standings(ctx context.Context, seasonID int64) ([]Standing, error) {
	schema, err := championship.LoadSeasonSchema(ctx, s.db, seasonID)
	if err != nil {
		return nil, err
	}
	points, err := parsePoints(schema.Points)
	if err != nil {
		return nil, err
	}
	results, err := championship.LoadResults(ctx, s.db, seasonID)
	if err != nil {
		return nil, err
	}

	type total struct {
		guid, name string
		points     decimal.Decimal
		events     map[int64]struct{}
	}
	totals := map[int64]*total{}
	for _, r := range results {
		t, ok := totals[r.PlayerID]
		if !ok {
			t = &total{guid: r.GUID, name: r.Name, events: map[int64]struct{}{}}
			totals[r.PlayerID] = t
		}
		t.events[r.EventID] = struct{}{}
		t.points = t.points.Add(sessionPoints(points, r))
	}

	items := lo.Values(totals)
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].points.Cmp(items[j].points); c != 0 {
			return c > 0
		}
		return items[i].name < items[j].name
	})
	ret := make([]Standing, len(items))
	for i, t := range items {
		ret[i] = Standing{
			Pos:    i + 1,
			GUID:   t.guid,
			Name:   t.name,
			Points: t.points.String(),
			Events: len(t.events),
		}
	}
	return ret, nil
}

func sessionPoints(points []decimal.Decimal, r championship.Result) decimal.Decimal {
	ret := decimal.Zero
	if pos := r.FinishPosition; pos >= 1 && pos < model.DNFOffset && int(pos) <= len(points) {
		ret = points[pos-1].Mul(decimal.NewFromFloat(r.PointsFactor))
	}
	return ret.Add(decimal.NewFromInt(r.DeltaPoints))
}

func formatPoints(points []decimal.Decimal) string {
	return strings.Join(lo.Map(points, func(p decimal.Decimal, _ int) string {
		return p.String()
	}), ",")
}

func parsePoints(s string) ([]decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ret := make([]decimal.Decimal, len(parts))
	for i, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("point schema: %w", err)
		}
		ret[i] = d
	}
	return ret, nil
}
