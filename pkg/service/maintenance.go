package service

import (
	"context"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blob"
	"github.com/mpapenbr/racestore/pkg/repository/lap"
)

const compactBatchSize = 500

// SetLapValid changes the validity of a lap (moderation)
func (s *Store) SetLapValid(ctx context.Context, lapID int64, valid bool) error {
	n, err := lap.SetValid(ctx, s.db, lapID, valid)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.log.Info("lap validity changed", log.Int64("lap", lapID), log.Bool("valid", valid))
	return nil
}

// CompactBlobs drops the trajectories of laps driven before olderThan.
// The trajectory of the best valid lap of each player and car per combo is
// kept. Returns the number of laps whose trajectory was dropped.
func (s *Store) CompactBlobs(ctx context.Context, olderThan time.Time) (int, error) {
	var detached, deleted int
	err := s.inTx(ctx, func(q repository.Querier) error {
		best, err := lap.Ranking(ctx, q, lap.Filter{Valid: []int{1}})
		if err != nil {
			return err
		}
		type key struct {
			combo         null.Val[int64]
			player, carID int64
		}
		keep := lo.Map(lo.UniqBy(best, func(r lap.Ranked) key {
			return key{r.ComboID, r.PlayerID, r.CarID}
		}), func(r lap.Ranked, _ int) int64 { return r.LapID })

		candidates, err := lap.IDs(ctx, q, lap.Filter{To: null.From(olderThan.Unix())},
			"l.lap_bin_blob_id is not null", nil)
		if err != nil {
			return err
		}
		for _, chunk := range lo.Chunk(lo.Without(candidates, keep...), compactBatchSize) {
			n, err := blob.Detach(ctx, q, chunk)
			if err != nil {
				return err
			}
			detached += n
		}
		deleted, err = blob.DeleteOrphans(ctx, q)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("blobs compacted",
		log.Time("olderThan", olderThan),
		log.Int("laps", detached),
		log.Int("blobs", deleted))
	return detached, nil
}
