package migrate

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository/blob"
	"github.com/mpapenbr/racestore/pkg/repository/combo"
)

const blobBatchSize = 500

// DefaultFixups returns the data repairs in the order they are applied
func DefaultFixups() []Fixup {
	return []Fixup{
		{Since: 15, Name: "lap timestamps", Apply: fixLapTimestamps},
		{Since: 19, Name: "lap blobs", Apply: moveLapBlobs},
		{Since: 23, Name: "duplicate combos", Apply: mergeDuplicateCombos},
	}
}

// laps without timestamp get the one of the previous lap of the same
// participation, then the session start. Sessions without start or end
// are derived from their laps.
func fixLapTimestamps(ctx context.Context, q backend.Querier) error {
	for _, stmt := range []string{
		`update laps set ts=(select max(l2.ts) from laps l2
	where l2.pis_id=laps.pis_id and l2.id<laps.id and l2.ts is not null)
	where ts is null`,
		`update laps set ts=(select s.start_time_date from sessions s
	join player_in_session p on p.session_id=s.id where p.id=laps.pis_id)
	where ts is null`,
		`update sessions set start_time_date=(select min(l.ts) from laps l
	join player_in_session p on p.id=l.pis_id where p.session_id=sessions.id)
	where start_time_date is null`,
		`update sessions set end_time_date=(select max(l.ts) from laps l
	join player_in_session p on p.id=l.pis_id where p.session_id=sessions.id)
	where end_time_date is null`,
	} {
		if _, err := q.Exec(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// blobs stored inline in laps.history_info are moved to lap_bin_blobs
func moveLapBlobs(ctx context.Context, q backend.Querier) error {
	var lastID int64
	for {
		batch, err := blob.LoadInline(ctx, q, lastID, blobBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, item := range batch {
			blobID, err := blob.Create(ctx, q, item.Blob)
			if err != nil {
				return err
			}
			if err := blob.Attach(ctx, q, item.ID, blobID); err != nil {
				return err
			}
			lastID = item.ID
		}
	}
}

// combos with the same track and car set are merged into the oldest one
func mergeDuplicateCombos(ctx context.Context, q backend.Querier) error {
	combos, err := combo.LoadAll(ctx, q)
	if err != nil {
		return err
	}
	type key struct {
		trackID int64
		cars    string
	}
	seen := map[key]int64{}
	for _, c := range combos {
		k := key{c.TrackID, c.Cars}
		keep, ok := seen[k]
		if !ok {
			seen[k] = c.ID
			continue
		}
		if err := combo.Merge(ctx, q, c.ID, keep); err != nil {
			return err
		}
	}
	return nil
}
