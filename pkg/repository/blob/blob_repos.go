//nolint:whitespace //can't make both the linter and editor happy :(
package blob

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, data []byte) (int64, error) {
	return conn.InsertID(ctx,
		"insert into lap_bin_blobs (history_info) values (:data)",
		backend.Params{"data": data})
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) ([]byte, error) {
	var ret []byte
	err := conn.QueryRow(ctx, "select history_info from lap_bin_blobs where id=:id",
		backend.Params{"id": id}).Scan(&ret)
	return ret, repository.NotFound(err)
}

// LoadForLap returns the trajectory blob of a lap. Laps written before the
// blob table existed may still carry the blob inline.
func LoadForLap(ctx context.Context, conn repository.Querier, lapID int64) ([]byte, error) {
	var ret []byte
	err := conn.QueryRow(ctx, `select coalesce(b.history_info, l.history_info)
	from laps l left join lap_bin_blobs b on b.id=l.lap_bin_blob_id
	where l.id=:id`, backend.Params{"id": lapID}).Scan(&ret)
	if err != nil {
		return nil, repository.NotFound(err)
	}
	if ret == nil {
		return nil, repository.ErrNotFound
	}
	return ret, nil
}

// Detach removes the blob reference (and any inline blob) from the laps
func Detach(ctx context.Context, conn repository.Querier, lapIDs []int64) (int, error) {
	if len(lapIDs) == 0 {
		return 0, nil
	}
	return repository.RowsAffected(conn.Exec(ctx,
		"update laps set lap_bin_blob_id=null, history_info=null where id in (:ids)",
		backend.Params{"ids": lapIDs}))
}

// DeleteOrphans removes blobs no lap refers to
func DeleteOrphans(ctx context.Context, conn repository.Querier) (int, error) {
	return repository.RowsAffected(conn.Exec(ctx, `delete from lap_bin_blobs
	where id not in (select lap_bin_blob_id from laps where lap_bin_blob_id is not null)`,
		nil))
}

// InlineLap is a lap that still stores its blob in the laps table
type InlineLap struct {
	ID   int64  `db:"id"`
	Blob []byte `db:"history_info"`
}

// LoadInline returns up to limit laps with inline blobs and an id above afterID
func LoadInline(ctx context.Context, conn repository.Querier, afterID int64, limit int) (
	[]InlineLap, error,
) {
	return backend.Select[InlineLap](ctx, conn, `select id, history_info from laps
	where history_info is not null and id>:afterID order by id limit :limit`,
		backend.Params{"afterID": afterID, "limit": limit})
}

// Attach links lap to blob and clears the inline blob
func Attach(ctx context.Context, conn repository.Querier, lapID, blobID int64) error {
	_, err := conn.Exec(ctx,
		"update laps set lap_bin_blob_id=:blobID, history_info=null where id=:id",
		backend.Params{"blobID": blobID, "id": lapID})
	return err
}
