//nolint:whitespace //can't make both the linter and editor happy :(
package setup

import (
	"context"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, s *model.SetupDeposit) error {
	id, err := conn.InsertID(ctx, `insert into setup_deposits
	(track_id, car_id, sender_id, group_id, name, setup, ts)
	values (:trackID, :carID, :senderID, :groupID, :name, :setup, :ts)`,
		backend.Params{
			"trackID":  s.TrackID,
			"carID":    s.CarID,
			"senderID": s.SenderID,
			"groupID":  s.GroupID,
			"name":     s.Name,
			"setup":    s.Setup,
			"ts":       s.Timestamp,
		})
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

func LoadByID(ctx context.Context, conn repository.Querier, id int64) (
	*model.SetupDeposit, error,
) {
	item, err := backend.Get[model.SetupDeposit](ctx, conn,
		`select id,track_id,car_id,sender_id,group_id,name,setup,ts
	from setup_deposits where id=:id`, backend.Params{"id": id})
	if err != nil {
		return nil, repository.NotFound(err)
	}
	return &item, nil
}

// Info describes a setup without its content
type Info struct {
	ID        int64            `db:"id"`
	Name      string           `db:"name"`
	Sender    string           `db:"sender"`
	Group     null.Val[string] `db:"group_name"`
	Timestamp int64            `db:"ts"`
}

// ListVisible returns the setups for track and car the viewer may see:
// public ones, own ones and those shared with a group of the viewer.
func ListVisible(
	ctx context.Context,
	conn repository.Querier,
	trackID, carID, viewerID int64,
) ([]Info, error) {
	return backend.Select[Info](ctx, conn, `select
	s.id, s.name, p.name as sender, g.name as group_name, s.ts
	from setup_deposits s
	join players p on p.id=s.sender_id
	left join player_groups g on g.id=s.group_id
	where s.track_id=:trackID and s.car_id=:carID and (
		s.group_id is null or s.sender_id=:viewerID or s.group_id in
		(select group_id from player_group_entries where player_id=:viewerID))
	order by s.ts desc, s.id desc`,
		backend.Params{"trackID": trackID, "carID": carID, "viewerID": viewerID})
}

func Delete(ctx context.Context, conn repository.Querier, id, senderID int64) (int, error) {
	return repository.RowsAffected(conn.Exec(ctx,
		"delete from setup_deposits where id=:id and sender_id=:senderID",
		backend.Params{"id": id, "senderID": senderID}))
}
