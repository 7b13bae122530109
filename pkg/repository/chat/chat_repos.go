//nolint:whitespace //can't make both the linter and editor happy :(
package chat

import (
	"context"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, m *model.ChatMessage) error {
	id, err := conn.InsertID(ctx, `insert into chat_history
	(session_id, player_id, ts, message) values (:sessionID, :playerID, :ts, :message)`,
		backend.Params{
			"sessionID": m.SessionID,
			"playerID":  m.PlayerID,
			"ts":        m.Timestamp,
			"message":   m.Message,
		})
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// Entry is a chat message with the name of the sender
type Entry struct {
	model.ChatMessage
	Sender null.Val[string] `db:"sender"`
}

// LoadBySession returns the latest limit messages of a session, oldest first
func LoadBySession(
	ctx context.Context,
	conn repository.Querier,
	sessionID int64,
	limit int,
) ([]Entry, error) {
	return backend.Select[Entry](ctx, conn, `select * from (select
	m.id, m.session_id, m.player_id, m.ts, m.message, p.name as sender
	from chat_history m left join players p on p.id=m.player_id
	where m.session_id=:sessionID order by m.ts desc, m.id desc limit :limit) x
	order by ts, id`,
		backend.Params{"sessionID": sessionID, "limit": limit})
}
