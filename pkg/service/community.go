//nolint:whitespace //can't make both the linter and editor happy :(
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
	"github.com/mpapenbr/racestore/pkg/repository/blacklist"
	"github.com/mpapenbr/racestore/pkg/repository/car"
	"github.com/mpapenbr/racestore/pkg/repository/chat"
	"github.com/mpapenbr/racestore/pkg/repository/group"
	"github.com/mpapenbr/racestore/pkg/repository/player"
	"github.com/mpapenbr/racestore/pkg/repository/setup"
	"github.com/mpapenbr/racestore/pkg/repository/track"
)

// groups

func (s *Store) CreateGroup(ctx context.Context, name string) (int64, error) {
	return group.Create(ctx, s.db, name)
}

func (s *Store) ListGroups(ctx context.Context) ([]model.Named, error) {
	return group.LoadAll(ctx, s.db)
}

func (s *Store) AddToGroup(ctx context.Context, groupID int64, guid string) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		p, err := player.LoadByGUID(ctx, q, guid)
		if err != nil {
			return err
		}
		return group.AddPlayer(ctx, q, groupID, p.ID)
	})
}

func (s *Store) RemoveFromGroup(ctx context.Context, groupID int64, guid string) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		p, err := player.LoadByGUID(ctx, q, guid)
		if err != nil {
			return err
		}
		n, err := group.RemovePlayer(ctx, q, groupID, p.ID)
		if err == nil && n == 0 {
			err = ErrNotFound
		}
		return err
	})
}

func (s *Store) GroupMembers(ctx context.Context, groupID int64) ([]model.Player, error) {
	return group.Members(ctx, s.db, groupID)
}

// setups

// DepositSetup stores a car setup. A setup shared with a group requires the
// sender to be a member of it.
func (s *Store) DepositSetup(ctx context.Context, up SetupUpload) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(q repository.Querier) error {
		sender, err := player.LoadByGUID(ctx, q, up.SenderGUID)
		if err != nil {
			return err
		}
		if groupID, ok := up.GroupID.Get(); ok {
			member, err := group.IsMember(ctx, q, groupID, sender.ID)
			if err != nil {
				return err
			}
			if !member {
				return ErrNotPermitted
			}
		}
		trackID, err := track.Ensure(ctx, q, up.Track, null.Val[string]{}, null.Val[float64]{})
		if err != nil {
			return err
		}
		carID, err := car.Ensure(ctx, q, up.Car)
		if err != nil {
			return err
		}
		item := &model.SetupDeposit{
			TrackID:   trackID,
			CarID:     carID,
			SenderID:  sender.ID,
			GroupID:   up.GroupID,
			Name:      up.Name,
			Setup:     up.Setup,
			Timestamp: s.now().Unix(),
		}
		if err := setup.Create(ctx, q, item); err != nil {
			return err
		}
		id = item.ID
		return nil
	})
	return id, err
}

// ListSetups returns the setups for track and car visible to the viewer
func (s *Store) ListSetups(ctx context.Context, trackName, carName, viewerGUID string) (
	[]setup.Info, error,
) {
	t, err := track.LoadByName(ctx, s.db, trackName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c, err := car.LoadByName(ctx, s.db, carName)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	viewer, err := player.LoadByGUID(ctx, s.db, viewerGUID)
	if err != nil {
		return nil, err
	}
	return setup.ListVisible(ctx, s.db, t.ID, c.ID, viewer.ID)
}

// GetSetup returns a setup if the viewer may see it
func (s *Store) GetSetup(ctx context.Context, id int64, viewerGUID string) (
	*model.SetupDeposit, error,
) {
	item, err := setup.LoadByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	groupID, shared := item.GroupID.Get()
	if !shared {
		return item, nil
	}
	viewer, err := player.LoadByGUID(ctx, s.db, viewerGUID)
	if err != nil {
		return nil, err
	}
	if viewer.ID == item.SenderID {
		return item, nil
	}
	member, err := group.IsMember(ctx, s.db, groupID, viewer.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotFound
	}
	return item, nil
}

// DeleteSetup removes a setup. Only the sender may delete it.
func (s *Store) DeleteSetup(ctx context.Context, id int64, senderGUID string) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		sender, err := player.LoadByGUID(ctx, q, senderGUID)
		if err != nil {
			return err
		}
		n, err := setup.Delete(ctx, q, id, sender.ID)
		if err == nil && n == 0 {
			err = ErrNotFound
		}
		return err
	})
}

// blacklist

// BlacklistPlayer bans a player. A zero duration bans forever.
// Unknown players are created so they can be banned before they join.
func (s *Store) BlacklistPlayer(
	ctx context.Context,
	guid string,
	duration time.Duration,
	reason string,
) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		p, err := player.LoadByGUID(ctx, q, guid)
		if errors.Is(err, repository.ErrNotFound) {
			p, err = player.Ensure(ctx, q, guid, guid, false)
		}
		if err != nil {
			return err
		}
		if err := blacklist.Add(ctx, q, &model.BlacklistEntry{
			PlayerID: p.ID,
			AddedAt:  s.now().Unix(),
			Duration: int64(duration / time.Second),
			Reason:   reason,
		}); err != nil {
			return err
		}
		s.log.Info("player blacklisted",
			log.String("guid", guid), log.Duration("duration", duration),
			log.String("reason", reason))
		return nil
	})
}

// Unblacklist removes all bans of a player
func (s *Store) Unblacklist(ctx context.Context, guid string) error {
	return s.inTx(ctx, func(q repository.Querier) error {
		p, err := player.LoadByGUID(ctx, q, guid)
		if err != nil {
			return err
		}
		n, err := blacklist.RemovePlayer(ctx, q, p.ID)
		if err != nil {
			return err
		}
		s.log.Info("player removed from blacklist", log.String("guid", guid), log.Int("bans", n))
		return nil
	})
}

func (s *Store) IsBlacklisted(ctx context.Context, guid string) (bool, error) {
	p, err := player.LoadByGUID(ctx, s.db, guid)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	bans, err := blacklist.ActiveForPlayer(ctx, s.db, p.ID, s.now().Unix())
	return len(bans) > 0, err
}

// BlacklistEntry is a ban in effect
type BlacklistEntry struct {
	GUID    string
	Name    string
	AddedAt time.Time
	// zero for bans without end
	Until  time.Time
	Reason string
}

func (s *Store) ListBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	bans, err := blacklist.Active(ctx, s.db, s.now().Unix())
	if err != nil {
		return nil, err
	}
	ret := make([]BlacklistEntry, 0, len(bans))
	for _, b := range bans {
		p, err := player.LoadByID(ctx, s.db, b.PlayerID)
		if err != nil {
			return nil, err
		}
		item := BlacklistEntry{
			GUID:    p.SteamGUID,
			Name:    p.Name,
			AddedAt: time.Unix(b.AddedAt, 0),
			Reason:  b.Reason,
		}
		if b.Duration > 0 {
			item.Until = time.Unix(b.AddedAt+b.Duration, 0)
		}
		ret = append(ret, item)
	}
	return ret, nil
}

// chat

const defaultChatLimit = 100

// RecordChat stores a chat message of the open session. An empty sender
// denotes a message of the server.
func (s *Store) RecordChat(ctx context.Context, senderGUID, message string) error {
	msg := &model.ChatMessage{Timestamp: s.now().Unix(), Message: message}
	if h := s.Active(); h != nil {
		msg.SessionID = null.From(h.SessionID)
	}
	return s.inTx(ctx, func(q repository.Querier) error {
		if senderGUID != "" {
			p, err := player.LoadByGUID(ctx, q, senderGUID)
			if err != nil {
				return err
			}
			msg.PlayerID = null.From(p.ID)
		}
		return chat.Create(ctx, q, msg)
	})
}

// ChatHistory returns the latest limit messages of a session, oldest first
func (s *Store) ChatHistory(ctx context.Context, sessionID int64, limit int) (
	[]ChatEntry, error,
) {
	if limit <= 0 {
		limit = defaultChatLimit
	}
	items, err := chat.LoadBySession(ctx, s.db, sessionID, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(e chat.Entry, _ int) ChatEntry {
		return ChatEntry{Sender: e.Sender, Timestamp: e.Timestamp, Message: e.Message}
	}), nil
}
