package model

import "github.com/aarondl/opt/null"

type SetupDeposit struct {
	ID        int64           `db:"id"`
	TrackID   int64           `db:"track_id"`
	CarID     int64           `db:"car_id"`
	SenderID  int64           `db:"sender_id"`
	GroupID   null.Val[int64] `db:"group_id"`
	Name      string          `db:"name"`
	Setup     []byte          `db:"setup"`
	Timestamp int64           `db:"ts"`
}

// BlacklistEntry bans a player. A zero duration (seconds) bans forever.
type BlacklistEntry struct {
	ID       int64  `db:"id"`
	PlayerID int64  `db:"player_id"`
	AddedAt  int64  `db:"added_at"`
	Duration int64  `db:"duration"`
	Reason   string `db:"reason"`
}

// ActiveAt reports whether the ban is in effect at unix time ts
func (b *BlacklistEntry) ActiveAt(ts int64) bool {
	return b.Duration == 0 || b.AddedAt+b.Duration > ts
}

type ChatMessage struct {
	ID        int64           `db:"id"`
	SessionID null.Val[int64] `db:"session_id"`
	PlayerID  null.Val[int64] `db:"player_id"`
	Timestamp int64           `db:"ts"`
	Message   string          `db:"message"`
}
