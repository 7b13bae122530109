// Package model contains the records stored in and read from the store.
// Field tags name the column of the record.
package model

import "github.com/aarondl/opt/null"

type Track struct {
	ID     int64             `db:"id"`
	Name   string            `db:"name"`
	UIName null.Val[string]  `db:"uiname"`
	Length null.Val[float64] `db:"length"`
}

type Car struct {
	ID     int64            `db:"id"`
	Name   string           `db:"name"`
	UIName null.Val[string] `db:"uiname"`
	Brand  null.Val[string] `db:"brand"`
}

type Player struct {
	ID            int64  `db:"id"`
	SteamGUID     string `db:"steam_guid"`
	Name          string `db:"name"`
	IsAI          bool   `db:"is_ai"`
	Whitelisted   bool   `db:"whitelisted"`
	IsOnline      bool   `db:"is_online"`
	MessageOptOut bool   `db:"message_opt_out"`
}

// Named is used for the small dimension tables (tyre compounds, teams, groups)
type Named struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Combo identifies a track together with a set of cars
type Combo struct {
	ID      int64   `db:"id"`
	TrackID int64   `db:"track_id"`
	CarIDs  []int64 `db:"-"`
}
