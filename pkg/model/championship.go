package model

import "github.com/aarondl/opt/null"

// PointSchema holds the points per finish position as comma separated list
type PointSchema struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Points string `db:"points"`
}

type Season struct {
	ID            int64  `db:"id"`
	Name          string `db:"name"`
	PointSchemaID int64  `db:"point_schema_id"`
}

type Event struct {
	ID        int64           `db:"id"`
	SeasonID  int64           `db:"season_id"`
	Name      string          `db:"name"`
	EventDate null.Val[int64] `db:"event_date"`
}

type EventSession struct {
	ID           int64   `db:"id"`
	EventID      int64   `db:"event_id"`
	SessionID    int64   `db:"session_id"`
	PointsFactor float64 `db:"points_factor"`
}
