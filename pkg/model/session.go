package model

import "github.com/aarondl/opt/null"

// DNFOffset is added to the finish position of players who did not finish
const DNFOffset = 1000

type Session struct {
	ID               int64             `db:"id"`
	ComboID          null.Val[int64]   `db:"combo_id"`
	SessionType      string            `db:"session_type"`
	Name             string            `db:"name"`
	NumLaps          null.Val[int64]   `db:"num_laps"`
	Duration         null.Val[int64]   `db:"duration"`
	Server           null.Val[string]  `db:"server"`
	Multiplayer      bool              `db:"multiplayer"`
	Finished         bool              `db:"finished"`
	PenaltiesEnabled null.Val[int64]   `db:"penalties_enabled"`
	AllowedTyresOut  null.Val[int64]   `db:"allowed_tyres_out"`
	TyreWearFactor   null.Val[float64] `db:"tyre_wear_factor"`
	FuelRate         null.Val[float64] `db:"fuel_rate"`
	Damage           null.Val[float64] `db:"damage"`
	StartTimeDate    null.Val[int64]   `db:"start_time_date"`
	EndTimeDate      null.Val[int64]   `db:"end_time_date"`
}

// PlayerInSession is the participation of a player with one car in a session
type PlayerInSession struct {
	ID             int64            `db:"id"`
	SessionID      int64            `db:"session_id"`
	PlayerID       int64            `db:"player_id"`
	CarID          int64            `db:"car_id"`
	TeamID         null.Val[int64]  `db:"team_id"`
	FinishPosition null.Val[int64]  `db:"finish_position"`
	FinishTime     null.Val[int64]  `db:"finish_time"`
	Checksum       null.Val[string] `db:"checksum"`
	ACVersion      null.Val[string] `db:"ac_version"`
	InputMethod    null.Val[string] `db:"input_method"`
	Shifter        null.Val[int64]  `db:"shifter"`
}

// Finished reports whether the participant has a real (non DNF) position
func (p *PlayerInSession) Finished() bool {
	pos, ok := p.FinishPosition.Get()
	return ok && pos < DNFOffset
}

// PisCorrection is a manual override of a participant's result
type PisCorrection struct {
	ID          int64  `db:"id"`
	PisID       int64  `db:"pis_id"`
	DeltaTime   int64  `db:"delta_time"`
	DeltaPoints int64  `db:"delta_points"`
	DeltaLaps   int64  `db:"delta_laps"`
	Comment     string `db:"comment"`
}
