package service

import (
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/telemetry"
)

// SessionSpec describes a session reported by the game server
type SessionSpec struct {
	Track       string
	TrackUIName null.Val[string]
	TrackLength null.Val[float64]
	Cars        []string
	SessionType string // race, qualify, practice, ...
	Name        string
	NumLaps     int64 // 0 for timed sessions
	Duration    int64 // minutes, timed sessions
	Server      string
	Multiplayer bool
	Rules       Rules
}

type Rules struct {
	PenaltiesEnabled null.Val[int64]
	AllowedTyresOut  null.Val[int64]
	TyreWearFactor   null.Val[float64]
	FuelRate         null.Val[float64]
	Damage           null.Val[float64]
}

type Aids struct {
	ABS              null.Val[int64]
	TC               null.Val[int64]
	AutoBlip         null.Val[int64]
	AutoBrake        null.Val[int64]
	AutoClutch       null.Val[int64]
	AutoShift        null.Val[int64]
	IdealLine        null.Val[int64]
	StabilityControl null.Val[float64]
	TyreBlankets     null.Val[int64]
}

type Environment struct {
	GripLevel   null.Val[float64]
	AmbientTemp null.Val[float64]
	RoadTemp    null.Val[float64]
}

// LapRecord is a completed lap reported by the game server
type LapRecord struct {
	GUID        string
	Name        string
	IsAI        bool
	Car         string
	Team        string
	Tyre        string
	Checksum    null.Val[string]
	ACVersion   null.Val[string]
	InputMethod null.Val[string]
	Shifter     null.Val[int64]
	LapCount    int64
	SessionTime null.Val[int64] // ms since session start
	LapTime     int64           // ms
	Sectors     []int64         // ms, at most 10
	Cuts        int64
	Valid       bool
	FuelRatio   null.Val[float64]
	MaxSpeed    null.Val[float64]
	Aids        Aids
	Environment Environment
	Trajectory  *telemetry.Trajectory
	Timestamp   time.Time // zero means now
}

// LapResult is returned by RegisterLap
type LapResult struct {
	LapID        int64
	PisID        int64
	PersonalBest bool // fastest valid lap of the player with this car on the track
	ServerBest   bool // fastest valid lap of anybody with this car on the track
}

// FinishEntry is one line of the final classification, in finishing order
type FinishEntry struct {
	GUID       string
	Name       string
	IsAI       bool
	Finished   bool
	FinishTime int64 // ms
}

// BestLapQuery selects laps for the best lap queries. Empty fields do not filter.
type BestLapQuery struct {
	Track     string
	Car       string
	GUID      string
	ValidOnly bool
}

type BestLap struct {
	LapID      int64
	LapTime    int64
	Sectors    []null.Val[int64]
	GUID       string
	PlayerName string
	Car        string
	Track      string
	Tyre       null.Val[string]
	Timestamp  null.Val[int64]
	// nil if the lap has no (readable) trajectory
	Trajectory *telemetry.Trajectory
}

type SBandPB struct {
	ServerBest   null.Val[int64]
	PersonalBest null.Val[int64]
}

type LapStatsMode string

const (
	ModeTop       LapStatsMode = "top"        // best lap per player and car
	ModeTopPlayer LapStatsMode = "top-player" // best lap per player
	ModeTopCar    LapStatsMode = "top-car"    // best lap per car
	ModeAll       LapStatsMode = "all"        // every lap
)

type LapStatsQuery struct {
	Mode  LapStatsMode
	Limit int
	// nil centers the page on the rank of EgoGUID
	Offset   *int
	Track    string
	Cars     []string
	EgoGUID  string
	Valid    []int // empty means valid laps only
	From, To time.Time
	Server   string
	GroupID  null.Val[int64]
	Tyres    []string
}

type LapStatsRow struct {
	Pos       int
	LapID     int64
	GUID      string
	Name      string
	Car       string
	Tyre      null.Val[string]
	LapTime   int64
	Gap       int64 // to the first row of the leaderboard
	Sectors   []null.Val[int64]
	LapCount  int64
	Valid     bool
	Timestamp null.Val[int64]
}

type LapStats struct {
	Total  int
	Offset int
	Rows   []LapStatsRow
	// fastest sector times of all matching laps
	BestSectors []null.Val[int64]
	// fastest lap time per car of all matching laps
	BestLapPerCar map[string]int64
	BestLap       null.Val[int64]
}

type StatisticsQuery struct {
	From, To time.Time
	// laps matching are marked invalid, nil leaves laps untouched
	Invalidate *InvalidateFilter
}

// InvalidateFilter selects laps to invalidate within the statistics window
type InvalidateFilter struct {
	Track      string
	Cars       []string
	GUID       string
	MaxLapTime int64 // laps faster than this are invalidated, 0 disables
	MaxCuts    null.Val[int64]
}

type Statistics struct {
	From            time.Time        `yaml:"from"`
	To              time.Time        `yaml:"to"`
	Laps            int64            `yaml:"laps"`
	LapsPerTrack    map[string]int64 `yaml:"lapsPerTrack"`
	LapsPerCar      map[string]int64 `yaml:"lapsPerCar"`
	LapsPerCombo    map[string]int64 `yaml:"lapsPerCombo"`
	PlayersPerDay   map[string]int64 `yaml:"playersPerDay"`
	Bans            int64            `yaml:"bans"`
	InvalidatedLaps int64            `yaml:"invalidatedLaps"`
}

type SessionSummary struct {
	ID           int64
	Track        string
	Cars         []string
	SessionType  string
	Name         string
	Server       null.Val[string]
	NumLaps      null.Val[int64]
	Duration     null.Val[int64]
	Start        null.Val[int64]
	End          null.Val[int64]
	Finished     bool
	Participants int64
}

type Participant struct {
	PisID          int64
	GUID           string
	Name           string
	Car            string
	Team           null.Val[string]
	FinishPosition null.Val[int64]
	FinishTime     null.Val[int64]
	Laps           int64
	BestLap        null.Val[int64]
	Correction     *Correction
}

type Correction struct {
	DeltaTime   int64
	DeltaPoints int64
	DeltaLaps   int64
	Comment     string
}

type SessionDetails struct {
	SessionSummary
	Participants []Participant
}

type ComboBest struct {
	Track   string
	Car     string
	LapTime int64
	Laps    int
	// mean and standard deviation of the valid lap times
	Mean   float64
	StdDev float64
}

type PlayerDetails struct {
	GUID          string
	Name          string
	IsAI          bool
	Whitelisted   bool
	IsOnline      bool
	MessageOptOut bool
	Laps          int64
	ValidLaps     int64
	Best          []ComboBest
	Blacklisted   bool
}

type SetupUpload struct {
	Track      string
	Car        string
	SenderGUID string
	Name       string
	GroupID    null.Val[int64] // nil shares the setup with everybody
	Setup      []byte
}

type ChatEntry struct {
	Sender    null.Val[string]
	Timestamp int64
	Message   string
}

type Standing struct {
	Pos    int
	GUID   string
	Name   string
	Points string // decimal
	Events int
}
