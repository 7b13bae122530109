package model

import "github.com/aarondl/opt/null"

const (
	// SectorSentinel is stored for sectors without a time
	SectorSentinel int64 = 86_400_000
	MaxSectors           = 10
)

type Lap struct {
	ID                  int64             `db:"id"`
	PisID               int64             `db:"pis_id"`
	TyreID              null.Val[int64]   `db:"tyre_id"`
	LapBinBlobID        null.Val[int64]   `db:"lap_bin_blob_id"`
	LapCount            int64             `db:"lap_count"`
	SessionTime         null.Val[int64]   `db:"session_time"`
	LapTime             int64             `db:"lap_time"`
	SectorTime0         null.Val[int64]   `db:"sector_time0"`
	SectorTime1         null.Val[int64]   `db:"sector_time1"`
	SectorTime2         null.Val[int64]   `db:"sector_time2"`
	SectorTime3         null.Val[int64]   `db:"sector_time3"`
	SectorTime4         null.Val[int64]   `db:"sector_time4"`
	SectorTime5         null.Val[int64]   `db:"sector_time5"`
	SectorTime6         null.Val[int64]   `db:"sector_time6"`
	SectorTime7         null.Val[int64]   `db:"sector_time7"`
	SectorTime8         null.Val[int64]   `db:"sector_time8"`
	SectorTime9         null.Val[int64]   `db:"sector_time9"`
	Valid               bool              `db:"valid"`
	Timestamp           null.Val[int64]   `db:"ts"`
	Cuts                null.Val[int64]   `db:"cuts"`
	FuelRatio           null.Val[float64] `db:"fuel_ratio"`
	MaxSpeed            null.Val[float64] `db:"max_speed"`
	AidABS              null.Val[int64]   `db:"aid_abs"`
	AidTC               null.Val[int64]   `db:"aid_tc"`
	AidAutoBlip         null.Val[int64]   `db:"aid_auto_blip"`
	AidAutoBrake        null.Val[int64]   `db:"aid_auto_brake"`
	AidAutoClutch       null.Val[int64]   `db:"aid_auto_clutch"`
	AidAutoShift        null.Val[int64]   `db:"aid_auto_shift"`
	AidIdealLine        null.Val[int64]   `db:"aid_ideal_line"`
	AidStabilityControl null.Val[float64] `db:"aid_stability_control"`
	AidTyreBlankets     null.Val[int64]   `db:"aid_tyre_blankets"`
	GripLevel           null.Val[float64] `db:"grip_level"`
	AmbientTemp         null.Val[float64] `db:"ambient_temp"`
	RoadTemp            null.Val[float64] `db:"road_temp"`
}

// Sectors returns the sector times of the lap. Sentinel values are null.
func (l *Lap) Sectors() []null.Val[int64] {
	return SectorsFromRaw([]null.Val[int64]{
		l.SectorTime0, l.SectorTime1, l.SectorTime2, l.SectorTime3, l.SectorTime4,
		l.SectorTime5, l.SectorTime6, l.SectorTime7, l.SectorTime8, l.SectorTime9,
	})
}

// SetSectors stores times in the sector columns. Missing sectors get the sentinel.
func (l *Lap) SetSectors(times []int64) {
	dst := []*null.Val[int64]{
		&l.SectorTime0, &l.SectorTime1, &l.SectorTime2, &l.SectorTime3, &l.SectorTime4,
		&l.SectorTime5, &l.SectorTime6, &l.SectorTime7, &l.SectorTime8, &l.SectorTime9,
	}
	for i, d := range dst {
		v := SectorSentinel
		if i < len(times) && times[i] >= 0 && times[i] < SectorSentinel {
			v = times[i]
		}
		*d = null.From(v)
	}
}

// SectorsFromRaw maps stored sector values to "no time" where needed
func SectorsFromRaw(raw []null.Val[int64]) []null.Val[int64] {
	ret := make([]null.Val[int64], len(raw))
	for i, v := range raw {
		if t, ok := v.Get(); ok && t < SectorSentinel {
			ret[i] = null.From(t)
		}
	}
	return ret
}

type LapBinBlob struct {
	ID          int64  `db:"id"`
	HistoryInfo []byte `db:"history_info"`
}
