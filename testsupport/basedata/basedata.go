// Package basedata provides sample records for tests.
package basedata

import (
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/pkg/telemetry"
)

const (
	Track = "ks_testtrack"
	Car1  = "ks_car_one"
	Car2  = "ks_car_two"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

// Clock returns a clock fixed at TestTime
func Clock() func() time.Time {
	return TestTime
}

func SampleSession() service.SessionSpec {
	return service.SessionSpec{
		Track:       Track,
		TrackUIName: null.From("Test Track"),
		TrackLength: null.From(4200.0),
		Cars:        []string{Car1, Car2},
		SessionType: "race",
		Name:        "Race",
		NumLaps:     3,
		Server:      "test server",
		Multiplayer: true,
		Rules: service.Rules{
			PenaltiesEnabled: null.From(int64(1)),
			AllowedTyresOut:  null.From(int64(2)),
			TyreWearFactor:   null.From(1.0),
			FuelRate:         null.From(1.0),
			Damage:           null.From(0.5),
		},
	}
}

// SampleLap returns a valid lap of guid driven lapCount minutes after TestTime
func SampleLap(guid, car string, lapCount, lapTime int64) service.LapRecord {
	third := lapTime / 3
	return service.LapRecord{
		GUID:        guid,
		Name:        "Driver " + guid,
		Car:         car,
		Tyre:        "M",
		Checksum:    null.From("abc"),
		ACVersion:   null.From("1.16"),
		InputMethod: null.From("wheel"),
		Shifter:     null.From(int64(1)),
		LapCount:    lapCount,
		SessionTime: null.From(lapCount * lapTime),
		LapTime:     lapTime,
		Sectors:     []int64{third, third, lapTime - 2*third},
		Valid:       true,
		FuelRatio:   null.From(0.9),
		MaxSpeed:    null.From(251.3),
		Aids: service.Aids{
			ABS:              null.From(int64(1)),
			TC:               null.From(int64(0)),
			AutoBlip:         null.From(int64(1)),
			StabilityControl: null.From(0.0),
		},
		Environment: service.Environment{
			GripLevel:   null.From(0.98),
			AmbientTemp: null.From(21.0),
			RoadTemp:    null.From(28.5),
		},
		Timestamp: TestTime().Add(time.Duration(lapCount) * time.Minute),
	}
}

// SampleTrajectory returns a trajectory with n samples, 100ms apart
func SampleTrajectory(n int) *telemetry.Trajectory {
	t := &telemetry.Trajectory{
		Times:      make([]int32, n),
		Positions:  make([]telemetry.Vec3, n),
		Velocities: make([]telemetry.Vec3, n),
		SplinePos:  make([]float64, n),
	}
	for i := range n {
		f := float64(i)
		t.Times[i] = int32(i * 100)
		t.Positions[i] = telemetry.Vec3{X: f * 2.5, Y: 1.5, Z: -f}
		t.Velocities[i] = telemetry.Vec3{X: 25, Y: 0, Z: -10}
		t.SplinePos[i] = f / float64(n)
	}
	return t
}
