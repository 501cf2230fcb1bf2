// aviation/aviation.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"
)

// GroundLevel is the y coordinate of a vehicle sitting on the ground.
const GroundLevel = 1

var (
	ErrUnknownVehicleClass = errors.New("unknown vehicle class")
	ErrUnknownRoute        = errors.New("no route for vehicle class and direction")
	ErrUnknownParkingSpot  = errors.New("unknown parking spot")
)

///////////////////////////////////////////////////////////////////////////
// VehicleClass

// VehicleClass identifies the broad class of a vehicle, which in turn
// determines its performance characteristics and which taxi routes it
// uses.
type VehicleClass int

const (
	Airliner VehicleClass = iota
	BizJet
	TurboProp
	Helicopter
	NumVehicleClasses
)

func (c VehicleClass) String() string {
	return []string{"Airliner", "BizJet", "TurboProp", "Helicopter"}[c]
}

// Name returns the lowercase identifier used for the class in JSON
// files and route tables; ParseVehicleClass inverts it.
func (c VehicleClass) Name() string {
	return []string{"airliner", "bizjet", "turboprop", "helicopter"}[c]
}

// Known reports whether the class is one of the defined vehicle classes.
func (c VehicleClass) Known() bool {
	return c >= 0 && c < NumVehicleClasses
}

// VerticalTakeoff reports whether the class departs and arrives
// vertically and so never taxis on a route.
func (c VehicleClass) VerticalTakeoff() bool {
	return c == Helicopter
}

func ParseVehicleClass(s string) (VehicleClass, error) {
	switch s {
	case "airliner":
		return Airliner, nil
	case "bizjet":
		return BizJet, nil
	case "turboprop":
		return TurboProp, nil
	case "helicopter":
		return Helicopter, nil
	}
	return VehicleClass(-1), fmt.Errorf("%q: %w", s, ErrUnknownVehicleClass)
}

func (c VehicleClass) MarshalJSON() ([]byte, error) {
	if !c.Known() {
		return nil, ErrUnknownVehicleClass
	}
	return []byte(`"` + c.Name() + `"`), nil
}

func (c *VehicleClass) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseVehicleClass(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Performance

// Performance gives the static performance characteristics of a vehicle
// class; all of these are read-only lookups.
type Performance struct {
	Name  string `json:"name"`
	Speed struct {
		Max  float32 `json:"max"`  // units / second
		Taxi float32 `json:"taxi"` // units / second
	} `json:"speed"`
	Rate struct {
		Accelerate float32 `json:"accelerate"` // units / second^2
		Turn       float32 `json:"turn"`       // radians / second
	} `json:"rate"`
	MinFlightHeight float32 `json:"minFlightHeight"`
}

//go:embed specs.json
var specsJSON []byte

// DB holds the static per-class performance database.
type DB struct {
	Performance map[VehicleClass]Performance
}

// LoadDB returns the built-in performance database, embedded in the
// executable at build time.
func LoadDB(e *util.ErrorLogger) *DB {
	e.Push("specs.json")
	defer e.Pop()

	var specs map[string]Performance
	if err := util.UnmarshalJSON(specsJSON, &specs); err != nil {
		e.Error(err)
		return nil
	}

	db := &DB{Performance: make(map[VehicleClass]Performance)}
	for name, perf := range specs {
		c, err := ParseVehicleClass(name)
		if err != nil {
			e.Error(err)
			continue
		}
		if perf.Speed.Max <= 0 {
			e.ErrorString("%s: non-positive max speed %f", name, perf.Speed.Max)
		}
		if perf.Rate.Turn <= 0 {
			e.ErrorString("%s: non-positive turn rate %f", name, perf.Rate.Turn)
		}
		if !c.VerticalTakeoff() && perf.Speed.Taxi <= 0 {
			e.ErrorString("%s: non-positive taxi speed %f", name, perf.Speed.Taxi)
		}
		db.Performance[c] = perf
	}
	for c := VehicleClass(0); c < NumVehicleClasses; c++ {
		if _, ok := db.Performance[c]; !ok {
			e.ErrorString("%s: no performance specs", c)
		}
	}
	return db
}

///////////////////////////////////////////////////////////////////////////
// Waypoints and routes

// Waypoint is a named target location a vehicle navigates toward,
// possibly with a required heading upon arrival. Waypoints are never
// mutated once they are part of a route.
type Waypoint struct {
	Name    string      `json:"name"`
	P       math.Point3 `json:"p"`
	Heading *float32    `json:"heading,omitempty"`
}

func (w Waypoint) String() string {
	if w.Heading != nil {
		return fmt.Sprintf("%s (%.1f, %.1f, %.1f) hdg %.2f", w.Name, w.P[0], w.P[1], w.P[2], *w.Heading)
	}
	return fmt.Sprintf("%s (%.1f, %.1f, %.1f)", w.Name, w.P[0], w.P[1], w.P[2])
}

// Direction distinguishes the two kinds of taxi operation.
type Direction int

const (
	ToRunway Direction = iota
	FromRunway
)

func (d Direction) String() string {
	return util.Select(d == ToRunway, "to_runway", "from_runway")
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "to_runway":
		*d = ToRunway
	case "from_runway":
		*d = FromRunway
	default:
		return fmt.Errorf("%q: invalid taxi direction", s)
	}
	return nil
}
