// aviation/airfield.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	_ "embed"
	"encoding/json"
	"time"

	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"

	"github.com/iancoleman/orderedmap"
)

// Airfield describes the static layout and operating limits of the
// airfield: the runway, parking, taxi routes, timing budgets, and the
// tolerances the validation rules apply. It is loaded once and read-only
// afterward.
type Airfield struct {
	Runway struct {
		Length        float32     `json:"length"`
		Width         float32     `json:"width"`
		EastThreshold math.Point3 `json:"east_threshold"`
		WestThreshold math.Point3 `json:"west_threshold"`
	} `json:"runway"`

	Parking map[string]math.Point3 `json:"parking"`

	// TaxiRoutes is keyed by vehicle class name; iteration order follows
	// the declaration order in the JSON so that route listings are
	// deterministic.
	TaxiRoutes RouteTable `json:"taxi_routes"`

	PushbackDistance    float32 `json:"pushback_distance"`
	TaxiTimeoutSec      float32 `json:"taxi_timeout_sec"`
	PushbackDurationSec float32 `json:"pushback_duration_sec"`

	Tolerances struct {
		Position        float32 `json:"position"`
		Heading         float32 `json:"heading"` // radians
		MinSafeAltitude float32 `json:"min_safe_altitude"`
	} `json:"tolerances"`
}

func (a *Airfield) TaxiTimeout() time.Duration {
	return time.Duration(a.TaxiTimeoutSec * float32(time.Second))
}

func (a *Airfield) PushbackDuration() time.Duration {
	return time.Duration(a.PushbackDurationSec * float32(time.Second))
}

// Route returns the taxi route for the given vehicle class and direction.
// The returned slice is shared and must not be mutated by the caller.
func (a *Airfield) Route(class VehicleClass, dir Direction) ([]Waypoint, error) {
	cr, ok := a.TaxiRoutes.routes[class.Name()]
	if !ok {
		return nil, ErrUnknownRoute
	}
	wps := util.Select(dir == ToRunway, cr.ToRunway, cr.FromRunway)
	if len(wps) == 0 {
		return nil, ErrUnknownRoute
	}
	return wps, nil
}

// ParkingSpot returns the location of the named parking spot.
func (a *Airfield) ParkingSpot(name string) (math.Point3, error) {
	p, ok := a.Parking[name]
	if !ok {
		return math.Point3{}, ErrUnknownParkingSpot
	}
	return p, nil
}

// OnRunway reports whether the given position is within the runway's
// footprint (expanded slightly by the position tolerance).
func (a *Airfield) OnRunway(p math.Point3) bool {
	tol := a.Tolerances.Position
	return math.Abs(p[0]) <= a.Runway.Length/2+tol && math.Abs(p[2]) <= a.Runway.Width/2+tol
}

// NearestParking returns the name and distance of the parking spot
// closest to the given position.
func (a *Airfield) NearestParking(p math.Point3) (string, float32) {
	var best string
	bestDist := float32(-1)
	for _, name := range util.SortedMapKeys(a.Parking) {
		if d := math.GroundDistance(p, a.Parking[name]); bestDist < 0 || d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, bestDist
}

///////////////////////////////////////////////////////////////////////////
// RouteTable

// ClassRoutes gives the taxi routes for one vehicle class.
type ClassRoutes struct {
	ToRunway   []Waypoint `json:"to_runway"`
	FromRunway []Waypoint `json:"from_runway"`
}

// RouteTable maps vehicle class names to their taxi routes while
// remembering the order in which they were declared.
type RouteTable struct {
	order  []string
	routes map[string]ClassRoutes
}

func (rt *RouteTable) UnmarshalJSON(b []byte) error {
	om := orderedmap.New()
	if err := json.Unmarshal(b, om); err != nil {
		return err
	}

	rt.order = nil
	rt.routes = make(map[string]ClassRoutes)
	for _, name := range om.Keys() {
		v, _ := om.Get(name)
		// Remarshal the entry so it can be strictly decoded into
		// ClassRoutes.
		eb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var cr ClassRoutes
		if err := util.UnmarshalJSON(eb, &cr); err != nil {
			return err
		}
		rt.order = append(rt.order, name)
		rt.routes[name] = cr
	}
	return nil
}

func (rt RouteTable) MarshalJSON() ([]byte, error) {
	om := orderedmap.New()
	for _, name := range rt.order {
		om.Set(name, rt.routes[name])
	}
	return json.Marshal(om)
}

// ForEach calls the given function for each class's routes, in
// declaration order.
func (rt *RouteTable) ForEach(f func(class string, cr ClassRoutes)) {
	for _, name := range rt.order {
		f(name, rt.routes[name])
	}
}

///////////////////////////////////////////////////////////////////////////
// Loading

//go:embed airfield.json
var airfieldJSON []byte

// LoadAirfield parses and validates an airfield layout; if b is nil, the
// embedded default layout is used.
func LoadAirfield(b []byte, e *util.ErrorLogger) *Airfield {
	e.Push("airfield.json")
	defer e.Pop()

	if b == nil {
		b = airfieldJSON
	}

	var a Airfield
	if err := util.UnmarshalJSON(b, &a); err != nil {
		e.Error(err)
		return nil
	}
	a.validate(e)
	if e.HaveErrors() {
		return nil
	}
	return &a
}

func (a *Airfield) validate(e *util.ErrorLogger) {
	e.Push("runway")
	if a.Runway.Length <= 0 || a.Runway.Width <= 0 {
		e.ErrorString("non-positive runway dimensions %f x %f", a.Runway.Length, a.Runway.Width)
	}
	if a.Runway.EastThreshold[0] <= a.Runway.WestThreshold[0] {
		e.ErrorString("east threshold must be east of west threshold")
	}
	e.Pop()

	if len(a.Parking) == 0 {
		e.ErrorString("no parking spots defined")
	}
	for _, name := range util.SortedMapKeys(a.Parking) {
		if a.OnRunway(a.Parking[name]) {
			e.Push("parking " + name)
			e.ErrorString("parking spot is on the runway")
			e.Pop()
		}
	}

	a.TaxiRoutes.ForEach(func(class string, cr ClassRoutes) {
		e.Push("taxi_routes " + class)
		if _, err := ParseVehicleClass(class); err != nil {
			e.Error(err)
		}
		if len(cr.ToRunway) == 0 && len(cr.FromRunway) == 0 {
			e.ErrorString("no routes defined")
		}
		e.Pop()
	})

	if a.PushbackDistance <= 0 {
		e.ErrorString("non-positive pushback_distance %f", a.PushbackDistance)
	}
	if a.TaxiTimeoutSec <= 0 {
		e.ErrorString("non-positive taxi_timeout_sec %f", a.TaxiTimeoutSec)
	}
	if a.PushbackDurationSec <= 0 {
		e.ErrorString("non-positive pushback_duration_sec %f", a.PushbackDurationSec)
	}
	if a.Tolerances.Position <= 0 {
		e.ErrorString("non-positive position tolerance %f", a.Tolerances.Position)
	}
	if a.Tolerances.Heading <= 0 {
		e.ErrorString("non-positive heading tolerance %f", a.Tolerances.Heading)
	}
	if a.Tolerances.MinSafeAltitude <= 0 {
		e.ErrorString("non-positive min_safe_altitude %f", a.Tolerances.MinSafeAltitude)
	}
}
