// aviation/route_test.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"testing"
	"time"

	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"
)

func TestLoadAirfield(t *testing.T) {
	var e util.ErrorLogger
	field := LoadAirfield(nil, &e)
	if e.HaveErrors() {
		t.Fatalf("embedded airfield failed validation: %s", e.String())
	}

	for _, class := range []VehicleClass{Airliner, BizJet, TurboProp} {
		for _, dir := range []Direction{ToRunway, FromRunway} {
			wps, err := field.Route(class, dir)
			if err != nil {
				t.Errorf("%s %s: %v", class, dir, err)
				continue
			}
			if len(wps) == 0 {
				t.Errorf("%s %s: empty route", class, dir)
			}
		}
	}

	// Helicopters never taxi and have no routes.
	if _, err := field.Route(Helicopter, ToRunway); err == nil {
		t.Errorf("expected no route for helicopter")
	}

	// The to-runway routes must end at the west threshold so a takeoff
	// roll toward the east can follow.
	for _, class := range []VehicleClass{Airliner, BizJet, TurboProp} {
		wps, err := field.Route(class, ToRunway)
		if err != nil || len(wps) == 0 {
			t.Errorf("%s: no to-runway route: %v", class, err)
			continue
		}
		last := wps[len(wps)-1]
		if d := math.GroundDistance(last.P, field.Runway.WestThreshold); d > field.Tolerances.Position {
			t.Errorf("%s: to-runway route ends %.1f units from the west threshold", class, d)
		}
	}
}

func TestVehicleClassNames(t *testing.T) {
	// Name must round-trip through ParseVehicleClass and match the keys
	// the route table is declared with, or Route lookups silently miss.
	for c := VehicleClass(0); c < NumVehicleClasses; c++ {
		parsed, err := ParseVehicleClass(c.Name())
		if err != nil || parsed != c {
			t.Errorf("%s: Name %q does not round-trip: %v %v", c, c.Name(), parsed, err)
		}
	}

	field := loadTestAirfield(t)
	field.TaxiRoutes.ForEach(func(name string, cr ClassRoutes) {
		class, err := ParseVehicleClass(name)
		if err != nil {
			t.Errorf("route table key %q: %v", name, err)
			return
		}
		if len(cr.ToRunway) > 0 {
			if _, err := field.Route(class, ToRunway); err != nil {
				t.Errorf("%s: declared to-runway route not found by lookup: %v", name, err)
			}
		}
		if len(cr.FromRunway) > 0 {
			if _, err := field.Route(class, FromRunway); err != nil {
				t.Errorf("%s: declared from-runway route not found by lookup: %v", name, err)
			}
		}
	})
}

func TestDirectRoute(t *testing.T) {
	from := math.Point3{0, 1, 0}
	to := math.Point3{100, 1, 0}
	wps := DirectRoute(from, to, 25)
	if len(wps) != 4 {
		t.Fatalf("expected 4 waypoints at spacing 25 over 100 units; got %d", len(wps))
	}
	if wps[len(wps)-1].P != to {
		t.Errorf("final waypoint %v is not the destination %v", wps[len(wps)-1].P, to)
	}
	for i := 1; i < len(wps); i++ {
		if d := math.Distance3f(wps[i-1].P, wps[i].P); math.Abs(d-25) > 1e-3 {
			t.Errorf("waypoint spacing %f at %d", d, i)
		}
	}
}

func TestApproachWaypoints(t *testing.T) {
	for _, c := range []struct {
		dir                  ApproachDirection
		initialX, touchdownX float32
		rolloutX             float32
	}{
		{ApproachEast, 400, 40, -80},
		{ApproachWest, -400, -40, 80},
	} {
		wps := ApproachWaypoints(c.dir)
		if len(wps) != 6 {
			t.Fatalf("%s: expected 6 approach waypoints, got %d", c.dir, len(wps))
		}
		if wps[0].P[0] != c.initialX {
			t.Errorf("%s: initial approach at x=%f, expected %f", c.dir, wps[0].P[0], c.initialX)
		}
		if td := TouchdownWaypoint(c.dir); td.P[0] != c.touchdownX || td.Name != "touchdown" {
			t.Errorf("%s: touchdown %v", c.dir, td)
		}
		if ro := RolloutWaypoint(c.dir); ro.P[0] != c.rolloutX || ro.P[2] != 0 || ro.P[1] != GroundLevel {
			t.Errorf("%s: rollout %v", c.dir, ro)
		}

		// Altitudes follow the glide slope down to the touchdown point.
		for i, wp := range wps[:5] {
			d := math.Abs(wp.P[0] - c.touchdownX)
			if want := GlideSlopeAltitude(d); wp.P[1] != want {
				t.Errorf("%s waypoint %d: altitude %f, expected %f", c.dir, i, wp.P[1], want)
			}
		}
	}
}

func TestApproachWaypointsCached(t *testing.T) {
	// Mutating a returned set must not corrupt later lookups.
	wps := ApproachWaypoints(ApproachEast)
	orig := wps[0].P
	wps[0].P = math.Point3{999, 999, 999}
	if again := ApproachWaypoints(ApproachEast); again[0].P != orig {
		t.Errorf("cache returned mutated waypoints: %v", again[0].P)
	}
}

func TestGlideSlopeAltitude(t *testing.T) {
	if a := GlideSlopeAltitude(100); a != 10 {
		t.Errorf("at 100 units: %f", a)
	}
	if a := GlideSlopeAltitude(0); a != 1 {
		t.Errorf("at touchdown the floor is ground level; got %f", a)
	}
	if a := GlideSlopeAltitude(5); a != 1 {
		t.Errorf("below the floor: %f", a)
	}
}

func TestSimplifyRoute(t *testing.T) {
	wps := []Waypoint{
		{Name: "a", P: math.Point3{0, 1, 0}},
		{Name: "b", P: math.Point3{50, 1, 0.1}}, // negligible detour
		{Name: "c", P: math.Point3{100, 1, 0}},
		{Name: "d", P: math.Point3{100, 1, 50}},
	}
	s := SimplifyRoute(wps, 0.5)
	if len(s) != 3 {
		t.Fatalf("expected b to be removed; got %d waypoints", len(s))
	}
	if s[0].Name != "a" || s[len(s)-1].Name != "d" {
		t.Errorf("endpoints not preserved: %v", s)
	}

	// A waypoint with a required heading survives even with no detour.
	hdg := float32(0)
	wps[1].Heading = &hdg
	if s := SimplifyRoute(wps, 0.5); len(s) != 4 {
		t.Errorf("heading waypoint should be preserved; got %d", len(s))
	}
}

func TestEstimateTime(t *testing.T) {
	var perf Performance
	perf.Speed.Taxi = 10
	wps := []Waypoint{
		{P: math.Point3{30, 1, 0}},
		{P: math.Point3{30, 1, 40}},
	}
	// 70 units at 10 units/s.
	if d := EstimateTime(math.Point3{0, 1, 0}, wps, perf); d != 7*time.Second {
		t.Errorf("estimate %s, expected 7s", d)
	}
	if d := EstimateTime(math.Point3{0, 1, 0}, wps, Performance{}); d != 0 {
		t.Errorf("estimate %s for an unknown taxi speed, expected 0", d)
	}
}

func TestRouteDistance(t *testing.T) {
	wps := []Waypoint{
		{P: math.Point3{10, 1, 0}},
		{P: math.Point3{10, 1, 20}},
	}
	if d := RouteDistance(math.Point3{0, 1, 0}, wps); math.Abs(d-30) > 1e-3 {
		t.Errorf("distance %f, expected 30", d)
	}
}

func TestAvoidObstacle(t *testing.T) {
	start := math.Point3{0, 1, 0}
	wps := []Waypoint{{Name: "end", P: math.Point3{100, 1, 0}}}

	out, detoured := AvoidObstacle(start, wps, math.Point3{50, 1, 0}, 10)
	if !detoured {
		t.Fatalf("expected a detour around an obstacle on the route")
	}
	if len(out) != 2 {
		t.Fatalf("expected a single inserted waypoint; got %d", len(out))
	}

	// The detoured route must clear the obstacle.
	p := start
	for _, wp := range out {
		if math.LineCircleIntersects(p, wp.P, math.Point3{50, 1, 0}, 10) {
			t.Errorf("detoured leg to %v still passes through the obstacle", wp.P)
		}
		p = wp.P
	}

	// No change when the route misses the obstacle.
	if _, detoured := AvoidObstacle(start, wps, math.Point3{50, 1, 40}, 10); detoured {
		t.Errorf("unexpected detour for an obstacle off the route")
	}
}

func TestPatterns(t *testing.T) {
	center := math.Point3{0, 40, 0}

	circ := CircularPattern(center, 100, 8)
	if len(circ) != 8 {
		t.Fatalf("expected 8 waypoints, got %d", len(circ))
	}
	for i, wp := range circ {
		if d := math.GroundDistance(wp.P, center); math.Abs(d-100) > 1e-2 {
			t.Errorf("waypoint %d at distance %f from center", i, d)
		}
		if wp.P[1] != 40 {
			t.Errorf("waypoint %d altitude %f", i, wp.P[1])
		}
	}

	rect := RectangularPattern(center, 200, 100)
	if len(rect) != 4 {
		t.Fatalf("expected 4 corners, got %d", len(rect))
	}

	oval := OvalPattern(center, 200, 50, 4)
	if len(oval) != 10 {
		t.Errorf("expected 10 oval waypoints, got %d", len(oval))
	}
}
