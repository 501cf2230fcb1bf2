// nav/nav_test.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"testing"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/rand"
)

func airlinerPerf(t *testing.T) av.Performance {
	t.Helper()
	perf, ok := av.BuiltinDB().Performance[av.Airliner]
	if !ok {
		t.Fatal("no airliner performance")
	}
	return perf
}

func TestTaxiMovement(t *testing.T) {
	perf := airlinerPerf(t)
	pose := Pose{P: math.Point3{0, 1, 0}}
	target := math.Point3{100, 1, 0}

	// Pointing straight at the target: full taxi speed.
	next := TaxiMovement(pose, target, perf, 1)
	if math.Abs(next.Speed-perf.Speed.Taxi) > 1e-3 {
		t.Errorf("aligned taxi speed %f, expected %f", next.Speed, perf.Speed.Taxi)
	}
	if next.P[0] <= pose.P[0] {
		t.Errorf("did not advance toward target: %v", next.P)
	}
	if next.P[1] != av.GroundLevel {
		t.Errorf("left the ground: %v", next.P)
	}

	// Facing away: slowed, but no less than 30% of taxi speed.
	pose.SetHeading(math.Pi())
	next = TaxiMovement(pose, target, perf, 0.01)
	if min := 0.3 * perf.Speed.Taxi; next.Speed < min-1e-3 {
		t.Errorf("misaligned speed %f below floor %f", next.Speed, min)
	}
	if next.Speed > 0.8*perf.Speed.Taxi {
		t.Errorf("misaligned taxi should be slowed; got %f of %f", next.Speed, perf.Speed.Taxi)
	}
}

func TestTaxiNavFollowsRoute(t *testing.T) {
	perf := airlinerPerf(t)
	route := []av.Waypoint{
		{Name: "a", P: math.Point3{30, 1, 0}},
		{Name: "b", P: math.Point3{30, 1, 30}},
		{Name: "c", P: math.Point3{60, 1, 30}, Heading: func() *float32 { h := float32(0); return &h }()},
	}

	tn, err := NewTaxiNav(route, 3)
	if err != nil {
		t.Fatal(err)
	}

	pose := Pose{P: math.Point3{0, 1, 0}}
	finished := false
	for i := 0; i < 1000 && !finished; i++ {
		pose, finished = tn.Update(pose, perf, 0.1)
	}
	if !finished {
		t.Fatal("route never finished")
	}
	if pose.P != route[2].P {
		t.Errorf("final pose %v not snapped to %v", pose.P, route[2].P)
	}
	if pose.Heading() != 0 {
		t.Errorf("final heading %f, expected waypoint heading 0", pose.Heading())
	}
	if pose.Speed != 0 {
		t.Errorf("final speed %f", pose.Speed)
	}

	// Further updates are no-ops.
	again, fin := tn.Update(pose, perf, 0.1)
	if !fin || again != pose {
		t.Errorf("post-completion update changed the pose")
	}
}

func TestTaxiNavDeepCopiesRoute(t *testing.T) {
	route := []av.Waypoint{{Name: "a", P: math.Point3{10, 1, 0}}}
	tn, err := NewTaxiNav(route, 3)
	if err != nil {
		t.Fatal(err)
	}
	route[0].P = math.Point3{999, 1, 0}
	if wp, _ := tn.Current(); wp.P != (math.Point3{10, 1, 0}) {
		t.Errorf("mutating the source route affected the nav: %v", wp.P)
	}
}

func TestNewTaxiNavEmptyRoute(t *testing.T) {
	if _, err := NewTaxiNav(nil, 3); err != ErrEmptyRoute {
		t.Errorf("expected ErrEmptyRoute, got %v", err)
	}
}

func TestTouchdownStep(t *testing.T) {
	pose := Pose{
		P:     math.Point3{30, 2, 4},
		Rot:   math.Point3{0.1, 0, 0.2},
		Speed: 40,
	}
	next := TouchdownStep(pose, av.ApproachEast, 0.1)
	if next.P[2] != 0 || next.P[1] != av.GroundLevel {
		t.Errorf("not snapped to centerline: %v", next.P)
	}
	if next.P[0] >= pose.P[0] {
		t.Errorf("eastern arrival should roll toward -x: %f", next.P[0])
	}
	if next.Rot[0] != 0 || next.Rot[2] != 0 {
		t.Errorf("attitude not leveled: %v", next.Rot)
	}
	if math.Abs(next.Speed-40*TouchdownDecay) > 1e-3 {
		t.Errorf("speed %f, expected %f", next.Speed, 40*TouchdownDecay)
	}
}

func TestGoAround(t *testing.T) {
	perf := airlinerPerf(t)
	pose := Pose{P: math.Point3{60, 4, 0}, Speed: 5}
	next := GoAround(pose, perf)
	if next.P[1] < GoAroundAltitude {
		t.Errorf("altitude %f below go-around floor", next.P[1])
	}
	if next.Rot[0] != ClimbPitch {
		t.Errorf("pitch %f, expected climb attitude", next.Rot[0])
	}
	if next.Speed < perf.Speed.Max/2 {
		t.Errorf("speed %f not restored", next.Speed)
	}

	// Already above the floor: altitude is kept.
	high := Pose{P: math.Point3{60, 50, 0}, Speed: 40}
	if next := GoAround(high, perf); next.P[1] != 50 {
		t.Errorf("go-around lowered the vehicle to %f", next.P[1])
	}
}

func TestCruiseStep(t *testing.T) {
	start := Pose{P: math.Point3{0, 30, 0}, Speed: 20}
	target := Pose{P: math.Point3{100, 50, 0}, Speed: 40}

	if pose := CruiseStep(start, target, 0); pose.P != start.P {
		t.Errorf("progress 0: %v", pose.P)
	}
	if pose := CruiseStep(start, target, 1); pose.P != target.P || pose.Speed != 40 {
		t.Errorf("progress 1: %v", pose)
	}
	mid := CruiseStep(start, target, 0.5)
	if mid.P != (math.Point3{50, 40, 0}) {
		t.Errorf("progress 0.5: %v", mid.P)
	}
}

func TestCruiseStepHeadingWrap(t *testing.T) {
	// Interpolation between headings on either side of zero takes the
	// short way around.
	start := Pose{Rot: math.Point3{0, 2*math.Pi() - 0.2, 0}}
	target := Pose{Rot: math.Point3{0, 0.2, 0}}
	mid := CruiseStep(start, target, 0.5)
	if d := math.Abs(math.AngleDifference(mid.Heading(), 0)); d > 1e-3 {
		t.Errorf("midpoint heading %f, expected 0", mid.Heading())
	}
}

func TestTakeoffRollStep(t *testing.T) {
	perf := airlinerPerf(t)
	start := Pose{P: math.Point3{-100, 1, 0}}
	target := Pose{P: math.Point3{200, 40, 0}, Speed: 45}

	// First half: on the ground, accelerating.
	quarter := TakeoffRollStep(start, target, 0.25, perf)
	if quarter.P[1] != av.GroundLevel {
		t.Errorf("airborne during ground roll: %v", quarter.P)
	}
	if quarter.Speed <= start.Speed {
		t.Errorf("not accelerating: %f", quarter.Speed)
	}

	// Second half: climbing with nose up.
	climb := TakeoffRollStep(start, target, 0.75, perf)
	if climb.P[1] <= av.GroundLevel {
		t.Errorf("still on the ground at progress 0.75: %v", climb.P)
	}
	if climb.Rot[0] >= 0 {
		t.Errorf("expected nose-up pitch, got %f", climb.Rot[0])
	}

	// Phase end lands exactly on the target position.
	if done := TakeoffRollStep(start, target, 1, perf); done.P != target.P {
		t.Errorf("progress 1: %v, expected %v", done.P, target.P)
	}
}

func TestVerticalStep(t *testing.T) {
	r := rand.New()
	r.Seed(1)
	j := NewJitter(&r)

	start := Pose{P: math.Point3{80, 1, 60}}
	target := Pose{P: math.Point3{80, 25, 60}}

	// Never below ground, and converging to the target by the end.
	for _, elapsed := range []float32{0, 0.5, 1.3, 2.7} {
		pose := VerticalStep(start, target, elapsed/4, elapsed, j)
		if pose.P[1] < av.GroundLevel {
			t.Errorf("below ground at %f: %v", elapsed, pose.P)
		}
	}
	end := VerticalStep(start, target, 1, 4, j)
	// Jitter has decayed to under 5% of its amplitude by progress 1.
	if math.Abs(end.P[1]-target.P[1]) > 0.05*j.Amplitude+1e-3 {
		t.Errorf("end altitude %f, expected ~%f", end.P[1], target.P[1])
	}
}

func TestHoverStep(t *testing.T) {
	r := rand.New()
	r.Seed(1)
	j := NewJitter(&r)

	target := Pose{P: math.Point3{80, 25, 60}}
	pose := HoverStep(target, 1.5, j)
	if math.Abs(pose.P[1]-target.P[1]) > j.Amplitude {
		t.Errorf("hover wandered %f units from target altitude", pose.P[1]-target.P[1])
	}
	if pose.Speed <= 0 {
		t.Errorf("hover speed %f", pose.Speed)
	}
}
