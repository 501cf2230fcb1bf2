// sim/flight_test.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/nav"
)

func cruiseTo(name string, p math.Point3, speed, duration float32) FlightPhase {
	return FlightPhase{
		Name:     name,
		Kind:     KindCruise,
		Duration: duration,
		Target:   nav.Pose{P: p, Speed: speed},
	}
}

func TestFlightPhaseAdvancement(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "HC1", av.Helicopter, "helipad")

	plan := FlightPlan{
		Name: "two_legs",
		Phases: []FlightPhase{
			cruiseTo("leg_1", math.Point3{80, 30, 60}, 10, 2),
			cruiseTo("leg_2", math.Point3{0, 30, 0}, 10, 2),
		},
	}

	var phases []string
	s.Events.Subscribe(TopicFlightPhaseChanged, func(ev Event) {
		phases = append(phases, ev.Payload.(FlightPhaseChange).Phase)
	})

	op, err := s.Flights.StartFlight(v, plan)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if op.Phase != "leg_1" {
		t.Errorf("initial phase %q", op.Phase)
	}

	if !tick(s, 100, func() bool { return op.Complete }) {
		t.Fatalf("never completed; phase %q", op.Phase)
	}
	if op.Result.Outcome != Succeeded {
		t.Fatalf("outcome %+v", op.Result)
	}
	if len(phases) != 2 || phases[0] != "leg_1" || phases[1] != "leg_2" {
		t.Errorf("phase changes %v", phases)
	}
	// The final cruise target is hit exactly at progress 1.
	if v.Position != (math.Point3{0, 30, 0}) {
		t.Errorf("final position %v", v.Position)
	}
}

func TestFlightEmptyPlan(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")
	if _, err := s.Flights.StartFlight(v, FlightPlan{Name: "empty"}); err != ErrEmptyFlightPlan {
		t.Errorf("empty plan: %v", err)
	}
	if v.Op != nil {
		t.Error("operation attached for rejected plan")
	}
}

func TestFlightDelegatesTaxi(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")

	plan := FlightPlan{
		Name:   "taxi_only",
		Phases: []FlightPhase{{Name: "taxi_to_runway", Kind: KindTaxiToRunway}},
	}
	op, err := s.Flights.StartFlight(v, plan)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// During delegation the taxi controller owns the vehicle's slot.
	if v.Op == nil || v.Op.Kind != OpTaxi {
		t.Fatalf("vehicle operation during delegation: %+v", v.Op)
	}

	if !tick(s, 2000, func() bool { return op.Complete }) {
		t.Fatalf("never completed; phase %q pos %v", op.Phase, v.Position)
	}
	if op.Result.Outcome != Succeeded {
		t.Fatalf("outcome %+v", op.Result)
	}
	route, _ := s.field.Route(av.Airliner, av.ToRunway)
	if v.Position != route[len(route)-1].P {
		t.Errorf("position %v", v.Position)
	}
}

func TestFlightDelegateRejectionFailsFlight(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")
	v.Position = [3]float32{0, av.GroundLevel, -200} // fails taxi validation

	var failures []FlightFailure
	s.Events.Subscribe(TopicFlightError, func(ev Event) {
		failures = append(failures, ev.Payload.(FlightFailure))
	})

	plan := FlightPlan{
		Name:   "taxi_only",
		Phases: []FlightPhase{{Name: "taxi_to_runway", Kind: KindTaxiToRunway}},
	}
	op, err := s.Flights.StartFlight(v, plan)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !op.Complete || op.Result.Outcome != Failed {
		t.Fatalf("result %+v", op.Result)
	}
	if len(failures) != 1 || failures[0].Reason != "delegate_rejected" {
		t.Errorf("failures %+v", failures)
	}
	if v.Op != nil {
		t.Error("operation left attached")
	}
}

func TestDispatchPlanShapes(t *testing.T) {
	s := newTestSim(t)
	al := addVehicle(t, s, "AL1", av.Airliner, "stand_1")
	hc := addVehicle(t, s, "HC1", av.Helicopter, "helipad")

	fixed := DispatchPlan(al, s.field, PatternRectangular)
	if fixed.Phases[0].Kind != KindTaxiToRunway {
		t.Errorf("fixed-wing plan starts with %s", fixed.Phases[0].Kind)
	}
	if last := fixed.Phases[len(fixed.Phases)-1]; last.Kind != KindTaxiToParking {
		t.Errorf("fixed-wing plan ends with %s", last.Kind)
	}
	var hasLanding bool
	for _, ph := range fixed.Phases {
		if ph.Kind == KindLanding {
			hasLanding = true
		}
	}
	if !hasLanding {
		t.Error("fixed-wing plan has no landing phase")
	}

	// The takeoff climbs along the published departure waypoints.
	dep := av.DepartureWaypoints(av.ApproachEast)
	if fixed.Phases[1].Kind != KindTakeoffRoll || fixed.Phases[1].Target.P != dep[1].P {
		t.Errorf("takeoff targets %v, expected %v", fixed.Phases[1].Target.P, dep[1].P)
	}

	heli := DispatchPlan(hc, s.field, PatternCircular)
	for _, ph := range heli.Phases {
		if ph.Kind.Delegated() {
			t.Errorf("helicopter plan delegates %s", ph.Kind)
		}
	}
	if heli.Phases[0].Kind != KindVertical {
		t.Errorf("helicopter plan starts with %s", heli.Phases[0].Kind)
	}
	if last := heli.Phases[len(heli.Phases)-1]; last.Kind != KindVertical ||
		last.Target.P[1] != av.GroundLevel {
		t.Errorf("helicopter plan ends with %s to %v", last.Kind, last.Target.P)
	}
}

func TestRecallPlanSelection(t *testing.T) {
	s := newTestSim(t)

	// Grounded: only the taxi back.
	g := addVehicle(t, s, "AL1", av.Airliner, "stand_1")
	g.Position = [3]float32{-60, av.GroundLevel, 5}
	plan := RecallPlan(g, s.field)
	if len(plan.Phases) != 1 || plan.Phases[0].Kind != KindTaxiToParking {
		t.Errorf("grounded plan %+v", plan.Phases)
	}

	// Airborne fixed-wing: pattern re-entry, landing, taxi back.
	a, _ := s.AddVehicle("AL2", av.Airliner, [3]float32{300, 50, 100})
	plan = RecallPlan(a, s.field)
	kinds := make([]PhaseKind, len(plan.Phases))
	for i, ph := range plan.Phases {
		kinds[i] = ph.Kind
	}
	want := []PhaseKind{KindCruise, KindLanding, KindTaxiToParking}
	if len(kinds) != len(want) {
		t.Fatalf("fixed-wing plan kinds %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("phase %d: %s, expected %s", i, kinds[i], want[i])
		}
	}

	// Airborne helicopter: direct vertical return, no runway.
	h, _ := s.AddVehicle("HC1", av.Helicopter, [3]float32{100, 40, -50})
	plan = RecallPlan(h, s.field)
	for _, ph := range plan.Phases {
		if ph.Kind.Delegated() {
			t.Errorf("helicopter recall delegates %s", ph.Kind)
		}
	}
	if last := plan.Phases[len(plan.Phases)-1]; last.Kind != KindVertical {
		t.Errorf("helicopter recall ends with %s", last.Kind)
	}
}

func TestRecallLifecycle(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")
	v.Position = [3]float32{-60, av.GroundLevel, 5} // grounded on the runway

	if err := s.CompleteRecall("AL1"); err != ErrNoActiveRecall {
		t.Fatalf("premature CompleteRecall: %v", err)
	}

	op, err := s.Recall("AL1")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if err := s.CompleteRecall("AL1"); err != ErrRecallNotFinished {
		t.Fatalf("CompleteRecall mid-flight: %v", err)
	}

	if !tick(s, 2000, func() bool { return op.Complete }) {
		t.Fatalf("recall flight never completed; pos %v", v.Position)
	}
	if err := s.CompleteRecall("AL1"); err != nil {
		t.Fatalf("CompleteRecall: %v", err)
	}
	// Finalization parks exactly on the nearest stand.
	name, _ := s.field.NearestParking(v.Position)
	spot, _ := s.field.ParkingSpot(name)
	if v.Position != spot {
		t.Errorf("parked at %v, expected %v", v.Position, spot)
	}
	if v.Speed != 0 {
		t.Errorf("speed %f", v.Speed)
	}

	if err := s.CompleteRecall("AL1"); err != ErrNoActiveRecall {
		t.Errorf("repeated CompleteRecall: %v", err)
	}
}

func TestRecallInterruptsDispatch(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")

	dispatch, err := s.Dispatch("AL1", PatternCircular)
	if err != nil {
		t.Fatal(err)
	}

	// Fly the dispatch until the aircraft is established airborne.
	if !tick(s, 5000, func() bool { return v.Position[1] > av.GroundLevel+5 }) {
		t.Fatalf("never became airborne; pos %v phase %q", v.Position, dispatch.Phase)
	}

	rec, err := s.Recall("AL1")
	if err != nil {
		t.Fatalf("recall of an airborne dispatch: %v", err)
	}
	if !dispatch.Complete || dispatch.Result.Outcome != Failed {
		t.Errorf("superseded dispatch result %+v", dispatch.Result)
	}
	// Airborne fixed wing must fly the pattern-rejoin plan, not taxi.
	if rec.Phase != "rejoin_pattern" {
		t.Errorf("recall started in phase %q", rec.Phase)
	}
	if err := s.CompleteRecall("AL1"); err != ErrRecallNotFinished {
		t.Fatalf("CompleteRecall while still flying: %v", err)
	}

	if !tick(s, 30000, func() bool { return rec.Complete }) {
		t.Fatalf("recall never completed; pos %v phase %q", v.Position, rec.Phase)
	}
	if rec.Result.Outcome != Succeeded {
		t.Fatalf("recall result %+v", rec.Result)
	}
	if err := s.CompleteRecall("AL1"); err != nil {
		t.Fatalf("CompleteRecall: %v", err)
	}
	name, _ := s.field.NearestParking(v.Position)
	spot, _ := s.field.ParkingSpot(name)
	if v.Position != spot || v.Speed != 0 {
		t.Errorf("parked at %v speed %f, expected %v", v.Position, v.Speed, spot)
	}
}

func TestForceResetToParkingReleasesTug(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")

	op, err := s.StartTaxi("AL1", av.ToRunway)
	if err != nil {
		t.Fatal(err)
	}
	if op.Phase != TaxiBeingPushed.String() {
		t.Fatalf("phase %q", op.Phase)
	}

	if err := s.ForceResetToParking("AL1"); err != nil {
		t.Fatal(err)
	}
	if !op.Complete || op.Result.Outcome != Failed {
		t.Errorf("taxi result %+v", op.Result)
	}
	if v.BeingTowed {
		t.Error("tow flag survived reset")
	}
	for _, tug := range s.Crew.Pool() {
		if !tug.Available {
			t.Errorf("%s not released", tug.ID)
		}
	}
	name, _ := s.field.NearestParking(v.Position)
	spot, _ := s.field.ParkingSpot(name)
	if v.Position != spot || v.Speed != 0 || v.Op != nil {
		t.Errorf("reset state: pos %v speed %f op %+v", v.Position, v.Speed, v.Op)
	}
}

func TestStopFlight(t *testing.T) {
	s := newTestSim(t)
	v := addVehicle(t, s, "AL1", av.Airliner, "stand_1")

	op, err := s.Flights.StartFlight(v, FlightPlan{
		Name:   "taxi_only",
		Phases: []FlightPhase{{Name: "taxi_to_runway", Kind: KindTaxiToRunway}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Flights.StopFlight("AL1"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if op.Result.Err != ErrOperationCanceled {
		t.Errorf("result %+v", op.Result)
	}
	if v.Op != nil || v.BeingTowed {
		t.Error("cancellation left state behind")
	}
	if err := s.Flights.StopFlight("AL1"); err != ErrNoActiveOperation {
		t.Errorf("second stop: %v", err)
	}
}
