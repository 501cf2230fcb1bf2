// sim/flight.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/nav"
	"github.com/airside-sim/airside/rand"
	"github.com/airside-sim/airside/util"
)

// PhaseKind selects the kinematics used to fly a phase. The delegated
// kinds hand the vehicle over to the taxi or landing controller and
// track that controller's progress instead of elapsed time.
type PhaseKind int

const (
	KindCruise PhaseKind = iota
	KindTakeoffRoll
	KindVertical
	KindHover
	KindTaxiToRunway
	KindTaxiToParking
	KindLanding
)

func (k PhaseKind) Delegated() bool {
	return k == KindTaxiToRunway || k == KindTaxiToParking || k == KindLanding
}

func (k PhaseKind) String() string {
	return [...]string{"cruise", "takeoff_roll", "vertical", "hover",
		"taxi_to_runway", "taxi_to_parking", "landing"}[k]
}

// FlightPhase is one named step of a flight plan. Timed kinds fly from
// the pose the vehicle holds at phase entry toward Target over Duration
// seconds; delegated kinds ignore those fields.
type FlightPhase struct {
	Name     string
	Kind     PhaseKind
	Duration float32 // seconds
	Target   nav.Pose
	Approach av.ApproachDirection // KindLanding only
}

type FlightPlan struct {
	Name   string
	Phases []FlightPhase
}

type flightOp struct {
	op      *Operation
	vehicle *Vehicle
	plan    FlightPlan
	index   int
	elapsed float32  // within the current phase
	start   nav.Pose // pose at phase entry
	jitter  nav.Jitter
	recall  bool

	delegate *Operation
}

// FlightDirector sequences multi-phase flight plans: dispatches, traffic
// patterns, and recalls. Taxi and landing phases are delegated to their
// controllers; the director only flies the timed phases itself.
type FlightDirector struct {
	lg      *log.Logger
	events  *EventChannel
	store   *StateStore
	taxi    *TaxiController
	landing *LandingController
	crew    *GroundCrew
	field   *av.Airfield
	rand    *rand.Rand

	ops map[string]*flightOp
	// Vehicles with a recall underway or awaiting finalization.
	recalls map[string]bool
}

func NewFlightDirector(events *EventChannel, store *StateStore, taxi *TaxiController,
	landing *LandingController, crew *GroundCrew, field *av.Airfield,
	r *rand.Rand, lg *log.Logger) *FlightDirector {
	return &FlightDirector{
		lg:      lg,
		events:  events,
		store:   store,
		taxi:    taxi,
		landing: landing,
		crew:    crew,
		field:   field,
		rand:    r,
		ops:     make(map[string]*flightOp),
		recalls: make(map[string]bool),
	}
}

// StartFlight begins executing the plan for the vehicle. The returned
// Operation is the handle for UpdateFlight and StopFlight.
func (fd *FlightDirector) StartFlight(v *Vehicle, plan FlightPlan) (*Operation, error) {
	if v.Op != nil {
		return nil, ErrOperationActive
	}
	if len(plan.Phases) == 0 {
		return nil, ErrEmptyFlightPlan
	}

	op := newOperation(v.ID, OpFlight)
	v.Op = op
	fo := &flightOp{op: op, vehicle: v, plan: plan}
	fd.ops[v.ID] = fo
	fd.lg.Info("flight started", slog.Any("vehicle", v), slog.String("plan", plan.Name))
	fd.enterPhase(fo, 0)
	return op, nil
}

// StopFlight force-terminates the vehicle's flight plan, aborting any
// delegated sub-operation first.
func (fd *FlightDirector) StopFlight(vehicleID string) error {
	fo, ok := fd.ops[vehicleID]
	if !ok {
		return ErrNoActiveOperation
	}
	fd.fail(fo, ErrOperationCanceled, "canceled")
	return nil
}

// UpdateFlight advances one flight operation by dt seconds and reports
// whether it has finished (successfully or not).
func (fd *FlightDirector) UpdateFlight(op *Operation, dt float32) bool {
	fo, ok := fd.ops[op.VehicleID]
	if !ok || fo.op != op {
		return true
	}
	fd.step(fo, dt)
	return op.Complete
}

// UpdateAll advances every active flight operation.
func (fd *FlightDirector) UpdateAll(dt float32) {
	for _, id := range util.SortedMapKeys(fd.ops) {
		if fo, ok := fd.ops[id]; ok {
			fd.step(fo, dt)
		}
	}
}

func (fd *FlightDirector) step(fo *flightOp, dt float32) {
	phase := fo.plan.Phases[fo.index]

	if phase.Kind.Delegated() {
		fd.stepDelegate(fo)
		return
	}

	fo.elapsed += dt
	progress := float32(1)
	if phase.Duration > 0 {
		progress = math.Min(fo.elapsed/phase.Duration, 1)
	}
	fo.op.Progress = progress

	var pose nav.Pose
	switch phase.Kind {
	case KindCruise:
		pose = nav.CruiseStep(fo.start, phase.Target, progress)
	case KindTakeoffRoll:
		pose = nav.TakeoffRollStep(fo.start, phase.Target, progress, fo.vehicle.Specs)
	case KindVertical:
		pose = nav.VerticalStep(fo.start, phase.Target, progress, fo.elapsed, fo.jitter)
	case KindHover:
		pose = nav.HoverStep(phase.Target, fo.elapsed, fo.jitter)
	}
	fo.vehicle.ApplyPose(pose)

	if progress >= 1 {
		fd.advance(fo)
	}
}

// stepDelegate tracks a sub-operation owned by the taxi or landing
// controller. Those controllers are ticked by the Sim; here we only
// watch for their verdict.
func (fd *FlightDirector) stepDelegate(fo *flightOp) {
	sub := fo.delegate
	if sub == nil {
		return
	}
	fo.op.Progress = sub.Progress
	if !sub.Complete {
		return
	}
	fo.delegate = nil
	if sub.Result.Outcome == Failed {
		fd.fail(fo, sub.Result.Err, "delegate_failed")
		return
	}
	// The delegate released the vehicle's operation slot; take it back.
	fo.vehicle.Op = fo.op
	fd.advance(fo)
}

func (fd *FlightDirector) enterPhase(fo *flightOp, index int) {
	fo.index = index
	fo.elapsed = 0
	fo.start = fo.vehicle.Pose()
	fo.jitter = nav.NewJitter(fd.rand)

	phase := fo.plan.Phases[index]
	fo.op.setPhase(phase.Name)
	fo.op.Progress = 0
	fd.store.Set(fo.vehicle.ID, OpFlight.String(), phase.Name, map[string]any{
		"plan":  fo.plan.Name,
		"index": index,
	})
	fd.events.Publish(TopicFlightPhaseChanged, FlightPhaseChange{
		VehicleID: fo.vehicle.ID,
		Phase:     phase.Name,
		Index:     index,
	})

	if phase.Kind.Delegated() {
		fd.startDelegate(fo, phase)
	}
}

func (fd *FlightDirector) startDelegate(fo *flightOp, phase FlightPhase) {
	// The sub-controller claims the vehicle's operation slot for the
	// duration of the phase.
	fo.vehicle.Op = nil

	var sub *Operation
	var err error
	switch phase.Kind {
	case KindTaxiToRunway:
		sub, err = fd.taxi.StartTaxi(fo.vehicle, av.ToRunway)
	case KindTaxiToParking:
		sub, err = fd.taxi.StartTaxi(fo.vehicle, av.FromRunway)
	case KindLanding:
		sub, err = fd.landing.StartLanding(fo.vehicle, phase.Approach)
	}
	if err != nil {
		fo.vehicle.Op = fo.op
		fd.fail(fo, err, "delegate_rejected")
		return
	}
	fo.delegate = sub
}

func (fd *FlightDirector) advance(fo *flightOp) {
	next := fo.index + 1
	if next < len(fo.plan.Phases) {
		fd.enterPhase(fo, next)
		return
	}
	fd.discard(fo)
	fo.op.Progress = 1
	fo.op.succeed()
	fd.store.Set(fo.vehicle.ID, OpFlight.String(), "complete", map[string]any{"plan": fo.plan.Name})
	fd.events.Publish(TopicFlightCompleted, FlightCompletion{VehicleID: fo.vehicle.ID})
	fd.lg.Info("flight complete", slog.Any("vehicle", fo.vehicle), slog.String("plan", fo.plan.Name))
}

func (fd *FlightDirector) fail(fo *flightOp, err error, reason string) {
	if _, ok := fd.ops[fo.vehicle.ID]; !ok {
		return
	}
	if fo.delegate != nil && !fo.delegate.Complete {
		switch fo.delegate.Kind {
		case OpTaxi:
			fd.taxi.StopTaxi(fo.vehicle.ID)
		case OpLanding:
			fd.landing.AbortLanding(fo.vehicle.ID)
		}
		fo.delegate = nil
	}
	fd.discard(fo)
	fo.op.fail(err)
	fd.events.Publish(TopicFlightError, FlightFailure{VehicleID: fo.vehicle.ID, Reason: reason})
	fd.lg.Warn("flight failed", slog.Any("vehicle", fo.vehicle), slog.String("reason", reason))
}

func (fd *FlightDirector) discard(fo *flightOp) {
	fo.vehicle.Op = nil
	delete(fd.ops, fo.vehicle.ID)
}
