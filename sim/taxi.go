// sim/taxi.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/nav"
	"github.com/airside-sim/airside/util"
)

// taxiOp bundles the moving parts of one taxi operation.
type taxiOp struct {
	op      *Operation
	vehicle *Vehicle
	dir     av.Direction
	machine *TaxiStateMachine
	route   *nav.TaxiNav
	timeout TimerID
	subs    []*Subscription
}

// TaxiController orchestrates taxi operations end to end: validation,
// tug request and pushback for departures, independent waypoint
// following, and completion or timeout. It reacts to ground crew events
// and drives the per-operation state machine; the host tick driver
// calls Update once per frame.
type TaxiController struct {
	lg        *log.Logger
	events    *EventChannel
	scheduler *Scheduler
	store     *StateStore
	crew      *GroundCrew
	field     *av.Airfield

	timeout time.Duration
	ops     map[string]*taxiOp
}

func NewTaxiController(events *EventChannel, scheduler *Scheduler, store *StateStore,
	crew *GroundCrew, field *av.Airfield, lg *log.Logger) *TaxiController {
	return &TaxiController{
		lg:        lg,
		events:    events,
		scheduler: scheduler,
		store:     store,
		crew:      crew,
		field:     field,
		timeout:   field.TaxiTimeout(),
		ops:       make(map[string]*taxiOp),
	}
}

// SetTimeout overrides the airfield's default taxi timeout budget.
func (tc *TaxiController) SetTimeout(d time.Duration) {
	tc.timeout = d
}

// StartTaxi begins a taxi operation for the vehicle in the given
// direction. The returned Operation's Result settles when the operation
// completes, fails, or times out. Helicopters complete immediately: they
// have no taxi routes. Validation failures are reported synchronously
// and no operation starts.
func (tc *TaxiController) StartTaxi(v *Vehicle, dir av.Direction) (*Operation, error) {
	if v.Op != nil {
		return nil, ErrOperationActive
	}

	if v.Class.VerticalTakeoff() {
		op := newOperation(v.ID, OpTaxi)
		op.setPhase(TaxiComplete.String())
		op.succeed()
		tc.store.Set(v.ID, OpTaxi.String(), TaxiComplete.String(), nil)
		tc.events.Publish(TopicTaxiCompleted, TaxiCompletion{VehicleID: v.ID, Direction: dir})
		return op, nil
	}

	if err := av.CheckTaxi(v.Status(), dir, tc.field).Err(); err != nil {
		tc.events.Publish(TopicTaxiError, TaxiFailure{VehicleID: v.ID, Reason: err.Error()})
		return nil, err
	}

	route, err := tc.field.Route(v.Class, dir)
	if err != nil {
		return nil, err
	}
	tn, err := nav.NewTaxiNav(route, tc.field.Tolerances.Position)
	if err != nil {
		return nil, err
	}

	op := newOperation(v.ID, OpTaxi)
	v.Op = op
	to := &taxiOp{
		op:      op,
		vehicle: v,
		dir:     dir,
		machine: NewTaxiStateMachine(v.ID, tc.store, tc.events, tc.lg),
		route:   tn,
	}
	tc.ops[v.ID] = to

	to.timeout = tc.scheduler.After(tc.timeout, func() {
		tc.fail(to, ErrOperationTimeout, "timeout")
	})

	tc.events.Publish(TopicTaxiStarted, TaxiStarted{VehicleID: v.ID, Direction: dir})
	tc.lg.Info("taxi started", slog.Any("vehicle", v), slog.String("direction", dir.String()))

	if dir == av.ToRunway {
		tc.requestGroundVehicle(to)
	} else {
		// Arrivals taxi off the runway under their own power.
		tc.transition(to, TaxiIndependent)
	}
	return op, nil
}

// requestGroundVehicle asks the ground crew for a pushback tug and wires
// up the handlers for its answer. The crew answers synchronously during
// the request publish, so the subscriptions must be registered first.
func (tc *TaxiController) requestGroundVehicle(to *taxiOp) {
	tc.transition(to, TaxiRequestingVehicle)

	to.subs = append(to.subs,
		tc.events.Subscribe(TopicGroundVehicleAvailable, func(ev Event) {
			asn, ok := ev.Payload.(GroundVehicleAssignment)
			if !ok || asn.VehicleID != to.vehicle.ID {
				return
			}
			tc.transition(to, TaxiVehicleDispatched)
			to.op.GroundVehicle = tc.crew.Assigned(to.vehicle.ID)
			tc.events.Publish(TopicStartPushback, PushbackStart{
				VehicleID:       to.vehicle.ID,
				GroundVehicleID: asn.GroundVehicleID,
			})
			// The crew begins towing during the publish above.
			tc.transition(to, TaxiBeingPushed)
		}),
		tc.events.Subscribe(TopicGroundVehicleUnavailable, func(ev Event) {
			un, ok := ev.Payload.(GroundVehicleUnavailable)
			if !ok || un.VehicleID != to.vehicle.ID {
				return
			}
			// Not fatal: degrade to taxiing out without a pushback.
			tc.lg.Info("no tug free; taxiing without pushback",
				slog.String("vehicle", to.vehicle.ID))
			tc.transition(to, TaxiIndependent)
		}),
		tc.events.Subscribe(TopicPushbackComplete, func(ev Event) {
			pc, ok := ev.Payload.(PushbackCompletion)
			if !ok || pc.VehicleID != to.vehicle.ID {
				return
			}
			to.op.GroundVehicle = nil
			tc.transition(to, TaxiIndependent)
		}),
	)

	tc.events.Publish(TopicGroundVehicleRequest, GroundVehicleRequest{VehicleID: to.vehicle.ID})
}

// transition drives the state machine, failing the operation if the
// machine rejects the transition.
func (tc *TaxiController) transition(to *taxiOp, state TaxiState) {
	if err := to.machine.Transition(state); err != nil {
		tc.fail(to, err, "invalid_transition")
		return
	}
	to.op.setPhase(state.String())
}

// Update advances all active taxi operations by dt seconds of
// independent taxiing. Operations in other states are waiting on events
// or timers and need nothing per tick.
func (tc *TaxiController) Update(dt float32) {
	for _, id := range util.SortedMapKeys(tc.ops) {
		to := tc.ops[id]
		if to.machine.State() != TaxiIndependent {
			continue
		}

		pose, finished := to.route.Update(to.vehicle.Pose(), to.vehicle.Specs, dt)
		to.vehicle.ApplyPose(pose)
		to.op.Progress = to.route.Progress()

		if finished {
			tc.transition(to, TaxiComplete)
			tc.complete(to)
		}
	}
}

// StopTaxi force-terminates the vehicle's taxi operation, releasing any
// held tug.
func (tc *TaxiController) StopTaxi(vehicleID string) error {
	to, ok := tc.ops[vehicleID]
	if !ok {
		return ErrNoActiveOperation
	}
	tc.fail(to, ErrOperationCanceled, "canceled")
	return nil
}

// Active returns the vehicle's in-flight taxi operation, if any.
func (tc *TaxiController) Active(vehicleID string) (*Operation, bool) {
	to, ok := tc.ops[vehicleID]
	if !ok {
		return nil, false
	}
	return to.op, true
}

func (tc *TaxiController) complete(to *taxiOp) {
	if _, ok := tc.ops[to.vehicle.ID]; !ok {
		return // already finished
	}
	tc.discard(to)
	to.op.succeed()
	tc.events.Publish(TopicTaxiCompleted, TaxiCompletion{
		VehicleID: to.vehicle.ID,
		Direction: to.dir,
	})
	tc.lg.Info("taxi complete", slog.Any("vehicle", to.vehicle))
}

func (tc *TaxiController) fail(to *taxiOp, err error, reason string) {
	if _, ok := tc.ops[to.vehicle.ID]; !ok {
		return // already finished
	}
	tc.discard(to)
	to.machine.Fail(reason)
	// Release externally held resources before discarding the record.
	tc.crew.Release(to.vehicle.ID)
	to.op.GroundVehicle = nil
	to.op.fail(err)
	tc.events.Publish(TopicTaxiError, TaxiFailure{VehicleID: to.vehicle.ID, Reason: reason})
	tc.lg.Warn("taxi failed", slog.Any("vehicle", to.vehicle), slog.String("reason", reason))
}

// discard removes the operation's external hooks: its timeout timer,
// its event subscriptions, and its slot on the vehicle.
func (tc *TaxiController) discard(to *taxiOp) {
	tc.scheduler.Cancel(to.timeout)
	for _, sub := range to.subs {
		sub.Unsubscribe()
	}
	to.subs = nil
	to.vehicle.Op = nil
	delete(tc.ops, to.vehicle.ID)
}
