// sim/vehicle.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/nav"

	"github.com/google/uuid"
)

// Vehicle is the orchestrator's view of one aircraft: a mutable proxy
// whose pose fields the orchestrator updates each tick and whose visual
// representation the host synchronizes afterward. The orchestrator never
// owns the vehicle's identity or rendering.
type Vehicle struct {
	ID       string
	Class    av.VehicleClass
	Position math.Point3
	Rotation math.Point3 // pitch, heading, roll
	Speed    float32
	Specs    av.Performance

	BeingTowed bool

	// Op is the vehicle's active operation; at most one exists at any
	// time.
	Op *Operation
}

// Pose returns the vehicle's pose as an operation-owned value;
// orchestration components compute on this copy and write back with
// ApplyPose at tick sync points.
func (v *Vehicle) Pose() nav.Pose {
	return nav.Pose{P: v.Position, Rot: v.Rotation, Speed: v.Speed}
}

// ApplyPose writes an operation-owned pose back to the shared proxy.
func (v *Vehicle) ApplyPose(p nav.Pose) {
	v.Position = p.P
	v.Rotation = p.Rot
	v.Speed = p.Speed
}

// Status returns the subset of state the validation rules consider.
func (v *Vehicle) Status() av.VehicleStatus {
	return av.VehicleStatus{
		Class:      v.Class,
		Position:   v.Position,
		Heading:    v.Rotation[1],
		Speed:      v.Speed,
		BeingTowed: v.BeingTowed,
	}
}

func (v *Vehicle) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", v.ID),
		slog.String("class", v.Class.String()),
		slog.Any("position", v.Position),
		slog.Float64("speed", float64(v.Speed)),
	}
	if v.Op != nil {
		attrs = append(attrs, slog.String("operation", v.Op.Kind.String()),
			slog.String("phase", v.Op.Phase))
	}
	return slog.GroupValue(attrs...)
}

///////////////////////////////////////////////////////////////////////////
// Operations

// OperationKind distinguishes the multi-tick operations a vehicle can
// run.
type OperationKind int

const (
	OpTaxi OperationKind = iota
	OpLanding
	OpFlight
)

func (k OperationKind) String() string {
	return []string{"taxi", "landing", "flight"}[k]
}

// Outcome is the explicit state of an operation's deferred result.
type Outcome int

const (
	Pending Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	return []string{"pending", "succeeded", "failed"}[o]
}

// OpResult is the deferred result of an operation: callers watch it
// settle from Pending into Succeeded or Failed rather than registering
// completion callbacks.
type OpResult struct {
	Outcome Outcome
	Err     error
}

// Operation records one in-flight multi-tick task. It is created when
// the operation starts, mutated each tick, and discarded on
// completion, error, or cancellation.
type Operation struct {
	ID         uuid.UUID
	VehicleID  string
	Kind       OperationKind
	Phase      string
	PhaseStart time.Time
	Progress   float32 // in [0,1]
	Complete   bool

	// GroundVehicle is set while a pushback tug is attached.
	GroundVehicle *GroundVehicle

	Result OpResult
}

func newOperation(vehicleID string, kind OperationKind) *Operation {
	return &Operation{
		ID:         uuid.New(),
		VehicleID:  vehicleID,
		Kind:       kind,
		PhaseStart: time.Now(),
	}
}

func (op *Operation) succeed() {
	op.Complete = true
	op.Progress = 1
	op.Result = OpResult{Outcome: Succeeded}
}

func (op *Operation) fail(err error) {
	op.Complete = true
	op.Result = OpResult{Outcome: Failed, Err: err}
}

// setPhase updates the phase name and resets the phase clock and
// progress.
func (op *Operation) setPhase(phase string) {
	op.Phase = phase
	op.PhaseStart = time.Now()
	op.Progress = 0
}

func (op *Operation) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", op.ID.String()),
		slog.String("vehicle", op.VehicleID),
		slog.String("kind", op.Kind.String()),
		slog.String("phase", op.Phase),
		slog.Float64("progress", float64(op.Progress)),
		slog.String("outcome", op.Result.Outcome.String()))
}
