// aviation/checks.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"
)

///////////////////////////////////////////////////////////////////////////
// Validation rules
//
// Pure predicates over a vehicle's observable state. Each check
// accumulates all of its violations rather than stopping at the first so
// callers can report everything that is wrong at once.

// VehicleStatus is the subset of a vehicle's state that the validation
// predicates consider.
type VehicleStatus struct {
	Class      VehicleClass
	Position   math.Point3
	Heading    float32
	Speed      float32
	BeingTowed bool
}

// Validation is the result of running one of the check predicates.
type Validation struct {
	Violations []string
}

func (v Validation) Ok() bool {
	return len(v.Violations) == 0
}

func (v *Validation) failf(format string, args ...interface{}) {
	v.Violations = append(v.Violations, fmt.Sprintf(format, args...))
}

// ValidationError wraps a failed Validation as an error carrying the
// full violations list.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Err returns nil for a passing validation and a *ValidationError
// otherwise.
func (v Validation) Err() error {
	if v.Ok() {
		return nil
	}
	return &ValidationError{Violations: v.Violations}
}

// Grounded reports whether the vehicle is at ground level, within the
// position tolerance.
func (st VehicleStatus) Grounded(field *Airfield) bool {
	return st.Position[1] <= GroundLevel+field.Tolerances.Position
}

// CheckTaxi validates the preconditions for starting a taxi operation in
// the given direction.
func CheckTaxi(st VehicleStatus, dir Direction, field *Airfield) Validation {
	var v Validation

	if !st.Class.Known() {
		v.failf("unknown vehicle class %d", int(st.Class))
		return v
	}
	if st.Class.VerticalTakeoff() {
		v.failf("%s is a vertical-takeoff class and does not taxi", st.Class)
	}

	switch dir {
	case ToRunway:
		if name, d := field.NearestParking(st.Position); d > 2*field.Tolerances.Position {
			v.failf("not at a parking spot: %.1f units from %s", d, name)
		}
	case FromRunway:
		if !field.OnRunway(st.Position) {
			v.failf("not on the runway at (%.1f, %.1f)", st.Position[0], st.Position[2])
		}
	}

	if perf, ok := lookupPerf(st.Class); ok && st.Speed > 2*perf.Speed.Taxi {
		v.failf("speed %.1f exceeds twice taxi speed %.1f", st.Speed, perf.Speed.Taxi)
	}
	if st.BeingTowed {
		v.failf("vehicle is already under tow")
	}
	return v
}

// CheckTakeoff validates the preconditions for starting a takeoff roll.
func CheckTakeoff(st VehicleStatus, field *Airfield) Validation {
	var v Validation

	if !st.Class.Known() {
		v.failf("unknown vehicle class %d", int(st.Class))
		return v
	}

	de := math.GroundDistance(st.Position, field.Runway.EastThreshold)
	dw := math.GroundDistance(st.Position, field.Runway.WestThreshold)
	if math.Min(de, dw) > 3*field.Tolerances.Position {
		v.failf("not at a runway threshold: %.1f units from the nearest", math.Min(de, dw))
	}
	if !st.Grounded(field) {
		v.failf("not on the ground at altitude %.1f", st.Position[1])
	}
	if perf, ok := lookupPerf(st.Class); ok && st.Speed > perf.Speed.Taxi {
		v.failf("speed %.1f exceeds taxi speed %.1f", st.Speed, perf.Speed.Taxi)
	}

	// Aligned with the runway in either direction.
	if d := math.Min(math.Abs(math.AngleDifference(st.Heading, 0)),
		math.Abs(math.AngleDifference(st.Heading, math.Pi()))); d > field.Tolerances.Heading {
		v.failf("heading %.2f not aligned with the runway (off by %.2f)", st.Heading, d)
	}
	return v
}

// CheckLanding validates the preconditions for starting a landing
// sequence.
func CheckLanding(st VehicleStatus, field *Airfield) Validation {
	var v Validation

	if !st.Class.Known() {
		v.failf("unknown vehicle class %d", int(st.Class))
		return v
	}
	if st.Grounded(field) {
		v.failf("not airborne at altitude %.1f", st.Position[1])
	} else if st.Position[1] < field.Tolerances.MinSafeAltitude {
		v.failf("altitude %.1f below minimum safe altitude %.1f", st.Position[1],
			field.Tolerances.MinSafeAltitude)
	}
	if perf, ok := lookupPerf(st.Class); ok && st.Speed >= 0.9*perf.Speed.Max {
		v.failf("speed %.1f not below 90%% of max speed %.1f", st.Speed, perf.Speed.Max)
	}
	return v
}

// lookupPerf consults the embedded performance database; validation is
// usable without an explicitly constructed DB.
func lookupPerf(c VehicleClass) (Performance, bool) {
	if builtinDB == nil {
		return Performance{}, false
	}
	perf, ok := builtinDB.Performance[c]
	return perf, ok
}

var builtinDB *DB

func init() {
	// An error here means the embedded specs are malformed, which is a
	// build problem rather than a runtime condition.
	var e util.ErrorLogger
	builtinDB = LoadDB(&e)
	if e.HaveErrors() {
		panic(e.String())
	}
}

// BuiltinDB returns the embedded performance database.
func BuiltinDB() *DB {
	return builtinDB
}

///////////////////////////////////////////////////////////////////////////
// Dispatch phases

// DispatchPhase names one step of a vehicle's full dispatch cycle; the
// fixed transition table below defines the allowed order.
type DispatchPhase int

const (
	PhaseParked DispatchPhase = iota
	PhaseTaxiToRunway
	PhaseTakeoff
	PhaseClimb
	PhaseCruise
	PhasePattern
	PhaseApproach
	PhaseLanding
	PhaseTaxiToParking
)

func (p DispatchPhase) String() string {
	return []string{"parked", "taxi_to_runway", "takeoff", "climb", "cruise", "pattern",
		"approach", "landing", "taxi_to_parking"}[p]
}

var dispatchTransitions = map[DispatchPhase][]DispatchPhase{
	PhaseParked:        {PhaseTaxiToRunway},
	PhaseTaxiToRunway:  {PhaseTakeoff},
	PhaseTakeoff:       {PhaseClimb, PhaseCruise},
	PhaseClimb:         {PhaseCruise},
	PhaseCruise:        {PhasePattern, PhaseApproach},
	PhasePattern:       {PhaseApproach},
	PhaseApproach:      {PhaseLanding},
	PhaseLanding:       {PhaseTaxiToParking},
	PhaseTaxiToParking: {PhaseParked},
}

// CheckTransition validates moving a vehicle from the current dispatch
// phase to the desired one: the transition must appear in the fixed
// table, and the destination phase's requirement predicate (if any) must
// pass as well.
func CheckTransition(current, desired DispatchPhase, st VehicleStatus, field *Airfield) Validation {
	var v Validation

	allowed, ok := dispatchTransitions[current]
	if !ok {
		v.failf("unknown dispatch phase %q", current)
		return v
	}
	found := false
	for _, p := range allowed {
		if p == desired {
			found = true
			break
		}
	}
	if !found {
		v.failf("transition %s -> %s not permitted", current, desired)
		return v
	}

	switch desired {
	case PhaseTaxiToRunway:
		v.Violations = append(v.Violations, CheckTaxi(st, ToRunway, field).Violations...)
	case PhaseTakeoff:
		v.Violations = append(v.Violations, CheckTakeoff(st, field).Violations...)
	case PhaseLanding:
		v.Violations = append(v.Violations, CheckLanding(st, field).Violations...)
	case PhaseTaxiToParking:
		v.Violations = append(v.Violations, CheckTaxi(st, FromRunway, field).Violations...)
	}
	return v
}
