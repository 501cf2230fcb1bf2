// sim/landing.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/nav"
)

// LandingState is the phase of an automated landing sequence.
type LandingState int

const (
	LandingSetup LandingState = iota
	LandingApproaching
	LandingFinal
	LandingTouchdown
	LandingRollout
	LandingComplete
	LandingAborted
)

func (s LandingState) String() string {
	switch s {
	case LandingSetup:
		return "approach_setup"
	case LandingApproaching:
		return "approaching"
	case LandingFinal:
		return "final_approach"
	case LandingTouchdown:
		return "touchdown"
	case LandingRollout:
		return "rollout"
	case LandingComplete:
		return "complete"
	case LandingAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Capture windows for the landing sequence.
const (
	// Distance from the touchdown aim point at which the flare begins,
	// provided the aircraft is also below touchdownCaptureAlt.
	touchdownCaptureDist = 10
	touchdownCaptureAlt  = 5

	// Fraction of the class's maximum speed below which the firm
	// post-touchdown braking hands over to the rollout.
	rolloutSpeedFraction = 0.2

	// The rollout ends within this distance of the runway exit, or
	// whenever the aircraft has effectively stopped.
	rolloutCaptureDist = 10
	stopSpeed          = 0.1
)

type landingOp struct {
	op        *Operation
	vehicle   *Vehicle
	dir       av.ApproachDirection
	state     LandingState
	waypoints []av.Waypoint
	index     int // next approach waypoint
	touchdown av.Waypoint
	rollout   av.Waypoint
}

// LandingController flies arrivals down the glide slope and onto the
// runway. The runway takes a single aircraft at a time; a second
// StartLanding while one is in progress is refused.
type LandingController struct {
	lg     *log.Logger
	events *EventChannel
	store  *StateStore
	field  *av.Airfield

	active *landingOp
}

func NewLandingController(events *EventChannel, store *StateStore, field *av.Airfield,
	lg *log.Logger) *LandingController {
	return &LandingController{
		lg:     lg,
		events: events,
		store:  store,
		field:  field,
	}
}

// RunwayOccupied reports whether a landing currently holds the runway.
func (lc *LandingController) RunwayOccupied() bool {
	return lc.active != nil
}

// StartLanding begins an automated landing from the given approach
// direction. The vehicle must be established airborne and the runway
// free.
func (lc *LandingController) StartLanding(v *Vehicle, dir av.ApproachDirection) (*Operation, error) {
	if v.Op != nil {
		return nil, ErrOperationActive
	}
	if lc.active != nil {
		return nil, ErrRunwayOccupied
	}
	if v.Position[1] <= groundedAltitude {
		return nil, ErrNotAirborne
	}
	if err := av.CheckLanding(v.Status(), lc.field).Err(); err != nil {
		return nil, err
	}

	op := newOperation(v.ID, OpLanding)
	v.Op = op
	lc.active = &landingOp{
		op:        op,
		vehicle:   v,
		dir:       dir,
		state:     LandingSetup,
		waypoints: av.ApproachWaypoints(dir),
		touchdown: av.TouchdownWaypoint(dir),
		rollout:   av.RolloutWaypoint(dir),
	}
	lc.setState(lc.active, LandingSetup)
	lc.lg.Info("landing started", slog.Any("vehicle", v), slog.String("direction", dir.String()))
	return op, nil
}

// AbortLanding breaks off the active landing for the vehicle: the
// aircraft is forced to a climbing go-around attitude and the runway is
// released.
func (lc *LandingController) AbortLanding(vehicleID string) error {
	lo := lc.active
	if lo == nil || lo.vehicle.ID != vehicleID {
		return ErrNoActiveOperation
	}
	lo.vehicle.ApplyPose(nav.GoAround(lo.vehicle.Pose(), lo.vehicle.Specs))
	lc.setState(lo, LandingAborted)
	lc.release(lo)
	lo.op.fail(ErrOperationCanceled)
	lc.events.Publish(TopicLandingAborted, LandingAbort{VehicleID: vehicleID})
	lc.lg.Warn("landing aborted", slog.Any("vehicle", lo.vehicle))
	return nil
}

// UpdateAll advances the active landing by dt seconds.
func (lc *LandingController) UpdateAll(dt float32) {
	lo := lc.active
	if lo == nil {
		return
	}
	pose := lo.vehicle.Pose()

	switch lo.state {
	case LandingSetup:
		// One tick to take stock, then fly the procedure.
		lc.setState(lo, LandingApproaching)

	case LandingApproaching:
		wp := lo.waypoints[lo.index]
		pose = nav.ApproachStep(pose, wp, lo.touchdown.P, lo.vehicle.Specs, dt)
		// At approach speeds a tick can step further than the position
		// tolerance, so the capture radius scales with speed.
		capture := math.Max(lc.field.Tolerances.Position, 2*pose.Speed*dt)
		if math.GroundDistance(pose.P, wp.P) < capture {
			lo.index++
		}
		// The short final waypoint is the last one before the flare.
		if lo.index >= len(lo.waypoints)-2 {
			lc.setState(lo, LandingFinal)
		}

	case LandingFinal:
		pose = nav.ApproachStep(pose, lo.touchdown, lo.touchdown.P, lo.vehicle.Specs, dt)
		if math.GroundDistance(pose.P, lo.touchdown.P) < touchdownCaptureDist &&
			pose.P[1] < touchdownCaptureAlt {
			lc.setState(lo, LandingTouchdown)
		}

	case LandingTouchdown:
		pose = nav.TouchdownStep(pose, lo.dir, dt)
		if pose.Speed < rolloutSpeedFraction*lo.vehicle.Specs.Speed.Max {
			lc.setState(lo, LandingRollout)
		}

	case LandingRollout:
		pose = nav.RolloutStep(pose, lo.rollout, dt)
		if math.GroundDistance(pose.P, lo.rollout.P) < rolloutCaptureDist ||
			pose.Speed < stopSpeed {
			pose = nav.SnapToWaypoint(pose, lo.rollout)
			pose.Speed = 0
			lo.vehicle.ApplyPose(pose)
			lc.complete(lo)
			return
		}
	}

	lo.vehicle.ApplyPose(pose)
	lo.op.Progress = float32(lo.state) / float32(LandingComplete)
}

func (lc *LandingController) complete(lo *landingOp) {
	lc.setState(lo, LandingComplete)
	lc.release(lo)
	lo.op.Progress = 1
	lo.op.succeed()
	lc.events.Publish(TopicLandingCompleted, LandingCompletion{VehicleID: lo.vehicle.ID})
	lc.lg.Info("landing complete", slog.Any("vehicle", lo.vehicle))
}

// release frees the runway and the vehicle's operation slot.
func (lc *LandingController) release(lo *landingOp) {
	lo.vehicle.Op = nil
	lc.active = nil
}

func (lc *LandingController) setState(lo *landingOp, to LandingState) {
	from := lo.state
	lo.state = to
	lo.op.setPhase(to.String())
	lc.store.Set(lo.vehicle.ID, OpLanding.String(), to.String(), map[string]any{
		"direction": lo.dir.String(),
		"waypoint":  lo.index,
	})
	lc.events.Publish(TopicLandingStateChanged, LandingStateChange{
		VehicleID: lo.vehicle.ID,
		From:      from,
		To:        to,
	})
}
