// nav/nav.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"errors"
	"fmt"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"

	"github.com/brunoga/deep"
)

var (
	ErrEmptyRoute    = errors.New("route has no waypoints")
	ErrRouteFinished = errors.New("route already finished")
)

// Pose is the vehicle-state value an operation owns while it runs:
// the orchestrator computes against a Pose and writes it back to the
// vehicle proxy at defined synchronization points, never mutating the
// shared vehicle mid-tick.
type Pose struct {
	P     math.Point3
	Rot   math.Point3 // pitch, heading, roll
	Speed float32
}

func (p Pose) Heading() float32 {
	return p.Rot[1]
}

func (p *Pose) SetHeading(h float32) {
	p.Rot[1] = h
}

func (p Pose) String() string {
	return fmt.Sprintf("p (%.1f, %.1f, %.1f) hdg %.2f spd %.1f", p.P[0], p.P[1], p.P[2],
		p.Heading(), p.Speed)
}

// TaxiMovement advances the pose toward target for dt seconds of ground
// taxi: the heading turns toward the target at the class's turn rate and
// speed is scaled down when the vehicle is poorly aligned, bottoming out
// at 30% of taxi speed so it can always work its way around. The
// vertical position is clamped to ground level.
func TaxiMovement(pose Pose, target math.Point3, perf av.Performance, dt float32) Pose {
	targetHdg := math.HeadingTo(pose.P, target)
	hdg := math.CalculateTurn(pose.Heading(), targetHdg, perf.Rate.Turn, dt)

	headingError := math.Abs(math.AngleDifference(hdg, targetHdg))
	speed := perf.Speed.Taxi * math.Max(0.3, 1-headingError/math.Pi())

	pose.SetHeading(hdg)
	pose.P[0] += math.Cos(hdg) * speed * dt
	pose.P[2] += math.Sin(hdg) * speed * dt
	pose.P[1] = av.GroundLevel
	pose.Speed = speed
	return pose
}

// HasReachedWaypoint reports arrival at a waypoint using ground-plane
// distance and the given tolerance.
func HasReachedWaypoint(p math.Point3, wp av.Waypoint, tolerance float32) bool {
	return math.GroundDistance(p, wp.P) <= tolerance
}

// SnapToWaypoint places the pose exactly on the waypoint, adopting its
// required heading if it has one.
func SnapToWaypoint(pose Pose, wp av.Waypoint) Pose {
	pose.P = wp.P
	if wp.Heading != nil {
		pose.SetHeading(*wp.Heading)
	}
	return pose
}

///////////////////////////////////////////////////////////////////////////
// TaxiNav

// TaxiNav follows a taxi route waypoint by waypoint. It keeps its own
// deep copy of the route so later changes to the source cannot affect an
// operation in progress.
type TaxiNav struct {
	Route     []av.Waypoint
	Index     int
	Tolerance float32
}

func NewTaxiNav(route []av.Waypoint, tolerance float32) (*TaxiNav, error) {
	if len(route) == 0 {
		return nil, ErrEmptyRoute
	}
	return &TaxiNav{
		Route:     deep.MustCopy(route),
		Tolerance: tolerance,
	}, nil
}

// Finished reports whether the final waypoint has been reached.
func (tn *TaxiNav) Finished() bool {
	return tn.Index >= len(tn.Route)
}

// Current returns the waypoint currently being navigated toward.
func (tn *TaxiNav) Current() (av.Waypoint, error) {
	if tn.Finished() {
		return av.Waypoint{}, ErrRouteFinished
	}
	return tn.Route[tn.Index], nil
}

// Final returns the last waypoint of the route.
func (tn *TaxiNav) Final() av.Waypoint {
	return tn.Route[len(tn.Route)-1]
}

// Progress returns the fraction of waypoints passed, in [0,1].
func (tn *TaxiNav) Progress() float32 {
	return float32(tn.Index) / float32(len(tn.Route))
}

// Update advances the pose along the route for dt seconds, stepping the
// waypoint index on arrival. Once the final waypoint is reached the pose
// is snapped exactly onto it and Update reports the route finished; it
// is safe to keep calling afterward.
func (tn *TaxiNav) Update(pose Pose, perf av.Performance, dt float32) (Pose, bool) {
	if tn.Finished() {
		return pose, true
	}

	wp := tn.Route[tn.Index]
	pose = TaxiMovement(pose, wp.P, perf, dt)

	if HasReachedWaypoint(pose.P, wp, tn.Tolerance) {
		tn.Index++
		if tn.Finished() {
			pose = SnapToWaypoint(pose, tn.Route[len(tn.Route)-1])
			pose.Speed = 0
			return pose, true
		}
	}
	return pose, false
}
