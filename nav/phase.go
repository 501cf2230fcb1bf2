// nav/phase.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/rand"
)

///////////////////////////////////////////////////////////////////////////
// Flight phase kinematics
//
// Each of these maps (phase start pose, phase target pose, progress in
// [0,1]) to the pose the vehicle should hold now. They are pure given
// their arguments; the sinusoidal jitter paths take an explicit phase
// offset so an operation's wobble is stable across ticks.

// Jitter bundles the parameters of the hover wobble: a small decaying
// sinusoid added to the vertical position so helicopters don't hang
// unnaturally still.
type Jitter struct {
	Phase     float32
	Amplitude float32
	Frequency float32 // radians / second
}

// NewJitter returns a Jitter with a randomized phase so that two
// vehicles hovering side by side don't bob in lockstep.
func NewJitter(r *rand.Rand) Jitter {
	return Jitter{
		Phase:     2 * math.Pi() * r.Float32(),
		Amplitude: 0.4,
		Frequency: 3,
	}
}

func (j Jitter) at(elapsed float32) float32 {
	return j.Amplitude * math.Sin(j.Frequency*elapsed+j.Phase)
}

// CruiseStep linearly interpolates position, attitude, and speed from
// the phase's start pose to its target.
func CruiseStep(start, target Pose, progress float32) Pose {
	var pose Pose
	pose.P = math.Lerp3f(progress, start.P, target.P)
	for i := range pose.Rot {
		if i == 1 {
			pose.Rot[1] = lerpHeading(progress, start.Rot[1], target.Rot[1])
		} else {
			pose.Rot[i] = math.Lerp(progress, start.Rot[i], target.Rot[i])
		}
	}
	pose.Speed = math.Lerp(progress, start.Speed, target.Speed)
	return pose
}

// TakeoffRollStep runs the fixed-wing departure: the first half of the
// phase is a ground roll accelerating along the runway, the second half
// a nose-up climb toward the target pose.
func TakeoffRollStep(start, target Pose, progress float32, perf av.Performance) Pose {
	// The liftoff point is the ground projection of the target, reached
	// at the phase midpoint.
	liftoff := math.Point3{target.P[0], av.GroundLevel, target.P[2]}
	rollHeading := math.HeadingTo(start.P, liftoff)

	var pose Pose
	pose.SetHeading(rollHeading)

	if progress < 0.5 {
		t := progress * 2
		pose.P = math.Lerp3f(t, start.P, liftoff)
		pose.P[1] = av.GroundLevel
		pose.Speed = math.Lerp(t, start.Speed, perf.Speed.Max)
		return pose
	}

	t := (progress - 0.5) * 2
	pose.P = math.Lerp3f(t, liftoff, target.P)
	// Nose up through the climb, relaxing toward the target pitch.
	pose.Rot[0] = math.Lerp(t, ClimbPitch, target.Rot[0])
	pose.Speed = math.Lerp(t, perf.Speed.Max, target.Speed)
	return pose
}

// VerticalStep runs a vertical takeoff or landing: position lerps
// between start and target (normally differing only in altitude) with a
// hover jitter that decays as the phase completes.
func VerticalStep(start, target Pose, progress, elapsed float32, j Jitter) Pose {
	pose := CruiseStep(start, target, progress)
	decay := math.Exp(-3 * progress)
	pose.P[1] += decay * j.at(elapsed)
	if pose.P[1] < av.GroundLevel {
		pose.P[1] = av.GroundLevel
	}
	return pose
}

// HoverStep holds the target pose with a constant low speed and the full
// hover jitter.
func HoverStep(target Pose, elapsed float32, j Jitter) Pose {
	pose := target
	pose.P[1] += j.at(elapsed)
	pose.Speed = 2
	return pose
}

// lerpHeading interpolates between two headings the short way around.
func lerpHeading(t, a, b float32) float32 {
	return math.NormalizeAngle(a + t*math.AngleDifference(a, b))
}
