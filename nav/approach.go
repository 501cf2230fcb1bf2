// nav/approach.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
)

// Speed decay factors applied once per tick during the landing roll: a
// firm 5% while slowing from touchdown speed, then a gentler 2% while
// rolling out to the runway exit.
const (
	TouchdownDecay = 0.95
	RolloutDecay   = 0.98
)

// Attitude constants for the landing and go-around paths.
const (
	GoAroundAltitude = 20
	ClimbPitch       = -0.3 // nose up
)

// ApproachStep flies the pose toward the given approach waypoint,
// holding the glide-slope altitude for the pose's current distance to
// the touchdown point.
func ApproachStep(pose Pose, wp av.Waypoint, touchdown math.Point3, perf av.Performance, dt float32) Pose {
	targetHdg := math.HeadingTo(pose.P, wp.P)
	hdg := math.CalculateTurn(pose.Heading(), targetHdg, perf.Rate.Turn, dt)
	pose.SetHeading(hdg)

	pose.P[0] += math.Cos(hdg) * pose.Speed * dt
	pose.P[2] += math.Sin(hdg) * pose.Speed * dt

	// Descend onto the glide slope rather than teleporting to it.
	want := av.GlideSlopeAltitude(math.GroundDistance(pose.P, touchdown))
	pose.P[1] += math.Clamp(want-pose.P[1], -10*dt, 10*dt)
	return pose
}

// TouchdownStep settles the pose onto the runway centerline: lateral
// offset, roll, and pitch are zeroed, the roll continues down the
// runway, and speed decays by 5% this tick.
func TouchdownStep(pose Pose, dir av.ApproachDirection, dt float32) Pose {
	pose.P[1] = av.GroundLevel
	pose.P[2] = 0 // centerline
	pose.Rot[0] = 0
	pose.Rot[2] = 0
	hdg := dir.RunwayHeading()
	pose.SetHeading(hdg)
	pose.P[0] += math.Cos(hdg) * pose.Speed * dt
	pose.Speed *= TouchdownDecay
	return pose
}

// RolloutStep continues the ground roll toward the rollout waypoint with
// a 2% speed decay this tick.
func RolloutStep(pose Pose, rollout av.Waypoint, dt float32) Pose {
	hdg := math.HeadingTo(pose.P, rollout.P)
	pose.SetHeading(hdg)
	pose.P[0] += math.Cos(hdg) * pose.Speed * dt
	pose.P[2] += math.Sin(hdg) * pose.Speed * dt
	pose.P[1] = av.GroundLevel
	pose.Speed *= RolloutDecay
	return pose
}

// GoAround breaks off a landing: the pose is forced to a safe climbing
// attitude with forward speed restored.
func GoAround(pose Pose, perf av.Performance) Pose {
	pose.P[1] = math.Max(pose.P[1], GoAroundAltitude)
	pose.Rot[0] = ClimbPitch
	pose.Rot[2] = 0
	pose.Speed = math.Max(pose.Speed, perf.Speed.Max/2)
	return pose
}
