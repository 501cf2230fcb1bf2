// sim/plans.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/nav"
)

// PatternStyle selects the traffic pattern a dispatch plan flies between
// departure and return.
type PatternStyle int

const (
	PatternCircular PatternStyle = iota
	PatternRectangular
	PatternOval
)

func (p PatternStyle) String() string {
	return [...]string{"circular", "rectangular", "oval"}[p]
}

// Altitude below which a vehicle counts as on the ground for plan
// selection.
const groundedAltitude = av.GroundLevel + 0.5

func airborne(v *Vehicle) bool {
	return v.Position[1] > groundedAltitude
}

// cruiseAltitude is the working altitude for a class's pattern legs.
func cruiseAltitude(perf av.Performance) float32 {
	return math.Max(perf.MinFlightHeight, 40)
}

// patternWaypoints builds the waypoints of the requested pattern style
// at altitude over the field.
func patternWaypoints(style PatternStyle, alt float32) []av.Waypoint {
	center := math.Point3{0, alt, 0}
	switch style {
	case PatternRectangular:
		return av.RectangularPattern(center, 400, 200)
	case PatternOval:
		return av.OvalPattern(center, 300, 100, 4)
	default:
		return av.CircularPattern(center, 200, 8)
	}
}

// cruisePhases expands waypoints into timed cruise phases, with each
// leg's duration derived from its length at a comfortable fraction of
// max speed.
func cruisePhases(name string, from math.Point3, wps []av.Waypoint, perf av.Performance) []FlightPhase {
	speed := perf.Speed.Max * 0.75
	phases := make([]FlightPhase, 0, len(wps))
	prev := from
	for i, wp := range wps {
		d := math.Distance3f(prev, wp.P)
		target := nav.Pose{P: wp.P, Speed: speed}
		target.SetHeading(math.HeadingTo(prev, wp.P))
		if wp.Heading != nil {
			target.SetHeading(*wp.Heading)
		}
		phases = append(phases, FlightPhase{
			Name:     fmt.Sprintf("%s_%d", name, i),
			Kind:     KindCruise,
			Duration: math.Max(d/speed, 1),
			Target:   target,
		})
		prev = wp.P
	}
	return phases
}

// DispatchPlan builds the standard out-and-back flight plan for the
// vehicle: helicopters fly a vertical profile from their pad, fixed-wing
// classes taxi out, depart the runway, fly the pattern, land, and taxi
// back in.
func DispatchPlan(v *Vehicle, field *av.Airfield, style PatternStyle) FlightPlan {
	perf := v.Specs
	alt := cruiseAltitude(perf)

	if v.Class.VerticalTakeoff() {
		up := nav.Pose{P: math.Point3{v.Position[0], alt, v.Position[2]}, Speed: perf.Speed.Max / 2}
		plan := FlightPlan{Name: "vertical_dispatch"}
		plan.Phases = append(plan.Phases, FlightPhase{
			Name: "vertical_climb", Kind: KindVertical, Duration: 8, Target: up,
		})
		plan.Phases = append(plan.Phases,
			cruisePhases("pattern", up.P, patternWaypoints(style, alt), perf)...)
		over := up
		over.Speed = 0
		plan.Phases = append(plan.Phases,
			FlightPhase{Name: "hover_return", Kind: KindHover, Duration: 5, Target: over},
			FlightPhase{Name: "vertical_descent", Kind: KindVertical, Duration: 8,
				Target: nav.Pose{P: math.Point3{v.Position[0], av.GroundLevel, v.Position[2]}}},
		)
		return plan
	}

	// Fixed wing: the taxi route delivers the aircraft to the west
	// threshold facing east, so it flies the easterly climb-out and the
	// pattern return lands from the east.
	dep := av.DepartureWaypoints(av.ApproachEast)
	initialClimb, out := dep[1], dep[len(dep)-1]
	climb := nav.Pose{P: initialClimb.P, Speed: perf.Speed.Max}
	if initialClimb.Heading != nil {
		climb.SetHeading(*initialClimb.Heading)
	}

	plan := FlightPlan{Name: "dispatch_" + style.String()}
	plan.Phases = append(plan.Phases,
		FlightPhase{Name: "taxi_to_runway", Kind: KindTaxiToRunway},
		FlightPhase{Name: "takeoff", Kind: KindTakeoffRoll, Duration: 20, Target: climb},
	)
	plan.Phases = append(plan.Phases,
		cruisePhases("climb", initialClimb.P, dep[2:], perf)...)
	plan.Phases = append(plan.Phases,
		cruisePhases("pattern", out.P, patternWaypoints(style, alt), perf)...)
	plan.Phases = append(plan.Phases,
		FlightPhase{Name: "landing", Kind: KindLanding, Approach: av.ApproachEast},
		FlightPhase{Name: "taxi_to_parking", Kind: KindTaxiToParking},
	)
	return plan
}

// RecallPlan builds the return-to-parking plan for the vehicle's current
// situation. Airborne fixed-wing aircraft must re-enter the pattern and
// land; airborne helicopters descend where their pad is; grounded
// vehicles only taxi back.
func RecallPlan(v *Vehicle, field *av.Airfield) FlightPlan {
	perf := v.Specs

	if !airborne(v) {
		return FlightPlan{
			Name:   "recall_grounded",
			Phases: []FlightPhase{{Name: "taxi_to_parking", Kind: KindTaxiToParking}},
		}
	}

	if v.Class.VerticalTakeoff() {
		pad, _ := field.NearestParking(v.Position)
		p := field.Parking[pad]
		over := nav.Pose{P: math.Point3{p[0], cruiseAltitude(perf), p[2]}, Speed: perf.Speed.Max / 2}
		over.SetHeading(math.HeadingTo(v.Position, p))
		return FlightPlan{
			Name: "recall_vertical",
			Phases: []FlightPhase{
				{Name: "return_cruise", Kind: KindCruise,
					Duration: math.Max(math.GroundDistance(v.Position, p)/math.Max(over.Speed, 1), 1),
					Target:   over},
				{Name: "vertical_descent", Kind: KindVertical, Duration: 8,
					Target: nav.Pose{P: math.Point3{p[0], av.GroundLevel, p[2]}}},
			},
		}
	}

	// Fixed wing: rejoin the approach from the east.
	entry := av.ApproachWaypoints(av.ApproachEast)[0]
	join := nav.Pose{P: entry.P, Speed: perf.Speed.Max * 0.75}
	join.SetHeading(math.HeadingTo(v.Position, entry.P))
	return FlightPlan{
		Name: "recall_pattern",
		Phases: []FlightPhase{
			{Name: "rejoin_pattern", Kind: KindCruise,
				Duration: math.Max(math.GroundDistance(v.Position, entry.P)/math.Max(join.Speed, 1), 1),
				Target:   join},
			{Name: "landing", Kind: KindLanding, Approach: av.ApproachEast},
			{Name: "taxi_to_parking", Kind: KindTaxiToParking},
		},
	}
}

// Recall starts an emergency-return flight for the vehicle, selecting
// the plan from its current altitude and class. Any operation already
// running, including a dispatch flight mid-pattern, is terminated first;
// the recall supersedes it. The recall stays pending until
// CompleteRecall or ForceResetToParking finalizes it.
func (fd *FlightDirector) Recall(v *Vehicle) (*Operation, error) {
	fd.stopActive(v)
	op, err := fd.StartFlight(v, RecallPlan(v, fd.field))
	if err != nil {
		return nil, err
	}
	fd.recalls[v.ID] = true
	return op, nil
}

// stopActive force-terminates whatever operation the vehicle is running,
// whether a flight plan or a bare taxi or landing.
func (fd *FlightDirector) stopActive(v *Vehicle) {
	if _, ok := fd.ops[v.ID]; ok {
		fd.StopFlight(v.ID)
	} else if v.Op != nil {
		switch v.Op.Kind {
		case OpTaxi:
			fd.taxi.StopTaxi(v.ID)
		case OpLanding:
			fd.landing.AbortLanding(v.ID)
		}
	}
}

// CompleteRecall finalizes a finished recall: the vehicle must be on the
// ground with its recall flight complete, and is then parked exactly on
// the nearest parking spot. This is the orderly counterpart of
// ForceResetToParking.
func (fd *FlightDirector) CompleteRecall(v *Vehicle) error {
	if !fd.recalls[v.ID] {
		return ErrNoActiveRecall
	}
	if _, active := fd.ops[v.ID]; active || airborne(v) {
		return ErrRecallNotFinished
	}
	fd.park(v)
	delete(fd.recalls, v.ID)
	fd.lg.Info("recall complete", slog.Any("vehicle", v))
	return nil
}

// ForceResetToParking is the emergency fast path: any operation the
// vehicle has (flight, taxi, or landing) is force-terminated, held
// resources are released, and the vehicle is teleported to the nearest
// parking spot. No recall needs to be active.
func (fd *FlightDirector) ForceResetToParking(v *Vehicle) {
	fd.stopActive(v)
	fd.crew.Release(v.ID)
	delete(fd.recalls, v.ID)
	fd.park(v)
	fd.lg.Warn("vehicle force-reset to parking", slog.Any("vehicle", v))
}

// park snaps the vehicle onto the nearest parking spot at rest and
// snapshots the parked state.
func (fd *FlightDirector) park(v *Vehicle) {
	name, _ := fd.field.NearestParking(v.Position)
	if p, err := fd.field.ParkingSpot(name); err == nil {
		v.Position = p
	}
	v.Rotation = math.Point3{}
	v.Speed = 0
	v.BeingTowed = false
	fd.store.Set(v.ID, OpFlight.String(), "parked", map[string]any{"parking": name})
}
