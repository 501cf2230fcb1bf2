// aviation/route.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"

	"github.com/brunoga/deep"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

///////////////////////////////////////////////////////////////////////////
// Route generation
//
// These are all pure functions of their arguments; generated waypoint
// sets are memoized in a small LRU since the approach and pattern
// generators are called once per operation with a handful of distinct
// arguments.

var routeCache = expirable.NewLRU[string, []Waypoint](64, nil, time.Hour)

func cached(key string, generate func() []Waypoint) []Waypoint {
	if wps, ok := routeCache.Get(key); ok {
		return deep.MustCopy(wps)
	}
	wps := generate()
	routeCache.Add(key, deep.MustCopy(wps))
	return wps
}

// DirectRoute returns waypoints from from to to at the given fixed
// spacing; the final waypoint is always exactly at to.
func DirectRoute(from, to math.Point3, spacing float32) []Waypoint {
	d := math.Distance3f(from, to)
	n := int(math.Ceil(d / spacing))
	if n < 1 {
		n = 1
	}

	var wps []Waypoint
	for i := 1; i <= n; i++ {
		t := float32(i) / float32(n)
		wps = append(wps, Waypoint{
			Name: fmt.Sprintf("direct_%d", i),
			P:    math.Lerp3f(t, from, to),
		})
	}
	return wps
}

// CircularPattern returns n waypoints evenly spaced on a circle around
// center at center's altitude, ordered counterclockwise.
func CircularPattern(center math.Point3, radius float32, n int) []Waypoint {
	key := fmt.Sprintf("circ %v %f %d", center, radius, n)
	return cached(key, func() []Waypoint {
		var wps []Waypoint
		for i := 0; i < n; i++ {
			a := 2 * math.Pi() * float32(i) / float32(n)
			wps = append(wps, Waypoint{
				Name: fmt.Sprintf("pattern_%d", i),
				P:    math.Point3{center[0] + radius*math.Cos(a), center[1], center[2] + radius*math.Sin(a)},
			})
		}
		return wps
	})
}

// RectangularPattern returns the four corners of a width x depth
// rectangle centered at center, at center's altitude.
func RectangularPattern(center math.Point3, width, depth float32) []Waypoint {
	key := fmt.Sprintf("rect %v %f %f", center, width, depth)
	return cached(key, func() []Waypoint {
		w2, d2 := width/2, depth/2
		corners := [][2]float32{{w2, d2}, {-w2, d2}, {-w2, -d2}, {w2, -d2}}
		var wps []Waypoint
		for i, c := range corners {
			wps = append(wps, Waypoint{
				Name: fmt.Sprintf("pattern_%d", i),
				P:    math.Point3{center[0] + c[0], center[1], center[2] + c[1]},
			})
		}
		return wps
	})
}

// OvalPattern returns a racetrack pattern: two straight legs of the given
// length connected by semicircular turns of the given radius.
func OvalPattern(center math.Point3, legLength, radius float32, nturn int) []Waypoint {
	key := fmt.Sprintf("oval %v %f %f %d", center, legLength, radius, nturn)
	return cached(key, func() []Waypoint {
		l2 := legLength / 2
		var wps []Waypoint
		add := func(x, z float32) {
			wps = append(wps, Waypoint{
				Name: fmt.Sprintf("pattern_%d", len(wps)),
				P:    math.Point3{center[0] + x, center[1], center[2] + z},
			})
		}

		add(-l2, radius)
		add(l2, radius)
		// Turn at the +x end, from +z around to -z.
		for i := 1; i < nturn; i++ {
			a := math.Pi()/2 - math.Pi()*float32(i)/float32(nturn)
			add(l2+radius*math.Cos(a), radius*math.Sin(a))
		}
		add(l2, -radius)
		add(-l2, -radius)
		// And back around at the -x end.
		for i := 1; i < nturn; i++ {
			a := 3*math.Pi()/2 - math.Pi()*float32(i)/float32(nturn)
			add(-l2-radius*math.Cos(a), -radius*math.Sin(a))
		}
		return wps
	})
}

///////////////////////////////////////////////////////////////////////////
// Approach and departure

// ApproachDirection gives the side of the field a landing vehicle
// approaches from (and, symmetrically, the direction a departure climbs
// out toward).
type ApproachDirection int

const (
	ApproachEast ApproachDirection = iota
	ApproachWest
)

func (d ApproachDirection) String() string {
	if d == ApproachEast {
		return "east"
	}
	return "west"
}

func ParseApproachDirection(s string) (ApproachDirection, error) {
	switch s {
	case "east":
		return ApproachEast, nil
	case "west":
		return ApproachWest, nil
	}
	return ApproachDirection(-1), fmt.Errorf("%q: invalid approach direction", s)
}

func (d *ApproachDirection) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseApproachDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RunwayHeading returns the heading a vehicle flies while on approach
// from the given direction: approaching from the east means flying
// toward -x.
func (d ApproachDirection) RunwayHeading() float32 {
	if d == ApproachEast {
		return math.Pi()
	}
	return 0
}

// sign is +1 for an east approach (waypoints start at positive x) and -1
// for west.
func (d ApproachDirection) sign() float32 {
	if d == ApproachEast {
		return 1
	}
	return -1
}

// GlideSlopeAltitude returns the approach altitude at the given
// horizontal distance from the touchdown point; a 10% slope, floored at
// ground level.
func GlideSlopeAltitude(horizDistToTouchdown float32) float32 {
	return math.Max(float32(GroundLevel), horizDistToTouchdown*0.10)
}

// ApproachWaypoints returns the six-point approach for the given
// direction: initial approach, outer marker, final approach, short
// final, touchdown, and rollout, all on the runway centerline with
// altitudes following the glide slope.
func ApproachWaypoints(dir ApproachDirection) []Waypoint {
	key := fmt.Sprintf("approach %s", dir)
	return cached(key, func() []Waypoint {
		s := dir.sign()
		names := []string{"initial_approach", "outer_marker", "final_approach", "short_final",
			"touchdown", "rollout"}
		xs := []float32{400, 250, 150, 80, 40, -80}
		touchdownX := xs[4]

		hdg := dir.RunwayHeading()
		var wps []Waypoint
		for i, name := range names {
			y := float32(GroundLevel)
			if xs[i] > touchdownX {
				y = GlideSlopeAltitude(math.Abs(xs[i] - touchdownX))
			}
			wps = append(wps, Waypoint{
				Name:    name,
				P:       math.Point3{s * xs[i], y, 0},
				Heading: &hdg,
			})
		}
		return wps
	})
}

// TouchdownWaypoint returns the touchdown point for the given direction.
func TouchdownWaypoint(dir ApproachDirection) Waypoint {
	return ApproachWaypoints(dir)[4]
}

// RolloutWaypoint returns the rollout end point for the given direction.
func RolloutWaypoint(dir ApproachDirection) Waypoint {
	return ApproachWaypoints(dir)[5]
}

// DepartureWaypoints returns the climb-out for a takeoff rolling toward
// the given direction: liftoff near the far threshold, then two climb
// points continuing outbound.
func DepartureWaypoints(dir ApproachDirection) []Waypoint {
	key := fmt.Sprintf("departure %s", dir)
	return cached(key, func() []Waypoint {
		s := dir.sign()
		hdg := math.OppositeHeading(dir.RunwayHeading())
		var wps []Waypoint
		for _, pt := range []struct {
			name string
			x, y float32
		}{
			{"liftoff", 100, GroundLevel},
			{"initial_climb", 180, 20},
			{"departure", 300, 40},
		} {
			wps = append(wps, Waypoint{
				Name:    pt.name,
				P:       math.Point3{s * pt.x, pt.y, 0},
				Heading: &hdg,
			})
		}
		return wps
	})
}

///////////////////////////////////////////////////////////////////////////
// Route measures and editing

// RouteDistance returns the total length of the route from start through
// all waypoints.
func RouteDistance(start math.Point3, wps []Waypoint) float32 {
	var d float32
	p := start
	for _, wp := range wps {
		d += math.Distance3f(p, wp.P)
		p = wp.P
	}
	return d
}

// EstimateTime returns the estimated time to taxi the route at the
// class's taxi speed.
func EstimateTime(start math.Point3, wps []Waypoint, perf Performance) time.Duration {
	if perf.Speed.Taxi <= 0 {
		return 0
	}
	return time.Duration(RouteDistance(start, wps) / perf.Speed.Taxi * float32(time.Second))
}

// SimplifyRoute removes interior waypoints whose detour cost (the extra
// distance from visiting the waypoint versus going directly from its
// predecessor to its successor) is at most tol. Endpoints are always
// preserved, as are waypoints that carry a required heading.
func SimplifyRoute(wps []Waypoint, tol float32) []Waypoint {
	if len(wps) <= 2 {
		return wps
	}

	simplified := []Waypoint{wps[0]}
	for i := 1; i < len(wps)-1; i++ {
		prev := simplified[len(simplified)-1].P
		cur, next := wps[i], wps[i+1]
		detour := math.Distance3f(prev, cur.P) + math.Distance3f(cur.P, next.P) -
			math.Distance3f(prev, next.P)
		if cur.Heading != nil || detour > tol {
			simplified = append(simplified, cur)
		}
	}
	return append(simplified, wps[len(wps)-1])
}

// AvoidObstacle checks each leg of the route against a circular obstacle
// in the ground plane and, for the first leg that passes through it,
// inserts a single detour waypoint offset perpendicular to the leg so
// that the route clears the obstacle. The (possibly modified) route is
// returned along with whether a detour was added.
func AvoidObstacle(start math.Point3, wps []Waypoint, center math.Point3, radius float32) ([]Waypoint, bool) {
	p := start
	for i, wp := range wps {
		if math.LineCircleIntersects(p, wp.P, center, radius) {
			perp := math.PerpendicularXZ(p, wp.P)
			// Detour on whichever side the obstacle isn't.
			side := float32(1)
			if math.Dot2f(perp, math.Sub2f(center.XZ(), p.XZ())) > 0 {
				side = -1
			}
			off := math.Scale2f(perp, side*2*radius)
			mid := math.Lerp3f(0.5, p, wp.P)
			detour := Waypoint{
				Name: "detour",
				P:    math.Point3{mid[0] + off[0], mid[1], mid[2] + off[1]},
			}
			return util.InsertSliceElement(slices.Clone(wps), i, detour), true
		}
		p = wp.P
	}
	return wps, false
}
