// sim/groundcrew.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/math"
	"github.com/airside-sim/airside/util"
)

// GroundVehicle is one pushback tug in the ground crew's pool.
type GroundVehicle struct {
	ID        string
	Position  math.Point3
	Available bool
	// AssignedTo is the id of the aircraft holding the tug, or "".
	AssignedTo string
	// generation increments each time the tug is released, so a pushback
	// timer from a superseded assignment cannot complete a later one for
	// the same aircraft.
	generation int
}

func (g *GroundVehicle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", g.ID),
		slog.Bool("available", g.Available),
		slog.String("assigned_to", g.AssignedTo))
}

// GroundCrew allocates pushback tugs to taxi operations and runs the
// pushback itself. It is driven entirely by events: a
// ground.vehicle.request either reserves the first free tug (answering
// ground.vehicle.available) or answers ground.vehicle.unavailable; a
// ground.vehicle.start.pushback repositions the aircraft rearward under
// tow and completes on a scheduler timer.
type GroundCrew struct {
	lg        *log.Logger
	events    *EventChannel
	scheduler *Scheduler
	field     *av.Airfield
	lookup    func(vehicleID string) *Vehicle

	pool []*GroundVehicle
}

// groundPoolSize is the number of tugs on the field.
const groundPoolSize = 2

func NewGroundCrew(events *EventChannel, scheduler *Scheduler, field *av.Airfield,
	lookup func(string) *Vehicle, lg *log.Logger) *GroundCrew {
	gc := &GroundCrew{
		lg:        lg,
		events:    events,
		scheduler: scheduler,
		field:     field,
		lookup:    lookup,
	}
	for i := 0; i < groundPoolSize; i++ {
		gc.pool = append(gc.pool, &GroundVehicle{
			ID:        "tug_" + string(rune('a'+i)),
			Position:  math.Point3{float32(-60 + 20*i), av.GroundLevel, 75},
			Available: true,
		})
	}

	events.Subscribe(TopicGroundVehicleRequest, gc.handleRequest)
	events.Subscribe(TopicStartPushback, gc.handleStartPushback)
	return gc
}

// Pool exposes the tugs for inspection; callers must not mutate them.
func (gc *GroundCrew) Pool() []*GroundVehicle {
	return gc.pool
}

func (gc *GroundCrew) handleRequest(ev Event) {
	req, ok := ev.Payload.(GroundVehicleRequest)
	if !ok {
		gc.lg.Errorf("unexpected payload %T for %s", ev.Payload, ev.Topic)
		return
	}

	free := util.FilterSlice(gc.pool, func(t *GroundVehicle) bool { return t.Available })
	if len(free) == 0 {
		gc.lg.Info("no ground vehicle available", slog.String("vehicle", req.VehicleID))
		gc.events.Publish(TopicGroundVehicleUnavailable, GroundVehicleUnavailable{
			VehicleID: req.VehicleID,
		})
		return
	}

	tug := free[0]
	tug.Available = false
	tug.AssignedTo = req.VehicleID
	gc.lg.Info("assigned ground vehicle", slog.Any("tug", tug))
	gc.events.Publish(TopicGroundVehicleAvailable, GroundVehicleAssignment{
		VehicleID:       req.VehicleID,
		GroundVehicleID: tug.ID,
	})
}

func (gc *GroundCrew) handleStartPushback(ev Event) {
	start, ok := ev.Payload.(PushbackStart)
	if !ok {
		gc.lg.Errorf("unexpected payload %T for %s", ev.Payload, ev.Topic)
		return
	}

	tug := gc.assignedTug(start.VehicleID)
	if tug == nil {
		gc.lg.Errorf("pushback start for %s with no assigned tug", start.VehicleID)
		return
	}

	v := gc.lookup(start.VehicleID)
	if v == nil {
		gc.lg.Errorf("pushback start for unknown vehicle %s", start.VehicleID)
		gc.release(tug)
		return
	}

	v.BeingTowed = true
	tug.Position = v.Position

	// The tug pushes the aircraft straight back by the configured
	// offset; the visual glide between the two positions belongs to the
	// rendering layer.
	h := v.Rotation[1]
	v.Position[0] -= math.Cos(h) * gc.field.PushbackDistance
	v.Position[2] -= math.Sin(h) * gc.field.PushbackDistance
	v.Position[1] = av.GroundLevel

	gen := tug.generation
	gc.scheduler.After(gc.field.PushbackDuration(), func() {
		// The operation may have been canceled and the tug released,
		// possibly reassigned to the same aircraft, while the timer ran.
		if tug.AssignedTo != start.VehicleID || tug.generation != gen {
			return
		}
		v.BeingTowed = false
		gc.release(tug)
		gc.events.Publish(TopicPushbackComplete, PushbackCompletion{
			VehicleID:       start.VehicleID,
			GroundVehicleID: tug.ID,
		})
	})
}

// Assigned returns the tug currently assigned to the given aircraft,
// or nil if no tug is working it.
func (gc *GroundCrew) Assigned(vehicleID string) *GroundVehicle {
	return gc.assignedTug(vehicleID)
}

func (gc *GroundCrew) assignedTug(vehicleID string) *GroundVehicle {
	for _, tug := range gc.pool {
		if tug.AssignedTo == vehicleID {
			return tug
		}
	}
	return nil
}

func (gc *GroundCrew) release(tug *GroundVehicle) {
	tug.AssignedTo = ""
	tug.Available = true
	tug.generation++
}

// Release frees any tug held by the given aircraft and clears its tow
// flag; it is the cancellation path for taxi operations terminated
// mid-pushback.
func (gc *GroundCrew) Release(vehicleID string) {
	if tug := gc.assignedTug(vehicleID); tug != nil {
		gc.release(tug)
	}
	if v := gc.lookup(vehicleID); v != nil {
		v.BeingTowed = false
	}
}
