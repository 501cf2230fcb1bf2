// sim/sim.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/rand"
	"github.com/airside-sim/airside/util"
)

type Config struct {
	Airfield *av.Airfield
	DB       *av.DB

	// SimRate scales wall-clock time into simulation time; 1 is real
	// time.
	SimRate float32
}

// Sim is the root of the orchestrator: it owns the event channel, the
// scheduler, the state store, and the controllers, and drives them all
// from a single Update loop. There is no global state; everything a
// component needs is passed to it here.
type Sim struct {
	Events    *EventChannel
	Scheduler *Scheduler
	Store     *StateStore
	Crew      *GroundCrew
	Taxi      *TaxiController
	Landing   *LandingController
	Flights   *FlightDirector

	mu util.LoggingMutex
	lg *log.Logger

	field *av.Airfield
	db    *av.DB
	rand  rand.Rand

	vehicles map[string]*Vehicle

	simRate    float32
	paused     bool
	lastUpdate time.Time
}

func New(config Config, lg *log.Logger) *Sim {
	s := &Sim{
		lg:       lg,
		field:    config.Airfield,
		db:       config.DB,
		rand:     rand.New(),
		vehicles: make(map[string]*Vehicle),
		simRate:  config.SimRate,
	}
	if s.db == nil {
		s.db = av.BuiltinDB()
	}
	if s.simRate <= 0 {
		s.simRate = 1
	}

	s.Events = NewEventChannel(lg)
	s.Scheduler = NewScheduler(s.Events, lg)
	s.Store = NewStateStore(s.Events, lg)
	s.Crew = NewGroundCrew(s.Events, s.Scheduler, s.field, s.Vehicle, lg)
	s.Taxi = NewTaxiController(s.Events, s.Scheduler, s.Store, s.Crew, s.field, lg)
	s.Landing = NewLandingController(s.Events, s.Store, s.field, lg)
	s.Flights = NewFlightDirector(s.Events, s.Store, s.Taxi, s.Landing, s.Crew,
		s.field, &s.rand, lg)

	s.lastUpdate = time.Now()
	return s
}

// AddVehicle registers an aircraft proxy with the sim, resolving its
// class performance from the database.
func (s *Sim) AddVehicle(id string, class av.VehicleClass, position [3]float32) (*Vehicle, error) {
	if !class.Known() {
		return nil, av.ErrUnknownVehicleClass
	}
	if _, ok := s.vehicles[id]; ok {
		return nil, ErrDuplicateVehicle
	}
	v := &Vehicle{
		ID:       id,
		Class:    class,
		Position: position,
		Specs:    s.db.Performance[class],
	}
	s.vehicles[id] = v
	s.Store.Set(id, "", "registered", map[string]any{"class": class.String()})
	s.lg.Info("vehicle added", slog.Any("vehicle", v))
	return v, nil
}

// Vehicle returns the registered vehicle with the given id, or nil.
func (s *Sim) Vehicle(id string) *Vehicle {
	return s.vehicles[id]
}

// Vehicles returns all registered vehicles in id order.
func (s *Sim) Vehicles() []*Vehicle {
	return util.MapSlice(util.SortedMapKeys(s.vehicles),
		func(id string) *Vehicle { return s.vehicles[id] })
}

///////////////////////////////////////////////////////////////////////////
// Operations by vehicle id
//
// The host hands these ids straight from its UI or scenario file, so
// each resolves the vehicle itself and reports unknown ids as errors.

func (s *Sim) StartTaxi(id string, dir av.Direction) (*Operation, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrUnknownVehicle
	}
	return s.Taxi.StartTaxi(v, dir)
}

func (s *Sim) StartLanding(id string, dir av.ApproachDirection) (*Operation, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrUnknownVehicle
	}
	return s.Landing.StartLanding(v, dir)
}

// Dispatch sends the vehicle on its standard out-and-back flight plan.
func (s *Sim) Dispatch(id string, style PatternStyle) (*Operation, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrUnknownVehicle
	}
	return s.Flights.StartFlight(v, DispatchPlan(v, s.field, style))
}

// Recall orders the vehicle back to parking from wherever it is.
func (s *Sim) Recall(id string) (*Operation, error) {
	v, ok := s.vehicles[id]
	if !ok {
		return nil, ErrUnknownVehicle
	}
	return s.Flights.Recall(v)
}

func (s *Sim) CompleteRecall(id string) error {
	v, ok := s.vehicles[id]
	if !ok {
		return ErrUnknownVehicle
	}
	return s.Flights.CompleteRecall(v)
}

func (s *Sim) ForceResetToParking(id string) error {
	v, ok := s.vehicles[id]
	if !ok {
		return ErrUnknownVehicle
	}
	s.Flights.ForceResetToParking(v)
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Tick loop

// Update advances the simulation by the wall-clock time since the last
// call, scaled by the sim rate. The host calls this once per frame.
func (s *Sim) Update() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	now := time.Now()
	elapsed := now.Sub(s.lastUpdate)
	s.lastUpdate = now

	if s.paused {
		return
	}
	s.Step(time.Duration(s.simRate * float32(elapsed)))
}

// Step advances the simulation by the given amount of simulation time.
// Tests and headless drivers call this directly for determinism.
func (s *Sim) Step(elapsed time.Duration) {
	dt := float32(elapsed.Seconds())

	s.Scheduler.Advance(elapsed)
	s.Taxi.Update(dt)
	s.Landing.UpdateAll(dt)
	s.Flights.UpdateAll(dt)

	s.Check()
}

// TogglePause flips the paused flag and returns the new value.
func (s *Sim) TogglePause() bool {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	s.paused = !s.paused
	// Don't let the pause interval turn into a huge catch-up step.
	s.lastUpdate = time.Now()
	return s.paused
}

func (s *Sim) Paused() bool { return s.paused }

func (s *Sim) SetSimRate(r float32) {
	if r > 0 {
		s.simRate = r
	}
}

func (s *Sim) SimRate() float32 { return s.simRate }

// Check runs the cross-component invariant sweeps: at most one
// operation per vehicle, tow flags matching tug assignments, and the
// runway flag matching the landing controller. Violations are logged,
// never fatal.
func (s *Sim) Check() {
	for _, id := range util.SortedMapKeys(s.vehicles) {
		v := s.vehicles[id]

		if v.Op != nil && v.Op.Complete {
			s.lg.Errorf("%s: completed operation still attached", id)
			v.Op = nil
		}

		towed := s.Crew.Assigned(id) != nil
		if v.BeingTowed && !towed {
			s.lg.Errorf("%s: tow flag set with no tug assigned", id)
			v.BeingTowed = false
		}
	}

	if s.Landing.RunwayOccupied() {
		lo := s.Landing.active
		if lo.vehicle.Op != lo.op {
			s.lg.Errorf("%s: landing holds runway without owning the vehicle operation",
				lo.vehicle.ID)
		}
	}
}

// DumpState serializes the state store for diagnostics.
func (s *Sim) DumpState() ([]byte, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)
	return s.Store.Dump()
}
