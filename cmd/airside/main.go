// cmd/airside/main.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// Scenario runner: loads an airfield and a vehicle roster, schedules the
// scenario's dispatches and recalls, and drives the simulation at a
// fixed tick rate until the run duration expires.

import (
	_ "embed"
	"flag"
	"fmt"
	"os"
	"time"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/sim"
	"github.com/airside-sim/airside/util"

	"github.com/goforj/godump"
)

//go:embed scenario.json
var defaultScenarioJSON []byte

var (
	logLevel         = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir           = flag.String("logdir", "", "log file directory")
	scenarioFilename = flag.String("scenario", "", "filename of JSON file with a scenario definition")
	duration         = flag.Duration("duration", time.Minute, "how long to run the scenario")
	rate             = flag.Float64("rate", 1, "simulation rate multiplier")
	dumpStateFile    = flag.String("dumpstate", "", "write a state store dump to this file at exit")
	listRoutes       = flag.Bool("listroutes", false, "print the airfield's taxi routes and exit")
	lintScenario     = flag.Bool("lint", false, "check the scenario definition without running it")
	cpuprofile       = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile       = flag.String("memprofile", "", "write memory profile to this file")
)

// Scenario is the JSON-defined roster and schedule for one run.
type Scenario struct {
	Name     string `json:"name"`
	Vehicles []struct {
		ID      string `json:"id"`
		Class   string `json:"class"`
		Parking string `json:"parking"`
	} `json:"vehicles"`
	Dispatches []struct {
		Vehicle string  `json:"vehicle"`
		AtSec   float32 `json:"at_sec"`
		Pattern string  `json:"pattern"`
	} `json:"dispatches"`
	Recalls []struct {
		Vehicle string  `json:"vehicle"`
		AtSec   float32 `json:"at_sec"`
	} `json:"recalls"`
}

func loadScenario(filename string, field *av.Airfield, e *util.ErrorLogger) *Scenario {
	b := defaultScenarioJSON
	if filename != "" {
		var err error
		if b, err = os.ReadFile(filename); err != nil {
			e.Error(err)
			return nil
		}
		e.Push(filename)
	} else {
		e.Push("scenario.json")
	}
	defer e.Pop()

	var sc Scenario
	if err := util.UnmarshalJSON(b, &sc); err != nil {
		e.Error(err)
		return nil
	}

	ids := make(map[string]bool)
	for _, v := range sc.Vehicles {
		e.Push("vehicle " + v.ID)
		if v.ID == "" {
			e.ErrorString("missing id")
		}
		if ids[v.ID] {
			e.ErrorString("duplicate id")
		}
		ids[v.ID] = true
		if _, err := av.ParseVehicleClass(v.Class); err != nil {
			e.Error(err)
		}
		if _, err := field.ParkingSpot(v.Parking); err != nil {
			e.Error(err)
		}
		e.Pop()
	}
	for _, d := range sc.Dispatches {
		e.Push("dispatch " + d.Vehicle)
		if !ids[d.Vehicle] {
			e.ErrorString("not in the vehicle roster")
		}
		if _, err := parsePattern(d.Pattern); err != nil {
			e.Error(err)
		}
		e.Pop()
	}
	for _, r := range sc.Recalls {
		e.Push("recall " + r.Vehicle)
		if !ids[r.Vehicle] {
			e.ErrorString("not in the vehicle roster")
		}
		e.Pop()
	}
	return &sc
}

func parsePattern(s string) (sim.PatternStyle, error) {
	switch s {
	case "", "circular":
		return sim.PatternCircular, nil
	case "rectangular":
		return sim.PatternRectangular, nil
	case "oval":
		return sim.PatternOval, nil
	}
	return sim.PatternCircular, fmt.Errorf("%q: unknown pattern style", s)
}

// loggedTopics are echoed to the console as the scenario runs.
var loggedTopics = []sim.Topic{
	sim.TopicTaxiStarted, sim.TopicTaxiCompleted, sim.TopicTaxiError,
	sim.TopicGroundVehicleUnavailable, sim.TopicPushbackComplete,
	sim.TopicLandingCompleted, sim.TopicLandingAborted,
	sim.TopicFlightPhaseChanged, sim.TopicFlightCompleted, sim.TopicFlightError,
}

func main() {
	flag.Parse()

	lg := log.New(*logDir, *logLevel)

	profiler, err := util.StartProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Stop()

	var e util.ErrorLogger
	field := av.LoadAirfield(nil, &e)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}

	if *listRoutes {
		field.TaxiRoutes.ForEach(func(class string, cr av.ClassRoutes) {
			fmt.Printf("%s %s:\n", class, av.ToRunway)
			godump.Dump(cr.ToRunway)
			fmt.Printf("%s %s:\n", class, av.FromRunway)
			godump.Dump(cr.FromRunway)
		})
		os.Exit(0)
	}

	scenario := loadScenario(*scenarioFilename, field, &e)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}
	if *lintScenario {
		fmt.Printf("%s: scenario ok: %d vehicles, %d dispatches, %d recalls\n",
			scenario.Name, len(scenario.Vehicles), len(scenario.Dispatches),
			len(scenario.Recalls))
		os.Exit(0)
	}

	s := sim.New(sim.Config{Airfield: field, SimRate: float32(*rate)}, lg)

	for _, vdef := range scenario.Vehicles {
		class, _ := av.ParseVehicleClass(vdef.Class)
		p, _ := field.ParkingSpot(vdef.Parking)
		if _, err := s.AddVehicle(vdef.ID, class, p); err != nil {
			lg.Errorf("%s: %v", vdef.ID, err)
			os.Exit(1)
		}
	}

	for _, topic := range loggedTopics {
		topic := topic
		s.Events.Subscribe(topic, func(ev sim.Event) {
			fmt.Printf("  %s\n", ev)
		})
	}

	for _, d := range scenario.Dispatches {
		d := d
		style, _ := parsePattern(d.Pattern)
		s.Scheduler.After(time.Duration(d.AtSec*float32(time.Second)), func() {
			if _, err := s.Dispatch(d.Vehicle, style); err != nil {
				lg.Errorf("dispatch %s: %v", d.Vehicle, err)
			}
		})
	}
	for _, r := range scenario.Recalls {
		r := r
		s.Scheduler.After(time.Duration(r.AtSec*float32(time.Second)), func() {
			if _, err := s.Recall(r.Vehicle); err != nil {
				lg.Errorf("recall %s: %v", r.Vehicle, err)
			}
		})
	}

	fmt.Printf("%s: running for %s at %gx\n", scenario.Name, *duration, *rate)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(*duration)
	for now := range ticker.C {
		if now.After(deadline) {
			break
		}
		s.Update()
	}

	for _, v := range s.Vehicles() {
		godump.Dump(v)
	}

	if *dumpStateFile != "" {
		b, err := s.DumpState()
		if err != nil {
			lg.Errorf("dump state: %v", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*dumpStateFile, b, 0o644); err != nil {
			lg.Errorf("%s: %v", *dumpStateFile, err)
			os.Exit(1)
		}
		fmt.Printf("wrote state dump to %s (%d bytes)\n", *dumpStateFile, len(b))
	}
}
