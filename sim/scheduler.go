// sim/scheduler.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"slices"
	"time"

	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/math"
)

// TimerID identifies a timer owned by the Scheduler.
type TimerID int

// TimerOpts configures a countdown timer. OnProgress is invoked every
// tick the timer is running with progress in [0,1]; OnComplete fires
// exactly once, on the first tick at or after expiry.
type TimerOpts struct {
	OnProgress func(progress float32)
	OnComplete func()
	AutoStart  bool
}

type timer struct {
	id         TimerID
	duration   time.Duration
	interval   time.Duration // repeating timers only
	elapsed    time.Duration
	running    bool
	completed  bool
	repeating  bool
	onProgress func(float32)
	onComplete func()
}

func (t *timer) progress() float32 {
	if t.duration <= 0 {
		return 1
	}
	return math.Min(float32(t.elapsed)/float32(t.duration), 1)
}

// TimerState is an inspectable snapshot of a timer.
type TimerState struct {
	ID        TimerID
	Duration  time.Duration
	Elapsed   time.Duration
	Progress  float32
	Running   bool
	Completed bool
}

// Scheduler is the cooperative timer facility: all timers advance
// together when the external tick driver calls Advance with the elapsed
// delta. Nothing here blocks; deferred work is a callback fired from
// Advance on the driving goroutine.
type Scheduler struct {
	lg     *log.Logger
	events *EventChannel // may be nil
	nextID TimerID
	timers map[TimerID]*timer
	order  []TimerID // creation order, for deterministic firing
}

func NewScheduler(events *EventChannel, lg *log.Logger) *Scheduler {
	return &Scheduler{
		lg:     lg,
		events: events,
		timers: make(map[TimerID]*timer),
	}
}

// CreateTimer registers a countdown timer and returns its id; the timer
// does not advance until started unless AutoStart is set.
func (s *Scheduler) CreateTimer(d time.Duration, opts TimerOpts) TimerID {
	t := &timer{
		duration:   d,
		running:    opts.AutoStart,
		onProgress: opts.OnProgress,
		onComplete: opts.OnComplete,
	}
	return s.add(t)
}

// After schedules fn to run once after the given delay.
func (s *Scheduler) After(delay time.Duration, fn func()) TimerID {
	return s.CreateTimer(delay, TimerOpts{OnComplete: fn, AutoStart: true})
}

// Every schedules fn to run repeatedly at the given interval. If a tick
// spans several intervals the callback fires once per elapsed interval,
// so long-term firing rates don't drift.
func (s *Scheduler) Every(interval time.Duration, fn func()) TimerID {
	if interval <= 0 {
		interval = time.Millisecond
	}
	t := &timer{
		interval:   interval,
		running:    true,
		repeating:  true,
		onComplete: fn,
	}
	return s.add(t)
}

func (s *Scheduler) add(t *timer) TimerID {
	s.nextID++
	t.id = s.nextID
	s.timers[t.id] = t
	s.order = append(s.order, t.id)
	if s.events != nil {
		s.events.Publish(TopicTimerCreated, TimerChange{ID: t.id})
	}
	return t.id
}

// StartTimer starts the timer from the beginning.
func (s *Scheduler) StartTimer(id TimerID) error {
	t, ok := s.timers[id]
	if !ok {
		return ErrUnknownTimer
	}
	t.elapsed = 0
	t.completed = false
	t.running = true
	return nil
}

// PauseTimer suspends the timer, preserving its elapsed time.
func (s *Scheduler) PauseTimer(id TimerID) error {
	t, ok := s.timers[id]
	if !ok {
		return ErrUnknownTimer
	}
	t.running = false
	return nil
}

// ResumeTimer continues a paused timer from where it left off.
func (s *Scheduler) ResumeTimer(id TimerID) error {
	t, ok := s.timers[id]
	if !ok {
		return ErrUnknownTimer
	}
	if !t.completed {
		t.running = true
	}
	return nil
}

// StopTimer halts the timer and resets its elapsed time; it does not
// fire the completion callback.
func (s *Scheduler) StopTimer(id TimerID) error {
	t, ok := s.timers[id]
	if !ok {
		return ErrUnknownTimer
	}
	t.running = false
	t.elapsed = 0
	return nil
}

// RemoveTimer discards the timer without firing any callbacks.
func (s *Scheduler) RemoveTimer(id TimerID) error {
	if _, ok := s.timers[id]; !ok {
		return ErrUnknownTimer
	}
	delete(s.timers, id)
	if i := slices.Index(s.order, id); i != -1 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}

// Cancel is RemoveTimer for callers that don't care whether the timer
// still exists; it serves both one-shot and repeating timers.
func (s *Scheduler) Cancel(id TimerID) {
	_ = s.RemoveTimer(id)
}

// State returns an inspectable snapshot of the timer.
func (s *Scheduler) State(id TimerID) (TimerState, bool) {
	t, ok := s.timers[id]
	if !ok {
		return TimerState{}, false
	}
	return TimerState{
		ID:        t.id,
		Duration:  t.duration,
		Elapsed:   t.elapsed,
		Progress:  t.progress(),
		Running:   t.running,
		Completed: t.completed,
	}, true
}

// Advance is the driver loop, called once per external tick: every
// running timer advances by elapsed, progress callbacks run, and
// completion callbacks fire for timers that have reached their duration.
// Completed one-shot timers are removed. Callback panics are recovered
// and logged without aborting the loop.
func (s *Scheduler) Advance(elapsed time.Duration) {
	if elapsed < 0 {
		s.lg.Warn("negative elapsed time", slog.Duration("elapsed", elapsed))
		return
	}

	// Snapshot the order so callbacks creating or removing timers don't
	// perturb this tick; timers created during Advance first run next
	// tick.
	for _, id := range slices.Clone(s.order) {
		t, ok := s.timers[id]
		if !ok || !t.running {
			continue
		}

		t.elapsed += elapsed

		if t.repeating {
			// Fire once per elapsed interval so a long tick catches up
			// rather than losing firings.
			for t.elapsed >= t.interval && s.timers[id] == t {
				t.elapsed -= t.interval
				s.invoke(t.onComplete)
			}
			continue
		}

		if t.onProgress != nil {
			s.invokeProgress(t.onProgress, t.progress())
		}

		if t.progress() >= 1 && !t.completed {
			t.completed = true
			t.running = false
			s.invoke(t.onComplete)
			if s.events != nil {
				s.events.Publish(TopicTimerComplete, TimerChange{ID: t.id})
			}
			// Completed timers are removed; callers wanting to run a
			// countdown again create a new one.
			_ = s.RemoveTimer(t.id)
		}
	}
}

func (s *Scheduler) invoke(fn func()) {
	if fn == nil {
		return
	}
	defer log.CatchPanic(s.lg, "timer callback")
	fn()
}

func (s *Scheduler) invokeProgress(fn func(float32), p float32) {
	defer log.CatchPanic(s.lg, "timer progress callback")
	fn(p)
}
