// sim/events.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	av "github.com/airside-sim/airside/aviation"
	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/util"
)

// Topic names an event channel topic. UI and telemetry layers may
// subscribe to any of these without affecting orchestration.
type Topic string

const (
	TopicTaxiStateChanged  Topic = "taxi.state.changed"
	TopicTaxiStarted       Topic = "taxi.started"
	TopicTaxiCompleted     Topic = "taxi.completed"
	TopicTaxiError         Topic = "taxi.error"

	TopicGroundVehicleRequest     Topic = "ground.vehicle.request"
	TopicGroundVehicleAvailable   Topic = "ground.vehicle.available"
	TopicGroundVehicleUnavailable Topic = "ground.vehicle.unavailable"
	TopicStartPushback            Topic = "ground.vehicle.start.pushback"
	TopicPushbackComplete         Topic = "ground.vehicle.pushback.complete"

	TopicVehicleStateChanged Topic = "aircraft.state.changed"

	TopicTimerCreated  Topic = "timer.created"
	TopicTimerComplete Topic = "timer.complete"

	TopicLandingStateChanged Topic = "landing.state.changed"
	TopicLandingCompleted    Topic = "landing.completed"
	TopicLandingAborted      Topic = "landing.aborted"

	TopicFlightPhaseChanged Topic = "flight.phase.changed"
	TopicFlightCompleted    Topic = "flight.completed"
	TopicFlightError        Topic = "flight.error"
)

///////////////////////////////////////////////////////////////////////////
// Event payloads
//
// One explicit struct per topic; external collaborators hand data in and
// out through these rather than duck-typed bags of fields.

type TaxiStateChange struct {
	VehicleID string
	From, To  TaxiState
	Reason    string
}

type TaxiStarted struct {
	VehicleID string
	Direction av.Direction
}

type TaxiCompletion struct {
	VehicleID string
	Direction av.Direction
}

type TaxiFailure struct {
	VehicleID string
	Reason    string
}

type GroundVehicleRequest struct {
	VehicleID string
}

type GroundVehicleAssignment struct {
	VehicleID       string
	GroundVehicleID string
}

type GroundVehicleUnavailable struct {
	VehicleID string
}

type PushbackStart struct {
	VehicleID       string
	GroundVehicleID string
}

type PushbackCompletion struct {
	VehicleID       string
	GroundVehicleID string
}

type VehicleStateChange struct {
	VehicleID string
	Version   int64
	Operation string
	Phase     string
}

type TimerChange struct {
	ID TimerID
}

type LandingStateChange struct {
	VehicleID string
	From, To  LandingState
}

type LandingCompletion struct {
	VehicleID string
}

type LandingAbort struct {
	VehicleID string
}

type FlightPhaseChange struct {
	VehicleID string
	Phase     string
	Index     int
}

type FlightCompletion struct {
	VehicleID string
}

type FlightFailure struct {
	VehicleID string
	Reason    string
}

///////////////////////////////////////////////////////////////////////////
// EventChannel

// Event is one published event, retained in the channel history.
type Event struct {
	Seq     int64
	Time    time.Time
	Topic   Topic
	Payload any
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s: %+v", e.Seq, e.Topic, e.Payload)
}

func (e Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("seq", e.Seq),
		slog.String("topic", string(e.Topic)),
		slog.Any("payload", e.Payload))
}

// Handler receives events for a subscribed topic.
type Handler func(Event)

// eventHistorySize bounds the number of retained events.
const eventHistorySize = 1000

// maxPublishDepth caps re-entrant publishes: a handler that publishes is
// delivered depth-first, and past this depth the event is dropped and
// logged rather than recursing without bound.
const maxPublishDepth = 16

// EventChannel provides the synchronous pub/sub interface that all
// cross-component communication flows through. Delivery happens on the
// publishing turn, in subscriber registration order; there is no queuing
// across ticks.
type EventChannel struct {
	lg      *log.Logger
	seq     int64
	depth   int
	subs    map[Topic][]*Subscription
	history *util.RingBuffer[Event]
	now     func() time.Time
}

// Subscription identifies one registered handler; its Unsubscribe method
// is the "unsubscribe function" returned from Subscribe.
type Subscription struct {
	ch      *EventChannel
	topic   Topic
	handler Handler
	once    bool
	active  bool
}

func NewEventChannel(lg *log.Logger) *EventChannel {
	return &EventChannel{
		lg:      lg,
		subs:    make(map[Topic][]*Subscription),
		history: util.NewRingBuffer[Event](eventHistorySize),
		now:     time.Now,
	}
}

// Subscribe registers a handler for the topic. Handlers for a topic are
// invoked in the order they subscribed.
func (c *EventChannel) Subscribe(topic Topic, handler Handler) *Subscription {
	sub := &Subscription{ch: c, topic: topic, handler: handler, active: true}
	c.subs[topic] = append(c.subs[topic], sub)
	return sub
}

// SubscribeOnce registers a handler that is automatically unsubscribed
// after its first delivery.
func (c *EventChannel) SubscribeOnce(topic Topic, handler Handler) *Subscription {
	sub := c.Subscribe(topic, handler)
	sub.once = true
	return sub
}

// Unsubscribe removes the subscription; it is safe to call during
// delivery and more than once.
func (s *Subscription) Unsubscribe() {
	if !s.active {
		return
	}
	s.active = false
	if i := slices.Index(s.ch.subs[s.topic], s); i != -1 {
		s.ch.subs[s.topic] = util.DeleteSliceElement(s.ch.subs[s.topic], i)
	}
}

// UnsubscribeAll drops every subscription for the topic.
func (c *EventChannel) UnsubscribeAll(topic Topic) {
	for _, sub := range c.subs[topic] {
		sub.active = false
	}
	delete(c.subs, topic)
}

// Publish appends the event to the history and synchronously delivers it
// to all current subscribers of the topic. A handler panic is recovered
// and logged without interrupting delivery to the remaining handlers. A
// handler that itself publishes causes depth-first delivery of the inner
// event before the outer Publish returns.
func (c *EventChannel) Publish(topic Topic, payload any) {
	if c.depth >= maxPublishDepth {
		c.lg.Error("publish depth cap exceeded; dropping event",
			slog.String("topic", string(topic)), slog.Any("payload", payload))
		return
	}

	c.seq++
	ev := Event{Seq: c.seq, Time: c.now(), Topic: topic, Payload: payload}
	c.history.Add(ev)
	c.lg.Debug("posted event", slog.Any("event", ev))

	// Snapshot the subscriber list so that handlers subscribing or
	// unsubscribing don't perturb this delivery; subscribers added
	// during delivery only see later events.
	subs := slices.Clone(c.subs[topic])

	c.depth++
	defer func() { c.depth-- }()

	for _, sub := range subs {
		if !sub.active {
			continue
		}
		if sub.once {
			sub.Unsubscribe()
		}
		c.deliver(sub, ev)
	}
}

func (c *EventChannel) deliver(sub *Subscription, ev Event) {
	defer log.CatchPanic(c.lg, "event handler for "+string(ev.Topic))
	sub.handler(ev)
}

// History returns the retained events, oldest first.
func (c *EventChannel) History() []Event {
	events := make([]Event, c.history.Size())
	for i := range events {
		events[i] = c.history.Get(i)
	}
	return events
}
