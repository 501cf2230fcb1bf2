// sim/events_test.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"testing"

	"github.com/airside-sim/airside/log"
)

const testTopic Topic = "test.topic"

func TestSubscriptionOrder(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	var got []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		c.Subscribe(testTopic, func(ev Event) { got = append(got, name) })
	}
	c.Publish(testTopic, nil)

	if fmt.Sprint(got) != "[a b c]" {
		t.Errorf("delivery order %v", got)
	}
}

func TestSubscribeOnce(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	n := 0
	c.SubscribeOnce(testTopic, func(ev Event) { n++ })
	c.Publish(testTopic, nil)
	c.Publish(testTopic, nil)
	if n != 1 {
		t.Errorf("once handler ran %d times", n)
	}
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	var second *Subscription
	ran := false
	c.Subscribe(testTopic, func(ev Event) { second.Unsubscribe() })
	second = c.Subscribe(testTopic, func(ev Event) { ran = true })

	c.Publish(testTopic, nil)
	if ran {
		t.Error("handler ran after being unsubscribed during delivery")
	}
}

func TestReentrantPublishDepthFirst(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())
	const inner Topic = "test.inner"

	var got []string
	c.Subscribe(testTopic, func(ev Event) {
		got = append(got, "outer-start")
		c.Publish(inner, nil)
		got = append(got, "outer-end")
	})
	c.Subscribe(inner, func(ev Event) { got = append(got, "inner") })

	c.Publish(testTopic, nil)
	if fmt.Sprint(got) != "[outer-start inner outer-end]" {
		t.Errorf("delivery %v", got)
	}
}

func TestPublishDepthCap(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	n := 0
	c.Subscribe(testTopic, func(ev Event) {
		n++
		c.Publish(testTopic, nil) // recurse until dropped
	})
	c.Publish(testTopic, nil)

	if n != maxPublishDepth {
		t.Errorf("handler ran %d times; cap is %d", n, maxPublishDepth)
	}
}

func TestHandlerPanicContained(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	ran := false
	c.Subscribe(testTopic, func(ev Event) { panic("boom") })
	c.Subscribe(testTopic, func(ev Event) { ran = true })

	c.Publish(testTopic, nil)
	if !ran {
		t.Error("panic in earlier handler blocked delivery")
	}
}

func TestHistoryBound(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	for i := 0; i < eventHistorySize+50; i++ {
		c.Publish(testTopic, i)
	}
	h := c.History()
	if len(h) != eventHistorySize {
		t.Fatalf("history length %d", len(h))
	}
	if h[0].Payload.(int) != 50 {
		t.Errorf("oldest retained payload %v", h[0].Payload)
	}
	if last := h[len(h)-1]; last.Payload.(int) != eventHistorySize+49 {
		t.Errorf("newest retained payload %v", last.Payload)
	}
	if h[0].Seq >= h[1].Seq {
		t.Error("sequence numbers not increasing")
	}
}

func TestUnsubscribeAll(t *testing.T) {
	c := NewEventChannel(log.NewDiscard())

	n := 0
	c.Subscribe(testTopic, func(ev Event) { n++ })
	c.Subscribe(testTopic, func(ev Event) { n++ })
	c.UnsubscribeAll(testTopic)
	c.Publish(testTopic, nil)
	if n != 0 {
		t.Errorf("%d handlers ran after UnsubscribeAll", n)
	}
}
