// sim/state_test.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/airside-sim/airside/log"
)

func newTestStore() *StateStore {
	lg := log.NewDiscard()
	return NewStateStore(NewEventChannel(lg), lg)
}

func TestStateStoreLatest(t *testing.T) {
	st := newTestStore()

	st.Set("AL1", "taxi", "idle", nil)
	st.Set("AL1", "taxi", "independent_taxi", map[string]any{"leg": 1})

	snap, ok := st.Latest("AL1")
	if !ok {
		t.Fatal("no snapshot")
	}
	if snap.Phase != "independent_taxi" || snap.Fields["leg"] != 1 {
		t.Errorf("latest %+v", snap)
	}
	if snap.Version != 2 {
		t.Errorf("version %d", snap.Version)
	}

	if _, ok := st.Latest("nobody"); ok {
		t.Error("snapshot for unknown vehicle")
	}
}

func TestStateStoreVersionsIncrease(t *testing.T) {
	st := newTestStore()

	st.Set("AL1", "taxi", "idle", nil)
	st.Set("BJ1", "taxi", "idle", nil)
	a, _ := st.Latest("AL1")
	b, _ := st.Latest("BJ1")
	if b.Version <= a.Version {
		t.Errorf("versions not global: %d then %d", a.Version, b.Version)
	}
}

// Writing the same state twice is harmless: history grows, latest stays
// deterministic.
func TestStateStoreIdempotentWrites(t *testing.T) {
	st := newTestStore()

	st.Set("AL1", "taxi", "being_pushed", map[string]any{"tug": "tug_a"})
	st.Set("AL1", "taxi", "being_pushed", map[string]any{"tug": "tug_a"})

	snap, _ := st.Latest("AL1")
	if snap.Phase != "being_pushed" || snap.Fields["tug"] != "tug_a" {
		t.Errorf("latest corrupted: %+v", snap)
	}
	if n := len(st.History("AL1")); n != 2 {
		t.Errorf("history length %d", n)
	}
}

func TestStateStoreFieldIsolation(t *testing.T) {
	st := newTestStore()

	fields := map[string]any{"leg": 1}
	st.Set("AL1", "taxi", "independent_taxi", fields)
	fields["leg"] = 99

	snap, _ := st.Latest("AL1")
	if snap.Fields["leg"] != 1 {
		t.Errorf("caller mutation leaked into the store: %v", snap.Fields["leg"])
	}
}

func TestStateStoreHistoryBound(t *testing.T) {
	st := newTestStore()

	for i := 0; i < snapshotHistorySize+25; i++ {
		st.Set("AL1", "taxi", "independent_taxi", map[string]any{"i": i})
	}
	h := st.History("AL1")
	if len(h) != snapshotHistorySize {
		t.Fatalf("history length %d", len(h))
	}
	if h[0].Fields["i"] != 25 {
		t.Errorf("oldest retained %v", h[0].Fields["i"])
	}
}

func TestStateStorePublishesChanges(t *testing.T) {
	lg := log.NewDiscard()
	events := NewEventChannel(lg)
	st := NewStateStore(events, lg)

	var got []VehicleStateChange
	events.Subscribe(TopicVehicleStateChanged, func(ev Event) {
		got = append(got, ev.Payload.(VehicleStateChange))
	})

	st.Set("AL1", "landing", "touchdown", nil)
	if len(got) != 1 || got[0].VehicleID != "AL1" || got[0].Phase != "touchdown" {
		t.Errorf("published %+v", got)
	}
}

func TestStateStoreReset(t *testing.T) {
	st := newTestStore()
	st.Set("AL1", "taxi", "idle", nil)
	st.Reset("AL1")
	if _, ok := st.Latest("AL1"); ok {
		t.Error("latest survived reset")
	}
	if st.History("AL1") != nil {
		t.Error("history survived reset")
	}
}
