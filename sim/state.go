// sim/state.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"bytes"
	"time"

	"github.com/airside-sim/airside/log"
	"github.com/airside-sim/airside/util"

	"github.com/brunoga/deep"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotHistorySize bounds the per-vehicle snapshot history.
const snapshotHistorySize = 100

// Snapshot is one versioned copy of a vehicle's operational state,
// retained for diagnostics.
type Snapshot struct {
	Version   int64          `msgpack:"version"`
	Time      time.Time      `msgpack:"time"`
	Operation string         `msgpack:"operation"`
	Phase     string         `msgpack:"phase"`
	Fields    map[string]any `msgpack:"fields,omitempty"`
}

// StateStore maps vehicle identifiers to their latest operational state
// plus a bounded append-only history. Every Set publishes
// aircraft.state.changed.
type StateStore struct {
	lg      *log.Logger
	events  *EventChannel
	version int64
	latest  map[string]Snapshot
	history map[string]*util.RingBuffer[Snapshot]
	now     func() time.Time
}

func NewStateStore(events *EventChannel, lg *log.Logger) *StateStore {
	return &StateStore{
		lg:      lg,
		events:  events,
		latest:  make(map[string]Snapshot),
		history: make(map[string]*util.RingBuffer[Snapshot]),
		now:     time.Now,
	}
}

// Set records a new snapshot for the vehicle. The extra fields are
// deep-copied so a caller mutating its map afterward cannot corrupt the
// history. Writing the same state twice is harmless: the history grows
// and the latest snapshot stays deterministic.
func (st *StateStore) Set(vehicleID, operation, phase string, fields map[string]any) {
	st.version++
	snap := Snapshot{
		Version:   st.version,
		Time:      st.now(),
		Operation: operation,
		Phase:     phase,
	}
	if fields != nil {
		snap.Fields = deep.MustCopy(fields)
	}

	st.latest[vehicleID] = snap
	hist, ok := st.history[vehicleID]
	if !ok {
		hist = util.NewRingBuffer[Snapshot](snapshotHistorySize)
		st.history[vehicleID] = hist
	}
	hist.Add(snap)

	st.events.Publish(TopicVehicleStateChanged, VehicleStateChange{
		VehicleID: vehicleID,
		Version:   snap.Version,
		Operation: operation,
		Phase:     phase,
	})
}

// Latest returns the most recent snapshot for the vehicle.
func (st *StateStore) Latest(vehicleID string) (Snapshot, bool) {
	snap, ok := st.latest[vehicleID]
	return snap, ok
}

// History returns the vehicle's retained snapshots, oldest first.
func (st *StateStore) History(vehicleID string) []Snapshot {
	hist, ok := st.history[vehicleID]
	if !ok {
		return nil
	}
	snaps := make([]Snapshot, hist.Size())
	for i := range snaps {
		snaps[i] = hist.Get(i)
	}
	return snaps
}

// Reset discards all state for the vehicle.
func (st *StateStore) Reset(vehicleID string) {
	delete(st.latest, vehicleID)
	delete(st.history, vehicleID)
}

// stateDump is the serialized form of a diagnostics dump.
type stateDump struct {
	Version int64                 `msgpack:"version"`
	Latest  map[string]Snapshot   `msgpack:"latest"`
	History map[string][]Snapshot `msgpack:"history"`
}

// Dump serializes the entire store (msgpack, zstd-compressed) for
// offline inspection. This is diagnostics only; operation history does
// not survive process restarts.
func (st *StateStore) Dump() ([]byte, error) {
	d := stateDump{
		Version: st.version,
		Latest:  st.latest,
		History: make(map[string][]Snapshot),
	}
	for id := range st.history {
		d.History[id] = st.History(id)
	}

	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return util.CompressZstd(buf.Bytes())
}

// ReadDump decodes a diagnostics dump produced by Dump.
func ReadDump(b []byte) (map[string]Snapshot, map[string][]Snapshot, error) {
	raw, err := util.DecompressZstd(b)
	if err != nil {
		return nil, nil, err
	}
	var d stateDump
	if err := msgpack.NewDecoder(bytes.NewReader(raw)).Decode(&d); err != nil {
		return nil, nil, err
	}
	return d.Latest, d.History, nil
}
