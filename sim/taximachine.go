// sim/taximachine.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"slices"

	"github.com/airside-sim/airside/log"
)

// TaxiState is one state of a taxi operation's finite-state machine.
type TaxiState int

const (
	TaxiIdle TaxiState = iota
	TaxiRequestingVehicle
	TaxiVehicleDispatched
	TaxiBeingPushed
	TaxiIndependent
	TaxiComplete
	TaxiError
)

func (s TaxiState) String() string {
	return []string{"idle", "requesting_vehicle", "vehicle_dispatched", "being_pushed",
		"independent_taxi", "complete", "error"}[s]
}

// Terminal reports whether the state ends the operation; terminal states
// are only re-enterable via idle after a reset.
func (s TaxiState) Terminal() bool {
	return s == TaxiComplete || s == TaxiError
}

// taxiTransitions is the fixed transition table; anything not listed
// here (other than the forced transition to error) is rejected.
var taxiTransitions = map[TaxiState][]TaxiState{
	TaxiIdle:              {TaxiRequestingVehicle, TaxiIndependent},
	TaxiRequestingVehicle: {TaxiVehicleDispatched, TaxiIndependent},
	TaxiVehicleDispatched: {TaxiBeingPushed},
	TaxiBeingPushed:       {TaxiIndependent},
	TaxiIndependent:       {TaxiComplete},
	TaxiComplete:          {TaxiIdle},
	TaxiError:             {TaxiIdle},
}

// TaxiStateMachine governs one vehicle's taxi sequence. Every accepted
// transition writes a snapshot to the state store and publishes
// taxi.state.changed; an out-of-table transition forces the machine into
// error with reason "invalid_transition".
type TaxiStateMachine struct {
	vehicleID string
	state     TaxiState
	store     *StateStore
	events    *EventChannel
	lg        *log.Logger
}

func NewTaxiStateMachine(vehicleID string, store *StateStore, events *EventChannel,
	lg *log.Logger) *TaxiStateMachine {
	return &TaxiStateMachine{
		vehicleID: vehicleID,
		state:     TaxiIdle,
		store:     store,
		events:    events,
		lg:        lg,
	}
}

func (m *TaxiStateMachine) State() TaxiState {
	return m.state
}

// Transition moves the machine to the given state if the transition
// table allows it; otherwise the machine is forced into error and
// ErrInvalidTransition is returned.
func (m *TaxiStateMachine) Transition(to TaxiState) error {
	if !slices.Contains(taxiTransitions[m.state], to) {
		m.lg.Warn("invalid taxi transition",
			slog.String("vehicle", m.vehicleID),
			slog.String("from", m.state.String()),
			slog.String("to", to.String()))
		m.force(TaxiError, "invalid_transition")
		return ErrInvalidTransition
	}
	m.force(to, "")
	return nil
}

// Fail forces the machine into the error state with the given reason;
// unlike an out-of-table Transition this is always permitted.
func (m *TaxiStateMachine) Fail(reason string) {
	if m.state != TaxiError {
		m.force(TaxiError, reason)
	}
}

// Reset returns a terminal machine to idle so it can be reused.
func (m *TaxiStateMachine) Reset() error {
	if !m.state.Terminal() {
		return ErrInvalidTransition
	}
	m.force(TaxiIdle, "reset")
	return nil
}

func (m *TaxiStateMachine) force(to TaxiState, reason string) {
	from := m.state
	m.state = to

	fields := map[string]any{"from": from.String()}
	if reason != "" {
		fields["reason"] = reason
	}
	m.store.Set(m.vehicleID, OpTaxi.String(), to.String(), fields)
	m.events.Publish(TopicTaxiStateChanged, TaxiStateChange{
		VehicleID: m.vehicleID,
		From:      from,
		To:        to,
		Reason:    reason,
	})
}
