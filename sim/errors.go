// sim/errors.go
// Copyright(c) 2024-2026 airside contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "errors"

var (
	ErrDuplicateVehicle   = errors.New("vehicle already registered")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrNoActiveOperation  = errors.New("no active operation for vehicle")
	ErrNoActiveRecall     = errors.New("no active recall for vehicle")
	ErrNotAirborne        = errors.New("vehicle is not airborne")
	ErrOperationActive    = errors.New("vehicle already has an active operation")
	ErrOperationCanceled  = errors.New("operation canceled")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrRunwayOccupied     = errors.New("runway reserved by another landing")
	ErrUnknownTimer       = errors.New("unknown timer id")
	ErrUnknownVehicle     = errors.New("unknown vehicle")
	ErrEmptyFlightPlan    = errors.New("flight plan has no phases")
	ErrRecallNotFinished  = errors.New("recall flight has not finished")
)
