package main

import (
	"time"

	"touchwheel"
)

// ============================================================================
// Requests - control plane into the poll loop
// ============================================================================
// The poll loop owns the engine. Other goroutines (IPC, websocket) never touch
// it directly; they send a Request and wait on its Reply channel.
// ============================================================================

// Request is a marker interface for messages handled by the poll loop.
type Request interface {
	requestMarker()
}

// RequestStatus asks for a StatusSnapshot. Reply must be buffered.
type RequestStatus struct {
	Reply chan<- StatusSnapshot
}

func (RequestStatus) requestMarker() {}

// RequestReset ends any touch session without emitting events, drops pending
// events and zeroes the dial position. Reply must be buffered.
type RequestReset struct {
	Reply chan<- error
}

func (RequestReset) requestMarker() {}

// StatusSnapshot is a coherent copy of the poll loop state.
type StatusSnapshot struct {
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`

	Session  string `json:"session,omitempty"`
	Touched  bool   `json:"touched"`
	Position int    `json:"position"`

	Polls      uint64 `json:"polls"`
	ReadErrors uint64 `json:"read_errors"`
	Events     uint64 `json:"events"`

	PadMax []float64 `json:"pad_max"`
	PadMin []float64 `json:"pad_min"`

	Wheel touchwheel.Snapshot `json:"wheel"`
}
