package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"touchwheel"
)

// WheelBroadcast is a marker interface for outbound notifications produced by
// the poll loop.
type WheelBroadcast interface {
	broadcastMarker()
}

// BroadcastEvent carries one classified event.
type BroadcastEvent struct {
	Event    touchwheel.Event
	Session  string
	Position int // running dial position after this event
	At       time.Time
}

func (BroadcastEvent) broadcastMarker() {}

// BroadcastReading carries the engine state after a poll.
type BroadcastReading struct {
	Snapshot touchwheel.Snapshot
	Session  string
	At       time.Time
}

func (BroadcastReading) broadcastMarker() {}

// Publisher receives broadcasts from the poll loop. Publish must not block.
type Publisher interface {
	Publish(b WheelBroadcast)
}

// envelope is the wire format of every outbound message (websocket and MQTT).
type envelope struct {
	Type    string     `json:"type"`
	Ts      *time.Time `json:"ts,omitempty"`
	Session string     `json:"session,omitempty"`
	Data    any        `json:"data,omitempty"`
}

// eventData is the `data` payload of an "event" message.
type eventData struct {
	Event    touchwheel.Event `json:"event"`
	Position int              `json:"position"`
}

const (
	msgTypeEvent      = "event"
	msgTypeReading    = "reading"
	msgTypeStatusInit = "status_init"
)

// encodeBroadcast renders a broadcast as an envelope.
func encodeBroadcast(b WheelBroadcast) (string, []byte, error) {
	var env envelope
	switch v := b.(type) {
	case BroadcastEvent:
		ts := v.At.UTC()
		env = envelope{
			Type:    msgTypeEvent,
			Ts:      &ts,
			Session: v.Session,
			Data:    eventData{Event: v.Event, Position: v.Position},
		}
	case BroadcastReading:
		ts := v.At.UTC()
		env = envelope{
			Type:    msgTypeReading,
			Ts:      &ts,
			Session: v.Session,
			Data:    v.Snapshot,
		}
	default:
		return "", nil, fmt.Errorf("unknown broadcast %T", b)
	}

	msg, err := json.Marshal(env)
	if err != nil {
		return env.Type, nil, err
	}
	return env.Type, msg, nil
}

// logPublisher logs every event.
type logPublisher struct {
	logger *slog.Logger
}

func (p logPublisher) Publish(b WheelBroadcast) {
	ev, ok := b.(BroadcastEvent)
	if !ok {
		return
	}
	attrs := []any{"event", ev.Event.String(), "session", ev.Session}
	if ev.Event.Kind == touchwheel.EventDial {
		attrs = append(attrs, "position", ev.Position)
	}
	p.logger.Info("wheel event", attrs...)
}

// chanPublisher feeds a broadcaster goroutine; full channels drop.
type chanPublisher struct {
	ch     chan<- WheelBroadcast
	logger *slog.Logger
}

func (p chanPublisher) Publish(b WheelBroadcast) {
	select {
	case p.ch <- b:
	default:
		if _, ok := b.(BroadcastEvent); ok {
			p.logger.Warn("broadcast queue full, dropping event")
		}
	}
}
