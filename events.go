package touchwheel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEventKind is returned when an Event is built from an unknown kind,
// or from an unknown zone for a zone-bearing kind.
var ErrInvalidEventKind = errors.New("invalid event kind")

// Zone is one of the five touch-sensitive regions. The numeric value is also
// the channel index inside RawSample and Calibration.
type Zone int

const (
	ZoneUp Zone = iota
	ZoneDown
	ZoneLeft
	ZoneRight
	ZoneCenter

	numZones = 5
)

var zoneNames = [numZones]string{"up", "down", "left", "right", "center"}

// Valid reports whether z names one of the five zones.
func (z Zone) Valid() bool { return z >= 0 && z < numZones }

func (z Zone) String() string {
	if !z.Valid() {
		return fmt.Sprintf("Zone(%d)", int(z))
	}
	return zoneNames[z]
}

// ParseZone converts a zone name ("up", "center", ...) into a Zone.
func ParseZone(s string) (Zone, error) {
	for i, name := range zoneNames {
		if name == s {
			return Zone(i), nil
		}
	}
	return 0, fmt.Errorf("unknown zone %q", s)
}

// Zones lists all zones in channel order.
func Zones() []Zone {
	return []Zone{ZoneUp, ZoneDown, ZoneLeft, ZoneRight, ZoneCenter}
}

// EventKind discriminates Event.
type EventKind int

const (
	EventPress EventKind = iota + 1
	EventRelease
	EventDial
	EventLong
)

var eventKindNames = map[EventKind]string{
	EventPress:   "press",
	EventRelease: "release",
	EventDial:    "dial",
	EventLong:    "long",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseEventKind converts a kind name ("press", "dial", ...) into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidEventKind, s)
}

// Event is one discrete navigation event.
//
// Press, Release and Long carry a Zone; Dial carries a signed tick count in
// Delta (negative for counter-clockwise rotation).
type Event struct {
	Kind  EventKind
	Zone  Zone
	Delta int
}

// NewEvent validates and builds an Event. For EventDial the zone is ignored;
// for every other kind delta is ignored.
func NewEvent(kind EventKind, zone Zone, delta int) (Event, error) {
	switch kind {
	case EventPress, EventRelease, EventLong:
		if !zone.Valid() {
			return Event{}, fmt.Errorf("%w: %s with zone %d", ErrInvalidEventKind, kind, int(zone))
		}
		return Event{Kind: kind, Zone: zone}, nil
	case EventDial:
		return Event{Kind: kind, Delta: delta}, nil
	default:
		return Event{}, fmt.Errorf("%w: %d", ErrInvalidEventKind, int(kind))
	}
}

// mustEvent is used by the classifier, where an invalid event can only come
// from a programming error.
func mustEvent(kind EventKind, zone Zone, delta int) Event {
	ev, err := NewEvent(kind, zone, delta)
	if err != nil {
		panic(err)
	}
	return ev
}

// String renders the event as "name: press, val: up" or "name: dial, val: -1".
func (e Event) String() string {
	if e.Kind == EventDial {
		return fmt.Sprintf("name: %s, val: %d", e.Kind, e.Delta)
	}
	return fmt.Sprintf("name: %s, val: %s", e.Kind, e.Zone)
}

// eventJSON is the wire shape of an Event.
type eventJSON struct {
	Type  string `json:"type"`
	Zone  string `json:"zone,omitempty"`
	Delta int    `json:"delta,omitempty"`
}

// MarshalJSON encodes {"type":"press","zone":"up"} or {"type":"dial","delta":-1}.
func (e Event) MarshalJSON() ([]byte, error) {
	if _, err := NewEvent(e.Kind, e.Zone, e.Delta); err != nil {
		return nil, err
	}
	w := eventJSON{Type: e.Kind.String()}
	if e.Kind == EventDial {
		w.Delta = e.Delta
	} else {
		w.Zone = e.Zone.String()
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the format produced by MarshalJSON.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	kind, err := ParseEventKind(w.Type)
	if err != nil {
		return err
	}
	var zone Zone
	if kind != EventDial {
		if zone, err = ParseZone(w.Zone); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEventKind, err)
		}
	}
	ev, err := NewEvent(kind, zone, w.Delta)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}
