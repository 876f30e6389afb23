package touchwheel

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewEvent_InvalidKind(t *testing.T) {
	if _, err := NewEvent(EventKind(99), ZoneUp, 0); !errors.Is(err, ErrInvalidEventKind) {
		t.Errorf("expected ErrInvalidEventKind, got %v", err)
	}
	if _, err := NewEvent(0, ZoneUp, 0); !errors.Is(err, ErrInvalidEventKind) {
		t.Errorf("expected ErrInvalidEventKind for zero kind, got %v", err)
	}
}

func TestNewEvent_InvalidZone(t *testing.T) {
	for _, k := range []EventKind{EventPress, EventRelease, EventLong} {
		if _, err := NewEvent(k, Zone(7), 0); !errors.Is(err, ErrInvalidEventKind) {
			t.Errorf("%s: expected ErrInvalidEventKind, got %v", k, err)
		}
	}
	// dial ignores the zone
	ev, err := NewEvent(EventDial, Zone(7), -2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Delta != -2 || ev.Zone != 0 {
		t.Errorf("unexpected dial event %+v", ev)
	}
}

func TestMustEvent_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	mustEvent(EventKind(42), ZoneUp, 0)
}

func TestEvent_String(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: EventPress, Zone: ZoneCenter}, "name: press, val: center"},
		{Event{Kind: EventRelease, Zone: ZoneLeft}, "name: release, val: left"},
		{Event{Kind: EventLong, Zone: ZoneUp}, "name: long, val: up"},
		{Event{Kind: EventDial, Delta: -1}, "name: dial, val: -1"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestEvent_JSON(t *testing.T) {
	b, err := json.Marshal(Event{Kind: EventPress, Zone: ZoneDown})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"press","zone":"down"}` {
		t.Errorf("unexpected encoding %s", b)
	}

	b, err = json.Marshal(Event{Kind: EventDial, Delta: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"type":"dial","delta":3}` {
		t.Errorf("unexpected encoding %s", b)
	}

	var ev Event
	if err := json.Unmarshal([]byte(`{"type":"long","zone":"right"}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != EventLong || ev.Zone != ZoneRight {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestEvent_UnmarshalRejectsUnknown(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{"type":"swipe","zone":"up"}`), &ev); !errors.Is(err, ErrInvalidEventKind) {
		t.Errorf("expected ErrInvalidEventKind for unknown type, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"type":"press","zone":"middle"}`), &ev); !errors.Is(err, ErrInvalidEventKind) {
		t.Errorf("expected ErrInvalidEventKind for unknown zone, got %v", err)
	}
}

func TestParseZone(t *testing.T) {
	for _, z := range Zones() {
		got, err := ParseZone(z.String())
		if err != nil || got != z {
			t.Errorf("ParseZone(%q) = %v, %v", z.String(), got, err)
		}
	}
	if _, err := ParseZone("north"); err == nil {
		t.Errorf("expected error for unknown zone")
	}
}
