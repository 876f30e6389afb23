package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"touchwheel"
)

// envelope mirrors the daemon's outbound message format.
type envelope struct {
	Type    string          `json:"type"`
	Ts      *time.Time      `json:"ts,omitempty"`
	Session string          `json:"session,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type eventData struct {
	Event    touchwheel.Event `json:"event"`
	Position int              `json:"position"`
}

type readingData struct {
	Reading touchwheel.Reading `json:"reading"`
	Locked  bool               `json:"locked"`
}

type statusData struct {
	Source   string `json:"source"`
	Touched  bool   `json:"touched"`
	Position int    `json:"position"`
}

// printer renders daemon messages one per line. Safe for concurrent use.
type printer struct {
	mu       sync.Mutex
	out      io.Writer
	readings bool
}

func (p *printer) handle(msg []byte) {
	line, ok := formatMessage(msg, p.readings)
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

// formatMessage renders one envelope. ok is false for messages that should
// not be printed.
func formatMessage(msg []byte, readings bool) (string, bool) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return fmt.Sprintf("[TEXT] %s", msg), true
	}

	switch env.Type {
	case "event":
		var d eventData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Sprintf("[EVENT] undecodable: %v", err), true
		}
		if d.Event.Kind == touchwheel.EventDial {
			return fmt.Sprintf("[EVENT] %s (position %d)", d.Event, d.Position), true
		}
		return fmt.Sprintf("[EVENT] %s", d.Event), true

	case "status_init":
		var d statusData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Sprintf("[STATUS] undecodable: %v", err), true
		}
		return fmt.Sprintf("[STATUS] source=%s touched=%v position=%d", d.Source, d.Touched, d.Position), true

	case "reading":
		if !readings {
			return "", false
		}
		var d readingData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Sprintf("[READING] undecodable: %v", err), true
		}
		r := d.Reading
		return fmt.Sprintf("[READING] l=%.2f r=%.2f theta=%.0f° phi=%.0f° locked=%v",
			r.L, r.R, r.Theta*180/math.Pi, r.Phi*180/math.Pi, d.Locked), true

	default:
		return fmt.Sprintf("[%s] %s", env.Type, env.Data), true
	}
}

// listenWS prints messages from the daemon websocket until ctx is canceled or
// the connection closes.
func listenWS(ctx context.Context, rawURL string, p *printer) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", u, err)
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					done <- err
					return
				}
				done <- nil
				return
			}
			p.handle(msg)
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return nil
	case err := <-done:
		return err
	}
}

// listenMQTT subscribes to the daemon's event topic until ctx is canceled.
func listenMQTT(ctx context.Context, broker, topic string, p *printer) error {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("wheel-ctl-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	defer client.Disconnect(250)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		p.handle(m.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("mqtt subscribe timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}

	<-ctx.Done()
	return nil
}
