package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// IPC types (duplicated from touchwheeld for a standalone binary)

type IPCRequest struct {
	Type string `json:"type"`
}

type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// statusView is the subset of the daemon status the text output shows.
type statusView struct {
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	Session    string    `json:"session"`
	Touched    bool      `json:"touched"`
	Position   int       `json:"position"`
	Polls      uint64    `json:"polls"`
	ReadErrors uint64    `json:"read_errors"`
	Events     uint64    `json:"events"`
	PadMax     []float64 `json:"pad_max"`
	PadMin     []float64 `json:"pad_min"`
	Wheel      struct {
		Threshold float64 `json:"threshold"`
		Locked    bool    `json:"locked"`
	} `json:"wheel"`
}

const ipcTimeout = 5 * time.Second

// sendRequest sends one request line and returns the response data.
func sendRequest(socketPath, typ string) (json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ipcTimeout))

	data, err := json.Marshal(IPCRequest{Type: typ})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if response.Status != "ok" {
		return nil, fmt.Errorf("daemon error: %s", response.Error)
	}
	return response.Data, nil
}

func printStatus(w io.Writer, data json.RawMessage, raw bool) error {
	if raw {
		_, err := fmt.Fprintf(w, "%s\n", data)
		return err
	}

	var st statusView
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	session := st.Session
	if session == "" {
		session = "-"
	}
	fmt.Fprintf(w, "source:      %s (up %s)\n", st.Source, time.Since(st.StartedAt).Truncate(time.Second))
	fmt.Fprintf(w, "touched:     %v (session %s, locked %v)\n", st.Touched, session, st.Wheel.Locked)
	fmt.Fprintf(w, "position:    %d\n", st.Position)
	fmt.Fprintf(w, "threshold:   %.2f\n", st.Wheel.Threshold)
	fmt.Fprintf(w, "polls:       %d (%d read errors, %d events)\n", st.Polls, st.ReadErrors, st.Events)
	fmt.Fprintf(w, "pad_max:     %v\n", st.PadMax)
	fmt.Fprintf(w, "pad_min:     %v\n", st.PadMin)
	return nil
}
