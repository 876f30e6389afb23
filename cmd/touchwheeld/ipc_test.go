package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// servePollLoop answers requests the way wheelLoop.handleRequest does.
func servePollLoop(ctx context.Context, requests <-chan Request, status StatusSnapshot, resetErr error) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			switch r := req.(type) {
			case RequestStatus:
				r.Reply <- status
			case RequestReset:
				r.Reply <- resetErr
			}
		}
	}
}

func TestServeIPCRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan Request)
	go servePollLoop(ctx, requests, StatusSnapshot{Source: sourceSerial, Position: -2, Touched: true}, nil)

	resp := serveIPCRequest(ctx, []byte(`{"type":"status"}`), requests)
	if resp.Status != "ok" {
		t.Fatalf("status response = %+v", resp)
	}
	var st StatusSnapshot
	if err := json.Unmarshal(resp.Data, &st); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if st.Source != sourceSerial || st.Position != -2 || !st.Touched {
		t.Fatalf("status = %+v", st)
	}

	if resp := serveIPCRequest(ctx, []byte(`{"type":"reset"}`), requests); resp.Status != "ok" || len(resp.Data) != 0 {
		t.Fatalf("reset response = %+v", resp)
	}

	if resp := serveIPCRequest(ctx, []byte(`{"type":"reboot"}`), requests); resp.Status != "error" || !strings.Contains(resp.Error, "reboot") {
		t.Fatalf("unknown type response = %+v", resp)
	}

	if resp := serveIPCRequest(ctx, []byte(`not json`), requests); resp.Status != "error" {
		t.Fatalf("bad json response = %+v", resp)
	}
}

func TestServeIPCRequest_ResetError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan Request)
	go servePollLoop(ctx, requests, StatusSnapshot{}, errors.New("busy"))

	resp := serveIPCRequest(ctx, []byte(`{"type":"reset"}`), requests)
	if resp.Status != "error" || resp.Error != "busy" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestServeIPCRequest_PollLoopGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nobody reads requests
	resp := serveIPCRequest(ctx, []byte(`{"type":"status"}`), make(chan Request))
	if resp.Status != "error" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestHandleIPCConnection_LineProtocol(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	requests := make(chan Request)
	go servePollLoop(ctx, requests, StatusSnapshot{Source: sourceMock, Events: 7}, nil)

	server, client := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleIPCConnection(ctx, server, requests, discardLogger())
	}()

	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(client)

	for _, line := range []string{`{"type":"status"}`, `{"type":"reset"}`} {
		if _, err := client.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("write %s: %v", line, err)
		}
		raw, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read response to %s: %v", line, err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("unmarshal %q: %v", raw, err)
		}
		if resp.Status != "ok" {
			t.Fatalf("response to %s = %+v", line, resp)
		}
	}

	client.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("connection handler did not exit after client close")
	}
}
