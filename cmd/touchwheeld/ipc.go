package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Protocol: line-delimited JSON
//   - Client sends: {"type": "status"} or {"type": "reset"}
//   - Server responds: {"status": "ok", "data": {...}} or
//     {"status": "error", "error": "msg"}
// ============================================================================

// ipcRequestTimeout bounds the round trip through the poll loop.
const ipcRequestTimeout = 2 * time.Second

// IPCRequest is one line sent by a client.
type IPCRequest struct {
	Type string `json:"type"`
}

// IPCResponse is sent back for every request line.
type IPCResponse struct {
	Status string          `json:"status"`          // "ok" or "error"
	Error  string          `json:"error,omitempty"` // set when status == "error"
	Data   json.RawMessage `json:"data,omitempty"`
}

// runIPCServer serves the unix socket until ctx is canceled.
func runIPCServer(ctx context.Context, socketPath string, requests chan<- Request, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Closing the listener unblocks Accept.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, requests, logger)
	}
}

// handleIPCConnection serves request lines until the client disconnects.
func handleIPCConnection(ctx context.Context, conn net.Conn, requests chan<- Request, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		logger.Debug("IPC received", "line", string(line))

		resp := serveIPCRequest(ctx, line, requests)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

func serveIPCRequest(ctx context.Context, line []byte, requests chan<- Request) IPCResponse {
	var req IPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return ipcError(fmt.Errorf("parse request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, ipcRequestTimeout)
	defer cancel()

	switch req.Type {
	case "status":
		reply := make(chan StatusSnapshot, 1)
		if err := submitRequest(ctx, requests, RequestStatus{Reply: reply}); err != nil {
			return ipcError(err)
		}
		select {
		case <-ctx.Done():
			return ipcError(fmt.Errorf("status: %w", ctx.Err()))
		case snap := <-reply:
			data, err := json.Marshal(snap)
			if err != nil {
				return ipcError(fmt.Errorf("marshal status: %w", err))
			}
			return IPCResponse{Status: "ok", Data: data}
		}

	case "reset":
		reply := make(chan error, 1)
		if err := submitRequest(ctx, requests, RequestReset{Reply: reply}); err != nil {
			return ipcError(err)
		}
		select {
		case <-ctx.Done():
			return ipcError(fmt.Errorf("reset: %w", ctx.Err()))
		case err := <-reply:
			if err != nil {
				return ipcError(err)
			}
			return IPCResponse{Status: "ok"}
		}

	default:
		return ipcError(fmt.Errorf("unknown request type %q", req.Type))
	}
}

func submitRequest(ctx context.Context, requests chan<- Request, req Request) error {
	select {
	case requests <- req:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("request queue: %w", ctx.Err())
	}
}

func ipcError(err error) IPCResponse {
	return IPCResponse{Status: "error", Error: err.Error()}
}
