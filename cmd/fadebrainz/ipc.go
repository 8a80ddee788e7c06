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
	"strings"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// A line-delimited JSON protocol over a Unix socket, carrying the same
// action envelopes the rest of the daemon speaks. fadectl and scripts use
// it to trigger fades (e.g. fade out before an announcement, fade back in
// after). One request line gets one response line:
//
//   -> {"type": "fade_out", "data": {"duration_sec": 1.5}}
//   <- {"status": "ok"}                          on success
//   <- {"status": "error", "error": "..."}       otherwise
// ============================================================================

// IPCResponse is the per-line reply sent back to IPC clients.
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// runIPCServer owns the Unix socket listener until ctx is cancelled. Each
// accepted connection is served by its own goroutine feeding the shared
// actions channel.
func runIPCServer(ctx context.Context, socketPath string, actions chan<- Action, logger *slog.Logger) error {
	// A stale socket file from a previous run blocks Listen.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	// World-writable so control clients need not share the daemon's user.
	// Anyone local can drive fades; acceptable for a single-user player box.
	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("ipc server listening", "socket", socketPath)

	// Closing the listener is the only way to unblock Accept.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("ipc server stopped")
				return nil
			}
			logger.Error("ipc accept failed", "error", err)
			continue
		}

		go serveIPCConn(conn, actions, logger)
	}
}

// serveIPCConn reads action lines from one client until it disconnects.
func serveIPCConn(conn net.Conn, actions chan<- Action, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	reply := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("ipc reply failed", "error", err)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("ipc request", "line", line)

		act, err := UnmarshalAction([]byte(line))
		if err != nil {
			reply(IPCResponse{Status: "error", Error: fmt.Sprintf("parse action: %v", err)})
			continue
		}

		// Never block the connection on a saturated daemon; tell the
		// client instead so it can retry.
		select {
		case actions <- act:
			reply(IPCResponse{Status: "ok"})
		default:
			reply(IPCResponse{Status: "error", Error: "action queue full"})
		}
	}
}

// SendIPCAction delivers one action to a running daemon over its socket and
// reports the daemon's verdict. fadectl carries its own copy of this so it
// can stay a standalone build; keep the two in sync.
func SendIPCAction(socketPath string, act Action) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalAction(act)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return fmt.Errorf("send action: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
