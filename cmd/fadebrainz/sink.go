package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GainSink is anything exposing a settable scalar gain in [0,1].
// The Fader only ever writes and reads the gain; it never inspects any
// other sink state.
type GainSink interface {
	SetGain(gain float64) (float64, error)
	GetGain() (float64, error)
	Close() error
}

// GainServerClient manages WebSocket communication with a gain server.
//
// The wire protocol is JSON commands over a text WebSocket: value-carrying
// commands are a one-key object ({"SetGain": 0.5}), parameterless commands
// are a bare string ("GetGain"), and every command gets a one-key response
// object with result and optional value.
type GainServerClient struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	url         string
	logger      *slog.Logger
	readTimeout time.Duration
}

// NewGainServerClient creates a gain server client and establishes the
// initial connection.
func NewGainServerClient(wsURL string, logger *slog.Logger, readTimeoutMS int) (*GainServerClient, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}

	client := &GainServerClient{
		url:         wsURL,
		logger:      logger,
		readTimeout: time.Duration(readTimeoutMS) * time.Millisecond,
	}

	if err := client.connectWithRetry(); err != nil {
		return nil, err
	}

	return client, nil
}

// connect establishes a WebSocket connection to the gain server
func (c *GainServerClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid ws url: %w", err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}

	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

// connectWithRetry attempts to connect, retrying a bounded number of times
func (c *GainServerClient) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to gain server", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after 10 attempts: %w", lastErr)
}

// ensureConnected checks connection and reconnects if necessary
func (c *GainServerClient) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("connection lost; reconnecting...")
	return c.connectWithRetry()
}

// sendAndRead sends a command and waits for its response
func (c *GainServerClient) sendAndRead(v any, timeout time.Duration) ([]byte, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("no websocket connection")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	c.conn.SetReadDeadline(time.Now().Add(timeout))
	defer c.conn.SetReadDeadline(time.Time{})

	_, message, err := c.conn.ReadMessage()
	if err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	return message, nil
}

// Close closes the WebSocket connection
func (c *GainServerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// SetGain sends a SetGain command and returns the gain that was applied
func (c *GainServerClient) SetGain(gain float64) (float64, error) {
	cmd := map[string]any{"SetGain": gain}

	response, err := c.sendAndRead(cmd, c.readTimeout)
	if err != nil {
		return 0, fmt.Errorf("set gain: %w", err)
	}

	var setResp struct {
		SetGain struct {
			Result string `json:"result"`
		} `json:"SetGain"`
	}

	if err := json.Unmarshal(response, &setResp); err != nil {
		c.logger.Warn("failed to parse SetGain response", "error", err)
		return gain, nil // Assume success
	}

	c.logger.Debug("SetGain", "gain", gain, "result", setResp.SetGain.Result)

	return gain, nil
}

// GetGain queries the server for the current gain
func (c *GainServerClient) GetGain() (float64, error) {
	cmd := "GetGain"

	response, err := c.sendAndRead(cmd, c.readTimeout)
	if err != nil {
		return 0, fmt.Errorf("get gain: %w", err)
	}

	var gainResp struct {
		GetGain struct {
			Result string  `json:"result"`
			Value  float64 `json:"value"`
		} `json:"GetGain"`
	}

	if err := json.Unmarshal(response, &gainResp); err != nil {
		c.logger.Warn("failed to parse GetGain response", "error", err)
		return 0, err
	}

	c.logger.Debug("GetGain", "gain", gainResp.GetGain.Value)

	return gainResp.GetGain.Value, nil
}
