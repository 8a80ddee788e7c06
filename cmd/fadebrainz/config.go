package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the fadebrainz daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and
// validation centralized so the rest of the code can assume a well-formed
// config.
//
// Design goals:
// - Make the config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Input device configuration (media keys)
	Input InputConfig `yaml:"input"`

	// Gain server control configuration
	GainServer GainServerConfig `yaml:"gain_server"`

	// Fade engine configuration
	Fade FadeFileConfig `yaml:"fade"`

	// IPC configuration
	IPC IPCConfig `yaml:"ipc"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type InputConfig struct {
	// Devices lists Linux input event devices to monitor for media keys.
	// An empty list disables input handling (IPC-only operation).
	Devices []string `yaml:"devices,omitempty"`
}

type GainServerConfig struct {
	WsURL     string `yaml:"ws_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// FadeFileConfig is the user-facing fade configuration as represented in YAML.
type FadeFileConfig struct {
	// DurationSec is the default fade duration in seconds.
	DurationSec float64 `yaml:"duration_sec"`

	// Velocity controls the curve sharpness; 0 is near-linear.
	Velocity float64 `yaml:"velocity"`

	// UpdateHz is how many gain alterations per second a fade performs.
	UpdateHz float64 `yaml:"update_hz"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Devices: nil,
		},
		GainServer: GainServerConfig{
			WsURL:     "ws://127.0.0.1:1234",
			TimeoutMS: defaultReadTimeoutMS,
		},
		Fade: FadeFileConfig{
			DurationSec: defaultDurationSec,
			Velocity:    defaultVelocity,
			UpdateHz:    defaultUpdateHz,
		},
		IPC: IPCConfig{
			SocketPath: "/tmp/fadebrainz.sock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are
	// allowed after the document). The probe decodes into a yaml.Node, not a
	// struct: with KnownFields on, a struct probe would turn any trailing
	// document into an "unknown field" error and slip past an == nil check.
	var trailing yaml.Node
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags pass pointers; each override is only applied if the pointer is
// non-nil. Keeping the override mechanism separate makes it easy to evolve
// flags without proliferating conditionals all over the code.
type FlagOverrides struct {
	InputDevice *string

	GainWsURL     *string
	GainTimeoutMS *int

	FadeDurationSec *float64
	FadeVelocity    *float64
	FadeUpdateHz    *float64

	IPCSocketPath *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is
// ignored; otherwise the value is applied even if it is a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.InputDevice != nil {
		cfg.Input.Devices = []string{*o.InputDevice}
	}

	if o.GainWsURL != nil {
		cfg.GainServer.WsURL = *o.GainWsURL
	}
	if o.GainTimeoutMS != nil {
		cfg.GainServer.TimeoutMS = *o.GainTimeoutMS
	}

	if o.FadeDurationSec != nil {
		cfg.Fade.DurationSec = *o.FadeDurationSec
	}
	if o.FadeVelocity != nil {
		cfg.Fade.Velocity = *o.FadeVelocity
	}
	if o.FadeUpdateHz != nil {
		cfg.Fade.UpdateHz = *o.FadeUpdateHz
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Input devices are optional (IPC-only operation), but listed paths
	// must not be empty.
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}

	// Gain server
	if c.GainServer.WsURL == "" {
		return errors.New("gain_server.ws_url must not be empty")
	}
	if c.GainServer.TimeoutMS <= 0 {
		return errors.New("gain_server.timeout_ms must be > 0")
	}

	// Fade defaults. The engine itself tolerates degenerate durations and
	// rates (they complete immediately), but defaults must be sane.
	// NaN/Inf slip through plain <= comparisons, so check finiteness first;
	// flag parsing happily produces them from "-fade-duration Inf".
	if !finite(c.Fade.DurationSec) || c.Fade.DurationSec <= 0 {
		return errors.New("fade.duration_sec must be a finite number > 0")
	}
	if !finite(c.Fade.Velocity) || c.Fade.Velocity < 0 {
		return errors.New("fade.velocity must be a finite number >= 0")
	}
	if !finite(c.Fade.UpdateHz) || c.Fade.UpdateHz <= 0 || c.Fade.UpdateHz > 1000 {
		return errors.New("fade.update_hz must be between 1 and 1000")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// finite reports whether f is a usable number (not NaN or ±Inf).
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
