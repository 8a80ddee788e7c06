package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// fadectl - Command-line IPC Client
// ============================================================================
// This tool sends fade requests to the fadebrainz daemon via IPC.
//
// Usage:
//   fadectl fade-in
//   fadectl fade-out -duration 2 -velocity 4
//   fadectl fade-to -from 1 -to 0.2
//   fadectl stop
//   fadectl set-gain 0.5
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/fadebrainz.sock)
// ============================================================================

// Action types (duplicated from the daemon package for a standalone binary)
type Action interface{}

type FadeIn struct {
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

type FadeOut struct {
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

type FadeTo struct {
	From        float64 `json:"from"`
	To          float64 `json:"to"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

type FadeToggle struct{}

type StopFade struct{}

type SetGain struct {
	Gain   float64 `json:"gain"`
	Origin string  `json:"origin"`
}

// ActionEnvelope wraps actions for JSON
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/fadebrainz.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag before the command
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Per-command fade parameter flags
	fadeFlags := flag.NewFlagSet(args[0], flag.ExitOnError)
	duration := fadeFlags.Float64("duration", 0, "Fade duration in seconds (0 = daemon default)")
	velocity := fadeFlags.Float64("velocity", 0, "Curve velocity (0 = daemon default)")
	from := fadeFlags.Float64("from", 0, "Start gain in [0,1] (fade-to only)")
	to := fadeFlags.Float64("to", 0, "Target gain in [0,1] (fade-to only)")

	var action Action

	switch args[0] {
	case "fade-in", "in":
		fadeFlags.Parse(args[1:])
		action = FadeIn{DurationSec: *duration, Velocity: *velocity}

	case "fade-out", "out":
		fadeFlags.Parse(args[1:])
		action = FadeOut{DurationSec: *duration, Velocity: *velocity}

	case "fade-to":
		fadeFlags.Parse(args[1:])
		action = FadeTo{From: *from, To: *to, DurationSec: *duration, Velocity: *velocity}

	case "toggle":
		action = FadeToggle{}

	case "stop":
		action = StopFade{}

	case "set-gain", "set":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: set-gain requires a gain value\n")
			os.Exit(1)
		}
		var gain float64
		if _, err := fmt.Sscanf(args[1], "%f", &gain); err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid gain value: %v\n", err)
			os.Exit(1)
		}
		action = SetGain{Gain: gain, Origin: "fadectl"}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err := sendAction(socketPath, action); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func sendAction(socketPath string, action Action) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := marshalAction(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	// Send action (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send action: %w", err)
	}

	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalAction(action Action) ([]byte, error) {
	var env ActionEnvelope

	switch a := action.(type) {
	case FadeIn:
		env.Type = "fade_in"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal FadeIn: %w", err)
		}
		env.Data = data

	case FadeOut:
		env.Type = "fade_out"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal FadeOut: %w", err)
		}
		env.Data = data

	case FadeTo:
		env.Type = "fade_to"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal FadeTo: %w", err)
		}
		env.Data = data

	case FadeToggle:
		env.Type = "fade_toggle"

	case StopFade:
		env.Type = "stop_fade"

	case SetGain:
		env.Type = "set_gain"
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal SetGain: %w", err)
		}
		env.Data = data

	default:
		return nil, fmt.Errorf("unknown action type: %T", action)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `fadectl - Control the fadebrainz daemon via IPC

Usage:
  fadectl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/fadebrainz.sock)

Commands:
  fade-in, in     Fade from the current gain up to full gain
  fade-out, out   Fade from the current gain down to silence
  fade-to         Fade between explicit gains (-from, -to)
  toggle          Alternate between fade-out and fade-in
  stop            Halt the current fade without a final gain write
  set-gain <g>    Set the gain immediately, bypassing the fader
  help            Show this help message

Fade commands accept -duration SECONDS and -velocity V; zero means
"use the daemon's configured default".

Examples:
  fadectl fade-out
  fadectl fade-in -duration 5 -velocity 1
  fadectl fade-to -from 1 -to 0.3 -duration 2
  fadectl -socket /var/run/fadebrainz.sock stop
`)
}
