package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Action Types - Command-based Architecture
// ============================================================================
// Actions represent intent from various sources (input devices, IPC, CLI).
// The central daemon loop consumes these actions and drives the Fader.
// ============================================================================

// Action is a marker interface for all daemon commands
type Action interface{}

// FadeIn requests a fade from the sink's current gain up to full gain.
// Zero DurationSec/Velocity mean "use the configured defaults".
type FadeIn struct {
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

// FadeOut requests a fade from the sink's current gain down to silence.
// Zero DurationSec/Velocity mean "use the configured defaults".
type FadeOut struct {
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

// FadeTo requests a fade between two explicit gain levels in [0,1]
// (out-of-range values are clamped by the engine).
type FadeTo struct {
	From        float64 `json:"from"`
	To          float64 `json:"to"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Velocity    float64 `json:"velocity,omitempty"`
}

// FadeToggle alternates between fade-out and fade-in (play/pause style).
// The daemon tracks which direction the last toggle took.
type FadeToggle struct{}

// StopFade halts the current fade's timing without writing a final gain.
type StopFade struct{}

// SetGain requests the sink gain to be set immediately, bypassing the fader.
type SetGain struct {
	Gain   float64 `json:"gain"`
	Origin string  `json:"origin"` // e.g., "input", "ipc", "cli"
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// ActionEnvelope wraps actions for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// ActionEnvelope wraps an action with a type discriminator for JSON marshaling
type ActionEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalAction deserializes a JSON action envelope into a concrete Action
func UnmarshalAction(data []byte) (Action, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "fade_in":
		var a FadeIn
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &a); err != nil {
				return nil, fmt.Errorf("unmarshal FadeIn: %w", err)
			}
		}
		return a, nil

	case "fade_out":
		var a FadeOut
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &a); err != nil {
				return nil, fmt.Errorf("unmarshal FadeOut: %w", err)
			}
		}
		return a, nil

	case "fade_to":
		var a FadeTo
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal FadeTo: %w", err)
		}
		return a, nil

	case "fade_toggle":
		return FadeToggle{}, nil

	case "stop_fade":
		return StopFade{}, nil

	case "set_gain":
		var a SetGain
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SetGain: %w", err)
		}
		return a, nil

	default:
		return nil, fmt.Errorf("unknown action type: %q", env.Type)
	}
}

// MarshalAction serializes an Action into a JSON action envelope
func MarshalAction(action Action) ([]byte, error) {
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
