package main

import (
	"context"
	"log/slog"
)

// ============================================================================
// Central Daemon Loop - The "Daemon Brain"
// ============================================================================
// runDaemon is the central orchestrator that:
//   - Consumes Actions from multiple sources (IPC, input devices, CLI)
//   - Drives the Fader (the only goroutine allowed to)
//   - Watches the active fade's result channel and logs outcomes
//
// Only this goroutine calls into the Fader and performs direct sink writes.
// This keeps fade policy in one place as more input sources are added.
// ============================================================================

// FadeDefaults are the fade parameters applied when an action leaves them
// unset (zero).
type FadeDefaults struct {
	DurationSec float64
	Velocity    float64
}

// runDaemon processes actions and fade outcomes until ctx is cancelled or
// the actions channel is closed. On exit the Fader is torn down, which
// forces a pending fade's result to false.
func runDaemon(
	ctx context.Context,
	actions <-chan Action,
	fader *Fader,
	sink GainSink,
	defaults FadeDefaults,
	logger *slog.Logger,
) {
	// Result channel of the fade most recently started by this loop.
	// nil while idle; a nil channel never fires in select.
	var pending <-chan bool
	var pendingKind string

	// Which direction the next FadeToggle takes. Starts with fade-out,
	// matching a "playing" source.
	toggleOut := true

	startFade := func(kind string, ch <-chan bool) {
		// A superseded session resolves (false) before the new Fade call
		// returns, so its result is already buffered on the old channel.
		if pending != nil {
			select {
			case <-pending:
				logger.Info("fade superseded", "kind", pendingKind)
			default:
			}
		}
		pending = ch
		pendingKind = kind
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			fader.Close()
			return

		case act, ok := <-actions:
			if !ok {
				logger.Info("daemon stopping (actions channel closed)")
				fader.Close()
				return
			}

			switch a := act.(type) {
			case FadeIn:
				d, v := defaults.apply(a.DurationSec, a.Velocity)
				startFade("fade_in", fader.FadeIn(d, v))
				toggleOut = true

			case FadeOut:
				d, v := defaults.apply(a.DurationSec, a.Velocity)
				startFade("fade_out", fader.FadeOut(d, v))
				toggleOut = false

			case FadeTo:
				d, v := defaults.apply(a.DurationSec, a.Velocity)
				startFade("fade_to", fader.Fade(a.From, a.To, d, v))

			case FadeToggle:
				d, v := defaults.apply(0, 0)
				if toggleOut {
					startFade("fade_out", fader.FadeOut(d, v))
				} else {
					startFade("fade_in", fader.FadeIn(d, v))
				}
				toggleOut = !toggleOut

			case StopFade:
				fader.Stop()
				// The abandoned session never delivers a result.
				pending = nil
				pendingKind = ""

			case SetGain:
				fader.Stop()
				pending = nil
				pendingKind = ""
				gain := clamp01(a.Gain)
				if _, err := sink.SetGain(gain); err != nil {
					logger.Error("set gain failed", "gain", gain, "origin", a.Origin, "error", err)
				} else {
					logger.Info("gain set", "gain", gain, "origin", a.Origin)
				}

			default:
				logger.Warn("unknown action type", "action", act)
			}

		case completed := <-pending:
			if completed {
				logger.Info("fade finished", "kind", pendingKind)
			} else {
				logger.Info("fade cancelled", "kind", pendingKind)
			}
			pending = nil
			pendingKind = ""
		}
	}
}

// apply fills zero duration/velocity with the configured defaults.
func (d FadeDefaults) apply(durationSec, velocity float64) (float64, float64) {
	if durationSec == 0 {
		durationSec = d.DurationSec
	}
	if velocity == 0 {
		velocity = d.Velocity
	}
	return durationSec, velocity
}
