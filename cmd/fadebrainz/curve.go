package main

import "math"

// Fade curve math.
//
// A fade is parameterized by a normalized time t in [0,1] (progress through
// the fade) and a velocity that controls how sharply the curve departs from
// linear. The shaping is an asymmetric exponential:
//
//	fade-out: exp(-velocity*t) * (1-t)
//	fade-in:  exp(velocity*(t-1)) * t
//
// With velocity=0 the exponential term is 1 and both curves degenerate to a
// near-linear ramp. Positive velocities push most of the perceived change
// toward the quiet end of the fade, which sounds smoother than a straight
// linear gain ramp.
//
// All functions here are pure; the Fader owns all state.

// clamp01 clamps x into [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// normalizedTime maps a tick counter onto normalized fade progress.
//
// The step budget is durationSec*rateHz (total ticks for the fade). A
// degenerate budget (zero, negative, or non-finite, e.g. from a zero
// duration or rate) yields t=1 so the fade completes on its first tick
// instead of dividing by zero.
func normalizedTime(step int, durationSec, rateHz float64) float64 {
	budget := durationSec * rateHz
	if !(budget > 0) || math.IsInf(budget, 1) {
		return 1
	}
	return clamp01(float64(step) / budget)
}

// fadeOutMultiplier returns the gain multiplier for a fade-out at progress t.
// t must be pre-clamped to [0,1]. The result starts at 1 (t=0) and reaches
// exactly 0 at t=1 regardless of velocity.
func fadeOutMultiplier(t, velocity float64) float64 {
	return math.Exp(-velocity*t) * (1 - t)
}

// fadeInMultiplier returns the gain multiplier for a fade-in at progress t.
// t must be pre-clamped to [0,1]. The result starts at 0 (t=0) and reaches
// exactly 1 at t=1 regardless of velocity.
func fadeInMultiplier(t, velocity float64) float64 {
	return math.Exp(velocity*(t-1)) * t
}
