package main

import (
	"math"
	"testing"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-1.5, 0},
		{-0.0001, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.0001, 1},
		{42, 1},
	}

	for _, tc := range tests {
		if got := clamp01(tc.in); got != tc.want {
			t.Errorf("clamp01(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizedTime(t *testing.T) {
	tests := []struct {
		name        string
		step        int
		durationSec float64
		rateHz      float64
		want        float64
	}{
		{"start", 0, 1.0, 30, 0},
		{"midpoint", 15, 1.0, 30, 0.5},
		{"end", 30, 1.0, 30, 1},
		{"past end clamps", 45, 1.0, 30, 1},
		{"zero duration completes immediately", 0, 0, 30, 1},
		{"negative duration completes immediately", 0, -2.0, 30, 1},
		{"zero rate completes immediately", 0, 1.0, 0, 1},
		{"negative rate completes immediately", 5, 1.0, -30, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizedTime(tc.step, tc.durationSec, tc.rateHz)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("normalizedTime(%d, %v, %v) = %v, want %v",
					tc.step, tc.durationSec, tc.rateHz, got, tc.want)
			}
		})
	}
}

func TestFadeMultipliers_Endpoints(t *testing.T) {
	// The endpoints must be exact for any velocity: the exponential term is
	// either multiplied by zero or evaluated at exp(0)=1.
	for _, v := range []float64{0, 0.5, 2, 7.5, 20} {
		if got := fadeInMultiplier(0, v); got != 0 {
			t.Errorf("fadeInMultiplier(0, %v) = %v, want 0", v, got)
		}
		if got := fadeInMultiplier(1, v); got != 1 {
			t.Errorf("fadeInMultiplier(1, %v) = %v, want 1", v, got)
		}
		if got := fadeOutMultiplier(0, v); got != 1 {
			t.Errorf("fadeOutMultiplier(0, %v) = %v, want 1", v, got)
		}
		if got := fadeOutMultiplier(1, v); got != 0 {
			t.Errorf("fadeOutMultiplier(1, %v) = %v, want 0", v, got)
		}
	}
}

func TestFadeMultipliers_BoundedForNonNegativeVelocity(t *testing.T) {
	velocities := []float64{0, 0.1, 1, 2, 5, 20}

	for _, v := range velocities {
		for step := 0; step <= 1000; step++ {
			tt := float64(step) / 1000

			in := fadeInMultiplier(tt, v)
			if in < 0 || in > 1 {
				t.Fatalf("fadeInMultiplier(%v, %v) = %v, outside [0,1]", tt, v, in)
			}

			out := fadeOutMultiplier(tt, v)
			if out < 0 || out > 1 {
				t.Fatalf("fadeOutMultiplier(%v, %v) = %v, outside [0,1]", tt, v, out)
			}
		}
	}
}

func TestFadeMultipliers_Monotonic(t *testing.T) {
	// The fade-in curve rises monotonically and the fade-out curve falls
	// monotonically for non-negative velocities; a fade should never move
	// the gain backwards.
	velocities := []float64{0, 0.5, 2, 10}

	for _, v := range velocities {
		prevIn := fadeInMultiplier(0, v)
		prevOut := fadeOutMultiplier(0, v)
		for step := 1; step <= 1000; step++ {
			tt := float64(step) / 1000

			in := fadeInMultiplier(tt, v)
			if in < prevIn {
				t.Fatalf("fadeInMultiplier not monotonic at t=%v velocity=%v: %v < %v", tt, v, in, prevIn)
			}
			prevIn = in

			out := fadeOutMultiplier(tt, v)
			if out > prevOut {
				t.Fatalf("fadeOutMultiplier not monotonic at t=%v velocity=%v: %v > %v", tt, v, out, prevOut)
			}
			prevOut = out
		}
	}
}

func TestFadeMultipliers_VelocityZeroIsNearLinear(t *testing.T) {
	// With velocity 0 the exponential term is 1 and both curves collapse to
	// plain linear ramps.
	for step := 0; step <= 100; step++ {
		tt := float64(step) / 100

		if got := fadeInMultiplier(tt, 0); math.Abs(got-tt) > 1e-12 {
			t.Fatalf("fadeInMultiplier(%v, 0) = %v, want %v", tt, got, tt)
		}
		if got := fadeOutMultiplier(tt, 0); math.Abs(got-(1-tt)) > 1e-12 {
			t.Fatalf("fadeOutMultiplier(%v, 0) = %v, want %v", tt, got, 1-tt)
		}
	}
}
