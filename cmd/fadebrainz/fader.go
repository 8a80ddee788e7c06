package main

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// ============================================================================
// Fader - curve-based gain interpolation engine
// ============================================================================
// The Fader owns at most one fade session at a time. A session transitions
// the sink's gain from one level to another over a fixed duration, sampled
// at a fixed update rate. Each tick derives the instantaneous gain from the
// curve math in curve.go and writes it to the sink.
//
// Concurrency model: ticks arrive on the sampler goroutine while Fade/Stop/
// Close may be called from the daemon goroutine, so all session state is
// guarded by one mutex. A session generation counter makes a tick that was
// already in flight when its session was superseded or stopped a no-op, so
// a dead session can never write a stale gain.
//
// Completion is reported through a buffered result channel instead of a
// callback: exactly one value per session (true for normal completion,
// false for supersession or teardown), or never for Stop, which halts the
// timing mechanism without deciding the fade's outcome.
// ============================================================================

// Fader drives smooth gain transitions on a GainSink.
type Fader struct {
	mu      sync.Mutex
	sink    GainSink
	sampler Sampler
	logger  *slog.Logger

	rateHz float64 // gain alterations per second, applied to new sessions

	lastGain  float64 // last gain written to the sink
	gainKnown bool

	gen     uint64
	session *fadeSession
	closed  bool
}

// fadeSession is the state of one in-progress fade. At most one exists per
// Fader; it is created by Fade and destroyed on completion, supersession,
// Stop, or Close.
type fadeSession struct {
	from        float64
	to          float64
	durationSec float64
	velocity    float64
	rateHz      float64
	fadeIn      bool // derived: from < to

	step   int
	gen    uint64
	handle SamplerHandle
	result chan bool
}

// NewFader creates a Fader writing to sink, ticking via sampler, at the
// default update rate.
func NewFader(sink GainSink, sampler Sampler, logger *slog.Logger) *Fader {
	return &Fader{
		sink:    sink,
		sampler: sampler,
		logger:  logger,
		rateHz:  defaultUpdateHz,
	}
}

// SetUpdateRate changes the update rate (ticks per second) used by
// subsequent fades. An in-flight session keeps the rate it started with.
func (f *Fader) SetUpdateRate(hz float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hz > 0 {
		f.rateHz = hz
	}
}

// Active reports whether a fade session is currently running.
func (f *Fader) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session != nil
}

// Fade transitions the sink gain from `from` to `to` over durationSec
// seconds. Both gains are clamped into [0,1] before anything else. Any
// in-flight session is superseded first: its result channel receives false
// and its sampler is cancelled, then the new session's parameters apply.
//
// The returned channel (capacity 1) receives exactly one value: true when
// the fade ran to completion and the sink holds the exact target gain,
// false when the session was superseded or the Fader closed. Stop leaves
// the channel silent.
//
// Equal gains after clamping are an immediate successful no-op: `from` is
// still written once, true is delivered, and no sampler is started.
func (f *Fader) Fade(from, to, durationSec, velocity float64) <-chan bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(chan bool, 1)
	if f.closed {
		result <- false
		return result
	}

	// Supersede any in-flight fade. The old session's outcome is decided
	// (false) before the new parameters take effect.
	f.finishSessionLocked(false)

	from = clamp01(from)
	to = clamp01(to)

	f.writeGainLocked(from)

	if from == to {
		result <- true
		return result
	}

	// A degenerate step budget (non-positive or non-finite duration/rate)
	// collapses to an immediate transition: the first tick writes the
	// target and the next one finalizes. Without this an infinite or NaN
	// budget would never pass the completion check in tick.
	if budget := durationSec * f.rateHz; !(budget > 0) || math.IsInf(budget, 1) {
		durationSec = 0
	}

	f.gen++
	s := &fadeSession{
		from:        from,
		to:          to,
		durationSec: durationSec,
		velocity:    velocity,
		rateHz:      f.rateHz,
		fadeIn:      from < to,
		gen:         f.gen,
		result:      result,
	}
	f.session = s

	gen := s.gen
	s.handle = f.sampler.Start(tickInterval(s.rateHz), func() { f.tick(gen) })

	f.logger.Debug("fade started",
		"from", from, "to", to,
		"duration_sec", durationSec, "velocity", velocity,
		"rate_hz", s.rateHz)

	return result
}

// FadeIn fades from the sink's current gain up to full gain (1.0).
func (f *Fader) FadeIn(durationSec, velocity float64) <-chan bool {
	return f.Fade(f.currentGain(), 1.0, durationSec, velocity)
}

// FadeOut fades from the sink's current gain down to silence (0.0).
func (f *Fader) FadeOut(durationSec, velocity float64) <-chan bool {
	return f.Fade(f.currentGain(), 0.0, durationSec, velocity)
}

// Stop halts the sampler of the current session without writing a final
// gain and without deciding the fade's outcome: the pending result is
// abandoned, never delivered. The sink keeps whatever gain the last tick
// wrote.
func (f *Fader) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.session == nil {
		return
	}
	f.session.handle.Cancel()
	f.session = nil
	f.logger.Debug("fade stopped")
}

// Close tears the Fader down. A pending session receives false exactly once
// and its sampler is cancelled; no sink writes happen afterwards. Further
// Fade calls fail immediately with false.
func (f *Fader) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.finishSessionLocked(false)
}

// tick is the sampler callback for the session with generation gen.
//
// The completion check uses a strictly-greater boundary: the completing
// tick is one past the last scheduled step, so a fade of duration D at rate
// R writes D*R+1 curve samples and finalizes on the tick after that. The
// final write is the exact target gain, not a curve sample.
func (f *Fader) tick(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.session
	if s == nil || s.gen != gen {
		// Stale tick from a superseded/stopped session.
		return
	}

	totalSteps := s.durationSec * s.rateHz
	if float64(s.step) > totalSteps {
		f.writeGainLocked(s.to)
		f.finishSessionLocked(true)
		return
	}

	t := normalizedTime(s.step, s.durationSec, s.rateHz)

	var gain float64
	if s.fadeIn {
		gain = s.from + (s.to-s.from)*fadeInMultiplier(t, s.velocity)
	} else {
		gain = s.to - (s.to-s.from)*fadeOutMultiplier(t, s.velocity)
	}

	f.writeGainLocked(gain)
	s.step++
}

// finishSessionLocked delivers the session outcome exactly once, cancels
// its sampler, and clears it. No-op when idle. Caller must hold f.mu.
func (f *Fader) finishSessionLocked(success bool) {
	s := f.session
	if s == nil {
		return
	}
	if s.handle != nil {
		s.handle.Cancel()
	}
	s.result <- success
	f.session = nil

	if success {
		f.logger.Debug("fade completed", "gain", s.to)
	} else {
		f.logger.Debug("fade cancelled", "from", s.from, "to", s.to)
	}
}

// writeGainLocked writes a gain to the sink and remembers it. Sink errors
// are logged and otherwise ignored: a fade's outcome is a timing outcome,
// not a transport outcome, and the next tick retries naturally. Caller must
// hold f.mu.
func (f *Fader) writeGainLocked(gain float64) {
	f.lastGain = gain
	f.gainKnown = true
	if _, err := f.sink.SetGain(gain); err != nil {
		f.logger.Warn("sink gain write failed", "gain", gain, "error", err)
	}
}

// currentGain queries the sink for its gain, falling back to the last gain
// this Fader wrote (or a safe default) when the sink cannot answer.
func (f *Fader) currentGain() float64 {
	g, err := f.sink.GetGain()
	if err == nil {
		return clamp01(g)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger.Warn("could not query sink gain", "error", err)
	if f.gainKnown {
		return f.lastGain
	}
	return safeDefaultGain
}

// tickInterval converts an update rate in Hz to a sampler interval.
func tickInterval(rateHz float64) time.Duration {
	if rateHz <= 0 {
		return 0 // sampler guards against non-positive intervals
	}
	return time.Duration(float64(time.Second) / rateHz)
}
