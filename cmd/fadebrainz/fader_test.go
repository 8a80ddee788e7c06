package main

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"
	"time"
)

// testLogger returns a quiet logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockGainSink is a test double for GainSink.
type mockGainSink struct {
	mu     sync.Mutex
	gain   float64
	writes []float64
	getErr error
}

func newMockGainSink(initialGain float64) *mockGainSink {
	return &mockGainSink{gain: initialGain}
}

func (m *mockGainSink) SetGain(gain float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = gain
	m.writes = append(m.writes, gain)
	return gain, nil
}

func (m *mockGainSink) GetGain() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.gain, nil
}

func (m *mockGainSink) Close() error { return nil }

func (m *mockGainSink) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

func (m *mockGainSink) writeAt(i int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[i]
}

func (m *mockGainSink) lastWrite() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[len(m.writes)-1]
}

// manualSampler delivers ticks synchronously on demand, so tests control
// time exactly.
type manualSampler struct {
	mu   sync.Mutex
	runs []*manualRun
}

type manualRun struct {
	mu        sync.Mutex
	interval  time.Duration
	tick      func()
	cancelled bool
	cancels   int
}

func (m *manualSampler) Start(interval time.Duration, tick func()) SamplerHandle {
	r := &manualRun{interval: interval, tick: tick}
	m.mu.Lock()
	m.runs = append(m.runs, r)
	m.mu.Unlock()
	return r
}

func (m *manualSampler) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func (m *manualSampler) run(i int) *manualRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[i]
}

func (m *manualSampler) lastRun() *manualRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil
	}
	return m.runs[len(m.runs)-1]
}

func (r *manualRun) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
	r.cancels++
}

func (r *manualRun) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// fire delivers up to n ticks, stopping early once the run is cancelled
// (as the real sampler would).
func (r *manualRun) fire(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if r.isCancelled() {
			break
		}
		r.tick()
		delivered++
	}
	return delivered
}

// tryRecv does a non-blocking receive on a fade result channel.
func tryRecv(ch <-chan bool) (val, ok bool) {
	select {
	case v := <-ch:
		return v, true
	default:
		return false, false
	}
}

func TestFade_NoOpEqualGains(t *testing.T) {
	sink := newMockGainSink(0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	result := f.Fade(0.5, 0.5, 3.0, 2.0)

	v, ok := tryRecv(result)
	if !ok || !v {
		t.Fatalf("expected immediate true result for no-op fade, got (%v, %v)", v, ok)
	}
	if sampler.runCount() != 0 {
		t.Errorf("expected no sampler start for no-op fade, got %d", sampler.runCount())
	}
	if sink.writeCount() != 1 || sink.writeAt(0) != 0.5 {
		t.Errorf("expected exactly one write of 0.5, got %v", sink.writes)
	}
	if f.Active() {
		t.Error("fader should be idle after a no-op fade")
	}
}

func TestFade_ClampsOutOfRangeGains(t *testing.T) {
	// fade(-0.5, 1.5) must behave identically to fade(0, 1).
	runFade := func(from, to float64) []float64 {
		sink := newMockGainSink(0)
		sampler := &manualSampler{}
		f := NewFader(sink, sampler, testLogger())
		f.SetUpdateRate(10)

		result := f.Fade(from, to, 0.5, 2.0)
		sampler.lastRun().fire(1000)

		if v, ok := tryRecv(result); !ok || !v {
			t.Fatalf("fade(%v, %v) did not complete: (%v, %v)", from, to, v, ok)
		}
		return sink.writes
	}

	clamped := runFade(-0.5, 1.5)
	reference := runFade(0, 1)

	if len(clamped) != len(reference) {
		t.Fatalf("write counts differ: %d vs %d", len(clamped), len(reference))
	}
	for i := range clamped {
		if clamped[i] != reference[i] {
			t.Errorf("write %d differs: %v vs %v", i, clamped[i], reference[i])
		}
	}
}

func TestFade_SupersessionCancelsPrevious(t *testing.T) {
	sink := newMockGainSink(0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	first := f.Fade(0, 1, 3.0, 2.0)
	firstRun := sampler.lastRun()

	second := f.Fade(1, 0, 3.0, 2.0)

	// The first session resolves false exactly once, before the second
	// session does anything.
	v, ok := tryRecv(first)
	if !ok || v {
		t.Fatalf("expected first fade to resolve false on supersession, got (%v, %v)", v, ok)
	}
	if _, again := tryRecv(first); again {
		t.Error("first fade delivered a second result")
	}
	if !firstRun.isCancelled() {
		t.Error("first session's sampler was not cancelled")
	}

	// The second session is live and unresolved.
	if _, ok := tryRecv(second); ok {
		t.Error("second fade resolved prematurely")
	}
	if sampler.runCount() != 2 {
		t.Fatalf("expected 2 sampler runs, got %d", sampler.runCount())
	}
	if !f.Active() {
		t.Error("fader should be fading after supersession")
	}
}

func TestFade_StaleTickFromSupersededSessionIgnored(t *testing.T) {
	sink := newMockGainSink(0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	f.Fade(0, 1, 3.0, 2.0)
	staleRun := sampler.lastRun()

	f.Fade(1, 0, 3.0, 2.0)
	writes := sink.writeCount()

	// Simulate a tick that was already in flight when the supersession
	// cancelled the old run: it must not write anything.
	staleRun.tick()

	if sink.writeCount() != writes {
		t.Errorf("stale tick wrote to the sink: %v", sink.writes)
	}
}

func TestFadeOut_CompletionExactness(t *testing.T) {
	// A 1.0s fade-out at 30 Hz: ticks write curve samples for steps 0..30
	// (step 30 is t=1), and the completing tick is one past that, writing
	// exactly 0.0. One write of the start gain happens at Fade time.
	sink := newMockGainSink(1.0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())
	f.SetUpdateRate(30)

	result := f.FadeOut(1.0, 2.0)
	run := sampler.lastRun()

	if got := sink.writeAt(0); got != 1.0 {
		t.Errorf("expected start gain 1.0 written at fade start, got %v", got)
	}

	// First tick is t=0: multiplier 1, gain stays exactly 1.0.
	run.fire(1)
	if got := sink.lastWrite(); got != 1.0 {
		t.Errorf("expected gain 1.0 after first tick, got %v", got)
	}

	// 30 more ticks cover steps 1..30; the fade must not be resolved yet.
	run.fire(30)
	if _, ok := tryRecv(result); ok {
		t.Fatal("fade resolved before the completing tick")
	}
	if got := sink.lastWrite(); math.Abs(got) > 1e-12 {
		t.Errorf("expected near-zero gain at t=1, got %v", got)
	}

	// Tick 32 (step 31 > 30) finalizes: exact target, true result, cancel.
	run.fire(1)
	v, ok := tryRecv(result)
	if !ok || !v {
		t.Fatalf("expected true result after completing tick, got (%v, %v)", v, ok)
	}
	if got := sink.lastWrite(); got != 0.0 {
		t.Errorf("expected exact final gain 0.0, got %v", got)
	}
	if !run.isCancelled() {
		t.Error("sampler not cancelled on completion")
	}
	if f.Active() {
		t.Error("fader still active after completion")
	}

	// 1 start write + 31 curve samples + 1 exact final write.
	if got := sink.writeCount(); got != 33 {
		t.Errorf("expected 33 sink writes, got %d", got)
	}

	// No further delivery, no further writes.
	if _, again := tryRecv(result); again {
		t.Error("result delivered twice")
	}
	run.fire(5)
	if got := sink.writeCount(); got != 33 {
		t.Errorf("ticks after completion wrote to the sink: %d writes", got)
	}
}

func TestFadeIn_StartsFromCurrentSinkGain(t *testing.T) {
	sink := newMockGainSink(0.3)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())
	f.SetUpdateRate(10)

	result := f.FadeIn(0.5, 2.0)

	if got := sink.writeAt(0); got != 0.3 {
		t.Errorf("expected fade-in to start from sink gain 0.3, got %v", got)
	}

	sampler.lastRun().fire(1000)
	if v, ok := tryRecv(result); !ok || !v {
		t.Fatalf("fade-in did not complete: (%v, %v)", v, ok)
	}
	if got := sink.lastWrite(); got != 1.0 {
		t.Errorf("expected exact final gain 1.0, got %v", got)
	}
}

func TestFadeIn_SinkQueryFailureFallsBack(t *testing.T) {
	sink := newMockGainSink(0.7)
	sink.getErr = errors.New("connection lost")
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	// No gain written yet: fall back to the safe default (silence).
	f.FadeIn(3.0, 2.0)
	if got := sink.writeAt(0); got != safeDefaultGain {
		t.Errorf("expected fallback start gain %v, got %v", safeDefaultGain, got)
	}

	// After a write the fader trusts its own last write instead.
	f.Stop()
	f.FadeOut(3.0, 2.0)
	if got := sink.lastWrite(); got != safeDefaultGain {
		t.Errorf("expected fade-out to start from last written gain %v, got %v", safeDefaultGain, got)
	}
}

func TestStop_AbandonsResult(t *testing.T) {
	sink := newMockGainSink(1.0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())
	f.SetUpdateRate(30)

	result := f.FadeOut(1.0, 2.0)
	run := sampler.lastRun()
	run.fire(5)
	writes := sink.writeCount()

	f.Stop()

	// Stop only halts the timing mechanism: no result, no final write.
	if _, ok := tryRecv(result); ok {
		t.Error("stop delivered a result; the pending result must be abandoned")
	}
	if !run.isCancelled() {
		t.Error("sampler not cancelled by Stop")
	}
	if sink.writeCount() != writes {
		t.Errorf("Stop wrote to the sink: %v", sink.writes)
	}
	if f.Active() {
		t.Error("fader still active after Stop")
	}

	// Stop while idle is a no-op.
	f.Stop()
}

func TestClose_ForcesFalseOnPendingFade(t *testing.T) {
	sink := newMockGainSink(1.0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	result := f.FadeOut(1.0, 2.0)
	run := sampler.lastRun()
	writes := sink.writeCount()

	f.Close()

	v, ok := tryRecv(result)
	if !ok || v {
		t.Fatalf("expected false result on teardown, got (%v, %v)", v, ok)
	}
	if _, again := tryRecv(result); again {
		t.Error("teardown delivered a second result")
	}
	if !run.isCancelled() {
		t.Error("sampler not cancelled on teardown")
	}

	// In-flight ticks after teardown must not write.
	run.tick()
	if sink.writeCount() != writes {
		t.Errorf("tick after teardown wrote to the sink: %v", sink.writes)
	}

	// Close is idempotent; fades after Close fail immediately.
	f.Close()
	if v, ok := tryRecv(f.Fade(0, 1, 1.0, 2.0)); !ok || v {
		t.Errorf("expected immediate false from fade after Close, got (%v, %v)", v, ok)
	}
}

func TestFade_ZeroDurationCompletesImmediately(t *testing.T) {
	sink := newMockGainSink(0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())

	result := f.Fade(0, 1, 0, 2.0)
	run := sampler.lastRun()

	// First tick: degenerate step budget, t=1, full target written.
	run.fire(1)
	if got := sink.lastWrite(); got != 1.0 {
		t.Errorf("expected full gain on first tick of zero-duration fade, got %v", got)
	}

	// Second tick finalizes.
	run.fire(1)
	if v, ok := tryRecv(result); !ok || !v {
		t.Fatalf("zero-duration fade did not complete: (%v, %v)", v, ok)
	}
	if got := sink.lastWrite(); got != 1.0 {
		t.Errorf("expected exact final gain 1.0, got %v", got)
	}
}

func TestFade_NonFiniteDurationCompletesImmediately(t *testing.T) {
	// An infinite or NaN step budget must collapse like a zero duration:
	// target on the first tick, completion on the second, never an
	// endlessly ticking session.
	for _, tt := range []struct {
		name     string
		duration float64
	}{
		{"positive infinity", math.Inf(1)},
		{"nan", math.NaN()},
	} {
		t.Run(tt.name, func(t *testing.T) {
			sink := newMockGainSink(0)
			sampler := &manualSampler{}
			f := NewFader(sink, sampler, testLogger())

			result := f.Fade(0, 1, tt.duration, 2.0)
			run := sampler.lastRun()

			delivered := run.fire(10)
			if delivered > 2 {
				t.Errorf("fade kept ticking: %d ticks delivered before cancel", delivered)
			}
			v, ok := tryRecv(result)
			if !ok || !v {
				t.Fatalf("fade with %s duration did not complete: (%v, %v)", tt.name, v, ok)
			}
			if got := sink.lastWrite(); got != 1.0 {
				t.Errorf("expected exact final gain 1.0, got %v", got)
			}
			if !run.isCancelled() {
				t.Error("sampler not cancelled")
			}
		})
	}
}

func TestFade_DownwardBetweenIntermediateGains(t *testing.T) {
	// A partial fade (0.8 -> 0.2) uses the fade-out curve anchored at the
	// target: gain = to + (from-to)*multiplier.
	sink := newMockGainSink(0.8)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())
	f.SetUpdateRate(10)

	result := f.Fade(0.8, 0.2, 1.0, 2.0)
	run := sampler.lastRun()

	run.fire(1)
	if got := sink.lastWrite(); math.Abs(got-0.8) > 1e-12 {
		t.Errorf("expected first tick to hold 0.8, got %v", got)
	}

	// Every sample stays inside [to, from].
	run.fire(1000)
	for i, w := range sink.writes {
		if w < 0.2-1e-12 || w > 0.8+1e-12 {
			t.Errorf("write %d = %v escapes [0.2, 0.8]", i, w)
		}
	}

	if v, ok := tryRecv(result); !ok || !v {
		t.Fatalf("partial fade did not complete: (%v, %v)", v, ok)
	}
	if got := sink.lastWrite(); got != 0.2 {
		t.Errorf("expected exact final gain 0.2, got %v", got)
	}
}

func TestSamplerInterval_FollowsUpdateRate(t *testing.T) {
	sink := newMockGainSink(0)
	sampler := &manualSampler{}
	f := NewFader(sink, sampler, testLogger())
	f.SetUpdateRate(50)

	f.Fade(0, 1, 1.0, 2.0)

	want := 20 * time.Millisecond
	if got := sampler.lastRun().interval; got != want {
		t.Errorf("expected sampler interval %v at 50 Hz, got %v", want, got)
	}
}
