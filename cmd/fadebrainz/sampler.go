package main

import (
	"sync"
	"time"
)

// ============================================================================
// Periodic Sampler
// ============================================================================
// The sampler is the only source of concurrency in the fade engine. It
// delivers repeating ticks at a fixed interval until cancelled.
//
// Contract required by the Fader:
//   - Ticks for one handle are delivered serially (never concurrently).
//   - Cancel is idempotent and safe on an already-fired/cancelled handle.
//   - After Cancel returns, no further ticks are delivered, except at most
//     one tick already dispatched before the cancel landed. The Fader
//     neutralizes that stale tick with a session generation check.
// ============================================================================

// Sampler starts repeating tick callbacks at a fixed interval.
type Sampler interface {
	Start(interval time.Duration, tick func()) SamplerHandle
}

// SamplerHandle cancels a running sampler. Cancel is idempotent.
type SamplerHandle interface {
	Cancel()
}

// tickerSampler is the production Sampler, backed by time.Ticker.
type tickerSampler struct{}

// NewTickerSampler returns a Sampler driven by time.Ticker goroutines.
func NewTickerSampler() Sampler {
	return tickerSampler{}
}

func (tickerSampler) Start(interval time.Duration, tick func()) SamplerHandle {
	if interval <= 0 {
		// time.NewTicker panics on non-positive intervals; degrade to the
		// smallest cadence instead. Degenerate rates already complete on the
		// first tick via normalizedTime.
		interval = time.Millisecond
	}

	h := &tickerHandle{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				// Re-check stop so a cancel racing a pending tick loses at
				// most one callback, never more.
				select {
				case <-h.stop:
					return
				default:
				}
				tick()
			}
		}
	}()

	return h
}

// tickerHandle cancels the ticker goroutine. Safe to cancel repeatedly.
type tickerHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *tickerHandle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}
