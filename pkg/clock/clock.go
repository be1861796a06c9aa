// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package clock abstracts wall time and periodic ticks so duration
// tracking, auto-stop and retention cuts are testable with simulated time.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// ============================================================================
// Real clock
// ============================================================================

type systemClock struct{}

// New returns a Clock backed by the runtime's own timers.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{ticker: time.NewTicker(d)}
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time { return t.ticker.C }
func (t *systemTicker) Stop()               { t.ticker.Stop() }

// ============================================================================
// Fake clock (tests)
// ============================================================================

// Fake is a manually advanced clock. Advance moves time forward and fires
// every due tick on tickers created from it. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		clock:    f,
		interval: d,
		next:     f.now.Add(d),
		ch:       make(chan time.Time, 1024),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the fake time forward by d, delivering every tick that
// falls due along the way. Ticks are delivered in timestamp order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		var earliest *fakeTicker
		for _, t := range f.tickers {
			if t.stopped {
				continue
			}
			if !t.next.After(target) && (earliest == nil || t.next.Before(earliest.next)) {
				earliest = t
			}
		}
		if earliest == nil {
			break
		}
		f.now = earliest.next
		earliest.next = earliest.next.Add(earliest.interval)
		select {
		case earliest.ch <- f.now:
		default:
		}
	}
	f.now = target
	f.mu.Unlock()
}

type fakeTicker struct {
	clock    *Fake
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	t.stopped = true
	t.clock.mu.Unlock()
}
