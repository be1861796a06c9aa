// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package cleanup purges aged audio artifacts from the chat message
// store. Best-effort housekeeping: failures are logged and the next cycle
// tries again, nothing is retried within a cycle and nothing propagates
// to callers.
package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/voyago/voice-core/chatstore"
	"github.com/voyago/voice-core/pkg/clock"
	"github.com/voyago/voice-core/pkg/commons"
)

const (
	// DefaultInterval is how often the purge runs.
	DefaultInterval = 24 * time.Hour
	// DefaultRetention is how long audio artifacts are kept.
	DefaultRetention = 14 * 24 * time.Hour
)

type Option func(*Scheduler)

// WithClock substitutes the time source.
func WithClock(clk clock.Clock) Option {
	return func(s *Scheduler) { s.clk = clk }
}

// WithInterval overrides the purge cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithRetention overrides the retention window.
func WithRetention(d time.Duration) Option {
	return func(s *Scheduler) { s.retention = d }
}

// Scheduler runs the retention purge at startup and then on a fixed
// recurring interval.
type Scheduler struct {
	logger    commons.Logger
	store     chatstore.Store
	clk       clock.Clock
	interval  time.Duration
	retention time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	stopped sync.WaitGroup
}

func New(logger commons.Logger, store chatstore.Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:    logger,
		store:     store,
		clk:       clock.New(),
		interval:  DefaultInterval,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background loop: one purge immediately, then one per
// interval. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.stopped.Add(1)
	go s.run(stop)
}

// Stop halts the loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()
	s.stopped.Wait()
}

func (s *Scheduler) run(stop <-chan struct{}) {
	defer s.stopped.Done()

	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce performs a single purge cycle. Errors are swallowed after
// logging; housekeeping must never take the application down.
func (s *Scheduler) RunOnce(ctx context.Context) {
	cutoff := s.clk.Now().Add(-s.retention)
	deleted, err := s.store.DeleteAgedAudio(ctx, cutoff)
	if err != nil {
		s.logger.Errorf("audio retention purge failed: %v", err)
		return
	}
	s.logger.Debugf("audio retention purge done: %d rows, cutoff=%s", deleted, cutoff.Format(time.RFC3339))
}
