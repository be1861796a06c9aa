// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package recorder owns the capture device lifecycle: one recording at a
// time, bounded duration, ordered chunk accumulation, one finalized
// artifact per successful stop.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voyago/voice-core/audio"
	"github.com/voyago/voice-core/classify"
	"github.com/voyago/voice-core/pkg/clock"
	"github.com/voyago/voice-core/pkg/commons"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
)

// ErrInvalidState is returned when an operation is not legal from the
// current state (e.g. Stop while idle).
var ErrInvalidState = errors.New("recorder: invalid state for operation")

// Config carries the recording tunables. Zero values fall back to the
// defaults used across the application.
type Config struct {
	MaxDuration  time.Duration // recording ceiling, default 15s
	TickInterval time.Duration // duration tick granularity, default 100ms
	Capture      audio.Config
}

func (c Config) withDefaults() Config {
	if c.MaxDuration <= 0 {
		c.MaxDuration = 15 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	// A fully zero capture config takes the standard negotiation. A
	// partial one keeps its explicit processing flags; only the zero
	// scalar fields are filled in.
	if c.Capture == (audio.Config{}) {
		c.Capture = audio.DefaultConfig()
	} else {
		def := audio.DefaultConfig()
		if c.Capture.SampleRate == 0 {
			c.Capture.SampleRate = def.SampleRate
		}
		if c.Capture.Channels == 0 {
			c.Capture.Channels = def.Channels
		}
		if c.Capture.Format == "" {
			c.Capture.Format = def.Format
		}
		if c.Capture.ChunkInterval <= 0 {
			c.Capture.ChunkInterval = def.ChunkInterval
		}
	}
	return c
}

type Option func(*Recorder)

// WithClock substitutes the time source, used with a simulated clock in
// tests.
func WithClock(clk clock.Clock) Option {
	return func(r *Recorder) { r.clk = clk }
}

// WithLanguage sets the language used when classifying failures.
func WithLanguage(lang classify.Language) Option {
	return func(r *Recorder) { r.lang = lang }
}

// OnComplete registers the completion callback. It receives the finalized
// artifact; ownership transfers to the callback.
func OnComplete(fn func(audio.Artifact)) Option {
	return func(r *Recorder) { r.onComplete = fn }
}

// OnError registers the failure callback. Failures are classified and
// surfaced once per attempt; the machine is back at idle when it fires.
func OnError(fn func(classify.Classified)) Option {
	return func(r *Recorder) { r.onError = fn }
}

// OnTick registers the progress callback, invoked with the elapsed whole
// seconds on every duration tick.
func OnTick(fn func(elapsedSeconds int)) Option {
	return func(r *Recorder) { r.onTick = fn }
}

// Recorder is the recording state machine. All transitions are guarded by
// state checks; a stale async completion (device granted after Cancel) is
// discarded via a per-session generation counter.
type Recorder struct {
	logger commons.Logger
	device audio.Device
	clk    clock.Clock
	cfg    Config
	lang   classify.Language

	onComplete func(audio.Artifact)
	onError    func(classify.Classified)
	onTick     func(int)

	mu       sync.Mutex
	state    State
	gen      uint64
	capture  audio.Capture
	chunks   [][]byte
	elapsed  time.Duration
	drained  chan struct{} // closed by the chunk consumer when Chunks closes
	stopTick chan struct{} // closed on reset so the tick loop never leaks
	ticker   clock.Ticker
}

func New(logger commons.Logger, device audio.Device, cfg Config, opts ...Option) *Recorder {
	r := &Recorder{
		logger: logger,
		device: device,
		clk:    clock.New(),
		cfg:    cfg.withDefaults(),
		lang:   classify.French,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ElapsedSeconds returns the whole seconds recorded so far.
func (r *Recorder) ElapsedSeconds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.elapsed / time.Second)
}

// Start acquires the capture device and begins recording. Calling while
// not idle is a no-op. Device refusal is classified, surfaced once and
// leaves the machine idle so a fresh Start can be attempted.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil
	}
	r.state = StateRecording
	r.gen++
	gen := r.gen
	r.mu.Unlock()

	capture, err := r.device.Open(ctx, r.cfg.Capture)
	if err != nil {
		r.mu.Lock()
		if r.gen == gen {
			r.resetLocked()
		}
		r.mu.Unlock()
		r.logger.Errorf("capture device refused: %v", err)
		r.fail(classify.Error(err, r.lang))
		return fmt.Errorf("recorder: device open: %w", err)
	}

	r.mu.Lock()
	if r.gen != gen {
		// Cancelled while the grant was in flight. Discard silently.
		r.mu.Unlock()
		capture.Close()
		return nil
	}
	r.capture = capture
	r.chunks = nil
	r.elapsed = 0
	r.drained = make(chan struct{})
	r.stopTick = make(chan struct{})
	r.ticker = r.clk.NewTicker(r.cfg.TickInterval)
	drained := r.drained
	stopTick := r.stopTick
	ticker := r.ticker
	r.mu.Unlock()

	go r.consume(gen, capture, drained)
	go r.tick(gen, ticker, stopTick)

	r.logger.Debugf("recording started: max=%s tick=%s", r.cfg.MaxDuration, r.cfg.TickInterval)
	return nil
}

// consume appends device fragments in emission order until the capture
// closes its chunk channel.
func (r *Recorder) consume(gen uint64, capture audio.Capture, drained chan struct{}) {
	defer close(drained)
	for data := range capture.Chunks() {
		if len(data) == 0 {
			continue
		}
		buf := make([]byte, len(data))
		copy(buf, data)

		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			return
		}
		r.chunks = append(r.chunks, buf)
		r.mu.Unlock()
	}
}

// tick advances elapsed time and auto-stops at the ceiling through the
// exact same path as an external Stop.
func (r *Recorder) tick(gen uint64, ticker clock.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
		}

		r.mu.Lock()
		if r.gen != gen || r.state != StateRecording {
			r.mu.Unlock()
			return
		}
		r.elapsed += r.cfg.TickInterval
		elapsed := r.elapsed
		onTick := r.onTick
		r.mu.Unlock()

		if onTick != nil {
			onTick(int(elapsed / time.Second))
		}
		if elapsed >= r.cfg.MaxDuration {
			r.logger.Debugf("max duration reached after %s, auto-stopping", elapsed)
			if err := r.Stop(context.Background()); err != nil && !errors.Is(err, ErrInvalidState) {
				r.logger.Errorf("auto-stop failed: %v", err)
			}
			return
		}
	}
}

// Stop finalizes the active recording, emits the artifact and releases the
// device. Valid only while recording. When no fragments were captured no
// artifact is emitted.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return ErrInvalidState
	}
	r.state = StateStopping
	gen := r.gen
	capture := r.capture
	drained := r.drained
	r.mu.Unlock()

	finalizeErr := capture.Finalize(ctx)
	if finalizeErr == nil {
		select {
		case <-drained:
		case <-ctx.Done():
			finalizeErr = ctx.Err()
		}
	}

	r.mu.Lock()
	if r.gen != gen {
		// Cancelled while stopping; resources already released.
		r.mu.Unlock()
		return nil
	}
	chunks := r.chunks
	elapsed := r.elapsed
	mimeType := capture.MIMEType()
	r.resetLocked()
	r.mu.Unlock()

	capture.Close()

	if finalizeErr != nil {
		r.logger.Errorf("encoder finalize failed: %v", finalizeErr)
		r.fail(classify.As(classify.RecordingFailed, r.lang))
		return fmt.Errorf("recorder: finalize: %w", finalizeErr)
	}
	if len(chunks) == 0 {
		r.logger.Debugf("no audio captured, nothing to emit")
		return nil
	}

	artifact := r.assemble(chunks, mimeType, elapsed)
	r.logger.Infof("recording finalized: %d bytes, %s, %ds",
		len(artifact.Data), artifact.MIMEType, artifact.DurationSeconds)

	if r.onComplete != nil {
		r.onComplete(artifact)
	}
	return nil
}

// Cancel releases all resources immediately without emitting an artifact.
// Valid from any non-idle state; calling while idle is a no-op.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	capture := r.capture
	r.gen++ // invalidates any in-flight acquisition, consumer and ticker
	r.resetLocked()
	r.mu.Unlock()

	if capture != nil {
		capture.Close()
	}
	r.logger.Debugf("recording cancelled")
}

// assemble concatenates fragments into one immutable artifact. Raw PCM is
// wrapped in a WAV container so the artifact is playable as-is.
func (r *Recorder) assemble(chunks [][]byte, mimeType string, elapsed time.Duration) audio.Artifact {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	blob := make([]byte, 0, total)
	for _, c := range chunks {
		blob = append(blob, c...)
	}

	if mimeType == audio.MIMEPCM {
		blob = audio.EncodeWAV(blob, r.cfg.Capture)
		mimeType = audio.MIMEWAV
	}

	return audio.Artifact{
		Data:            blob,
		MIMEType:        mimeType,
		DurationSeconds: int(elapsed / time.Second),
	}
}

// resetLocked returns the machine to idle. Caller holds r.mu.
func (r *Recorder) resetLocked() {
	r.state = StateIdle
	r.capture = nil
	r.chunks = nil
	r.elapsed = 0
	r.drained = nil
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Recorder) fail(c classify.Classified) {
	if r.onError != nil {
		r.onError(c)
	}
}
