// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package player drives playback of a single audio source: inline encoded
// bytes or a remote URL. Loading a new source tears the previous one down
// first; completion fires exactly once per full playback.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/voyago/voice-core/audio"
	"github.com/voyago/voice-core/classify"
	"github.com/voyago/voice-core/pkg/commons"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateError   State = "error"
)

// ErrInvalidState is returned when an operation is not legal from the
// current state (e.g. Pause while not playing).
var ErrInvalidState = errors.New("player: invalid state for operation")

type Option func(*Player)

// WithLanguage sets the language used when classifying failures.
func WithLanguage(lang classify.Language) Option {
	return func(p *Player) { p.lang = lang }
}

// OnComplete registers the completion callback, fired once per playback
// that reaches its natural end.
func OnComplete(fn func()) Option {
	return func(p *Player) { p.onComplete = fn }
}

// OnError registers the failure callback.
func OnError(fn func(classify.Classified)) Option {
	return func(p *Player) { p.onError = fn }
}

// Player is the playback state machine. One source at a time; a
// per-source generation counter discards completions and load results of
// sources that were torn down in the meantime.
type Player struct {
	logger commons.Logger
	engine audio.Engine
	lang   classify.Language

	onComplete func()
	onError    func(classify.Classified)

	mu       sync.Mutex
	state    State
	gen      uint64
	track    audio.Track
	volume   float64
	watching bool // a goroutine is parked on the active track's Done
}

func New(logger commons.Logger, engine audio.Engine, opts ...Option) *Player {
	p := &Player{
		logger: logger,
		engine: engine,
		lang:   classify.French,
		state:  StateIdle,
		volume: 1.0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PlayFromEncoded tears down any current source and plays inline encoded
// bytes.
func (p *Player) PlayFromEncoded(ctx context.Context, data []byte, mimeType string) error {
	return p.load(ctx, audio.FromEncoded(data, mimeType))
}

// PlayFromURL tears down any current source and plays from a network
// location.
func (p *Player) PlayFromURL(ctx context.Context, url string) error {
	return p.load(ctx, audio.FromURL(url))
}

func (p *Player) load(ctx context.Context, src audio.Source) error {
	p.mu.Lock()
	old := p.track
	p.track = nil
	p.gen++
	gen := p.gen
	p.state = StateLoading
	p.mu.Unlock()

	// Previous decoder/transport released before the new source starts.
	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.Warnf("previous track release failed: %v", err)
		}
	}

	track, err := p.engine.Load(ctx, src)
	if err != nil {
		p.mu.Lock()
		stale := p.gen != gen
		if !stale {
			p.state = StateError
		}
		p.mu.Unlock()
		if stale {
			return nil
		}
		p.logger.Errorf("source load failed: %v", err)
		p.fail(classify.As(classify.PlaybackFailed, p.lang))
		return fmt.Errorf("player: load: %w", err)
	}

	p.mu.Lock()
	if p.gen != gen {
		// A newer source arrived while this one was decoding.
		p.mu.Unlock()
		track.Close()
		return nil
	}
	p.track = track
	volume := p.volume
	p.mu.Unlock()

	if err := track.SetVolume(volume); err != nil {
		p.logger.Warnf("volume apply failed: %v", err)
	}
	if err := track.Play(); err != nil {
		p.mu.Lock()
		if p.gen == gen {
			p.track = nil
			p.state = StateError
		}
		p.mu.Unlock()
		track.Close()
		p.logger.Errorf("playback start failed: %v", err)
		p.fail(classify.As(classify.PlaybackFailed, p.lang))
		return fmt.Errorf("player: play: %w", err)
	}

	p.mu.Lock()
	if p.gen == gen {
		p.state = StatePlaying
		p.watching = true
	}
	p.mu.Unlock()

	go p.watch(gen, track)
	return nil
}

// watch waits for the track's natural end and fires completion once,
// unless the source was replaced or stopped in the meantime.
func (p *Player) watch(gen uint64, track audio.Track) {
	<-track.Done()

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.watching = false
	if p.state != StatePlaying {
		p.mu.Unlock()
		return
	}
	p.state = StateEnded
	p.mu.Unlock()

	// rewind so a later Resume is a fresh play
	if err := track.Seek(0); err != nil {
		p.logger.Warnf("rewind after completion failed: %v", err)
	}

	if p.onComplete != nil {
		p.onComplete()
	}
}

// Pause suspends playback. Valid only while playing.
func (p *Player) Pause() error {
	p.mu.Lock()
	if p.state != StatePlaying || p.track == nil {
		p.mu.Unlock()
		return ErrInvalidState
	}
	track := p.track
	p.state = StatePaused
	p.mu.Unlock()
	return track.Pause()
}

// Resume re-enters playback from the current position. Valid from paused
// or ended; resuming an ended source is a fresh play from zero. A new
// end-of-stream watcher is spawned only when none is parked on the track
// already, so pause/resume cycles never stack goroutines.
func (p *Player) Resume() error {
	p.mu.Lock()
	if (p.state != StatePaused && p.state != StateEnded) || p.track == nil {
		p.mu.Unlock()
		return ErrInvalidState
	}
	track := p.track
	gen := p.gen
	p.state = StatePlaying
	needWatch := !p.watching
	if needWatch {
		p.watching = true
	}
	p.mu.Unlock()

	if err := track.Play(); err != nil {
		p.mu.Lock()
		if needWatch && p.gen == gen {
			p.watching = false
		}
		p.mu.Unlock()
		p.logger.Errorf("resume failed: %v", err)
		p.fail(classify.As(classify.PlaybackFailed, p.lang))
		return fmt.Errorf("player: resume: %w", err)
	}
	if needWatch {
		go p.watch(gen, track)
	}
	return nil
}

// Stop rewinds to zero and pauses. The decoded source is kept so the same
// audio can be replayed without reloading.
func (p *Player) Stop() error {
	p.mu.Lock()
	track := p.track
	if track == nil {
		p.mu.Unlock()
		return ErrInvalidState
	}
	p.state = StatePaused
	p.mu.Unlock()

	if err := track.Pause(); err != nil {
		return fmt.Errorf("player: stop: %w", err)
	}
	return track.Seek(0)
}

// Seek clamps the target into [0, duration].
func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	track := p.track
	p.mu.Unlock()
	if track == nil {
		return ErrInvalidState
	}

	if seconds < 0 {
		seconds = 0
	}
	if d := track.Duration(); seconds > d {
		seconds = d
	}
	return track.Seek(seconds)
}

// SetVolume clamps v into [0,1] and applies it to the active track, if
// any. The value sticks across source loads.
func (p *Player) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	p.mu.Lock()
	p.volume = v
	track := p.track
	p.mu.Unlock()

	if track == nil {
		return nil
	}
	return track.SetVolume(v)
}

// CurrentTime returns the playback position in seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	track := p.track
	p.mu.Unlock()
	if track == nil {
		return 0
	}
	return track.Position()
}

// Duration returns the source duration in seconds, 0 when nothing is
// loaded.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	track := p.track
	p.mu.Unlock()
	if track == nil {
		return 0
	}
	return track.Duration()
}

// Progress returns the playback position as a percentage of the duration.
func (p *Player) Progress() float64 {
	d := p.Duration()
	if d <= 0 {
		return 0
	}
	return p.CurrentTime() / d * 100
}

// Close tears down the active source and returns the machine to idle.
func (p *Player) Close() error {
	p.mu.Lock()
	track := p.track
	p.track = nil
	p.gen++
	p.state = StateIdle
	p.watching = false
	p.mu.Unlock()

	if track != nil {
		return track.Close()
	}
	return nil
}

func (p *Player) fail(c classify.Classified) {
	if p.onError != nil {
		p.onError(c)
	}
}
