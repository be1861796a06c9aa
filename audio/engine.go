// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package audio

import "context"

// Source is what the player loads: inline encoded bytes or a remote URL,
// mutually exclusive.
type Source struct {
	Data     []byte
	MIMEType string
	URL      string
}

// FromEncoded builds an inline source.
func FromEncoded(data []byte, mimeType string) Source {
	return Source{Data: data, MIMEType: mimeType}
}

// FromURL builds a network source.
func FromURL(url string) Source {
	return Source{URL: url}
}

// Inline reports whether the source carries inline bytes.
func (s Source) Inline() bool {
	return len(s.Data) > 0
}

// Engine abstracts the platform's playback/decoder facility. Load blocks
// until decode/metadata is available.
type Engine interface {
	Load(ctx context.Context, src Source) (Track, error)
}

// Track is a decoded, playable handle. Position and Duration are in
// seconds. Done delivers one signal each time playback reaches the
// natural end, so a replayed track completes again. Close releases the
// decoder and any transport resource derived from inline bytes, and
// unblocks any pending Done receive; a Track is never reused after Close.
type Track interface {
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(v float64) error
	Position() float64
	Duration() float64
	Done() <-chan struct{}
	Close() error
}
