// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.

// Package audio defines the capture/playback boundaries of the voice core
// and the small amount of format plumbing shared by both state machines.
package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

type Format string

const (
	Linear16 Format = "linear16"
	MuLaw8   Format = "mulaw"
)

const (
	MIMEPCM = "audio/pcm"
	MIMEWAV = "audio/wav"

	BytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	BitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	PCMFormatTag   = 1  // WAV PCM format tag
)

// Config describes the capture device negotiation: processing constraints,
// sample rate and how often the device should flush encoded fragments.
type Config struct {
	SampleRate       uint32
	Channels         uint16
	Format           Format
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	ChunkInterval    time.Duration
}

// DefaultConfig is the negotiation every recording asks for: 16kHz mono
// LINEAR16 with echo cancellation, noise suppression and auto gain.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		Channels:         1,
		Format:           Linear16,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		ChunkInterval:    100 * time.Millisecond,
	}
}

func (c Config) GetSampleRate() uint32 {
	if c.SampleRate == 0 {
		return 16000
	}
	return c.SampleRate
}

func (c Config) GetChannels() uint16 {
	if c.Channels == 0 {
		return 1
	}
	return c.Channels
}

// BytesPerSecond returns the raw PCM byte rate for this configuration.
func (c Config) BytesPerSecond() int {
	return int(c.GetSampleRate()) * int(c.GetChannels()) * BytesPerSample
}

// Artifact is the immutable result of one completed recording. Ownership
// transfers to the caller on emission.
type Artifact struct {
	Data            []byte
	MIMEType        string
	DurationSeconds int
}

// EncodeWAV wraps raw LINEAR16 PCM in a WAV container.
func EncodeWAV(pcm []byte, cfg Config) []byte {
	var buf bytes.Buffer
	sampleRate := cfg.GetSampleRate()
	channels := cfg.GetChannels()
	bps := cfg.BytesPerSecond()

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(PCMFormatTag))
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(bps))
	binary.Write(&buf, binary.LittleEndian, uint16(BytesPerSample*int(channels)))
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
