// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/voice-core/assistant"
	"github.com/voyago/voice-core/audio"
	"github.com/voyago/voice-core/classify"
	"github.com/voyago/voice-core/pkg/clock"
	"github.com/voyago/voice-core/pkg/commons"
	"github.com/voyago/voice-core/pkg/utils"
)

// ============================================================================
// Test doubles
// ============================================================================

type fakeCapture struct {
	mu       sync.Mutex
	ch       chan []byte
	closed   bool
	mimeType string
}

func newFakeCapture(mimeType string) *fakeCapture {
	return &fakeCapture{ch: make(chan []byte, 64), mimeType: mimeType}
}

func (c *fakeCapture) emit(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.ch <- data
	}
}

func (c *fakeCapture) Chunks() <-chan []byte { return c.ch }

func (c *fakeCapture) Finalize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}

func (c *fakeCapture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
	return nil
}

func (c *fakeCapture) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeCapture) MIMEType() string { return c.mimeType }

type fakeDevice struct {
	mu       sync.Mutex
	openErr  error
	captures []*fakeCapture
	mimeType string
}

func (d *fakeDevice) Open(ctx context.Context, cfg audio.Config) (audio.Capture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	mime := d.mimeType
	if mime == "" {
		mime = audio.MIMEPCM
	}
	c := newFakeCapture(mime)
	d.captures = append(d.captures, c)
	return c, nil
}

func (d *fakeDevice) last() *fakeCapture {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.captures) == 0 {
		return nil
	}
	return d.captures[len(d.captures)-1]
}

// ============================================================================
// Helpers
// ============================================================================

type harness struct {
	rec       *Recorder
	device    *fakeDevice
	clk       *clock.Fake
	mu        sync.Mutex
	artifacts []audio.Artifact
	failures  []classify.Classified
}

func (h *harness) artifactCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.artifacts)
}

func (h *harness) lastArtifact() audio.Artifact {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.artifacts[len(h.artifacts)-1]
}

func (h *harness) failureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.failures)
}

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-recorder"),
		commons.Level("debug"),
	)
	require.NoError(t, err)
	return logger
}

func newTestRecorder(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		device: &fakeDevice{},
		clk:    clock.NewFake(time.Unix(1700000000, 0)),
	}
	h.rec = New(newTestLogger(t), h.device, cfg,
		WithClock(h.clk),
		WithLanguage(classify.English),
		OnComplete(func(a audio.Artifact) {
			h.mu.Lock()
			h.artifacts = append(h.artifacts, a)
			h.mu.Unlock()
		}),
		OnError(func(c classify.Classified) {
			h.mu.Lock()
			h.failures = append(h.failures, c)
			h.mu.Unlock()
		}),
	)
	return h
}

func waitElapsed(t *testing.T, h *harness, seconds int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.rec.ElapsedSeconds() >= seconds
	}, time.Second, time.Millisecond, "elapsed never reached %ds", seconds)
}

// ============================================================================
// Config defaults
// ============================================================================

func TestConfigKeepsExplicitCaptureFields(t *testing.T) {
	cfg := Config{Capture: audio.Config{
		NoiseSuppression: true,
		ChunkInterval:    50 * time.Millisecond,
	}}.withDefaults()

	assert.Equal(t, uint32(16000), cfg.Capture.SampleRate)
	assert.Equal(t, uint16(1), cfg.Capture.Channels)
	assert.Equal(t, audio.Linear16, cfg.Capture.Format)
	assert.Equal(t, 50*time.Millisecond, cfg.Capture.ChunkInterval)
	assert.True(t, cfg.Capture.NoiseSuppression, "explicit processing flags are kept as given")
	assert.False(t, cfg.Capture.EchoCancellation)
	assert.False(t, cfg.Capture.AutoGainControl)

	full := Config{}.withDefaults()
	assert.True(t, full.Capture.EchoCancellation)
	assert.True(t, full.Capture.NoiseSuppression)
	assert.True(t, full.Capture.AutoGainControl)
}

// ============================================================================
// Start
// ============================================================================

func TestStartTransitionsToRecording(t *testing.T) {
	h := newTestRecorder(t, Config{})
	require.NoError(t, h.rec.Start(context.Background()))
	assert.Equal(t, StateRecording, h.rec.State())
	assert.Equal(t, 0, h.rec.ElapsedSeconds())
}

func TestStartWhileRecordingIsNoOp(t *testing.T) {
	h := newTestRecorder(t, Config{})
	require.NoError(t, h.rec.Start(context.Background()))
	require.NoError(t, h.rec.Start(context.Background()))
	assert.Len(t, h.device.captures, 1, "second start must not acquire another device")
}

func TestStartDeviceRefusedReturnsToIdle(t *testing.T) {
	h := newTestRecorder(t, Config{})
	h.device.openErr = errors.New("Permission denied")

	err := h.rec.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, h.rec.State())
	require.Equal(t, 1, h.failureCount())
	assert.Equal(t, classify.PermissionDenied, h.failures[0].Kind)

	// a fresh attempt succeeds once the device is available again
	h.device.openErr = nil
	require.NoError(t, h.rec.Start(context.Background()))
	assert.Equal(t, StateRecording, h.rec.State())
}

// ============================================================================
// Stop
// ============================================================================

func TestStopEmitsSingleArtifact(t *testing.T) {
	h := newTestRecorder(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))

	h.device.last().emit([]byte{0x01, 0x02})
	h.device.last().emit([]byte{0x03, 0x04})
	h.clk.Advance(3 * time.Second)
	waitElapsed(t, h, 3)

	require.NoError(t, h.rec.Stop(ctx))
	assert.Equal(t, StateIdle, h.rec.State())
	require.Equal(t, 1, h.artifactCount())

	a := h.lastArtifact()
	assert.Equal(t, audio.MIMEWAV, a.MIMEType)
	assert.Equal(t, 3, a.DurationSeconds)
	// WAV container around the 4 concatenated PCM bytes
	require.Greater(t, len(a.Data), 44)
	assert.Equal(t, "RIFF", string(a.Data[0:4]))
	assert.Equal(t, "WAVE", string(a.Data[8:12]))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, a.Data[44:])
}

func TestStopPreservesChunkOrder(t *testing.T) {
	h := newTestRecorder(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))

	for i := 0; i < 5; i++ {
		h.device.last().emit([]byte{byte(i)})
	}
	require.NoError(t, h.rec.Stop(ctx))
	require.Equal(t, 1, h.artifactCount())
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, h.lastArtifact().Data[44:])
}

func TestStopWithoutChunksEmitsNothing(t *testing.T) {
	h := newTestRecorder(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))
	require.NoError(t, h.rec.Stop(ctx))
	assert.Equal(t, 0, h.artifactCount())
	assert.Equal(t, StateIdle, h.rec.State())
}

func TestStopWhileIdleIsRejected(t *testing.T) {
	h := newTestRecorder(t, Config{})
	assert.ErrorIs(t, h.rec.Stop(context.Background()), ErrInvalidState)
}

func TestStopKeepsNativeMIMEType(t *testing.T) {
	h := newTestRecorder(t, Config{})
	h.device.mimeType = "audio/webm"
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))
	h.device.last().emit([]byte{0xAA})
	require.NoError(t, h.rec.Stop(ctx))
	require.Equal(t, 1, h.artifactCount())

	a := h.lastArtifact()
	assert.Equal(t, "audio/webm", a.MIMEType)
	assert.Equal(t, []byte{0xAA}, a.Data, "non-PCM blobs are emitted as-is")
}

// ============================================================================
// Auto-stop
// ============================================================================

func TestAutoStopAtMaxDuration(t *testing.T) {
	h := newTestRecorder(t, Config{MaxDuration: 2 * time.Second})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))
	h.device.last().emit([]byte{0x01, 0x02})

	h.clk.Advance(2 * time.Second)

	require.Eventually(t, func() bool {
		return h.rec.State() == StateIdle && h.artifactCount() == 1
	}, time.Second, time.Millisecond)

	a := h.lastArtifact()
	assert.Equal(t, 2, a.DurationSeconds)

	// the ceiling emits exactly one artifact even if time keeps flowing
	h.clk.Advance(5 * time.Second)
	assert.Equal(t, 1, h.artifactCount())
}

func TestAutoStopAllowsFreshStart(t *testing.T) {
	h := newTestRecorder(t, Config{MaxDuration: time.Second})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))
	h.device.last().emit([]byte{0x01})
	h.clk.Advance(time.Second)
	require.Eventually(t, func() bool { return h.rec.State() == StateIdle }, time.Second, time.Millisecond)

	require.NoError(t, h.rec.Start(ctx))
	assert.Equal(t, StateRecording, h.rec.State())
	assert.Equal(t, 0, h.rec.ElapsedSeconds())
}

// ============================================================================
// Cancel
// ============================================================================

func TestCancelEmitsNothingAndReleasesDevice(t *testing.T) {
	h := newTestRecorder(t, Config{})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))
	h.device.last().emit([]byte{0x01})
	h.clk.Advance(time.Second)

	h.rec.Cancel()
	assert.Equal(t, StateIdle, h.rec.State())
	assert.Equal(t, 0, h.artifactCount())
	assert.True(t, h.device.last().isClosed(), "device must be released")

	// a subsequent start succeeds
	require.NoError(t, h.rec.Start(ctx))
	assert.Equal(t, StateRecording, h.rec.State())
}

func TestCancelWhileIdleIsNoOp(t *testing.T) {
	h := newTestRecorder(t, Config{})
	h.rec.Cancel()
	assert.Equal(t, StateIdle, h.rec.State())
}

func TestStopAfterCancelIsRejected(t *testing.T) {
	h := newTestRecorder(t, Config{})
	require.NoError(t, h.rec.Start(context.Background()))
	h.rec.Cancel()
	assert.ErrorIs(t, h.rec.Stop(context.Background()), ErrInvalidState)
	assert.Equal(t, 0, h.artifactCount())
}

// ============================================================================
// Record-then-send round trip
// ============================================================================

// A 3s recording on a 15s ceiling is stopped, base64-encoded and posted
// to the assistant service; the exchange succeeds and the recorder is
// back at idle, ready for a fresh start.
func TestRecordThenSendLeavesRecorderIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req assistant.SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		blob, err := utils.Base64ToBlob(req.AudioBase64)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(blob[:4]), "assistant receives the finalized WAV artifact")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(assistant.SendResponse{Response: "ok", Suggestions: []string{}})
	}))
	defer srv.Close()

	h := newTestRecorder(t, Config{MaxDuration: 15 * time.Second})
	ctx := context.Background()
	require.NoError(t, h.rec.Start(ctx))

	h.device.last().emit([]byte{0x01, 0x02})
	h.clk.Advance(3 * time.Second)
	waitElapsed(t, h, 3)
	require.NoError(t, h.rec.Stop(ctx))
	require.Equal(t, 1, h.artifactCount())

	a := h.lastArtifact()
	assert.Equal(t, 3, a.DurationSeconds)
	assert.Equal(t, audio.MIMEWAV, a.MIMEType)

	client := assistant.NewClient(newTestLogger(t), srv.URL)
	resp, err := client.Send(ctx, assistant.SendRequest{
		AudioBase64: utils.BlobToBase64(a.Data),
		SessionKey:  "chat_1700000000000_u_42",
		Language:    "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Response)
	assert.Empty(t, resp.Suggestions)

	assert.Equal(t, StateIdle, h.rec.State())
	require.NoError(t, h.rec.Start(ctx))
	assert.Equal(t, StateRecording, h.rec.State())
}

// ============================================================================
// Stale async guard
// ============================================================================

// slowDevice parks Open until released, simulating a permission prompt
// that resolves after the caller moved on.
type slowDevice struct {
	release chan struct{}
	capture *fakeCapture
}

func (d *slowDevice) Open(ctx context.Context, cfg audio.Config) (audio.Capture, error) {
	<-d.release
	d.capture = newFakeCapture(audio.MIMEPCM)
	return d.capture, nil
}

func TestCancelDuringAcquisitionDiscardsGrant(t *testing.T) {
	device := &slowDevice{release: make(chan struct{})}
	clk := clock.NewFake(time.Unix(1700000000, 0))
	rec := New(newTestLogger(t), device, Config{}, WithClock(clk))

	done := make(chan error, 1)
	go func() { done <- rec.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		return rec.State() == StateRecording
	}, time.Second, time.Millisecond)

	rec.Cancel()
	assert.Equal(t, StateIdle, rec.State())

	// the grant resolves after cancellation: it must be discarded, closed,
	// and must not resurrect the session
	close(device.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, rec.State())
	require.Eventually(t, func() bool {
		return device.capture.isClosed()
	}, time.Second, time.Millisecond, "stale capture must be released")
}
