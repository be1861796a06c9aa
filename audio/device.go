// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package audio

import "context"

// Device abstracts the platform's microphone input facility. Open blocks
// until the device is granted or refused; the returned Capture is owned
// exclusively by one recording session.
type Device interface {
	Open(ctx context.Context, cfg Config) (Capture, error)
}

// Capture is a live capture/encoder handle.
//
// While open, the encoder flushes fragments onto Chunks at the configured
// chunk interval, in emission order. Finalize asks the encoder to flush
// whatever is pending; Close releases the device immediately, discarding
// pending data. Both cause Chunks to be closed.
type Capture interface {
	Chunks() <-chan []byte
	Finalize(ctx context.Context) error
	Close() error
	// MIMEType is the encoder's native output type for the negotiated
	// format (MIMEPCM for raw LINEAR16 fragments).
	MIMEType() string
}
