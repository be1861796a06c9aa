// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package utils

import "encoding/base64"

// BlobToBase64 encodes an audio blob for JSON transport to the assistant
// service. Pure conversion, no state involved.
func BlobToBase64(blob []byte) string {
	return base64.StdEncoding.EncodeToString(blob)
}

// Base64ToBlob is the inverse of BlobToBase64.
func Base64ToBlob(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
