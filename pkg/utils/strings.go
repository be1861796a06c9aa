// Copyright (c) 2024-2026 Voyago
// Author: Voyago Engineering <dev@voyago.app>
//
// Licensed under GPL-2.0 with Voyago Additional Terms.
// See LICENSE.md for commercial usage.
package utils

import "strings"

// IsEmpty reports whether the string is blank after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}
