// Package wampid mints the 64-bit identifiers used for sessions,
// subscriptions, registrations, and publications.
package wampid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Checker reports whether an id is already in use. New rejects any id
// for which Checker returns true and draws again.
type Checker func(id uint64) bool

// maxAttempts bounds the retry loop so a pathological Checker (one that
// always returns true) cannot hang New forever.
const maxAttempts = 1 << 16

// New draws a random non-zero uint64 that live reports as unused. WAMP
// ids are conventionally drawn from [0, 2^53) so they round-trip through
// JSON numbers in other implementations, but this router's formatters
// carry ids as native integers, so the full uint64 range is used.
func New(live Checker) (uint64, error) {
	var buf [8]byte
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, fmt.Errorf("wampid: read random bytes: %w", err)
		}
		id := binary.BigEndian.Uint64(buf[:])
		if id == 0 {
			continue
		}
		if live != nil && live(id) {
			continue
		}
		return id, nil
	}
	return 0, fmt.Errorf("wampid: exhausted %d attempts without a free id", maxAttempts)
}
