// Package formatter abstracts WAMP message (de)serialization. The
// router core depends only on this interface: it never inspects a
// payload's internal structure, only forwards the opaque Args/KwArgs
// value handles a Formatter hands it, per spec.md §1/§4.1.
package formatter

import "github.com/CHOUAiB/wampcore/pkg/wamp"

// Formatter turns wire frames into wamp.Message values and back. A
// Formatter is stateless and safe for concurrent use across sessions;
// concrete implementations live under internal/formatter.
type Formatter interface {
	// Name is the subprotocol string this formatter serves, e.g.
	// "wamp.2.json" — used by internal/transport's binding registry.
	Name() string

	// Binary reports whether this formatter's frames are binary (true)
	// or UTF-8 text (false), per the transport's framing requirements.
	Binary() bool

	// Encode renders a message as wire bytes.
	Encode(msg *wamp.Message) ([]byte, error)

	// Decode parses wire bytes into a message. It returns a
	// *wamperr.Error of CategoryProtocol for malformed frames.
	Decode(frame []byte) (*wamp.Message, error)
}
