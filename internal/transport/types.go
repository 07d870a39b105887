// Package transport defines the binding-registry abstraction the
// transport multiplexer (spec.md §4.4) uses to turn a raw accepted
// connection into a framed, formatted session.Connection. Concrete raw
// transports (e.g. a WebSocket listener) live under internal/transport.
package transport

import (
	"context"

	"github.com/CHOUAiB/wampcore/pkg/formatter"
	"github.com/CHOUAiB/wampcore/pkg/session"
)

// RawConn is the minimal shape the multiplexer needs from an accepted
// transport connection, before it has been wrapped by a Binding: enough
// to read the peer's declared subprotocol and to hand frames back and
// forth once a Binding has been selected. Concrete transports (e.g.
// gorilla/websocket) adapt their native connection type to this.
type RawConn interface {
	// Subprotocol is the subprotocol string the peer negotiated during
	// the transport handshake (e.g. a WebSocket Sec-WebSocket-Protocol
	// value), used to select a Binding.
	Subprotocol() string

	// ReadFrame/WriteFrame move one frame of the negotiated subprotocol
	// across the wire; framing (text vs binary) is the raw transport's
	// concern, not the binding's.
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, data []byte) error

	Close() error
}

// Binding pairs a subprotocol name with a Formatter, per spec.md §4.4:
// "each [binding] declares (a) a unique subprotocol name, (b) whether
// it is text- or binary-framed, and (c) a formatter."
type Binding struct {
	Subprotocol string
	Formatter   formatter.Formatter
}

// Wrap adapts a raw accepted connection into a session.Connection using
// this binding's formatter, spinning up the read/write pumps that keep
// Connection.Send non-blocking past the buffered channel put.
func (b Binding) Wrap(raw RawConn) session.Connection {
	return newFramedConnection(raw, b.Formatter)
}

// Source is the push stream of newly accepted raw connections a raw
// transport driver offers the multiplexer, per spec.md §9's "observable
// streams of new connections" design note, re-expressed as a channel
// pair instead of a reactive stream.
type Source interface {
	// Accept blocks until a new raw connection arrives or the source is
	// closed, in which case it returns a non-nil error.
	Accept(ctx context.Context) (RawConn, error)

	Close() error
}
