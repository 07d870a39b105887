// Package session defines the connection abstraction and session data
// model shared by internal/router, internal/topiccontainer, and
// internal/procedureregistry. It is the seam spec.md §1 draws around
// "transport driver": nothing in this package or its callers knows how
// bytes get to a peer.
package session

import (
	"context"

	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

// State is a session's position in the opening/established/closing/
// closed state machine of spec.md §4.3.
type State int

const (
	StateOpening State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role is one bit of the {publisher, subscriber, caller, callee} role
// set a session advertises in HELLO, per spec.md §3.
type Role int

const (
	RolePublisher Role = 1 << iota
	RoleSubscriber
	RoleCaller
	RoleCallee
)

// Roles is a bitset of the advertised roles.
type Roles int

func (r Roles) Has(role Role) bool { return r&Roles(role) != 0 }

// Connection is the transport-agnostic handle a session sends and
// receives framed protocol messages through, per spec.md §4.5. The
// concrete implementation (internal/transport's framed connection) wraps
// a raw transport connection such as one from internal/transport/wslisten;
// channel-backed, net.Pipe-shaped implementations exist purely for tests.
type Connection interface {
	// Send enqueues one protocol message and returns once it is handed
	// to the transport's send buffer — not once it reaches the peer.
	Send(msg *wamp.Message) error

	// Receive returns the next inbound message, blocking until one
	// arrives, the connection closes, or ctx is done. A closed
	// connection yields io.EOF.
	Receive(ctx context.Context) (*wamp.Message, error)

	// Close initiates a graceful close with the given human-readable
	// reason. It takes no WAMP close code.
	Close(reason string) error

	// OnClosed returns a channel that is closed exactly once, when the
	// connection has fully torn down (whether via Close or a transport
	// failure).
	OnClosed() <-chan struct{}
}

// Session is the router's view of one connected client: identity,
// realm, advertised roles, and the connection used to reach it. The
// state machine is managed by internal/router, which is the sole mutator
// of live sessions; the session's subscription and registration id sets
// are indexed by internal/topiccontainer and internal/procedureregistry.
// This type is the value object passed to
// internal/topiccontainer and internal/procedureregistry as a back
// reference (spec.md §9's "weak reference" to a session).
type Session struct {
	ID    uint64
	Realm string
	Roles Roles
	Conn  Connection
}
