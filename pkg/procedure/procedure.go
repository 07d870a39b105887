// Package procedure defines the public data model for the RPC side of
// the router: registrations and the read-only view of a live
// registration the admin surface introspects. The mutable
// implementation lives in internal/procedureregistry.
package procedure

import "github.com/CHOUAiB/wampcore/pkg/wamp"

// Registration binds a procedure URI to the single session currently
// registered as its callee, per spec.md §3.
type Registration struct {
	ID        uint64
	SessionID uint64
	URI       string
	Policy    wamp.MatchPolicy
}

// CancelMode selects how CANCEL is handled, per spec.md §4.2.
type CancelMode int

const (
	CancelSkip CancelMode = iota
	CancelKill
	CancelKillNoWait
)

// ParseCancelMode resolves the CANCEL options.mode string, defaulting
// to skip per the WAMP v2 advanced profile default.
func ParseCancelMode(s string) (CancelMode, bool) {
	switch s {
	case "", "skip":
		return CancelSkip, true
	case "kill":
		return CancelKill, true
	case "killnowait":
		return CancelKillNoWait, true
	default:
		return CancelSkip, false
	}
}

// Info is a read-only snapshot of a live registration, used by the
// admin API.
type Info struct {
	URI        string
	Policy     wamp.MatchPolicy
	SessionID  uint64
	Pending    int
}
