package topiccontainer

import (
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

// PublishOptions carries the subset of PUBLISH options spec.md §6
// assigns routing effect to.
type PublishOptions struct {
	ExcludeMe bool
	Exclude   map[uint64]bool
	Eligible  map[uint64]bool // nil means "everyone is eligible"
}

// Publish implements spec.md §4.1's Publish operation: it returns true
// iff at least one topic entry matched uri, and delivers one EVENT per
// matching subscription with a shared publicationID and insertion-order
// delivery within each topic entry.
//
// The caller (internal/router) supplies publisherID and publicationID;
// this package holds no session table and cannot allocate a publication
// id unaided.
func (c *Container) Publish(publisherID, publicationID uint64, uri string, args []interface{}, kwargs map[string]interface{}, opts PublishOptions) bool {
	entries := c.matchEntries(uri)
	if len(entries) == 0 {
		return false
	}

	for _, entry := range entries {
		entry.mu.Lock()
		entry.publications++
		entry.mu.Unlock()

		// Snapshot happens-before any delivery for this entry, per
		// spec.md §4.1's concurrency rule: Publish observes a
		// consistent snapshot and never delivers a partial one.
		subs := entry.snapshot()
		for _, rec := range subs {
			if opts.ExcludeMe && rec.sessionID == publisherID {
				continue
			}
			if opts.Exclude != nil && opts.Exclude[rec.sessionID] {
				continue
			}
			if opts.Eligible != nil && !opts.Eligible[rec.sessionID] {
				continue
			}
			msg := &wamp.Message{
				Type:         wamp.TypeEvent,
				Subscription: rec.id,
				Publication:  publicationID,
				Args:         args,
				KwArgs:       kwargs,
			}
			// Send failures are the connection's problem, not the
			// container's: a dead connection surfaces through its own
			// OnClosed/session-termination path, which will in turn
			// call RemoveSession. No lock is held across this call,
			// per spec.md §5 ("no locks are held while sending on a
			// connection").
			_ = rec.sess.Conn.Send(msg)
		}
	}
	return true
}
