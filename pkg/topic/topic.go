// Package topic defines the public data model for the pub/sub side of
// the router: subscriptions and the read-only view of a live topic
// entry that the admin surface introspects. The mutable implementation
// lives in internal/topiccontainer.
package topic

import "github.com/CHOUAiB/wampcore/pkg/wamp"

// Subscription is a single (session, uri, policy) binding, per
// spec.md §3. At most one Subscription exists for any given tuple.
type Subscription struct {
	ID        uint64
	SessionID uint64
	URI       string
	Policy    wamp.MatchPolicy
}

// Info is a read-only snapshot of a live topic entry, used by the admin
// API to list topics and subscriber counts without exposing the
// container's internal locking.
type Info struct {
	URI         string
	Policy      wamp.MatchPolicy
	Subscribers int
	Persistent  bool
	Publications uint64
}

// Observer receives lifecycle notifications from the topic container.
// Both callbacks fire exactly once per event, per spec.md §9's
// GetOrAdd-race design note: Created fires inside the creation closure,
// Removed fires only for the identity-checked winner of a removal race.
type Observer interface {
	TopicCreated(info Info)
	TopicRemoved(info Info)
}

// NopObserver satisfies Observer by doing nothing; the zero value of
// this type is the default when a container is built without one.
type NopObserver struct{}

func (NopObserver) TopicCreated(Info) {}
func (NopObserver) TopicRemoved(Info) {}
