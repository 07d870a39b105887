// Package topiccontainer implements the pub/sub topic container:
// subscribe/unsubscribe/publish across exact, prefix, and wildcard match
// policies, with lazy topic creation and empty-topic destruction. Follows
// pkg/topic's interface vocabulary and a coarse structural mutex plus
// per-entity mutex locking style, the same shape used elsewhere in this
// codebase for concurrent container types.
package topiccontainer

import (
	"sync"

	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/topic"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wampid"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

// subscriptionKey identifies the (session, uri, policy) tuple spec.md
// §3 guarantees at most one live Subscription for.
type subscriptionKey struct {
	sessionID uint64
	uri       string
	policy    wamp.MatchPolicy
}

type subscriptionRecord struct {
	id        uint64
	sessionID uint64
	sess      *session.Session
	uri       string
	policy    wamp.MatchPolicy
	entry     *topicEntry
}

// topicEntry is one live topic (or stored pattern), per spec.md §3's
// "Topic entry". Its own mutex guards the subscriber slice so Publish
// can snapshot it without holding the container's structural mutex.
type topicEntry struct {
	mu           sync.Mutex
	uri          string
	policy       wamp.MatchPolicy
	subscribers  []*subscriptionRecord
	persistent   bool
	publications uint64
}

func (e *topicEntry) info() topic.Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return topic.Info{
		URI:          e.uri,
		Policy:       e.policy,
		Subscribers:  len(e.subscribers),
		Persistent:   e.persistent,
		Publications: e.publications,
	}
}

// snapshot returns the current subscriber slice under the entry's own
// lock. Per spec.md §4.1's concurrency rule, Publish must observe a
// consistent snapshot at the moment it starts iterating; subscribes
// that race with an in-flight publish may or may not be included in
// that snapshot, but the snapshot itself is never torn.
func (e *topicEntry) snapshot() []*subscriptionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*subscriptionRecord, len(e.subscribers))
	copy(out, e.subscribers)
	return out
}

func (e *topicEntry) add(rec *subscriptionRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, rec)
}

// remove deletes rec from the subscriber slice and reports whether the
// entry is now empty.
func (e *topicEntry) remove(id uint64) (empty bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.subscribers {
		if s.id == id {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			break
		}
	}
	return len(e.subscribers) == 0
}

// Container owns every live topic entry for one realm: the exact-match
// map, the prefix trie, and the wildcard buckets, plus the indices
// needed for O(1) idempotent subscribe and O(live subs) session
// teardown. One Container exists per realm; internal/router keys a map
// of these by realm name.
type Container struct {
	mu sync.Mutex

	exact    map[string]*topicEntry
	prefixes *trieNode
	wildcard map[int][]*topicEntry // keyed by component arity

	byID  map[uint64]*subscriptionRecord
	byKey map[subscriptionKey]*subscriptionRecord

	// bySession indexes a session's subscriptions for O(live subs)
	// teardown on disconnect, per spec.md §9's cyclic-ownership note.
	bySession map[uint64]map[uint64]*subscriptionRecord

	observer topic.Observer
}

// New creates an empty topic container. A nil observer is replaced with
// a no-op one.
func New(observer topic.Observer) *Container {
	if observer == nil {
		observer = topic.NopObserver{}
	}
	return &Container{
		exact:     make(map[string]*topicEntry),
		prefixes:  newTrieNode(),
		wildcard:  make(map[int][]*topicEntry),
		byID:      make(map[uint64]*subscriptionRecord),
		byKey:     make(map[subscriptionKey]*subscriptionRecord),
		bySession: make(map[uint64]map[uint64]*subscriptionRecord),
		observer:  observer,
	}
}

// Subscribe implements spec.md §4.1's Subscribe operation: idempotent
// per (session, uri, policy), lazily creating the topic entry.
func (c *Container) Subscribe(sess *session.Session, uri string, policy wamp.MatchPolicy) (uint64, error) {
	if !wamp.ValidURI(uri, policy) {
		return 0, wamperr.InvalidURI(uri)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := subscriptionKey{sessionID: sess.ID, uri: uri, policy: policy}
	if existing, ok := c.byKey[key]; ok {
		return existing.id, nil
	}

	entry := c.getOrCreateLocked(uri, policy)

	id, err := wampid.New(func(id uint64) bool { _, exists := c.byID[id]; return exists })
	if err != nil {
		return 0, err
	}

	rec := &subscriptionRecord{id: id, sessionID: sess.ID, sess: sess, uri: uri, policy: policy, entry: entry}
	entry.add(rec)
	c.byID[id] = rec
	c.byKey[key] = rec
	if c.bySession[sess.ID] == nil {
		c.bySession[sess.ID] = make(map[uint64]*subscriptionRecord)
	}
	c.bySession[sess.ID][id] = rec

	return id, nil
}

// getOrCreateLocked returns the topic entry for (uri, policy), creating
// it if absent. The TopicCreated observer callback fires exactly once,
// inside this closure, per spec.md §9's GetOrAdd design note — it is
// never deferred to after the lookup, which is what would let two
// concurrent creators both believe they created the entry.
func (c *Container) getOrCreateLocked(uri string, policy wamp.MatchPolicy) *topicEntry {
	switch policy {
	case wamp.MatchExact:
		if e, ok := c.exact[uri]; ok {
			return e
		}
		e := &topicEntry{uri: uri, policy: policy}
		c.exact[uri] = e
		c.observer.TopicCreated(e.info())
		return e
	case wamp.MatchPrefix:
		node := c.prefixes.getOrCreatePath(wamp.Components(uri))
		if node.entry != nil {
			return node.entry
		}
		e := &topicEntry{uri: uri, policy: policy}
		node.entry = e
		c.observer.TopicCreated(e.info())
		return e
	default: // wildcard
		arity := len(wamp.Components(uri))
		for _, e := range c.wildcard[arity] {
			if e.uri == uri {
				return e
			}
		}
		e := &topicEntry{uri: uri, policy: policy}
		c.wildcard[arity] = append(c.wildcard[arity], e)
		c.observer.TopicCreated(e.info())
		return e
	}
}

// Unsubscribe implements spec.md §4.1's Unsubscribe operation.
func (c *Container) Unsubscribe(sessionID, subscriptionID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.byID[subscriptionID]
	if !ok || rec.sessionID != sessionID {
		return wamperr.NoSuchSubscription(subscriptionID)
	}

	c.removeRecordLocked(rec)
	return nil
}

// removeRecordLocked detaches rec from every index and, if its entry
// becomes empty and non-persistent, removes the entry too — guarded by
// the identity check of spec.md §4.1 ("if and only if it is still the
// same object registered") so a create-during-remove race can never
// delete a topic a fresh subscriber just attached to.
func (c *Container) removeRecordLocked(rec *subscriptionRecord) {
	delete(c.byID, rec.id)
	delete(c.byKey, subscriptionKey{sessionID: rec.sessionID, uri: rec.uri, policy: rec.policy})
	if subs, ok := c.bySession[rec.sessionID]; ok {
		delete(subs, rec.id)
		if len(subs) == 0 {
			delete(c.bySession, rec.sessionID)
		}
	}

	empty := rec.entry.remove(rec.id)
	if !empty || rec.entry.persistent {
		return
	}

	switch rec.policy {
	case wamp.MatchExact:
		if c.exact[rec.uri] == rec.entry {
			delete(c.exact, rec.uri)
			c.observer.TopicRemoved(rec.entry.info())
		}
	case wamp.MatchPrefix:
		node := c.prefixes.find(wamp.Components(rec.uri))
		if node != nil && node.entry == rec.entry {
			node.entry = nil
			c.observer.TopicRemoved(rec.entry.info())
		}
	default: // wildcard
		arity := len(wamp.Components(rec.uri))
		bucket := c.wildcard[arity]
		for i, e := range bucket {
			if e == rec.entry {
				c.wildcard[arity] = append(bucket[:i], bucket[i+1:]...)
				c.observer.TopicRemoved(rec.entry.info())
				break
			}
		}
	}
}

// RemoveSession revokes every subscription belonging to sessionID,
// atomically with respect to new inbound messages from other sessions
// (RemoveSession holds the container lock for the whole teardown), per
// spec.md §3's session-termination invariant.
func (c *Container) RemoveSession(sessionID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.bySession[sessionID]
	if len(subs) == 0 {
		return
	}
	recs := make([]*subscriptionRecord, 0, len(subs))
	for _, rec := range subs {
		recs = append(recs, rec)
	}
	for _, rec := range recs {
		c.removeRecordLocked(rec)
	}
}

// matchEntries returns every live topic entry that matches uri across
// all three policies, per spec.md §4.1: "A single publish may match
// zero, one, or many topic entries across the three policies."
func (c *Container) matchEntries(uri string) []*topicEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []*topicEntry
	if e, ok := c.exact[uri]; ok {
		matched = append(matched, e)
	}
	matched = append(matched, c.prefixes.matchPrefixes(wamp.Components(uri))...)
	arity := len(wamp.Components(uri))
	for _, e := range c.wildcard[arity] {
		if wamp.WildcardMatches(e.uri, uri) {
			matched = append(matched, e)
		}
	}
	return matched
}

// MarkPersistent flags the topic entry at uri/policy as persistent, so
// it survives becoming empty. Used by administrators pre-provisioning
// well-known topics; lazily-created topics default to non-persistent.
func (c *Container) MarkPersistent(uri string, policy wamp.MatchPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.getOrCreateLocked(uri, policy)
	e.mu.Lock()
	e.persistent = true
	e.mu.Unlock()
}

// Topics returns a snapshot of every live topic entry, for the admin
// introspection surface.
func (c *Container) Topics() []topic.Info {
	c.mu.Lock()
	entries := make([]*topicEntry, 0, len(c.exact))
	for _, e := range c.exact {
		entries = append(entries, e)
	}
	entries = append(entries, c.prefixes.allEntries()...)
	for _, bucket := range c.wildcard {
		entries = append(entries, bucket...)
	}
	c.mu.Unlock()

	infos := make([]topic.Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, e.info())
	}
	return infos
}
