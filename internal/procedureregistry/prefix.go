package procedureregistry

import "github.com/CHOUAiB/wampcore/pkg/wamp"

// prefixIndex tracks prefix-policy registrations. Unlike
// internal/topiccontainer's trie (built for high-volume subscriber
// fan-out), the registry's prefix set is expected to stay small — one
// registration per procedure family — so a linear scan trades a little
// lookup speed for a much simpler overlap check, which prefix
// registrations need and topic subscriptions don't.
type prefixIndex struct {
	entries []*registrationRecord
}

func newPrefixIndex() *prefixIndex {
	return &prefixIndex{}
}

// has reports whether uri overlaps any already-registered prefix
// pattern: two prefix patterns overlap when one is a component-aligned
// prefix of the other, per spec.md §4.2 ("overlapping patterns
// conflict").
func (p *prefixIndex) has(uri string) bool {
	for _, rec := range p.entries {
		if wamp.PrefixMatches(rec.uri, uri) || wamp.PrefixMatches(uri, rec.uri) {
			return true
		}
	}
	return false
}

func (p *prefixIndex) insert(uri string, rec *registrationRecord) {
	p.entries = append(p.entries, rec)
}

func (p *prefixIndex) remove(uri string, rec *registrationRecord) {
	for i, e := range p.entries {
		if e == rec {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			return
		}
	}
}

// matches returns every registered prefix pattern that is a
// component-aligned prefix of uri, per spec.md §4.2's call-routing
// match policy.
func (p *prefixIndex) matches(uri string) []*registrationRecord {
	var out []*registrationRecord
	for _, rec := range p.entries {
		if wamp.PrefixMatches(rec.uri, uri) {
			out = append(out, rec)
		}
	}
	return out
}
