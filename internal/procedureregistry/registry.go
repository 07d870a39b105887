// Package procedureregistry implements the RPC side of the router:
// registration table, call-to-invocation correlation, progressive
// yields, and the three cancel modes. Reuses internal/topiccontainer's
// lock shape (structural mutex plus per-entity mutex) and the same
// back-reference bookkeeping style used for session teardown elsewhere
// in this codebase.
package procedureregistry

import (
	"sync"

	"github.com/CHOUAiB/wampcore/pkg/procedure"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wampid"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

type registrationRecord struct {
	id        uint64
	sessionID uint64
	sess      *session.Session
	uri       string
	policy    wamp.MatchPolicy
}

// pendingCall is the correlator state of spec.md §3's PendingCall: one
// call produces exactly one invocation, tracked from both the caller's
// and callee's side so disconnect cleanup is indexed rather than a full
// scan.
type pendingCall struct {
	mu sync.Mutex

	requestID    uint64
	invocationID uint64
	caller       *session.Session
	callee       *session.Session
	progress     bool // true once a progressive result has been sent
	done         bool
	cancelTimer  func() // stops the timeout timer, nil if no timeout
}

// Registry owns every live registration and pending call for one realm.
type Registry struct {
	mu sync.Mutex

	exact    map[string]*registrationRecord
	prefixes *prefixIndex
	wildcard map[int][]*registrationRecord

	byRegID map[uint64]*registrationRecord
	// byCallee and byCaller index pending calls for O(live calls) cleanup.
	byCallee map[uint64]map[uint64]*pendingCall // sessionID -> invocationID -> call
	byCaller map[uint64]map[uint64]*pendingCall // sessionID -> requestID -> call

	bySessionRegs map[uint64]map[uint64]*registrationRecord // registrations owned by a session
}

// New creates an empty procedure registry.
func New() *Registry {
	return &Registry{
		exact:         make(map[string]*registrationRecord),
		prefixes:      newPrefixIndex(),
		wildcard:      make(map[int][]*registrationRecord),
		byRegID:       make(map[uint64]*registrationRecord),
		byCallee:      make(map[uint64]map[uint64]*pendingCall),
		byCaller:      make(map[uint64]map[uint64]*pendingCall),
		bySessionRegs: make(map[uint64]map[uint64]*registrationRecord),
	}
}

// Register implements spec.md §4.2's Register operation: fails with
// procedure_already_exists when an exact or overlapping-pattern
// registration is already live.
func (r *Registry) Register(sess *session.Session, uri string, policy wamp.MatchPolicy) (uint64, error) {
	if !wamp.ValidURI(uri, policy) {
		return 0, wamperr.InvalidURI(uri)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictsLocked(uri, policy) {
		return 0, wamperr.ProcedureAlreadyExists(uri)
	}

	id, err := wampid.New(func(id uint64) bool { _, exists := r.byRegID[id]; return exists })
	if err != nil {
		return 0, err
	}

	rec := &registrationRecord{id: id, sessionID: sess.ID, sess: sess, uri: uri, policy: policy}
	switch policy {
	case wamp.MatchExact:
		r.exact[uri] = rec
	case wamp.MatchPrefix:
		r.prefixes.insert(uri, rec)
	default:
		arity := len(wamp.Components(uri))
		r.wildcard[arity] = append(r.wildcard[arity], rec)
	}
	r.byRegID[id] = rec
	if r.bySessionRegs[sess.ID] == nil {
		r.bySessionRegs[sess.ID] = make(map[uint64]*registrationRecord)
	}
	r.bySessionRegs[sess.ID][id] = rec

	return id, nil
}

// conflictsLocked reports whether uri/policy collides with a live
// registration of the same policy: an exact registration conflicts with
// an identical exact URI; a prefix registration conflicts with an
// identical live prefix; a wildcard registration conflicts with any live
// wildcard pattern of the same arity that some URI could match together
// with it (every pair of components is equal or has an empty side).
// Registrations of different policies never conflict.
func (r *Registry) conflictsLocked(uri string, policy wamp.MatchPolicy) bool {
	switch policy {
	case wamp.MatchExact:
		_, exists := r.exact[uri]
		return exists
	case wamp.MatchPrefix:
		return r.prefixes.has(uri)
	default:
		comps := wamp.Components(uri)
		for _, rec := range r.wildcard[len(comps)] {
			other := wamp.Components(rec.uri)
			overlap := true
			for i := range comps {
				if comps[i] != "" && other[i] != "" && comps[i] != other[i] {
					overlap = false
					break
				}
			}
			if overlap {
				return true
			}
		}
		return false
	}
}

// Unregister implements spec.md §4.2's Unregister operation.
func (r *Registry) Unregister(sessionID, registrationID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byRegID[registrationID]
	if !ok || rec.sessionID != sessionID {
		return wamperr.NoSuchRegistration(registrationID)
	}
	r.removeRegistrationLocked(rec)
	return nil
}

func (r *Registry) removeRegistrationLocked(rec *registrationRecord) {
	delete(r.byRegID, rec.id)
	if regs, ok := r.bySessionRegs[rec.sessionID]; ok {
		delete(regs, rec.id)
		if len(regs) == 0 {
			delete(r.bySessionRegs, rec.sessionID)
		}
	}
	switch rec.policy {
	case wamp.MatchExact:
		if r.exact[rec.uri] == rec {
			delete(r.exact, rec.uri)
		}
	case wamp.MatchPrefix:
		r.prefixes.remove(rec.uri, rec)
	default:
		arity := len(wamp.Components(rec.uri))
		bucket := r.wildcard[arity]
		for i, e := range bucket {
			if e == rec {
				r.wildcard[arity] = append(bucket[:i], bucket[i+1:]...)
				break
			}
		}
	}
}

// resolveLocked selects exactly one registration for uri, per spec.md
// §4.2: exact wins over prefix wins over wildcard; ties within a policy
// are resolved by lowest registration_id.
func (r *Registry) resolveLocked(uri string) *registrationRecord {
	if rec, ok := r.exact[uri]; ok {
		return rec
	}
	if recs := r.prefixes.matches(uri); len(recs) > 0 {
		return lowestID(recs)
	}
	arity := len(wamp.Components(uri))
	var wildcardMatches []*registrationRecord
	for _, rec := range r.wildcard[arity] {
		if wamp.WildcardMatches(rec.uri, uri) {
			wildcardMatches = append(wildcardMatches, rec)
		}
	}
	if len(wildcardMatches) > 0 {
		return lowestID(wildcardMatches)
	}
	return nil
}

func lowestID(recs []*registrationRecord) *registrationRecord {
	best := recs[0]
	for _, rec := range recs[1:] {
		if rec.id < best.id {
			best = rec
		}
	}
	return best
}

// Registrations returns a snapshot of live registrations, for the admin
// surface.
func (r *Registry) Registrations() []procedure.Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []procedure.Info
	for _, rec := range r.byRegID {
		out = append(out, procedure.Info{
			URI:       rec.uri,
			Policy:    rec.policy,
			SessionID: rec.sessionID,
			Pending:   len(r.byCallee[rec.sessionID]),
		})
	}
	return out
}
