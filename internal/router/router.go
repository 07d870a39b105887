// Package router implements the session router of spec.md §4.3: it
// owns the session table, demultiplexes inbound WAMP messages to the
// per-realm topic container and procedure registry, and forwards
// outbound messages through each session's connection. Grounded on
// internal/meshnode.GRPCMeshNode's lifecycle-booleans-under-RWMutex
// shape, generalized from one mesh node's lifecycle to N per-session
// state machines.
package router

import (
	"sync"

	"github.com/CHOUAiB/wampcore/internal/logging"
	"github.com/CHOUAiB/wampcore/internal/metrics"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/topic"
	"github.com/CHOUAiB/wampcore/pkg/wampid"
)

// AcceptHook is the external authentication/authorization collaborator
// spec.md §1 scopes out of the core: it decides whether a HELLO for the
// given realm is accepted, and if not, why. The default AllowAll
// accepts every HELLO.
type AcceptHook func(realm string, details map[string]interface{}) (accept bool, reason string)

// AllowAll is the default AcceptHook: every HELLO is accepted.
func AllowAll(realm string, details map[string]interface{}) (bool, string) { return true, "" }

// liveSession is the router's bookkeeping for one connected client: the
// public session.Session value object plus the state machine and realm
// it belongs to. Only the router mutates state; topiccontainer and
// procedureregistry only ever read the embedded session.Session via a
// back reference, per spec.md §9.
type liveSession struct {
	mu    sync.Mutex
	state session.State
	sess  *session.Session
	realm *realm
}

func (s *liveSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *liveSession) setState(st session.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Router owns every connected session and every realm's routing state.
// One Router serves an entire process; internal/transport delivers each
// newly accepted connection to Router.Serve in its own goroutine.
type Router struct {
	mu       sync.RWMutex
	sessions map[uint64]*liveSession
	realms   map[string]*realm

	accept   AcceptHook
	logger   logging.Logger
	metrics  *metrics.Metrics
	observer topic.Observer
}

// Option configures a Router at construction time.
type Option func(*Router)

func WithAcceptHook(hook AcceptHook) Option {
	return func(r *Router) { r.accept = hook }
}

func WithLogger(logger logging.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

func WithTopicObserver(obs topic.Observer) Option {
	return func(r *Router) { r.observer = obs }
}

// New creates a Router with no live sessions or realms.
func New(opts ...Option) *Router {
	r := &Router{
		sessions: make(map[uint64]*liveSession),
		realms:   make(map[string]*realm),
		accept:   AllowAll,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) realmFor(name string) *realm {
	r.mu.Lock()
	defer r.mu.Unlock()
	rl, ok := r.realms[name]
	if !ok {
		rl = newRealm(name, r.observer)
		r.realms[name] = rl
	}
	return rl
}

func (r *Router) addSession(ls *liveSession) {
	r.mu.Lock()
	r.sessions[ls.sess.ID] = ls
	r.mu.Unlock()
	if r.metrics != nil {
		r.metrics.SessionsOpened.Inc()
		r.metrics.SessionsActive.Inc()
	}
}

func (r *Router) removeSession(id uint64) {
	r.mu.Lock()
	_, existed := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if existed && r.metrics != nil {
		r.metrics.SessionsActive.Dec()
	}
}

func (r *Router) mintSessionID() (uint64, error) {
	return wampid.New(func(id uint64) bool {
		r.mu.RLock()
		_, exists := r.sessions[id]
		r.mu.RUnlock()
		return exists
	})
}

// Sessions returns a snapshot of every connected session, for the admin
// introspection surface.
func (r *Router) Sessions() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, ls := range r.sessions {
		out = append(out, SessionInfo{
			ID:    ls.sess.ID,
			Realm: ls.sess.Realm,
			State: ls.State().String(),
		})
	}
	return out
}

// SessionInfo is a read-only admin-facing snapshot of one session.
type SessionInfo struct {
	ID    uint64
	Realm string
	State string
}

// RealmNames returns the names of every realm that has accepted at
// least one HELLO.
func (r *Router) RealmNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.realms))
	for name := range r.realms {
		names = append(names, name)
	}
	return names
}

// Topics returns a snapshot of every live topic entry in realmName.
func (r *Router) Topics(realmName string) []topic.Info {
	r.mu.RLock()
	rl, ok := r.realms[realmName]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return rl.topics.Topics()
}

// Registrations returns a snapshot of every live registration in
// realmName.
func (r *Router) Registrations(realmName string) []ProcedureInfo {
	r.mu.RLock()
	rl, ok := r.realms[realmName]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	var out []ProcedureInfo
	for _, info := range rl.procs.Registrations() {
		out = append(out, ProcedureInfo{URI: info.URI, Policy: info.Policy.String(), SessionID: info.SessionID, Pending: info.Pending})
	}
	return out
}

// ProcedureInfo is the admin-facing rendering of procedure.Info (string
// policy instead of wamp.MatchPolicy, so internal/adminapi need not
// import pkg/wamp just to JSON-encode a registration).
type ProcedureInfo struct {
	URI       string
	Policy    string
	SessionID uint64
	Pending   int
}
