package router

import (
	"context"
	"io"

	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

// Serve runs the full per-session lifecycle for one accepted connection:
// HELLO negotiation, the established-state message loop, and teardown.
// It blocks until the session reaches closed. internal/transport calls
// this once per connection, in its own goroutine, so that inbound
// processing for different sessions never serializes on each other
// (spec.md §5: "cross-session dispatch ... may run in parallel").
//
// A panic inside this call is recovered so one crashing handler cannot
// bring down the router process, per spec.md §7's propagation policy.
func (r *Router) Serve(ctx context.Context, conn session.Connection) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered panic in session handler", "panic", rec)
			_ = conn.Close("internal error")
		}
	}()

	ls, ok := r.negotiateHello(ctx, conn)
	if !ok {
		return
	}
	defer r.teardown(ls)

	r.messageLoop(ctx, ls)
}

// negotiateHello handles the opening state: only HELLO is accepted;
// the response is WELCOME on acceptance or ABORT on rejection, per
// spec.md §4.3.
func (r *Router) negotiateHello(ctx context.Context, conn session.Connection) (*liveSession, bool) {
	msg, err := conn.Receive(ctx)
	if err != nil {
		return nil, false
	}
	if msg.Type != wamp.TypeHello {
		_ = conn.Send(&wamp.Message{Type: wamp.TypeAbort, Reason: wamperr.URIProtocolViolation,
			Details: map[string]interface{}{"message": "session must open with HELLO"}})
		_ = conn.Close("protocol violation")
		return nil, false
	}

	accept, reason := r.accept(msg.Realm, msg.Details)
	if !accept {
		_ = conn.Send(&wamp.Message{Type: wamp.TypeAbort, Reason: "wamp.error.not_authorized",
			Details: map[string]interface{}{"message": reason}})
		_ = conn.Close("not authorized")
		return nil, false
	}

	id, err := r.mintSessionID()
	if err != nil {
		_ = conn.Send(&wamp.Message{Type: wamp.TypeAbort, Reason: "wamp.error.system_shutdown"})
		_ = conn.Close("id exhaustion")
		return nil, false
	}

	roles := rolesFromDetails(msg.Details)
	sess := &session.Session{ID: id, Realm: msg.Realm, Roles: roles, Conn: conn}
	ls := &liveSession{state: session.StateEstablished, sess: sess, realm: r.realmFor(msg.Realm)}
	r.addSession(ls)

	_ = conn.Send(&wamp.Message{
		Type:    wamp.TypeWelcome,
		Session: id,
		Details: map[string]interface{}{
			"roles": map[string]interface{}{
				wamp.RoleBroker: map[string]interface{}{"features": wamp.BrokerFeatures()},
				wamp.RoleDealer: map[string]interface{}{"features": wamp.DealerFeatures()},
			},
		},
	})

	return ls, true
}

func rolesFromDetails(details map[string]interface{}) session.Roles {
	roleMap, _ := details["roles"].(map[string]interface{})
	var roles session.Roles
	if _, ok := roleMap[wamp.RolePublisher]; ok {
		roles |= session.Roles(session.RolePublisher)
	}
	if _, ok := roleMap[wamp.RoleSubscriber]; ok {
		roles |= session.Roles(session.RoleSubscriber)
	}
	if _, ok := roleMap[wamp.RoleCaller]; ok {
		roles |= session.Roles(session.RoleCaller)
	}
	if _, ok := roleMap[wamp.RoleCallee]; ok {
		roles |= session.Roles(session.RoleCallee)
	}
	return roles
}

// messageLoop implements the established/closing states: it processes
// inbound messages strictly in arrival order, one at a time, per
// spec.md §5's per-session inbound FIFO guarantee, until GOODBYE,
// transport failure, or a protocol violation ends the session.
func (r *Router) messageLoop(ctx context.Context, ls *liveSession) {
	conn := ls.sess.Conn
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if err != io.EOF {
				r.logger.Debug("connection receive error", "session", ls.sess.ID, "error", err)
			}
			return
		}

		if ls.State() == session.StateClosing {
			if msg.Type == wamp.TypeGoodbye {
				ls.setState(session.StateClosed)
				return
			}
			// closing only accepts the peer's GOODBYE reply; anything
			// else is a protocol violation on an already-closing session.
			_ = conn.Send(&wamp.Message{Type: wamp.TypeAbort, Reason: wamperr.URIProtocolViolation,
				Details: map[string]interface{}{"message": "only GOODBYE is accepted while closing"}})
			if r.metrics != nil {
				r.metrics.SessionsAborted.Inc()
			}
			_ = conn.Close("protocol violation")
			return
		}

		if err := r.dispatch(ls, msg); err != nil {
			if protoErr, ok := wamperr.As(err); ok && protoErr.Category == wamperr.CategoryProtocol {
				_ = conn.Send(&wamp.Message{Type: wamp.TypeAbort, Reason: wamperr.URIProtocolViolation,
					Details: map[string]interface{}{"message": protoErr.Message}})
				if r.metrics != nil {
					r.metrics.SessionsAborted.Inc()
				}
				_ = conn.Close("protocol violation")
				return
			}
		}

		if ls.State() == session.StateClosed {
			return
		}
	}
}

func (r *Router) teardown(ls *liveSession) {
	r.removeSession(ls.sess.ID)
	ls.realm.topics.RemoveSession(ls.sess.ID)
	ls.realm.procs.SessionDisconnected(ls.sess.ID)
}
