package router

import (
	"time"

	"github.com/CHOUAiB/wampcore/internal/procedureregistry"
	"github.com/CHOUAiB/wampcore/internal/topiccontainer"
	"github.com/CHOUAiB/wampcore/pkg/procedure"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
	"github.com/CHOUAiB/wampcore/pkg/wampid"
)

// dispatch demultiplexes one established-state inbound message to the
// owning realm's topic container or procedure registry, per spec.md
// §4.3. It returns a non-nil error only for a protocol violation
// (unknown or out-of-state message type); resource/application errors
// are translated to an ERROR frame sent back to the peer here and
// never propagate to the caller.
func (r *Router) dispatch(ls *liveSession, msg *wamp.Message) error {
	rl := ls.realm
	sess := ls.sess

	switch msg.Type {
	case wamp.TypeSubscribe:
		r.handleSubscribe(rl, sess, msg)
	case wamp.TypeUnsubscribe:
		r.handleUnsubscribe(rl, sess, msg)
	case wamp.TypePublish:
		r.handlePublish(rl, sess, msg)
	case wamp.TypeRegister:
		r.handleRegister(rl, sess, msg)
	case wamp.TypeUnregister:
		r.handleUnregister(rl, sess, msg)
	case wamp.TypeCall:
		r.handleCall(rl, sess, msg)
	case wamp.TypeYield:
		r.handleYield(rl, sess, msg)
	case wamp.TypeError:
		r.handleError(rl, sess, msg)
	case wamp.TypeCancel:
		r.handleCancel(rl, sess, msg)
	case wamp.TypeGoodbye:
		r.handleGoodbye(ls, msg)
	default:
		return wamperr.Protocol("unexpected message type " + msg.Type.String() + " for established session")
	}
	return nil
}

func optBool(opts map[string]interface{}, key string) bool {
	v, _ := opts[key].(bool)
	return v
}

// optUint64 reads a numeric option that may have round-tripped through
// a formatter as a native Go int/uint64, a json.Number (jsoncodec), or
// a float64 (any decoder that doesn't preserve integer width).
func optUint64(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case int:
		return uint64(t), true
	case int64:
		return uint64(t), true
	case float64:
		return uint64(t), true
	case interface{ Int64() (int64, error) }: // json.Number
		n, err := t.Int64()
		return uint64(n), err == nil
	default:
		return 0, false
	}
}

// optIDSet reads a PUBLISH exclude/eligible option, a list of session
// ids that may have round-tripped through a formatter as []uint64 or
// as []interface{} of the formatter's native numeric type.
func optIDSet(opts map[string]interface{}, key string) map[uint64]bool {
	var ids []uint64
	switch raw := opts[key].(type) {
	case []uint64:
		ids = raw
	case []interface{}:
		for _, v := range raw {
			if id, ok := optUint64(v); ok {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	out := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func (r *Router) handleSubscribe(rl *realm, sess *session.Session, msg *wamp.Message) {
	policy, ok := wamp.ParseMatchPolicy(optString(msg.Options, "match"))
	if !ok {
		policy = wamp.MatchExact
	}

	id, err := rl.topics.Subscribe(sess, msg.URI, policy)
	if err != nil {
		r.sendAppError(sess, wamp.TypeSubscribe, msg.Request, err)
		return
	}
	if r.metrics != nil {
		r.metrics.Subscriptions.Inc()
	}
	_ = sess.Conn.Send(&wamp.Message{Type: wamp.TypeSubscribed, Request: msg.Request, Subscription: id})
}

func (r *Router) handleUnsubscribe(rl *realm, sess *session.Session, msg *wamp.Message) {
	if err := rl.topics.Unsubscribe(sess.ID, msg.Subscription); err != nil {
		r.sendAppError(sess, wamp.TypeUnsubscribe, msg.Request, err)
		return
	}
	if r.metrics != nil {
		r.metrics.Subscriptions.Dec()
	}
	_ = sess.Conn.Send(&wamp.Message{Type: wamp.TypeUnsubscribed, Request: msg.Request})
}

func (r *Router) handlePublish(rl *realm, sess *session.Session, msg *wamp.Message) {
	pubID, err := wampid.New(nil)
	if err != nil {
		r.sendAppError(sess, wamp.TypePublish, msg.Request, wamperr.Application("wamp.error.system_shutdown", "id exhaustion"))
		return
	}

	opts := topiccontainer.PublishOptions{
		ExcludeMe: optBool(msg.Options, "exclude_me"),
		Exclude:   optIDSet(msg.Options, "exclude"),
		Eligible:  optIDSet(msg.Options, "eligible"),
	}
	matched := rl.topics.Publish(sess.ID, pubID, msg.URI, msg.Args, msg.KwArgs, opts)
	if r.metrics != nil {
		r.metrics.Publications.Inc()
		if matched {
			r.metrics.Events.Inc()
		}
	}

	if optBool(msg.Options, "acknowledge") {
		_ = sess.Conn.Send(&wamp.Message{Type: wamp.TypePublished, Request: msg.Request, Publication: pubID})
	}
}

func (r *Router) handleRegister(rl *realm, sess *session.Session, msg *wamp.Message) {
	policy, ok := wamp.ParseMatchPolicy(optString(msg.Options, "match"))
	if !ok {
		policy = wamp.MatchExact
	}

	id, err := rl.procs.Register(sess, msg.URI, policy)
	if err != nil {
		r.sendAppError(sess, wamp.TypeRegister, msg.Request, err)
		return
	}
	if r.metrics != nil {
		r.metrics.Registrations.Inc()
	}
	_ = sess.Conn.Send(&wamp.Message{Type: wamp.TypeRegistered, Request: msg.Request, Registration: id})
}

func (r *Router) handleUnregister(rl *realm, sess *session.Session, msg *wamp.Message) {
	if err := rl.procs.Unregister(sess.ID, msg.Registration); err != nil {
		r.sendAppError(sess, wamp.TypeUnregister, msg.Request, err)
		return
	}
	if r.metrics != nil {
		r.metrics.Registrations.Dec()
	}
	_ = sess.Conn.Send(&wamp.Message{Type: wamp.TypeUnregistered, Request: msg.Request})
}

func (r *Router) handleCall(rl *realm, sess *session.Session, msg *wamp.Message) {
	var timeout time.Duration
	if ms, ok := optUint64(msg.Options["timeout"]); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	opts := procedureregistry.CallOptions{
		Timeout:         timeout,
		ReceiveProgress: optBool(msg.Options, "receive_progress"),
		DiscloseMe:      optBool(msg.Options, "disclose_me"),
	}

	if err := rl.procs.Call(sess, msg.Request, msg.URI, msg.Args, msg.KwArgs, opts); err != nil {
		r.sendAppError(sess, wamp.TypeCall, msg.Request, err)
		return
	}
	if r.metrics != nil {
		r.metrics.Calls.Inc()
	}
}

func (r *Router) handleYield(rl *realm, sess *session.Session, msg *wamp.Message) {
	progress := optBool(msg.Options, "progress")
	_ = rl.procs.Yield(sess, msg.Invocation, msg.Args, msg.KwArgs, progress)
}

func (r *Router) handleError(rl *realm, sess *session.Session, msg *wamp.Message) {
	if r.metrics != nil {
		r.metrics.CallErrors.Inc()
	}
	_ = rl.procs.Error(sess, msg.Invocation, msg.Error, msg.Args, msg.KwArgs)
}

func (r *Router) handleCancel(rl *realm, sess *session.Session, msg *wamp.Message) {
	mode, ok := procedure.ParseCancelMode(optString(msg.Options, "mode"))
	if !ok {
		mode = procedure.CancelSkip
	}
	_ = rl.procs.Cancel(sess, msg.Request, mode)
}

// handleGoodbye implements the established/closing transition of
// spec.md §4.3: the first GOODBYE either side sends moves the session
// to closing; since the router never initiates GOODBYE outside of
// shutdown, a GOODBYE received in established is the client's and gets
// an immediate GOODBYE reply, ending the session (closing accepts only
// the peer's reply, which has now already arrived).
func (r *Router) handleGoodbye(ls *liveSession, msg *wamp.Message) {
	ls.setState(session.StateClosing)
	_ = ls.sess.Conn.Send(&wamp.Message{Type: wamp.TypeGoodbye, Reason: "wamp.close.goodbye_and_out"})
	ls.setState(session.StateClosed)
}

func optString(opts map[string]interface{}, key string) string {
	v, _ := opts[key].(string)
	return v
}

// sendAppError translates err into an ERROR frame answering the
// request identified by requestType/requestID, per spec.md §7: resource
// and application errors are local to the requesting peer and never
// affect session liveness.
func (r *Router) sendAppError(sess *session.Session, requestType wamp.MessageType, requestID uint64, err error) {
	uri := "wamp.error.not_authorized"
	msg := err.Error()
	if werr, ok := wamperr.As(err); ok {
		uri = werr.URI
		msg = werr.Message
	}
	_ = sess.Conn.Send(&wamp.Message{
		Type:    wamp.TypeError,
		Request: requestID,
		Error:   uri,
		Details: map[string]interface{}{"request_type": int(requestType), "message": msg},
	})
}
