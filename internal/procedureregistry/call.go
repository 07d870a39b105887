package procedureregistry

import (
	"time"

	"github.com/CHOUAiB/wampcore/pkg/procedure"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wampid"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

// CallOptions carries the subset of CALL options spec.md §6 assigns
// routing effect to.
type CallOptions struct {
	Timeout         time.Duration
	ReceiveProgress bool
	DiscloseMe      bool
}

// Call implements spec.md §4.2's Call operation.
func (r *Registry) Call(caller *session.Session, requestID uint64, uri string, args []interface{}, kwargs map[string]interface{}, opts CallOptions) error {
	r.mu.Lock()
	rec := r.resolveLocked(uri)
	if rec == nil {
		r.mu.Unlock()
		return wamperr.NoSuchProcedure(uri)
	}

	invID, err := wampid.New(func(id uint64) bool {
		_, exists := r.byCallee[rec.sessionID][id]
		return exists
	})
	if err != nil {
		r.mu.Unlock()
		return err
	}

	pc := &pendingCall{
		requestID:    requestID,
		invocationID: invID,
		caller:       caller,
		callee:       rec.sess,
	}

	if r.byCallee[rec.sessionID] == nil {
		r.byCallee[rec.sessionID] = make(map[uint64]*pendingCall)
	}
	r.byCallee[rec.sessionID][invID] = pc
	if r.byCaller[caller.ID] == nil {
		r.byCaller[caller.ID] = make(map[uint64]*pendingCall)
	}
	r.byCaller[caller.ID][requestID] = pc
	r.mu.Unlock()

	if opts.Timeout > 0 {
		pc.mu.Lock()
		timer := time.AfterFunc(opts.Timeout, func() { r.onTimeout(pc) })
		pc.cancelTimer = func() { timer.Stop() }
		pc.mu.Unlock()
	}

	details := map[string]interface{}{}
	if opts.ReceiveProgress {
		details["receive_progress"] = true
	}
	if opts.DiscloseMe {
		details["caller"] = caller.ID
	}

	return rec.sess.Conn.Send(&wamp.Message{
		Type:         wamp.TypeInvocation,
		Invocation:   invID,
		Registration: rec.id,
		Details:      details,
		Args:         args,
		KwArgs:       kwargs,
	})
}

// Yield implements spec.md §4.2's Yield operation: on a terminal yield
// it forwards RESULT and destroys the PendingCall; on a progressive
// yield (details.progress == true) the call stays open for further
// YIELDs.
func (r *Registry) Yield(callee *session.Session, invocationID uint64, result []interface{}, kwresult map[string]interface{}, progress bool) error {
	r.mu.Lock()
	pc := r.byCallee[callee.ID][invocationID]
	r.mu.Unlock()
	if pc == nil {
		return wamperr.Application("wamp.error.no_such_invocation", "unknown invocation")
	}

	pc.mu.Lock()
	if pc.done {
		pc.mu.Unlock()
		return nil // edge-triggered: a terminal signal already won
	}
	if progress {
		pc.progress = true
		pc.mu.Unlock()
		details := map[string]interface{}{"progress": true}
		return pc.caller.Conn.Send(&wamp.Message{
			Type:    wamp.TypeResult,
			Request: pc.requestID,
			Details: details,
			Args:    result,
			KwArgs:  kwresult,
		})
	}
	pc.done = true
	if pc.cancelTimer != nil {
		pc.cancelTimer()
	}
	pc.mu.Unlock()

	r.destroyPendingCall(pc)

	return pc.caller.Conn.Send(&wamp.Message{
		Type:    wamp.TypeResult,
		Request: pc.requestID,
		Args:    result,
		KwArgs:  kwresult,
	})
}

// Error implements spec.md §4.2's error-reply path: the callee's ERROR
// is forwarded to the caller under the original request_id and the
// PendingCall is destroyed.
func (r *Registry) Error(callee *session.Session, invocationID uint64, errorURI string, args []interface{}, kwargs map[string]interface{}) error {
	r.mu.Lock()
	pc := r.byCallee[callee.ID][invocationID]
	r.mu.Unlock()
	if pc == nil {
		return wamperr.Application("wamp.error.no_such_invocation", "unknown invocation")
	}

	pc.mu.Lock()
	if pc.done {
		pc.mu.Unlock()
		return nil
	}
	pc.done = true
	if pc.cancelTimer != nil {
		pc.cancelTimer()
	}
	pc.mu.Unlock()

	r.destroyPendingCall(pc)

	return pc.caller.Conn.Send(&wamp.Message{
		Type:    wamp.TypeError,
		Request: pc.requestID,
		Error:   errorURI,
		Args:    args,
		KwArgs:  kwargs,
	})
}

// Cancel implements spec.md §4.2's three cancel modes.
func (r *Registry) Cancel(caller *session.Session, requestID uint64, mode procedure.CancelMode) error {
	r.mu.Lock()
	pc := r.byCaller[caller.ID][requestID]
	r.mu.Unlock()
	if pc == nil {
		return wamperr.Application("wamp.error.no_such_invocation", "unknown call")
	}

	switch mode {
	case procedure.CancelSkip:
		return r.finishWithCanceled(pc, "skip")

	case procedure.CancelKillNoWait:
		pc.mu.Lock()
		callee := pc.callee
		invID := pc.invocationID
		pc.mu.Unlock()
		_ = callee.Conn.Send(&wamp.Message{Type: wamp.TypeInterrupt, Invocation: invID})
		return r.finishWithCanceled(pc, "killnowait")

	default: // kill: interrupt the callee and await its Yield/Error reply.
		pc.mu.Lock()
		callee := pc.callee
		invID := pc.invocationID
		pc.mu.Unlock()
		return callee.Conn.Send(&wamp.Message{Type: wamp.TypeInterrupt, Invocation: invID})
	}
}

// finishWithCanceled sends a CANCELED error to the caller and destroys
// the PendingCall, provided no other terminal signal has already won.
func (r *Registry) finishWithCanceled(pc *pendingCall, reason string) error {
	pc.mu.Lock()
	if pc.done {
		pc.mu.Unlock()
		return nil
	}
	pc.done = true
	if pc.cancelTimer != nil {
		pc.cancelTimer()
	}
	pc.mu.Unlock()

	r.destroyPendingCall(pc)

	return pc.caller.Conn.Send(&wamp.Message{
		Type:    wamp.TypeError,
		Request: pc.requestID,
		Error:   wamperr.URICanceled,
		KwArgs:  map[string]interface{}{"reason": reason},
	})
}

// onTimeout fires when a CALL's timeout elapses without a terminal
// reply. Per spec.md §4.2: "a monotonic timer produces a synthetic
// CANCELED (kill) when it fires" — the callee is interrupted and the
// caller is answered immediately (scenario 4 of spec.md §8 shows both
// happening without waiting on the callee's INTERRUPT reply).
func (r *Registry) onTimeout(pc *pendingCall) {
	pc.mu.Lock()
	if pc.done {
		pc.mu.Unlock()
		return
	}
	pc.done = true
	callee := pc.callee
	invID := pc.invocationID
	pc.mu.Unlock()

	_ = callee.Conn.Send(&wamp.Message{Type: wamp.TypeInterrupt, Invocation: invID})
	r.destroyPendingCall(pc)

	_ = pc.caller.Conn.Send(&wamp.Message{
		Type:    wamp.TypeError,
		Request: pc.requestID,
		Error:   wamperr.URITimeout,
	})
}

// destroyPendingCall removes pc from both indices. The caller must have
// already set pc.done under pc.mu before calling this, so a second
// concurrent terminal signal observes done==true and no-ops.
func (r *Registry) destroyPendingCall(pc *pendingCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if calls, ok := r.byCallee[pc.callee.ID]; ok {
		delete(calls, pc.invocationID)
		if len(calls) == 0 {
			delete(r.byCallee, pc.callee.ID)
		}
	}
	if calls, ok := r.byCaller[pc.caller.ID]; ok {
		delete(calls, pc.requestID)
		if len(calls) == 0 {
			delete(r.byCaller, pc.caller.ID)
		}
	}
}
