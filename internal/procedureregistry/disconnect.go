package procedureregistry

import (
	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

// SessionDisconnected revokes every registration and PendingCall
// belonging to sessionID, per spec.md §4.2's disconnect semantics:
// registrations are simply dropped; a PendingCall where this session
// was the caller sends a killnowait-style INTERRUPT to its callee; a
// PendingCall where this session was the callee delivers a synthetic
// ERROR to its caller.
func (r *Registry) SessionDisconnected(sessionID uint64) {
	r.mu.Lock()
	regs := r.bySessionRegs[sessionID]
	recs := make([]*registrationRecord, 0, len(regs))
	for _, rec := range regs {
		recs = append(recs, rec)
	}

	asCaller := r.byCaller[sessionID]
	callerCalls := make([]*pendingCall, 0, len(asCaller))
	for _, pc := range asCaller {
		callerCalls = append(callerCalls, pc)
	}

	asCallee := r.byCallee[sessionID]
	calleeCalls := make([]*pendingCall, 0, len(asCallee))
	for _, pc := range asCallee {
		calleeCalls = append(calleeCalls, pc)
	}
	r.mu.Unlock()

	for _, rec := range recs {
		r.mu.Lock()
		r.removeRegistrationLocked(rec)
		r.mu.Unlock()
	}

	for _, pc := range callerCalls {
		pc.mu.Lock()
		if pc.done {
			pc.mu.Unlock()
			continue
		}
		pc.done = true
		if pc.cancelTimer != nil {
			pc.cancelTimer()
		}
		callee := pc.callee
		invID := pc.invocationID
		pc.mu.Unlock()

		_ = callee.Conn.Send(&wamp.Message{Type: wamp.TypeInterrupt, Invocation: invID})
		r.destroyPendingCall(pc)
	}

	for _, pc := range calleeCalls {
		pc.mu.Lock()
		if pc.done {
			pc.mu.Unlock()
			continue
		}
		pc.done = true
		pc.mu.Unlock()

		r.destroyPendingCall(pc)

		_ = pc.caller.Conn.Send(&wamp.Message{
			Type:    wamp.TypeError,
			Request: pc.requestID,
			Error:   wamperr.URICanceled,
			KwArgs:  map[string]interface{}{"reason": "callee_disconnect"},
		})
	}
}
