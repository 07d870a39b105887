package procedureregistry

import (
	"context"
	"testing"
	"time"

	"github.com/CHOUAiB/wampcore/pkg/procedure"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

type fakeConn struct {
	sent chan *wamp.Message
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: make(chan *wamp.Message, 16)}
}

func (f *fakeConn) Send(msg *wamp.Message) error {
	f.sent <- msg
	return nil
}
func (f *fakeConn) Receive(ctx context.Context) (*wamp.Message, error) { return nil, nil }
func (f *fakeConn) Close(reason string) error                         { return nil }
func (f *fakeConn) OnClosed() <-chan struct{}                         { return nil }

func newSession(id uint64) (*session.Session, *fakeConn) {
	conn := newFakeConn()
	return &session.Session{ID: id, Conn: conn}, conn
}

func recv(t *testing.T, conn *fakeConn) *wamp.Message {
	select {
	case msg := <-conn.sent:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := New()
	carol, _ := newSession(1)
	dave, _ := newSession(2)

	regID, err := r.Register(carol, "com.sum", wamp.MatchExact)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(carol.ID, regID); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	// subsequent register from a different session should now succeed.
	if _, err := r.Register(dave, "com.sum", wamp.MatchExact); err != nil {
		t.Fatalf("expected register to succeed after unregister: %v", err)
	}
}

func TestRegisterConflict(t *testing.T) {
	r := New()
	bob, _ := newSession(1)
	carol, _ := newSession(2)

	if _, err := r.Register(bob, "com.sum", wamp.MatchExact); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err == nil {
		t.Fatal("expected procedure_already_exists")
	}
	// Bob's registration must still be live.
	regs := r.Registrations()
	found := false
	for _, info := range regs {
		if info.URI == "com.sum" && info.SessionID == bob.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected bob's registration to remain live")
	}
}

func TestCallYieldRoundTrip(t *testing.T) {
	r := New()
	carol, carolConn := newSession(1)
	dave, daveConn := newSession(2)

	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Call(dave, 10, "com.sum", []interface{}{2, 3}, nil, CallOptions{}); err != nil {
		t.Fatalf("Call: %v", err)
	}

	inv := recv(t, carolConn)
	if inv.Type != wamp.TypeInvocation {
		t.Fatalf("expected INVOCATION, got %v", inv.Type)
	}

	if err := r.Yield(carol, inv.Invocation, []interface{}{5}, nil, false); err != nil {
		t.Fatalf("Yield: %v", err)
	}

	res := recv(t, daveConn)
	if res.Type != wamp.TypeResult || res.Request != 10 {
		t.Fatalf("expected RESULT for request 10, got %+v", res)
	}
}

func TestCallNoSuchProcedure(t *testing.T) {
	r := New()
	dave, _ := newSession(1)
	if err := r.Call(dave, 1, "com.missing", nil, nil, CallOptions{}); err == nil {
		t.Fatal("expected no_such_procedure")
	}
}

func TestCallTimeout(t *testing.T) {
	r := New()
	carol, carolConn := newSession(1)
	dave, daveConn := newSession(2)

	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Call(dave, 42, "com.sum", nil, nil, CallOptions{Timeout: 20 * time.Millisecond}); err != nil {
		t.Fatalf("Call: %v", err)
	}

	// Drain the INVOCATION Carol receives before the timeout fires.
	recv(t, carolConn)

	errMsg := recv(t, daveConn)
	if errMsg.Type != wamp.TypeError || errMsg.Error != "wamp.error.timeout" {
		t.Fatalf("expected timeout ERROR, got %+v", errMsg)
	}

	interrupt := recv(t, carolConn)
	if interrupt.Type != wamp.TypeInterrupt {
		t.Fatalf("expected INTERRUPT to callee, got %+v", interrupt)
	}
}

func TestCancelSkip(t *testing.T) {
	r := New()
	carol, _ := newSession(1)
	dave, daveConn := newSession(2)

	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err != nil {
		t.Fatal(err)
	}
	if err := r.Call(dave, 7, "com.sum", nil, nil, CallOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Cancel(dave, 7, procedure.CancelSkip); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	errMsg := recv(t, daveConn)
	if errMsg.Type != wamp.TypeError || errMsg.Error != "wamp.error.canceled" {
		t.Fatalf("expected CANCELED error, got %+v", errMsg)
	}
}

func TestCalleeDisconnectSendsCanceled(t *testing.T) {
	r := New()
	carol, _ := newSession(1)
	dave, daveConn := newSession(2)

	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err != nil {
		t.Fatal(err)
	}
	if err := r.Call(dave, 1, "com.sum", nil, nil, CallOptions{}); err != nil {
		t.Fatal(err)
	}

	r.SessionDisconnected(carol.ID)

	errMsg := recv(t, daveConn)
	if errMsg.Type != wamp.TypeError || errMsg.Error != "wamp.error.canceled" {
		t.Fatalf("expected canceled error after callee disconnect, got %+v", errMsg)
	}
	if reason, _ := errMsg.KwArgs["reason"].(string); reason != "callee_disconnect" {
		t.Fatalf("expected reason callee_disconnect, got %v", errMsg.KwArgs)
	}
}

func TestCallerDisconnectInterruptsCallee(t *testing.T) {
	r := New()
	carol, carolConn := newSession(1)
	dave, _ := newSession(2)

	if _, err := r.Register(carol, "com.sum", wamp.MatchExact); err != nil {
		t.Fatal(err)
	}
	if err := r.Call(dave, 1, "com.sum", nil, nil, CallOptions{}); err != nil {
		t.Fatal(err)
	}
	recv(t, carolConn) // drain INVOCATION

	r.SessionDisconnected(dave.ID)

	interrupt := recv(t, carolConn)
	if interrupt.Type != wamp.TypeInterrupt {
		t.Fatalf("expected INTERRUPT after caller disconnect, got %+v", interrupt)
	}
}
