package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CHOUAiB/wampcore/internal/logging"
	"github.com/CHOUAiB/wampcore/pkg/formatter"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

// fakeRawConn is a minimal transport.RawConn that reports a fixed
// subprotocol and is never actually read from or written to in these
// tests — the multiplexer only needs it to select a binding.
type fakeRawConn struct {
	subprotocol string
	closed      bool
}

func (c *fakeRawConn) Subprotocol() string { return c.subprotocol }
func (c *fakeRawConn) ReadFrame(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (c *fakeRawConn) WriteFrame(ctx context.Context, data []byte) error { return nil }
func (c *fakeRawConn) Close() error                                     { c.closed = true; return nil }

// fakeSource hands a fixed sequence of raw connections to the
// multiplexer, then blocks until closed.
type fakeSource struct {
	conns  chan RawConn
	closed chan struct{}
	once   sync.Once
}

func newFakeSource(conns ...RawConn) *fakeSource {
	s := &fakeSource{conns: make(chan RawConn, len(conns)), closed: make(chan struct{})}
	for _, c := range conns {
		s.conns <- c
	}
	return s
}

func (s *fakeSource) Accept(ctx context.Context) (RawConn, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-s.closed:
		return nil, errors.New("fakeSource: closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeSource) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// recordingServer records every connection handed to it by Serve.
type recordingServer struct {
	mu    sync.Mutex
	count int
}

func (r *recordingServer) Serve(ctx context.Context, conn session.Connection) {
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	<-ctx.Done()
}

func (r *recordingServer) served() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type nopFormatter struct{}

func (nopFormatter) Name() string                             { return "test.nop" }
func (nopFormatter) Binary() bool                              { return false }
func (nopFormatter) Encode(msg *wamp.Message) ([]byte, error)  { return nil, nil }
func (nopFormatter) Decode(frame []byte) (*wamp.Message, error) { return nil, nil }

var _ formatter.Formatter = nopFormatter{}

func TestAddBindingRejectsDuplicateSubprotocol(t *testing.T) {
	m := NewMultiplexer(logging.NewNop())
	b := Binding{Subprotocol: "wamp.2.json", Formatter: nopFormatter{}}
	require.NoError(t, m.AddBinding(b))
	require.Error(t, m.AddBinding(b))
}

func TestServeDispatchesKnownSubprotocol(t *testing.T) {
	m := NewMultiplexer(logging.NewNop())
	require.NoError(t, m.AddBinding(Binding{Subprotocol: "wamp.2.json", Formatter: nopFormatter{}}))

	src := newFakeSource(&fakeRawConn{subprotocol: "wamp.2.json"})
	srv := &recordingServer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Serve(ctx, src, srv)

	require.Eventually(t, func() bool { return srv.served() == 1 }, time.Second, 5*time.Millisecond)
}

func TestServeClosesConnectionForUnknownSubprotocol(t *testing.T) {
	m := NewMultiplexer(logging.NewNop())
	require.NoError(t, m.AddBinding(Binding{Subprotocol: "wamp.2.json", Formatter: nopFormatter{}}))

	raw := &fakeRawConn{subprotocol: "wamp.2.unknown"}
	src := newFakeSource(raw)
	srv := &recordingServer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Serve(ctx, src, srv)

	require.Eventually(t, func() bool { return raw.closed }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, srv.served())
}

func TestCloseClosesSourcesAndWaitsForServe(t *testing.T) {
	m := NewMultiplexer(logging.NewNop())
	require.NoError(t, m.AddBinding(Binding{Subprotocol: "wamp.2.json", Formatter: nopFormatter{}}))

	src := newFakeSource(&fakeRawConn{subprotocol: "wamp.2.json"})
	srv := &recordingServer{}

	ctx, cancel := context.WithCancel(context.Background())
	go m.Serve(ctx, src, srv)

	require.Eventually(t, func() bool { return srv.served() == 1 }, time.Second, 5*time.Millisecond)

	// In production the router process cancels this same context as
	// part of shutdown, which is what actually unblocks in-flight
	// Serve calls; Close alone only stops accepting new connections.
	cancel()

	done := make(chan struct{})
	go func() {
		_ = m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
}
