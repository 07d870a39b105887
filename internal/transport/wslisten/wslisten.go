// Package wslisten implements transport.Source and transport.RawConn over
// WebSocket, the transport binding spec.md §4.4 requires every router to
// offer. Grounded on the retrieved pack's WebSocket input component
// (input/websocket), generalized from a NATS-bridging server to a plain
// accept loop feeding internal/transport's multiplexer.
package wslisten

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CHOUAiB/wampcore/internal/logging"
	"github.com/CHOUAiB/wampcore/internal/transport"
)

// subprotocols is the set this router's WebSocket listener negotiates,
// per spec.md §4.4's bindings: wamp.2.json and wamp.2.msgpack.
var subprotocols = []string{"wamp.2.json", "wamp.2.msgpack"}

const (
	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// Source accepts WebSocket upgrades on an http.Server and offers them to
// the multiplexer as transport.RawConn values.
type Source struct {
	logger   logging.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	conns  chan transport.RawConn
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

// New creates a Source listening on addr at path. It starts serving
// WebSocket upgrades in its own goroutine, so the Source is ready to
// Accept on return.
func New(addr, path string, logger logging.Logger) (*Source, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wslisten: listen on %s: %w", addr, err)
	}

	s := &Source{
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
			Subprotocols:     subprotocols,
		},
		listener: ln,
		conns:    make(chan transport.RawConn),
		errs:     make(chan error, 1),
		closed:   make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("wslisten: server exited", "error", err)
		}
	}()

	return s, nil
}

func (s *Source) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("wslisten: upgrade failed", "error", err)
		return
	}

	rc := newRawConn(conn)
	select {
	case s.conns <- rc:
	case <-s.closed:
		_ = conn.Close()
	}
}

// Accept implements transport.Source.
func (s *Source) Accept(ctx context.Context) (transport.RawConn, error) {
	select {
	case rc := <-s.conns:
		return rc, nil
	case <-s.closed:
		return nil, fmt.Errorf("wslisten: source closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements transport.Source.
func (s *Source) Close() error {
	s.once.Do(func() {
		close(s.closed)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	})
	return nil
}

// rawConn adapts a *websocket.Conn to transport.RawConn: one frame in,
// one frame out, no framing decisions left for the caller.
type rawConn struct {
	conn        *websocket.Conn
	messageType int

	writeMu sync.Mutex
}

func newRawConn(conn *websocket.Conn) *rawConn {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// wamp.2.json frames travel as WebSocket text frames, wamp.2.msgpack
	// as binary, per the WAMP WebSocket transport's framing rule; any
	// other negotiated subprotocol defaults to binary.
	messageType := websocket.BinaryMessage
	if conn.Subprotocol() == "wamp.2.json" {
		messageType = websocket.TextMessage
	}

	return &rawConn{conn: conn, messageType: messageType}
}

func (c *rawConn) Subprotocol() string {
	return c.conn.Subprotocol()
}

func (c *rawConn) ReadFrame(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *rawConn) WriteFrame(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteMessage(c.messageType, data)
}

func (c *rawConn) Close() error {
	return c.conn.Close()
}

var _ transport.RawConn = (*rawConn)(nil)
var _ transport.Source = (*Source)(nil)
