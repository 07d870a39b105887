package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/CHOUAiB/wampcore/internal/logging"
	"github.com/CHOUAiB/wampcore/pkg/session"
)

// Server abstracts the piece of internal/router a Multiplexer hands
// accepted connections to, so this package need not import
// internal/router and risk a cycle.
type Server interface {
	Serve(ctx context.Context, conn session.Connection)
}

// Multiplexer is the transport multiplexer of spec.md §4.4: it owns one
// or more bindings (subprotocol name -> formatter), accepts raw
// connections from any number of Sources, selects a binding by the raw
// connection's negotiated subprotocol, and hands the framed result to
// Server.Serve in its own goroutine per connection.
type Multiplexer struct {
	logger   logging.Logger
	bindings map[string]Binding

	mu      sync.Mutex
	sources []Source
	wg      sync.WaitGroup
}

// NewMultiplexer creates a Multiplexer with no bindings or sources yet.
func NewMultiplexer(logger logging.Logger) *Multiplexer {
	return &Multiplexer{
		logger:   logger,
		bindings: make(map[string]Binding),
	}
}

// AddBinding registers a subprotocol binding. It returns an error if
// the subprotocol is already registered, per spec.md §4.4's "each
// binding declares a unique subprotocol name".
func (m *Multiplexer) AddBinding(b Binding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bindings[b.Subprotocol]; exists {
		return fmt.Errorf("transport: subprotocol %q already registered", b.Subprotocol)
	}
	m.bindings[b.Subprotocol] = b
	return nil
}

// Serve accepts from src until ctx is done or src.Accept fails,
// dispatching each accepted connection to srv.Serve on its own
// goroutine once a binding has been selected. It blocks until accepting
// stops; call it in its own goroutine per Source.
func (m *Multiplexer) Serve(ctx context.Context, src Source, srv Server) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()

	for {
		raw, err := src.Accept(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.logger.Debug("transport: accept failed", "error", err)
			}
			return
		}

		binding, ok := m.bindings[raw.Subprotocol()]
		if !ok {
			m.logger.Warn("transport: unsupported subprotocol, closing connection", "subprotocol", raw.Subprotocol())
			_ = raw.Close()
			continue
		}

		conn := binding.Wrap(raw)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			srv.Serve(ctx, conn)
		}()
	}
}

// Close closes every Source this Multiplexer has accepted from and
// waits for in-flight Serve calls to return.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	sources := m.sources
	m.mu.Unlock()

	var firstErr error
	for _, src := range sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.wg.Wait()
	return firstErr
}
