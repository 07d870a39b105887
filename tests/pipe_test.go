package tests

import (
	"context"
	"io"
	"sync"

	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

// pipeConnection is the net.Pipe-shaped session.Connection test double
// pkg/session.Connection's doc comment calls for: two pipeConnections
// share a pair of channels so each side's Send feeds the other's
// Receive directly, with no formatter or byte framing involved.
type pipeConnection struct {
	send chan *wamp.Message
	recv chan *wamp.Message

	closeOnce sync.Once
	closed    chan struct{}
}

func newPipePair() (session.Connection, session.Connection) {
	ab := make(chan *wamp.Message, 64)
	ba := make(chan *wamp.Message, 64)
	a := &pipeConnection{send: ab, recv: ba, closed: make(chan struct{})}
	b := &pipeConnection{send: ba, recv: ab, closed: make(chan struct{})}
	return a, b
}

func (p *pipeConnection) Send(msg *wamp.Message) error {
	select {
	case p.send <- msg:
		return nil
	case <-p.closed:
		return io.ErrClosedPipe
	}
}

func (p *pipeConnection) Receive(ctx context.Context) (*wamp.Message, error) {
	select {
	case msg := <-p.recv:
		return msg, nil
	case <-p.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeConnection) Close(reason string) error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConnection) OnClosed() <-chan struct{} {
	return p.closed
}

var _ session.Connection = (*pipeConnection)(nil)
