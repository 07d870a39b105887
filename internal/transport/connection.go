package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/CHOUAiB/wampcore/pkg/formatter"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

// sendQueueSize bounds the write pump's buffered channel. A session
// whose peer cannot keep up eventually sees Send block, which is the
// single-connection backpressure spec.md §1 scopes in (and distributed
// flow control scopes out).
const sendQueueSize = 256

// framedConnection implements session.Connection over a RawConn and a
// Formatter: one goroutine owns the raw connection for writes (the
// write pump, draining outbound so Send never blocks past the channel
// put), one owns it for reads (the read pump, decoding frames into the
// inbound channel). This is the same one-writer/one-reader split the
// retrieved pack's streaming client uses for its SSE connection
// (pkg/httpclient/streaming.go), generalized to a bidirectional
// framed connection.
type framedConnection struct {
	raw RawConn
	fmt formatter.Formatter

	outbound chan *wamp.Message
	inbound  chan *wamp.Message
	inErr    chan error

	closeOnce sync.Once
	closed    chan struct{}
}

func newFramedConnection(raw RawConn, f formatter.Formatter) *framedConnection {
	c := &framedConnection{
		raw:      raw,
		fmt:      f,
		outbound: make(chan *wamp.Message, sendQueueSize),
		inbound:  make(chan *wamp.Message, sendQueueSize),
		inErr:    make(chan error, 1),
		closed:   make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c
}

func (c *framedConnection) Send(msg *wamp.Message) error {
	select {
	case c.outbound <- msg:
		return nil
	case <-c.closed:
		return fmt.Errorf("transport: connection closed")
	}
}

func (c *framedConnection) Receive(ctx context.Context) (*wamp.Message, error) {
	select {
	case msg, ok := <-c.inbound:
		if !ok {
			select {
			case err := <-c.inErr:
				return nil, err
			default:
				return nil, io.EOF
			}
		}
		return msg, nil
	case <-c.closed:
		select {
		case err := <-c.inErr:
			return nil, err
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *framedConnection) Close(reason string) error {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.raw.Close()
	})
	return nil
}

func (c *framedConnection) OnClosed() <-chan struct{} {
	return c.closed
}

// writePump is the connection's only writer: it drains outbound and
// encodes each message through the formatter before handing bytes to
// the raw transport. A write or encode failure closes the connection;
// per spec.md §4.5, send failures surface as transport errors that move
// the owning session to closed.
func (c *framedConnection) writePump() {
	ctx := context.Background()
	for {
		select {
		case msg := <-c.outbound:
			data, err := c.fmt.Encode(msg)
			if err != nil {
				c.Close("encode error")
				return
			}
			if err := c.raw.WriteFrame(ctx, data); err != nil {
				c.Close("write error")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump is the connection's only reader: it pulls frames off the raw
// transport, decodes them, and publishes them to inbound. A read or
// decode failure terminates the pump and records the error for the next
// Receive to surface.
func (c *framedConnection) readPump() {
	ctx := context.Background()
	for {
		frame, err := c.raw.ReadFrame(ctx)
		if err != nil {
			select {
			case c.inErr <- err:
			default:
			}
			close(c.inbound)
			c.Close("read error")
			return
		}
		msg, err := c.fmt.Decode(frame)
		if err != nil {
			select {
			case c.inErr <- err:
			default:
			}
			close(c.inbound)
			c.Close("decode error")
			return
		}
		select {
		case c.inbound <- msg:
		case <-c.closed:
			return
		}
	}
}

var _ session.Connection = (*framedConnection)(nil)
