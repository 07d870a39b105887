// Package tests drives internal/router end to end through the
// session.Connection seam, with no transport or formatter in the loop:
// each simulated client is a pipeConnection pair, one end handed to
// Router.Serve, the other driven directly by the test.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CHOUAiB/wampcore/internal/router"
	"github.com/CHOUAiB/wampcore/pkg/session"
	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

const recvTimeout = 2 * time.Second

// connectClient opens one HELLO/WELCOME handshake against r and returns
// the session's own end of the pipe plus its minted session id.
func connectClient(t *testing.T, ctx context.Context, r *router.Router, realm string) (session.Connection, uint64) {
	t.Helper()
	client, server := newPipePair()
	go r.Serve(ctx, server)

	require.NoError(t, client.Send(&wamp.Message{
		Type:  wamp.TypeHello,
		Realm: realm,
		Details: map[string]interface{}{
			"roles": map[string]interface{}{
				wamp.RolePublisher:  map[string]interface{}{},
				wamp.RoleSubscriber: map[string]interface{}{},
				wamp.RoleCaller:     map[string]interface{}{},
				wamp.RoleCallee:     map[string]interface{}{},
			},
		},
	}))

	welcome := recv(t, ctx, client)
	require.Equal(t, wamp.TypeWelcome, welcome.Type)
	return client, welcome.Session
}

func recv(t *testing.T, ctx context.Context, conn session.Connection) *wamp.Message {
	t.Helper()
	rctx, cancel := context.WithTimeout(ctx, recvTimeout)
	defer cancel()
	msg, err := conn.Receive(rctx)
	require.NoError(t, err, "expected a message before the receive timeout")
	return msg
}

// TestSubscribePublishExact covers scenario 1: Alice subscribes under
// exact match, Bob's acknowledged publish reaches her as one EVENT.
func TestSubscribePublishExact(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	alice, _ := connectClient(t, ctx, r, "realm1")
	bob, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, alice.Send(&wamp.Message{Type: wamp.TypeSubscribe, Request: 1, URI: "com.x.greet"}))
	subscribed := recv(t, ctx, alice)
	require.Equal(t, wamp.TypeSubscribed, subscribed.Type)
	require.EqualValues(t, 1, subscribed.Request)
	sub1 := subscribed.Subscription

	require.NoError(t, bob.Send(&wamp.Message{
		Type: wamp.TypePublish, Request: 2, URI: "com.x.greet",
		Options: map[string]interface{}{"acknowledge": true},
		Args:    []interface{}{"hi"},
	}))

	published := recv(t, ctx, bob)
	require.Equal(t, wamp.TypePublished, published.Type)
	require.EqualValues(t, 2, published.Request)
	pub1 := published.Publication

	event := recv(t, ctx, alice)
	require.Equal(t, wamp.TypeEvent, event.Type)
	require.Equal(t, sub1, event.Subscription)
	require.Equal(t, pub1, event.Publication)
	require.Equal(t, []interface{}{"hi"}, event.Args)
}

// TestSubscribePublishPrefix covers scenario 2: a prefix subscription
// on com.x matches a publish to the deeper URI com.x.y.z.
func TestSubscribePublishPrefix(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	alice, _ := connectClient(t, ctx, r, "realm1")
	bob, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, alice.Send(&wamp.Message{
		Type: wamp.TypeSubscribe, Request: 1, URI: "com.x",
		Options: map[string]interface{}{"match": "prefix"},
	}))
	subscribed := recv(t, ctx, alice)
	require.Equal(t, wamp.TypeSubscribed, subscribed.Type)
	sub1 := subscribed.Subscription

	require.NoError(t, bob.Send(&wamp.Message{
		Type: wamp.TypePublish, Request: 2, URI: "com.x.y.z",
		Args: []interface{}{7},
	}))

	event := recv(t, ctx, alice)
	require.Equal(t, wamp.TypeEvent, event.Type)
	require.Equal(t, sub1, event.Subscription)
	require.Equal(t, []interface{}{7}, event.Args)
}

// TestCallYieldRoundTrip covers scenario 3: a registered procedure is
// invoked, the callee yields, and the caller receives the result.
func TestCallYieldRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	carol, _ := connectClient(t, ctx, r, "realm1")
	dave, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, carol.Send(&wamp.Message{Type: wamp.TypeRegister, Request: 1, URI: "com.sum"}))
	registered := recv(t, ctx, carol)
	require.Equal(t, wamp.TypeRegistered, registered.Type)

	require.NoError(t, dave.Send(&wamp.Message{
		Type: wamp.TypeCall, Request: 2, URI: "com.sum",
		Args: []interface{}{2, 3},
	}))

	invocation := recv(t, ctx, carol)
	require.Equal(t, wamp.TypeInvocation, invocation.Type)
	require.Equal(t, []interface{}{2, 3}, invocation.Args)
	inv1 := invocation.Invocation

	require.NoError(t, carol.Send(&wamp.Message{
		Type: wamp.TypeYield, Invocation: inv1,
		Args: []interface{}{5},
	}))

	result := recv(t, ctx, dave)
	require.Equal(t, wamp.TypeResult, result.Type)
	require.EqualValues(t, 2, result.Request)
	require.Equal(t, []interface{}{5}, result.Args)
}

// TestCallTimeout covers scenario 4: a CALL with a timeout that the
// callee never answers ends in a synthetic timeout error to the caller
// and an INTERRUPT to the callee, without either side closing.
func TestCallTimeout(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	carol, _ := connectClient(t, ctx, r, "realm1")
	dave, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, carol.Send(&wamp.Message{Type: wamp.TypeRegister, Request: 1, URI: "com.sum"}))
	recv(t, ctx, carol) // REGISTERED

	require.NoError(t, dave.Send(&wamp.Message{
		Type: wamp.TypeCall, Request: 2, URI: "com.sum",
		Options: map[string]interface{}{"timeout": uint64(50)},
		Args:    []interface{}{2, 3},
	}))

	recv(t, ctx, carol) // INVOCATION, never yielded

	interrupt := recv(t, ctx, carol)
	require.Equal(t, wamp.TypeInterrupt, interrupt.Type)

	errMsg := recv(t, ctx, dave)
	require.Equal(t, wamp.TypeError, errMsg.Type)
	require.Equal(t, "wamp.error.timeout", errMsg.Error)
}

// TestPublishExcludeMe covers scenario 5: a publisher who is also
// subscribed to the same topic and sets exclude_me never sees its own
// event.
func TestPublishExcludeMe(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	alice, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, alice.Send(&wamp.Message{Type: wamp.TypeSubscribe, Request: 1, URI: "com.x.greet"}))
	recv(t, ctx, alice) // SUBSCRIBED

	require.NoError(t, alice.Send(&wamp.Message{
		Type: wamp.TypePublish, Request: 2, URI: "com.x.greet",
		Options: map[string]interface{}{"exclude_me": true, "acknowledge": true},
	}))

	published := recv(t, ctx, alice)
	require.Equal(t, wamp.TypePublished, published.Type, "the acknowledgement itself must still arrive")

	rctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err := alice.Receive(rctx)
	require.Error(t, err, "no EVENT should follow an exclude_me publish back to the publisher")
}

// TestRegisterConflict covers scenario 6: a second exact registration
// on an already-registered URI is rejected while the first stays live.
func TestRegisterConflict(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	bob, _ := connectClient(t, ctx, r, "realm1")
	carol, _ := connectClient(t, ctx, r, "realm1")

	require.NoError(t, bob.Send(&wamp.Message{Type: wamp.TypeRegister, Request: 1, URI: "com.sum"}))
	registered := recv(t, ctx, bob)
	require.Equal(t, wamp.TypeRegistered, registered.Type)

	require.NoError(t, carol.Send(&wamp.Message{Type: wamp.TypeRegister, Request: 2, URI: "com.sum"}))
	errMsg := recv(t, ctx, carol)
	require.Equal(t, wamp.TypeError, errMsg.Type)
	require.Equal(t, "wamp.error.procedure_already_exists", errMsg.Error)

	// Bob's registration remains live: a call still reaches him.
	dave, _ := connectClient(t, ctx, r, "realm1")
	require.NoError(t, dave.Send(&wamp.Message{Type: wamp.TypeCall, Request: 3, URI: "com.sum"}))
	invocation := recv(t, ctx, bob)
	require.Equal(t, wamp.TypeInvocation, invocation.Type)
}

// TestGoodbyeClosesSession exercises the established → closing → closed
// transition: the router answers GOODBYE with GOODBYE and stops serving.
func TestGoodbyeClosesSession(t *testing.T) {
	ctx := context.Background()
	r := router.New()

	alice, id := connectClient(t, ctx, r, "realm1")
	require.NotZero(t, id)

	require.NoError(t, alice.Send(&wamp.Message{Type: wamp.TypeGoodbye, Reason: "wamp.close.goodbye_and_out"}))
	reply := recv(t, ctx, alice)
	require.Equal(t, wamp.TypeGoodbye, reply.Type)

	require.Eventually(t, func() bool {
		return len(r.Sessions()) == 0
	}, time.Second, 10*time.Millisecond, "router should drop the session once it reaches closed")
}
