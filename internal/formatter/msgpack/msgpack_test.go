package msgpack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CHOUAiB/wampcore/pkg/wamp"
)

func TestNameAndBinary(t *testing.T) {
	f := New()
	require.Equal(t, "wamp.2.msgpack", f.Name())
	require.True(t, f.Binary())
}

func TestEncodeDecodeHello(t *testing.T) {
	f := New()
	in := &wamp.Message{
		Type:  wamp.TypeHello,
		Realm: "realm1",
		Details: map[string]interface{}{
			"roles": map[string]interface{}{"publisher": map[string]interface{}{}},
		},
	}

	frame, err := f.Encode(in)
	require.NoError(t, err)
	require.NotEmpty(t, frame)

	out, err := f.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, wamp.TypeHello, out.Type)
	require.Equal(t, "realm1", out.Realm)
	require.Contains(t, out.Details, "roles")
}

func TestEncodeDecodePublishPreservesLargeIDs(t *testing.T) {
	f := New()
	// an id in the upper half of uint64's range, to exercise the claim
	// that msgpack (unlike naive JSON-number decoding) keeps full
	// 64-bit precision round-tripping through interface{}.
	const bigID uint64 = 1<<63 + 12345

	in := &wamp.Message{
		Type:    wamp.TypePublish,
		Request: bigID,
		URI:     "com.x.greet",
		Options: map[string]interface{}{"acknowledge": true},
		Args:    []interface{}{"hi", 7},
	}

	frame, err := f.Encode(in)
	require.NoError(t, err)

	out, err := f.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, wamp.TypePublish, out.Type)
	require.Equal(t, bigID, out.Request)
	require.Equal(t, "com.x.greet", out.URI)
	require.Len(t, out.Args, 2)
}

func TestEncodeDecodeEventRoundTrip(t *testing.T) {
	f := New()
	in := &wamp.Message{
		Type:         wamp.TypeEvent,
		Subscription: 42,
		Publication:  99,
		Details:      map[string]interface{}{},
		Args:         []interface{}{"hi"},
		KwArgs:       map[string]interface{}{"k": "v"},
	}

	frame, err := f.Encode(in)
	require.NoError(t, err)

	out, err := f.Decode(frame)
	require.NoError(t, err)
	require.Equal(t, wamp.TypeEvent, out.Type)
	require.EqualValues(t, 42, out.Subscription)
	require.EqualValues(t, 99, out.Publication)
	require.Equal(t, "v", out.KwArgs["k"])
}

func TestDecodeEmptyFrameIsProtocolError(t *testing.T) {
	f := New()
	_, err := f.Decode([]byte{0x90}) // msgpack empty array
	require.Error(t, err)
}

func TestDecodeMalformedFrame(t *testing.T) {
	f := New()
	_, err := f.Decode([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestEncodeUnknownMessageType(t *testing.T) {
	f := New()
	_, err := f.Encode(&wamp.Message{Type: wamp.MessageType(9999)})
	require.Error(t, err)
}
