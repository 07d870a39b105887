// Package msgpack implements the wamp.2.msgpack formatter binding:
// WAMP messages rendered as msgpack arrays per spec.md §6, the binary
// counterpart to jsoncodec. Grounded on SPEC_FULL.md §11: the raft
// dependency surface retrieved in the pack pulls in
// github.com/hashicorp/go-msgpack/v2 as its wire codec, promoted here
// to a direct, genuinely exercised dependency.
package msgpack

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

const name = "wamp.2.msgpack"

var mapStringInterfaceType = reflect.TypeOf(map[string]interface{}(nil))

var handle = newHandle()

// newHandle configures msgpack decoding to produce map[string]interface{}
// for WAMP dictionaries (Details/Options/KwArgs) instead of codec's
// default map[interface{}]interface{}, matching the asMap helper below
// and jsoncodec's decoded shape.
func newHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = mapStringInterfaceType
	h.RawToString = true
	return h
}

// Formatter implements formatter.Formatter over msgpack-array wire
// frames.
type Formatter struct{}

// New creates a Formatter for the wamp.2.msgpack subprotocol.
func New() *Formatter { return &Formatter{} }

func (*Formatter) Name() string { return name }
func (*Formatter) Binary() bool { return true }

// Encode renders msg as a msgpack array for its message type, reusing
// the same positional layout jsoncodec uses, this time with ids kept
// as native uint64 — msgpack's integer encoding does not lose precision
// the way naive JSON-number decoding can.
func (*Formatter) Encode(msg *wamp.Message) ([]byte, error) {
	arr, err := toArray(msg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, handle)
	if err := enc.Encode(arr); err != nil {
		return nil, fmt.Errorf("msgpack: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a msgpack array frame into a Message.
func (*Formatter) Decode(frame []byte) (*wamp.Message, error) {
	var raw []interface{}
	dec := codec.NewDecoder(bytes.NewReader(frame), handle)
	if err := dec.Decode(&raw); err != nil {
		return nil, wamperr.Protocol("malformed msgpack frame: " + err.Error())
	}
	if len(raw) == 0 {
		return nil, wamperr.Protocol("empty message array")
	}

	typeInt, ok := asUint64(raw[0])
	if !ok {
		return nil, wamperr.Protocol("message type is not a number")
	}

	return fromArray(wamp.MessageType(typeInt), raw)
}

func asUint64(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case int64:
		return uint64(t), true
	case int:
		return uint64(t), true
	case float64:
		return uint64(t), true
	default:
		return 0, false
	}
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toArray(msg *wamp.Message) ([]interface{}, error) {
	switch msg.Type {
	case wamp.TypeHello:
		return []interface{}{int(msg.Type), msg.Realm, msg.Details}, nil
	case wamp.TypeWelcome:
		return []interface{}{int(msg.Type), msg.Session, msg.Details}, nil
	case wamp.TypeAbort:
		return []interface{}{int(msg.Type), msg.Details, msg.Reason}, nil
	case wamp.TypeGoodbye:
		return []interface{}{int(msg.Type), msg.Details, msg.Reason}, nil
	case wamp.TypeError:
		requestType := 0
		if rt, ok := msg.Details["request_type"]; ok {
			if i, ok := rt.(int); ok {
				requestType = i
			}
		}
		return []interface{}{int(msg.Type), requestType, msg.Request, msg.Details, msg.Error, msg.Args, msg.KwArgs}, nil
	case wamp.TypePublish:
		return []interface{}{int(msg.Type), msg.Request, msg.Options, msg.URI, msg.Args, msg.KwArgs}, nil
	case wamp.TypePublished:
		return []interface{}{int(msg.Type), msg.Request, msg.Publication}, nil
	case wamp.TypeSubscribe:
		return []interface{}{int(msg.Type), msg.Request, msg.Options, msg.URI}, nil
	case wamp.TypeSubscribed:
		return []interface{}{int(msg.Type), msg.Request, msg.Subscription}, nil
	case wamp.TypeUnsubscribe:
		return []interface{}{int(msg.Type), msg.Request, msg.Subscription}, nil
	case wamp.TypeUnsubscribed:
		return []interface{}{int(msg.Type), msg.Request}, nil
	case wamp.TypeEvent:
		return []interface{}{int(msg.Type), msg.Subscription, msg.Publication, msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeCall:
		return []interface{}{int(msg.Type), msg.Request, msg.Options, msg.URI, msg.Args, msg.KwArgs}, nil
	case wamp.TypeCancel:
		return []interface{}{int(msg.Type), msg.Request, msg.Options}, nil
	case wamp.TypeResult:
		return []interface{}{int(msg.Type), msg.Request, msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeRegister:
		return []interface{}{int(msg.Type), msg.Request, msg.Options, msg.URI}, nil
	case wamp.TypeRegistered:
		return []interface{}{int(msg.Type), msg.Request, msg.Registration}, nil
	case wamp.TypeUnregister:
		return []interface{}{int(msg.Type), msg.Request, msg.Registration}, nil
	case wamp.TypeUnregistered:
		return []interface{}{int(msg.Type), msg.Request}, nil
	case wamp.TypeInvocation:
		return []interface{}{int(msg.Type), msg.Invocation, msg.Registration, msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeInterrupt:
		return []interface{}{int(msg.Type), msg.Invocation, msg.Options}, nil
	case wamp.TypeYield:
		return []interface{}{int(msg.Type), msg.Invocation, msg.Options, msg.Args, msg.KwArgs}, nil
	default:
		return nil, wamperr.Protocol(fmt.Sprintf("msgpack: unknown message type %d", msg.Type))
	}
}

func fromArray(t wamp.MessageType, raw []interface{}) (*wamp.Message, error) {
	need := func(n int) error {
		if len(raw) < n {
			return wamperr.Protocol(fmt.Sprintf("%s: expected at least %d elements, got %d", t, n, len(raw)))
		}
		return nil
	}
	reqUint := func(v interface{}) (uint64, error) {
		id, ok := asUint64(v)
		if !ok {
			return 0, wamperr.Protocol("expected a numeric id field")
		}
		return id, nil
	}

	msg := &wamp.Message{Type: t}

	switch t {
	case wamp.TypeHello:
		if err := need(3); err != nil {
			return nil, err
		}
		msg.Realm = asString(raw[1])
		msg.Details = asMap(raw[2])

	case wamp.TypeAbort, wamp.TypeGoodbye:
		if err := need(3); err != nil {
			return nil, err
		}
		msg.Details = asMap(raw[1])
		msg.Reason = asString(raw[2])

	case wamp.TypeError:
		if err := need(5); err != nil {
			return nil, err
		}
		requestType, _ := asUint64(raw[1])
		requestID, err := reqUint(raw[2])
		if err != nil {
			return nil, err
		}
		msg.Request = requestID
		if wamp.MessageType(requestType) == wamp.TypeInvocation {
			msg.Invocation = requestID
		}
		msg.Details = asMap(raw[3])
		msg.Error = asString(raw[4])
		if len(raw) > 5 {
			msg.Args = asSlice(raw[5])
		}
		if len(raw) > 6 {
			msg.KwArgs = asMap(raw[6])
		}

	case wamp.TypeSubscribe, wamp.TypeRegister:
		if err := need(4); err != nil {
			return nil, err
		}
		id, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		msg.Request = id
		msg.Options = asMap(raw[2])
		msg.URI = asString(raw[3])

	case wamp.TypeUnsubscribe:
		if err := need(3); err != nil {
			return nil, err
		}
		req, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		sub, err := reqUint(raw[2])
		if err != nil {
			return nil, err
		}
		msg.Request, msg.Subscription = req, sub

	case wamp.TypeUnregister:
		if err := need(3); err != nil {
			return nil, err
		}
		req, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		reg, err := reqUint(raw[2])
		if err != nil {
			return nil, err
		}
		msg.Request, msg.Registration = req, reg

	case wamp.TypePublish, wamp.TypeCall:
		if err := need(4); err != nil {
			return nil, err
		}
		id, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		msg.Request = id
		msg.Options = asMap(raw[2])
		msg.URI = asString(raw[3])
		if len(raw) > 4 {
			msg.Args = asSlice(raw[4])
		}
		if len(raw) > 5 {
			msg.KwArgs = asMap(raw[5])
		}

	case wamp.TypeCancel, wamp.TypeInterrupt:
		if err := need(3); err != nil {
			return nil, err
		}
		id, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		if t == wamp.TypeInterrupt {
			msg.Invocation = id
		} else {
			msg.Request = id
		}
		msg.Options = asMap(raw[2])

	case wamp.TypeYield:
		if err := need(3); err != nil {
			return nil, err
		}
		id, err := reqUint(raw[1])
		if err != nil {
			return nil, err
		}
		msg.Invocation = id
		msg.Options = asMap(raw[2])
		if len(raw) > 3 {
			msg.Args = asSlice(raw[3])
		}
		if len(raw) > 4 {
			msg.KwArgs = asMap(raw[4])
		}

	default:
		return nil, wamperr.Protocol(fmt.Sprintf("msgpack: decoding message type %s is not supported inbound", t))
	}

	return msg, nil
}
