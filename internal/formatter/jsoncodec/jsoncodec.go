// Package jsoncodec implements the wamp.2.json formatter binding: WAMP
// messages rendered as JSON arrays, the canonical text subprotocol the
// transport multiplexer offers. Uses encoding/json throughout, the same
// way the rest of this codebase renders JSON bodies, generalized from
// HTTP payloads to WAMP wire arrays.
package jsoncodec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/CHOUAiB/wampcore/pkg/wamp"
	"github.com/CHOUAiB/wampcore/pkg/wamperr"
)

const name = "wamp.2.json"

// Formatter implements formatter.Formatter over JSON-array wire frames.
type Formatter struct{}

// New creates a Formatter for the wamp.2.json subprotocol.
func New() *Formatter { return &Formatter{} }

func (*Formatter) Name() string { return name }
func (*Formatter) Binary() bool { return false }

// Encode renders msg as the WAMP-v2 JSON array for its message type.
func (*Formatter) Encode(msg *wamp.Message) ([]byte, error) {
	arr, err := toArray(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(arr)
}

// Decode parses a WAMP-v2 JSON array frame into a Message.
func (*Formatter) Decode(frame []byte) (*wamp.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(frame))
	dec.UseNumber()

	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, wamperr.Protocol("malformed JSON frame: " + err.Error())
	}
	if len(raw) == 0 {
		return nil, wamperr.Protocol("empty message array")
	}

	typeNum, ok := raw[0].(json.Number)
	if !ok {
		return nil, wamperr.Protocol("message type is not a number")
	}
	typeInt, err := typeNum.Int64()
	if err != nil {
		return nil, wamperr.Protocol("message type is not an integer")
	}

	return fromArray(wamp.MessageType(typeInt), raw)
}

// uint64 helpers — WAMP ids are drawn from the full uint64 range
// (pkg/wampid), which a JSON number can lose precision on if decoded
// as float64, so every id round-trips through strconv instead.

func idToJSON(id uint64) json.Number {
	return json.Number(strconv.FormatUint(id, 10))
}

func idFromValue(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case json.Number:
		return strconv.ParseUint(t.String(), 10, 64)
	case string:
		return strconv.ParseUint(t, 10, 64)
	case float64:
		return uint64(t), nil
	default:
		return 0, fmt.Errorf("jsoncodec: id field has unexpected type %T", v)
	}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func optStrVal(v interface{}) string {
	s, _ := v.(string)
	return s
}

func toArray(msg *wamp.Message) ([]interface{}, error) {
	switch msg.Type {
	case wamp.TypeHello:
		return []interface{}{int(msg.Type), msg.Realm, msg.Details}, nil
	case wamp.TypeWelcome:
		return []interface{}{int(msg.Type), idToJSON(msg.Session), msg.Details}, nil
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
		return []interface{}{int(msg.Type), requestType, idToJSON(msg.Request), msg.Details, msg.Error, msg.Args, msg.KwArgs}, nil
	case wamp.TypePublish:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Options, msg.URI, msg.Args, msg.KwArgs}, nil
	case wamp.TypePublished:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), idToJSON(msg.Publication)}, nil
	case wamp.TypeSubscribe:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Options, msg.URI}, nil
	case wamp.TypeSubscribed:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), idToJSON(msg.Subscription)}, nil
	case wamp.TypeUnsubscribe:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), idToJSON(msg.Subscription)}, nil
	case wamp.TypeUnsubscribed:
		return []interface{}{int(msg.Type), idToJSON(msg.Request)}, nil
	case wamp.TypeEvent:
		return []interface{}{int(msg.Type), idToJSON(msg.Subscription), idToJSON(msg.Publication), msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeCall:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Options, msg.URI, msg.Args, msg.KwArgs}, nil
	case wamp.TypeCancel:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Options}, nil
	case wamp.TypeResult:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeRegister:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), msg.Options, msg.URI}, nil
	case wamp.TypeRegistered:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), idToJSON(msg.Registration)}, nil
	case wamp.TypeUnregister:
		return []interface{}{int(msg.Type), idToJSON(msg.Request), idToJSON(msg.Registration)}, nil
	case wamp.TypeUnregistered:
		return []interface{}{int(msg.Type), idToJSON(msg.Request)}, nil
	case wamp.TypeInvocation:
		return []interface{}{int(msg.Type), idToJSON(msg.Invocation), idToJSON(msg.Registration), msg.Details, msg.Args, msg.KwArgs}, nil
	case wamp.TypeInterrupt:
		return []interface{}{int(msg.Type), idToJSON(msg.Invocation), msg.Options}, nil
	case wamp.TypeYield:
		return []interface{}{int(msg.Type), idToJSON(msg.Invocation), msg.Options, msg.Args, msg.KwArgs}, nil
	default:
		return nil, wamperr.Protocol(fmt.Sprintf("jsoncodec: unknown message type %d", msg.Type))
	}
}

func fromArray(t wamp.MessageType, raw []interface{}) (*wamp.Message, error) {
	need := func(n int) error {
		if len(raw) < n {
			return wamperr.Protocol(fmt.Sprintf("%s: expected at least %d elements, got %d", t, n, len(raw)))
		}
		return nil
	}

	msg := &wamp.Message{Type: t}

	switch t {
	case wamp.TypeHello:
		if err := need(3); err != nil {
			return nil, err
		}
		msg.Realm = optStrVal(raw[1])
		msg.Details = asMap(raw[2])

	case wamp.TypeAbort:
		if err := need(3); err != nil {
			return nil, err
		}
		msg.Details = asMap(raw[1])
		msg.Reason = optStrVal(raw[2])

	case wamp.TypeGoodbye:
		if err := need(3); err != nil {
			return nil, err
		}
		msg.Details = asMap(raw[1])
		msg.Reason = optStrVal(raw[2])

	case wamp.TypeError:
		if err := need(5); err != nil {
			return nil, err
		}
		requestType, _ := idFromValue(raw[1])
		requestID, err := idFromValue(raw[2])
		if err != nil {
			return nil, wamperr.Protocol("ERROR: malformed request id: " + err.Error())
		}
		msg.Request = requestID
		if wamp.MessageType(requestType) == wamp.TypeInvocation {
			msg.Invocation = requestID
		}
		msg.Details = asMap(raw[3])
		msg.Error = optStrVal(raw[4])
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
		id, err := idFromValue(raw[1])
		if err != nil {
			return nil, err
		}
		msg.Request = id
		msg.Options = asMap(raw[2])
		msg.URI = optStrVal(raw[3])

	case wamp.TypeUnsubscribe:
		if err := need(3); err != nil {
			return nil, err
		}
		req, err := idFromValue(raw[1])
		if err != nil {
			return nil, err
		}
		sub, err := idFromValue(raw[2])
		if err != nil {
			return nil, err
		}
		msg.Request, msg.Subscription = req, sub

	case wamp.TypeUnregister:
		if err := need(3); err != nil {
			return nil, err
		}
		req, err := idFromValue(raw[1])
		if err != nil {
			return nil, err
		}
		reg, err := idFromValue(raw[2])
		if err != nil {
			return nil, err
		}
		msg.Request, msg.Registration = req, reg

	case wamp.TypePublish, wamp.TypeCall:
		if err := need(4); err != nil {
			return nil, err
		}
		id, err := idFromValue(raw[1])
		if err != nil {
			return nil, err
		}
		msg.Request = id
		msg.Options = asMap(raw[2])
		msg.URI = optStrVal(raw[3])
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
		id, err := idFromValue(raw[1])
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
		id, err := idFromValue(raw[1])
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
		return nil, wamperr.Protocol(fmt.Sprintf("jsoncodec: decoding message type %s is not supported inbound", t))
	}

	return msg, nil
}
