// Package wamperr carries four error categories as Go error values,
// each wrapping the WAMP error URI that goes out on the wire. It mirrors
// the error/message/code shape this codebase's HTTP error responses
// use, without depending on net/http.
package wamperr

import "fmt"

// Category distinguishes how an error affects the session that raised
// it, per spec.md §7's propagation policy.
type Category int

const (
	// CategoryApplication carries an error URI in an ERROR frame; the
	// session remains live.
	CategoryApplication Category = iota
	// CategoryProtocol is fatal to the session: an ABORT is sent and the
	// connection is closed.
	CategoryProtocol
	// CategoryTransport means the connection itself failed; the session
	// moves to closed without emitting further outbound messages.
	CategoryTransport
	// CategoryResource covers conflicts such as procedure_already_exists;
	// surfaced to the requesting peer only, no effect on liveness.
	CategoryResource
)

// Well-known error URIs, per spec.md §6.
const (
	URINoSuchProcedure         = "wamp.error.no_such_procedure"
	URIProcedureAlreadyExists  = "wamp.error.procedure_already_exists"
	URINoSuchSubscription      = "wamp.error.no_such_subscription"
	URINoSuchRegistration      = "wamp.error.no_such_registration"
	URIInvalidURI              = "wamp.error.invalid_uri"
	URIInvalidArgument         = "wamp.error.invalid_argument"
	URICanceled                = "wamp.error.canceled"
	URITimeout                 = "wamp.error.timeout"
	URINotAuthorized           = "wamp.error.not_authorized"
	URIProtocolViolation       = "wamp.error.protocol_violation"
)

// Error is a WAMP-facing error: a category, the wire URI, and a
// human-readable message for logs/ERROR.details.
type Error struct {
	Category Category
	URI      string
	Message  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.URI
	}
	return fmt.Sprintf("%s: %s", e.URI, e.Message)
}

func new_(category Category, uri, message string) *Error {
	return &Error{Category: category, URI: uri, Message: message}
}

// Application builds a CategoryApplication error for the given URI.
func Application(uri, message string) *Error { return new_(CategoryApplication, uri, message) }

// Resource builds a CategoryResource error (e.g. registration conflict).
func Resource(uri, message string) *Error { return new_(CategoryResource, uri, message) }

// Protocol builds a CategoryProtocol error; the caller should ABORT the
// session after sending it.
func Protocol(message string) *Error {
	return new_(CategoryProtocol, URIProtocolViolation, message)
}

// Transport builds a CategoryTransport error for connection read/write
// failures.
func Transport(message string) *Error {
	return new_(CategoryTransport, "", message)
}

func NoSuchProcedure(uri string) *Error {
	return Application(URINoSuchProcedure, fmt.Sprintf("no callee registered for %q", uri))
}

func ProcedureAlreadyExists(uri string) *Error {
	return Resource(URIProcedureAlreadyExists, fmt.Sprintf("a registration already exists for %q", uri))
}

func NoSuchSubscription(id uint64) *Error {
	return Application(URINoSuchSubscription, fmt.Sprintf("no subscription with id %d for this session", id))
}

func NoSuchRegistration(id uint64) *Error {
	return Application(URINoSuchRegistration, fmt.Sprintf("no registration with id %d for this session", id))
}

func InvalidURI(uri string) *Error {
	return Application(URIInvalidURI, fmt.Sprintf("%q is not a well-formed URI for the requested match policy", uri))
}

func InvalidArgument(message string) *Error {
	return Application(URIInvalidArgument, message)
}

func Canceled(reason string) *Error {
	return Application(URICanceled, reason)
}

func Timeout(uri string) *Error {
	return Application(URITimeout, fmt.Sprintf("call to %q exceeded its timeout", uri))
}

// As reports whether err is a *Error and returns it, mirroring the
// idiom errors.As callers expect.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
