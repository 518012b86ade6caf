package gateway

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindTransport   ErrorKind = "TRANSPORT_ERROR"
	KindGateway     ErrorKind = "GATEWAY_ERROR"
	KindParse       ErrorKind = "PARSE_ERROR"
	KindUnsupported ErrorKind = "UNSUPPORTED_OPERATION"
)

// Error is a structured failure of a gateway call. It is carried inside a
// Response rather than returned across the provider boundary.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Code != "" {
		msg = fmt.Sprintf("%s: [%s] %s", e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable is true only for transport failures whose outcome is unknown.
func (e *Error) IsRetryable() bool {
	return e.Kind == KindTransport
}

func TransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: "gateway connection failed", Err: err}
}

func GatewayError(code, message string) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message}
}

func UnexpectedStatusError(status int) *Error {
	return &Error{
		Kind:    KindGateway,
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: fmt.Sprintf("Unexpected HTTP status code %d from gateway", status),
	}
}

func ParseError(err error) *Error {
	return &Error{Kind: KindParse, Message: "unable to parse gateway response", Err: err}
}

func UnsupportedOperation(op OrderType) *Error {
	return &Error{Kind: KindUnsupported, Message: fmt.Sprintf("operation %s is not supported", op)}
}

// Response is either a successfully mapped value or an Error, never both.
type Response[T any] struct {
	value             T
	err               *Error
	sessionIdentifier string
}

func Success[T any](value T) Response[T] {
	return Response[T]{value: value}
}

func Failure[T any](err *Error) Response[T] {
	return Response[T]{err: err}
}

func (r Response[T]) WithSessionIdentifier(id string) Response[T] {
	r.sessionIdentifier = id
	return r
}

func (r Response[T]) IsSuccessful() bool {
	return r.err == nil
}

func (r Response[T]) Value() T {
	return r.value
}

func (r Response[T]) Err() *Error {
	return r.err
}

func (r Response[T]) SessionIdentifier() string {
	return r.sessionIdentifier
}

// WireResponse is implemented by each provider's typed response body.
type WireResponse interface {
	ErrorCode() string
	ErrorMessage() string
}

// FromWire applies the error predicate to a decoded body: a non-blank error code
// or message makes the response a GATEWAY_ERROR, otherwise it is mapped to T.
func FromWire[W WireResponse, T any](wire W, mapFn func(W) T) Response[T] {
	code := strings.TrimSpace(wire.ErrorCode())
	message := strings.TrimSpace(wire.ErrorMessage())
	if code != "" || message != "" {
		return Failure[T](GatewayError(code, message))
	}
	return Success(mapFn(wire))
}

// Map transforms the value of a successful response and passes failures through.
func Map[T, U any](r Response[T], fn func(T) U) Response[U] {
	if r.err != nil {
		return Response[U]{err: r.err, sessionIdentifier: r.sessionIdentifier}
	}
	return Response[U]{value: fn(r.value), sessionIdentifier: r.sessionIdentifier}
}
