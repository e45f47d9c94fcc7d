// Package apierrors defines the closed error taxonomy shared by the HTTP
// client core and the auth API. Every failure a caller can observe is one of
// five kinds, so consumers can switch on Kind (or errors.Is against the
// sentinels) instead of sniffing message strings.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for errors.Is matching across package boundaries.
var (
	// Precondition errors
	ErrSessionInvalid = errors.New("session invalid")

	// Domain errors
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrServerUnreachable  = errors.New("server unreachable")

	// Transport errors
	ErrRequestTimeout = errors.New("request timeout")
	ErrNetwork        = errors.New("network failure")
)

// Kind classifies a client-observable failure.
type Kind int

const (
	// KindPrecondition: local state required for the operation is missing
	// (no refresh token, no PKCE verifier). Raised before any network call.
	KindPrecondition Kind = iota
	// KindDomain: the server answered and the answer is a business-level
	// rejection (unknown tenant, bad credentials). Carries a user-facing message.
	KindDomain
	// KindTimeout: the request was cancelled by the client-side deadline.
	KindTimeout
	// KindNetwork: the server could not be reached at all.
	KindNetwork
	// KindHTTP: the server rejected the request with a non-OK status that no
	// other kind claims.
	KindHTTP
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindDomain:
		return "domain"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Error is the single concrete error type of the taxonomy. Status is 408 for
// timeouts, 0 for network failures ("could not reach server") and the real
// status code for HTTP errors.
type Error struct {
	Kind       Kind
	Status     int
	StatusText string
	Message    string // user-facing, possibly localized

	sentinel error
	cause    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind == KindHTTP {
		return fmt.Sprintf("HTTP error %d: %s", e.Status, e.StatusText)
	}
	if e.sentinel != nil {
		return e.sentinel.Error()
	}
	return e.Kind.String() + " error"
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.sentinel != nil {
		errs = append(errs, e.sentinel)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Precondition reports missing local session state. Callers should present
// these as "session invalid, please log in again".
func Precondition(message string) *Error {
	return &Error{Kind: KindPrecondition, Message: message, sentinel: ErrSessionInvalid}
}

// Domain wraps a business-level rejection around one of the domain sentinels.
func Domain(message string, sentinel error) *Error {
	return &Error{Kind: KindDomain, Message: message, sentinel: sentinel}
}

// Timeout reports a request cancelled by the client-side deadline.
func Timeout(message string, cause error) *Error {
	return &Error{
		Kind:       KindTimeout,
		Status:     http.StatusRequestTimeout,
		StatusText: http.StatusText(http.StatusRequestTimeout),
		Message:    message,
		sentinel:   ErrRequestTimeout,
		cause:      cause,
	}
}

// Network reports a transport-level failure (DNS, connection refused).
// Status 0 distinguishes "could not reach server" from "server rejected".
func Network(message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Status: 0, Message: message, sentinel: ErrNetwork, cause: cause}
}

// HTTPStatus reports a non-OK response that no other kind claims.
func HTTPStatus(status int, statusText string) *Error {
	return &Error{Kind: KindHTTP, Status: status, StatusText: statusText}
}

// KindOf returns the taxonomy kind of err, or (0, false) if err does not
// belong to the taxonomy.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// StatusOf returns the HTTP-analogous status carried by err, or -1 if err is
// not a taxonomy error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return -1
}

// IsTimeout reports whether err is a client-side deadline failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRequestTimeout)
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
