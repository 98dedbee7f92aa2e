// Package apperr defines the structured error taxonomy that crosses actor
// boundaries: transient I/O, cache, decode, auth, protocol, and fatal
// errors, each classifiable without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories from the error handling design.
type Kind int

const (
	KindTransient Kind = iota
	KindCache
	KindDecode
	KindAuth
	KindProtocol
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindCache:
		return "cache"
	case KindDecode:
		return "decode"
	case KindAuth:
		return "auth"
	case KindProtocol:
		return "protocol"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can classify it
// without parsing strings.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable reports whether the layer that produced this error should be
// retried (transient network failures only).
func (e *Error) IsRetryable() bool { return e.Kind == KindTransient }

// IsAuthError reports whether this error should reactivate the login view.
func (e *Error) IsAuthError() bool { return e.Kind == KindAuth }

// IsNetworkError reports whether this error originated from the network
// layer (transient errors are always network errors in this system; a
// decode error, for instance, is not).
func (e *Error) IsNetworkError() bool { return e.Kind == KindTransient }

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

func Transient(msg string, cause error) *Error { return newErr(KindTransient, msg, cause) }
func Cache(msg string, cause error) *Error     { return newErr(KindCache, msg, cause) }
func Decode(msg string, cause error) *Error    { return newErr(KindDecode, msg, cause) }
func Auth(msg string, cause error) *Error      { return newErr(KindAuth, msg, cause) }
func Protocol(msg string, cause error) *Error  { return newErr(KindProtocol, msg, cause) }
func Fatal(msg string, cause error) *Error     { return newErr(KindFatal, msg, cause) }

// As is a convenience wrapper over errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// UserMessage builds the string shown at the UI boundary (spec §7:
// "User-visible strings are built at the UI boundary").
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		switch e.Kind {
		case KindTransient:
			return "track unavailable — network error"
		case KindCache:
			return "cache error: " + e.Message
		case KindDecode:
			return "playback error: " + e.Message
		case KindAuth:
			return "session expired — please log in again"
		case KindProtocol:
			return "unexpected response from server"
		case KindFatal:
			return "fatal error: " + e.Message
		}
	}
	return err.Error()
}
