package domain

import "errors"

// ErrorKind is a closed set of failure categories. The transport layer maps
// each kind to an HTTP status without inspecting concrete error types.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindDuplicate
	KindNotAuthenticated
	KindNotAuthorized
	KindNotFound
	KindTokenInvalid
	KindTokenExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNotAuthorized:
		return "not_authorized"
	case KindNotFound:
		return "not_found"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	default:
		return "unknown"
	}
}

// Error carries a kind and a caller-safe message. The underlying cause is
// kept for server-side logs only and is never part of Error().
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// E builds a domain error, optionally wrapping an internal cause.
func E(kind ErrorKind, message string, cause ...error) *Error {
	err := &Error{Kind: kind, Message: message}
	if len(cause) > 0 {
		err.cause = cause[0]
	}
	return err
}

func Validation(message string, cause ...error) *Error {
	return E(KindValidation, message, cause...)
}

func Duplicate(message string, cause ...error) *Error {
	return E(KindDuplicate, message, cause...)
}

func NotAuthenticated(message string, cause ...error) *Error {
	return E(KindNotAuthenticated, message, cause...)
}

func NotAuthorized(message string, cause ...error) *Error {
	return E(KindNotAuthorized, message, cause...)
}

func NotFound(message string, cause ...error) *Error {
	return E(KindNotFound, message, cause...)
}

func TokenInvalid(message string, cause ...error) *Error {
	return E(KindTokenInvalid, message, cause...)
}

func TokenExpired(message string, cause ...error) *Error {
	return E(KindTokenExpired, message, cause...)
}

// KindOf extracts the kind from err, or KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
