package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies an upstream failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindServerError
	KindNetworkUnreachable
	KindInvalidResponseShape
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindServerError:
		return "server_error"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindInvalidResponseShape:
		return "invalid_response_shape"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrNotFound             = errors.New("product not found")
	ErrServerError          = errors.New("catalog server error")
	ErrNetworkUnreachable   = errors.New("catalog unreachable")
	ErrInvalidResponseShape = errors.New("invalid catalog response")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindServerError:
		return ErrServerError
	case KindNetworkUnreachable:
		return ErrNetworkUnreachable
	case KindInvalidResponseShape:
		return ErrInvalidResponseShape
	default:
		return nil
	}
}

// Error is the only error type the Client returns.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int    // 0 when no response was received
	Message    string // upstream message, if the response carried one
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("catalog %s: %s", e.Op, e.Kind.sentinel())
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the Kind of a catalog error, 0 for anything else.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}
