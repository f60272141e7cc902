package negotiator

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	AlreadyInProgress ErrorKind = iota + 1
	NoActiveContext
	DescriptionRejected
)

func (k ErrorKind) String() string {
	switch k {
	case AlreadyInProgress:
		return "already in progress"
	case NoActiveContext:
		return "no active context"
	case DescriptionRejected:
		return "description rejected"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// NegotiationError reports why a handshake step could not run.
// errors.Is matches on Kind, so callers compare against the Err* values.
type NegotiationError struct {
	Kind ErrorKind
	Err  error
}

func (e *NegotiationError) Error() string {
	if e.Err == nil {
		return "negotiation: " + e.Kind.String()
	}
	return fmt.Sprintf("negotiation: %s: %v", e.Kind, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

func (e *NegotiationError) Is(target error) bool {
	var t *NegotiationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrAlreadyInProgress   = &NegotiationError{Kind: AlreadyInProgress}
	ErrNoActiveContext     = &NegotiationError{Kind: NoActiveContext}
	ErrDescriptionRejected = &NegotiationError{Kind: DescriptionRejected}

	ErrChannelNotReady  = errors.New("data channel not ready")
	ErrHandshakeTimeout = errors.New("handshake timed out")
	ErrConnectionFailed = errors.New("peer connection failed")
	ErrClosed           = errors.New("negotiator closed")
)

func negErr(kind ErrorKind, err error) error {
	return &NegotiationError{Kind: kind, Err: err}
}
