// Package rferrors defines the error-kind taxonomy shared by every
// component of the download engine. A Kind is attached to the underlying
// cause with pkg/errors so callers keep a stack trace while still being
// able to switch on what went wrong.
package rferrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure the way the engine's components need to
// react to it: retry, abort the job, or mark a single segment failed.
type Kind int

const (
	// Unknown is the zero value; KindOf returns it for errors that were
	// never tagged by this package.
	Unknown Kind = iota
	Transport
	ResponseFailed
	URIParse
	URI
	CreateFile
	IO
	GetContentSize
	Incomplete
	Decrypt
	RequestOutOfTry
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "Transport"
	case ResponseFailed:
		return "ResponseFailed"
	case URIParse:
		return "URIParse"
	case URI:
		return "URI"
	case CreateFile:
		return "CreateFile"
	case IO:
		return "IO"
	case GetContentSize:
		return "GetContentSize"
	case Incomplete:
		return "Incomplete"
	case Decrypt:
		return "Decrypt"
	case RequestOutOfTry:
		return "RequestOutOfTry"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind, an optional status/detail, and the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause.Error())
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// New tags cause with kind, attaching a pkg/errors stack trace recorded at
// this call. A nil cause is replaced by an error carrying detail.
func New(kind Kind, cause error, detail string) error {
	if cause == nil {
		cause = errors.New(detail)
	} else {
		cause = errors.WithStack(cause)
	}
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

// ResponseFailedf builds a ResponseFailed error carrying the HTTP status.
func ResponseFailedf(status int) error {
	return New(ResponseFailed, nil, fmt.Sprintf("unexpected status %d", status))
}

// RequestOutOfTryf builds a RequestOutOfTry error carrying the number of
// attempts made (callers pass the retry budget plus the first attempt).
func RequestOutOfTryf(tries int) error {
	return New(RequestOutOfTry, nil, fmt.Sprintf("exhausted %d attempt(s)", tries))
}

// KindOf returns the Kind tagged on err, or Unknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
