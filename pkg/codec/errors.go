package codec

import (
	"fmt"
	"net/http"
)

type Reason uint8

const (
	Truncated Reason = iota + 1
	UnknownKind
	Malformed
	Incompatible
)

func (r Reason) String() string {
	switch r {
	case Truncated:
		return "Truncated"
	case UnknownKind:
		return "UnknownKind"
	case Malformed:
		return "Malformed"
	case Incompatible:
		return "Incompatible"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// CodecError is returned for payloads that cannot be turned into results.
// errors.Is matches on the reason.
type CodecError struct {
	Reason Reason
	Msg    string
}

var (
	ErrTruncated    = &CodecError{Reason: Truncated, Msg: "payload ends prematurely"}
	ErrUnknownKind  = &CodecError{Reason: UnknownKind, Msg: "unknown kind"}
	ErrMalformed    = &CodecError{Reason: Malformed, Msg: "malformed payload"}
	ErrIncompatible = &CodecError{Reason: Incompatible, Msg: "unsupported payload version"}
)

func (e *CodecError) Error() string {
	return "codec: " + e.Msg
}

func (e *CodecError) Is(target error) bool {
	t, ok := target.(*CodecError)
	return ok && t.Reason == e.Reason
}

func (e *CodecError) HTTPStatusCode() int {
	return http.StatusBadRequest
}

func newError(reason Reason, format string, a ...interface{}) *CodecError {
	return &CodecError{Reason: reason, Msg: fmt.Sprintf(format, a...)}
}
