package siyuan

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the note store cannot be reached at all:
	// connection refused, DNS failure, timeout.
	ErrTransport = errors.New("note store unreachable")
	// ErrProtocol is returned when the note store answers with a shape the
	// client does not recognize.
	ErrProtocol = errors.New("unexpected note store response shape")
	// ErrNotFound is returned when a block or document id does not exist.
	ErrNotFound = errors.New("block not found")
)

// RemoteError is a non-zero code in the note store's response envelope.
type RemoteError struct {
	Code int
	Msg  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("note store error %d: %s", e.Code, e.Msg)
}

// IsUnavailable reports whether err means the remote store is down rather
// than rejecting a particular request.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrTransport)
}
