package core

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity indicates a non-positive buffer capacity.
var ErrInvalidCapacity = errors.New("buffer capacity must be positive")

// SnapshotErrorKind classifies a failed snapshot fetch.
type SnapshotErrorKind string

const (
	// SnapshotNetwork covers transport failures: timeouts, refused
	// connections and non-success status codes.
	SnapshotNetwork SnapshotErrorKind = "network"
	// SnapshotDecode means the response body did not have the
	// expected shape.
	SnapshotDecode SnapshotErrorKind = "decode"
)

// SnapshotError reports a failed one-shot snapshot fetch. It is never
// retried automatically.
type SnapshotError struct {
	Kind SnapshotErrorKind
	Err  error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %s error: %v", e.Kind, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// StreamError reports a protocol or transport failure on the
// persistent broker connection. The subscriber always reconnects
// after one.
type StreamError struct {
	// Op is the stage that failed, e.g. "dial", "subscribe" or
	// "receive".
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// User-visible messages surfaced to the dashboard.
const (
	snapshotErrorMessage = "Failed to fetch logs. Please try again."
	streamErrorMessage   = "WebSocket connection error. Please try again."
)

// ErrorMessage maps an error from the snapshot or stream path to the
// message shown to operators.
func ErrorMessage(err error) string {
	var (
		snapErr   *SnapshotError
		streamErr *StreamError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &snapErr):
		return snapshotErrorMessage
	case errors.As(err, &streamErr):
		return streamErrorMessage
	default:
		return err.Error()
	}
}
