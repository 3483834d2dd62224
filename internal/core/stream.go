package core

import "context"

// SnapshotLoader retrieves the initial set of entries with a single
// request/response call. It returns a *SnapshotError on failure and
// never mutates a LogBuffer itself.
type SnapshotLoader interface {
	Fetch(ctx context.Context) ([]LogEntry, error)
}

// StreamHandler receives events from a StreamSubscriber. Calls are
// made from the subscriber's connection loop, one at a time and in
// arrival order, so implementations must return promptly.
type StreamHandler interface {
	// HandleMessage is invoked once per received message with its raw
	// payload.
	HandleMessage(LogEntry)
	// HandleError is invoked on every transition into StateErrored.
	// The subscriber reconnects regardless of what the handler does.
	HandleError(error)
	// HandleStateChange is invoked after every state transition.
	HandleStateChange(ConnectionState)
}

// StreamSubscriber owns one persistent broker connection and its
// reconnect loop.
type StreamSubscriber interface {
	// Activate begins the connect loop. Calling it more than once, or
	// after Deactivate, has no effect.
	Activate()
	// Deactivate terminates the subscriber from any state, including
	// mid-handshake and mid-reconnect-wait. When it returns no further
	// handler calls will be made. It is idempotent.
	Deactivate()
	// State returns the current connection state.
	State() ConnectionState
}

// StreamSource creates subscribers bound to a configured broker and
// topic.
type StreamSource interface {
	NewSubscriber(h StreamHandler) StreamSubscriber
}
