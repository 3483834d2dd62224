package core

// LogEntry is one raw log/event record as received from the snapshot
// endpoint or the broker. Two textually identical entries are
// indistinguishable.
type LogEntry string

// ConnectionState is the lifecycle state of a stream subscriber.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateErrored
	StateReconnecting
	StateTerminated
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	case StateReconnecting:
		return "reconnecting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name so it reads naturally in the
// dashboard API.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
