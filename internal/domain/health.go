package domain

import "time"

// ConnectionState is the lifecycle state of the single marketplace stream
// connection. Exactly one instance exists, owned by the connection manager;
// the health monitor only reads it and requests transitions.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAuthenticating
	StateConnected
	StateDegraded
	StateRestarting
)

// String returns the lowercase name used in logs and the health endpoint.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	case StateRestarting:
		return "restarting"
	default:
		return "unknown"
	}
}

// HealthSnapshot captures the liveness bookkeeping for the stream connection.
// LastData and LastStable are written only by the connection manager on data
// arrival; the totals survive forced restarts for observability.
type HealthSnapshot struct {
	LastData            time.Time
	LastStable          time.Time
	ConsecutiveFailures int
	TotalReconnects     int64
	TotalRestarts       int64
	EvalFailures        int64
}
