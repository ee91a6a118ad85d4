package scanner

import (
	"context"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// Transport is one live connection to the marketplace stream. The connection
// manager owns at most one Transport at a time and closes it on every session
// exit path; implementations must make Close unblock a pending ReadEvent.
type Transport interface {
	// Connect establishes the underlying channel (credential fetch + dial).
	Connect(ctx context.Context) error

	// Authenticate sends the identify credential and blocks until the server
	// confirms the session or ctx expires. An open socket that was never
	// acknowledged is not an authenticated connection.
	Authenticate(ctx context.Context) error

	// ReadEvent blocks until the next item event arrives. It returns an error
	// when the connection is closed or broken.
	ReadEvent(ctx context.Context) (domain.ItemEvent, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// TransportFactory builds a fresh Transport. The manager calls it for every
// connection attempt so a forced restart never reuses a stale handle.
type TransportFactory func() Transport
