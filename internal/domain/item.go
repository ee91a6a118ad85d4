package domain

import "time"

// EventKind classifies an inbound marketplace listing event.
type EventKind string

const (
	KindNew     EventKind = "new"
	KindUpdate  EventKind = "update"
	KindRemoved EventKind = "removed"
)

// ItemEvent is a single listing event received from the marketplace stream.
// The transport layer creates it; the evaluator consumes it exactly once.
// Price is in the marketplace's own currency (Empire coins).
type ItemEvent struct {
	Key        string
	Price      float64
	Kind       EventKind
	ReceivedAt time.Time
}
