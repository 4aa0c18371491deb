// Package events publishes lifecycle events for downstream consumers
// (rosters, reporting). Publishing is best-effort: services log failures
// and never fail the originating request.
package events

import "time"

// Event is the JSON payload published after every successful mutation.
type Event struct {
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	EntityID   string    `json:"entityId"`
	EntityName string    `json:"entityName,omitempty"`
	SchoolID   string    `json:"schoolId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Producer interface {
	Publish(event Event) error
	Close() error
}

// Nop is used when no backend is configured.
type Nop struct{}

func (Nop) Publish(Event) error { return nil }
func (Nop) Close() error        { return nil }
