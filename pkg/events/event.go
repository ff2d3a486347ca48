package events

import "time"

// Event defines the contract for all client events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "auth.token_evicted").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// TabID extracts the tab the event is addressed to, if any.
func TabID(e Event) string {
	if e == nil || e.Payload() == nil {
		return ""
	}
	id, _ := e.Payload()["tab_id"].(string)
	return id
}
