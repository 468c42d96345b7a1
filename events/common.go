package events

import (
	"bytes"
	"encoding/json"

	nanoid "github.com/matoous/go-nanoid/v2"
)

type BaseEvent struct {
	EventID EventID `json:"event_id,omitempty"`
	Type    string  `json:"type"`
}

// EventType returns the wire discriminator of the event.
func (e BaseEvent) EventType() string {
	return e.Type
}

// EventID is the optional client supplied event id. Any JSON scalar is
// accepted on decode; non-string values keep their literal text.
type EventID string

func (id *EventID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = EventID(s)
		return nil
	}
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*id = ""
		return nil
	}
	*id = EventID(raw)
	return nil
}

func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID: EventID(NewID()),
		Type:    eventType,
	}
}

// NewID returns a fresh nanoid. It panics only if the system random source fails.
func NewID() string {
	id, err := nanoid.New()
	if err != nil {
		panic(err)
	}
	return id
}

func Parse[T any](data []byte) (*T, error) {
	var x T
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, err
	}
	return &x, nil
}
