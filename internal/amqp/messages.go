package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"pocketflow/internal/core"
)

// EventType names a record change.
type EventType string

const (
	EventRecordCreated EventType = "record.created"
	EventRecordUpdated EventType = "record.updated"
	EventRecordDeleted EventType = "record.deleted"
)

func (t EventType) valid() bool {
	switch t {
	case EventRecordCreated, EventRecordUpdated, EventRecordDeleted:
		return true
	}
	return false
}

// RecordEvent is published after a record change has been committed.
// Record carries the post-change value, or the removed value for deletes.
type RecordEvent struct {
	Type      EventType             `json:"type"`
	RecordID  string                `json:"record_id"`
	OwnerID   string                `json:"owner_id"`
	Record    *core.FinancialRecord `json:"record,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewRecordEvent builds an event stamped with the current time.
func NewRecordEvent(t EventType, r core.FinancialRecord) *RecordEvent {
	return &RecordEvent{
		Type:      t,
		RecordID:  r.ID,
		OwnerID:   r.OwnerID,
		Record:    &r,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes and sanity-checks an event.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var ev RecordEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.valid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.RecordID == "" {
		return nil, fmt.Errorf("event without record_id")
	}
	if ev.Type != EventRecordDeleted && ev.Record == nil {
		return nil, fmt.Errorf("%s event without record", ev.Type)
	}
	return &ev, nil
}
