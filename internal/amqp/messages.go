package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeKind names the mutation that produced a ChangeEvent.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent tells every instance that an owner's records changed. It only
// carries identifiers; consumers drop derived state instead of applying the
// change.
type ChangeEvent struct {
	Kind          ChangeKind `json:"kind"`
	Owner         string     `json:"owner"`
	TransactionID string     `json:"transactionId"`
	Origin        string     `json:"origin"`
	Timestamp     time.Time  `json:"timestamp"`
}

func NewChangeEvent(kind ChangeKind, owner, transactionID string) ChangeEvent {
	return ChangeEvent{
		Kind:          kind,
		Owner:         owner,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and checks an event body.
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	switch e.Kind {
	case ChangeCreated, ChangeUpdated, ChangeDeleted:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown change kind %q", e.Kind)
	}
	if e.Owner == "" {
		return ChangeEvent{}, fmt.Errorf("change event without owner")
	}
	return e, nil
}
