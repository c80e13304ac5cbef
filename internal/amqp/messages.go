package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kakeibo/internal/core"
)

type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is published after every successful write to the
// transaction list. It carries the full record so consumers never read back
// from the web process's store.
type TransactionEvent struct {
	Kind        EventKind        `json:"kind"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:        kind,
		Transaction: tx,
		Timestamp:   time.Now(),
	}
}

func (k EventKind) IsValid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.IsValid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.Transaction.ID == "" {
		return nil, errors.New("event without transaction id")
	}
	return &ev, nil
}
