// Package event provides event definitions and event bus for the recharge engine.
package event

import (
	"time"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	// Transaction lifecycle events
	EventTxInitiated EventType = "tx.initiated"
	EventTxResolved  EventType = "tx.resolved"
	EventTxFailed    EventType = "tx.failed"
	EventTxRetried   EventType = "tx.retried"
	EventTxDuplicate EventType = "tx.duplicate"

	// Recovery events
	EventRecoveryStart EventType = "recovery.start"

	// Alert events
	EventAlertWarning EventType = "alert.warning"
)

// Event carries the details of a lifecycle occurrence.
type Event struct {
	Type      EventType      // event type
	TxID      string         // public transaction identifier
	Service   string         // service type (MOBILE, DTH, BILL, DATA)
	Status    string         // transaction status at event time
	Timestamp time.Time      // event timestamp
	Data      map[string]any // additional payload
	Error     error          // error detail (failure events only)
}

// NewEvent creates a new event with the given type and automatically sets the timestamp.
func NewEvent(eventType EventType) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      make(map[string]any),
	}
}

// WithTxID sets the transaction ID on the event.
func (e Event) WithTxID(txID string) Event {
	e.TxID = txID
	return e
}

// WithService sets the service type on the event.
func (e Event) WithService(service string) Event {
	e.Service = service
	return e
}

// WithStatus sets the transaction status on the event.
func (e Event) WithStatus(status string) Event {
	e.Status = status
	return e
}

// WithError sets the error on the event.
func (e Event) WithError(err error) Event {
	e.Error = err
	return e
}

// WithData sets a key-value pair in the event data.
func (e Event) WithData(key string, value any) Event {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}
