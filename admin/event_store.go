// Package admin provides the HTTP surface for the recharge engine.
package admin

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tarunvoff/mobile-backend/event"
)

// EventStore is an in-memory ring of recent lifecycle events backing the
// event log endpoint. When the cap is reached the oldest events are dropped.
type EventStore struct {
	events    []StoredEvent
	maxEvents int
	mu        sync.RWMutex
	nextID    int64
}

// StoredEvent is the stored form of a lifecycle event.
type StoredEvent struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	TxID      string         `json:"txId,omitempty"`
	Service   string         `json:"service,omitempty"`
	Status    string         `json:"status,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// EventFilter selects stored events.
type EventFilter struct {
	Type   string
	TxID   string
	Limit  int
	Offset int
}

// NewEventStore creates an EventStore holding at most maxEvents entries.
func NewEventStore(maxEvents int) *EventStore {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &EventStore{
		events:    make([]StoredEvent, 0, maxEvents),
		maxEvents: maxEvents,
	}
}

// Store records one event, evicting the oldest when full.
func (s *EventStore) Store(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := atomic.AddInt64(&s.nextID, 1)

	var errorMsg string
	if e.Error != nil {
		errorMsg = e.Error.Error()
	}

	s.events = append(s.events, StoredEvent{
		ID:        id,
		Type:      string(e.Type),
		TxID:      e.TxID,
		Service:   e.Service,
		Status:    e.Status,
		Timestamp: e.Timestamp,
		Data:      e.Data,
		Error:     errorMsg,
	})

	if len(s.events) > s.maxEvents {
		excess := len(s.events) - s.maxEvents
		s.events = s.events[excess:]
	}
}

// List returns the matching events newest first.
func (s *EventStore) List(filter EventFilter) []StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.Limit <= 0 {
		filter.Limit = 100
	}

	var filtered []StoredEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.TxID != "" && e.TxID != filter.TxID {
			continue
		}
		filtered = append(filtered, e)
	}

	if filter.Offset >= len(filtered) {
		return []StoredEvent{}
	}

	start := filter.Offset
	end := start + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end]
}

// Count returns the number of matching events.
func (s *EventStore) Count(filter EventFilter) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.Type == "" && filter.TxID == "" {
		return len(s.events)
	}

	count := 0
	for _, e := range s.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.TxID != "" && e.TxID != filter.TxID {
			continue
		}
		count++
	}
	return count
}

// EventHandler returns a handler suitable for EventBus.SubscribeAll.
func (s *EventStore) EventHandler() event.EventHandler {
	return func(ctx context.Context, e event.Event) error {
		s.Store(e)
		return nil
	}
}

// Clear removes all stored events. Mainly for tests.
func (s *EventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]StoredEvent, 0, s.maxEvents)
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
