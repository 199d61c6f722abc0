package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultEventBuffer is the event queue capacity used when none is configured
const DefaultEventBuffer = 64

// Event is a one-shot instruction for the UI. It is delivered at most once
// and never becomes part of the state.
type Event interface {
	EventID() string
	EventType() string
	OccurredAt() time.Time
}

// BaseEvent provides common event properties
type BaseEvent struct {
	eventID    string
	eventType  string
	occurredAt time.Time
}

// NewBaseEvent creates a new base event
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		eventID:    uuid.New().String(),
		eventType:  eventType,
		occurredAt: time.Now(),
	}
}

func (e BaseEvent) EventID() string {
	return e.eventID
}

func (e BaseEvent) EventType() string {
	return e.eventType
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

// NavigateTo asks the UI to open another screen
type NavigateTo struct {
	BaseEvent
	Target string
}

// NewNavigateTo creates a navigation event for target
func NewNavigateTo(target string) NavigateTo {
	return NavigateTo{BaseEvent: NewBaseEvent("navigate_to"), Target: target}
}

// ShowMessage asks the UI to show a transient message. Retry is set when
// the message reports a failure worth retrying.
type ShowMessage struct {
	BaseEvent
	Text  string
	Retry bool
}

// NewShowMessage creates a message event
func NewShowMessage(text string, retry bool) ShowMessage {
	return ShowMessage{BaseEvent: NewBaseEvent("show_message"), Text: text, Retry: retry}
}

// EventQueue is a bounded FIFO of events with a single consumer side.
//
// Push never blocks. When the queue is full the oldest queued event is
// dropped to make room, so a consumer that attaches late sees the newest
// events in order.
type EventQueue struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped int
}

// NewEventQueue creates a queue holding up to capacity events. A capacity
// below 1 uses DefaultEventBuffer.
func NewEventQueue(capacity int) *EventQueue {
	if capacity < 1 {
		capacity = DefaultEventBuffer
	}
	return &EventQueue{ch: make(chan Event, capacity)}
}

// Push enqueues an event. It reports false once the queue is closed.
func (q *EventQueue) Push(event Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- event:
		return true
	default:
	}

	// Full: drop the oldest. The consumer may have freed a slot meanwhile.
	select {
	case old := <-q.ch:
		q.dropped++
		logrus.WithFields(logrus.Fields{
			"event_id":   old.EventID(),
			"event_type": old.EventType(),
			"dropped":    q.dropped,
		}).Warn("Event queue full, dropping oldest event")
	default:
	}
	q.ch <- event
	return true
}

// C returns the receive side of the queue. It is closed by Close once the
// remaining events have been read.
func (q *EventQueue) C() <-chan Event {
	return q.ch
}

// Len returns the number of undelivered events
func (q *EventQueue) Len() int {
	return len(q.ch)
}

// Dropped returns how many events were discarded because the queue was full
func (q *EventQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting events. Queued events stay readable.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
