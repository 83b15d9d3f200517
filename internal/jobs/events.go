package jobs

import (
	"sort"
	"sync"
	"time"

	"zip-resizer/internal/domain"
)

// EventType classifies messages emitted while queueing and running jobs.
type EventType string

const (
	EventTypeJobAdded    EventType = "job_added"
	EventTypeStatus      EventType = "status"
	EventTypeRunStarted  EventType = "run_started"
	EventTypeRunFinished EventType = "run_finished"
	EventTypeError       EventType = "error"
	EventTypeDropHover   EventType = "drop_hover"
	EventTypeCleared     EventType = "cleared"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	Type      EventType        `json:"type"`
	RunID     string           `json:"runId,omitempty"`
	Path      string           `json:"path,omitempty"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Message   string           `json:"message,omitempty"`
	Hover     bool             `json:"hover,omitempty"`
	Summary   *Summary         `json:"summary,omitempty"`
}

// EventBus stores recent events, provides incremental reads and fans
// published events out to subscribers.
type EventBus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	nextSubID   int
	subscribers map[int]func(Event)
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[int]func(Event)),
	}
}

// Publish appends one event, assigns sequence and timestamp and notifies
// subscribers outside the lock.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	subs := make([]func(Event), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	return event
}

// Subscribe registers fn for every future event. The returned func removes it.
func (b *EventBus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	b.subscribers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscribers, id)
	}
}

// Since returns buffered events with sequence strictly greater than seq,
// oldest first.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := sort.Search(len(b.events), func(i int) bool {
		return b.events[i].Seq > seq
	})
	if start == len(b.events) {
		return nil
	}
	return append([]Event(nil), b.events[start:]...)
}

// LastSeq returns the sequence of the newest published event.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

// JobAdded publishes a registry add.
func (b *EventBus) JobAdded(job domain.Job) {
	b.Publish(Event{
		Type:   EventTypeJobAdded,
		Path:   job.Path,
		Status: job.Status,
	})
}

// JobStatusChanged publishes a registry status change.
func (b *EventBus) JobStatusChanged(path string, status domain.JobStatus) {
	b.Publish(Event{
		Type:   EventTypeStatus,
		Path:   path,
		Status: status,
	})
}
