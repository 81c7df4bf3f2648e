package marketplace

import (
	"sync"
	"time"

	"github.com/seantiz/proofmarket/internal/model"
)

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 16

// Lifecycle event types.
const (
	EventSubmitted = "submitted"
	EventMatched   = "matched"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

// Event describes a committed change to a job.
type Event struct {
	Type   string          `json:"type"`
	JobID  model.JobID     `json:"job_id"`
	Status model.JobStatus `json:"status"`
	Prover model.AccountID `json:"prover,omitempty"`
	At     time.Time       `json:"at"`
}

// EventBroker fans job lifecycle events out to subscribers. It is safe for
// concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a job reached a terminal state) receive a closed channel
// instead of blocking forever.
type EventBroker struct {
	mu     sync.Mutex
	topics map[model.JobID]*eventTopic
}

type eventTopic struct {
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewEventBroker creates a new event broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		topics: make(map[model.JobID]*eventTopic),
	}
}

// Subscribe returns a channel receiving events for the given job and an
// unsubscribe function. If the job already finished, the channel is closed.
func (b *EventBroker) Subscribe(id model.JobID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[id]
	if !ok {
		t = &eventTopic{subs: make(map[int]chan Event)}
		b.topics[id] = t
	}

	ch := make(chan Event, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	subID := t.nextID
	t.nextID++
	t.subs[subID] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, subID)
	}
}

// Publish sends ev to all subscribers of its job. Events are dropped for
// subscribers whose buffers are full.
func (b *EventBroker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[ev.JobID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close signals that no more events will be published for the job.
func (b *EventBroker) Close(id model.JobID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[id]
	if !ok {
		b.topics[id] = &eventTopic{subs: make(map[int]chan Event), closed: true}
		return
	}

	t.closed = true
	for subID, ch := range t.subs {
		close(ch)
		delete(t.subs, subID)
	}
}
