package whatsapp

import (
	"sync"
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
)

type State string

const (
	StateUnknown      State = "unknown"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// StatusEvent is published whenever the gateway connection state changes.
type StatusEvent struct {
	State  State     `json:"state"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

const defaultSubscriptionBuffer = 8

// StatusTracker owns the gateway connection state and fans changes out to
// subscribers. Each subscriber gets its own buffered channel; a slow reader
// loses older events but always receives the latest one.
type StatusTracker struct {
	clock clock.Clock

	mu      sync.Mutex
	current StatusEvent
	nextID  uint64
	subs    map[uint64]chan StatusEvent
}

func NewStatusTracker(clk clock.Clock) *StatusTracker {
	return &StatusTracker{
		clock:   clk,
		current: StatusEvent{State: StateUnknown, At: clk.Now()},
		subs:    make(map[uint64]chan StatusEvent),
	}
}

func (t *StatusTracker) Current() StatusEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Update records state and notifies subscribers when it differs from the current one.
func (t *StatusTracker) Update(state State, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.State == state {
		return
	}
	t.current = StatusEvent{State: state, Reason: reason, At: t.clock.Now()}
	for _, ch := range t.subs {
		deliver(ch, t.current)
	}
}

// Subscribe registers a listener. The current state is queued immediately.
func (t *StatusTracker) Subscribe() *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	ch := make(chan StatusEvent, defaultSubscriptionBuffer)
	t.subs[t.nextID] = ch
	ch <- t.current

	return &Subscription{tracker: t, id: t.nextID, events: ch}
}

func (t *StatusTracker) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.subs[id]; ok {
		delete(t.subs, id)
		close(ch)
	}
}

func (t *StatusTracker) subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func deliver(ch chan StatusEvent, ev StatusEvent) {
	select {
	case ch <- ev:
		return
	default:
	}
	// full: drop the oldest queued event to make room
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

type Subscription struct {
	tracker *StatusTracker
	id      uint64
	events  <-chan StatusEvent
	once    sync.Once
}

// Events is closed once Close is called.
func (s *Subscription) Events() <-chan StatusEvent {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.tracker.unsubscribe(s.id)
	})
}
