package whatsapp

import (
	"testing"
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) StatusEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no status event received")
		return StatusEvent{}
	}
}

func TestStatusTrackerFansOutChanges(t *testing.T) {
	tracker := NewStatusTracker(clock.NewFakeClock(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))

	first := tracker.Subscribe()
	defer first.Close()
	second := tracker.Subscribe()
	defer second.Close()

	assert.Equal(t, StateUnknown, receive(t, first).State)
	assert.Equal(t, StateUnknown, receive(t, second).State)

	tracker.Update(StateConnected, "")
	tracker.Update(StateConnected, "")
	tracker.Update(StateDisconnected, "status 401")

	for _, sub := range []*Subscription{first, second} {
		assert.Equal(t, StateConnected, receive(t, sub).State)
		ev := receive(t, sub)
		assert.Equal(t, StateDisconnected, ev.State)
		assert.Equal(t, "status 401", ev.Reason)
		assert.Empty(t, sub.Events())
	}
	assert.Equal(t, StateDisconnected, tracker.Current().State)
}

func TestStatusTrackerCloseUnsubscribes(t *testing.T) {
	tracker := NewStatusTracker(clock.NewFakeClock(time.Now()))
	sub := tracker.Subscribe()
	require.Equal(t, 1, tracker.subscribers())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, tracker.subscribers())

	<-sub.Events()
	_, ok := <-sub.Events()
	assert.False(t, ok)

	tracker.Update(StateConnected, "")
}

func TestStatusTrackerSlowSubscriberKeepsLatest(t *testing.T) {
	tracker := NewStatusTracker(clock.NewFakeClock(time.Now()))
	sub := tracker.Subscribe()
	defer sub.Close()

	states := []State{StateConnected, StateDisconnected}
	for i := 0; i < defaultSubscriptionBuffer*3; i++ {
		tracker.Update(states[i%2], "")
	}

	var last StatusEvent
	for len(sub.Events()) > 0 {
		last = receive(t, sub)
	}
	assert.Equal(t, tracker.Current().State, last.State)
}
