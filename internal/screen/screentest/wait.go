package screentest

import (
	"context"
	"testing"
	"time"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/engine"
)

// Timeout bounds every wait in this package
const Timeout = 2 * time.Second

// WaitFor returns the first state of e accepted by done
func WaitFor[S, A any](t testing.TB, e *engine.Engine[S, A], done func(S) bool) S {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	var last S
	for state := range e.Watch(ctx) {
		last = state
		if done(state) {
			return state
		}
	}
	t.Fatalf("state never matched, last = %+v", last)
	return last
}

// NextEvent returns the next event from events
func NextEvent(t testing.TB, events <-chan engine.Event) engine.Event {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(Timeout):
		t.Fatal("timed out waiting for an event")
	}
	return nil
}

// NoEvent fails if an event arrives shortly
func NoEvent(t testing.TB, events <-chan engine.Event) {
	t.Helper()
	select {
	case event := <-events:
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
