package engine

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Reducer computes the next state of a screen from its current state and
// an incoming action. It must be pure; side effects are returned as
// Effects and Events in the Transition.
type Reducer[S, A any] func(state S, action A) Transition[S, A]

// Transition is the outcome of one reduction
type Transition[S, A any] struct {
	State   S
	Events  []Event
	Effects []Effect[A]
}

// Effect is asynchronous work started by a transition. Run feeds its
// results back into the engine through dispatch and must return once ctx
// is done.
//
// Starting an effect cancels any running effect with the same non-empty
// Key; actions dispatched by a cancelled effect are discarded.
type Effect[A any] struct {
	Key string
	Run func(ctx context.Context, dispatch func(A))
}

// Config configures an engine
type Config struct {
	// EventBuffer is the event queue capacity. See EventQueue for the
	// overflow policy.
	EventBuffer int
	// Name identifies the engine in logs
	Name string
}

// Engine owns the state of one screen. Actions are reduced one at a time,
// in the order they were received, on a single goroutine.
type Engine[S, A any] struct {
	reduce Reducer[S, A]
	events *EventQueue
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    S
	inbox    []A
	effects  map[string]*effect
	watchers map[int]chan S
	nextID   int
	closed   bool
}

type effect struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// New starts an engine in the initial state
func New[S, A any](initial S, reduce Reducer[S, A], config Config) *Engine[S, A] {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[S, A]{
		reduce:   reduce,
		events:   NewEventQueue(config.EventBuffer),
		log:      logrus.WithField("engine", config.Name),
		ctx:      ctx,
		cancel:   cancel,
		wake:     make(chan struct{}, 1),
		state:    initial,
		effects:  make(map[string]*effect),
		watchers: make(map[int]chan S),
	}

	e.wg.Add(1)
	go e.loop()
	return e
}

// OnAction queues an action for reduction. It never blocks and is safe to
// call from any goroutine. Actions sent after Close are ignored.
func (e *Engine[S, A]) OnAction(action A) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.inbox = append(e.inbox, action)
	e.mu.Unlock()

	e.signal()
}

// State returns the latest state snapshot
func (e *Engine[S, A]) State() S {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Watch streams state snapshots, starting with the current one. Slow
// readers only see the latest state. The channel is closed when ctx is
// done or the engine is closed.
func (e *Engine[S, A]) Watch(ctx context.Context) <-chan S {
	ch := make(chan S, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		close(ch)
		return ch
	}
	id := e.nextID
	e.nextID++
	e.watchers[id] = ch
	ch <- e.state
	e.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if ch, ok := e.watchers[id]; ok {
			delete(e.watchers, id)
			close(ch)
		}
	}()

	return ch
}

// Events returns the one-shot event channel. Each event is received by
// exactly one reader. The channel is closed by Close.
func (e *Engine[S, A]) Events() <-chan Event {
	return e.events.C()
}

// Dropped returns how many events were discarded by queue overflow
func (e *Engine[S, A]) Dropped() int {
	return e.events.Dropped()
}

// Close cancels every running effect, waits for them to return and closes
// the event and watch channels. Undelivered events stay readable.
func (e *Engine[S, A]) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.inbox = nil
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.events.Close()

	e.mu.Lock()
	for id, ch := range e.watchers {
		delete(e.watchers, id)
		close(ch)
	}
	e.mu.Unlock()
}

func (e *Engine[S, A]) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine[S, A]) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.wake:
		}

		for {
			e.mu.Lock()
			if e.closed || len(e.inbox) == 0 {
				e.mu.Unlock()
				break
			}
			action := e.inbox[0]
			e.inbox = e.inbox[1:]
			state := e.state
			e.mu.Unlock()

			e.apply(e.reduce(state, action))
		}
	}
}

func (e *Engine[S, A]) apply(t Transition[S, A]) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.state = t.State
	for _, ch := range e.watchers {
		offerLatest(ch, t.State)
	}
	e.mu.Unlock()

	for _, event := range t.Events {
		e.log.WithField("event_type", event.EventType()).Debug("Emitting event")
		e.events.Push(event)
	}
	for _, eff := range t.Effects {
		e.start(eff)
	}
}

func (e *Engine[S, A]) start(eff Effect[A]) {
	if eff.Run == nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	handle := &effect{ctx: ctx, cancel: cancel}
	if eff.Key != "" {
		if previous, ok := e.effects[eff.Key]; ok {
			e.log.WithField("effect", eff.Key).Debug("Cancelling superseded effect")
			previous.cancel()
		}
		e.effects[eff.Key] = handle
	}
	e.wg.Add(1)
	e.mu.Unlock()

	dispatch := func(action A) {
		e.mu.Lock()
		// Checked under mu, which also guards cancellation by a newer effect.
		if handle.ctx.Err() != nil || e.closed {
			e.mu.Unlock()
			return
		}
		e.inbox = append(e.inbox, action)
		e.mu.Unlock()
		e.signal()
	}

	go func() {
		defer e.wg.Done()
		defer cancel()

		eff.Run(ctx, dispatch)

		e.mu.Lock()
		if eff.Key != "" && e.effects[eff.Key] == handle {
			delete(e.effects, eff.Key)
		}
		e.mu.Unlock()
	}()
}

// offerLatest replaces any unread state with the newer one
func offerLatest[S any](ch chan S, state S) {
	select {
	case ch <- state:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
