package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// eventHeap implements heap.Interface with deterministic ordering.
// Ordering: timestamp, then insertion sequence (FIFO tie-break).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventHeap []*Event

func (eq eventHeap) Len() int { return len(eq) }

func (eq eventHeap) Less(i, j int) bool {
	if eq[i].Time != eq[j].Time {
		return eq[i].Time < eq[j].Time
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventHeap) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventHeap) Push(x any) {
	*eq = append(*eq, x.(*Event))
}

func (eq *eventHeap) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*eq = old[0 : n-1]
	return item
}

// Handler observes one dispatched event. Handlers run synchronously inside
// dispatch; all handlers of an event observe it before the kernel advances.
type Handler func(*Event)

// SubID identifies one (type, source) subscription.
type SubID int64

type subscription struct {
	id      SubID
	etype   EventType
	source  EntityID
	handler Handler
}

// RunBound limits a Kernel.Run call. Zero values mean unbounded.
type RunBound struct {
	Until     int64 // stop once the clock would pass this timestamp
	MaxEvents int   // stop after dispatching this many events
}

// Kernel is the discrete-event core: it owns the logical clock and the
// ordered event queue, and dispatches due events deterministically.
// All simulation state mutates synchronously inside dispatch; there is no
// real parallelism anywhere.
type Kernel struct {
	clock  int64
	queue  eventHeap
	events map[EventID]*Event

	nextEventID  EventID
	nextSeq      int64
	nextEntityID EntityID
	nextSubID    SubID

	// subs indexes subscriptions by (type, source) for O(1) dispatch.
	subs map[EventType]map[EntityID][]*subscription

	// OnDispatch, if set, observes every dispatched event (trace hook).
	OnDispatch func(*Event)

	Metrics *Metrics
}

// NewKernel creates an empty kernel at clock zero.
func NewKernel() *Kernel {
	k := &Kernel{
		queue:   make(eventHeap, 0),
		events:  make(map[EventID]*Event),
		subs:    make(map[EventType]map[EntityID][]*subscription),
		Metrics: &Metrics{},
	}
	heap.Init(&k.queue)
	return k
}

// Now returns the current logical time.
func (k *Kernel) Now() int64 { return k.clock }

// NewEntity allocates a fresh entity handle.
func (k *Kernel) NewEntity() EntityID {
	k.nextEntityID++
	return k.nextEntityID
}

// Schedule inserts an event at the given timestamp. Scheduling strictly
// before the current time is a fatal SchedulingError, never retried.
func (k *Kernel) Schedule(etype EventType, source EntityID, payload any, at int64) (EventID, error) {
	return k.schedule(&Event{Type: etype, Source: source, Payload: payload, Time: at})
}

// ScheduleFunc inserts a closure event: fn runs at dispatch time. Used by
// components for internal timing (busy-window expiry, detector windows).
func (k *Kernel) ScheduleFunc(at int64, fn func()) (EventID, error) {
	return k.schedule(&Event{Type: eventClosure, Time: at, fn: fn})
}

func (k *Kernel) schedule(ev *Event) (EventID, error) {
	if ev.Time < k.clock {
		return 0, &SchedulingError{At: ev.Time, Now: k.clock}
	}
	k.nextEventID++
	k.nextSeq++
	ev.ID = k.nextEventID
	ev.seq = k.nextSeq
	k.events[ev.ID] = ev
	heap.Push(&k.queue, ev)
	k.Metrics.EventsScheduled++
	return ev.ID, nil
}

// Cancel removes a pending event. Cancelling an unknown or already
// dispatched event is a no-op.
func (k *Kernel) Cancel(id EventID) {
	if ev, ok := k.events[id]; ok {
		ev.cancelled = true
		delete(k.events, id)
		k.Metrics.EventsCancelled++
	}
}

// Subscribe registers a handler for every dispatched event matching
// (etype, source). Handlers registered for the same pair run in
// subscription order; no ordering is guaranteed across unrelated pairs.
func (k *Kernel) Subscribe(etype EventType, source EntityID, h Handler) SubID {
	k.nextSubID++
	sub := &subscription{id: k.nextSubID, etype: etype, source: source, handler: h}
	bySource, ok := k.subs[etype]
	if !ok {
		bySource = make(map[EntityID][]*subscription)
		k.subs[etype] = bySource
	}
	bySource[source] = append(bySource[source], sub)
	return sub.id
}

// Unsubscribe removes one subscription.
func (k *Kernel) Unsubscribe(id SubID) {
	for _, bySource := range k.subs {
		for src, list := range bySource {
			for i, sub := range list {
				if sub.id == id {
					bySource[src] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		}
	}
}

// Advance pops and dispatches the earliest pending event. It returns false
// when the queue is empty. Dispatch time is monotonically non-decreasing.
func (k *Kernel) Advance() bool {
	for k.queue.Len() > 0 {
		ev := heap.Pop(&k.queue).(*Event)
		if ev.cancelled {
			continue
		}
		delete(k.events, ev.ID)
		k.clock = ev.Time
		k.dispatch(ev)
		return true
	}
	return false
}

func (k *Kernel) dispatch(ev *Event) {
	k.Metrics.EventsDispatched++
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debugf("[tick %07d] dispatch %v", k.clock, ev)
	}
	if ev.fn != nil {
		ev.fn()
	}
	if ev.Type != eventClosure {
		// Snapshot the listener list: handlers may subscribe or
		// unsubscribe during dispatch without observing this event
		// differently.
		var listeners []*subscription
		if bySource, ok := k.subs[ev.Type]; ok {
			listeners = append(listeners, bySource[ev.Source]...)
		}
		for _, sub := range listeners {
			sub.handler(ev)
		}
	}
	if k.OnDispatch != nil {
		k.OnDispatch(ev)
	}
}

// Run repeatedly advances until the queue is empty or the bound is reached.
func (k *Kernel) Run(bound RunBound) {
	dispatched := 0
	for k.queue.Len() > 0 {
		if bound.MaxEvents > 0 && dispatched >= bound.MaxEvents {
			break
		}
		if bound.Until > 0 {
			next := k.peek()
			if next != nil && next.Time > bound.Until {
				break
			}
		}
		if !k.Advance() {
			break
		}
		dispatched++
	}
	k.Metrics.FinalClock = k.clock
	logrus.Debugf("[tick %07d] run finished (%d events dispatched)", k.clock, dispatched)
}

func (k *Kernel) peek() *Event {
	for k.queue.Len() > 0 {
		ev := k.queue[0]
		if !ev.cancelled {
			return ev
		}
		heap.Pop(&k.queue)
	}
	return nil
}

// Pending returns the number of undispatched events.
func (k *Kernel) Pending() int {
	n := 0
	for _, ev := range k.queue {
		if !ev.cancelled {
			n++
		}
	}
	return n
}
