package sim

import "fmt"

// EventID uniquely identifies a scheduled event within one kernel.
type EventID int64

// EntityID is a handle for any simulated entity that can source events:
// nodes, ports, protocols, processors. Handles are allocated by the kernel
// registry; zero is never a valid entity.
type EntityID int64

// EventType classifies an event for listener matching.
type EventType string

// Event types produced by the core packages. Protocol families define their
// own signal labels on top of EventSignal.
const (
	// EventTimer fires when a deadline scheduled via AwaitTimer elapses.
	EventTimer EventType = "timer"
	// EventSignal carries a Signal payload between co-located protocols.
	EventSignal EventType = "signal"
	// EventPortInput announces a message delivery on a port.
	EventPortInput EventType = "port-input"
	// EventProgramDone announces completion of an instruction or program
	// on a processor.
	EventProgramDone EventType = "program-done"
	// eventClosure is internal to the kernel (ScheduleFunc).
	eventClosure EventType = "closure"
)

// Event is one entry on the simulated timeline. Events are immutable once
// scheduled and are consumed exactly once at dispatch.
type Event struct {
	ID      EventID
	Time    int64
	Type    EventType
	Source  EntityID
	Payload any

	// seq breaks timestamp ties in insertion (FIFO) order.
	seq int64
	// fn, if set, runs at dispatch before listeners are notified.
	fn        func()
	cancelled bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%s@%d[src=%d,id=%d]", e.Type, e.Time, e.Source, e.ID)
}

// Signal is the payload of an EventSignal. It exists only for the duration
// of its dispatch; protocols that want the result later must copy it.
type Signal struct {
	Label  string
	Result any
	// Emitter and Scope identify the sending protocol and its locality.
	// Listeners outside Scope never observe the signal.
	Emitter EntityID
	Scope   EntityID
}
