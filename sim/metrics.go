// Tracks simulation-wide counters for final reporting.

package sim

import "fmt"

// Metrics aggregates statistics about one simulation run. Useful for
// evaluating scenario behavior and debugging the event stream.
type Metrics struct {
	EventsScheduled  int   // Number of events pushed onto the timeline
	EventsDispatched int   // Number of events actually dispatched
	EventsCancelled  int   // Number of events cancelled before dispatch
	SignalsSent      int   // Number of signals emitted by protocols
	ProtocolsStarted int   // Number of protocol Start transitions
	FinalClock       int64 // Clock value when the last Run returned
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print() {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Events Scheduled  : %d\n", m.EventsScheduled)
	fmt.Printf("Events Dispatched : %d\n", m.EventsDispatched)
	fmt.Printf("Events Cancelled  : %d\n", m.EventsCancelled)
	fmt.Printf("Signals Sent      : %d\n", m.SignalsSent)
	fmt.Printf("Protocols Started : %d\n", m.ProtocolsStarted)
	fmt.Printf("Final Clock       : %d ticks\n", m.FinalClock)
}
