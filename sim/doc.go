// Package sim provides the deterministic discrete-event core of qnet-sim.
//
// # Reading Guide
//
// Start with these three files to understand the substrate:
//   - kernel.go: the logical clock, the ordered event queue, and dispatch
//   - waitcond.go: the Atomic/All/Any wait-condition algebra
//   - protocol.go: suspendable protocol state machines and the signal bus
//
// # Architecture
//
// The sim package holds only the reusable machinery; the domain lives in
// sub-packages:
//   - sim/qproc: the instruction scheduler for addressable storage positions
//   - sim/network: nodes, ports, channels and the heralded midpoint detector
//   - sim/linklayer: the entanglement-generation service and attempt protocol
//   - sim/trace: dispatch trace recording
//
// Everything is single-threaded and cooperative: all state mutation happens
// synchronously inside kernel dispatch. For two events at distinct
// timestamps the earlier always dispatches first; equal timestamps dispatch
// in insertion order. Determinism is preserved by threading a Context
// (clock plus partitioned RNG) explicitly through construction; there are
// no ambient globals.
package sim
