// Package network models the physical layout of a simulated network:
// nodes, ports, delayed channels, and composite connections including the
// heralded midpoint detector. Informational influence between remote nodes
// travels only through these transports, never through the signal bus.
package network

import (
	"github.com/sirupsen/logrus"

	"github.com/qnet-sim/qnet-sim/sim"
)

// Message is an opaque payload plus a classification header used for
// dispatch (e.g. distinguishing a heralded outcome from a synchronization
// request). The core prescribes no wire format.
type Message struct {
	Header string
	Items  []any
}

// Port is a directed named endpoint. TX hands a message to whatever outlet
// the port is wired into (typically a connection channel); a delivery posts
// an EventPortInput through the kernel and parks the message for RXInput.
//
// A port holds at most one pending message: a delivery overwrites an
// unconsumed predecessor. A protocol that was stopped across a delivery
// therefore observably loses that message; it is not redelivered.
type Port struct {
	name   string
	entity sim.EntityID
	ctx    *sim.Context

	outlet  func(*Message)
	pending *Message
}

// NewPort creates an unwired port.
func NewPort(ctx *sim.Context, name string) *Port {
	return &Port{name: name, entity: ctx.Kernel.NewEntity(), ctx: ctx}
}

func (p *Port) Name() string         { return p.name }
func (p *Port) Entity() sim.EntityID { return p.entity }

// SetOutlet wires where transmitted messages go. Connections call this
// when a port is attached to one of their endpoints.
func (p *Port) SetOutlet(fn func(*Message)) { p.outlet = fn }

// TX transmits a message through the port's outlet. Transmitting on an
// unwired port drops the message.
func (p *Port) TX(msg *Message) {
	if p.outlet == nil {
		logrus.Warnf("port %s: dropping %q message, port not connected", p.name, msg.Header)
		return
	}
	p.outlet(msg)
}

// Deliver parks a message on the port and announces it. Called by channels
// at propagation-delay expiry.
func (p *Port) Deliver(msg *Message) {
	if p.pending != nil {
		logrus.Debugf("port %s: unconsumed %q message lost", p.name, p.pending.Header)
	}
	p.pending = msg
	k := p.ctx.Kernel
	if _, err := k.Schedule(sim.EventPortInput, p.entity, msg, k.Now()); err != nil {
		panic(err)
	}
}

// RXInput consumes and returns the pending message, or nil.
func (p *Port) RXInput() *Message {
	msg := p.pending
	p.pending = nil
	return msg
}

// InputCondition constructs a wait condition on the next delivery.
func (p *Port) InputCondition() *sim.WaitCondition {
	return sim.Atomic(sim.EventPortInput, p.entity)
}
