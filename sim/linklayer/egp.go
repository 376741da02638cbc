// Package linklayer implements robust entanglement generation in the style
// of the Dahlberg et al. link layer: a request-queueing service (EGP)
// synchronized with its remote peer over a classical channel, driving a
// periodic midpoint-heralding attempt protocol (MHP) and emitting one
// response per successful attempt until the requested count is met.
package linklayer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/network"
)

// Request asks the link layer for a number of entangled pairs. PurposeID
// is chosen by the requesting (network) layer to correlate traffic.
type Request struct {
	PurposeID int
	Number    int
}

// Response reports one successfully generated pair. Exactly one response
// is emitted per success, in completion order; CreateID correlates all
// responses belonging to one request.
type Response struct {
	PurposeID      int
	CreateID       int
	LogicalQubitID int
}

// Link-layer signal labels.
const (
	// SignalResponseOK announces a Response to same-node listeners.
	SignalResponseOK = "OK"
	// signalNewRequest wakes the service loop after an enqueue.
	signalNewRequest = "new_request"
)

// HeaderCreate tags the synchronization message carrying a request to the
// peer service.
const HeaderCreate = "create"

type egpState int

const (
	egpIdle egpState = iota
	egpWaitStart
	egpCreating
)

// EGP is the entanglement-generation service: the link-layer coordination
// protocol. Requests are queued FIFO per service instance and synchronized
// with the paired remote service over a classical port, agreeing on a
// future start time that bounds clock skew by the travel-time constant.
// Once a request is active, the protocol alternates between the physical
// layer's periodic trigger and its attempt outcomes, emitting one Response
// per success until the requested count is met.
type EGP struct {
	proto  *sim.Protocol
	mhp    *MHP
	cport  *network.Port
	travel int64

	queue        RequestQueue
	nextCreateID int

	// OnResponse, if set, observes every emitted Response.
	OnResponse func(Response)

	st     egpState
	active *QueuedRequest
	pairs  int
}

// NewEGP creates the link-layer service on a node. cportName is the node's
// classical port towards the peer service; travel is the agreed travel-time
// constant added to the local clock when proposing a start time.
func NewEGP(s *sim.Scheduler, node *network.Node, cportName string, travel int64) *EGP {
	e := &EGP{
		cport:  node.Port(cportName),
		travel: travel,
	}
	if e.cport == nil {
		panic(fmt.Sprintf("node %s has no port %q for EGP", node.Name(), cportName))
	}
	e.proto = s.NewProtocol("egp-"+node.Name(), node.Entity(), e)
	// Synchronization messages from the peer are handled on delivery,
	// outside the service loop.
	s.Context().Kernel.Subscribe(sim.EventPortInput, e.cport.Entity(), e.onPeerMessage)
	return e
}

// Protocol returns the protocol handle driving this routine.
func (e *EGP) Protocol() *sim.Protocol { return e.proto }

// AttachPhysicalLayer wires the physical attempt subprotocol. EGP cannot
// start without one.
func (e *EGP) AttachPhysicalLayer(m *MHP) {
	e.mhp = m
	e.proto.AddSubprotocol("physical", m.Protocol())
}

// Validate implements sim.Validator.
func (e *EGP) Validate() error {
	if e.mhp == nil {
		return fmt.Errorf("EGP: %w: physical layer", sim.ErrMissingDependency)
	}
	return nil
}

// Submit accepts a local request, agrees a start time with the peer and
// queues the request. It returns the creation identifier correlating the
// eventual responses.
func (e *EGP) Submit(purposeID, number int) int {
	e.nextCreateID++
	createID := e.nextCreateID
	start := e.proto.Now() + e.travel
	e.cport.TX(&network.Message{
		Header: HeaderCreate,
		Items:  []any{Request{PurposeID: purposeID, Number: number}, start, createID},
	})
	e.accept(&QueuedRequest{
		Req:      Request{PurposeID: purposeID, Number: number},
		Start:    start,
		CreateID: createID,
	})
	return createID
}

// onPeerMessage accepts the synchronized copy of a request submitted at
// the remote service.
func (e *EGP) onPeerMessage(ev *sim.Event) {
	// Parse from the event payload: back-to-back submissions deliver on
	// the same tick, and the port keeps only the last pending message.
	e.cport.RXInput()
	msg, ok := ev.Payload.(*network.Message)
	if !ok || msg.Header != HeaderCreate {
		return
	}
	req := msg.Items[0].(Request)
	start := msg.Items[1].(int64)
	createID := msg.Items[2].(int)
	if createID > e.nextCreateID {
		e.nextCreateID = createID
	}
	e.accept(&QueuedRequest{Req: req, Start: start, CreateID: createID})
}

func (e *EGP) accept(qr *QueuedRequest) {
	logrus.Debugf("[tick %07d] %s queues request create=%d n=%d start=%d",
		e.proto.Now(), e.proto.Name(), qr.CreateID, qr.Req.Number, qr.Start)
	e.queue.Enqueue(qr)
	e.proto.SendSignal(signalNewRequest, nil)
}

// Reset implements sim.Routine.
func (e *EGP) Reset() {
	e.st = egpIdle
	e.active = nil
	e.pairs = 0
	e.queue = RequestQueue{}
}

// Step implements sim.Routine as an explicit state machine.
func (e *EGP) Step(resumed *sim.WaitCondition) (*sim.WaitCondition, error) {
	switch e.st {
	case egpIdle:
		return e.beginNext()

	case egpWaitStart:
		if resumed == nil {
			// Re-entered after a stop: the old timer fired unobserved,
			// re-arm against the agreed start.
			return e.armStart()
		}
		return e.enterCreating()

	case egpCreating:
		if resumed == nil {
			return e.creatingWait()
		}
		for _, ev := range resumed.Triggered() {
			sig, ok := sim.SignalOf(ev)
			if !ok {
				continue
			}
			switch sig.Label {
			case SignalTrigger:
				e.mhp.DoTask(e.pairs)
			case SignalResponse:
				out := sig.Result.(AttemptOutcome)
				e.handleOutcome(out)
			}
		}
		if e.pairs >= e.active.Req.Number {
			logrus.Infof("[tick %07d] %s completed request create=%d (%d pairs)",
				e.proto.Now(), e.proto.Name(), e.active.CreateID, e.pairs)
			e.active = nil
			return e.beginNext()
		}
		return e.creatingWait()
	}
	return nil, fmt.Errorf("egp in unknown state %d", e.st)
}

// beginNext dequeues the next request in FIFO order, or suspends until one
// arrives.
func (e *EGP) beginNext() (*sim.WaitCondition, error) {
	e.st = egpIdle
	if e.queue.Len() == 0 {
		return e.proto.AwaitSignal(e.proto, signalNewRequest), nil
	}
	e.active = e.queue.Dequeue()
	e.pairs = 0
	if e.active.Start > e.proto.Now() {
		return e.armStart()
	}
	return e.enterCreating()
}

func (e *EGP) armStart() (*sim.WaitCondition, error) {
	e.st = egpWaitStart
	return e.proto.AwaitTimerAt(e.active.Start)
}

func (e *EGP) enterCreating() (*sim.WaitCondition, error) {
	e.st = egpCreating
	return e.creatingWait()
}

// creatingWait suspends on the physical layer: either its periodic
// trigger or an attempt outcome, whichever fires first. Conditions are
// single-use, so each suspension reconstructs them.
func (e *EGP) creatingWait() (*sim.WaitCondition, error) {
	trigger := e.proto.AwaitSignal(e.mhp.Protocol(), SignalTrigger)
	response := e.proto.AwaitSignal(e.mhp.Protocol(), SignalResponse)
	return sim.Any(trigger, response), nil
}

// handleOutcome interprets one heralded attempt outcome. The two Bell
// codes denote success; everything else (including lost classifications)
// is an expected failure, retried on the next trigger.
func (e *EGP) handleOutcome(out AttemptOutcome) {
	if out.Outcome != network.OutcomePsiPlus && out.Outcome != network.OutcomePsiMinus {
		logrus.Debugf("[tick %07d] %s attempt failed (outcome %d), retrying",
			e.proto.Now(), e.proto.Name(), out.Outcome)
		return
	}
	resp := Response{
		PurposeID:      e.active.Req.PurposeID,
		CreateID:       e.active.CreateID,
		LogicalQubitID: out.Position,
	}
	e.pairs++
	logrus.Debugf("[tick %07d] %s pair %d/%d ready in slot %d",
		e.proto.Now(), e.proto.Name(), e.pairs, e.active.Req.Number, resp.LogicalQubitID)
	e.proto.SendSignal(SignalResponseOK, resp)
	if e.OnResponse != nil {
		e.OnResponse(resp)
	}
}
