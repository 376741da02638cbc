package linklayer

import (
	"fmt"

	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/network"
	"github.com/qnet-sim/qnet-sim/sim/qproc"
)

// Signal labels exchanged between the physical and link layers.
const (
	// SignalTrigger means no attempt outcome is pending; the link layer
	// may launch one.
	SignalTrigger = "TRIGGER"
	// SignalResponse carries an AttemptOutcome from a finished attempt.
	SignalResponse = "RESPONSE"
	// signalDoTask asks the physical layer to launch an attempt.
	signalDoTask = "do_task"
)

// OutcomeLost marks an attempt whose heralded outcome never classified
// (wrong header); treated like any other failure.
const OutcomeLost = -1

// AttemptOutcome reports one physical attempt: the heralded outcome code
// and the storage position holding the possibly entangled unit.
type AttemptOutcome struct {
	Outcome  int
	Position int
}

type mhpState int

const (
	mhpIdle mhpState = iota
	mhpAwaitOutcome
)

// MHP is the midpoint-heralding protocol: the physical layer of
// entanglement generation. On a fixed cadence it signals a trigger to the
// link layer; when tasked, it runs the emission program on a storage slot,
// awaits the heralded outcome from the quantum port, and responds with the
// classified result.
//
// Storage position 0 is the emission position; attempts for queue position
// k store their half of the pair in position k+1.
type MHP struct {
	proto *sim.Protocol
	proc  *qproc.Processor
	qport *network.Port
	step  int64

	st  mhpState
	pos int
}

// NewMHP creates the physical-layer protocol for a node. step is the
// trigger cadence; qportName is the node port the processor emits through
// and the heralded outcome arrives on.
func NewMHP(s *sim.Scheduler, node *network.Node, qportName string, step int64) *MHP {
	if node.Processor() == nil {
		panic(fmt.Sprintf("node %s has no processor for MHP", node.Name()))
	}
	m := &MHP{
		proc:  node.Processor(),
		qport: node.Port(qportName),
		step:  step,
	}
	if m.qport == nil {
		panic(fmt.Sprintf("node %s has no port %q for MHP", node.Name(), qportName))
	}
	node.BindEmission(qportName)
	m.proto = s.NewProtocol("mhp-"+node.Name(), node.Entity(), m)
	return m
}

// Protocol returns the protocol handle driving this routine.
func (m *MHP) Protocol() *sim.Protocol { return m.proto }

// DoTask asks the physical layer to launch an attempt for the given queue
// position. Called by the link layer in response to a trigger.
func (m *MHP) DoTask(queuePos int) {
	m.proto.SendSignal(signalDoTask, queuePos)
}

// Reset implements sim.Routine.
func (m *MHP) Reset() {
	m.st = mhpIdle
	m.pos = 0
}

// Step implements sim.Routine as an explicit state machine.
func (m *MHP) Step(resumed *sim.WaitCondition) (*sim.WaitCondition, error) {
	switch m.st {
	case mhpIdle:
		if resumed != nil && resumed.Fired() == sim.BranchRight {
			// Tasked: launch an attempt and wait for its heralded
			// outcome on the quantum port.
			sig, _ := sim.SignalOf(resumed.Triggered()[0])
			m.pos = sig.Result.(int)
			prog := EmissionProgram()
			if err := m.proc.ExecuteProgram(prog, []int{m.pos + 1, 0}); err != nil {
				return nil, err
			}
			m.st = mhpAwaitOutcome
			return m.qport.InputCondition(), nil
		}
		if resumed != nil {
			// Cadence tick with no task pending.
			m.proto.SendSignal(SignalTrigger, nil)
		}
		return m.idleWait()

	case mhpAwaitOutcome:
		outcome := OutcomeLost
		if msg := m.qport.RXInput(); msg != nil && msg.Header == network.HeaderPhotonOutcome {
			outcome = msg.Items[0].(int)
		}
		m.proto.SendSignal(SignalResponse, AttemptOutcome{Outcome: outcome, Position: m.pos + 1})
		m.st = mhpIdle
		return m.idleWait()
	}
	return nil, fmt.Errorf("mhp in unknown state %d", m.st)
}

// idleWait suspends on the next cadence tick or an incoming task,
// whichever comes first. The deadline is pinned to a multiple of the step
// so both peers tick in lockstep.
func (m *MHP) idleWait() (*sim.WaitCondition, error) {
	deadline := (1 + m.proto.Now()/m.step) * m.step
	timer, err := m.proto.AwaitTimerAt(deadline)
	if err != nil {
		return nil, err
	}
	return sim.Any(timer, m.proto.AwaitSignal(m.proto, signalDoTask)), nil
}

// EmissionProgram builds the two-qubit attempt program: initialize the
// storage qubit, then emit its entangled photon. Logical index 0 maps to
// the storage position, logical index 1 to the emission position.
func EmissionProgram() *qproc.Program {
	prog := qproc.NewProgram(2)
	prog.Apply(qproc.InstrInit, 0)
	prog.Apply(qproc.InstrEmit, 0, 1)
	return prog
}
