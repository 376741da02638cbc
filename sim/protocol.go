package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ProtocolState is the lifecycle state of a protocol.
type ProtocolState int

const (
	// Unstarted protocols have never run.
	Unstarted ProtocolState = iota
	// Waiting protocols are suspended on a wait condition (or mid-step).
	Waiting
	// Stopped protocols keep their routine-local state and can resume.
	Stopped
	// Finished protocols ran their routine to natural completion.
	Finished
	// Failed protocols aborted on a fatal error.
	Failed
)

func (s ProtocolState) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Waiting:
		return "waiting"
	case Stopped:
		return "stopped"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Lifecycle signal labels emitted by the scheduler.
const (
	SignalFinished = "FINISHED"
	SignalFail     = "FAIL"
	SignalSuccess  = "SUCCESS"
)

// Routine is a suspendable procedure expressed as an explicit state
// machine: the protocol stores the current wait condition plus whatever
// local variables the routine needs to resume, as data rather than a
// captured stack.
//
// Step advances the routine until its next suspension point and returns
// the condition to suspend on, or nil when the routine has finished.
// resumed is the satisfied condition that woke the routine, or nil on the
// first step after Start. A routine resumed with nil after a Stop must
// re-enter its current state and return a fresh condition.
type Routine interface {
	Step(resumed *WaitCondition) (*WaitCondition, error)
	// Reset reinitializes local state so Step starts from the top.
	Reset()
}

// Validator is implemented by routines with required collaborators; the
// error (typically wrapping ErrMissingDependency) is surfaced at Start.
type Validator interface {
	Validate() error
}

// Scheduler drives protocols: it resumes each suspended routine when its
// yielded wait condition is satisfied by kernel dispatch.
type Scheduler struct {
	ctx *Context
}

// NewScheduler creates a scheduler bound to a simulation context.
func NewScheduler(ctx *Context) *Scheduler {
	return &Scheduler{ctx: ctx}
}

// Context returns the simulation context the scheduler runs under.
func (s *Scheduler) Context() *Context { return s.ctx }

// NewProtocol registers a protocol running routine r within the locality
// scope (owning node or composition root).
func (s *Scheduler) NewProtocol(name string, scope EntityID, r Routine) *Protocol {
	return &Protocol{
		name:    name,
		scope:   scope,
		entity:  s.ctx.Kernel.NewEntity(),
		sched:   s,
		routine: r,
	}
}

// Protocol is one suspendable state machine plus its lifecycle bookkeeping.
type Protocol struct {
	name    string
	scope   EntityID
	entity  EntityID
	sched   *Scheduler
	routine Routine

	state     ProtocolState
	pending   *WaitCondition
	subIDs    []SubID
	lastEvent EventID
	err       error

	subNames []string
	subs     map[string]*Protocol
}

func (p *Protocol) Name() string         { return p.name }
func (p *Protocol) Entity() EntityID     { return p.entity }
func (p *Protocol) Scope() EntityID      { return p.scope }
func (p *Protocol) State() ProtocolState { return p.state }

// Err returns the fatal error of a Failed protocol, nil otherwise.
func (p *Protocol) Err() error { return p.err }

// AddSubprotocol attaches a child started and stopped as a unit with p.
// Children share the parent's locality scope.
func (p *Protocol) AddSubprotocol(name string, child *Protocol) {
	if child.scope != p.scope {
		panic(fmt.Sprintf("protocol %s: subprotocol %s belongs to another locality scope", p.name, name))
	}
	if p.subs == nil {
		p.subs = make(map[string]*Protocol)
	}
	if _, ok := p.subs[name]; !ok {
		p.subNames = append(p.subNames, name)
	}
	p.subs[name] = child
}

// Subprotocol returns the named child, or nil.
func (p *Protocol) Subprotocol(name string) *Protocol {
	return p.subs[name]
}

// Start transitions Unstarted or Stopped to Waiting and runs the routine to
// its first suspension or natural completion. Subprotocols start first.
func (p *Protocol) Start() error {
	if p.state == Waiting {
		return nil
	}
	if v, ok := p.routine.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("start %s: %w", p.name, err)
		}
	}
	for _, name := range p.subNames {
		if err := p.subs[name].Start(); err != nil {
			return err
		}
	}
	logrus.Debugf("[tick %07d] protocol %s starting", p.now(), p.name)
	p.state = Waiting
	p.sched.ctx.Kernel.Metrics.ProtocolsStarted++
	p.advance(nil)
	return nil
}

// Stop detaches the protocol from its pending wait condition without
// altering routine-local state. In-flight kernel events scheduled on its
// behalf (timers, completions) still fire but are not observed.
// Subprotocols stop with their parent.
func (p *Protocol) Stop() {
	for _, name := range p.subNames {
		p.subs[name].Stop()
	}
	if p.state != Waiting {
		return
	}
	p.disarm()
	p.pending = nil
	p.state = Stopped
	logrus.Debugf("[tick %07d] protocol %s stopped", p.now(), p.name)
}

// Reset is Stop followed by reinitialization: the routine restarts from its
// beginning on the next Start.
func (p *Protocol) Reset() {
	p.Stop()
	for _, name := range p.subNames {
		p.subs[name].routine.Reset()
		p.subs[name].state = Unstarted
	}
	p.routine.Reset()
	p.err = nil
	p.state = Unstarted
}

// SendSignal posts a Signal event visible to all same-scope listeners
// currently awaiting the label.
func (p *Protocol) SendSignal(label string, result any) {
	k := p.sched.ctx.Kernel
	payload := Signal{Label: label, Result: result, Emitter: p.entity, Scope: p.scope}
	if _, err := k.Schedule(EventSignal, p.entity, payload, k.Now()); err != nil {
		// Unreachable: now is never before now.
		panic(err)
	}
	k.Metrics.SignalsSent++
}

// AwaitSignal constructs a condition on a signal emission from another
// protocol. Signals never cross locality scopes; awaiting one from a
// protocol in a different scope is a programming error.
func (p *Protocol) AwaitSignal(from *Protocol, label string) *WaitCondition {
	if from.scope != p.scope {
		panic(fmt.Sprintf("protocol %s: cannot await signal %q across locality scopes", p.name, label))
	}
	scope := p.scope
	cond := Atomic(EventSignal, from.entity)
	cond.match = func(ev *Event) bool {
		sig, ok := ev.Payload.(Signal)
		return ok && sig.Label == label && sig.Scope == scope
	}
	return cond
}

// AwaitTimerAt constructs a condition on a kernel timer event at the given
// absolute deadline. Deadlines in the past are a fatal SchedulingError.
func (p *Protocol) AwaitTimerAt(deadline int64) (*WaitCondition, error) {
	k := p.sched.ctx.Kernel
	id, err := k.Schedule(EventTimer, p.entity, nil, deadline)
	if err != nil {
		return nil, err
	}
	cond := Atomic(EventTimer, p.entity)
	cond.match = func(ev *Event) bool { return ev.ID == id }
	return cond, nil
}

// AwaitTimer constructs a condition firing after the given duration.
func (p *Protocol) AwaitTimer(duration int64) (*WaitCondition, error) {
	return p.AwaitTimerAt(p.now() + duration)
}

// Now returns the current logical time.
func (p *Protocol) Now() int64 { return p.now() }

func (p *Protocol) now() int64 { return p.sched.ctx.Kernel.Now() }

func (p *Protocol) advance(resumed *WaitCondition) {
	cond, err := p.routine.Step(resumed)
	if err != nil {
		p.fail(err)
		return
	}
	if cond == nil {
		p.finish()
		return
	}
	p.pending = cond
	p.arm(cond)
}

func (p *Protocol) arm(cond *WaitCondition) {
	k := p.sched.ctx.Kernel
	for _, leaf := range cond.leaves(nil) {
		id := k.Subscribe(leaf.etype, leaf.source, p.onEvent)
		p.subIDs = append(p.subIDs, id)
	}
}

func (p *Protocol) disarm() {
	k := p.sched.ctx.Kernel
	for _, id := range p.subIDs {
		k.Unsubscribe(id)
	}
	p.subIDs = nil
}

// onEvent feeds one dispatched event to the pending condition. The kernel
// snapshots listener lists per dispatch, so a handler can still run after
// its protocol disarmed or stopped within the same dispatch; the state
// guard drops those late deliveries.
func (p *Protocol) onEvent(ev *Event) {
	if p.state != Waiting || p.pending == nil {
		return
	}
	// Several subscriptions may route the same event here. Feed it to the
	// pending condition exactly once, and never to a condition armed after
	// the event started dispatching.
	if ev.ID == p.lastEvent {
		return
	}
	p.lastEvent = ev.ID
	if !p.pending.Evaluate(ev) {
		return
	}
	satisfied := p.pending
	p.pending = nil
	p.disarm()
	p.advance(satisfied)
}

func (p *Protocol) finish() {
	p.state = Finished
	p.pending = nil
	logrus.Debugf("[tick %07d] protocol %s finished", p.now(), p.name)
	p.SendSignal(SignalFinished, nil)
}

func (p *Protocol) fail(err error) {
	p.disarm()
	p.pending = nil
	p.state = Failed
	p.err = err
	logrus.Errorf("[tick %07d] protocol %s failed: %v", p.now(), p.name, err)
	p.SendSignal(SignalFail, err)
}

// SignalOf extracts the Signal payload from a dispatched event, if any.
func SignalOf(ev *Event) (Signal, bool) {
	sig, ok := ev.Payload.(Signal)
	return sig, ok
}
