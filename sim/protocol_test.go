package sim

import (
	"errors"
	"testing"
)

// pinger waits a fixed delay, then emits a PING signal and finishes.
type pinger struct {
	proto *Protocol
	delay int64
	st    int
}

func (r *pinger) Step(resumed *WaitCondition) (*WaitCondition, error) {
	if resumed == nil && r.st == 0 {
		r.st = 1
		return r.proto.AwaitTimer(r.delay)
	}
	r.proto.SendSignal("PING", 7)
	return nil, nil
}

func (r *pinger) Reset() { r.st = 0 }

// catcher waits for a PING from another protocol and records the payload.
type catcher struct {
	proto *Protocol
	from  *Protocol
	got   any
	at    int64
}

func (r *catcher) Step(resumed *WaitCondition) (*WaitCondition, error) {
	if resumed == nil {
		return r.proto.AwaitSignal(r.from, "PING"), nil
	}
	sig, ok := SignalOf(resumed.Triggered()[0])
	if !ok {
		return nil, errors.New("resumed by a non-signal event")
	}
	r.got = sig.Result
	r.at = r.proto.Now()
	return nil, nil
}

func (r *catcher) Reset() { r.got, r.at = nil, 0 }

// phased waits the same delay twice, counting the resumes. Stopping
// between phases must not lose the count.
type phased struct {
	proto   *Protocol
	phase   int
	resumes []int64
}

func (r *phased) Step(resumed *WaitCondition) (*WaitCondition, error) {
	if resumed != nil {
		r.phase++
		r.resumes = append(r.resumes, r.proto.Now())
	}
	if r.phase >= 2 {
		return nil, nil
	}
	return r.proto.AwaitTimer(10)
}

func (r *phased) Reset() {
	r.phase = 0
	r.resumes = nil
}

func signalLabels(k *Kernel, source EntityID) *[]string {
	labels := &[]string{}
	k.Subscribe(EventSignal, source, func(ev *Event) {
		if sig, ok := SignalOf(ev); ok {
			*labels = append(*labels, sig.Label)
		}
	})
	return labels
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func TestProtocol_SignalWakesSameScopeListener(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scope := ctx.Kernel.NewEntity()

	ping := &pinger{delay: 5}
	ping.proto = sched.NewProtocol("pinger", scope, ping)
	catch := &catcher{from: ping.proto}
	catch.proto = sched.NewProtocol("catcher", scope, catch)

	labels := signalLabels(ctx.Kernel, catch.proto.Entity())

	if err := catch.proto.Start(); err != nil {
		t.Fatalf("start catcher: %v", err)
	}
	if err := ping.proto.Start(); err != nil {
		t.Fatalf("start pinger: %v", err)
	}
	ctx.Kernel.Run(RunBound{})

	if catch.got != 7 {
		t.Errorf("signal payload: got %v, want 7", catch.got)
	}
	if catch.at != 5 {
		t.Errorf("resumed at %d, want 5", catch.at)
	}
	if catch.proto.State() != Finished {
		t.Errorf("catcher state: got %v, want finished", catch.proto.State())
	}
	if !containsLabel(*labels, SignalFinished) {
		t.Errorf("catcher lifecycle signals: got %v, want FINISHED", *labels)
	}
}

func TestProtocol_AwaitSignalAcrossScopesPanics(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scopeA := ctx.Kernel.NewEntity()
	scopeB := ctx.Kernel.NewEntity()

	ping := &pinger{delay: 5}
	ping.proto = sched.NewProtocol("pinger", scopeA, ping)
	catch := &catcher{from: ping.proto}
	catch.proto = sched.NewProtocol("catcher", scopeB, catch)

	defer func() {
		if recover() == nil {
			t.Error("awaiting a signal across locality scopes did not panic")
		}
	}()
	catch.proto.Start()
}

func TestProtocol_StopKeepsStateResetDiscardsIt(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scope := ctx.Kernel.NewEntity()

	r := &phased{}
	r.proto = sched.NewProtocol("phased", scope, r)

	if err := r.proto.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx.Kernel.Run(RunBound{Until: 10})
	if r.phase != 1 {
		t.Fatalf("phase after first timer: got %d, want 1", r.phase)
	}

	// Stop mid-protocol. The armed second timer still fires but is not
	// observed.
	r.proto.Stop()
	if r.proto.State() != Stopped {
		t.Fatalf("state after stop: got %v", r.proto.State())
	}
	ctx.Kernel.Run(RunBound{Until: 30})
	if r.phase != 1 {
		t.Errorf("phase advanced while stopped: got %d", r.phase)
	}

	// Restart resumes the current phase, not the beginning.
	if err := r.proto.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	ctx.Kernel.Run(RunBound{})
	if r.proto.State() != Finished {
		t.Fatalf("state after restart: got %v", r.proto.State())
	}
	if len(r.resumes) != 2 || r.resumes[0] != 10 || r.resumes[1] != 30 {
		t.Errorf("resume times: got %v, want [10 30]", r.resumes)
	}

	// Reset rewinds the routine to its beginning.
	r.proto.Reset()
	if r.proto.State() != Unstarted {
		t.Fatalf("state after reset: got %v", r.proto.State())
	}
	if err := r.proto.Start(); err != nil {
		t.Fatalf("start after reset: %v", err)
	}
	ctx.Kernel.Run(RunBound{})
	if len(r.resumes) != 2 {
		t.Errorf("resumes after reset: got %d, want 2", len(r.resumes))
	}
}

type alwaysFails struct{}

func (alwaysFails) Step(*WaitCondition) (*WaitCondition, error) {
	return nil, errors.New("boom")
}
func (alwaysFails) Reset() {}

func TestProtocol_RoutineErrorFailsProtocol(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scope := ctx.Kernel.NewEntity()

	proto := sched.NewProtocol("doomed", scope, alwaysFails{})
	labels := signalLabels(ctx.Kernel, proto.Entity())

	if err := proto.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx.Kernel.Run(RunBound{})

	if proto.State() != Failed {
		t.Errorf("state: got %v, want failed", proto.State())
	}
	if proto.Err() == nil {
		t.Error("Err is nil for a failed protocol")
	}
	if !containsLabel(*labels, SignalFail) {
		t.Errorf("lifecycle signals: got %v, want FAIL", *labels)
	}
}

type needsPeer struct {
	peer *Protocol
}

func (r *needsPeer) Step(*WaitCondition) (*WaitCondition, error) { return nil, nil }
func (r *needsPeer) Reset()                                      {}
func (r *needsPeer) Validate() error {
	if r.peer == nil {
		return ErrMissingDependency
	}
	return nil
}

func TestProtocol_StartSurfacesMissingDependency(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scope := ctx.Kernel.NewEntity()

	proto := sched.NewProtocol("incomplete", scope, &needsPeer{})
	err := proto.Start()
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("start: got %v, want ErrMissingDependency", err)
	}
	if proto.State() != Unstarted {
		t.Errorf("state: got %v, want unstarted", proto.State())
	}
}

func TestProtocol_SubprotocolsStartAndStopWithParent(t *testing.T) {
	ctx := NewContext(1)
	sched := NewScheduler(ctx)
	scope := ctx.Kernel.NewEntity()

	child := &phased{}
	child.proto = sched.NewProtocol("child", scope, child)
	parent := &phased{}
	parent.proto = sched.NewProtocol("parent", scope, parent)
	parent.proto.AddSubprotocol("worker", child.proto)

	if err := parent.proto.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if child.proto.State() != Waiting {
		t.Errorf("child state after parent start: got %v", child.proto.State())
	}

	parent.proto.Stop()
	if child.proto.State() != Stopped {
		t.Errorf("child state after parent stop: got %v", child.proto.State())
	}
}
