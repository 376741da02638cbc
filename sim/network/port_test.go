package network

import (
	"testing"

	"github.com/qnet-sim/qnet-sim/sim"
)

// portReader drains its port on every delivery, forever.
type portReader struct {
	proto *sim.Protocol
	port  *Port
	got   []string
}

func (r *portReader) Step(resumed *sim.WaitCondition) (*sim.WaitCondition, error) {
	if resumed != nil {
		if msg := r.port.RXInput(); msg != nil {
			r.got = append(r.got, msg.Header)
		}
	}
	return r.port.InputCondition(), nil
}

func (r *portReader) Reset() { r.got = nil }

func TestPort_StoppedProtocolLosesDeliveries(t *testing.T) {
	ctx := sim.NewContext(1)
	sched := sim.NewScheduler(ctx)
	port := NewPort(ctx, "inbox")
	ch := NewChannel(ctx, "wire", FixedDelay(10))

	r := &portReader{port: port}
	r.proto = sched.NewProtocol("reader", ctx.Kernel.NewEntity(), r)
	if err := r.proto.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ch.Send(&Message{Header: "one"}, port)
	ctx.Kernel.Run(sim.RunBound{})
	if len(r.got) != 1 || r.got[0] != "one" {
		t.Fatalf("before stop: got %v, want [one]", r.got)
	}

	// A delivery while the protocol is stopped is observably lost: it is
	// not redelivered on restart.
	r.proto.Stop()
	ch.Send(&Message{Header: "two"}, port)
	ctx.Kernel.Run(sim.RunBound{})
	if err := r.proto.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	ch.Send(&Message{Header: "three"}, port)
	ctx.Kernel.Run(sim.RunBound{})

	want := []string{"one", "three"}
	if len(r.got) != 2 || r.got[0] != want[0] || r.got[1] != want[1] {
		t.Errorf("deliveries observed: got %v, want %v", r.got, want)
	}
}
