package network

import (
	"testing"

	"github.com/qnet-sim/qnet-sim/sim"
)

func TestChannel_DeliversAfterDelay(t *testing.T) {
	ctx := sim.NewContext(1)
	dst := NewPort(ctx, "dst")
	ch := NewChannel(ctx, "wire", FixedDelay(50))

	var deliveredAt int64 = -1
	ctx.Kernel.Subscribe(sim.EventPortInput, dst.Entity(), func(ev *sim.Event) {
		deliveredAt = ev.Time
	})

	ch.Send(&Message{Header: "ping"}, dst)
	ctx.Kernel.Run(sim.RunBound{})

	if deliveredAt != 50 {
		t.Errorf("delivered at %d, want 50", deliveredAt)
	}
	msg := dst.RXInput()
	if msg == nil || msg.Header != "ping" {
		t.Errorf("RXInput: got %v, want ping", msg)
	}
}

func TestPort_UnconsumedMessageIsOverwritten(t *testing.T) {
	ctx := sim.NewContext(1)
	dst := NewPort(ctx, "dst")
	ch := NewChannel(ctx, "wire", FixedDelay(10))

	ch.Send(&Message{Header: "first"}, dst)
	ch.Send(&Message{Header: "second"}, dst)
	ctx.Kernel.Run(sim.RunBound{})

	msg := dst.RXInput()
	if msg == nil || msg.Header != "second" {
		t.Errorf("RXInput: got %v, want the later message", msg)
	}
	if dst.RXInput() != nil {
		t.Error("second RXInput should return nil")
	}
}

func TestPort_TXOnUnwiredPortDrops(t *testing.T) {
	ctx := sim.NewContext(1)
	p := NewPort(ctx, "loose")
	p.TX(&Message{Header: "lost"})
	ctx.Kernel.Run(sim.RunBound{})
	if ctx.Kernel.Metrics.EventsDispatched != 0 {
		t.Error("unwired TX produced events")
	}
}

func TestFibreDelay(t *testing.T) {
	// 1 km of fibre at 2/3 c is just over 5000 ns.
	if got := (FibreDelay{LengthKM: 1}).Delay(); got != 5003 {
		t.Errorf("1 km delay: got %d, want 5003", got)
	}
	if got := (FibreDelay{LengthKM: 0}).Delay(); got != 0 {
		t.Errorf("0 km delay: got %d, want 0", got)
	}
}
