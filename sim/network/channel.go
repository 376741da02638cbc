package network

import "github.com/qnet-sim/qnet-sim/sim"

// DelayModel computes the propagation delay of one transmission.
type DelayModel interface {
	Delay() int64
}

// FixedDelay delays every transmission by the same number of ticks.
type FixedDelay int64

func (d FixedDelay) Delay() int64 { return int64(d) }

// FibreDelay models propagation through fibre at a fraction of the speed
// of light, ticks interpreted as nanoseconds.
type FibreDelay struct {
	LengthKM float64
	// FractionC defaults to 2/3 when zero.
	FractionC float64
}

func (d FibreDelay) Delay() int64 {
	fraction := d.FractionC
	if fraction == 0 {
		fraction = 2.0 / 3.0
	}
	const cKMPerNS = 299792.458 / 1e9
	return int64(d.LengthKM / (cKMPerNS * fraction))
}

// Channel is a unidirectional transport: Send delivers the message to the
// destination port after the model's propagation delay.
type Channel struct {
	name  string
	ctx   *sim.Context
	model DelayModel
}

// NewChannel creates a channel with the given delay model.
func NewChannel(ctx *sim.Context, name string, model DelayModel) *Channel {
	return &Channel{name: name, ctx: ctx, model: model}
}

func (c *Channel) Name() string { return c.name }

// Send schedules delivery of msg to the destination port.
func (c *Channel) Send(msg *Message, to *Port) {
	k := c.ctx.Kernel
	if _, err := k.ScheduleFunc(k.Now()+c.model.Delay(), func() {
		to.Deliver(msg)
	}); err != nil {
		panic(err)
	}
}
