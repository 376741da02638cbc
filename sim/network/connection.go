package network

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/qnet-sim/qnet-sim/sim"
)

// Message headers used by the built-in connections.
const (
	// HeaderPhoton tags an emitted photon travelling towards a midpoint
	// detector; its single item is the storage position it is paired with.
	HeaderPhoton = "photon"
	// HeaderPhotonOutcome tags a heralded measurement outcome returned to
	// both endpoints; its single item is the outcome code.
	HeaderPhotonOutcome = "photonoutcome"
)

// Heralded outcome codes. OutcomePsiPlus and OutcomePsiMinus denote the
// two successful Bell-state detections; OutcomeFail denotes no usable
// coincidence within the window.
const (
	OutcomeFail     = 0
	OutcomePsiPlus  = 1
	OutcomePsiMinus = 2
)

// Connection joins two remote endpoints named A and B.
type Connection interface {
	Name() string
	// Connect wires the two endpoint ports into the connection.
	Connect(a, b *Port)
}

// ClassicalConnection carries messages both ways with a propagation delay.
type ClassicalConnection struct {
	name string
	ctx  *sim.Context
	ab   *Channel
	ba   *Channel
}

// NewClassicalConnection creates a bidirectional delayed connection.
func NewClassicalConnection(ctx *sim.Context, name string, model DelayModel) *ClassicalConnection {
	return &ClassicalConnection{
		name: name,
		ctx:  ctx,
		ab:   NewChannel(ctx, name+".AtoB", model),
		ba:   NewChannel(ctx, name+".BtoA", model),
	}
}

func (c *ClassicalConnection) Name() string { return c.name }

func (c *ClassicalConnection) Connect(a, b *Port) {
	a.SetOutlet(func(msg *Message) { c.ab.Send(msg, b) })
	b.SetOutlet(func(msg *Message) { c.ba.Send(msg, a) })
}

// HeraldedConfig groups midpoint detector parameters.
type HeraldedConfig struct {
	// DelayToMidpoint is the one-way photon travel time from either
	// endpoint to the detector (and of the outcome on the way back).
	DelayToMidpoint DelayModel
	// WindowTicks is the coincidence window opened by the first arrival.
	WindowTicks int64
	// SuccessProbability is the chance a coincidence heralds a usable
	// pair; successful outcomes split evenly between the two Bell codes.
	SuccessProbability float64
}

// HeraldedConnection routes photons from both endpoints into a midpoint
// detector and returns one outcome message per detection window to each
// side. Ordinary failures (lone photon, unlucky coincidence) are expected
// and reported as OutcomeFail, never as errors.
type HeraldedConnection struct {
	name string
	ctx  *sim.Context
	cfg  HeraldedConfig
	rng  *rand.Rand

	toA *Channel
	toB *Channel
	a   *Port
	b   *Port

	// Detector window state.
	windowOpen bool
	arrivedA   bool
	arrivedB   bool
}

// NewHeraldedConnection creates a heralded connection around a midpoint
// detector. Detection sampling draws from the detector RNG subsystem.
func NewHeraldedConnection(ctx *sim.Context, name string, cfg HeraldedConfig) *HeraldedConnection {
	return &HeraldedConnection{
		name: name,
		ctx:  ctx,
		cfg:  cfg,
		rng:  ctx.RNG(sim.SubsystemDetector),
		toA:  NewChannel(ctx, name+".toA", cfg.DelayToMidpoint),
		toB:  NewChannel(ctx, name+".toB", cfg.DelayToMidpoint),
	}
}

func (h *HeraldedConnection) Name() string { return h.name }

func (h *HeraldedConnection) Connect(a, b *Port) {
	h.a, h.b = a, b
	a.SetOutlet(func(msg *Message) { h.sendToMidpoint(msg, true) })
	b.SetOutlet(func(msg *Message) { h.sendToMidpoint(msg, false) })
}

func (h *HeraldedConnection) sendToMidpoint(msg *Message, fromA bool) {
	if msg.Header != HeaderPhoton {
		logrus.Warnf("connection %s: discarding non-photon %q message", h.name, msg.Header)
		return
	}
	k := h.ctx.Kernel
	if _, err := k.ScheduleFunc(k.Now()+h.cfg.DelayToMidpoint.Delay(), func() {
		h.arrive(fromA)
	}); err != nil {
		panic(err)
	}
}

// arrive registers one photon at the detector. The first arrival opens the
// coincidence window; the window close measures and heralds the outcome.
func (h *HeraldedConnection) arrive(fromA bool) {
	if fromA {
		h.arrivedA = true
	} else {
		h.arrivedB = true
	}
	if h.windowOpen {
		return
	}
	h.windowOpen = true
	k := h.ctx.Kernel
	if _, err := k.ScheduleFunc(k.Now()+h.cfg.WindowTicks, h.closeWindow); err != nil {
		panic(err)
	}
}

func (h *HeraldedConnection) closeWindow() {
	outcome := OutcomeFail
	if h.arrivedA && h.arrivedB && h.rng.Float64() < h.cfg.SuccessProbability {
		outcome = OutcomePsiPlus + h.rng.Intn(2)
	}
	h.windowOpen = false
	h.arrivedA = false
	h.arrivedB = false
	logrus.Debugf("[tick %07d] detector %s heralds outcome %d", h.ctx.Kernel.Now(), h.name, outcome)
	h.toA.Send(&Message{Header: HeaderPhotonOutcome, Items: []any{outcome}}, h.a)
	h.toB.Send(&Message{Header: HeaderPhotonOutcome, Items: []any{outcome}}, h.b)
}
