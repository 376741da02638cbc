package linklayer

import (
	"github.com/qnet-sim/qnet-sim/sim"
	"github.com/qnet-sim/qnet-sim/sim/network"
	"github.com/qnet-sim/qnet-sim/sim/qproc"
)

// ScenarioParams groups the knobs of the reference two-node scenario.
type ScenarioParams struct {
	Pairs              int
	Positions          int
	Cadence            int64
	Travel             int64
	Window             int64
	ChannelDelay       int64
	SuccessProbability float64
}

// DefaultScenarioParams returns the tutorial parameters: a 100-tick
// attempt cadence, a 10000-tick travel constant and a 20-tick coincidence
// window.
func DefaultScenarioParams() ScenarioParams {
	return ScenarioParams{
		Pairs:              3,
		Positions:          3,
		Cadence:            100,
		Travel:             10000,
		Window:             20,
		ChannelDelay:       5000,
		SuccessProbability: 0.5,
	}
}

// Apply overlays YAML-provided values onto the parameters; nil fields keep
// their defaults.
func (p *ScenarioParams) Apply(cfg *sim.ScenarioConfig) {
	if cfg == nil {
		return
	}
	if cfg.Pairs != nil {
		p.Pairs = *cfg.Pairs
	}
	if cfg.Positions != nil {
		p.Positions = *cfg.Positions
	}
	if cfg.CadenceTicks != nil {
		p.Cadence = *cfg.CadenceTicks
	}
	if cfg.TravelTicks != nil {
		p.Travel = *cfg.TravelTicks
	}
	if cfg.WindowTicks != nil {
		p.Window = *cfg.WindowTicks
	}
	if cfg.ChannelDelayTicks != nil {
		p.ChannelDelay = *cfg.ChannelDelayTicks
	}
	if cfg.SuccessProbability != nil {
		p.SuccessProbability = *cfg.SuccessProbability
	}
}

// Scenario is the assembled two-node entanglement-generation setup.
type Scenario struct {
	Sched *sim.Scheduler
	Net   *network.Network
	Alice *EGP
	Bob   *EGP
}

// Port names used by the scenario nodes.
const (
	PortQuantum   = "quantum"
	PortClassical = "classical"
)

// ProcessorSpecs returns the physical instruction table of the scenario
// processors: position 0 is the emission position, the rest are storage.
func ProcessorSpecs() []qproc.PhysicalInstruction {
	return []qproc.PhysicalInstruction{
		{Instr: qproc.InstrInit, Duration: 3, Parallel: true},
		{Instr: qproc.InstrEmit, Duration: 1, Parallel: true},
		{Instr: qproc.InstrH, Duration: 1, Parallel: true},
		{Instr: qproc.InstrX, Duration: 1, Parallel: true},
		{Instr: qproc.InstrZ, Duration: 1, Parallel: true},
		{Instr: qproc.InstrS, Duration: 1, Parallel: true},
		{Instr: qproc.InstrMeasure, Duration: 7, Parallel: false},
	}
}

// BuildTwoNodeScenario assembles the Alice/Bob network: a heralded
// connection between the quantum ports, a classical connection for request
// synchronization, one processor per node, and the EGP/MHP protocol pair on
// each side.
func BuildTwoNodeScenario(ctx *sim.Context, params ScenarioParams) *Scenario {
	sched := sim.NewScheduler(ctx)
	net := network.NewNetwork(ctx, "link-layer-scenario")

	buildNode := func(name string) *network.Node {
		proc := qproc.NewProcessor(ctx, qproc.Config{
			Name:      "qproc-" + name,
			Positions: params.Positions + 1,
			Fallback:  true,
			Specs:     ProcessorSpecs(),
		}, qproc.IdealEngine{})
		node := network.NewNode(ctx, name, proc)
		node.AddPort(PortQuantum)
		node.AddPort(PortClassical)
		net.AddNode(node)
		return node
	}
	alice := buildNode("Alice")
	bob := buildNode("Bob")

	net.AddConnection(alice, bob,
		network.NewHeraldedConnection(ctx, "heralded", network.HeraldedConfig{
			DelayToMidpoint:    network.FixedDelay(params.ChannelDelay / 2),
			WindowTicks:        params.Window,
			SuccessProbability: params.SuccessProbability,
		}),
		"quantum", PortQuantum, PortQuantum)
	net.AddConnection(alice, bob,
		network.NewClassicalConnection(ctx, "classical", network.FixedDelay(params.ChannelDelay)),
		"classical", PortClassical, PortClassical)

	s := &Scenario{Sched: sched, Net: net}
	s.Alice = buildService(sched, alice, params)
	s.Bob = buildService(sched, bob, params)
	return s
}

func buildService(sched *sim.Scheduler, node *network.Node, params ScenarioParams) *EGP {
	mhp := NewMHP(sched, node, PortQuantum, params.Cadence)
	egp := NewEGP(sched, node, PortClassical, params.Travel)
	egp.AttachPhysicalLayer(mhp)
	return egp
}

// Start starts both services (and their physical subprotocols).
func (s *Scenario) Start() error {
	if err := s.Alice.Protocol().Start(); err != nil {
		return err
	}
	return s.Bob.Protocol().Start()
}
