// Package qproc implements the instruction scheduler for a shared stateful
// resource: a processor with addressable storage positions that serializes
// conflicting operations, parallelizes independent ones, and reports
// completion through the event kernel. The physics of the stored state is
// delegated to an opaque StateEngine.
package qproc

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/qnet-sim/qnet-sim/sim"
)

// PositionState is the occupancy state of one storage position.
type PositionState int

const (
	Free PositionState = iota
	Occupied
	Busy
)

// EmitSink receives the payload of a completed Emit instruction. The
// network package wires a node port in here; the processor itself knows
// nothing about transports.
type EmitSink interface {
	Emit(position int)
}

// Completion is the payload of the program-done event a processor posts
// through the kernel when an instruction or program finishes.
type Completion struct {
	// Program is nil for single-instruction executions.
	Program *Program
	Outputs Outputs
	Err     error
}

// Config groups processor construction parameters.
type Config struct {
	Name      string
	Positions int
	// Fallback downgrades unmapped instructions to instantaneous,
	// noiseless executions instead of failing.
	Fallback bool
	Specs    []PhysicalInstruction
}

// Processor owns a fixed set of addressable storage positions and
// schedules instructions against them under duration, topology and noise
// constraints. Occupancy is mutated exclusively here; a Busy position
// rejects new starts rather than queueing them.
type Processor struct {
	name   string
	entity sim.EntityID
	ctx    *sim.Context
	rng    *rand.Rand

	specs    []PhysicalInstruction
	fallback bool
	engine   StateEngine
	sink     EmitSink

	busyUntil []int64
	occupied  []bool
}

// NewProcessor creates a processor backed by the given state engine.
func NewProcessor(ctx *sim.Context, cfg Config, engine StateEngine) *Processor {
	return &Processor{
		name:      cfg.Name,
		entity:    ctx.Kernel.NewEntity(),
		ctx:       ctx,
		rng:       ctx.RNG(sim.SubsystemEngine),
		specs:     cfg.Specs,
		fallback:  cfg.Fallback,
		engine:    engine,
		busyUntil: make([]int64, cfg.Positions),
		occupied:  make([]bool, cfg.Positions),
	}
}

func (p *Processor) Name() string         { return p.name }
func (p *Processor) Entity() sim.EntityID { return p.entity }
func (p *Processor) NumPositions() int    { return len(p.busyUntil) }

// SetEmitSink attaches the destination for Emit instructions.
func (p *Processor) SetEmitSink(sink EmitSink) { p.sink = sink }

// Position reports the occupancy state of one position.
func (p *Processor) Position(i int) PositionState {
	if p.busyUntil[i] > p.ctx.Kernel.Now() {
		return Busy
	}
	if p.occupied[i] {
		return Occupied
	}
	return Free
}

// DoneCondition constructs a wait condition satisfied by this processor's
// next completion event.
func (p *Processor) DoneCondition() *sim.WaitCondition {
	return sim.Atomic(sim.EventProgramDone, p.entity)
}

// Execute schedules a single instruction against physical positions. The
// completion event posts once the busy window expires. Busy positions fail
// with BusyConflict; instructions with no matching physical spec fail with
// UnmappedInstruction unless the fallback mode is enabled.
func (p *Processor) Execute(in Instruction, positions []int) error {
	now := p.ctx.Kernel.Now()
	if err := p.checkPositions(positions, now); err != nil {
		return err
	}
	spec, err := p.resolve(in, positions)
	if err != nil {
		return err
	}
	end := p.startStep(spec, in, positions, now, "", nil)
	p.scheduleFunc(end, func() {
		p.post(&Completion{Outputs: Outputs{}})
	})
	return nil
}

// ExecuteProgram schedules a program, remapping its logical indices to
// physical positions through mapping. Steps within one run that are
// parallel-eligible on disjoint positions start together; everything else
// serializes. Between runs the branch callback may consult earlier outputs
// and stop the program.
func (p *Processor) ExecuteProgram(prog *Program, mapping []int) error {
	now := p.ctx.Kernel.Now()
	if len(mapping) < prog.NumQubits() {
		return fmt.Errorf("program needs %d mapped positions, got %d", prog.NumQubits(), len(mapping))
	}
	used := map[int]bool{}
	for _, pos := range mapping[:prog.NumQubits()] {
		if pos < 0 || pos >= len(p.busyUntil) {
			return fmt.Errorf("mapping targets position %d outside processor %s", pos, p.name)
		}
		used[pos] = true
	}
	for pos := range used {
		if p.busyUntil[pos] > now {
			return &sim.BusyConflict{Position: pos, BusyUntil: p.busyUntil[pos]}
		}
	}
	runs := prog.allRuns()
	p.scheduleRun(prog, runs, 0, mapping, now)
	return nil
}

// scheduleRun lays out one run's busy windows starting at from, then hooks
// the branch evaluation and the next run (or completion) at the run's end.
func (p *Processor) scheduleRun(prog *Program, runs []programRun, idx int, mapping []int, from int64) {
	if idx >= len(runs) {
		p.post(&Completion{Program: prog, Outputs: prog.outputs})
		return
	}
	run := runs[idx]
	lastEnd := from
	barrier := from
	for _, step := range run.steps {
		positions := make([]int, len(step.Indices))
		for i, logical := range step.Indices {
			positions[i] = mapping[logical]
		}
		spec, err := p.resolve(step.Instr, positions)
		if err != nil {
			p.failProgram(prog, err)
			return
		}
		start := barrier
		if !spec.Parallel {
			start = lastEnd
		}
		for _, pos := range positions {
			if p.busyUntil[pos] > start {
				start = p.busyUntil[pos]
			}
		}
		end := p.startStep(spec, step.Instr, positions, start, step.OutputKey, prog)
		if end > lastEnd {
			lastEnd = end
		}
		if !spec.Parallel {
			barrier = end
		}
	}
	p.scheduleFunc(lastEnd, func() {
		if prog.err != nil {
			return
		}
		if run.branch != nil {
			cont, err := run.branch(prog.outputs)
			if err != nil {
				p.failProgram(prog, err)
				return
			}
			if !cont {
				p.post(&Completion{Program: prog, Outputs: prog.outputs})
				return
			}
		}
		p.scheduleRun(prog, runs, idx+1, mapping, p.ctx.Kernel.Now())
	})
}

// startStep marks busy windows and schedules the noise and state-engine
// effects of one instruction. It returns the busy-window end.
func (p *Processor) startStep(spec *PhysicalInstruction, in Instruction, positions []int, start int64, outputKey string, prog *Program) int64 {
	end := start + spec.Duration
	for _, pos := range positions {
		if end > p.busyUntil[pos] {
			p.busyUntil[pos] = end
		}
	}
	if spec.Noise != nil && !spec.ApplyNoiseAfter {
		noise := *spec.Noise
		p.scheduleFunc(start, func() {
			p.engine.ApplyNoise(noise, positions, p.rng)
		})
	}
	p.scheduleFunc(end, func() {
		if prog != nil && prog.err != nil {
			return
		}
		outcome, err := p.engine.Apply(in, positions, p.rng)
		if err != nil {
			if prog != nil {
				p.failProgram(prog, err)
			} else {
				p.post(&Completion{Err: err})
			}
			return
		}
		if spec.Noise != nil && spec.ApplyNoiseAfter {
			p.engine.ApplyNoise(*spec.Noise, positions, p.rng)
		}
		p.applyOccupancy(in, positions)
		if outputKey != "" && prog != nil {
			prog.outputs[outputKey] = outcome
		}
	})
	return end
}

func (p *Processor) applyOccupancy(in Instruction, positions []int) {
	switch in {
	case InstrInit:
		for _, pos := range positions {
			p.occupied[pos] = true
		}
	case InstrMeasure:
		// Measurement leaves the unit in place; callers free positions
		// by reinitializing them.
	case InstrEmit:
		// Emit consumes the emission position and sends its payload out.
		if len(positions) == 2 {
			p.occupied[positions[1]] = false
		}
		if p.sink != nil {
			p.sink.Emit(positions[0])
		}
	}
}

// resolve matches an instruction against the configured physical specs.
func (p *Processor) resolve(in Instruction, positions []int) (*PhysicalInstruction, error) {
	for i := range p.specs {
		spec := &p.specs[i]
		if spec.Instr == in && spec.allows(positions) {
			return spec, nil
		}
	}
	if p.fallback {
		logrus.Debugf("processor %s: %s on %v falls back to nonphysical execution", p.name, in, positions)
		return &PhysicalInstruction{Instr: in, Parallel: true}, nil
	}
	return nil, &sim.UnmappedInstruction{Instr: string(in), Positions: positions}
}

func (p *Processor) checkPositions(positions []int, now int64) error {
	for _, pos := range positions {
		if pos < 0 || pos >= len(p.busyUntil) {
			return fmt.Errorf("position %d outside processor %s", pos, p.name)
		}
		if p.busyUntil[pos] > now {
			return &sim.BusyConflict{Position: pos, BusyUntil: p.busyUntil[pos]}
		}
	}
	return nil
}

func (p *Processor) failProgram(prog *Program, err error) {
	logrus.Errorf("[tick %07d] processor %s: program failed: %v", p.ctx.Kernel.Now(), p.name, err)
	prog.err = err
	p.post(&Completion{Program: prog, Outputs: prog.outputs, Err: err})
}

func (p *Processor) post(c *Completion) {
	k := p.ctx.Kernel
	if _, err := k.Schedule(sim.EventProgramDone, p.entity, c, k.Now()); err != nil {
		panic(err)
	}
}

func (p *Processor) scheduleFunc(at int64, fn func()) {
	if _, err := p.ctx.Kernel.ScheduleFunc(at, fn); err != nil {
		// Unreachable: step layout never targets the past.
		panic(err)
	}
}
