package qproc

// Instruction is an abstract command executable on a processor. Abstract
// instructions are independent of any particular hardware; a processor maps
// them onto PhysicalInstruction specs (or rejects them).
type Instruction string

const (
	InstrInit    Instruction = "INIT"
	InstrH       Instruction = "H"
	InstrX       Instruction = "X"
	InstrZ       Instruction = "Z"
	InstrS       Instruction = "S"
	InstrCNOT    Instruction = "CNOT"
	InstrMeasure Instruction = "MEASURE"
	// InstrEmit pairs a storage position with an emission position and
	// hands the emitted payload to the processor's EmitSink.
	InstrEmit Instruction = "EMIT"
)

// NoiseEffect describes a noise model as plain configuration data; its
// interpretation belongs entirely to the StateEngine.
type NoiseEffect struct {
	Kind            string
	Rate            float64
	TimeIndependent bool
}

// PhysicalInstruction is the timed, possibly noisy, topology-constrained
// implementation of an abstract instruction. Immutable after construction.
type PhysicalInstruction struct {
	Instr    Instruction
	Duration int64
	// Parallel marks the instruction eligible to overlap with other
	// parallel-eligible instructions on disjoint positions.
	Parallel bool
	// Topology lists the allowed position tuples; nil allows all.
	// Single-position instructions use singleton tuples.
	Topology [][]int
	Noise    *NoiseEffect
	// ApplyNoiseAfter applies Noise on busy-window expiry instead of at
	// the instruction start.
	ApplyNoiseAfter bool
}

// allows reports whether the spec's topology covers the target positions:
// either the exact tuple is listed, or every target appears as a singleton.
func (p *PhysicalInstruction) allows(positions []int) bool {
	if p.Topology == nil {
		return true
	}
	for _, tuple := range p.Topology {
		if equalTuple(tuple, positions) {
			return true
		}
	}
	for _, pos := range positions {
		if !p.allowsSingle(pos) {
			return false
		}
	}
	return true
}

func (p *PhysicalInstruction) allowsSingle(pos int) bool {
	for _, tuple := range p.Topology {
		if len(tuple) == 1 && tuple[0] == pos {
			return true
		}
	}
	return false
}

func equalTuple(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
