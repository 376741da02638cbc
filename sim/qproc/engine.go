package qproc

import "math/rand"

// StateEngine is the opaque backend that evolves the stored resource state.
// The physical or mathematical model behind it (amplitude evolution,
// fidelity, density matrices) is an external concern; the instruction
// scheduler only invokes it.
type StateEngine interface {
	// Apply performs one instruction and returns its outcome (meaningful
	// for measurements, zero otherwise).
	Apply(in Instruction, positions []int, rng *rand.Rand) (int, error)
	// ApplyNoise applies a configured noise effect to the positions.
	ApplyNoise(effect NoiseEffect, positions []int, rng *rand.Rand)
}

// IdealEngine is a noiseless stand-in engine: gates are no-ops and
// measurements draw uniform outcomes from the engine RNG stream. It backs
// the fallback execution mode and the package tests; it is not a physics
// model.
type IdealEngine struct{}

func (IdealEngine) Apply(in Instruction, positions []int, rng *rand.Rand) (int, error) {
	if in == InstrMeasure {
		return rng.Intn(2), nil
	}
	return 0, nil
}

func (IdealEngine) ApplyNoise(NoiseEffect, []int, *rand.Rand) {}
