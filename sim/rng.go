package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration MUST
// produce bit-for-bit identical timelines.
type SimulationKey int64

// RNG subsystems used by the core packages.
const (
	// SubsystemDetector draws the heralded-outcome samples at midpoint
	// detectors.
	SubsystemDetector = "detector"
	// SubsystemEngine drives measurement outcomes in state engines.
	SubsystemEngine = "engine"
)

// SubsystemNode returns the subsystem name for per-node randomness.
func SubsystemNode(name string) string {
	return fmt.Sprintf("node_%s", name)
}

// Context threads the simulation clock and RNG handles explicitly through
// construction of the kernel, scheduler and processors; there are no
// ambient globals.
//
// Each subsystem gets an isolated deterministic stream derived as
// masterSeed XOR fnv1a64(subsystemName), so adding a consumer to one
// subsystem never perturbs the draws of another.
//
// Thread-safety: NOT thread-safe; the simulation is single-threaded.
type Context struct {
	Kernel *Kernel

	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewContext creates a simulation context around a fresh kernel.
func NewContext(seed int64) *Context {
	return &Context{
		Kernel:     NewKernel(),
		key:        SimulationKey(seed),
		subsystems: make(map[string]*rand.Rand),
	}
}

// RNG returns the deterministically seeded stream for the named subsystem.
// The same name always returns the same *rand.Rand instance. Never nil.
func (c *Context) RNG(name string) *rand.Rand {
	if rng, ok := c.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(c.key) ^ fnv1a64(name)))
	c.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey this context was built from.
func (c *Context) Key() SimulationKey { return c.key }

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
