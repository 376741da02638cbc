package qproc

import "github.com/qnet-sim/qnet-sim/sim"

// Outputs maps output keys to recorded instruction results.
type Outputs map[string]int

// Get returns the value under key. Reading a key no earlier step populated
// is a MalformedBranch logic error, fatal to the program.
func (o Outputs) Get(key string) (int, error) {
	v, ok := o[key]
	if !ok {
		return 0, &sim.MalformedBranch{Key: key}
	}
	return v, nil
}

// BranchFunc decides at a run boundary whether the program continues, based
// on outputs of earlier runs. Returning false skips the remaining runs.
type BranchFunc func(Outputs) (bool, error)

// ProgramStep is one instruction over logical qubit indices.
type ProgramStep struct {
	Instr     Instruction
	Indices   []int
	OutputKey string
}

type programRun struct {
	steps  []ProgramStep
	branch BranchFunc
}

// Program is an ordered list of instruction steps over logical indices,
// partitioned into sequential runs separated by explicit result-dependent
// branch points. Logical indices are remapped to physical positions when
// the program executes.
type Program struct {
	numQubits int
	runs      []programRun
	current   programRun

	outputs Outputs
	err     error
}

// NewProgram creates a program over numQubits logical indices.
func NewProgram(numQubits int) *Program {
	return &Program{numQubits: numQubits, outputs: make(Outputs)}
}

// NumQubits returns the number of logical indices the program addresses.
func (p *Program) NumQubits() int { return p.numQubits }

// Apply appends an instruction step to the current run.
func (p *Program) Apply(in Instruction, indices ...int) {
	p.current.steps = append(p.current.steps, ProgramStep{Instr: in, Indices: indices})
}

// ApplyOutput appends an instruction step whose result is recorded under
// the given output key.
func (p *Program) ApplyOutput(in Instruction, indices []int, key string) {
	p.current.steps = append(p.current.steps, ProgramStep{Instr: in, Indices: indices, OutputKey: key})
}

// Sync closes the current run. Later steps start only after every step of
// this run completed, and branch (which may be nil) decides whether they
// start at all.
func (p *Program) Sync(branch BranchFunc) {
	p.current.branch = branch
	p.runs = append(p.runs, p.current)
	p.current = programRun{}
}

// Outputs returns the output-key map, readable after completion.
func (p *Program) Outputs() Outputs { return p.outputs }

// Err returns the fatal error that aborted the program, if any.
func (p *Program) Err() error { return p.err }

// allRuns returns the declared runs plus the trailing open run, and resets
// execution state for a fresh pass.
func (p *Program) allRuns() []programRun {
	runs := p.runs
	if len(p.current.steps) > 0 {
		runs = append(append([]programRun{}, runs...), p.current)
	}
	p.outputs = make(Outputs)
	p.err = nil
	return runs
}
