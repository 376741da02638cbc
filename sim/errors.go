package sim

import (
	"errors"
	"fmt"
)

// The error taxonomy is split between fatal conditions, which abort the
// enclosing protocol's routine, and expected conditions (BusyConflict),
// which callers handle by awaiting completion and retrying. The kernel and
// scheduler never crash on a single protocol's fatal error; they surface it
// as a Failed protocol state.

// SchedulingError reports an attempt to schedule an event strictly before
// the current logical time. Fatal, never retried.
type SchedulingError struct {
	At  int64
	Now int64
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("cannot schedule event at %d ticks: clock already at %d", e.At, e.Now)
}

// BusyConflict reports an instruction start against a position whose busy
// window has not elapsed. The caller must await completion and retry; the
// scheduler never queues the start implicitly.
type BusyConflict struct {
	Position  int
	BusyUntil int64
}

func (e *BusyConflict) Error() string {
	return fmt.Sprintf("position %d busy until %d ticks", e.Position, e.BusyUntil)
}

// UnmappedInstruction reports an instruction with no matching physical
// specification for the target positions. Fatal unless the processor is
// configured to fall back to instantaneous noiseless execution.
type UnmappedInstruction struct {
	Instr     string
	Positions []int
}

func (e *UnmappedInstruction) Error() string {
	return fmt.Sprintf("no physical instruction maps %s onto positions %v", e.Instr, e.Positions)
}

// ErrMissingDependency is returned when a protocol is started without a
// required collaborator attached (e.g. a link-layer service without its
// physical sub-protocol). Surfaced immediately at Start.
var ErrMissingDependency = errors.New("missing required subprotocol")

// MalformedBranch reports a program branch reading an output key that no
// earlier step populated. A logic error, fatal.
type MalformedBranch struct {
	Key string
}

func (e *MalformedBranch) Error() string {
	return fmt.Sprintf("program branch reads unset output key %q", e.Key)
}
