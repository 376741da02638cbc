package sim

// WaitKind tags the variant of a WaitCondition.
type WaitKind int

const (
	// WaitAtomic matches a single (type, source) event pair.
	WaitAtomic WaitKind = iota
	// WaitAll is satisfied once both children are satisfied.
	WaitAll
	// WaitAny is satisfied as soon as either child is satisfied.
	WaitAny
)

// Branch identifies which side of a WaitAny fired.
type Branch int

const (
	BranchNone Branch = iota
	BranchLeft
	BranchRight
)

// WaitCondition suspends a protocol until a boolean combination of future
// events occurs. The definition (kind, children, matchers) is immutable;
// the evaluation state (satisfied flags, triggering events) belongs to the
// scheduler entry tracking it. Conditions are single-use: once satisfied
// they must be reconstructed for reuse, mirroring the register, consume,
// re-register loop of protocol routines.
type WaitCondition struct {
	kind   WaitKind
	etype  EventType
	source EntityID
	// match refines atomic leaves beyond (type, source): timer conditions
	// bind to one event ID, signal conditions check label and locality.
	match func(*Event) bool

	left, right *WaitCondition

	satisfied bool
	branch    Branch
	events    []*Event
}

// Atomic constructs a leaf condition matching events of the given type from
// the given source.
func Atomic(etype EventType, source EntityID) *WaitCondition {
	return &WaitCondition{kind: WaitAtomic, etype: etype, source: source}
}

// All composes two conditions; the result is satisfied only once both
// children are, in either order and even within the same dispatch batch.
func All(a, b *WaitCondition) *WaitCondition {
	return &WaitCondition{kind: WaitAll, left: a, right: b}
}

// Any composes two conditions; the result is satisfied as soon as either
// child is, and records which branch fired. When one dispatched event could
// satisfy both children, the first-declared (left) branch wins: Evaluate
// feeds the left child first and stops at the first satisfied child.
func Any(a, b *WaitCondition) *WaitCondition {
	return &WaitCondition{kind: WaitAny, left: a, right: b}
}

// Evaluate feeds one fired event to the condition and reports whether it is
// now satisfied. Satisfied children are remembered across calls; an already
// satisfied condition ignores further events.
func (w *WaitCondition) Evaluate(ev *Event) bool {
	if w.satisfied {
		return true
	}
	switch w.kind {
	case WaitAtomic:
		if ev.Type == w.etype && ev.Source == w.source && (w.match == nil || w.match(ev)) {
			w.satisfied = true
			w.events = []*Event{ev}
		}
	case WaitAll:
		// Feed both children: a single occurrence satisfies at most the
		// leaves it actually matches, so an All over two distinct leaves
		// still requires a distinct occurrence for the other child.
		w.left.Evaluate(ev)
		w.right.Evaluate(ev)
		if w.left.satisfied && w.right.satisfied {
			w.satisfied = true
			w.events = append(append([]*Event{}, w.left.events...), w.right.events...)
		}
	case WaitAny:
		if w.left.Evaluate(ev) {
			w.satisfied = true
			w.branch = BranchLeft
			w.events = w.left.events
		} else if w.right.Evaluate(ev) {
			w.satisfied = true
			w.branch = BranchRight
			w.events = w.right.events
		}
	}
	return w.satisfied
}

// Satisfied reports whether the condition has fired.
func (w *WaitCondition) Satisfied() bool { return w.satisfied }

// Fired returns which branch of a WaitAny fired; BranchNone for other kinds
// or unsatisfied conditions.
func (w *WaitCondition) Fired() Branch { return w.branch }

// Left and Right expose the children of composite conditions so callers can
// branch on which sub-condition fired.
func (w *WaitCondition) Left() *WaitCondition  { return w.left }
func (w *WaitCondition) Right() *WaitCondition { return w.right }

// Triggered returns the events that satisfied the condition: one event for
// a leaf, both contributions for a WaitAll, the firing side's events for a
// WaitAny.
func (w *WaitCondition) Triggered() []*Event { return w.events }

// leaves appends all atomic descendants to dst, left to right.
func (w *WaitCondition) leaves(dst []*WaitCondition) []*WaitCondition {
	if w == nil {
		return dst
	}
	if w.kind == WaitAtomic {
		return append(dst, w)
	}
	dst = w.left.leaves(dst)
	return w.right.leaves(dst)
}
