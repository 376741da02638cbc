package qproc

import "testing"

func TestPhysicalInstruction_TopologyMatching(t *testing.T) {
	spec := &PhysicalInstruction{
		Instr:    InstrCNOT,
		Topology: [][]int{{0, 1}, {2}, {3}},
	}

	cases := []struct {
		name      string
		positions []int
		want      bool
	}{
		{"exact tuple", []int{0, 1}, true},
		{"tuple order matters", []int{1, 0}, false},
		{"all singletons listed", []int{2, 3}, true},
		{"one singleton missing", []int{2, 4}, false},
		{"single listed position", []int{3}, true},
		{"single unlisted position", []int{5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := spec.allows(tc.positions); got != tc.want {
				t.Errorf("allows(%v): got %v, want %v", tc.positions, got, tc.want)
			}
		})
	}
}

func TestPhysicalInstruction_NilTopologyAllowsAll(t *testing.T) {
	spec := &PhysicalInstruction{Instr: InstrH}
	if !spec.allows([]int{0}) || !spec.allows([]int{7, 3}) {
		t.Error("nil topology must allow any positions")
	}
}

func TestProgram_SyncPartitionsRuns(t *testing.T) {
	prog := NewProgram(1)
	prog.Apply(InstrInit, 0)
	prog.Sync(nil)
	prog.ApplyOutput(InstrMeasure, []int{0}, "m")

	runs := prog.allRuns()
	if len(runs) != 2 {
		t.Fatalf("runs: got %d, want 2", len(runs))
	}
	if len(runs[0].steps) != 1 || runs[0].steps[0].Instr != InstrInit {
		t.Errorf("first run: got %v", runs[0].steps)
	}
	if len(runs[1].steps) != 1 || runs[1].steps[0].OutputKey != "m" {
		t.Errorf("trailing open run: got %v", runs[1].steps)
	}
}
