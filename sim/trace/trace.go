// Package trace provides dispatch-trace recording for timeline analysis.
// This package has no dependencies on sim/; it stores pure data types fed
// through the kernel's dispatch hook.
package trace

// DispatchRecord captures one dispatched event.
type DispatchRecord struct {
	Clock  int64
	Type   string
	Source int64
	// Label refines signal events with the signal label; empty otherwise.
	Label string
}

// DispatchTrace collects dispatch records during a simulation run.
type DispatchTrace struct {
	Records []DispatchRecord
}

// NewDispatchTrace creates a DispatchTrace ready for recording.
func NewDispatchTrace() *DispatchTrace {
	return &DispatchTrace{Records: make([]DispatchRecord, 0)}
}

// Record appends one dispatch record.
func (dt *DispatchTrace) Record(r DispatchRecord) {
	dt.Records = append(dt.Records, r)
}
