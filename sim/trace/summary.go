package trace

// Summary aggregates statistics from a DispatchTrace.
type Summary struct {
	TotalDispatches int
	FirstClock      int64
	LastClock       int64
	// TypeDistribution counts dispatches per event type; signal events
	// count under "signal:<label>".
	TypeDistribution map[string]int
}

// Summarize computes aggregate statistics from a DispatchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(dt *DispatchTrace) *Summary {
	summary := &Summary{TypeDistribution: make(map[string]int)}
	if dt == nil || len(dt.Records) == 0 {
		return summary
	}
	summary.TotalDispatches = len(dt.Records)
	summary.FirstClock = dt.Records[0].Clock
	summary.LastClock = dt.Records[len(dt.Records)-1].Clock
	for _, r := range dt.Records {
		key := r.Type
		if r.Label != "" {
			key = r.Type + ":" + r.Label
		}
		summary.TypeDistribution[key]++
	}
	return summary
}
