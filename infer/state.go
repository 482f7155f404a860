package infer

import (
	"strings"
)

// The 4-way bucket downstream consumers filter on.
type AggregatedState string

const (
	StatePending   AggregatedState = "PENDING"
	StateRunning   AggregatedState = "RUNNING"
	StateCompleted AggregatedState = "COMPLETED"
	StateFailed    AggregatedState = "FAILED"
)

// The many-to-one mapping from raw Slurm job states.  This table is contract surface: consumers
// depend on exactly these bucket assignments.
//
// MT: Constant after initialization
var aggregatedStates = map[string]AggregatedState{
	"BOOT_FAIL":     StateFailed,
	"CANCELLED":     StateFailed,
	"COMPLETED":     StateCompleted,
	"CONFIGURING":   StatePending,
	"COMPLETING":    StateRunning,
	"DEADLINE":      StateFailed,
	"FAILED":        StateFailed,
	"NODE_FAIL":     StateFailed,
	"OUT_OF_MEMORY": StateFailed,
	"PENDING":       StatePending,
	"PREEMPTED":     StateFailed,
	"RUNNING":       StateRunning,
	"RESV_DEL_HOLD": StatePending,
	"REQUEUE_FED":   StatePending,
	"REQUEUE_HOLD":  StatePending,
	"REQUEUED":      StatePending,
	"RESIZING":      StatePending,
	"REVOKED":       StateFailed,
	"SIGNALING":     StateRunning,
	"SPECIAL_EXIT":  StateFailed,
	"STAGE_OUT":     StateRunning,
	"STOPPED":       StateFailed,
	"SUSPENDED":     StateFailed,
	"TIMEOUT":       StateFailed,
}

// TruncateState reduces a raw state value to the bare keyword: "CANCELLED by 963245100" carries a
// cancellation reason suffix, and JSON reports may deliver a comma-joined flag list.
func TruncateState(raw string) string {
	s := raw
	if i := strings.IndexByte(s, ','); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, ' '); i != -1 {
		s = s[:i]
	}
	return s
}

func AggregateState(raw string) (AggregatedState, bool) {
	a, ok := aggregatedStates[TruncateState(raw)]
	return a, ok
}
