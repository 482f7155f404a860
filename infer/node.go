package infer

import (
	"fmt"
	"strconv"
	"strings"

	"slurmsync/cfg"
	"slurmsync/slurm"
)

func NodeFromRaw(raw slurm.RawRecord, desc *cfg.ClusterDescriptor, resvByNode map[string]string) (*ObservedNode, error) {
	name := raw.Str("name")
	if name == "" {
		return nil, fmt.Errorf("Node record without a name: %v", raw)
	}
	cpus, err := nodeCount(raw, "cpus")
	if err != nil {
		return nil, fmt.Errorf("Node %s: %w", name, err)
	}
	allocCpus, err := nodeCount(raw, "alloc_cpus")
	if err != nil {
		return nil, fmt.Errorf("Node %s: %w", name, err)
	}
	memory, err := nodeCount(raw, "memory")
	if err != nil {
		return nil, fmt.Errorf("Node %s: %w", name, err)
	}
	return &ObservedNode{
		Name:        name,
		ClusterName: desc.Name,
		State:       raw.Str("state"),
		Reservation: reservationFor(resvByNode, name),
		CPUs:        cpus,
		AllocCPUs:   allocCpus,
		Memory:      memory,
		Gres:        gresValue(raw.Str("gres")),
		GresUsed:    gresValue(raw.Str("gres_used")),
	}, nil
}

// Counts arrive as strings from the block format and as numbers from the JSON reports.
func nodeCount(raw slurm.RawRecord, key string) (int64, error) {
	switch v := raw[key].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case string:
		if v == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("Bad %s value %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("Bad %s value %v", key, v)
	}
}

// Slurm prints "(null)" for no gres; normalize to empty.  The socket suffix "(S:0-1)" some
// versions append is dropped.
func gresValue(s string) string {
	if s == "(null)" || s == "N/A" {
		return ""
	}
	if i := strings.IndexByte(s, '('); i != -1 {
		s = s[:i]
	}
	return s
}
