package slurm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Parser for the JSON report format of `sacct --json`, `scontrol show jobs|nodes --json` and
// `sinfo --json`.  Entities are elements of a named top-level array; the version is in the meta
// object.  Two encoding quirks pervade these reports and are absorbed by slurmNumber and
// slurmString below: numbers may be plain or a {set, infinite, number} object, strings may be
// plain or a one-element array of state flags.

type jsonReport struct {
	Meta struct {
		Slurm struct {
			Version struct {
				Major json.Number `json:"major"`
			} `json:"version"`
		} `json:"slurm"`
	} `json:"meta"`
	Jobs  []map[string]any `json:"jobs"`
	Nodes []map[string]any `json:"nodes"`
	Sinfo []map[string]any `json:"sinfo"`
}

// slurmNumber decodes a plain number or a {set, infinite, number} object.  Unset and infinite
// both come back as (0, true): downstream, epoch 0 is "absent" and limit 0 is "unlimited", which
// is what those encodings mean.
func slurmNumber(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case map[string]any:
		if set, ok := n["set"].(bool); ok && !set {
			return 0, true
		}
		if inf, ok := n["infinite"].(bool); ok && inf {
			return 0, true
		}
		if num, ok := n["number"].(float64); ok {
			return int64(num), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// slurmString decodes a plain string or an array of state flags ("CANCELLED" vs ["CANCELLED"]).
func slurmString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []any:
		parts := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, ","), len(parts) > 0
	default:
		return "", false
	}
}

type JSONParser struct {
	source  Source
	cluster string
	loc     *time.Location
}

func NewJSONParser(source Source, cluster string, loc *time.Location) *JSONParser {
	return &JSONParser{source, cluster, loc}
}

func (p *JSONParser) fail(fragment string, err error) error {
	return &ParseError{Source: p.source, Cluster: p.cluster, Fragment: fragment, Err: err}
}

func (p *JSONParser) Parse(data []byte) ([]RawRecord, error) {
	var report jsonReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, p.fail(elide(data), fmt.Errorf("Bad JSON report: %w", err))
	}
	major64, err := report.Meta.Slurm.Version.Major.Int64()
	if err != nil {
		return nil, p.fail(string(report.Meta.Slurm.Version.Major),
			fmt.Errorf("JSON report carries no Slurm version"))
	}
	fields, err := jsonFieldMapFor(p.source, int(major64))
	if err != nil {
		return nil, p.fail("", err)
	}

	var flat []map[string]any
	switch p.source {
	case SourceSacct:
		for _, entry := range report.Jobs {
			flat = append(flat, flattenSacctJob(entry))
		}
	case SourceScontrolJob:
		for _, entry := range report.Jobs {
			flat = append(flat, flattenScontrolJob(entry))
		}
	case SourceScontrolNode:
		for _, entry := range report.Nodes {
			flat = append(flat, flattenScontrolNode(entry))
		}
	case SourceSinfo:
		for _, entry := range report.Sinfo {
			flat = append(flat, flattenSinfo(entry)...)
		}
	}

	records := make([]RawRecord, 0, len(flat))
	for _, f := range flat {
		out := make(RawRecord)
		for key, value := range f {
			tr, known := fields[key]
			if !known {
				return nil, p.fail(key, fmt.Errorf("Unrecognized field %s", key))
			}
			if err := tr.apply(key, value, p.loc, out); err != nil {
				return nil, p.fail(key, err)
			}
		}
		records = append(records, out)
	}
	return records, nil
}

func elide(data []byte) string {
	s := string(data)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// The flatteners below reduce one report entry to the flat member paths the field maps bind.
// Members they do not know about are dropped here; the maps are then total over what is emitted.

func flattenSacctJob(entry map[string]any) map[string]any {
	out := make(map[string]any)
	if n, ok := slurmNumber(entry["job_id"]); ok {
		out["job_id"] = n
	}
	if array, ok := entry["array"].(map[string]any); ok {
		if n, ok := slurmNumber(array["job_id"]); ok && n != 0 {
			out["array.job_id"] = n
			if n, ok := slurmNumber(array["task_id"]); ok {
				out["array.task_id"] = n
			}
		}
	}
	copyString(out, entry, "name", "name")
	copyString(out, entry, "user", "user")
	copyString(out, entry, "account", "account")
	copyString(out, entry, "partition", "partition")
	copyString(out, entry, "nodes", "nodes")
	copyString(out, entry, "working_directory", "working_directory")
	if state, ok := entry["state"].(map[string]any); ok {
		if s, ok := slurmString(state["current"]); ok {
			out["state.current"] = s
		}
	}
	if t, ok := entry["time"].(map[string]any); ok {
		if n, ok := slurmNumber(t["limit"]); ok {
			out["time.limit"] = n
		}
		for _, k := range []string{"submission", "start", "end"} {
			if n, ok := slurmNumber(t[k]); ok {
				out["time."+k] = n
			}
		}
	}
	if ec := flattenExitCode(entry["exit_code"]); ec != nil {
		out["exit_code"] = ec
	}
	switch c := entry["comment"].(type) {
	case string:
		out["comment.job"] = c
	case map[string]any:
		if s, ok := c["job"].(string); ok {
			out["comment.job"] = s
		}
	}
	if tres, ok := entry["tres"].(map[string]any); ok {
		if s := tresListString(tres["requested"]); s != "" {
			out["tres.requested"] = s
		}
		if s := tresListString(tres["allocated"]); s != "" {
			out["tres.allocated"] = s
		}
	}
	return out
}

func flattenScontrolJob(entry map[string]any) map[string]any {
	out := make(map[string]any)
	if n, ok := slurmNumber(entry["job_id"]); ok {
		out["job_id"] = n
	}
	if n, ok := slurmNumber(entry["array_job_id"]); ok && n != 0 {
		out["array_job_id"] = n
		if n, ok := slurmNumber(entry["array_task_id"]); ok {
			out["array_task_id"] = n
		}
	}
	copyString(out, entry, "name", "name")
	copyString(out, entry, "user_name", "user_name")
	copyString(out, entry, "account", "account")
	copyString(out, entry, "partition", "partition")
	copyString(out, entry, "nodes", "nodes")
	copyString(out, entry, "current_working_directory", "current_working_directory")
	copyString(out, entry, "command", "command")
	copyString(out, entry, "standard_output", "standard_output")
	copyString(out, entry, "standard_error", "standard_error")
	copyString(out, entry, "comment", "comment")
	copyString(out, entry, "tres_req_str", "tres_req_str")
	copyString(out, entry, "tres_alloc_str", "tres_alloc_str")
	if s, ok := slurmString(entry["job_state"]); ok {
		out["job_state"] = s
	}
	if n, ok := slurmNumber(entry["time_limit"]); ok {
		out["time_limit"] = n
	}
	for _, k := range []string{"submit_time", "start_time", "end_time"} {
		if n, ok := slurmNumber(entry[k]); ok {
			out[k] = n
		}
	}
	if ec := flattenExitCode(entry["exit_code"]); ec != nil {
		out["exit_code"] = ec
	}
	return out
}

func flattenScontrolNode(entry map[string]any) map[string]any {
	out := make(map[string]any)
	copyString(out, entry, "name", "name")
	copyString(out, entry, "gres", "gres")
	copyString(out, entry, "gres_used", "gres_used")
	if s, ok := slurmString(entry["state"]); ok {
		out["state"] = s
	}
	for _, k := range []string{"cpus", "alloc_cpus", "real_memory"} {
		if n, ok := slurmNumber(entry[k]); ok {
			out[k] = n
		}
	}
	return out
}

// One sinfo entry may cover several nodes; emit one record per node.
func flattenSinfo(entry map[string]any) []map[string]any {
	var names []string
	if nodes, ok := entry["nodes"].(map[string]any); ok {
		if list, ok := nodes["nodes"].([]any); ok {
			for _, n := range list {
				if s, ok := n.(string); ok {
					names = append(names, s)
				}
			}
		}
	}
	base := make(map[string]any)
	if node, ok := entry["node"].(map[string]any); ok {
		if s, ok := slurmString(node["state"]); ok {
			base["state"] = s
		}
	}
	if cpus, ok := entry["cpus"].(map[string]any); ok {
		if n, ok := slurmNumber(cpus["total"]); ok {
			base["cpus.total"] = n
		}
		if n, ok := slurmNumber(cpus["allocated"]); ok {
			base["cpus.allocated"] = n
		}
	}
	if mem, ok := entry["memory"].(map[string]any); ok {
		if n, ok := slurmNumber(mem["maximum"]); ok {
			base["memory.maximum"] = n
		}
	}
	if gres, ok := entry["gres"].(map[string]any); ok {
		copyString(base, gres, "gres.total", "total")
		copyString(base, gres, "gres.used", "used")
	}
	records := make([]map[string]any, 0, len(names))
	for _, name := range names {
		rec := make(map[string]any, len(base)+1)
		for k, v := range base {
			rec[k] = v
		}
		rec["node"] = name
		records = append(records, rec)
	}
	return records
}

func flattenExitCode(v any) []any {
	ec, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	status, ok := slurmString(ec["status"])
	if !ok {
		return nil
	}
	code, _ := slurmNumber(ec["return_code"])
	return []any{status, code}
}

// Rebuild a TRES string from the structured list: [{type, name, count}, ...].
func tresListString(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, e := range list {
		item, ok := e.(map[string]any)
		if !ok {
			continue
		}
		ty, _ := item["type"].(string)
		if ty == "" {
			continue
		}
		if name, _ := item["name"].(string); name != "" {
			ty += "/" + name
		}
		count, _ := slurmNumber(item["count"])
		parts = append(parts, fmt.Sprintf("%s=%d", ty, count))
	}
	return strings.Join(parts, ",")
}

func copyString(out, entry map[string]any, to, from string) {
	if s, ok := entry[from].(string); ok && s != "" {
		out[to] = s
	}
}
