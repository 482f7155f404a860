package infer

import (
	"fmt"
	"strings"

	"slurmsync/cfg"
	"slurmsync/common"
	"slurmsync/slurm"
)

func JobFromRaw(raw slurm.RawRecord, desc *cfg.ClusterDescriptor) (*ObservedJob, error) {
	jobID := raw.Str("job_id")
	if jobID == "" {
		return nil, fmt.Errorf("Job record without a job id: %v", raw)
	}

	rawState := raw.Str("job_state")
	aggregated, known := AggregateState(rawState)
	if !known {
		// States outside the fixed vocabulary are terminal anomalies in practice; keep the
		// record visible rather than dropping it.
		common.Log.Warningf("Unmapped job state %q on cluster %s, bucketing as FAILED",
			rawState, desc.Name)
		aggregated = StateFailed
	}

	identity := ResolveIdentity(raw, desc)

	job := &ObservedJob{
		JobID:               jobID,
		ClusterName:         desc.Name,
		Name:                raw.Str("name"),
		JobState:            TruncateState(rawState),
		AggregatedState:     aggregated,
		SubmitTime:          raw.Epoch("submit_time"),
		StartTime:           raw.Epoch("start_time"),
		EndTime:             raw.Epoch("end_time"),
		TimeLimitSeconds:    raw.Int("time_limit"),
		Account:             raw.Str("account"),
		Partition:           raw.Str("partition"),
		Nodes:               nodeList(raw.Str("nodes")),
		WorkDir:             raw.Str("work_dir"),
		ExitCode:            raw.Str("exit_code"),
		TresReq:             raw.Str("tres_req"),
		TresAlloc:           raw.Str("tres_alloc"),
		MilaClusterUsername: identity.MilaClusterUsername,
		CCAccountUsername:   identity.CCAccountUsername,
		MilaEmailUsername:   identity.MilaEmailUsername,
		ArrayJobID:          optionalString(raw.Str("array_job_id")),
		ArrayTaskID:         optionalString(raw.Str("array_task_id")),
		Comment:             raw.Str("comment"),
	}
	return job, nil
}

// Pending jobs have no allocation; scontrol prints "(null)" for the node list.
func nodeList(s string) *string {
	if s == "" || s == "(null)" || s == "None assigned" {
		return nil
	}
	return &s
}

func optionalString(s string) *string {
	if s == "" || s == "N/A" {
		return nil
	}
	return &s
}

// Keep returns whether the job's billing account belongs to the organization on this cluster.
// Applied before reconciliation, so unrelated tenants of a shared cluster never enter the store.
func Keep(job *ObservedJob, desc *cfg.ClusterDescriptor) bool {
	if desc.Allocations.All {
		return true
	}
	for _, account := range desc.Allocations.Accounts {
		if job.Account == account {
			return true
		}
	}
	return false
}

// RegistrationKey extracts the one-time key of the account-registration side channel from a job
// comment of the form "register_account:<key>".
const registrationMarker = "register_account:"

func RegistrationKey(comment string) (string, bool) {
	if !strings.HasPrefix(comment, registrationMarker) {
		return "", false
	}
	key := comment[len(registrationMarker):]
	return key, key != ""
}
