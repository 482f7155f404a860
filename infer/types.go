// Field inference: turn the flat records the parsers produce into canonical, cluster-tagged
// job and node records.

package infer

// Canonical job record.  Natural key = (JobID, ClusterName); the same numeric job id recurs on
// every cluster, it is never globally unique.  Timestamps are epoch seconds with nil for absent,
// never a sentinel zero.
type ObservedJob struct {
	JobID            string          `bson:"job_id" json:"job_id"`
	ClusterName      string          `bson:"cluster_name" json:"cluster_name"`
	Name             string          `bson:"name" json:"name"`
	JobState         string          `bson:"job_state" json:"job_state"`
	AggregatedState  AggregatedState `bson:"aggregated_state" json:"aggregated_state"`
	SubmitTime       *int64          `bson:"submit_time" json:"submit_time"`
	StartTime        *int64          `bson:"start_time" json:"start_time"`
	EndTime          *int64          `bson:"end_time" json:"end_time"`
	TimeLimitSeconds int64           `bson:"time_limit_seconds" json:"time_limit_seconds"`
	Account          string          `bson:"account" json:"account"`
	Partition        string          `bson:"partition" json:"partition"`
	Nodes            *string         `bson:"nodes" json:"nodes"`
	WorkDir          string          `bson:"work_dir" json:"work_dir"`
	ExitCode         string          `bson:"exit_code" json:"exit_code"`
	TresReq          string          `bson:"tres_req" json:"tres_req"`
	TresAlloc        string          `bson:"tres_alloc" json:"tres_alloc"`

	// The identity triple: at most one slot is populated, the others carry the "unknown"
	// sentinel, see ResolveIdentity.
	MilaClusterUsername string `bson:"mila_cluster_username" json:"mila_cluster_username"`
	CCAccountUsername   string `bson:"cc_account_username" json:"cc_account_username"`
	MilaEmailUsername   string `bson:"mila_email_username" json:"mila_email_username"`

	ArrayJobID  *string `bson:"array_job_id" json:"array_job_id"`
	ArrayTaskID *string `bson:"array_task_id" json:"array_task_id"`

	// Carried for the account-registration side channel, not persisted.
	Comment string `bson:"-" json:"-"`
}

// Canonical node record.  Natural key = (Name, ClusterName).
type ObservedNode struct {
	Name        string `bson:"name" json:"name"`
	ClusterName string `bson:"cluster_name" json:"cluster_name"`
	State       string `bson:"state" json:"state"`
	Reservation string `bson:"reservation" json:"reservation"`
	CPUs        int64  `bson:"cpus" json:"cpus"`
	AllocCPUs   int64  `bson:"alloc_cpus" json:"alloc_cpus"`
	Memory      int64  `bson:"memory" json:"memory"`
	Gres        string `bson:"gres" json:"gres"`
	GresUsed    string `bson:"gres_used" json:"gres_used"`
}
