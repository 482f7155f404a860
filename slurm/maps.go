package slurm

// Field maps for each command source.  Every field a supported Slurm version prints must be bound
// here, if only to Ignore(); an unbound field is a parse error so that new Slurm releases are
// noticed instead of silently dropped.

// MT: Constant after initialization
var scontrolJobFields = FieldMap{
	"JobId":       RenameStringify("job_id"),
	"ArrayJobId":  RenameStringify("array_job_id"),
	"ArrayTaskId": RenameStringify("array_task_id"),
	"JobName":     Rename("name"),
	"UserId":      Rename("username"),
	"Account":     Rename("account"),
	"JobState":    Rename("job_state"),
	"Partition":   Rename("partition"),
	"TimeLimit":   TimeLimit("time_limit"),
	"SubmitTime":  TimestampTZ("submit_time"),
	"StartTime":   TimestampTZ("start_time"),
	"EndTime":     TimestampTZ("end_time"),
	"NodeList":    Rename("nodes"),
	"WorkDir":     Rename("work_dir"),
	"Command":     Rename("command"),
	"StdOut":      Rename("stdout_file"),
	"StdErr":      Rename("stderr_file"),
	"ExitCode":    JoinSubitems("exit_code", ":"),
	"Comment":     Rename("comment"),
	"TRES":        ExtractTRES("tres_alloc"),
	"ReqTRES":     ExtractTRES("tres_req"),
	"AllocTRES":   ExtractTRES("tres_alloc"),

	"GroupId":            Ignore(),
	"MCS_label":          Ignore(),
	"Priority":           Ignore(),
	"Nice":               Ignore(),
	"QOS":                Ignore(),
	"Reason":             Ignore(),
	"Dependency":         Ignore(),
	"Requeue":            Ignore(),
	"Restarts":           Ignore(),
	"BatchFlag":          Ignore(),
	"Reboot":             Ignore(),
	"RunTime":            Ignore(),
	"TimeMin":            Ignore(),
	"EligibleTime":       Ignore(),
	"AccrueTime":         Ignore(),
	"Deadline":           Ignore(),
	"SuspendTime":        Ignore(),
	"SecsPreSuspend":     Ignore(),
	"LastSchedEval":      Ignore(),
	"Scheduler":          Ignore(),
	"AllocNode:Sid":      Ignore(),
	"ReqNodeList":        Ignore(),
	"ExcNodeList":        Ignore(),
	"BatchHost":          Ignore(),
	"NumNodes":           Ignore(),
	"NumCPUs":            Ignore(),
	"NumTasks":           Ignore(),
	"CPUs/Task":          Ignore(),
	"ReqB:S:C:T":         Ignore(),
	"Socks/Node":         Ignore(),
	"NtasksPerN:B:S:C":   Ignore(),
	"CoreSpec":           Ignore(),
	"MinCPUsNode":        Ignore(),
	"MinMemoryNode":      Ignore(),
	"MinMemoryCPU":       Ignore(),
	"MinTmpDiskNode":     Ignore(),
	"Features":           Ignore(),
	"DelayBoot":          Ignore(),
	"OverSubscribe":      Ignore(),
	"Contiguous":         Ignore(),
	"Licenses":           Ignore(),
	"Network":            Ignore(),
	"StdIn":              Ignore(),
	"Power":              Ignore(),
	"MailUser":           Ignore(),
	"MailType":           Ignore(),
	"CpusPerTres":        Ignore(),
	"MemPerTres":         Ignore(),
	"TresPerJob":         Ignore(),
	"TresPerNode":        Ignore(),
	"TresPerSocket":      Ignore(),
	"TresPerTask":        Ignore(),
	"Switches":           Ignore(),
	"Profile":            Ignore(),
	"PreemptEligibleTime": Ignore(),
	"PreemptTime":        Ignore(),
	"FedOrigin":          Ignore(),
	"FedViableSiblings":  Ignore(),
	"FedActiveSiblings":  Ignore(),
}

// MT: Constant after initialization
var scontrolNodeFields = FieldMap{
	"NodeName":   RenameStringify("name"),
	"State":      Rename("state"),
	"CPUTot":     Rename("cpus"),
	"CPUAlloc":   Rename("alloc_cpus"),
	"RealMemory": Rename("memory"),
	"Gres":       Rename("gres"),
	"GresUsed":   Rename("gres_used"),

	"Arch":              Ignore(),
	"CoresPerSocket":    Ignore(),
	"CPUEfctv":          Ignore(),
	"CPULoad":           Ignore(),
	"AvailableFeatures": Ignore(),
	"ActiveFeatures":    Ignore(),
	"GresDrain":         Ignore(),
	"NodeAddr":          Ignore(),
	"NodeHostName":      Ignore(),
	"Port":              Ignore(),
	"Version":           Ignore(),
	"OS":                Ignore(),
	"AllocMem":          Ignore(),
	"FreeMem":           Ignore(),
	"Sockets":           Ignore(),
	"Boards":            Ignore(),
	"ThreadsPerCore":    Ignore(),
	"TmpDisk":           Ignore(),
	"Weight":            Ignore(),
	"Owner":             Ignore(),
	"MCS_label":         Ignore(),
	"Partitions":        Ignore(),
	"BootTime":          Ignore(),
	"SlurmdStartTime":   Ignore(),
	"LastBusyTime":      Ignore(),
	"ResumeAfterTime":   Ignore(),
	"CfgTRES":           Ignore(),
	"AllocTRES":         Ignore(),
	"CapWatts":          Ignore(),
	"CurrentWatts":      Ignore(),
	"AveWatts":          Ignore(),
	"ExtSensorsJoules":  Ignore(),
	"ExtSensorsWatts":   Ignore(),
	"ExtSensorsTemp":    Ignore(),
	"Reason":            Ignore(),
	"Comment":           Ignore(),
}

// MT: Constant after initialization
var scontrolResvFields = FieldMap{
	"ReservationName": RenameStringify("reservation_name"),
	"StartTime":       TimestampTZ("start_time"),
	"EndTime":         TimestampTZ("end_time"),
	"Nodes":           Rename("nodes"),

	"Duration":      Ignore(),
	"NodeCnt":       Ignore(),
	"CoreCnt":       Ignore(),
	"Features":      Ignore(),
	"PartitionName": Ignore(),
	"Flags":         Ignore(),
	"TRES":          Ignore(),
	"Users":         Ignore(),
	"Groups":        Ignore(),
	"Accounts":      Ignore(),
	"Licenses":      Ignore(),
	"State":         Ignore(),
	"BurstBuffer":   Ignore(),
	"Watts":         Ignore(),
	"MaxStartDelay": Ignore(),
}

// Keys here are the flattened member paths produced by flattenSacctJob.
//
// MT: Constant after initialization
var sacctJSONFields = FieldMap{
	"job_id":            RenameStringify("job_id"),
	"array.job_id":      RenameStringify("array_job_id"),
	"array.task_id":     RenameStringify("array_task_id"),
	"name":              Rename("name"),
	"user":              Rename("username"),
	"account":           Rename("account"),
	"state.current":     Rename("job_state"),
	"partition":         Rename("partition"),
	"time.limit":        TimeLimit("time_limit"),
	"time.submission":   ZeroIsNull("submit_time"),
	"time.start":        ZeroIsNull("start_time"),
	"time.end":          ZeroIsNull("end_time"),
	"nodes":             Rename("nodes"),
	"working_directory": Rename("work_dir"),
	"exit_code":         JoinSubitems("exit_code", ":"),
	"comment.job":       Rename("comment"),
	"tres.requested":    ExtractTRES("tres_req"),
	"tres.allocated":    ExtractTRES("tres_alloc"),
}

// MT: Constant after initialization
var scontrolJobJSONFields = FieldMap{
	"job_id":                    RenameStringify("job_id"),
	"array_job_id":              RenameStringify("array_job_id"),
	"array_task_id":             RenameStringify("array_task_id"),
	"name":                      Rename("name"),
	"user_name":                 Rename("username"),
	"account":                   Rename("account"),
	"job_state":                 Rename("job_state"),
	"partition":                 Rename("partition"),
	"time_limit":                TimeLimit("time_limit"),
	"submit_time":               ZeroIsNull("submit_time"),
	"start_time":                ZeroIsNull("start_time"),
	"end_time":                  ZeroIsNull("end_time"),
	"nodes":                     Rename("nodes"),
	"current_working_directory": Rename("work_dir"),
	"command":                   Rename("command"),
	"standard_output":           Rename("stdout_file"),
	"standard_error":            Rename("stderr_file"),
	"exit_code":                 JoinSubitems("exit_code", ":"),
	"comment":                   Rename("comment"),
	"tres_req_str":              ExtractTRES("tres_req"),
	"tres_alloc_str":            ExtractTRES("tres_alloc"),
}

// MT: Constant after initialization
var scontrolNodeJSONFields = FieldMap{
	"name":        RenameStringify("name"),
	"state":       Rename("state"),
	"cpus":        Rename("cpus"),
	"alloc_cpus":  Rename("alloc_cpus"),
	"real_memory": Rename("memory"),
	"gres":        Rename("gres"),
	"gres_used":   Rename("gres_used"),
}

// MT: Constant after initialization
var sinfoJSONFields = FieldMap{
	"node":           RenameStringify("name"),
	"state":          Rename("state"),
	"cpus.total":     Rename("cpus"),
	"cpus.allocated": Rename("alloc_cpus"),
	"memory.maximum": Rename("memory"),
	"gres.total":     Rename("gres"),
	"gres.used":      Rename("gres_used"),
}
