// The `sync` verb: one full ingestion pass over the configured clusters.
//
// Clusters are independent batch jobs: each gets its own goroutine, its own wall-clock budget and
// its own failure flag, and nothing is shared between them but the store, which is safe under
// concurrent idempotent upserts.  Within one cluster the stages run strictly in sequence; the
// block and JSON formats need the complete command output before parsing can start.

package sync

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"slurmsync/cfg"
	"slurmsync/common"
	"slurmsync/infer"
	"slurmsync/slurm"
	"slurmsync/sshrun"
	"slurmsync/store"
)

type options struct {
	configFile   string
	databaseURI  string
	databaseName string
	cluster      string
	jobs         bool
	nodes        bool
	sacct        bool
	timeout      time.Duration
	verbose      bool
}

func Sync(progname string, args []string) error {
	var o options
	opts := flag.NewFlagSet(progname+" sync", flag.ContinueOnError)
	opts.StringVar(&o.configFile, "config", "", "Cluster configuration `filename` (required)")
	opts.StringVar(&o.databaseURI, "database-uri", "", "MongoDB connection `uri` (required)")
	opts.StringVar(&o.databaseName, "database", "", "Database `name` (required)")
	opts.StringVar(&o.cluster, "cluster", "", "Poll only the named `cluster`")
	opts.BoolVar(&o.jobs, "jobs", false, "Ingest jobs (scontrol)")
	opts.BoolVar(&o.nodes, "nodes", false, "Ingest nodes and reservations (scontrol, sinfo)")
	opts.BoolVar(&o.sacct, "sacct", false, "Ingest accounting deltas (sacct)")
	opts.DurationVar(&o.timeout, "timeout", 10*time.Minute, "Wall-clock `budget` per cluster")
	opts.BoolVar(&o.verbose, "v", false, "Verbose logging")
	if err := common.ParseFlags(opts, args); err != nil {
		return err
	}
	common.ApplyDefault(&o.configFile, common.DefaultConfigFile)
	common.ApplyDefault(&o.databaseURI, common.DefaultDatabaseURI)
	common.ApplyDefault(&o.databaseName, common.DefaultDatabase)
	if o.configFile == "" || o.databaseURI == "" || o.databaseName == "" {
		return common.BadUsage("-config, -database-uri and -database are required")
	}
	if o.verbose {
		common.Log.SetLevel(common.LogLevelInfo)
	}
	if !o.jobs && !o.nodes && !o.sacct {
		o.jobs, o.nodes, o.sacct = true, true, true
	}

	clusters, err := cfg.Load(o.configFile)
	if err != nil {
		return err
	}
	if o.cluster != "" {
		desc, found := clusters[o.cluster]
		if !found {
			return fmt.Errorf("Unknown cluster %s", o.cluster)
		}
		clusters = map[string]*cfg.ClusterDescriptor{o.cluster: desc}
	}

	ctx := context.Background()
	db, err := store.Open(ctx, o.databaseURI, o.databaseName)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	// One goroutine per cluster; a cluster's failure must never cancel or roll back another's
	// work, so failures are only counted.
	var wg sync.WaitGroup
	var failedLock sync.Mutex
	failed := 0
	for _, desc := range clusters {
		wg.Add(1)
		go func(desc *cfg.ClusterDescriptor) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			if err := syncCluster(cctx, db, desc, &o); err != nil {
				common.Log.Errorf("Cluster %s: %s", desc.Name, err.Error())
				failedLock.Lock()
				failed++
				failedLock.Unlock()
			}
		}(desc)
	}
	wg.Wait()
	if failed > 0 {
		return fmt.Errorf("%d of %d clusters failed this poll", failed, len(clusters))
	}
	return nil
}

func syncCluster(ctx context.Context, db *store.Store, desc *cfg.ClusterDescriptor, o *options) error {
	runner := sshrun.New(desc)
	now := time.Now().Unix()

	major, err := probeVersion(ctx, runner, desc)
	if err != nil {
		return err
	}
	common.Log.Infof("Cluster %s runs Slurm major version %d", desc.Name, major)

	if o.jobs {
		if err := syncJobs(ctx, db, runner, desc, major, now); err != nil {
			return err
		}
	}
	if o.sacct {
		if err := syncSacct(ctx, db, runner, desc, now); err != nil {
			return err
		}
	}
	if o.nodes {
		if err := syncNodes(ctx, db, runner, desc, major, now); err != nil {
			return err
		}
	}
	return nil
}

func probeVersion(ctx context.Context, runner sshrun.Runner, desc *cfg.ClusterDescriptor) (int, error) {
	stdout, stderr, err := runner.Run(ctx, desc.ScontrolPath+" --version")
	if err != nil {
		logStderr(desc, "scontrol --version", stderr)
		return 0, err
	}
	return slurm.ParseVersionString(stdout)
}

func syncJobs(
	ctx context.Context,
	db *store.Store,
	runner sshrun.Runner,
	desc *cfg.ClusterDescriptor,
	major int,
	now int64,
) error {
	fields, err := slurm.FieldMapFor(slurm.SourceScontrolJob, major)
	if err != nil {
		return &slurm.ParseError{Source: slurm.SourceScontrolJob, Cluster: desc.Name, Err: err}
	}
	stdout, stderr, err := runner.Run(ctx, desc.ScontrolPath+" show job")
	if err != nil {
		logStderr(desc, "scontrol show job", stderr)
		return err
	}
	raw, err := slurm.NewBlockParser(slurm.SourceScontrolJob, desc.Name, fields, desc.Location).
		Parse(stdout)
	if err != nil {
		return err
	}
	jobs, err := inferAndFilterJobs(raw, desc)
	if err != nil {
		return err
	}
	result, err := db.ReconcileJobs(ctx, desc, jobs, slurm.SourceScontrolJob, now)
	if err != nil {
		return err
	}
	reportBulk(desc, "jobs", result)
	return nil
}

func syncSacct(
	ctx context.Context,
	db *store.Store,
	runner sshrun.Runner,
	desc *cfg.ClusterDescriptor,
	now int64,
) error {
	// The delta fetch: allocations that started or changed in the recent window.  The JSON
	// report carries its own version, no probe needed.
	command := desc.SacctPath + " --allocations --starttime=now-1days --json"
	stdout, stderr, err := runner.Run(ctx, command)
	if err != nil {
		logStderr(desc, "sacct", stderr)
		return err
	}
	raw, err := slurm.NewJSONParser(slurm.SourceSacct, desc.Name, desc.Location).
		Parse([]byte(stdout))
	if err != nil {
		return err
	}
	jobs, err := inferAndFilterJobs(raw, desc)
	if err != nil {
		return err
	}
	result, err := db.ReconcileJobs(ctx, desc, jobs, slurm.SourceSacct, now)
	if err != nil {
		return err
	}
	reportBulk(desc, "sacct jobs", result)
	return nil
}

func inferAndFilterJobs(raw []slurm.RawRecord, desc *cfg.ClusterDescriptor) ([]*infer.ObservedJob, error) {
	jobs := make([]*infer.ObservedJob, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		job, err := infer.JobFromRaw(r, desc)
		if err != nil {
			return nil, err
		}
		if !infer.Keep(job, desc) {
			dropped++
			continue
		}
		jobs = append(jobs, job)
	}
	if dropped > 0 {
		common.Log.Infof("Cluster %s: dropped %d jobs outside our allocations", desc.Name, dropped)
	}
	return jobs, nil
}

func syncNodes(
	ctx context.Context,
	db *store.Store,
	runner sshrun.Runner,
	desc *cfg.ClusterDescriptor,
	major int,
	now int64,
) error {
	resvFields, err := slurm.FieldMapFor(slurm.SourceScontrolResv, major)
	if err != nil {
		return &slurm.ParseError{Source: slurm.SourceScontrolResv, Cluster: desc.Name, Err: err}
	}
	stdout, stderr, err := runner.Run(ctx, desc.ScontrolPath+" show reservation")
	if err != nil {
		logStderr(desc, "scontrol show reservation", stderr)
		return err
	}
	rawResv, err := slurm.NewBlockParser(slurm.SourceScontrolResv, desc.Name, resvFields, desc.Location).
		Parse(stdout)
	if err != nil {
		return err
	}
	reservations, err := infer.ReservationsFromRaw(rawResv)
	if err != nil {
		return err
	}
	resvByNode := infer.ActiveReservations(reservations, now)

	nodeFields, err := slurm.FieldMapFor(slurm.SourceScontrolNode, major)
	if err != nil {
		return &slurm.ParseError{Source: slurm.SourceScontrolNode, Cluster: desc.Name, Err: err}
	}
	stdout, stderr, err = runner.Run(ctx, desc.ScontrolPath+" show node")
	if err != nil {
		logStderr(desc, "scontrol show node", stderr)
		return err
	}
	rawNodes, err := slurm.NewBlockParser(slurm.SourceScontrolNode, desc.Name, nodeFields, desc.Location).
		Parse(stdout)
	if err != nil {
		return err
	}
	nodes, err := inferNodes(rawNodes, desc, resvByNode)
	if err != nil {
		return err
	}
	result, err := db.ReconcileNodes(ctx, nodes, slurm.SourceScontrolNode, now)
	if err != nil {
		return err
	}
	reportBulk(desc, "nodes", result)

	// Where sinfo is configured it provides a second, newer-format view of the fleet (notably
	// gres_used); last write wins on `observed`, which is fine for snapshots.
	if desc.SinfoPath != "" {
		stdout, stderr, err = runner.Run(ctx, desc.SinfoPath+" --json")
		if err != nil {
			logStderr(desc, "sinfo", stderr)
			return err
		}
		rawNodes, err := slurm.NewJSONParser(slurm.SourceSinfo, desc.Name, desc.Location).
			Parse([]byte(stdout))
		if err != nil {
			return err
		}
		nodes, err := inferNodes(rawNodes, desc, resvByNode)
		if err != nil {
			return err
		}
		result, err := db.ReconcileNodes(ctx, nodes, slurm.SourceSinfo, now)
		if err != nil {
			return err
		}
		reportBulk(desc, "sinfo nodes", result)
	}
	return nil
}

func inferNodes(
	raw []slurm.RawRecord,
	desc *cfg.ClusterDescriptor,
	resvByNode map[string]string,
) ([]*infer.ObservedNode, error) {
	nodes := make([]*infer.ObservedNode, 0, len(raw))
	for _, r := range raw {
		node, err := infer.NodeFromRaw(r, desc, resvByNode)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func reportBulk(desc *cfg.ClusterDescriptor, what string, result *store.BulkResult) {
	common.Log.Infof("Cluster %s: reconciled %d %s, %d new",
		desc.Name, result.Records, what, result.Upserted)
	for _, we := range result.Errors {
		common.Log.Errorf("Cluster %s: write failed for %s: %s", desc.Name, we.Key, we.Err.Error())
	}
}

func logStderr(desc *cfg.ClusterDescriptor, command, stderr string) {
	if stderr != "" {
		common.Log.Errorf("Cluster %s: %s stderr: %s", desc.Name, command, stderr)
	}
}
