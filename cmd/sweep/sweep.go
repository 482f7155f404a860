// The `sweep` verb: remove (optionally archiving) records not observed within the retention
// window.

package sweep

import (
	"context"
	"flag"
	"fmt"
	"time"

	"slurmsync/common"
	"slurmsync/store"
)

func Sweep(progname string, args []string) error {
	var (
		databaseURI  string
		databaseName string
		days         float64
		cutoffStr    string
		archivePath  string
		debug        bool
	)
	opts := flag.NewFlagSet(progname+" sweep", flag.ContinueOnError)
	opts.StringVar(&databaseURI, "database-uri", "", "MongoDB connection `uri` (required)")
	opts.StringVar(&databaseName, "database", "", "Database `name` (required)")
	opts.Float64Var(&days, "days-since-last-update", 0, "Remove records last observed more than `days` ago")
	opts.StringVar(&cutoffStr, "d", "", "Remove records last observed before `date` (yyyy-mm-dd or yyyy-mm-dd-hh:mm:ss)")
	opts.StringVar(&archivePath, "archive-path", "", "Dump the removed records to this JSON `filename` first")
	opts.BoolVar(&debug, "debug", false, "Print the store inventory before and after")
	if err := common.ParseFlags(opts, args); err != nil {
		return err
	}
	common.ApplyDefault(&databaseURI, common.DefaultDatabaseURI)
	common.ApplyDefault(&databaseName, common.DefaultDatabase)
	if databaseURI == "" || databaseName == "" {
		return common.BadUsage("-database-uri and -database are required")
	}

	var cutoff int64
	switch {
	case days > 0 && cutoffStr != "":
		return common.BadUsage("-days-since-last-update and -d are mutually exclusive")
	case days > 0:
		cutoff = time.Now().Add(-time.Duration(days * 24 * float64(time.Hour))).Unix()
	case cutoffStr != "":
		t, err := common.ParseCutoff(cutoffStr)
		if err != nil {
			return common.BadUsage("%s", err.Error())
		}
		cutoff = t.Unix()
	default:
		return common.BadUsage("One of -days-since-last-update or -d is required")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, databaseURI, databaseName)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if debug {
		printInventory(ctx, db, "before")
	}
	result, err := db.Sweep(ctx, cutoff, archivePath)
	if err != nil {
		return err
	}
	if debug {
		printInventory(ctx, db, "after")
	}
	fmt.Printf("Swept %d jobs and %d nodes last observed before %s\n",
		result.Jobs, result.Nodes, time.Unix(cutoff, 0).Format(time.RFC3339))
	return nil
}

func printInventory(ctx context.Context, db *store.Store, when string) {
	jobs, err := db.CountJobs(ctx)
	if err != nil {
		common.Log.Errorf("While counting jobs: %s", err.Error())
		return
	}
	nodes, err := db.CountNodes(ctx)
	if err != nil {
		common.Log.Errorf("While counting nodes: %s", err.Error())
		return
	}
	fmt.Printf("Inventory %s: %d jobs, %d nodes\n", when, jobs, nodes)
}
