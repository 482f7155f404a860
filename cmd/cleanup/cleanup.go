// The `cleanup` verb: bounded retention over the job collection, evicting oldest-first beyond
// the newest n, overall or per identity owner.

package cleanup

import (
	"context"
	"flag"
	"fmt"

	"slurmsync/common"
	"slurmsync/store"
)

func Cleanup(progname string, args []string) error {
	var (
		databaseURI  string
		databaseName string
		keep         int
		perUser      bool
		archivePath  string
		debug        bool
	)
	opts := flag.NewFlagSet(progname+" cleanup", flag.ContinueOnError)
	opts.StringVar(&databaseURI, "database-uri", "", "MongoDB connection `uri` (required)")
	opts.StringVar(&databaseName, "database", "", "Database `name` (required)")
	opts.IntVar(&keep, "n", 0, "Keep the `n` most recently observed jobs (required)")
	opts.BoolVar(&perUser, "per-user", false, "Apply -n per identity owner instead of overall")
	opts.StringVar(&archivePath, "archive-path", "", "Dump the evicted records to this JSON `filename` first")
	opts.BoolVar(&debug, "debug", false, "Print the store inventory before and after")
	if err := common.ParseFlags(opts, args); err != nil {
		return err
	}
	common.ApplyDefault(&databaseURI, common.DefaultDatabaseURI)
	common.ApplyDefault(&databaseName, common.DefaultDatabase)
	if databaseURI == "" || databaseName == "" {
		return common.BadUsage("-database-uri and -database are required")
	}
	if keep <= 0 {
		return common.BadUsage("-n is required and must be positive")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, databaseURI, databaseName)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if debug {
		printJobCount(ctx, db, "before")
	}
	evicted, err := db.Retain(ctx, keep, perUser, archivePath)
	if err != nil {
		return err
	}
	if debug {
		printJobCount(ctx, db, "after")
	}
	fmt.Printf("Evicted %d jobs\n", evicted)
	return nil
}

func printJobCount(ctx context.Context, db *store.Store, when string) {
	jobs, err := db.CountJobs(ctx)
	if err != nil {
		common.Log.Errorf("While counting jobs: %s", err.Error())
		return
	}
	fmt.Printf("Inventory %s: %d jobs\n", when, jobs)
}
