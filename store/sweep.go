// Staleness and retention sweeps.  Both run directly against the store, independently of the
// ingestion passes; both archive before deleting and delete by natural key, never by range, so
// the archived set and the deleted set can be compared record for record.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slurmsync/common"
)

type SweepResult struct {
	Jobs  int
	Nodes int
}

type archiveFile struct {
	Jobs  []*PersistedJob  `json:"jobs"`
	Nodes []*PersistedNode `json:"nodes"`
}

// Sweep removes every job and node document whose lastObservedAt is strictly older than cutoff.
// If archivePath is nonempty the matched set is serialized there, completely, before any deletion
// begins.  Each point delete re-verifies staleness, so a record refreshed by a concurrent
// ingestion pass between scan and delete survives; the archive may then contain records that
// survived, which is the harmless direction of that race.
func (s *Store) Sweep(ctx context.Context, cutoff int64, archivePath string) (SweepResult, error) {
	var result SweepResult
	staleness := stalenessFilter(cutoff)

	var jobs []*PersistedJob
	cur, err := s.Jobs.Find(ctx, staleness)
	if err != nil {
		return result, fmt.Errorf("While scanning stale jobs: %w", err)
	}
	if err := cur.All(ctx, &jobs); err != nil {
		return result, fmt.Errorf("While scanning stale jobs: %w", err)
	}

	var nodes []*PersistedNode
	cur, err = s.Nodes.Find(ctx, staleness)
	if err != nil {
		return result, fmt.Errorf("While scanning stale nodes: %w", err)
	}
	if err := cur.All(ctx, &nodes); err != nil {
		return result, fmt.Errorf("While scanning stale nodes: %w", err)
	}

	if archivePath != "" {
		if err := writeArchive(archivePath, &archiveFile{Jobs: jobs, Nodes: nodes}); err != nil {
			return result, err
		}
	}

	for _, job := range jobs {
		filter := append(JobFilter(job.JobID(), job.ClusterName()), staleness...)
		dr, err := s.Jobs.DeleteOne(ctx, filter)
		if err != nil {
			return result, fmt.Errorf("While deleting job %s@%s: %w", job.JobID(), job.ClusterName(), err)
		}
		result.Jobs += int(dr.DeletedCount)
	}
	for _, node := range nodes {
		filter := append(NodeFilter(node.Name(), node.ClusterName()), staleness...)
		dr, err := s.Nodes.DeleteOne(ctx, filter)
		if err != nil {
			return result, fmt.Errorf("While deleting node %s@%s: %w", node.Name(), node.ClusterName(), err)
		}
		result.Nodes += int(dr.DeletedCount)
	}
	return result, nil
}

// Strictly older than the cutoff; a record observed exactly at the cutoff instant survives.
func stalenessFilter(cutoff int64) bson.D {
	return bson.D{{Key: "lastObservedAt", Value: bson.D{{Key: "$lt", Value: cutoff}}}}
}

// selectEvictions picks the jobs to evict so that the n most recently observed survive, overall
// or per identity owner.  jobs must be sorted by lastObservedAt ascending; the result is oldest
// first.
func selectEvictions(jobs []*PersistedJob, n int, perUser bool) []*PersistedJob {
	var evict []*PersistedJob
	if perUser {
		byOwner := make(map[string][]*PersistedJob)
		for _, job := range jobs {
			byOwner[job.Owner()] = append(byOwner[job.Owner()], job)
		}
		for _, owned := range byOwner {
			if len(owned) > n {
				evict = append(evict, owned[:len(owned)-n]...)
			}
		}
		// Keep the global eviction order deterministic, oldest first.
		sort.Slice(evict, func(i, j int) bool {
			return evict[i].LastObservedAt < evict[j].LastObservedAt
		})
	} else if len(jobs) > n {
		evict = jobs[:len(jobs)-n]
	}
	return evict
}

// Retain keeps the n most recently observed jobs, overall or per identity owner, evicting the
// rest oldest-first and cascading to the per-user annotation records of evicted jobs.
func (s *Store) Retain(ctx context.Context, n int, perUser bool, archivePath string) (int, error) {
	var jobs []*PersistedJob
	opts := options.Find().SetSort(bson.D{{Key: "lastObservedAt", Value: 1}})
	cur, err := s.Jobs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return 0, fmt.Errorf("While scanning jobs: %w", err)
	}
	if err := cur.All(ctx, &jobs); err != nil {
		return 0, fmt.Errorf("While scanning jobs: %w", err)
	}

	evict := selectEvictions(jobs, n, perUser)
	if len(evict) == 0 {
		return 0, nil
	}

	if archivePath != "" {
		if err := writeArchive(archivePath, &archiveFile{Jobs: evict, Nodes: []*PersistedNode{}}); err != nil {
			return 0, err
		}
	}

	deleted := 0
	for _, job := range evict {
		dr, err := s.Jobs.DeleteOne(ctx, JobFilter(job.JobID(), job.ClusterName()))
		if err != nil {
			return deleted, fmt.Errorf("While deleting job %s@%s: %w", job.JobID(), job.ClusterName(), err)
		}
		deleted += int(dr.DeletedCount)
		_, err = s.Props.DeleteMany(ctx, bson.D{
			{Key: "job_id", Value: job.JobID()},
			{Key: "cluster_name", Value: job.ClusterName()},
		})
		if err != nil {
			common.Log.Errorf("While deleting props of job %s@%s: %s",
				job.JobID(), job.ClusterName(), err.Error())
		}
	}
	return deleted, nil
}

func (s *Store) CountJobs(ctx context.Context) (int64, error) {
	return s.Jobs.CountDocuments(ctx, bson.D{})
}

func (s *Store) CountNodes(ctx context.Context) (int64, error) {
	return s.Nodes.CountDocuments(ctx, bson.D{})
}

// The archive is written completely (write to temp, fsync, rename) before deletion starts, so an
// interrupted sweep never leaves a partial archive next to missing records.
func writeArchive(path string, contents *archiveFile) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("While serializing archive: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".archive-*")
	if err != nil {
		return fmt.Errorf("While creating archive: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("While writing archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("While writing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("While writing archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("While writing archive: %w", err)
	}
	return nil
}
