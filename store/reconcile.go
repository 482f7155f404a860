// The reconciliation engine: merge freshly observed records into the store with idempotent,
// field-scoped upserts.  Concurrent passes over the same cluster are safe because every write is
// an upsert scoped to `observed` + the observation stamps, keyed by the natural key.

package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slurmsync/cfg"
	"slurmsync/infer"
	"slurmsync/slurm"
)

// One record's failure inside a bulk write, identified by its natural key.
type WriteError struct {
	Key string
	Err error
}

type BulkResult struct {
	Records  int
	Upserted int
	Errors   []WriteError
}

// JobFilter is the natural-key filter for a job document.
func JobFilter(jobID, clusterName string) bson.D {
	return bson.D{
		{Key: "observed.job_id", Value: jobID},
		{Key: "observed.cluster_name", Value: clusterName},
	}
}

func NodeFilter(name, clusterName string) bson.D {
	return bson.D{
		{Key: "observed.name", Value: name},
		{Key: "observed.cluster_name", Value: clusterName},
	}
}

// upsertUpdate builds the update document shared by job and node reconciliation:
//   - `observed` is always overwritten (a Slurm state is a snapshot of now, most recent wins),
//   - `lastObservedAt` is always overwritten, and the per-source stamp alongside it so staleness
//     logic can tell the full scan and the delta fetch apart,
//   - `annotations` is set only on insert, to the explicitly empty document, and is otherwise
//     not named by the update at all.
func upsertUpdate(observed any, source slurm.Source, now int64) bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "observed", Value: observed},
			{Key: "lastObservedAt", Value: now},
			{Key: "lastObservedBy." + string(source), Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "annotations", Value: bson.D{}},
		}},
	}
}

// The account-registration side channel: a job comment carrying a one-time key, observed on a
// cluster foreign to the organization, binds the key's owner to the externally observed account
// username and invalidates the key in one atomic update.  Not an upsert: an unknown key matches
// nothing and that is the correct outcome.
func accountMatchUpdate(key, username string) (bson.D, bson.D) {
	filter := bson.D{{Key: "account_matching_key", Value: key}}
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "cc_account_username", Value: username}}},
		{Key: "$unset", Value: bson.D{{Key: "account_matching_key", Value: ""}}},
	}
	return filter, update
}

// ReconcileJobs submits one unordered bulk write for the batch; a malformed record does not block
// the rest, and every failure is surfaced with its natural key.  The returned error is reserved
// for total failures (no write attempted).
func (s *Store) ReconcileJobs(
	ctx context.Context,
	desc *cfg.ClusterDescriptor,
	jobs []*infer.ObservedJob,
	source slurm.Source,
	now int64,
) (*BulkResult, error) {
	models := make([]mongo.WriteModel, 0, len(jobs))
	keys := make([]string, 0, len(jobs))
	userModels := make([]mongo.WriteModel, 0)

	for _, job := range jobs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(JobFilter(job.JobID, job.ClusterName)).
			SetUpdate(upsertUpdate(job, source, now)).
			SetUpsert(true))
		keys = append(keys, job.JobID+"@"+job.ClusterName)

		if key, ok := infer.RegistrationKey(job.Comment); ok && !desc.IsOrgCluster() &&
			job.CCAccountUsername != infer.UnknownUser {
			filter, update := accountMatchUpdate(key, job.CCAccountUsername)
			userModels = append(userModels, mongo.NewUpdateOneModel().
				SetFilter(filter).SetUpdate(update))
		}
	}

	result, err := s.bulkWrite(ctx, s.Jobs, models, keys)
	if err != nil {
		return nil, err
	}
	if len(userModels) > 0 {
		if _, err := s.Users.BulkWrite(ctx, userModels,
			options.BulkWrite().SetOrdered(false)); err != nil {
			result.Errors = append(result.Errors,
				WriteError{Key: "account-matching", Err: err})
		}
	}
	return result, nil
}

func (s *Store) ReconcileNodes(
	ctx context.Context,
	nodes []*infer.ObservedNode,
	source slurm.Source,
	now int64,
) (*BulkResult, error) {
	models := make([]mongo.WriteModel, 0, len(nodes))
	keys := make([]string, 0, len(nodes))
	for _, node := range nodes {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(NodeFilter(node.Name, node.ClusterName)).
			SetUpdate(upsertUpdate(node, source, now)).
			SetUpsert(true))
		keys = append(keys, node.Name+"@"+node.ClusterName)
	}
	return s.bulkWrite(ctx, s.Nodes, models, keys)
}

func (s *Store) bulkWrite(
	ctx context.Context,
	coll *mongo.Collection,
	models []mongo.WriteModel,
	keys []string,
) (*BulkResult, error) {
	result := &BulkResult{Records: len(models)}
	if len(models) == 0 {
		return result, nil
	}
	br, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) {
			return nil, fmt.Errorf("Bulk write to %s failed: %w", coll.Name(), err)
		}
		for _, we := range bwe.WriteErrors {
			key := "?"
			if we.Index >= 0 && we.Index < len(keys) {
				key = keys[we.Index]
			}
			result.Errors = append(result.Errors, WriteError{Key: key, Err: we})
		}
	}
	if br != nil {
		result.Upserted = int(br.UpsertedCount)
	}
	return result, nil
}
