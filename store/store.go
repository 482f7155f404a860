// Persistent store access.
//
// Documents have three disjoint substructures: `observed` (ours, fully overwritten on every
// reconciliation), `annotations` (user-owned, initialized empty at creation and never written
// again by this pipeline), and `lastObservedAt` (always overwritten).  Everything in this package
// is written to preserve that split by construction: updates name the paths they own, there is no
// whole-document replace anywhere.

package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store is constructed once per process and passed to every component that needs it; there is no
// global client.
type Store struct {
	client *mongo.Client
	Jobs   *mongo.Collection
	Nodes  *mongo.Collection
	Users  *mongo.Collection
	// Per-user annotation records attached to jobs by the web layer; this pipeline only ever
	// cascade-deletes them when their owning job is evicted.
	Props *mongo.Collection
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("Unable to reach database: %w", err)
	}
	db := client.Database(database)
	return &Store{
		client: client,
		Jobs:   db.Collection("jobs"),
		Nodes:  db.Collection("nodes"),
		Users:  db.Collection("users"),
		Props:  db.Collection("job_user_props"),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// The stored document shapes as read back for sweeps and archives.  `observed` is decoded as a
// free map so the archived values are exactly the stored values, whatever pipeline version wrote
// them.

type PersistedJob struct {
	Observed       map[string]any `bson:"observed" json:"observed"`
	Annotations    map[string]any `bson:"annotations" json:"annotations"`
	LastObservedAt int64          `bson:"lastObservedAt" json:"lastObservedAt"`
}

func (j *PersistedJob) JobID() string       { return stringField(j.Observed, "job_id") }
func (j *PersistedJob) ClusterName() string { return stringField(j.Observed, "cluster_name") }

// Owner returns the populated identity slot, or "unknown".
func (j *PersistedJob) Owner() string {
	for _, k := range []string{"mila_cluster_username", "cc_account_username", "mila_email_username"} {
		if u := stringField(j.Observed, k); u != "" && u != "unknown" {
			return u
		}
	}
	return "unknown"
}

type PersistedNode struct {
	Observed       map[string]any `bson:"observed" json:"observed"`
	Annotations    map[string]any `bson:"annotations" json:"annotations"`
	LastObservedAt int64          `bson:"lastObservedAt" json:"lastObservedAt"`
}

func (n *PersistedNode) Name() string        { return stringField(n.Observed, "name") }
func (n *PersistedNode) ClusterName() string { return stringField(n.Observed, "cluster_name") }

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
