package store

import (
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func retainJob(owner string, at int64) *PersistedJob {
	observed := map[string]any{
		"job_id":       fmt.Sprintf("%d", at),
		"cluster_name": "fir",
	}
	if owner != "" {
		observed["cc_account_username"] = owner
	}
	return &PersistedJob{Observed: observed, LastObservedAt: at}
}

func evictedStamps(evict []*PersistedJob) []int64 {
	stamps := make([]int64, len(evict))
	for i, job := range evict {
		stamps[i] = job.LastObservedAt
	}
	return stamps
}

func TestSelectEvictionsOverall(t *testing.T) {
	jobs := []*PersistedJob{
		retainJob("alice", 1),
		retainJob("bob", 2),
		retainJob("alice", 3),
		retainJob("carol", 4),
		retainJob("bob", 5),
	}
	tests := []struct {
		n    int
		want []int64
	}{
		{3, []int64{1, 2}},
		{4, []int64{1}},
		{5, nil},
		{6, nil},
	}
	for _, test := range tests {
		got := evictedStamps(selectEvictions(jobs, test.n, false))
		if len(got) != len(test.want) {
			t.Errorf("n=%d: expected %v evicted, got %v", test.n, test.want, got)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("n=%d: expected %v evicted, got %v", test.n, test.want, got)
				break
			}
		}
	}
}

func TestSelectEvictionsPerUser(t *testing.T) {
	// Sorted by lastObservedAt ascending, as the store query delivers them.  The jobs with no
	// identity slot populated form their own "unknown" retention group.
	jobs := []*PersistedJob{
		retainJob("", 5),
		retainJob("alice", 10),
		retainJob("bob", 15),
		retainJob("alice", 20),
		retainJob("", 25),
		retainJob("alice", 30),
		retainJob("", 35),
	}
	evict := selectEvictions(jobs, 2, true)
	got := evictedStamps(evict)
	// alice has 3 (evict 10), bob has 1 (keep all), unknown has 3 (evict 5); oldest first.
	if len(got) != 2 || got[0] != 5 || got[1] != 10 {
		t.Fatalf("Expected [5 10] evicted, got %v", got)
	}
	if evict[1].Owner() != "alice" {
		t.Errorf("Expected alice's oldest evicted, got owner %q", evict[1].Owner())
	}
}

func TestSelectEvictionsPerUserKeepsSmallGroups(t *testing.T) {
	jobs := []*PersistedJob{
		retainJob("alice", 1),
		retainJob("bob", 2),
	}
	if got := selectEvictions(jobs, 1, true); len(got) != 0 {
		t.Errorf("Expected nothing evicted, got %v", evictedStamps(got))
	}
}

func TestStalenessFilterBoundary(t *testing.T) {
	// The predicate is strict: a record last observed exactly at the cutoff must survive.
	f := stalenessFilter(1700000000)
	v, found := findKey(f, "lastObservedAt")
	if !found {
		t.Fatalf("Filter does not constrain lastObservedAt: %v", f)
	}
	cond, ok := v.(bson.D)
	if !ok || len(cond) != 1 {
		t.Fatalf("Bad staleness condition %v", v)
	}
	if cond[0].Key != "$lt" {
		t.Errorf("Expected a strict $lt comparison, got %q", cond[0].Key)
	}
	if cond[0].Value != int64(1700000000) {
		t.Errorf("Bad cutoff value %v", cond[0].Value)
	}
}
