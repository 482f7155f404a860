package store

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"slurmsync/slurm"
)

func findKey(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestJobFilter(t *testing.T) {
	f := JobFilter("135", "fir")
	if v, _ := findKey(f, "observed.job_id"); v != "135" {
		t.Errorf("Bad job_id in filter: %v", v)
	}
	if v, _ := findKey(f, "observed.cluster_name"); v != "fir" {
		t.Errorf("Bad cluster_name in filter: %v", v)
	}
	if len(f) != 2 {
		t.Errorf("Filter must name exactly the natural key, got %v", f)
	}
}

func TestNodeFilter(t *testing.T) {
	f := NodeFilter("cn001", "fir")
	if v, _ := findKey(f, "observed.name"); v != "cn001" {
		t.Errorf("Bad name in filter: %v", v)
	}
	if v, _ := findKey(f, "observed.cluster_name"); v != "fir" {
		t.Errorf("Bad cluster_name in filter: %v", v)
	}
}

func TestUpsertUpdateShape(t *testing.T) {
	observed := map[string]any{"job_id": "135"}
	u := upsertUpdate(observed, slurm.SourceSacct, 1700000000)

	setAny, found := findKey(u, "$set")
	if !found {
		t.Fatal("Update has no $set")
	}
	set := setAny.(bson.D)
	if v, found := findKey(set, "observed"); !found {
		t.Errorf("$set must overwrite observed, got %v", set)
	} else if m, ok := v.(map[string]any); !ok || m["job_id"] != "135" {
		t.Errorf("Bad observed value %v", v)
	}
	if v, _ := findKey(set, "lastObservedAt"); v != int64(1700000000) {
		t.Errorf("Bad lastObservedAt %v", v)
	}
	if v, _ := findKey(set, "lastObservedBy.sacct"); v != int64(1700000000) {
		t.Errorf("Bad per-source stamp %v", v)
	}

	// Annotations are user property; a routine update must never name them under $set.
	for _, e := range set {
		if strings.Contains(e.Key, "annotations") {
			t.Errorf("$set must not touch annotations: %v", e)
		}
	}

	insAny, found := findKey(u, "$setOnInsert")
	if !found {
		t.Fatal("Update has no $setOnInsert")
	}
	ins := insAny.(bson.D)
	v, found := findKey(ins, "annotations")
	if !found {
		t.Fatal("$setOnInsert must seed annotations")
	}
	if d, ok := v.(bson.D); !ok || len(d) != 0 {
		t.Errorf("Annotations must be seeded explicitly empty, got %v", v)
	}
}

func TestUpsertUpdatePerSourceStamps(t *testing.T) {
	u1 := upsertUpdate(nil, slurm.SourceScontrolJob, 1)
	u2 := upsertUpdate(nil, slurm.SourceSacct, 2)
	s1, _ := findKey(u1, "$set")
	s2, _ := findKey(u2, "$set")
	if _, found := findKey(s1.(bson.D), "lastObservedBy.scontrol_job"); !found {
		t.Errorf("Expected a scontrol_job stamp: %v", s1)
	}
	if _, found := findKey(s2.(bson.D), "lastObservedBy.sacct"); !found {
		t.Errorf("Expected a sacct stamp: %v", s2)
	}
}

func TestAccountMatchUpdate(t *testing.T) {
	filter, update := accountMatchUpdate("abc123", "jdoe")
	if v, _ := findKey(filter, "account_matching_key"); v != "abc123" {
		t.Errorf("Bad filter %v", filter)
	}
	setAny, _ := findKey(update, "$set")
	if v, _ := findKey(setAny.(bson.D), "cc_account_username"); v != "jdoe" {
		t.Errorf("Bad $set %v", setAny)
	}
	unsetAny, found := findKey(update, "$unset")
	if !found {
		t.Fatal("The key must be invalidated in the same update")
	}
	if _, found := findKey(unsetAny.(bson.D), "account_matching_key"); !found {
		t.Errorf("Bad $unset %v", unsetAny)
	}
	if _, found := findKey(update, "$setOnInsert"); found {
		t.Errorf("Account matching must not insert users")
	}
}
