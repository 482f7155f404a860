package slurm

import (
	"testing"
	"time"
)

func TestParseTimeLimit(t *testing.T) {
	tests := []struct {
		input any
		want  int64
	}{
		{"7-00:00:00", 7 * 24 * 3600},
		{"1-02:03:04", 24*3600 + 2*3600 + 3*60 + 4},
		{"02:30:00", 2*3600 + 30*60},
		{"30:00", 30 * 60},
		{"45", 45 * 60},
		{"UNLIMITED", 0},
		{"Partition_Limit", 0},
		{"", 0},
		{int64(90), 90 * 60},   // JSON reports carry minutes
		{float64(15), 15 * 60},
	}
	for _, test := range tests {
		got, err := parseTimeLimit(test.input)
		if err != nil {
			t.Fatalf("parseTimeLimit(%v): %v", test.input, err)
		}
		if got != test.want {
			t.Errorf("parseTimeLimit(%v): expected %d, got %d", test.input, test.want, got)
		}
	}
	if _, err := parseTimeLimit("1:2:3:4"); err == nil {
		t.Errorf("Expected an error for a four-part limit")
	}
	if _, err := parseTimeLimit("abc"); err == nil {
		t.Errorf("Expected an error for a non-numeric limit")
	}
}

func TestZeroIsNull(t *testing.T) {
	out := make(RawRecord)
	if err := ZeroIsNull("end_time").apply("end", int64(0), time.UTC, out); err != nil {
		t.Fatal(err)
	}
	v, present := out["end_time"]
	if !present || v != nil {
		t.Errorf("Expected explicit null for zero, got %v (present=%v)", v, present)
	}
	if err := ZeroIsNull("end_time").apply("end", int64(1700000000), time.UTC, out); err != nil {
		t.Fatal(err)
	}
	if out["end_time"] != int64(1700000000) {
		t.Errorf("Expected epoch value, got %v", out["end_time"])
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	// A timestamp string parsed with a cluster zone and rendered back with the same zone must
	// recover the original wall-clock string, for every zone we operate in.
	zones := []string{"America/Montreal", "America/Vancouver", "Europe/Paris", "UTC"}
	stamps := []string{"2023-11-26T22:06:22", "2024-07-01T03:00:00", "2024-02-29T23:59:59"}
	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			t.Fatal(err)
		}
		for _, stamp := range stamps {
			epoch, err := parseTimestamp(stamp, loc)
			if err != nil {
				t.Fatal(err)
			}
			if back := FormatTimestamp(epoch, loc); back != stamp {
				t.Errorf("Round trip in %s: expected %s, got %s", zone, stamp, back)
			}
		}
	}
}

func TestRenameStringifyPreservesText(t *testing.T) {
	out := make(RawRecord)
	if err := RenameStringify("job_id").apply("JobId", "007", time.UTC, out); err != nil {
		t.Fatal(err)
	}
	if out["job_id"] != "007" {
		t.Errorf("Expected leading zeros preserved, got %v", out["job_id"])
	}
	if err := RenameStringify("job_id").apply("job_id", int64(135), time.UTC, out); err != nil {
		t.Fatal(err)
	}
	if out["job_id"] != "135" {
		t.Errorf("Expected stringified number, got %v", out["job_id"])
	}
}

func TestJoinSubitems(t *testing.T) {
	out := make(RawRecord)
	if err := JoinSubitems("exit_code", ":").apply("exit_code", []any{"SUCCESS", int64(0)}, time.UTC, out); err != nil {
		t.Fatal(err)
	}
	if out["exit_code"] != "SUCCESS:0" {
		t.Errorf("Expected SUCCESS:0, got %v", out["exit_code"])
	}
	// Block format delivers the pair pre-joined.
	if err := JoinSubitems("exit_code", ":").apply("ExitCode", "0:0", time.UTC, out); err != nil {
		t.Fatal(err)
	}
	if out["exit_code"] != "0:0" {
		t.Errorf("Expected 0:0, got %v", out["exit_code"])
	}
}

func TestCanonicalTRES(t *testing.T) {
	got := canonicalTRES("cpu=4,mem=16G,node=1,billing=4,gres/gpu=2")
	if got != "cpu=4 mem=16G node=1 gpu=2" {
		t.Errorf("Unexpected TRES canonicalization %q", got)
	}
	if canonicalTRES("") != "" {
		t.Errorf("Expected empty TRES to stay empty")
	}
}
