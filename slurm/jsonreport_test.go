package slurm

import (
	"errors"
	"testing"
	"time"
)

const sacctSample = `{
  "meta": {"slurm": {"version": {"major": 23, "micro": 7, "minor": 11}}},
  "jobs": [
    {
      "job_id": 135,
      "array": {"job_id": {"set": true, "number": 246}, "task_id": {"set": true, "number": 3}},
      "name": "simplescript",
      "user": "jdoe",
      "account": "acct-a",
      "partition": "long",
      "nodes": "cn[001-002]",
      "working_directory": "/home/org/j/jdoe",
      "state": {"current": ["CANCELLED", "REQUEUED"]},
      "time": {
        "limit": {"set": true, "infinite": false, "number": 60},
        "submission": 1700000000,
        "start": 1700000100,
        "end": {"set": false, "infinite": false, "number": 0}
      },
      "exit_code": {"status": ["SUCCESS"], "return_code": {"set": true, "number": 0}},
      "comment": {"job": "register_account:abc123"},
      "tres": {
        "requested": [
          {"type": "cpu", "count": 4},
          {"type": "mem", "count": 16384},
          {"type": "billing", "count": 4},
          {"type": "gres", "name": "gpu", "count": 2}
        ],
        "allocated": []
      }
    }
  ]
}`

func TestParseSacctJSON(t *testing.T) {
	p := NewJSONParser(SourceSacct, "fir", time.UTC)
	records, err := p.Parse([]byte(sacctSample))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Str("job_id") != "135" {
		t.Errorf("Expected job_id 135, got %q", r.Str("job_id"))
	}
	if r.Str("array_job_id") != "246" || r.Str("array_task_id") != "3" {
		t.Errorf("Bad array identity %q/%q", r.Str("array_job_id"), r.Str("array_task_id"))
	}
	if r.Str("job_state") != "CANCELLED,REQUEUED" {
		t.Errorf("Expected joined state flags, got %q", r.Str("job_state"))
	}
	if r.Int("time_limit") != 3600 {
		t.Errorf("Expected 60 minutes as 3600 seconds, got %d", r.Int("time_limit"))
	}
	if e := r.Epoch("submit_time"); e == nil || *e != 1700000000 {
		t.Errorf("Bad submit_time %v", e)
	}
	// The {set:false} encoding of the end time must become an explicit null.
	if v, present := r["end_time"]; !present || v != nil {
		t.Errorf("Expected explicit null end_time, got %v (present=%v)", v, present)
	}
	if r.Str("exit_code") != "SUCCESS:0" {
		t.Errorf("Expected exit_code SUCCESS:0, got %q", r.Str("exit_code"))
	}
	if r.Str("comment") != "register_account:abc123" {
		t.Errorf("Expected job comment, got %q", r.Str("comment"))
	}
	if r.Str("tres_req") != "cpu=4 mem=16384 gpu=2" {
		t.Errorf("Bad canonical TRES %q", r.Str("tres_req"))
	}
}

func TestParseScontrolJobJSON(t *testing.T) {
	text := `{
          "meta": {"slurm": {"version": {"major": 24}}},
          "jobs": [
            {
              "job_id": 7,
              "name": "train",
              "user_name": "jdoe",
              "job_state": ["RUNNING"],
              "time_limit": {"set": true, "infinite": true, "number": 0},
              "submit_time": {"set": true, "number": 1700000000},
              "start_time": 1700000500,
              "end_time": 0,
              "current_working_directory": "/scratch/jdoe",
              "tres_alloc_str": "cpu=4,billing=4"
            }
          ]
        }`
	p := NewJSONParser(SourceScontrolJob, "fir", time.UTC)
	records, err := p.Parse([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	r := records[0]
	if r.Str("job_id") != "7" || r.Str("username") != "jdoe" {
		t.Errorf("Bad identity fields %q/%q", r.Str("job_id"), r.Str("username"))
	}
	if r.Str("job_state") != "RUNNING" {
		t.Errorf("Expected RUNNING, got %q", r.Str("job_state"))
	}
	if r.Int("time_limit") != 0 {
		t.Errorf("Expected infinite limit as 0, got %d", r.Int("time_limit"))
	}
	if v, present := r["end_time"]; !present || v != nil {
		t.Errorf("Expected zero end_time normalized to null, got %v", v)
	}
	if r.Str("tres_alloc") != "cpu=4" {
		t.Errorf("Bad canonical TRES %q", r.Str("tres_alloc"))
	}
}

func TestParseSinfoJSON(t *testing.T) {
	text := `{
          "meta": {"slurm": {"version": {"major": 23}}},
          "sinfo": [
            {
              "nodes": {"nodes": ["cn001", "cn002"]},
              "node": {"state": ["MIXED"]},
              "cpus": {"total": 40, "allocated": 12},
              "memory": {"maximum": 192000},
              "gres": {"total": "gpu:8", "used": "gpu:3"}
            }
          ]
        }`
	p := NewJSONParser(SourceSinfo, "fir", time.UTC)
	records, err := p.Parse([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected one record per node, got %d", len(records))
	}
	if records[0].Str("name") != "cn001" || records[1].Str("name") != "cn002" {
		t.Errorf("Bad node names %q/%q", records[0].Str("name"), records[1].Str("name"))
	}
	if records[1].Str("state") != "MIXED" || records[1].Int("cpus") != 40 {
		t.Errorf("Per-node attributes not replicated")
	}
}

func TestParseJSONUnsupportedVersion(t *testing.T) {
	text := `{"meta": {"slurm": {"version": {"major": 21}}}, "jobs": []}`
	p := NewJSONParser(SourceSacct, "fir", time.UTC)
	_, err := p.Parse([]byte(text))
	if err == nil {
		t.Fatal("Expected a version error")
	}
	var ve *UnsupportedVersionError
	if !errors.As(err, &ve) || ve.Major != 21 {
		t.Errorf("Expected UnsupportedVersionError for 21, got %v", err)
	}
}

func TestParseJSONBadInput(t *testing.T) {
	p := NewJSONParser(SourceSacct, "fir", time.UTC)
	if _, err := p.Parse([]byte("not json")); err == nil {
		t.Errorf("Expected an error for malformed input")
	}
	if _, err := p.Parse([]byte(`{"jobs": []}`)); err == nil {
		t.Errorf("Expected an error for a report without a version")
	}
}
