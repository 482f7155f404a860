// Parsers for the output of the Slurm status commands.
//
// Two raw formats are supported: the `key=value` block format emitted by `scontrol show job|node|
// reservation`, and the JSON report format emitted by the newer `sacct --json`, `scontrol --json`
// and `sinfo --json`.  Both produce a flat RawRecord per logical entity; everything the raw
// formats do that is irregular (multi-line values, dual JSON encodings, nested sub-objects) is
// contained here and does not leak into the inference or reconciliation stages.

package slurm

// One flat record from one block / array element.  Values are string, int64, nil (explicitly
// absent), or []any for fields awaiting a join.
type RawRecord map[string]any

func (r RawRecord) Str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Epoch returns the epoch-seconds value of key, or nil if the field is absent or was normalized
// to null.
func (r RawRecord) Epoch(key string) *int64 {
	if v, ok := r[key].(int64); ok {
		return &v
	}
	return nil
}

func (r RawRecord) Int(key string) int64 {
	if v, ok := r[key].(int64); ok {
		return v
	}
	return 0
}

// The remote command a piece of output came from.  Each source has its own versioned field maps
// and its own last-observed stamp in the store.
type Source string

const (
	SourceScontrolJob  Source = "scontrol_job"
	SourceScontrolNode Source = "scontrol_node"
	SourceScontrolResv Source = "scontrol_reservation"
	SourceSacct        Source = "sacct"
	SourceSinfo        Source = "sinfo"
)

type ParseError struct {
	Source   Source
	Cluster  string
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	s := "Parse failure in " + string(e.Source)
	if e.Cluster != "" {
		s += " on cluster " + e.Cluster
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	if e.Fragment != "" {
		s += " at `" + e.Fragment + "`"
	}
	return s
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
