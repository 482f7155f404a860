package slurm

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Per-field translators.  A field map binds each raw field name to one translator; the tables are
// built once at init and dispatched through a switch, no reflection.

type translatorKind int

const (
	trIgnore translatorKind = iota
	trCopy
	trRename
	trRenameStringify
	trJoinSubitems
	trExtractTRES
	trZeroIsNull
	trTimestampTZ
	trTimeLimit
)

type Translator struct {
	kind translatorKind
	to   string
	sep  string
}

func Ignore() Translator                     { return Translator{kind: trIgnore} }
func Copy() Translator                       { return Translator{kind: trCopy} }
func Rename(to string) Translator            { return Translator{kind: trRename, to: to} }
func RenameStringify(to string) Translator   { return Translator{kind: trRenameStringify, to: to} }
func JoinSubitems(to, sep string) Translator { return Translator{kind: trJoinSubitems, to: to, sep: sep} }
func ExtractTRES(to string) Translator       { return Translator{kind: trExtractTRES, to: to} }
func ZeroIsNull(to string) Translator        { return Translator{kind: trZeroIsNull, to: to} }
func TimestampTZ(to string) Translator       { return Translator{kind: trTimestampTZ, to: to} }
func TimeLimit(to string) Translator         { return Translator{kind: trTimeLimit, to: to} }

type FieldMap map[string]Translator

// Apply one translator to one raw field, writing the result (if any) into out.  loc is the
// cluster's timezone, needed only by the timestamp translator.
func (t Translator) apply(key string, value any, loc *time.Location, out RawRecord) error {
	switch t.kind {
	case trIgnore:
		return nil

	case trCopy:
		out[key] = value
		return nil

	case trRename:
		out[t.to] = value
		return nil

	case trRenameStringify:
		// Identity-bearing fields must stay textual: numeric coercion would lose leading
		// zeros and overflow on very large array job ids.
		out[t.to] = stringify(value)
		return nil

	case trJoinSubitems:
		items, ok := value.([]any)
		if !ok {
			// Already joined in the source format (eg block-format ExitCode=0:0).
			out[t.to] = stringify(value)
			return nil
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = stringify(item)
		}
		out[t.to] = strings.Join(parts, t.sep)
		return nil

	case trExtractTRES:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("TRES field %s is not a string", key)
		}
		out[t.to] = canonicalTRES(s)
		return nil

	case trZeroIsNull:
		// Slurm encodes "absent" as the literal epoch 0.  Store an explicit null instead,
		// never the numeric zero.
		n, err := numeric(value)
		if err != nil {
			return fmt.Errorf("Field %s: %w", key, err)
		}
		if n == 0 {
			out[t.to] = nil
		} else {
			out[t.to] = n
		}
		return nil

	case trTimestampTZ:
		epoch, err := parseTimestamp(value, loc)
		if err != nil {
			return fmt.Errorf("Field %s: %w", key, err)
		}
		if epoch == 0 {
			out[t.to] = nil
		} else {
			out[t.to] = epoch
		}
		return nil

	case trTimeLimit:
		secs, err := parseTimeLimit(value)
		if err != nil {
			return fmt.Errorf("Field %s: %w", key, err)
		}
		out[t.to] = secs
		return nil

	default:
		panic("Unknown translator kind")
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func numeric(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, nil
	case string:
		if v == "" || v == "Unknown" || v == "None" || v == "N/A" {
			return 0, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("Bad numeric value %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("Bad numeric value %v", value)
	}
}

// Timestamps in block output are naive local time, "2006-01-02T15:04:05"; the same wall-clock
// string denotes a different instant on different clusters, so the cluster's configured zone is
// attached before converting to epoch.  JSON output carries epoch seconds already.
func parseTimestamp(value any, loc *time.Location) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, nil
	case string:
		if v == "" || v == "Unknown" || v == "None" || v == "NONE" {
			return 0, nil
		}
		t, err := time.ParseInLocation("2006-01-02T15:04:05", v, loc)
		if err != nil {
			return 0, fmt.Errorf("Bad timestamp %q", v)
		}
		return t.Unix(), nil
	default:
		return 0, fmt.Errorf("Bad timestamp %v", value)
	}
}

// FormatTimestamp is the inverse of the timestamp translator, used by tests and debug output.
func FormatTimestamp(epoch int64, loc *time.Location) string {
	return time.Unix(epoch, 0).In(loc).Format("2006-01-02T15:04:05")
}

// Time limits are [[days-]hours:]minutes:seconds, eg "7-00:00:00", "02:30:00", "30:00"; a bare
// number is minutes.  "UNLIMITED" is stored as 0 seconds.  JSON output carries minutes.
func parseTimeLimit(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v * 60, nil
	case float64:
		return int64(v) * 60, nil
	case nil:
		return 0, nil
	case string:
		if v == "" || v == "UNLIMITED" || v == "Partition_Limit" || v == "NOT_SET" {
			return 0, nil
		}
		var days int64
		rest := v
		if i := strings.IndexByte(v, '-'); i != -1 {
			n, err := strconv.ParseInt(v[:i], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("Bad time limit %q", v)
			}
			days = n
			rest = v[i+1:]
		}
		parts := strings.Split(rest, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("Bad time limit %q", v)
		}
		var secs int64
		for _, p := range parts {
			n, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("Bad time limit %q", v)
			}
			secs = secs*60 + n
		}
		if len(parts) == 1 {
			// A bare count is minutes, per sbatch(1).
			secs *= 60
		}
		return days*24*3600 + secs, nil
	default:
		return 0, fmt.Errorf("Bad time limit %v", value)
	}
}

// Rewrite a TRES string "cpu=4,mem=16G,node=1,billing=4,gres/gpu=2" into the canonical
// space-separated resource description, dropping the billing term.
func canonicalTRES(s string) string {
	if s == "" {
		return ""
	}
	var parts []string
	for _, term := range strings.Split(s, ",") {
		if strings.HasPrefix(term, "billing=") {
			continue
		}
		parts = append(parts, strings.TrimPrefix(term, "gres/"))
	}
	return strings.Join(parts, " ")
}
