package slurm

import (
	"fmt"
	"strconv"
	"strings"
)

// Versioned field map selection.  The output formats drift between Slurm releases; each supported
// major version gets an explicit binding, and an unknown major is a hard error for the current
// poll - never a silent fallback to some other version's map.

const (
	oldestSupportedMajor = 22
	newestSupportedMajor = 25
)

type UnsupportedVersionError struct {
	Major int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("Unsupported Slurm major version %d, supported range is %d..%d",
		e.Major, oldestSupportedMajor, newestSupportedMajor)
}

// The maps are currently shared across the supported majors except where noted; the per-major
// switch is the seam where the next incompatible release gets its own bindings.  FieldMapFor
// binds the block format of `scontrol show`, jsonFieldMapFor the JSON reports.
func FieldMapFor(source Source, major int) (FieldMap, error) {
	if major < oldestSupportedMajor || major > newestSupportedMajor {
		return nil, &UnsupportedVersionError{major}
	}
	switch source {
	case SourceScontrolJob:
		if major >= 24 {
			// 24.05 added step-level OOM reporting to the job block.
			m := make(FieldMap, len(scontrolJobFields)+1)
			for k, v := range scontrolJobFields {
				m[k] = v
			}
			m["OOMKillStep"] = Ignore()
			return m, nil
		}
		return scontrolJobFields, nil
	case SourceScontrolNode:
		return scontrolNodeFields, nil
	case SourceScontrolResv:
		return scontrolResvFields, nil
	default:
		return nil, fmt.Errorf("Source %s has no block format", source)
	}
}

func jsonFieldMapFor(source Source, major int) (FieldMap, error) {
	if major < oldestSupportedMajor || major > newestSupportedMajor {
		return nil, &UnsupportedVersionError{major}
	}
	switch source {
	case SourceSacct:
		return sacctJSONFields, nil
	case SourceScontrolJob:
		return scontrolJobJSONFields, nil
	case SourceScontrolNode:
		return scontrolNodeJSONFields, nil
	case SourceSinfo:
		return sinfoJSONFields, nil
	default:
		return nil, fmt.Errorf("Source %s has no JSON format", source)
	}
}

// Parse the output of `scontrol --version` / `sacct --version`: "slurm 23.11.7" or
// "slurm-wlm 22.05.9".
func ParseVersionString(s string) (int, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "slurm") {
		return 0, fmt.Errorf("Bad version string %q", s)
	}
	major, err := strconv.Atoi(strings.SplitN(fields[1], ".", 2)[0])
	if err != nil {
		return 0, fmt.Errorf("Bad version string %q", s)
	}
	return major, nil
}
