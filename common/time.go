package common

import (
	"fmt"
	"time"
)

// Cutoff dates on the command line are "yyyy-mm-dd" or "yyyy-mm-dd-hh:mm:ss", interpreted in the
// local timezone of the invoking host (these are operator-facing batch flags, not cluster data).

func ParseCutoff(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02-15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("Bad cutoff date %q, expected yyyy-mm-dd or yyyy-mm-dd-hh:mm:ss", s)
}
