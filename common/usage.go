package common

import (
	"errors"
	"flag"
	"fmt"
)

// A command line problem.  The top-level dispatcher maps this to exit code 2, keeping 1 for
// operational failures.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func BadUsage(format string, args ...any) error {
	return &UsageError{fmt.Errorf(format, args...)}
}

// ParseFlags classifies parse failures as usage errors.  -h propagates as flag.ErrHelp; the flag
// package has printed the options already.
func ParseFlags(opts *flag.FlagSet, args []string) error {
	err := opts.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return &UsageError{err}
}
