package slurm

import (
	"fmt"
	"strconv"
	"strings"
)

// Expansion of Slurm hostlist expressions, "cn[001-012,017],gpu-a1".  The grammar:
//
//   hostlist ::= pattern ("," pattern)*
//   pattern  ::= fragment+
//   fragment ::= literal | "[" range ("," range)* "]"
//   range    ::= number | number "-" number
//
// In a range A-B, A must be no greater than B.  Zero padding of the first number of a range is
// preserved in the expansion, as Slurm does.

func ExpandHostList(s string) ([]string, error) {
	names := make([]string, 0)
	for _, pattern := range splitHostList(s) {
		if pattern == "" {
			continue
		}
		expanded, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		names = append(names, expanded...)
	}
	return names, nil
}

// Split on commas at bracket depth zero.
func splitHostList(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func expandPattern(pattern string) ([]string, error) {
	open := strings.IndexByte(pattern, '[')
	if open == -1 {
		return []string{pattern}, nil
	}
	close := strings.IndexByte(pattern, ']')
	if close < open {
		return nil, fmt.Errorf("Unbalanced brackets in hostlist %q", pattern)
	}
	prefix := pattern[:open]
	rest := pattern[close+1:]
	var names []string
	for _, r := range strings.Split(pattern[open+1:close], ",") {
		lo, hi, width, err := parseRange(r)
		if err != nil {
			return nil, fmt.Errorf("Bad range in hostlist %q: %w", pattern, err)
		}
		for n := lo; n <= hi; n++ {
			tails, err := expandPattern(fmt.Sprintf("%0*d%s", width, n, rest))
			if err != nil {
				return nil, err
			}
			for _, tail := range tails {
				names = append(names, prefix+tail)
			}
		}
	}
	return names, nil
}

func parseRange(r string) (lo, hi int, width int, err error) {
	first := r
	last := r
	if i := strings.IndexByte(r, '-'); i != -1 {
		first, last = r[:i], r[i+1:]
	}
	lo, err = strconv.Atoi(first)
	if err != nil {
		return
	}
	hi, err = strconv.Atoi(last)
	if err != nil {
		return
	}
	if hi < lo {
		err = fmt.Errorf("Descending range %s", r)
		return
	}
	width = len(first)
	return
}
