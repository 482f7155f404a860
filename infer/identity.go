package infer

import (
	"regexp"
	"strings"
	"sync"

	"slurmsync/cfg"
	"slurmsync/slurm"
)

// Identity resolution.  A job owner is represented by three mutually exclusive username slots,
// one per account system; exactly one is populated (or all carry the sentinel) so downstream
// consumers never have to probe for absent fields.

const UnknownUser = "unknown"

type Identity struct {
	MilaClusterUsername string
	CCAccountUsername   string
	MilaEmailUsername   string
}

func unknownIdentity() Identity {
	return Identity{UnknownUser, UnknownUser, UnknownUser}
}

func (id *Identity) set(field, username string) {
	switch field {
	case cfg.FieldMilaUsername:
		id.MilaClusterUsername = username
	case cfg.FieldCCUsername:
		id.CCAccountUsername = username
	case cfg.FieldEmailUsername:
		id.MilaEmailUsername = username
	}
}

// Owner returns the populated slot, or the sentinel.
func (id *Identity) Owner() string {
	for _, u := range []string{id.MilaClusterUsername, id.CCAccountUsername, id.MilaEmailUsername} {
		if u != UnknownUser {
			return u
		}
	}
	return UnknownUser
}

// ResolveIdentity populates exactly one identity slot for the job in raw.
//
// On an external cluster the reported username is authoritative for that cluster's slot.  On the
// organization's own cluster a missing or placeholder username falls back to path heuristics over
// the path-like fields, resolved by majority vote.
func ResolveIdentity(raw slurm.RawRecord, desc *cfg.ClusterDescriptor) Identity {
	id := unknownIdentity()
	username := reportedUsername(raw.Str("username"))

	if !desc.IsOrgCluster() {
		if username != "" {
			id.set(desc.AccountField, username)
		}
		return id
	}

	if username != "" {
		id.set(cfg.FieldMilaUsername, username)
		return id
	}
	if guess := guessFromPaths(raw, desc.Org); guess != "" {
		id.set(cfg.FieldMilaUsername, guess)
	}
	return id
}

// Strip the "(uid)" suffix of scontrol's UserId and reject the placeholder "nobody".
func reportedUsername(s string) string {
	if i := strings.IndexByte(s, '('); i != -1 {
		s = s[:i]
	}
	if s == "nobody" {
		return ""
	}
	return s
}

// The ordered path-pattern rules.  The org short name is spliced into the home rule, so the
// compiled set is cached per org.
var (
	pathRuleLock sync.Mutex
	pathRules    = make(map[string][]*regexp.Regexp)
)

func rulesFor(org string) []*regexp.Regexp {
	pathRuleLock.Lock()
	defer pathRuleLock.Unlock()
	if probe := pathRules[org]; probe != nil {
		return probe
	}
	rules := []*regexp.Regexp{
		regexp.MustCompile(`/home/` + regexp.QuoteMeta(org) + `/[A-Za-z0-9]/([A-Za-z0-9_.-]+)(?:/|$|\s)`),
		regexp.MustCompile(`/scratch/([A-Za-z0-9_.-]+)(?:/|$|\s)`),
		regexp.MustCompile(`/lustre\d*/project/[A-Za-z0-9_.-]+/([A-Za-z0-9_.-]+)(?:/|$|\s)`),
	}
	pathRules[org] = rules
	return rules
}

// The path-like fields, in voting order.
var pathFields = []string{"work_dir", "command", "stdout_file", "stderr_file"}

// One guess per field (first rule that matches); majority vote across fields, ties broken by
// first-match order.  A guess equal to the org short name means the rule degenerated to matching
// the org's own path prefix and is discarded.
func guessFromPaths(raw slurm.RawRecord, org string) string {
	rules := rulesFor(org)
	var guesses []string
	for _, field := range pathFields {
		value := raw.Str(field)
		if value == "" {
			continue
		}
		for _, rule := range rules {
			if m := rule.FindStringSubmatch(value); m != nil {
				if m[1] != org {
					guesses = append(guesses, m[1])
				}
				break
			}
		}
	}
	if len(guesses) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, g := range guesses {
		counts[g]++
	}
	best := guesses[0]
	for _, g := range guesses {
		if counts[g] > counts[best] {
			best = g
		}
	}
	return best
}
