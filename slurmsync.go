// `slurmsync` -- poll Slurm clusters and reconcile their state into the document store.
//
// Run `slurmsync help` for brief help.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"slurmsync/cmd/cleanup"
	"slurmsync/cmd/sweep"
	synccmd "slurmsync/cmd/sync"
	"slurmsync/common"
)

const SlurmsyncVersion = "0.1.0"

type command struct {
	help    string
	handler func(progname string, args []string) error
}

var commands = map[string]command{
	"sync": command{
		"Poll the configured clusters and reconcile jobs, nodes and accounting data",
		synccmd.Sync,
	},
	"sweep": command{
		"Remove (optionally archiving) records not observed within the retention window",
		sweep.Sweep,
	},
	"cleanup": command{
		"Evict the oldest jobs beyond a retention count, overall or per user",
		cleanup.Cleanup,
	},
}

func main() {
	if len(os.Args) < 2 {
		usage(2)
	}
	verb := os.Args[1]
	switch verb {
	case "help", "-h":
		usage(0)
	case "version":
		fmt.Println(SlurmsyncVersion)
		os.Exit(0)
	}
	cmd, found := commands[verb]
	if !found {
		fmt.Fprintf(os.Stderr, "Unknown operation %s, try `%s help`\n", verb, os.Args[0])
		os.Exit(2)
	}
	if err := cmd.handler(os.Args[0], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		var usage *common.UsageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage(code int) {
	out := os.Stdout
	if code != 0 {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Usage: %s <verb> [options]\n", os.Args[0])
	fmt.Fprintf(out, "Verbs:\n")
	verbs := make([]string, 0, len(commands))
	for v := range commands {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	for _, v := range verbs {
		fmt.Fprintf(out, "  %-8s - %s\n", v, commands[v].help)
	}
	fmt.Fprintf(out, "  %-8s - %s\n", "version", "print the program version")
	fmt.Fprintf(out, "  %-8s - %s\n", "help", "print this message")
	fmt.Fprintf(out, "Each verb accepts -h to further explain options.\n")
	os.Exit(code)
}
