package sshrun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runs commands on the invoking host through the shell.  Used when the poller runs directly on a
// cluster's login node, and by tests.
type LocalRunner struct {
	Cluster string
}

func (r *LocalRunner) Run(ctx context.Context, command string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return "", stderr.String(),
			&TransportError{r.Cluster, errors.Join(fmt.Errorf("While running %q", command), err)}
	}
	return stdout.String(), stderr.String(), nil
}
