// Abstractions for running one command on a cluster login node and capturing its output.
//
// This is pure transport: one authenticated session per command, no retries, no interpretation of
// stderr beyond surfacing it.  The caller imposes a timeout through the context; the next
// scheduled poll is the retry mechanism.

package sshrun

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"

	"slurmsync/cfg"
)

type Runner interface {
	Run(ctx context.Context, command string) (stdout, stderr string, err error)
}

// A connect/auth/timeout failure, recovered at the cluster-batch granularity by the caller.
type TransportError struct {
	Cluster string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Transport failure on cluster %s: %s", e.Cluster, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type SSHRunner struct {
	desc *cfg.ClusterDescriptor
}

func New(desc *cfg.ClusterDescriptor) *SSHRunner {
	return &SSHRunner{desc: desc}
}

func (r *SSHRunner) Run(ctx context.Context, command string) (string, string, error) {
	d := r.desc

	key, err := os.ReadFile(d.SSHKeyFilename)
	if err != nil {
		return "", "", &TransportError{d.Name, err}
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return "", "", &TransportError{d.Name, err}
	}

	config := &ssh.ClientConfig{
		User: d.RemoteUser,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		// Login nodes are designated in the operator-controlled config file; the keys rotate
		// too often across maintenance windows for pinning to be workable.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(d.RemoteHostname, fmt.Sprint(d.SSHPort))
	netConn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", "", &TransportError{d.Name, err}
	}
	conn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		return "", "", &TransportError{d.Name, err}
	}
	client := ssh.NewClient(conn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", "", &TransportError{d.Name, err}
	}
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	// session.Run does not take a context; tear the connection down on cancellation so the Run
	// returns promptly.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()
	select {
	case err = <-done:
	case <-ctx.Done():
		client.Close()
		<-done
		err = ctx.Err()
	}
	if err != nil {
		return "", stderr.String(), &TransportError{d.Name, fmt.Errorf("While running %q: %w", command, err)}
	}
	return stdout.String(), stderr.String(), nil
}
