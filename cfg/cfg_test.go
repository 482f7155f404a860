package cfg

import (
	"strings"
	"testing"
)

const configSample = `{
  "fir": {
    "timezone": "America/Vancouver",
    "allocations": ["acct-a", "acct-b"],
    "remote_hostname": "fir.example.ca",
    "remote_user": "pollbot",
    "ssh_key_filename": "/etc/slurmsync/fir_ed25519",
    "scontrol_path": "/opt/slurm/bin/scontrol",
    "sacct_path": "/opt/slurm/bin/sacct",
    "sinfo_path": "/opt/slurm/bin/sinfo",
    "account_field": "cc_account_username",
    "organization": "mila"
  },
  "mila": {
    "timezone": "America/Montreal",
    "allocations": "*",
    "remote_hostname": "login.server.mila.quebec",
    "remote_user": "pollbot",
    "ssh_port": 2222,
    "ssh_key_filename": "/etc/slurmsync/mila_ed25519",
    "scontrol_path": "/usr/bin/scontrol",
    "sacct_path": "/usr/bin/sacct",
    "account_field": "mila_cluster_username",
    "organization": "mila"
  }
}`

func TestReadFrom(t *testing.T) {
	clusters, err := ReadFrom(strings.NewReader(configSample))
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}

	fir := clusters["fir"]
	if fir.Name != "fir" {
		t.Errorf("Name must come from the map key, got %q", fir.Name)
	}
	if fir.Allocations.All || len(fir.Allocations.Accounts) != 2 {
		t.Errorf("Bad allocations %+v", fir.Allocations)
	}
	if fir.SSHPort != 22 {
		t.Errorf("Expected default ssh port 22, got %d", fir.SSHPort)
	}
	if fir.Location == nil || fir.Location.String() != "America/Vancouver" {
		t.Errorf("Expected resolved location, got %v", fir.Location)
	}
	if fir.IsOrgCluster() {
		t.Errorf("fir must not be the org cluster")
	}

	mila := clusters["mila"]
	if !mila.Allocations.All {
		t.Errorf("Expected the wildcard allocation")
	}
	if mila.SSHPort != 2222 {
		t.Errorf("Expected explicit ssh port, got %d", mila.SSHPort)
	}
	if !mila.IsOrgCluster() {
		t.Errorf("mila must be the org cluster")
	}
}

func replace(from, to string) string {
	return strings.Replace(configSample, from, to, 1)
}

func TestReadFromRejectsBadDescriptors(t *testing.T) {
	bad := []struct{ name, text string }{
		{"empty object", "{}"},
		{"not json", "whatever"},
		{"bad timezone", replace("America/Vancouver", "Mars/Olympus_Mons")},
		{"missing allocations", replace(`"allocations": ["acct-a", "acct-b"],`, "")},
		{"missing required field", replace(`"remote_user": "pollbot",`, "")},
		{"bad account field", replace("cc_account_username", "surname")},
		{"bad allocations", replace(`["acct-a", "acct-b"]`, `"all"`)},
	}
	for _, test := range bad {
		if _, err := ReadFrom(strings.NewReader(test.text)); err == nil {
			t.Errorf("Expected an error for %s", test.name)
		}
	}
}
