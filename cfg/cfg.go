// Manage per-cluster configuration data.
//
// The configuration file is a JSON object mapping cluster names to descriptors, one descriptor per
// cluster the poller talks to.  Descriptors are immutable after loading.  Fields without a safe
// default (credentials, command paths, timezone) are required and their absence is a startup
// error; we never guess at them.

package cfg

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// Identity field names, also the keys of the stored job documents.
const (
	FieldMilaUsername  = "mila_cluster_username"
	FieldCCUsername    = "cc_account_username"
	FieldEmailUsername = "mila_email_username"
)

// An allocation allow-list: either the wildcard, or an explicit set of billing accounts.  In the
// file it is the string "*" or an array of strings.
type AllocationList struct {
	All      bool
	Accounts []string

	// Whether the key appeared in the file at all.  An omitted allow-list would otherwise decode
	// to deny-all and silently drop every job on the cluster; it must be a startup error instead.
	present bool
}

func (a *AllocationList) UnmarshalJSON(data []byte) error {
	a.present = true
	var star string
	if err := json.Unmarshal(data, &star); err == nil {
		if star != "*" {
			return fmt.Errorf("Bad allocations value %q, expected \"*\" or a list", star)
		}
		a.All = true
		return nil
	}
	return json.Unmarshal(data, &a.Accounts)
}

func (a *AllocationList) MarshalJSON() ([]byte, error) {
	if a.All {
		return json.Marshal("*")
	}
	return json.Marshal(a.Accounts)
}

type ClusterDescriptor struct {
	// Set from the enclosing map key, not present in the descriptor object itself.
	Name string `json:"-"`

	// IANA zone name for timestamps in this cluster's command output.
	Timezone string `json:"timezone" validate:"required"`

	Allocations AllocationList `json:"allocations"`

	RemoteHostname string `json:"remote_hostname" validate:"required,hostname"`
	RemoteUser     string `json:"remote_user" validate:"required"`
	SSHKeyFilename string `json:"ssh_key_filename" validate:"required"`
	SSHPort        int    `json:"ssh_port" validate:"omitempty,min=1,max=65535"`

	ScontrolPath string `json:"scontrol_path" validate:"required"`
	SacctPath    string `json:"sacct_path" validate:"required"`
	SinfoPath    string `json:"sinfo_path"`

	// Which identity slot the username reported by this cluster is authoritative for.
	AccountField string `json:"account_field" validate:"required,oneof=mila_cluster_username cc_account_username mila_email_username"`

	// Short name of the organization operating this system, used by the path heuristics on the
	// organization's own cluster (eg "mila" in /home/mila/j/jdoe).
	Org string `json:"organization" validate:"required"`

	// Resolved from Timezone at load time.
	Location *time.Location `json:"-"`
}

// The organization's own cluster is the one whose reported usernames land in the organization's
// username slot; on every other cluster the external account name is authoritative.
func (d *ClusterDescriptor) IsOrgCluster() bool {
	return d.AccountField == FieldMilaUsername
}

func Load(filename string) (map[string]*ClusterDescriptor, error) {
	input, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer input.Close()
	return ReadFrom(input)
}

func ReadFrom(input io.Reader) (map[string]*ClusterDescriptor, error) {
	bytes, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}

	var clusters map[string]*ClusterDescriptor
	err = json.Unmarshal(bytes, &clusters)
	if err != nil {
		return nil, fmt.Errorf("While unmarshaling cluster config: %w", err)
	}
	if len(clusters) == 0 {
		return nil, fmt.Errorf("No clusters in config")
	}

	validate := validator.New()
	for name, d := range clusters {
		d.Name = name
		if err := validate.Struct(d); err != nil {
			return nil, fmt.Errorf("Bad descriptor for cluster %s: %w", name, err)
		}
		if !d.Allocations.present {
			return nil, fmt.Errorf("Missing allocations for cluster %s, expected \"*\" or a list of accounts", name)
		}
		d.Location, err = time.LoadLocation(d.Timezone)
		if err != nil {
			return nil, fmt.Errorf("Bad timezone for cluster %s: %w", name, err)
		}
		if d.SSHPort == 0 {
			d.SSHPort = 22
		}
	}
	return clusters, nil
}
