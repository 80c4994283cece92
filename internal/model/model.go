package model

import (
	"strings"
)

const (
	AppName = "kubam"

	// DefaultOrg is the organization used when none is configured.
	DefaultOrg = "kubam"

	// RootOrg names the management plane root organization.
	RootOrg = "root"

	// Redacted replaces secrets on every outward read path.
	Redacted = "REDACTED"
)

// Credentials for the management plane.
type Credentials struct {
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	IP       string `yaml:"ip" json:"ip"`
}

// Complete reports whether user, password and address are all set.
func (c *Credentials) Complete() bool {
	return c != nil && c.User != "" && c.Password != "" && c.IP != ""
}

// Redact returns a copy safe to hand back to a caller.
func (c *Credentials) Redact() *Credentials {
	if c == nil {
		return nil
	}

	out := *c
	if out.Password != "" {
		out.Password = Redacted
	}

	return &out
}

func (c *Credentials) AsLogFields() []any {
	return []any{
		"user", c.User,
		"address", c.IP,
	}
}

type ServerKind string

const (
	KindBlade ServerKind = "blade"
	KindRack  ServerKind = "rack"
)

// ServerRecord is one physical server as seen in the management plane inventory.
//
// nolint:govet // prefer to keep field ordering as is
type ServerRecord struct {
	Kind      ServerKind `json:"type" yaml:"type"`
	ChassisID string     `json:"chassis_id,omitempty" yaml:"chassis_id,omitempty"`
	Slot      string     `json:"slot,omitempty" yaml:"slot,omitempty"`
	RackID    string     `json:"rack_id,omitempty" yaml:"rack_id,omitempty"`

	// Inventory attributes, read only.
	Dn         string `json:"dn,omitempty" yaml:"dn,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Serial     string `json:"serial,omitempty" yaml:"serial,omitempty"`
	OperPower  string `json:"oper_power,omitempty" yaml:"oper_power,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`

	Selected bool `json:"selected" yaml:"selected"`
}

// Identity returns the persisted form of the server identity, "chassis/slot" for
// blades and the rack id for rack servers.
func (s *ServerRecord) Identity() string {
	switch s.Kind {
	case KindBlade:
		return s.ChassisID + "/" + s.Slot
	case KindRack:
		return s.RackID
	default:
		return ""
	}
}

// PhysicalDn is the distinguished name of the server in the management plane.
func (s *ServerRecord) PhysicalDn() string {
	if s.Dn != "" {
		return s.Dn
	}

	switch s.Kind {
	case KindBlade:
		return "sys/chassis-" + s.ChassisID + "/blade-" + s.Slot
	case KindRack:
		return "sys/rack-unit-" + s.RackID
	default:
		return ""
	}
}

func (s *ServerRecord) AsLogFields() []any {
	return []any{
		"kind", string(s.Kind),
		"server", s.Identity(),
		"dn", s.PhysicalDn(),
	}
}

// SelectionSet is the compact persisted form of the selected servers.
type SelectionSet struct {
	Blades      []string `yaml:"blades,omitempty" json:"blades,omitempty"`
	RackServers []string `yaml:"rack_servers,omitempty" json:"rack_servers,omitempty"`
}

func (s SelectionSet) Empty() bool {
	return len(s.Blades) == 0 && len(s.RackServers) == 0
}

// ParseBlade splits a persisted "chassis/slot" blade identity.
func ParseBlade(id string) (chassis, slot string, ok bool) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// VLAN as listed by the management plane.
type VLAN struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

// Network holds the IP settings handed to the hosts of a cluster.
type Network struct {
	Name       string `yaml:"name,omitempty" json:"name,omitempty"`
	Netmask    string `yaml:"netmask,omitempty" json:"netmask,omitempty"`
	Gateway    string `yaml:"gateway,omitempty" json:"gateway,omitempty"`
	Nameserver string `yaml:"nameserver,omitempty" json:"nameserver,omitempty"`
	NTPServer  string `yaml:"ntpserver,omitempty" json:"ntpserver,omitempty"`
}

// HostRecord is the deployment metadata of one host, paired with a selected server at deploy time.
type HostRecord struct {
	Name string `yaml:"name" json:"name"`
	IP   string `yaml:"ip,omitempty" json:"ip,omitempty"`
	OS   string `yaml:"os,omitempty" json:"os,omitempty"`
	Role string `yaml:"role,omitempty" json:"role,omitempty"`
}

// ISOMapping maps an operating system to the ISO image it installs from.
type ISOMapping struct {
	OS   string `yaml:"os" json:"os"`
	File string `yaml:"file" json:"file"`
}

type Args struct {
	LogLevel   string
	ConfigFile string
	StorePath  string
	Dryrun     bool

	// EnableProfiling serves pprof on ProfilingEndpoint while the command runs.
	EnableProfiling   bool
	ProfilingEndpoint string
}

// Stage names of the deploy and destroy pipelines, used to tag errors and status.
const (
	StageSessionOpen            = "SessionOpen"
	StageHostsRead              = "HostsRead"
	StageInputsValidated        = "InputsValidated"
	StageOrgResolved            = "OrgResolved"
	StageVlanValidated          = "VlanValidated"
	StageNetworkCreated         = "NetworkCreated"
	StageServerResourcesCreated = "ServerResourcesCreated"
	StageServerResourcesDeleted = "ServerResourcesDeleted"
	StageNetworkDeleted         = "NetworkDeleted"
	StageOrgDeleted             = "OrgDeleted"
	StageSessionClosed          = "SessionClosed"
)
