package store

import (
	"context"

	"github.com/metal-toolbox/kubam/internal/configuration"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/store/kubamdb"
)

// Repository is the persisted cluster configuration.
//
// Getters on an absent document return zero values, callers decide whether
// a missing value is an error.
type Repository interface {
	// Credentials returns the management plane credentials, nil when none are stored.
	Credentials(ctx context.Context) (*model.Credentials, error)
	UpdateCredentials(ctx context.Context, creds *model.Credentials) error
	ClearCredentials(ctx context.Context) error

	// VLAN returns the name of the target VLAN.
	VLAN(ctx context.Context) (string, error)
	UpdateVLAN(ctx context.Context, vlan string) error

	Networks(ctx context.Context) ([]model.Network, error)
	UpdateNetworks(ctx context.Context, networks []model.Network) error

	// Servers returns the persisted server selection.
	Servers(ctx context.Context) (model.SelectionSet, error)
	UpdateServers(ctx context.Context, servers model.SelectionSet) error

	Hosts(ctx context.Context) ([]model.HostRecord, error)
	UpdateHosts(ctx context.Context, hosts []model.HostRecord) error

	Org(ctx context.Context) (string, error)
	UpdateOrg(ctx context.Context, org string) error

	KubamIP(ctx context.Context) (string, error)
	UpdateKubamIP(ctx context.Context, ip string) error

	Proxy(ctx context.Context) (string, error)
	UpdateProxy(ctx context.Context, proxy string) error

	PublicKeys(ctx context.Context) ([]string, error)
	UpdatePublicKeys(ctx context.Context, keys []string) error

	ISOMap(ctx context.Context) ([]model.ISOMapping, error)
	UpdateISOMap(ctx context.Context, isos []model.ISOMapping) error
}

var _ Repository = (*kubamdb.Store)(nil)

// NewRepository returns the repository configured for this process.
func NewRepository(config *configuration.Configuration) Repository {
	return kubamdb.New(config.StorePath)
}
