package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

// OrgRepository is the management plane view of organizations.
type OrgRepository interface {
	OrgExists(ctx context.Context, orgDn string) (bool, error)
	CreateOrg(ctx context.Context, name string) (model.CreateResult, error)
	DeleteOrg(ctx context.Context, orgDn string) (model.DeleteResult, error)
}

// NetworkRepository is the management plane view of VLANs and the cluster network objects.
type NetworkRepository interface {
	ListVLANs(ctx context.Context) ([]model.VLAN, error)
	CreateKubeNetwork(ctx context.Context, orgDn, vlan string) (model.CreateResult, error)
	DeleteKubeNetwork(ctx context.Context, orgDn string) (model.DeleteResult, error)
}

// ServerRepository is the management plane view of servers and per host resources.
type ServerRepository interface {
	ListServers(ctx context.Context) ([]model.ServerRecord, error)
	CreateServerProfile(
		ctx context.Context,
		orgDn string,
		host *model.HostRecord,
		server *model.ServerRecord,
		kubamAddress string,
	) (model.CreateResult, error)
	DeleteServerProfile(ctx context.Context, orgDn string, host *model.HostRecord) (model.DeleteResult, error)
}

// Set bundles the reconcilers bound to one management plane handle.
type Set struct {
	Orgs     *OrgResolver
	Networks *NetworkReconciler
	Servers  *ServerReconciler
}

// ForHandle returns reconcilers issuing their calls over handle.
func ForHandle(handle ucsm.Handle, defaultOrg string, logger *logrus.Entry) *Set {
	repo := ucsm.NewRepository(handle)

	return &Set{
		Orgs:     NewOrgResolver(repo, defaultOrg, logger),
		Networks: NewNetworkReconciler(repo, logger),
		Servers:  NewServerReconciler(repo, logger),
	}
}

// remoteFailure is the error for a create or delete the plane rejected.
func remoteFailure(code, description string) error {
	return model.NewRemoteError("", &ucsm.RemoteError{Code: code, Description: description})
}
