package ucsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/model"
)

func newTestRepository(t *testing.T) (*Repository, *DryRunPlane) {
	t.Helper()

	plane := NewDryRunPlane()

	handle, err := plane.Login(context.Background(), "admin", "secret", "10.0.0.2")
	require.NoError(t, err)

	t.Cleanup(func() { _ = handle.Logout(context.Background()) })

	return NewRepository(handle), plane
}

func TestOrgDn(t *testing.T) {
	assert.Equal(t, "org-root", OrgDn("root"))
	assert.Equal(t, "org-root/org-kubam", OrgDn("kubam"))
}

func TestRepositoryOrg(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	exists, err := repo.OrgExists(ctx, OrgDn("lab"))
	require.NoError(t, err)
	assert.False(t, exists)

	result, err := repo.CreateOrg(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, model.Created(), result)

	result, err = repo.CreateOrg(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyExists(), result)

	deleted, err := repo.DeleteOrg(ctx, OrgDn("lab"))
	require.NoError(t, err)
	assert.Equal(t, model.Deleted(), deleted)

	deleted, err = repo.DeleteOrg(ctx, OrgDn("lab"))
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyAbsent(), deleted)
}

func TestRepositoryNetwork(t *testing.T) {
	ctx := context.Background()
	repo, plane := newTestRepository(t)

	_, err := repo.CreateOrg(ctx, "lab")
	require.NoError(t, err)

	orgDn := OrgDn("lab")

	result, err := repo.CreateKubeNetwork(ctx, orgDn, "kubam")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, result.Outcome)

	assert.NotNil(t, plane.Lookup(orgDn+"/mac-pool-kubam"))
	assert.Equal(t, "A", plane.Lookup(orgDn+"/lan-conn-templ-kubam-a").Attr("switchId"))
	assert.Equal(t, "B", plane.Lookup(orgDn+"/lan-conn-templ-kubam-b").Attr("switchId"))
	assert.NotNil(t, plane.Lookup(orgDn+"/lan-conn-templ-kubam-a/if-kubam"))
	assert.Equal(t, "kubam-b", plane.Lookup(orgDn+"/lan-conn-pol-kubam/ether-eth1").Attr("nwTemplName"))

	result, err = repo.CreateKubeNetwork(ctx, orgDn, "kubam")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyExists, result.Outcome)

	deleted, err := repo.DeleteKubeNetwork(ctx, orgDn)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDeleted, deleted.Outcome)
	assert.Nil(t, plane.Lookup(orgDn+"/lan-conn-pol-kubam"))
	assert.Nil(t, plane.Lookup(orgDn+"/mac-pool-kubam"))

	deleted, err = repo.DeleteKubeNetwork(ctx, orgDn)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyAbsent, deleted.Outcome)
}

func TestRepositoryNetworkRebindsVLAN(t *testing.T) {
	ctx := context.Background()
	repo, plane := newTestRepository(t)

	_, err := repo.CreateOrg(ctx, "lab")
	require.NoError(t, err)

	orgDn := OrgDn("lab")

	_, err = repo.CreateKubeNetwork(ctx, orgDn, "kubam")
	require.NoError(t, err)

	result, err := repo.CreateKubeNetwork(ctx, orgDn, "storage")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, result.Outcome)

	for _, templ := range []string{"kubam-a", "kubam-b"} {
		templDn := orgDn + "/lan-conn-templ-" + templ
		assert.Nil(t, plane.Lookup(templDn+"/if-kubam"), templ)
		assert.Equal(t, "yes", plane.Lookup(templDn+"/if-storage").Attr("defaultNet"), templ)
	}

	result, err = repo.CreateKubeNetwork(ctx, orgDn, "storage")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyExists, result.Outcome)
}

func TestRepositoryNetworkMissingOrg(t *testing.T) {
	repo, _ := newTestRepository(t)

	result, err := repo.CreateKubeNetwork(context.Background(), OrgDn("missing"), "kubam")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeFailed, result.Outcome)
	assert.Equal(t, ErrCodeNotFound, result.Code)
}

func TestRepositoryListing(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	vlans, err := repo.ListVLANs(ctx)
	require.NoError(t, err)
	assert.Contains(t, vlans, model.VLAN{Name: "kubam", ID: "100"})

	servers, err := repo.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 6)

	assert.Equal(t, model.KindBlade, servers[0].Kind)
	assert.Equal(t, "1", servers[0].ChassisID)
	assert.Equal(t, "1", servers[0].Slot)
	assert.Equal(t, model.KindRack, servers[5].Kind)
	assert.Equal(t, "2", servers[5].RackID)
}

func TestRepositoryServerProfile(t *testing.T) {
	ctx := context.Background()
	repo, plane := newTestRepository(t)

	_, err := repo.CreateOrg(ctx, "lab")
	require.NoError(t, err)

	orgDn := OrgDn("lab")
	host := &model.HostRecord{Name: "kube01", IP: "10.0.1.11", OS: "centos7.5", Role: "master"}
	server := &model.ServerRecord{Kind: model.KindBlade, ChassisID: "1", Slot: "2"}

	result, err := repo.CreateServerProfile(ctx, orgDn, host, server, "10.0.1.2")
	require.NoError(t, err)
	assert.Equal(t, model.Created(), result)

	assert.Equal(t, "sys/chassis-1/blade-2", plane.Lookup(orgDn+"/ls-kube01/pn").Attr("pnDn"))
	assert.Equal(t, "kube01", plane.Lookup(orgDn+"/ls-kube01").Attr("vmediaPolicyName"))
	entry := plane.Lookup(orgDn + "/mnt-cfg-policy-kube01/cfg-mnt-entry-kube01-boot")
	assert.Equal(t, "10.0.1.2", entry.Attr("remoteIpAddress"))
	assert.Equal(t, "centos7.5-boot.iso", entry.Attr("imageFileName"))

	result, err = repo.CreateServerProfile(ctx, orgDn, host, server, "10.0.1.2")
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyExists(), result)

	deleted, err := repo.DeleteServerProfile(ctx, orgDn, host)
	require.NoError(t, err)
	assert.Equal(t, model.Deleted(), deleted)
	assert.Nil(t, plane.Lookup(orgDn+"/mnt-cfg-policy-kube01"))

	deleted, err = repo.DeleteServerProfile(ctx, orgDn, host)
	require.NoError(t, err)
	assert.Equal(t, model.AlreadyAbsent(), deleted)
}
