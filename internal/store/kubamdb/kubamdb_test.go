package kubamdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/metal-toolbox/kubam/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return New(filepath.Join(t.TempDir(), "kubam", "kubam.yaml"))
}

func TestAbsentFileReadsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	creds, err := s.Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	vlan, err := s.VLAN(ctx)
	require.NoError(t, err)
	assert.Empty(t, vlan)

	servers, err := s.Servers(ctx)
	require.NoError(t, err)
	assert.True(t, servers.Empty())

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "reads must not create the file")
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdateCredentials(ctx, &model.Credentials{User: "admin", Password: "secret", IP: "10.0.0.2"}))
	require.NoError(t, s.UpdateVLAN(ctx, "kubam"))
	require.NoError(t, s.UpdateServers(ctx, model.SelectionSet{Blades: []string{"1/1", "1/1"}, RackServers: []string{"7"}}))
	require.NoError(t, s.UpdateHosts(ctx, []model.HostRecord{{Name: "kube01", IP: "10.0.1.11", OS: "centos7.5", Role: "master"}}))
	require.NoError(t, s.UpdateNetworks(ctx, []model.Network{{Name: "net01", Netmask: "255.255.255.0", Gateway: "10.0.1.1"}}))
	require.NoError(t, s.UpdateOrg(ctx, "lab"))
	require.NoError(t, s.UpdateKubamIP(ctx, "10.0.1.2"))
	require.NoError(t, s.UpdateProxy(ctx, "http://proxy:80"))
	require.NoError(t, s.UpdatePublicKeys(ctx, []string{"ssh-rsa AAAA"}))
	require.NoError(t, s.UpdateISOMap(ctx, []model.ISOMapping{{OS: "centos7.5", File: "/kubam/centos.iso"}}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())

	reloaded := New(s.Path())

	creds, err := reloaded.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, &model.Credentials{User: "admin", Password: "secret", IP: "10.0.0.2"}, creds)

	vlan, err := reloaded.VLAN(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kubam", vlan)

	servers, err := reloaded.Servers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1/1", "1/1"}, servers.Blades)
	assert.Equal(t, []string{"7"}, servers.RackServers)

	hosts, err := reloaded.Hosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "kube01", hosts[0].Name)

	org, err := reloaded.Org(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lab", org)

	ip, err := reloaded.KubamIP(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.2", ip)

	proxy, err := reloaded.Proxy(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://proxy:80", proxy)

	keys, err := reloaded.PublicKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ssh-rsa AAAA"}, keys)

	isos, err := reloaded.ISOMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ISOMapping{{OS: "centos7.5", File: "/kubam/centos.iso"}}, isos)

	networks, err := reloaded.Networks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "net01", networks[0].Name)
}

func TestDocumentLayout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdateCredentials(ctx, &model.Credentials{User: "admin", Password: "secret", IP: "10.0.0.2"}))
	require.NoError(t, s.UpdateVLAN(ctx, "kubam"))
	require.NoError(t, s.UpdateServers(ctx, model.SelectionSet{Blades: []string{"1/1"}}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	raw := map[string]any{}
	require.NoError(t, yaml.Unmarshal(data, &raw))

	ucsm, ok := raw["ucsm"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, ucsm, "credentials")
	assert.Equal(t, map[string]any{"vlan": "kubam"}, ucsm["network"])
	assert.Equal(t, map[string]any{"blades": []any{"1/1"}}, ucsm["servers"])
}

func TestClearCredentials(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdateCredentials(ctx, &model.Credentials{User: "admin", Password: "secret", IP: "10.0.0.2"}))
	require.NoError(t, s.ClearCredentials(ctx))

	creds, err := New(s.Path()).Credentials(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpdatePublicKeys(ctx, []string{"a"}))

	keys, err := s.PublicKeys(ctx)
	require.NoError(t, err)

	keys[0] = "mutated"

	again, err := s.PublicKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again)
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kubam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ucsm: [not, a, map"), 0o600))

	_, err := New(path).VLAN(context.Background())
	assert.ErrorIs(t, err, model.ErrStoreRead)
}
