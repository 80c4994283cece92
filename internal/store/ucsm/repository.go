package ucsm

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/metal-toolbox/kubam/internal/model"
)

const (
	// NetworkObjectName names the MAC pool and LAN connectivity policy created for the cluster.
	NetworkObjectName = "kubam"

	macPoolFrom = "00:25:B5:00:00:00"
	macPoolTo   = "00:25:B5:00:00:FF"

	orgDescription = "KUBAM org"
	bootImagePath  = "kubam"
)

// fabric side -> vNIC template name
var vnicTemplates = []struct {
	name   string
	fabric string
	ether  string
}{
	{name: "kubam-a", fabric: "A", ether: "eth0"},
	{name: "kubam-b", fabric: "B", ether: "eth1"},
}

// Repository implements the org, network and server repositories on top of a Handle.
type Repository struct {
	handle Handle
}

// NewRepository returns a repository issuing calls over handle.
func NewRepository(handle Handle) *Repository {
	return &Repository{handle: handle}
}

// OrgDn returns the canonical path of the named organization.
func OrgDn(name string) string {
	if name == model.RootOrg {
		return "org-root"
	}

	return "org-root/org-" + name
}

func (r *Repository) OrgExists(ctx context.Context, orgDn string) (bool, error) {
	mo, err := r.handle.QueryDn(ctx, orgDn)
	if err != nil {
		return false, err
	}

	return mo != nil, nil
}

// CreateOrg creates the named organization under the root org.
func (r *Repository) CreateOrg(ctx context.Context, name string) (model.CreateResult, error) {
	r.handle.AddMo(NewMo("orgOrg", OrgDn(name), map[string]string{
		"name":  name,
		"descr": orgDescription,
	}), false)

	return createResult(r.handle.Commit(ctx))
}

func (r *Repository) DeleteOrg(ctx context.Context, orgDn string) (model.DeleteResult, error) {
	return r.remove(ctx, orgDn)
}

// ListVLANs returns the VLANs defined in the LAN cloud.
func (r *Repository) ListVLANs(ctx context.Context) ([]model.VLAN, error) {
	mos, err := r.handle.QueryClass(ctx, "fabricVlan")
	if err != nil {
		return nil, err
	}

	vlans := make([]model.VLAN, 0, len(mos))
	for _, mo := range mos {
		vlans = append(vlans, model.VLAN{Name: mo.Attr("name"), ID: mo.Attr("id")})
	}

	return vlans, nil
}

func networkDns(orgDn string) []string {
	dns := []string{orgDn + "/lan-conn-pol-" + NetworkObjectName}
	for _, t := range vnicTemplates {
		dns = append(dns, orgDn+"/lan-conn-templ-"+t.name)
	}

	return append(dns, orgDn+"/mac-pool-"+NetworkObjectName)
}

// CreateKubeNetwork creates the MAC pool, the vNIC templates bound to vlan and
// the LAN connectivity policy under orgDn. Existing templates are rebound to
// vlan, interfaces to any other VLAN are removed. The result is AlreadyExists
// when every object was present and already bound to vlan.
func (r *Repository) CreateKubeNetwork(ctx context.Context, orgDn, vlan string) (model.CreateResult, error) {
	present := 0

	for _, dn := range networkDns(orgDn) {
		mo, err := r.handle.QueryDn(ctx, dn)
		if err != nil {
			return model.CreateResult{}, err
		}

		if mo != nil {
			present++
		}
	}

	bindings, err := r.templateBindings(ctx, orgDn)
	if err != nil {
		return model.CreateResult{}, err
	}

	// stale VLAN interfaces are removed, the target one is kept
	rebound := false

	for _, t := range vnicTemplates {
		templDn := orgDn + "/lan-conn-templ-" + t.name
		bound := false

		for _, mo := range bindings[templDn] {
			if mo.Attr("name") == vlan {
				bound = true
				continue
			}

			r.handle.RemoveMo(mo)

			rebound = true
		}

		if !bound {
			rebound = true
		}
	}

	poolDn := orgDn + "/mac-pool-" + NetworkObjectName
	r.handle.AddMo(NewMo("macpoolPool", poolDn, map[string]string{
		"name":            NetworkObjectName,
		"assignmentOrder": "sequential",
	}, NewMo("macpoolBlock", poolDn+"/block-"+macPoolFrom+"-"+macPoolTo, map[string]string{
		"from": macPoolFrom,
		"to":   macPoolTo,
	})), true)

	policyDn := orgDn + "/lan-conn-pol-" + NetworkObjectName
	policy := NewMo("vnicLanConnPolicy", policyDn, map[string]string{"name": NetworkObjectName})

	for i, t := range vnicTemplates {
		templDn := orgDn + "/lan-conn-templ-" + t.name
		r.handle.AddMo(NewMo("vnicLanConnTempl", templDn, map[string]string{
			"name":          t.name,
			"switchId":      t.fabric,
			"templType":     "updating-template",
			"identPoolName": NetworkObjectName,
		}, NewMo("vnicEtherIf", templDn+"/if-"+vlan, map[string]string{
			"name":       vlan,
			"defaultNet": "yes",
		})), true)

		policy.Children = append(policy.Children, NewMo("vnicEther", policyDn+"/ether-"+t.ether, map[string]string{
			"name":        t.ether,
			"nwTemplName": t.name,
			"switchId":    t.fabric,
			"order":       fmt.Sprint(i + 1),
		}))
	}

	r.handle.AddMo(policy, true)

	result, err := createResult(r.handle.Commit(ctx))
	if result.Outcome == model.OutcomeCreated && present == len(networkDns(orgDn)) && !rebound {
		result = model.AlreadyExists()
	}

	return result, err
}

// templateBindings returns the VLAN interfaces of the cluster vNIC templates under orgDn, by template dn.
func (r *Repository) templateBindings(ctx context.Context, orgDn string) (map[string][]*ManagedObject, error) {
	mos, err := r.handle.QueryClass(ctx, "vnicEtherIf")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]bool, len(vnicTemplates))
	for _, t := range vnicTemplates {
		templates[orgDn+"/lan-conn-templ-"+t.name] = true
	}

	bindings := map[string][]*ManagedObject{}

	for _, mo := range mos {
		parent := ParentDn(mo.Dn)
		if templates[parent] {
			bindings[parent] = append(bindings[parent], mo)
		}
	}

	return bindings, nil
}

// DeleteKubeNetwork removes the objects CreateKubeNetwork creates.
func (r *Repository) DeleteKubeNetwork(ctx context.Context, orgDn string) (model.DeleteResult, error) {
	return r.remove(ctx, networkDns(orgDn)...)
}

// ListServers returns the blades and rack units known to the plane.
func (r *Repository) ListServers(ctx context.Context) ([]model.ServerRecord, error) {
	blades, err := r.handle.QueryClass(ctx, "computeBlade")
	if err != nil {
		return nil, err
	}

	racks, err := r.handle.QueryClass(ctx, "computeRackUnit")
	if err != nil {
		return nil, err
	}

	servers := make([]model.ServerRecord, 0, len(blades)+len(racks))

	for _, mo := range blades {
		servers = append(servers, model.ServerRecord{
			Kind:       model.KindBlade,
			ChassisID:  mo.Attr("chassisId"),
			Slot:       mo.Attr("slotId"),
			Dn:         mo.Dn,
			Model:      mo.Attr("model"),
			Serial:     mo.Attr("serial"),
			OperPower:  mo.Attr("operPower"),
			AssignedTo: mo.Attr("assignedToDn"),
		})
	}

	for _, mo := range racks {
		servers = append(servers, model.ServerRecord{
			Kind:       model.KindRack,
			RackID:     mo.Attr("id"),
			Dn:         mo.Dn,
			Model:      mo.Attr("model"),
			Serial:     mo.Attr("serial"),
			OperPower:  mo.Attr("operPower"),
			AssignedTo: mo.Attr("assignedToDn"),
		})
	}

	return servers, nil
}

func profileDn(orgDn string, host *model.HostRecord) string {
	return orgDn + "/ls-" + host.Name
}

func vmediaPolicyDn(orgDn string, host *model.HostRecord) string {
	return orgDn + "/mnt-cfg-policy-" + host.Name
}

// CreateServerProfile creates the service profile of host, bound to server, and
// the virtual media policy mounting its boot and autoinstall images from kubamAddress.
func (r *Repository) CreateServerProfile(
	ctx context.Context,
	orgDn string,
	host *model.HostRecord,
	server *model.ServerRecord,
	kubamAddress string,
) (model.CreateResult, error) {
	spDn := profileDn(orgDn, host)

	existing, err := r.handle.QueryDn(ctx, spDn)
	if err != nil {
		return model.CreateResult{}, err
	}

	if existing != nil {
		return model.AlreadyExists(), nil
	}

	policyDn := vmediaPolicyDn(orgDn, host)
	r.handle.AddMo(NewMo("cimcvmediaMountConfigPolicy", policyDn, map[string]string{
		"name":             host.Name,
		"retryOnMountFail": "yes",
	},
		NewMo("cimcvmediaConfigMountEntry", policyDn+"/cfg-mnt-entry-"+host.Name+"-boot", map[string]string{
			"mappingName":     host.Name + "-boot",
			"deviceType":      "cdd",
			"mountProtocol":   "http",
			"remoteIpAddress": kubamAddress,
			"imagePath":       bootImagePath,
			"imageFileName":   host.OS + "-boot.iso",
		}),
		NewMo("cimcvmediaConfigMountEntry", policyDn+"/cfg-mnt-entry-"+host.Name+"-img", map[string]string{
			"mappingName":     host.Name + "-img",
			"deviceType":      "hdd",
			"mountProtocol":   "http",
			"remoteIpAddress": kubamAddress,
			"imagePath":       bootImagePath,
			"imageFileName":   host.Name + ".img",
		}),
	), true)

	r.handle.AddMo(NewMo("lsServer", spDn, map[string]string{
		"name":             host.Name,
		"type":             "instance",
		"descr":            host.Role,
		"usrLbl":           host.IP,
		"vmediaPolicyName": host.Name,
	},
		NewMo("vnicConnDef", spDn+"/conn-def", map[string]string{
			"lanConnPolicyName": NetworkObjectName,
		}),
		NewMo("lsBinding", spDn+"/pn", map[string]string{
			"pnDn":              server.PhysicalDn(),
			"restrictMigration": "no",
		}),
	), false)

	return createResult(r.handle.Commit(ctx))
}

// DeleteServerProfile removes the service profile and virtual media policy of host.
func (r *Repository) DeleteServerProfile(ctx context.Context, orgDn string, host *model.HostRecord) (model.DeleteResult, error) {
	return r.remove(ctx, profileDn(orgDn, host), vmediaPolicyDn(orgDn, host))
}

// remove deletes the objects at dns that exist. The result is AlreadyAbsent
// when none of them exist.
func (r *Repository) remove(ctx context.Context, dns ...string) (model.DeleteResult, error) {
	staged := 0

	for _, dn := range dns {
		mo, err := r.handle.QueryDn(ctx, dn)
		if err != nil {
			return model.DeleteResult{}, err
		}

		if mo == nil {
			continue
		}

		r.handle.RemoveMo(mo)
		staged++
	}

	if staged == 0 {
		return model.AlreadyAbsent(), nil
	}

	err := r.handle.Commit(ctx)
	switch {
	case err == nil:
		return model.Deleted(), nil
	case IsNotFound(err):
		return model.AlreadyAbsent(), nil
	}

	if re, ok := AsRemoteError(err); ok {
		return model.DeleteFailed(re.Code, re.Description), nil
	}

	return model.DeleteResult{Outcome: model.OutcomeFailed}, errors.Wrap(err, "commit failed")
}

// createResult classifies the outcome of a create commit.
func createResult(err error) (model.CreateResult, error) {
	if err == nil {
		return model.Created(), nil
	}

	if IsAlreadyExists(err) {
		return model.AlreadyExists(), nil
	}

	if re, ok := AsRemoteError(err); ok {
		return model.CreateFailed(re.Code, re.Description), nil
	}

	return model.CreateResult{Outcome: model.OutcomeFailed}, errors.Wrap(err, "commit failed")
}
