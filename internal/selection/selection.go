// Package selection translates between the inventory view of servers, where each
// server carries a selected flag, and the compact selection set kept in the
// configuration store.
package selection

import (
	"github.com/metal-toolbox/kubam/internal/model"
)

// ToAPIView returns a copy of live with the selected flag of every server
// recomputed against persisted.
func ToAPIView(live []model.ServerRecord, persisted model.SelectionSet) []model.ServerRecord {
	blades := make(map[[2]string]struct{}, len(persisted.Blades))
	for _, b := range persisted.Blades {
		chassis, slot, ok := model.ParseBlade(b)
		if !ok {
			continue
		}

		blades[[2]string{chassis, slot}] = struct{}{}
	}

	racks := make(map[string]struct{}, len(persisted.RackServers))
	for _, r := range persisted.RackServers {
		racks[r] = struct{}{}
	}

	out := make([]model.ServerRecord, len(live))
	for i, server := range live {
		server.Selected = false

		switch server.Kind {
		case model.KindBlade:
			_, server.Selected = blades[[2]string{server.ChassisID, server.Slot}]
		case model.KindRack:
			_, server.Selected = racks[server.RackID]
		}

		out[i] = server
	}

	return out
}

// ToPersistedView collects the selected servers into a selection set.
// Servers of an unrecognized kind are dropped.
func ToPersistedView(servers []model.ServerRecord) model.SelectionSet {
	set := model.SelectionSet{}

	for i := range servers {
		if !servers[i].Selected {
			continue
		}

		switch servers[i].Kind {
		case model.KindBlade:
			set.Blades = append(set.Blades, servers[i].Identity())
		case model.KindRack:
			set.RackServers = append(set.RackServers, servers[i].Identity())
		}
	}

	return set
}

// Unrecognized returns the selected servers ToPersistedView would drop.
func Unrecognized(servers []model.ServerRecord) []model.ServerRecord {
	var out []model.ServerRecord

	for _, s := range servers {
		if s.Selected && s.Kind != model.KindBlade && s.Kind != model.KindRack {
			out = append(out, s)
		}
	}

	return out
}

// Expand turns a selection set into server records, blades first then rack
// servers, each in persisted order. Malformed blade identities are skipped.
func Expand(set model.SelectionSet) []model.ServerRecord {
	out := make([]model.ServerRecord, 0, len(set.Blades)+len(set.RackServers))

	for _, b := range set.Blades {
		chassis, slot, ok := model.ParseBlade(b)
		if !ok {
			continue
		}

		out = append(out, model.ServerRecord{
			Kind:      model.KindBlade,
			ChassisID: chassis,
			Slot:      slot,
			Selected:  true,
		})
	}

	for _, r := range set.RackServers {
		out = append(out, model.ServerRecord{
			Kind:     model.KindRack,
			RackID:   r,
			Selected: true,
		})
	}

	return out
}

// MarkVLANs returns a copy of vlans where exactly the VLAN named target is selected.
// An empty target selects nothing.
func MarkVLANs(vlans []model.VLAN, target string) []model.VLAN {
	out := make([]model.VLAN, len(vlans))
	for i, vlan := range vlans {
		vlan.Selected = target != "" && vlan.Name == target
		out[i] = vlan
	}

	return out
}
