package ucsm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DryRunStats counts the calls a DryRunPlane has served.
type DryRunStats struct {
	Logins    int
	Logouts   int
	Commits   int
	Mutations int // objects created, modified or deleted
}

// OpenHandles is the number of handles logged in and not yet logged out.
func (s DryRunStats) OpenHandles() int {
	return s.Logins - s.Logouts
}

// DryRunPlane is a simulated, in memory implementation of the Plane interface.
type DryRunPlane struct {
	mu       sync.Mutex
	user     string
	password string
	objects  map[string]*ManagedObject
	stats    DryRunStats
}

// NewDryRunPlane creates a simulated plane holding the default inventory.
func NewDryRunPlane() *DryRunPlane {
	p := &DryRunPlane{
		objects: make(map[string]*ManagedObject),
	}

	p.Seed(getDefaultInventory()...)

	return p
}

// WithCredentials makes Login reject any other user and password.
func (p *DryRunPlane) WithCredentials(user, password string) *DryRunPlane {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.user = user
	p.password = password

	return p
}

// Seed stores objects as if they had been committed.
func (p *DryRunPlane) Seed(mos ...*ManagedObject) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, mo := range mos {
		for _, flat := range flatten([]*ManagedObject{mo.Clone()}) {
			p.objects[flat.Dn] = flat
		}
	}
}

// Lookup returns a copy of the object at dn, nil if absent.
func (p *DryRunPlane) Lookup(dn string) *ManagedObject {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.objects[dn].Clone()
}

// Stats returns the call counters.
func (p *DryRunPlane) Stats() DryRunStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stats
}

// Login simulates authentication.
func (p *DryRunPlane) Login(_ context.Context, user, password, _ string) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.password != "" && (user != p.user || password != p.password) {
		return nil, &RemoteError{Code: ErrCodeAuthentication, Description: "Authentication failed"}
	}

	p.stats.Logins++

	return &dryRunHandle{plane: p, open: true}, nil
}

type dryRunHandle struct {
	plane   *DryRunPlane
	open    bool
	pending []*ManagedObject
}

// Logout simulates logging out, a second call is a no-op.
func (h *dryRunHandle) Logout(_ context.Context) error {
	if !h.open {
		return nil
	}

	h.plane.mu.Lock()
	defer h.plane.mu.Unlock()

	h.open = false
	h.pending = nil
	h.plane.stats.Logouts++

	return nil
}

func (h *dryRunHandle) QueryDn(_ context.Context, dn string) (*ManagedObject, error) {
	if !h.open {
		return nil, ErrNotLoggedIn
	}

	return h.plane.Lookup(dn), nil
}

func (h *dryRunHandle) QueryClass(_ context.Context, classID string) ([]*ManagedObject, error) {
	if !h.open {
		return nil, ErrNotLoggedIn
	}

	h.plane.mu.Lock()
	defer h.plane.mu.Unlock()

	var out []*ManagedObject

	for _, mo := range h.plane.objects {
		if mo.Class == classID {
			out = append(out, mo.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Dn < out[j].Dn })

	return out, nil
}

func (h *dryRunHandle) AddMo(mo *ManagedObject, modifyPresent bool) {
	status := StatusCreated
	if modifyPresent {
		status = StatusCreatedModified
	}

	for _, staged := range flatten([]*ManagedObject{mo.Clone()}) {
		staged.Status = status
		h.pending = append(h.pending, staged)
	}
}

func (h *dryRunHandle) RemoveMo(mo *ManagedObject) {
	h.pending = append(h.pending, &ManagedObject{Class: mo.Class, Dn: mo.Dn, Status: StatusDeleted})
}

// Commit applies the staged changes all or nothing.
func (h *dryRunHandle) Commit(_ context.Context) error {
	if !h.open {
		return ErrNotLoggedIn
	}

	pending := h.pending
	h.pending = nil

	if len(pending) == 0 {
		return nil
	}

	p := h.plane
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.validate(pending); err != nil {
		return err
	}

	for _, mo := range pending {
		p.apply(mo)
	}

	p.stats.Commits++
	p.stats.Mutations += len(pending)

	return nil
}

func (p *DryRunPlane) validate(pending []*ManagedObject) error {
	staged := make(map[string]bool, len(pending))

	for _, mo := range pending {
		_, exists := p.objects[mo.Dn]

		switch mo.Status {
		case StatusCreated:
			if exists {
				return &RemoteError{Code: ErrCodeAlreadyExists, Description: fmt.Sprintf("Object %s already exists", mo.Dn)}
			}
		case StatusDeleted:
			if !exists {
				return &RemoteError{Code: ErrCodeNotFound, Description: fmt.Sprintf("Object %s does not exist", mo.Dn)}
			}

			continue
		}

		parent := ParentDn(mo.Dn)
		if _, ok := p.objects[parent]; parent != "" && !ok && !staged[parent] {
			return &RemoteError{Code: ErrCodeNotFound, Description: fmt.Sprintf("Parent %s of %s does not exist", parent, mo.Dn)}
		}

		staged[mo.Dn] = true
	}

	return nil
}

func (p *DryRunPlane) apply(mo *ManagedObject) {
	if mo.Status == StatusDeleted {
		for dn := range p.objects {
			if dn == mo.Dn || strings.HasPrefix(dn, mo.Dn+"/") {
				delete(p.objects, dn)
			}
		}

		return
	}

	stored := &ManagedObject{Class: mo.Class, Dn: mo.Dn, Attrs: map[string]string{}}
	if existing, ok := p.objects[mo.Dn]; ok {
		stored = existing
	}

	for k, v := range mo.Attrs {
		stored.Attrs[k] = v
	}

	p.objects[mo.Dn] = stored
}

// flatten returns the objects and their descendants without children attached.
func flatten(mos []*ManagedObject) []*ManagedObject {
	var out []*ManagedObject

	for _, mo := range mos {
		if mo == nil {
			continue
		}

		children := mo.Children
		mo.Children = nil

		out = append(out, mo)
		out = append(out, flatten(children)...)
	}

	return out
}

func getDefaultInventory() []*ManagedObject {
	mos := []*ManagedObject{
		NewMo("orgOrg", "org-root", map[string]string{"name": "root"}),
		NewMo("topSystem", "sys", map[string]string{"name": "dryrun-fi"}),
		NewMo("fabricLanCloud", "fabric/lan", nil),
		NewMo("fabricVlan", "fabric/lan/net-default", map[string]string{"name": "default", "id": "1"}),
		NewMo("fabricVlan", "fabric/lan/net-kubam", map[string]string{"name": "kubam", "id": "100"}),
		NewMo("fabricVlan", "fabric/lan/net-storage", map[string]string{"name": "storage", "id": "200"}),
		NewMo("equipmentChassis", "sys/chassis-1", map[string]string{"id": "1"}),
	}

	for slot := 1; slot <= 4; slot++ {
		mos = append(mos, NewMo("computeBlade", fmt.Sprintf("sys/chassis-1/blade-%d", slot), map[string]string{
			"chassisId": "1",
			"slotId":    fmt.Sprint(slot),
			"model":     "UCSB-B200-M4",
			"serial":    fmt.Sprintf("FCH0000B%03d", slot),
			"operPower": "off",
		}))
	}

	for id := 1; id <= 2; id++ {
		mos = append(mos, NewMo("computeRackUnit", fmt.Sprintf("sys/rack-unit-%d", id), map[string]string{
			"id":        fmt.Sprint(id),
			"model":     "UCSC-C220-M4S",
			"serial":    fmt.Sprintf("FCH0000R%03d", id),
			"operPower": "off",
		}))
	}

	return mos
}
