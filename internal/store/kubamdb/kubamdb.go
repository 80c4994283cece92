package kubamdb

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/metal-toolbox/kubam/internal/model"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Document is the on disk layout of the configuration store.
type Document struct {
	UCSM       UCSMSection        `yaml:"ucsm,omitempty"`
	Network    []model.Network    `yaml:"network,omitempty"`
	Hosts      []model.HostRecord `yaml:"hosts,omitempty"`
	Org        string             `yaml:"org,omitempty"`
	KubamIP    string             `yaml:"kubam_ip,omitempty"`
	Proxy      string             `yaml:"proxy,omitempty"`
	PublicKeys []string           `yaml:"public_keys,omitempty"`
	ISOMap     []model.ISOMapping `yaml:"iso_map,omitempty"`
}

type UCSMSection struct {
	Credentials *model.Credentials `yaml:"credentials,omitempty"`
	Network     UCSMNetwork        `yaml:"network,omitempty"`
	Servers     model.SelectionSet `yaml:"servers,omitempty"`
}

type UCSMNetwork struct {
	VLAN string `yaml:"vlan,omitempty"`
}

// Store keeps the Document in a YAML file. Writes are serialized and atomic.
type Store struct {
	mu   sync.Mutex
	path string
	doc  *Document
}

// New returns a store backed by the file at path, the file is created on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// load returns the cached document, reading it on first use. The caller holds s.mu.
func (s *Store) load() (*Document, error) {
	if s.doc != nil {
		return s.doc, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.doc = &Document{}
			return s.doc, nil
		}

		return nil, errors.Wrap(model.ErrStoreRead, err.Error())
	}

	doc := &Document{}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(model.ErrStoreRead, s.path+": "+err.Error())
	}

	s.doc = doc

	return s.doc, nil
}

// view hands fn a copy of the document.
func (s *Store) view(fn func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	snapshot, err := copystructure.Copy(doc)
	if err != nil {
		return errors.Wrap(model.ErrStoreRead, err.Error())
	}

	fn(snapshot.(*Document))

	return nil
}

// update applies fn to a copy of the document and persists it, the cached
// document is only replaced once the file is written.
func (s *Store) update(fn func(doc *Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	next, err := copystructure.Copy(doc)
	if err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	updated := next.(*Document)
	fn(updated)

	if err := s.write(updated); err != nil {
		return err
	}

	s.doc = updated

	return nil
}

func (s *Store) write(doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	// no-op once renamed
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(model.ErrStoreWrite, err.Error())
	}

	return nil
}

func (s *Store) Credentials(_ context.Context) (creds *model.Credentials, err error) {
	err = s.view(func(doc *Document) { creds = doc.UCSM.Credentials })
	return creds, err
}

func (s *Store) UpdateCredentials(_ context.Context, creds *model.Credentials) error {
	return s.update(func(doc *Document) {
		if creds == nil {
			doc.UCSM.Credentials = nil
			return
		}

		c := *creds
		doc.UCSM.Credentials = &c
	})
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	return s.UpdateCredentials(ctx, nil)
}

func (s *Store) VLAN(_ context.Context) (vlan string, err error) {
	err = s.view(func(doc *Document) { vlan = doc.UCSM.Network.VLAN })
	return vlan, err
}

func (s *Store) UpdateVLAN(_ context.Context, vlan string) error {
	return s.update(func(doc *Document) { doc.UCSM.Network.VLAN = vlan })
}

func (s *Store) Networks(_ context.Context) (networks []model.Network, err error) {
	err = s.view(func(doc *Document) { networks = doc.Network })
	return networks, err
}

func (s *Store) UpdateNetworks(_ context.Context, networks []model.Network) error {
	return s.update(func(doc *Document) { doc.Network = append([]model.Network(nil), networks...) })
}

func (s *Store) Servers(_ context.Context) (servers model.SelectionSet, err error) {
	err = s.view(func(doc *Document) { servers = doc.UCSM.Servers })
	return servers, err
}

func (s *Store) UpdateServers(_ context.Context, servers model.SelectionSet) error {
	return s.update(func(doc *Document) {
		doc.UCSM.Servers = model.SelectionSet{
			Blades:      append([]string(nil), servers.Blades...),
			RackServers: append([]string(nil), servers.RackServers...),
		}
	})
}

func (s *Store) Hosts(_ context.Context) (hosts []model.HostRecord, err error) {
	err = s.view(func(doc *Document) { hosts = doc.Hosts })
	return hosts, err
}

func (s *Store) UpdateHosts(_ context.Context, hosts []model.HostRecord) error {
	return s.update(func(doc *Document) { doc.Hosts = append([]model.HostRecord(nil), hosts...) })
}

func (s *Store) Org(_ context.Context) (org string, err error) {
	err = s.view(func(doc *Document) { org = doc.Org })
	return org, err
}

func (s *Store) UpdateOrg(_ context.Context, org string) error {
	return s.update(func(doc *Document) { doc.Org = org })
}

func (s *Store) KubamIP(_ context.Context) (ip string, err error) {
	err = s.view(func(doc *Document) { ip = doc.KubamIP })
	return ip, err
}

func (s *Store) UpdateKubamIP(_ context.Context, ip string) error {
	return s.update(func(doc *Document) { doc.KubamIP = ip })
}

func (s *Store) Proxy(_ context.Context) (proxy string, err error) {
	err = s.view(func(doc *Document) { proxy = doc.Proxy })
	return proxy, err
}

func (s *Store) UpdateProxy(_ context.Context, proxy string) error {
	return s.update(func(doc *Document) { doc.Proxy = proxy })
}

func (s *Store) PublicKeys(_ context.Context) (keys []string, err error) {
	err = s.view(func(doc *Document) { keys = doc.PublicKeys })
	return keys, err
}

func (s *Store) UpdatePublicKeys(_ context.Context, keys []string) error {
	return s.update(func(doc *Document) { doc.PublicKeys = append([]string(nil), keys...) })
}

func (s *Store) ISOMap(_ context.Context) (isos []model.ISOMapping, err error) {
	err = s.view(func(doc *Document) { isos = doc.ISOMap })
	return isos, err
}

func (s *Store) UpdateISOMap(_ context.Context, isos []model.ISOMapping) error {
	return s.update(func(doc *Document) { doc.ISOMap = append([]model.ISOMapping(nil), isos...) })
}
