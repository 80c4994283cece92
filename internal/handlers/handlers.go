package handlers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/selection"
	"github.com/metal-toolbox/kubam/internal/session"
	"github.com/metal-toolbox/kubam/internal/store"
	"github.com/metal-toolbox/kubam/internal/tasks"
)

// Class is the outcome class of an operation.
type Class string

const (
	ClassOK               Class = "ok"
	ClassNoop             Class = "noop"
	ClassNotAuthenticated Class = "not-authenticated"
	ClassInvalid          Class = "invalid"
	ClassRemoteFailure    Class = "remote-failure"
	ClassPartialFailure   Class = "partial-failure"
	ClassInternal         Class = "internal"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is returned by every operation.
type Result struct {
	Status  string `json:"status"`
	Class   Class  `json:"class"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Failed reports whether the operation failed.
func (r *Result) Failed() bool {
	return r.Status == StatusError
}

// Sessions opens management plane sessions and verifies credentials.
type Sessions interface {
	tasks.SessionManager
	Verify(ctx context.Context, creds *model.Credentials) error
	WithSession(ctx context.Context, fn func(ctx context.Context, s *session.Session) error) error
}

// CredentialsView is the outward view of the stored credentials, the password redacted.
type CredentialsView struct {
	Authenticated bool               `json:"authenticated"`
	Credentials   *model.Credentials `json:"credentials,omitempty"`
}

type NetworksView struct {
	VLANs    []model.VLAN    `json:"vlans"`
	Networks []model.Network `json:"network"`
}

type ServersView struct {
	Servers []model.ServerRecord `json:"servers"`
	Hosts   []model.HostRecord   `json:"hosts"`
}

// Settings are the cluster wide deployment settings.
type Settings struct {
	KubamIP string   `json:"kubam_ip"`
	Keys    []string `json:"keys"`
	Proxy   string   `json:"proxy,omitempty"`
	Org     string   `json:"org,omitempty"`
}

// Handler implements the operations exposed to callers on top of the
// configuration store and the management plane.
type Handler struct {
	repository   store.Repository
	sessions     Sessions
	reconcilers  tasks.ReconcilerFactory
	orchestrator *tasks.Orchestrator
	logger       *logrus.Entry
}

// NewHandler returns a Handler. Deploy and destroy report their progress to publisher.
func NewHandler(
	repository store.Repository,
	sessions Sessions,
	reconcilers tasks.ReconcilerFactory,
	publisher tasks.StatusPublisher,
	logger *logrus.Entry,
) *Handler {
	return &Handler{
		repository:   repository,
		sessions:     sessions,
		reconcilers:  reconcilers,
		orchestrator: tasks.NewOrchestrator(sessions, repository, reconcilers, publisher, logger),
		logger:       logger,
	}
}

// CredentialsStatus returns the stored credentials with the password redacted.
func (h *Handler) CredentialsStatus(ctx context.Context) Result {
	creds, err := h.repository.Credentials(ctx)
	if err != nil {
		return h.fail("credentials status", err)
	}

	return ok("", &CredentialsView{
		Authenticated: creds.Complete(),
		Credentials:   creds.Redact(),
	})
}

// Login verifies creds against the management plane and stores them.
func (h *Handler) Login(ctx context.Context, creds *model.Credentials) Result {
	if err := h.sessions.Verify(ctx, creds); err != nil {
		return h.fail("login", err)
	}

	if err := h.repository.UpdateCredentials(ctx, creds); err != nil {
		return h.fail("login", err)
	}

	h.logger.WithFields(log.Fields(creds.AsLogFields())).Info("credentials stored")

	return ok("Logged in to UCS", &CredentialsView{Authenticated: true, Credentials: creds.Redact()})
}

// Logout forgets the stored credentials.
func (h *Handler) Logout(ctx context.Context) Result {
	if err := h.repository.ClearCredentials(ctx); err != nil {
		return h.fail("logout", err)
	}

	return ok("Logged out of UCS", nil)
}

// GetNetworks lists the live VLANs, flagging the selected one, along with the
// stored network settings.
func (h *Handler) GetNetworks(ctx context.Context) Result {
	target, err := h.repository.VLAN(ctx)
	if err != nil {
		return h.fail("get networks", err)
	}

	networks, err := h.repository.Networks(ctx)
	if err != nil {
		return h.fail("get networks", err)
	}

	var vlans []model.VLAN

	err = h.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		vlans, err = h.reconcilers(s.Handle()).Networks.ListVLANs(ctx)
		return err
	})
	if err != nil {
		return h.fail("get networks", err)
	}

	return ok("", &NetworksView{
		VLANs:    selection.MarkVLANs(vlans, target),
		Networks: networks,
	})
}

// SelectVLAN stores the target VLAN.
func (h *Handler) SelectVLAN(ctx context.Context, vlan string) Result {
	if vlan == "" {
		return h.fail("select vlan", model.NewValidationError(model.ErrNoVLANSelected))
	}

	if err := h.repository.UpdateVLAN(ctx, vlan); err != nil {
		return h.fail("select vlan", err)
	}

	return ok("Vlan "+vlan+" selected", nil)
}

// UpdateNetworks stores the target VLAN and the network settings handed to the hosts.
func (h *Handler) UpdateNetworks(ctx context.Context, vlan string, networks []model.Network) Result {
	if vlan == "" {
		return h.fail("update networks", model.NewValidationError(model.ErrNoVLANSelected))
	}

	if err := h.repository.UpdateVLAN(ctx, vlan); err != nil {
		return h.fail("update networks", err)
	}

	if err := h.repository.UpdateNetworks(ctx, networks); err != nil {
		return h.fail("update networks", err)
	}

	return ok("Networks updated", nil)
}

// GetServers lists the live servers, flagging the selected ones, along with the stored hosts.
func (h *Handler) GetServers(ctx context.Context) Result {
	persisted, err := h.repository.Servers(ctx)
	if err != nil {
		return h.fail("get servers", err)
	}

	hosts, err := h.repository.Hosts(ctx)
	if err != nil {
		return h.fail("get servers", err)
	}

	var live []model.ServerRecord

	err = h.sessions.WithSession(ctx, func(ctx context.Context, s *session.Session) error {
		live, err = h.reconcilers(s.Handle()).Servers.ListServers(ctx)
		return err
	})
	if err != nil {
		return h.fail("get servers", err)
	}

	return ok("", &ServersView{
		Servers: selection.ToAPIView(live, persisted),
		Hosts:   hosts,
	})
}

// SelectServers stores the selected servers and, when hosts is not nil, the hosts.
// A selection without any recognized server keeps the stored one.
func (h *Handler) SelectServers(ctx context.Context, servers []model.ServerRecord, hosts []model.HostRecord) Result {
	for _, s := range selection.Unrecognized(servers) {
		h.logger.WithFields(logrus.Fields{
			"kind": string(s.Kind),
			"dn":   s.Dn,
		}).Warn("ignoring selected server of unsupported kind")
	}

	set := selection.ToPersistedView(servers)

	if !set.Empty() {
		if err := h.repository.UpdateServers(ctx, set); err != nil {
			return h.fail("select servers", err)
		}
	}

	if hosts != nil {
		if err := h.repository.UpdateHosts(ctx, hosts); err != nil {
			return h.fail("select servers", err)
		}
	}

	return ok("Servers selected", set)
}

// Deploy provisions the org, the cluster network and the resources of every host.
func (h *Handler) Deploy(ctx context.Context) Result {
	return h.taskResult("deploy", func() (*tasks.TaskStatus, error) {
		return h.orchestrator.Deploy(ctx)
	})
}

// Destroy removes what Deploy created.
func (h *Handler) Destroy(ctx context.Context, opts tasks.DestroyOptions) Result {
	return h.taskResult("destroy", func() (*tasks.TaskStatus, error) {
		return h.orchestrator.Destroy(ctx, opts)
	})
}

func (h *Handler) taskResult(op string, run func() (*tasks.TaskStatus, error)) Result {
	status, err := run()
	if err != nil {
		result := h.fail(op, err)
		result.Data = status

		return result
	}

	result := ok(status.Details, status)
	if status.Noop {
		result.Class = ClassNoop
	}

	return result
}

func (h *Handler) KubamIP(ctx context.Context) Result {
	ip, err := h.repository.KubamIP(ctx)
	if err != nil {
		return h.fail("get kubam ip", err)
	}

	return ok("", map[string]string{"kubam_ip": ip})
}

func (h *Handler) UpdateKubamIP(ctx context.Context, ip string) Result {
	if ip == "" {
		return h.fail("update kubam ip", model.NewValidationError(model.ErrNoKubamAddress))
	}

	if err := h.repository.UpdateKubamIP(ctx, ip); err != nil {
		return h.fail("update kubam ip", err)
	}

	return ok("Kubam IP updated", nil)
}

func (h *Handler) Org(ctx context.Context) Result {
	org, err := h.repository.Org(ctx)
	if err != nil {
		return h.fail("get org", err)
	}

	return ok("", map[string]string{"org": org})
}

// UpdateOrg stores the target org, empty falls back to the default org at deploy time.
func (h *Handler) UpdateOrg(ctx context.Context, org string) Result {
	if err := h.repository.UpdateOrg(ctx, org); err != nil {
		return h.fail("update org", err)
	}

	return ok("Org updated", nil)
}

func (h *Handler) Proxy(ctx context.Context) Result {
	proxy, err := h.repository.Proxy(ctx)
	if err != nil {
		return h.fail("get proxy", err)
	}

	return ok("", map[string]string{"proxy": proxy})
}

func (h *Handler) UpdateProxy(ctx context.Context, proxy string) Result {
	if err := h.repository.UpdateProxy(ctx, proxy); err != nil {
		return h.fail("update proxy", err)
	}

	return ok("Proxy updated", nil)
}

func (h *Handler) PublicKeys(ctx context.Context) Result {
	keys, err := h.repository.PublicKeys(ctx)
	if err != nil {
		return h.fail("get public keys", err)
	}

	return ok("", map[string][]string{"keys": keys})
}

func (h *Handler) UpdatePublicKeys(ctx context.Context, keys []string) Result {
	if err := h.repository.UpdatePublicKeys(ctx, keys); err != nil {
		return h.fail("update public keys", err)
	}

	return ok("Public keys updated", nil)
}

func (h *Handler) ISOMap(ctx context.Context) Result {
	isos, err := h.repository.ISOMap(ctx)
	if err != nil {
		return h.fail("get iso map", err)
	}

	return ok("", map[string][]model.ISOMapping{"iso_map": isos})
}

// UpdateISOMap stores the os to ISO image mapping. Every entry needs both fields.
func (h *Handler) UpdateISOMap(ctx context.Context, isos []model.ISOMapping) Result {
	for _, iso := range isos {
		if iso.OS == "" || iso.File == "" {
			return h.fail("update iso map", model.NewValidationError(
				errors.Wrap(model.ErrInvalidRequest, "iso map entries need os and file"),
			))
		}
	}

	if err := h.repository.UpdateISOMap(ctx, isos); err != nil {
		return h.fail("update iso map", err)
	}

	return ok("ISO map updated", nil)
}

// Settings returns the cluster wide deployment settings.
func (h *Handler) Settings(ctx context.Context) Result {
	settings := &Settings{}

	var err error
	if settings.KubamIP, err = h.repository.KubamIP(ctx); err != nil {
		return h.fail("get settings", err)
	}

	if settings.Keys, err = h.repository.PublicKeys(ctx); err != nil {
		return h.fail("get settings", err)
	}

	if settings.Proxy, err = h.repository.Proxy(ctx); err != nil {
		return h.fail("get settings", err)
	}

	if settings.Org, err = h.repository.Org(ctx); err != nil {
		return h.fail("get settings", err)
	}

	return ok("", settings)
}

// UpdateSettings stores the kubam address and public keys, both required, and
// the proxy and org when set.
func (h *Handler) UpdateSettings(ctx context.Context, settings *Settings) Result {
	switch {
	case settings == nil:
		return h.fail("update settings", model.NewValidationError(model.ErrInvalidRequest))
	case settings.KubamIP == "":
		return h.fail("update settings", model.NewValidationError(errors.Wrap(model.ErrInvalidRequest, "kubam_ip is required")))
	case len(settings.Keys) == 0:
		return h.fail("update settings", model.NewValidationError(errors.Wrap(model.ErrInvalidRequest, "keys are required")))
	}

	if err := h.repository.UpdateKubamIP(ctx, settings.KubamIP); err != nil {
		return h.fail("update settings", err)
	}

	if err := h.repository.UpdatePublicKeys(ctx, settings.Keys); err != nil {
		return h.fail("update settings", err)
	}

	if settings.Proxy != "" {
		if err := h.repository.UpdateProxy(ctx, settings.Proxy); err != nil {
			return h.fail("update settings", err)
		}
	}

	if settings.Org != "" {
		if err := h.repository.UpdateOrg(ctx, settings.Org); err != nil {
			return h.fail("update settings", err)
		}
	}

	return ok("Settings updated", nil)
}

// Classify maps an operation error to its result class.
func Classify(err error) Class {
	if err == nil {
		return ClassOK
	}

	kind := model.KindOf(err)

	switch {
	case kind == model.KindAuthentication:
		return ClassNotAuthenticated
	case kind == model.KindConfiguration &&
		(errors.Is(err, model.ErrNotAuthenticated) || errors.Is(err, model.ErrIncompleteCredentials)):
		return ClassNotAuthenticated
	case model.IsPartial(err):
		return ClassPartialFailure
	case kind == model.KindConfiguration, kind == model.KindValidation:
		return ClassInvalid
	case kind == model.KindRemote:
		return ClassRemoteFailure
	default:
		return ClassInternal
	}
}

func (h *Handler) fail(op string, err error) Result {
	class := Classify(err)

	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"operation": op,
		"class":     string(class),
	})

	if class == ClassInternal {
		entry.Error("operation failed")
	} else {
		entry.Warn("operation failed")
	}

	return Result{
		Status:  StatusError,
		Class:   class,
		Message: err.Error(),
	}
}

func ok(message string, data any) Result {
	return Result{
		Status:  StatusOK,
		Class:   ClassOK,
		Message: message,
		Data:    data,
	}
}
