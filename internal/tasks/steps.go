package tasks

import (
	"context"
	"fmt"

	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/reconcile"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

// StepStatus has status about a step, to be reported as part of the overall task.
type StepStatus struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewStepStatus will create a new step status struct
func NewStepStatus(stepName string, state State, details string, err error) *StepStatus {
	status := &StepStatus{
		Step:    stepName,
		Status:  string(state),
		Details: details,
	}

	if err != nil {
		status.Error = err.Error()
	}

	return status
}

func (s *StepStatus) AsLogFields() []any {
	return []any{
		"step", s.Step,
		"status", s.Status,
		"details", s.Details,
		"error", s.Error,
	}
}

// Step is a unit of work. Multiple steps accomplish a task.
type Step interface {
	// Name of this step
	Name() string
	// Run will execute the code to accomplish this step
	Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error)
}

type resolveOrgStep struct {
	name string
}

// ResolveOrgStep resolves the configured org, creating it when absent.
func ResolveOrgStep() Step {
	return &resolveOrgStep{
		name: model.StageOrgResolved,
	}
}

func (t *resolveOrgStep) Name() string {
	return t.name
}

func (t *resolveOrgStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	org, err := data.config.Org(ctx)
	if err != nil {
		return "Failed to read org", model.NewConfigurationError(err)
	}

	orgDn, result, err := set.Orgs.Resolve(ctx, org)
	if err != nil {
		return "Failed to resolve org", err
	}

	// creating the org alone does not make a later failure partial
	data.orgDn = orgDn

	return "Org " + orgDn + " " + string(result.Outcome), nil
}

type lookupOrgStep struct {
	name string
}

// LookupOrgStep resolves the path of the configured org without creating it.
func LookupOrgStep() Step {
	return &lookupOrgStep{
		name: model.StageOrgResolved,
	}
}

func (t *lookupOrgStep) Name() string {
	return t.name
}

func (t *lookupOrgStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	org, err := data.config.Org(ctx)
	if err != nil {
		return "Failed to read org", model.NewConfigurationError(err)
	}

	data.orgDn = set.Orgs.Path(org)

	return "Org " + data.orgDn, nil
}

type validateVLANStep struct {
	name string
}

// ValidateVLANStep checks a target VLAN is configured and present in the live inventory.
func ValidateVLANStep() Step {
	return &validateVLANStep{
		name: model.StageVlanValidated,
	}
}

func (t *validateVLANStep) Name() string {
	return t.name
}

func (t *validateVLANStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	vlan, err := data.config.VLAN(ctx)
	if err != nil {
		return "Failed to read vlan", model.NewConfigurationError(err)
	}

	if vlan == "" {
		return "No vlan selected", model.NewConfigurationError(model.ErrNoVLANSelected)
	}

	if err := set.Networks.Validate(ctx, vlan); err != nil {
		return "Vlan " + vlan + " is not usable", err
	}

	data.vlan = vlan

	return "Vlan " + vlan + " found", nil
}

type createNetworkStep struct {
	name string
}

// CreateNetworkStep creates the cluster network objects bound to the target VLAN.
func CreateNetworkStep() Step {
	return &createNetworkStep{
		name: model.StageNetworkCreated,
	}
}

func (t *createNetworkStep) Name() string {
	return t.name
}

func (t *createNetworkStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	result, err := set.Networks.Create(ctx, data.orgDn, data.vlan)
	if err != nil {
		return "Failed to create cluster network", err
	}

	data.mutated = data.mutated || result.Outcome.Mutated()

	return "Cluster network " + string(result.Outcome), nil
}

type validateInputsStep struct {
	name string
}

// ValidateInputsStep reads the hosts, server selection and kubam address and
// checks them before anything is created.
func ValidateInputsStep() Step {
	return &validateInputsStep{
		name: model.StageInputsValidated,
	}
}

func (t *validateInputsStep) Name() string {
	return t.name
}

func (t *validateInputsStep) Run(ctx context.Context, _ *reconcile.Set, data *sharedData) (string, error) {
	hosts, err := data.config.Hosts(ctx)
	if err != nil {
		return "Failed to read hosts", model.NewConfigurationError(err)
	}

	if len(hosts) == 0 {
		return "No hosts configured", model.NewConfigurationError(model.ErrNoHosts)
	}

	servers, err := data.config.Servers(ctx)
	if err != nil {
		return "Failed to read servers", model.NewConfigurationError(err)
	}

	kubamIP, err := data.config.KubamIP(ctx)
	if err != nil {
		return "Failed to read kubam address", model.NewConfigurationError(err)
	}

	if kubamIP == "" {
		return "No kubam address configured", model.NewConfigurationError(model.ErrNoKubamAddress)
	}

	if err := reconcile.ValidatePairing(hosts, servers); err != nil {
		return "Hosts cannot be paired with the selected servers", err
	}

	data.hosts = hosts
	data.servers = servers
	data.kubamIP = kubamIP

	return fmt.Sprintf("%d hosts to deploy", len(hosts)), nil
}

type createServerResourcesStep struct {
	name string
}

// CreateServerResourcesStep creates the resources of every host on its paired server.
func CreateServerResourcesStep() Step {
	return &createServerResourcesStep{
		name: model.StageServerResourcesCreated,
	}
}

func (t *createServerResourcesStep) Name() string {
	return t.name
}

func (t *createServerResourcesStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	report, err := set.Servers.Create(ctx, data.orgDn, data.hosts, data.servers, data.kubamIP)
	if report != nil {
		data.report = report
		data.mutated = data.mutated || report.Mutated()
	}

	if err != nil {
		return "Failed to create host resources", err
	}

	return "Host resources reconciled", nil
}

type readHostsStep struct {
	name string
}

// ReadHostsStep loads the hosts to destroy, none stops the task as a no-op.
func ReadHostsStep() Step {
	return &readHostsStep{
		name: model.StageHostsRead,
	}
}

func (t *readHostsStep) Name() string {
	return t.name
}

func (t *readHostsStep) Run(ctx context.Context, _ *reconcile.Set, data *sharedData) (string, error) {
	hosts, err := data.config.Hosts(ctx)
	if err != nil {
		return "Failed to read hosts", model.NewConfigurationError(err)
	}

	if len(hosts) == 0 {
		return "No hosts to destroy", errNoop
	}

	data.hosts = hosts

	return "Hosts read", nil
}

type deleteServerResourcesStep struct {
	name string
}

// DeleteServerResourcesStep removes the resources of every host.
func DeleteServerResourcesStep() Step {
	return &deleteServerResourcesStep{
		name: model.StageServerResourcesDeleted,
	}
}

func (t *deleteServerResourcesStep) Name() string {
	return t.name
}

func (t *deleteServerResourcesStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	report, err := set.Servers.Delete(ctx, data.orgDn, data.hosts)
	if report != nil {
		data.report = report
		data.mutated = data.mutated || report.Mutated()
	}

	if err != nil {
		// the cluster network is left behind
		return "Failed to remove host resources", model.AtStage(t.name, err, true)
	}

	return "Host resources removed", nil
}

type deleteNetworkStep struct {
	name string
}

// DeleteNetworkStep removes the cluster network objects.
func DeleteNetworkStep() Step {
	return &deleteNetworkStep{
		name: model.StageNetworkDeleted,
	}
}

func (t *deleteNetworkStep) Name() string {
	return t.name
}

func (t *deleteNetworkStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	result, err := set.Networks.Destroy(ctx, data.orgDn)
	if err != nil {
		return "Failed to remove cluster network", err
	}

	data.mutated = data.mutated || result.Outcome.Mutated()

	return "Cluster network " + string(result.Outcome), nil
}

type deleteOrgStep struct {
	name string
}

// DeleteOrgStep removes the org once emptied. The root org is kept.
func DeleteOrgStep() Step {
	return &deleteOrgStep{
		name: model.StageOrgDeleted,
	}
}

func (t *deleteOrgStep) Name() string {
	return t.name
}

func (t *deleteOrgStep) Run(ctx context.Context, set *reconcile.Set, data *sharedData) (string, error) {
	if data.orgDn == ucsm.OrgDn(model.RootOrg) {
		return "Root org kept", nil
	}

	result, err := set.Orgs.Delete(ctx, data.orgDn)
	if err != nil {
		return "Failed to remove org", err
	}

	data.mutated = data.mutated || result.Outcome.Mutated()

	return "Org " + data.orgDn + " " + string(result.Outcome), nil
}
