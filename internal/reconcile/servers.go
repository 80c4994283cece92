package reconcile

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/selection"
)

// HostOutcome is the result of reconciling the resources of one host.
type HostOutcome struct {
	Host    string        `json:"host"`
	Server  string        `json:"server,omitempty"`
	Outcome model.Outcome `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// Report holds one outcome per host, in host order.
type Report struct {
	Noop  bool          `json:"noop,omitempty"`
	Hosts []HostOutcome `json:"hosts"`
}

// Mutated reports whether any host changed remote state.
func (r *Report) Mutated() bool {
	for i := range r.Hosts {
		if r.Hosts[i].Outcome.Mutated() {
			return true
		}
	}

	return false
}

// Failed returns the outcome of the failed host, nil when none failed.
func (r *Report) Failed() *HostOutcome {
	for i := range r.Hosts {
		if r.Hosts[i].Outcome == model.OutcomeFailed {
			return &r.Hosts[i]
		}
	}

	return nil
}

func newReport(hosts []model.HostRecord) *Report {
	report := &Report{Hosts: make([]HostOutcome, len(hosts))}
	for i := range hosts {
		report.Hosts[i] = HostOutcome{Host: hosts[i].Name, Outcome: model.OutcomeSkipped}
	}

	return report
}

// ServerReconciler creates and removes the per host resources of the selected servers.
type ServerReconciler struct {
	repo   ServerRepository
	logger *logrus.Entry
}

func NewServerReconciler(repo ServerRepository, logger *logrus.Entry) *ServerReconciler {
	return &ServerReconciler{
		repo:   repo,
		logger: logger,
	}
}

// ListServers returns the live blade and rack server inventory.
func (s *ServerReconciler) ListServers(ctx context.Context) ([]model.ServerRecord, error) {
	servers, err := s.repo.ListServers(ctx)
	if err != nil {
		return nil, model.NewRemoteError("", err)
	}

	return servers, nil
}

// ValidatePairing checks every host is named and has a selected server to pair with.
func ValidatePairing(hosts []model.HostRecord, servers model.SelectionSet) error {
	for i := range hosts {
		if hosts[i].Name == "" {
			return model.NewValidationError(errors.Wrap(model.ErrHostWithoutName, fmt.Sprintf("host %d", i)))
		}
	}

	paired := selection.Expand(servers)
	if len(hosts) > len(paired) {
		return model.NewValidationError(
			errors.Wrap(model.ErrMoreHostsThanServers, fmt.Sprintf("%d hosts, %d servers", len(hosts), len(paired))),
		)
	}

	return nil
}

// Create provisions the resources of each host, paired in order with the
// selected servers. The first failure stops the run, the remaining hosts are
// reported skipped and hosts already created are left in place.
func (s *ServerReconciler) Create(
	ctx context.Context,
	orgDn string,
	hosts []model.HostRecord,
	servers model.SelectionSet,
	kubamAddress string,
) (*Report, error) {
	if err := ValidatePairing(hosts, servers); err != nil {
		return nil, err
	}

	paired := selection.Expand(servers)
	report := newReport(hosts)

	for i := range hosts {
		host := &hosts[i]
		server := &paired[i]
		outcome := &report.Hosts[i]
		outcome.Server = server.Identity()

		logger := s.logger.WithFields(logrus.Fields{"org": orgDn, "host": host.Name}).WithFields(log.Fields(server.AsLogFields()))

		result, err := s.repo.CreateServerProfile(ctx, orgDn, host, server, kubamAddress)
		if err == nil && result.Outcome == model.OutcomeFailed {
			err = remoteFailure(result.Code, result.Description)
		}

		if err != nil {
			outcome.Outcome = model.OutcomeFailed
			outcome.Error = err.Error()

			logger.WithError(err).Error("host resources failed")

			return report, s.hostError(report, host, err)
		}

		outcome.Outcome = result.Outcome
		logger.WithField("outcome", result.Outcome).Info("host resources reconciled")
	}

	return report, nil
}

// Delete removes the resources of each host, absent resources are success.
// No hosts is a no-op that does not contact the plane.
func (s *ServerReconciler) Delete(ctx context.Context, orgDn string, hosts []model.HostRecord) (*Report, error) {
	if len(hosts) == 0 {
		return &Report{Noop: true, Hosts: []HostOutcome{}}, nil
	}

	report := newReport(hosts)

	for i := range hosts {
		host := &hosts[i]
		outcome := &report.Hosts[i]

		logger := s.logger.WithFields(logrus.Fields{"org": orgDn, "host": host.Name})

		result, err := s.repo.DeleteServerProfile(ctx, orgDn, host)
		if err == nil && result.Outcome == model.OutcomeFailed {
			err = remoteFailure(result.Code, result.Description)
		}

		if err != nil {
			outcome.Outcome = model.OutcomeFailed
			outcome.Error = err.Error()

			logger.WithError(err).Error("host resources removal failed")

			return report, s.hostError(report, host, err)
		}

		outcome.Outcome = result.Outcome
		logger.WithField("outcome", result.Outcome).Info("host resources removed")
	}

	return report, nil
}

// hostError names the failed host and flags the error partial when earlier hosts changed state.
func (s *ServerReconciler) hostError(report *Report, host *model.HostRecord, err error) error {
	wrapped := model.NewRemoteError("", errors.Wrap(err, "host "+host.Name))
	if report.Mutated() {
		return model.AtStage("", wrapped, true)
	}

	return wrapped
}
