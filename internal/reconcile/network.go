package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/model"
)

// NetworkReconciler creates and removes the cluster network objects bound to the target VLAN.
type NetworkReconciler struct {
	repo   NetworkRepository
	logger *logrus.Entry
}

func NewNetworkReconciler(repo NetworkRepository, logger *logrus.Entry) *NetworkReconciler {
	return &NetworkReconciler{
		repo:   repo,
		logger: logger,
	}
}

// ListVLANs returns the live VLAN inventory.
func (n *NetworkReconciler) ListVLANs(ctx context.Context) ([]model.VLAN, error) {
	vlans, err := n.repo.ListVLANs(ctx)
	if err != nil {
		return nil, model.NewRemoteError("", err)
	}

	return vlans, nil
}

// Validate checks vlan is set and present in the live inventory.
func (n *NetworkReconciler) Validate(ctx context.Context, vlan string) error {
	if vlan == "" {
		return model.NewValidationError(model.ErrNoVLANSelected)
	}

	vlans, err := n.ListVLANs(ctx)
	if err != nil {
		return err
	}

	for i := range vlans {
		if vlans[i].Name == vlan {
			return nil
		}
	}

	return model.NewValidationError(errors.Wrap(model.ErrVLANNotFound, vlan))
}

// Create creates the MAC pool, vNIC templates and LAN connectivity policy
// under orgDn bound to vlan.
func (n *NetworkReconciler) Create(ctx context.Context, orgDn, vlan string) (model.CreateResult, error) {
	if err := n.Validate(ctx, vlan); err != nil {
		return model.CreateResult{}, err
	}

	result, err := n.repo.CreateKubeNetwork(ctx, orgDn, vlan)
	if err != nil {
		return result, model.NewRemoteError("", err)
	}

	if result.Outcome == model.OutcomeFailed {
		return result, remoteFailure(result.Code, result.Description)
	}

	n.logger.WithFields(logrus.Fields{
		"org":     orgDn,
		"vlan":    vlan,
		"outcome": result.Outcome,
	}).Info("cluster network reconciled")

	return result, nil
}

// Destroy removes the objects Create creates, missing objects are success.
func (n *NetworkReconciler) Destroy(ctx context.Context, orgDn string) (model.DeleteResult, error) {
	result, err := n.repo.DeleteKubeNetwork(ctx, orgDn)
	if err != nil {
		return result, model.NewRemoteError("", err)
	}

	if result.Outcome == model.OutcomeFailed {
		return result, remoteFailure(result.Code, result.Description)
	}

	n.logger.WithFields(logrus.Fields{"org": orgDn, "outcome": result.Outcome}).Info("cluster network removed")

	return result, nil
}
