package reconcile

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

var errDeleteRootOrg = errors.New("the root organization cannot be deleted")

// OrgResolver resolves organization names to paths, creating them lazily.
type OrgResolver struct {
	repo       OrgRepository
	defaultOrg string
	logger     *logrus.Entry
}

func NewOrgResolver(repo OrgRepository, defaultOrg string, logger *logrus.Entry) *OrgResolver {
	if defaultOrg == "" {
		defaultOrg = model.DefaultOrg
	}

	return &OrgResolver{
		repo:       repo,
		defaultOrg: defaultOrg,
		logger:     logger,
	}
}

// Path returns the canonical path of name without contacting the plane.
func (r *OrgResolver) Path(name string) string {
	if name == "" {
		name = r.defaultOrg
	}

	return ucsm.OrgDn(name)
}

// Resolve returns the path of name, creating the organization when absent.
// The root organization is never created.
func (r *OrgResolver) Resolve(ctx context.Context, name string) (string, model.CreateResult, error) {
	if name == "" {
		name = r.defaultOrg
	}

	orgDn := ucsm.OrgDn(name)
	if name == model.RootOrg {
		return orgDn, model.AlreadyExists(), nil
	}

	exists, err := r.repo.OrgExists(ctx, orgDn)
	if err != nil {
		return "", model.CreateResult{}, model.NewRemoteError("", err)
	}

	if exists {
		return orgDn, model.AlreadyExists(), nil
	}

	result, err := r.Create(ctx, name)
	if err != nil {
		return "", result, err
	}

	return orgDn, result, nil
}

// Create creates the organization, an existing one is success.
func (r *OrgResolver) Create(ctx context.Context, name string) (model.CreateResult, error) {
	result, err := r.repo.CreateOrg(ctx, name)
	if err != nil {
		return result, model.NewRemoteError("", err)
	}

	if result.Outcome == model.OutcomeFailed {
		return result, remoteFailure(result.Code, result.Description)
	}

	r.logger.WithFields(logrus.Fields{"org": name, "outcome": result.Outcome}).Info("organization resolved")

	return result, nil
}

// Delete removes the organization at orgDn and everything below it, an
// absent organization is success.
func (r *OrgResolver) Delete(ctx context.Context, orgDn string) (model.DeleteResult, error) {
	if orgDn == ucsm.OrgDn(model.RootOrg) {
		return model.DeleteResult{}, model.NewValidationError(errDeleteRootOrg)
	}

	result, err := r.repo.DeleteOrg(ctx, orgDn)
	if err != nil {
		return result, model.NewRemoteError("", err)
	}

	if result.Outcome == model.OutcomeFailed {
		return result, remoteFailure(result.Code, result.Description)
	}

	r.logger.WithFields(logrus.Fields{"org": orgDn, "outcome": result.Outcome}).Info("organization deleted")

	return result, nil
}
