package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/model"
)

func TestNetworkValidate(t *testing.T) {
	ctx := context.Background()
	set, _ := dryRunSet(t)

	err := set.Networks.Validate(ctx, "")
	assert.ErrorIs(t, err, model.ErrNoVLANSelected)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	err = set.Networks.Validate(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrVLANNotFound)
	assert.Equal(t, model.KindValidation, model.KindOf(err))

	assert.NoError(t, set.Networks.Validate(ctx, "kubam"))
}

func TestNetworkCreateDestroy(t *testing.T) {
	ctx := context.Background()
	set, plane := dryRunSet(t)

	orgDn, _, err := set.Orgs.Resolve(ctx, "")
	require.NoError(t, err)

	mutations := plane.Stats().Mutations

	_, err = set.Networks.Create(ctx, orgDn, "")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	assert.Equal(t, mutations, plane.Stats().Mutations)

	created, err := set.Networks.Create(ctx, orgDn, "kubam")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, created.Outcome)
	assert.NotNil(t, plane.Lookup(orgDn+"/lan-conn-pol-kubam"))

	created, err = set.Networks.Create(ctx, orgDn, "kubam")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyExists, created.Outcome)

	deleted, err := set.Networks.Destroy(ctx, orgDn)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDeleted, deleted.Outcome)

	deleted, err = set.Networks.Destroy(ctx, orgDn)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyAbsent, deleted.Outcome)
}

func TestNetworkCreateRemoteFailure(t *testing.T) {
	set, _ := dryRunSet(t)

	// org was never created, the plane rejects the missing parent
	_, err := set.Networks.Create(context.Background(), "org-root/org-missing", "kubam")
	assert.Equal(t, model.KindRemote, model.KindOf(err))
}
