package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/model"
)

func TestOrgResolveIdempotent(t *testing.T) {
	ctx := context.Background()
	set, plane := dryRunSet(t)

	orgDn, result, err := set.Orgs.Resolve(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, "org-root/org-lab", orgDn)
	assert.Equal(t, model.OutcomeCreated, result.Outcome)

	mutations := plane.Stats().Mutations

	orgDn, result, err = set.Orgs.Resolve(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, "org-root/org-lab", orgDn)
	assert.Equal(t, model.OutcomeAlreadyExists, result.Outcome)
	assert.Equal(t, mutations, plane.Stats().Mutations)

	// a create racing an existing org is success too
	created, err := set.Orgs.Create(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyExists, created.Outcome)
}

func TestOrgResolveDefaults(t *testing.T) {
	ctx := context.Background()
	set, plane := dryRunSet(t)

	orgDn, result, err := set.Orgs.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "org-root/org-kubam", orgDn)
	assert.Equal(t, model.OutcomeCreated, result.Outcome)

	mutations := plane.Stats().Mutations

	orgDn, result, err = set.Orgs.Resolve(ctx, model.RootOrg)
	require.NoError(t, err)
	assert.Equal(t, "org-root", orgDn)
	assert.Equal(t, model.OutcomeAlreadyExists, result.Outcome)
	assert.Equal(t, mutations, plane.Stats().Mutations)

	assert.Equal(t, "org-root/org-kubam", set.Orgs.Path(""))
}

func TestOrgDelete(t *testing.T) {
	ctx := context.Background()
	set, plane := dryRunSet(t)

	_, _, err := set.Orgs.Resolve(ctx, "lab")
	require.NoError(t, err)

	result, err := set.Orgs.Delete(ctx, "org-root/org-lab")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeDeleted, result.Outcome)
	assert.Nil(t, plane.Lookup("org-root/org-lab"))

	result, err = set.Orgs.Delete(ctx, "org-root/org-lab")
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyAbsent, result.Outcome)

	_, err = set.Orgs.Delete(ctx, "org-root")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	assert.NotNil(t, plane.Lookup("org-root"))
}
