package reconcile

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return logrus.NewEntry(logger)
}

// dryRunSet returns reconcilers bound to a logged in dry-run plane.
func dryRunSet(t *testing.T) (*Set, *ucsm.DryRunPlane) {
	t.Helper()

	plane := ucsm.NewDryRunPlane()

	handle, err := plane.Login(context.Background(), "admin", "secret", "10.0.0.2")
	require.NoError(t, err)

	t.Cleanup(func() { _ = handle.Logout(context.Background()) })

	return ForHandle(handle, "", testLogger()), plane
}
