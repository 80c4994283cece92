package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/model"
)

type telemetryKey struct{}

func withTestTelemetry(t *testing.T) {
	t.Helper()

	orig := initTelemetry
	initTelemetry = func(ctx context.Context, _ string) (context.Context, otelinit.OtelShutdown) {
		return context.WithValue(ctx, telemetryKey{}, "traced"), func(context.Context) {}
	}

	t.Cleanup(func() { initTelemetry = orig })
}

func testArgs(t *testing.T) *model.Args {
	t.Helper()

	return &model.Args{
		StorePath: filepath.Join(t.TempDir(), "kubam.yaml"),
		Dryrun:    true,
	}
}

func TestNewApplicationReturnsTelemetryContext(t *testing.T) {
	withTestTelemetry(t)

	ctx, a, err := newApplication(context.Background(), testArgs(t))
	require.NoError(t, err)
	require.NotNil(t, a)

	t.Cleanup(func() { a.close(ctx) })

	assert.Equal(t, "traced", ctx.Value(telemetryKey{}))
}

func TestNewApplicationLogsBuildInfo(t *testing.T) {
	withTestTelemetry(t)

	buf := &bytes.Buffer{}
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	ctx, a, err := newApplication(context.Background(), testArgs(t))
	require.NoError(t, err)

	t.Cleanup(func() { a.close(ctx) })

	assert.Contains(t, buf.String(), `msg="kubam starting"`)
	assert.Contains(t, buf.String(), "goVersion="+runtime.Version())
}

func TestNewApplicationBadConfig(t *testing.T) {
	withTestTelemetry(t)

	args := testArgs(t)
	args.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, a, err := newApplication(context.Background(), args)
	assert.ErrorIs(t, err, model.ErrConfig)
	assert.Nil(t, a)
}

func TestRootPreRunSetsCommandContext(t *testing.T) {
	withTestTelemetry(t)

	origArgs, origApp := args, app
	t.Cleanup(func() { args, app = origArgs, origApp })

	args = testArgs(t)

	cmd := &cobra.Command{Use: "status"}
	cmd.SetContext(context.Background())

	require.NoError(t, rootCmd.PersistentPreRunE(cmd, nil))
	t.Cleanup(func() { app.close(cmd.Context()) })

	assert.NotNil(t, app)
	assert.Equal(t, "traced", cmd.Context().Value(telemetryKey{}))
}
