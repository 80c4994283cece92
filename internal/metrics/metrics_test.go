package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRemoteCall(t *testing.T) {
	before := testutil.ToFloat64(remoteCallsTotal.WithLabelValues("aaaLogin", "ok"))

	RegisterRemoteCall("aaaLogin", "ok")
	RegisterRemoteCall("aaaLogin", "ok")

	assert.Equal(t, before+2, testutil.ToFloat64(remoteCallsTotal.WithLabelValues("aaaLogin", "ok")))
}

func TestWriteTextfile(t *testing.T) {
	SetBuildInfo("v0.0.1", "abc123", "main", "go1.23")

	path := filepath.Join(t.TempDir(), "kubam.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kubam_build_info")
	assert.Contains(t, string(data), `commit="abc123"`)

	// no path, nothing written
	assert.NoError(t, WriteTextfile(""))
}
