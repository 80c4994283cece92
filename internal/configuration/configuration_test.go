package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metal-toolbox/kubam/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := Load(&model.Args{})
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, model.DefaultOrg, config.DefaultOrg)
	assert.Equal(t, defaultUCSMTimeout, config.UCSM.Timeout)
	assert.Equal(t, defaultUCSMRetryMax, config.UCSM.RetryMax)
	assert.False(t, config.Dryrun)
	assert.Contains(t, config.StorePath, defaultStoreFile)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
store_path: /var/lib/kubam/kubam.yaml
default_org: lab
metrics_textfile: /var/lib/node_exporter/kubam.prom
ucsm:
  timeout: 5s
  retry_max: 4
  insecure_tls: true
`)

	config, err := Load(&model.Args{ConfigFile: path})
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "/var/lib/kubam/kubam.yaml", config.StorePath)
	assert.Equal(t, "lab", config.DefaultOrg)
	assert.Equal(t, "/var/lib/node_exporter/kubam.prom", config.MetricsTextfile)
	assert.Equal(t, 5*time.Second, config.UCSM.Timeout)
	assert.Equal(t, 4, config.UCSM.RetryMax)
	assert.True(t, config.UCSM.InsecureTLS)
}

func TestLoadEnvAndArgsOverride(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
default_org: lab
ucsm:
  retry_max: 4
`)

	t.Setenv("KUBAM_DEFAULT_ORG", "staging")
	t.Setenv("KUBAM_UCSM_RETRY_MAX", "7")

	config, err := Load(&model.Args{ConfigFile: path, LogLevel: "warn", StorePath: "/tmp/kubam.yaml", Dryrun: true})
	require.NoError(t, err)

	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, "staging", config.DefaultOrg)
	assert.Equal(t, 7, config.UCSM.RetryMax)
	assert.Equal(t, "/tmp/kubam.yaml", config.StorePath)
	assert.True(t, config.Dryrun)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(&model.Args{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorIs(t, err, model.ErrConfig)

	path := writeConfig(t, "ucsm:\n  retry_max: -1\n")
	_, err = Load(&model.Args{ConfigFile: path})
	assert.ErrorIs(t, err, model.ErrConfig)
}
