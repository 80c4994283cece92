package version

import (
	"runtime"
	"runtime/debug"

	"github.com/mitchellh/mapstructure"

	"github.com/metal-toolbox/kubam/internal/metrics"
)

// set with ldflags at build time
var (
	GitCommit  string
	GitBranch  string
	GitSummary string
	BuildDate  string
	AppVersion string
)

type BuildInfo struct {
	GitCommit  string `mapstructure:"git_commit"`
	GitBranch  string `mapstructure:"git_branch"`
	GitSummary string `mapstructure:"git_summary"`
	BuildDate  string `mapstructure:"build_date"`
	AppVersion string `mapstructure:"app_version"`
	GoVersion  string `mapstructure:"go_version"`
}

// Current returns the build information of the running binary.
func Current() BuildInfo {
	info := BuildInfo{
		GitCommit:  GitCommit,
		GitBranch:  GitBranch,
		GitSummary: GitSummary,
		BuildDate:  BuildDate,
		AppVersion: AppVersion,
		GoVersion:  runtime.Version(),
	}

	if info.AppVersion != "" {
		return info
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.AppVersion = bi.Main.Version
	}

	return info
}

// AsMap returns the build information keyed by field tag.
func (b BuildInfo) AsMap() map[string]any {
	out := map[string]any{}
	if err := mapstructure.Decode(b, &out); err != nil {
		return map[string]any{}
	}

	return out
}

func (b BuildInfo) AsLogFields() []any {
	return []any{
		"version", b.AppVersion,
		"commit", b.GitCommit,
		"branch", b.GitBranch,
		"goVersion", b.GoVersion,
	}
}

// ExportBuildInfoMetric publishes the build information gauge.
func ExportBuildInfoMetric() {
	b := Current()
	metrics.SetBuildInfo(b.AppVersion, b.GitCommit, b.GitBranch, b.GoVersion)
}
