package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "kubam"
)

var (
	// Registry holds the collectors of this process.
	Registry = prometheus.NewRegistry()

	// OperationRunTimeSummary observes the run time of deploy and destroy operations.
	OperationRunTimeSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "A summary metric to measure the total time spent completing an operation",
		},
		[]string{"operation", "state"},
	)

	// StepRunTimeSummary observes the run time of individual operation steps.
	StepRunTimeSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "A summary metric to measure the time spent in each operation step",
		},
		[]string{"operation", "step", "state"},
	)

	remoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ucsm",
			Name:      "api_calls_total",
			Help:      "Total number of management plane API calls by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "A metric with a constant '1' value labeled by build information",
		},
		[]string{"version", "commit", "branch", "go_version"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		OperationRunTimeSummary,
		StepRunTimeSummary,
		remoteCallsTotal,
		buildInfo,
	)
}

// RegisterRemoteCall counts one management plane call.
func RegisterRemoteCall(method, outcome string) {
	remoteCallsTotal.With(prometheus.Labels{"method": method, "outcome": outcome}).Inc()
}

// SetBuildInfo exports the build information as a constant gauge.
func SetBuildInfo(version, commit, branch, goVersion string) {
	buildInfo.Reset()
	buildInfo.With(prometheus.Labels{
		"version":    version,
		"commit":     commit,
		"branch":     branch,
		"go_version": goVersion,
	}).Set(1)
}

// WriteTextfile writes the registry contents in the node exporter textfile format.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return errors.Wrap(err, "failed to write metrics textfile")
	}

	return nil
}
