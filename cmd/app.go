package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/bombsimon/logrusr/v4"
	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"gopkg.in/yaml.v3"

	"github.com/metal-toolbox/kubam/internal/configuration"
	"github.com/metal-toolbox/kubam/internal/handlers"
	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/metrics"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/profiling"
	"github.com/metal-toolbox/kubam/internal/reconcile"
	"github.com/metal-toolbox/kubam/internal/session"
	"github.com/metal-toolbox/kubam/internal/store"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
	"github.com/metal-toolbox/kubam/internal/tasks"
	"github.com/metal-toolbox/kubam/internal/version"
)

// application holds what a command needs, built once per invocation.
type application struct {
	config       *configuration.Configuration
	handler      *handlers.Handler
	profiler     *profiling.Server
	otelShutdown func(context.Context)
}

// initTelemetry is swapped out in tests.
var initTelemetry = otelinit.InitOpenTelemetry

// newApplication returns the context commands should run with, it carries
// the trace parent set up by telemetry init.
func newApplication(ctx context.Context, args *model.Args) (context.Context, *application, error) {
	config, err := configuration.Load(args)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return ctx, nil, err
	}

	log.SetLevel(config.LogLevel)
	slog.Debug("Configuration loaded", config.AsLogFields()...)

	logger := log.NewLogrusLogger(config.LogLevel)
	otel.SetLogger(logrusr.New(logger))

	ctx, otelShutdown := initTelemetry(ctx, model.AppName)

	slog.With(version.Current().AsLogFields()...).Info("kubam starting")
	version.ExportBuildInfoMetric()

	entry := logger.WithFields(logrus.Fields{"app": model.AppName})

	var profiler *profiling.Server
	if args.EnableProfiling {
		if profiler, err = profiling.Start(args.ProfilingEndpoint, entry); err != nil {
			entry.WithError(err).Warn("profiling not enabled")
		}
	}

	var plane ucsm.Plane
	if config.Dryrun {
		entry.Info("running against the simulated management plane")
		plane = ucsm.NewDryRunPlane()
	} else {
		plane = ucsm.NewXMLPlane(ucsm.Config{
			Timeout:     config.UCSM.Timeout,
			RetryMax:    config.UCSM.RetryMax,
			InsecureTLS: config.UCSM.InsecureTLS,
		}, entry.WithField("component", "ucsm"))
	}

	repository := store.NewRepository(config)
	sessions := session.NewManager(repository, plane, entry.WithField("component", "session"))

	reconcilers := func(handle ucsm.Handle) *reconcile.Set {
		return reconcile.ForHandle(handle, config.DefaultOrg, entry.WithField("component", "reconcile"))
	}

	return ctx, &application{
		config: config,
		handler: handlers.NewHandler(
			repository,
			sessions,
			reconcilers,
			tasks.NewLogPublisher(entry.WithField("component", "tasks")),
			entry,
		),
		profiler:     profiler,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *application) close(ctx context.Context) {
	if a == nil {
		return
	}

	if err := metrics.WriteTextfile(a.config.MetricsTextfile); err != nil {
		slog.Warn("Failed to write metrics textfile", "error", err, "path", a.config.MetricsTextfile)
	}

	a.profiler.Stop(ctx)
	a.otelShutdown(ctx)
}

// exit codes by result class
var classExitCodes = map[handlers.Class]int{
	handlers.ClassOK:               0,
	handlers.ClassNoop:             0,
	handlers.ClassInternal:         1,
	handlers.ClassInvalid:          2,
	handlers.ClassNotAuthenticated: 3,
	handlers.ClassRemoteFailure:    4,
	handlers.ClassPartialFailure:   5,
}

// printResult writes result as JSON to the command output and sets the process exit code.
func printResult(cmd *cobra.Command, result handlers.Result) error {
	exitCode = classExitCodes[result.Class]

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")

	return encoder.Encode(result)
}

// readFile decodes the YAML, or JSON, document at path into out.
func readFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read "+path)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode "+path)
	}

	return nil
}
