package tasks

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Orchestrator runs the deploy and destroy tasks.
type Orchestrator struct {
	sessions    SessionManager
	config      ConfigReader
	reconcilers ReconcilerFactory
	publisher   StatusPublisher
	logger      *logrus.Entry
}

func NewOrchestrator(
	sessions SessionManager,
	config ConfigReader,
	reconcilers ReconcilerFactory,
	publisher StatusPublisher,
	logger *logrus.Entry,
) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		config:      config,
		reconcilers: reconcilers,
		publisher:   publisher,
		logger:      logger,
	}
}

// Deploy provisions the org, the cluster network and the resources of every host.
func (o *Orchestrator) Deploy(ctx context.Context) (*TaskStatus, error) {
	return o.run(ctx, NewDeployTask())
}

// Destroy removes what Deploy created. No hosts is a no-op.
func (o *Orchestrator) Destroy(ctx context.Context, opts DestroyOptions) (*TaskStatus, error) {
	return o.run(ctx, NewDestroyTask(opts))
}

func (o *Orchestrator) run(ctx context.Context, task Task) (*TaskStatus, error) {
	runner := NewTaskRunner(o.publisher, task, o.logger)

	return runner.Run(ctx, o.sessions, o.reconcilers, o.config)
}
