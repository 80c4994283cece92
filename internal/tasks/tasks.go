package tasks

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/metrics"
	"github.com/metal-toolbox/kubam/internal/model"
	"github.com/metal-toolbox/kubam/internal/reconcile"
	"github.com/metal-toolbox/kubam/internal/session"
	"github.com/metal-toolbox/kubam/internal/store/ucsm"
)

const (
	pkgName = "internal/tasks"
)

var (
	// errNoop stops a task early without failing it.
	errNoop = errors.New("nothing to do")

	errTaskFatal = errors.New("Task fatal error, check logs for details")
)

// State of a task or step.
type State string

const (
	Pending   State = "pending"
	Active    State = "active"
	Succeeded State = "succeeded"
	Failed    State = "failed"
	Skipped   State = "skipped"
)

// ConfigReader reads the persisted intent a task acts on.
type ConfigReader interface {
	VLAN(ctx context.Context) (string, error)
	Servers(ctx context.Context) (model.SelectionSet, error)
	Hosts(ctx context.Context) ([]model.HostRecord, error)
	Org(ctx context.Context) (string, error)
	KubamIP(ctx context.Context) (string, error)
}

// SessionManager opens and closes management plane sessions.
type SessionManager interface {
	Open(ctx context.Context) (*session.Session, error)
	Close(ctx context.Context, s *session.Session)
}

// ReconcilerFactory binds reconcilers to the handle of an open session.
type ReconcilerFactory func(handle ucsm.Handle) *reconcile.Set

// sharedData is passed from step to step.
type sharedData struct {
	config  ConfigReader
	orgDn   string
	vlan    string
	hosts   []model.HostRecord
	servers model.SelectionSet
	kubamIP string
	report  *reconcile.Report

	// set once a step changed remote state
	mutated bool
}

// TaskStatus has status about a task, and it's steps.
type TaskStatus struct {
	ID         string            `json:"id"`
	Task       string            `json:"task"`
	Status     string            `json:"status"`
	Details    string            `json:"details,omitempty"`
	Error      string            `json:"error,omitempty"`
	ActiveStep string            `json:"active_step,omitempty"`
	Partial    bool              `json:"partial,omitempty"`
	Noop       bool              `json:"noop,omitempty"`
	Steps      []*StepStatus     `json:"steps"`
	Report     *reconcile.Report `json:"report,omitempty"`
}

// NewTaskStatus will generate a new task status struct
func NewTaskStatus(task Task, state State) *TaskStatus {
	return &TaskStatus{
		ID:     task.ID().String(),
		Task:   task.Name(),
		Status: string(state),
	}
}

func (r *TaskStatus) AsLogFields() []any {
	return []any{
		"taskID", r.ID,
		"task", r.Task,
		"status", r.Status,
		"details", r.Details,
		"error", r.Error,
	}
}

func (r *TaskStatus) Marshal() ([]byte, error) {
	respBytes, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response to json")
	}

	return respBytes, nil
}

// Task is a pipeline of steps run within one management plane session.
type Task interface {
	// Name of the task
	Name() string
	// ID identifies one run of the task
	ID() uuid.UUID
	// Steps is the multiple units of work that will accomplish this task
	Steps() []Step
}

type task struct {
	id    uuid.UUID
	name  string
	steps []Step
}

func (j *task) Name() string {
	return j.name
}

func (j *task) ID() uuid.UUID {
	return j.id
}

func (j *task) Steps() []Step {
	return j.steps
}

// NewDeployTask creates the task provisioning the org, cluster network and host resources.
func NewDeployTask() Task {
	return &task{
		id:   uuid.New(),
		name: "Deploy",
		steps: []Step{
			ResolveOrgStep(),
			ValidateVLANStep(),
			ValidateInputsStep(),
			CreateNetworkStep(),
			CreateServerResourcesStep(),
		},
	}
}

// DestroyOptions tune the destroy task.
type DestroyOptions struct {
	// DeleteOrg removes the organization once its content is gone, the root org is kept.
	DeleteOrg bool
}

// NewDestroyTask creates the task removing what deploy created, in reverse order.
func NewDestroyTask(opts DestroyOptions) Task {
	steps := []Step{
		ReadHostsStep(),
		LookupOrgStep(),
		DeleteServerResourcesStep(),
		DeleteNetworkStep(),
	}

	if opts.DeleteOrg {
		steps = append(steps, DeleteOrgStep())
	}

	return &task{
		id:    uuid.New(),
		name:  "Destroy",
		steps: steps,
	}
}

// TaskRunner Will run the task by executing the individual steps in the task,
// and reports task status using the publisher.
//
// Status steps are laid out as SessionOpen, the task steps, then SessionClosed.
type TaskRunner struct {
	publisher  StatusPublisher
	task       Task
	taskStatus *TaskStatus
	logger     *logrus.Entry
	startTS    time.Time
}

// NewTaskRunner creates a TaskRunner to run a specific Task
func NewTaskRunner(publisher StatusPublisher, task Task, logger *logrus.Entry) *TaskRunner {
	return &TaskRunner{
		publisher:  publisher,
		task:       task,
		taskStatus: NewTaskStatus(task, Pending),
		logger:     logger.WithFields(logrus.Fields{"task": task.Name(), "taskID": task.ID().String()}),
	}
}

// Run opens a session, runs the steps in order and closes the session on
// every exit path. The first failing step stops the task, the returned error
// carries the step name and whether remote state was partially changed.
func (r *TaskRunner) Run(
	ctx context.Context,
	sessions SessionManager,
	reconcilers ReconcilerFactory,
	config ConfigReader,
) (status *TaskStatus, err error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"TaskRunner.Run",
		trace.WithAttributes(
			attribute.String("task", r.task.Name()),
			attribute.String("taskID", r.task.ID().String()),
		),
	)
	defer span.End()

	r.logger.Info("Running task")

	r.startTS = time.Now()
	data := &sharedData{config: config}
	r.initTaskLog()

	defer func() {
		if rec := recover(); rec != nil {
			err = r.handlePanic(ctx, rec)
		}

		r.taskStatus.Report = data.report
		r.registerTaskMetrics(err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		status = r.taskStatus
	}()

	r.publishTaskUpdate(ctx, Active, "Opening session", nil)

	sess, err := sessions.Open(ctx)
	if err != nil {
		err = model.AtStage(model.StageSessionOpen, err, false)
		r.publishFailed(ctx, 0, "Failed to open session", err)
		r.skipFrom(1)

		return r.taskStatus, err
	}
	defer r.closeSession(ctx, sessions, sess)

	r.publishStepSuccess(ctx, 0, "Session "+sess.ID.String()+" open")

	set := reconcilers(sess.Handle())

	for i, step := range r.task.Steps() {
		stepID := i + 1
		r.publishStepUpdate(ctx, stepID, "Running step")

		details, err := r.runStep(ctx, step, set, data)
		if errors.Is(err, errNoop) {
			r.taskStatus.Noop = true
			r.publishStepSuccess(ctx, stepID, details)
			r.skipFrom(stepID + 1)

			break
		}

		if err != nil {
			err = model.AtStage(step.Name(), err, data.mutated)
			r.taskStatus.Partial = model.IsPartial(err)
			r.publishFailed(ctx, stepID, details, err)
			r.skipFrom(stepID + 1)

			return r.taskStatus, err
		}

		r.publishStepSuccess(ctx, stepID, details)
	}

	r.publishTaskSuccess(ctx)

	return r.taskStatus, nil
}

func (r *TaskRunner) runStep(ctx context.Context, step Step, set *reconcile.Set, data *sharedData) (string, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "Step."+step.Name())
	defer span.End()

	start := time.Now()
	details, err := step.Run(ctx, set, data)

	state := Succeeded
	if err != nil && !errors.Is(err, errNoop) {
		state = Failed

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	metrics.StepRunTimeSummary.With(
		prometheus.Labels{
			"operation": r.task.Name(),
			"step":      step.Name(),
			"state":     string(state),
		},
	).Observe(time.Since(start).Seconds())

	return details, err
}

func (r *TaskRunner) closeSession(ctx context.Context, sessions SessionManager, sess *session.Session) {
	sessions.Close(ctx, sess)

	last := len(r.taskStatus.Steps) - 1
	r.publish(ctx, last, Succeeded, State(r.taskStatus.Status), "Session closed", nil)
}

func (r *TaskRunner) initTaskLog() {
	steps := r.task.Steps()
	r.taskStatus.Steps = make([]*StepStatus, 0, len(steps)+2)

	r.taskStatus.Steps = append(r.taskStatus.Steps, NewStepStatus(model.StageSessionOpen, Pending, "", nil))

	for _, step := range steps {
		r.taskStatus.Steps = append(r.taskStatus.Steps, NewStepStatus(step.Name(), Pending, "", nil))
	}

	r.taskStatus.Steps = append(r.taskStatus.Steps, NewStepStatus(model.StageSessionClosed, Pending, "", nil))
}

// skipFrom marks the task steps from stepID on as skipped, SessionClosed excluded.
func (r *TaskRunner) skipFrom(stepID int) {
	for i := stepID; i < len(r.taskStatus.Steps)-1; i++ {
		r.taskStatus.Steps[i].Status = string(Skipped)
	}
}

func (r *TaskRunner) handlePanic(ctx context.Context, rec any) error {
	msg := "Panic occurred while running task"
	r.logger.WithFields(logrus.Fields{
		"rec":   rec,
		"stack": string(debug.Stack()),
	}).Error("!!panic occurred")

	r.publishTaskUpdate(ctx, Failed, msg, errTaskFatal)

	return errTaskFatal
}

func (r *TaskRunner) registerTaskMetrics(err error) {
	state := string(Succeeded)

	switch {
	case err != nil:
		state = string(Failed)
	case r.taskStatus.Noop:
		state = "noop"
	}

	metrics.OperationRunTimeSummary.With(
		prometheus.Labels{
			"operation": r.task.Name(),
			"state":     state,
		},
	).Observe(time.Since(r.startTS).Seconds())
}

func (r *TaskRunner) publishStepUpdate(ctx context.Context, stepID int, details string) {
	r.publish(ctx, stepID, Active, Active, details, nil)
}

func (r *TaskRunner) publishStepSuccess(ctx context.Context, stepID int, details string) {
	r.publish(ctx, stepID, Succeeded, Active, details, nil)
}

func (r *TaskRunner) publishFailed(ctx context.Context, stepID int, details string, err error) {
	r.logger.WithError(err).Error("Task failed")
	r.publish(ctx, stepID, Failed, Failed, details, err)
}

func (r *TaskRunner) publishTaskSuccess(ctx context.Context) {
	details := "Task completed successfully"
	if r.taskStatus.Noop {
		details = "Task completed, nothing to do"
	}

	r.logger.Info(details)
	r.publishTaskUpdate(ctx, Succeeded, details, nil)
}

func (r *TaskRunner) publish(ctx context.Context, stepID int, stepState, taskState State, details string, err error) {
	stepStatus := NewStepStatus(r.taskStatus.Steps[stepID].Step, stepState, details, err)

	r.logger.WithFields(log.Fields(stepStatus.AsLogFields())).Debug(details)

	r.taskStatus.Steps[stepID] = stepStatus
	r.taskStatus.ActiveStep = stepStatus.Step

	var taskDetails string
	if err != nil {
		taskDetails = "Task failed at step " + stepStatus.Step
	}

	r.publishTaskUpdate(ctx, taskState, taskDetails, err)
}

func (r *TaskRunner) publishTaskUpdate(ctx context.Context, state State, details string, err error) {
	r.taskStatus.Status = string(state)

	if details != "" {
		r.taskStatus.Details = details
	}

	if err != nil {
		r.taskStatus.Error = err.Error()
	}

	respBytes, err := r.taskStatus.Marshal()
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal task update")
		return
	}

	r.publisher.Publish(ctx, r.taskStatus.ID, state, respBytes)
}
