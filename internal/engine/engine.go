package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"autofy/backend/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Store loads and persists the workflow aggregate. The engine loads the
// aggregate itself, inside the per-workflow critical section, so every run
// mutates the freshest durable state rather than a caller's snapshot. Load
// and Save failures are the only errors the engine lets escape.
type Store interface {
	Get(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
}

// Config carries the engine's tunables.
type Config struct {
	// StepTimeout bounds each adapter invocation. Zero means DefaultStepTimeout.
	StepTimeout time.Duration
	// HistoryLimit caps the run records kept per workflow. Zero means DefaultHistoryLimit.
	HistoryLimit int
}

// Engine coordinates workflow runs. Runs of the same workflow are serialized
// through a per-workflow mutex so the counter and history read-modify-write
// cannot lose updates; runs of different workflows are not synchronized.
type Engine struct {
	dispatcher   *Dispatcher
	store        Store
	logger       Logger
	historyLimit int
	locks        *workflowLocks

	runsTotal metric.Int64Counter
	runsOK    metric.Int64Counter
	runsFail  metric.Int64Counter
}

// New creates an Engine over the given adapter registry and store.
func New(registry *Registry, store Store, logger Logger, cfg Config) *Engine {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	meter := otel.Meter("autofy/backend/engine")
	runsTotal, _ := meter.Int64Counter("workflow.runs")
	runsOK, _ := meter.Int64Counter("workflow.runs.succeeded")
	runsFail, _ := meter.Int64Counter("workflow.runs.failed")

	return &Engine{
		dispatcher:   NewDispatcher(registry, cfg.StepTimeout),
		store:        store,
		logger:       logger,
		historyLimit: limit,
		locks:        newWorkflowLocks(),
		runsTotal:    runsTotal,
		runsOK:       runsOK,
		runsFail:     runsFail,
	}
}

// Execute runs the workflow's steps in order, stopping at the first failure.
// It updates the aggregate's counters and bounded history, persists it, and
// returns the run record. The entire load→run→save sequence holds the
// per-workflow lock: concurrent runs of one workflow each see the counters
// and history the previous run persisted, never a shared stale snapshot.
// The IsActive flag is not consulted here; it only gates scheduler-triggered
// runs, which are external to the engine.
func (e *Engine) Execute(ctx context.Context, workflowID string, creds CredentialResolver) (*models.RunRecord, error) {
	unlock := e.locks.lock(workflowID)
	defer unlock()

	workflow, err := e.store.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	record := models.RunRecord{
		ExecutedAt: time.Now().UTC(),
		Status:     models.RunSuccess,
		Context:    map[string]interface{}{},
	}

	e.logger.Info("starting workflow %q (%d steps)", workflow.Name, len(workflow.Steps))

	for i, step := range workflow.Steps {
		e.logger.Debug("step %d/%d: %s - %s", i+1, len(workflow.Steps), step.App, step.Event)

		outcome := e.dispatcher.Dispatch(ctx, step, creds, record.Context)
		record.Results = append(record.Results, models.StepOutcome{
			StepIndex: i,
			Success:   outcome.Success,
			Message:   outcome.Message,
			Data:      outcome.Data,
		})

		if !outcome.Success {
			record.Status = models.RunFailed
			record.Error = outcome.Message
			break
		}

		// Later steps overwrite same-named keys from earlier ones.
		for k, v := range outcome.Data {
			record.Context[k] = v
		}
	}

	workflow.ExecutionCount++
	executedAt := record.ExecutedAt
	workflow.LastExecuted = &executedAt
	if record.Status == models.RunSuccess {
		workflow.SuccessCount++
		e.logger.Info("workflow %q completed successfully", workflow.Name)
	} else {
		workflow.FailureCount++
		e.logger.Info("workflow %q failed: %s", workflow.Name, record.Error)
	}

	// Append and trim before the single Save so a history over the cap is
	// never durably observable.
	workflow.ExecutionLogs = append(workflow.ExecutionLogs, record)
	workflow.ExecutionLogs = trimHistory(workflow.ExecutionLogs, e.historyLimit)

	if err := e.store.Save(ctx, workflow); err != nil {
		e.logger.Error("failed to persist workflow %q after run: %v", workflow.Name, err)
		return nil, fmt.Errorf("failed to persist run result: %w", err)
	}

	e.runsTotal.Add(ctx, 1)
	if record.Status == models.RunSuccess {
		e.runsOK.Add(ctx, 1)
	} else {
		e.runsFail.Add(ctx, 1)
	}

	return &record, nil
}
