// Package models defines the domain models for the workflow automation service
package models

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// StepType distinguishes the step that starts a workflow from the steps that act on it.
type StepType string

const (
	StepTrigger StepType = "trigger"
	StepAction  StepType = "action"
)

// TriggerType describes how a workflow is meant to be started.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerScheduled TriggerType = "scheduled"
	TriggerEvent     TriggerType = "event"
)

// RunStatus is the terminal status of a single workflow run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	// RunPartial is reserved for multi-branch runs; the linear engine never produces it.
	RunPartial RunStatus = "partial"
)

// Step is one trigger or action bound to a provider app, an event, and an account.
// Config shape is owned by the (App, Event) adapter and is opaque to the engine.
type Step struct {
	Type         StepType               `json:"type"`
	App          string                 `json:"app"`
	Event        string                 `json:"event"`
	AccountEmail string                 `json:"accountEmail,omitempty"`
	Config       map[string]interface{} `json:"config,omitempty"`
}

// StepOutcome records how one step of a run went.
type StepOutcome struct {
	StepIndex int                    `json:"stepIndex"`
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// RunRecord is the persisted result of one workflow run. Context holds the
// key-value data accumulated across steps; Results are in execution order and
// stop at the first failing step.
type RunRecord struct {
	ExecutedAt time.Time              `json:"executedAt"`
	Status     RunStatus              `json:"status"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Results    []StepOutcome          `json:"results"`
	Error      string                 `json:"error,omitempty"`
}

// Schedule is an opaque descriptor for scheduled workflows. The engine never
// interprets it; running a scheduler is an external concern.
type Schedule struct {
	Enabled        bool   `json:"enabled"`
	CronExpression string `json:"cronExpression,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

// Workflow is a saved, named, ordered list of steps belonging to one user.
// Step order is execution order. ExecutionLogs holds the bounded run history,
// oldest first.
type Workflow struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	Steps          []Step      `json:"steps"`
	IsActive       bool        `json:"isActive"`
	TriggerType    TriggerType `json:"triggerType"`
	Schedule       *Schedule   `json:"schedule,omitempty"`
	LastExecuted   *time.Time  `json:"lastExecuted,omitempty"`
	ExecutionCount int         `json:"executionCount"`
	SuccessCount   int         `json:"successCount"`
	FailureCount   int         `json:"failureCount"`
	ExecutionLogs  []RunRecord `json:"executionLogs,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

var (
	ErrNoSteps     = errors.New("workflow must have at least one step")
	ErrNoTrigger   = errors.New("workflow must start with a trigger step")
	ErrInvalidStep = errors.New("workflow step missing app or event")
)

// Validate enforces the construction invariants of a workflow.
func (w *Workflow) Validate() error {
	if len(w.Steps) == 0 {
		return ErrNoSteps
	}
	if w.Steps[0].Type != StepTrigger {
		return ErrNoTrigger
	}
	for _, step := range w.Steps {
		if step.App == "" || step.Event == "" {
			return ErrInvalidStep
		}
	}
	return nil
}

// SuccessRate returns the percentage of successful runs, rounded to two
// decimals. It is 0 when the workflow has never run.
func (w *Workflow) SuccessRate() float64 {
	if w.ExecutionCount == 0 {
		return 0
	}
	rate := float64(w.SuccessCount) / float64(w.ExecutionCount) * 100
	return math.Round(rate*100) / 100
}

// MarshalJSON includes the derived success rate alongside the stored fields.
func (w Workflow) MarshalJSON() ([]byte, error) {
	type alias Workflow
	return json.Marshal(struct {
		alias
		SuccessRate float64 `json:"successRate"`
	}{
		alias:       alias(w),
		SuccessRate: w.SuccessRate(),
	})
}
