// Package plan defines the plan data model shared by the execution
// engine, the streaming transport, and the client-side reconciler.
package plan

import (
	"errors"
	"time"
)

// Sentinel errors for plan structure problems. These abort the whole
// plan before any step runs.
var (
	ErrUnknownDependency = errors.New("step depends on unknown step id")
	ErrDependencyCycle   = errors.New("dependency cycle detected")
	ErrPlanCancelled     = errors.New("plan cancelled")
	ErrEmptyPlan         = errors.New("plan has no steps")
)

// Spec is the immutable plan handed to the engine by the planner.
type Spec struct {
	Goal  string     `json:"goal"`
	Steps []StepSpec `json:"steps"`
}

// StepSpec is one schedulable unit of work inside a Spec.
// IDs are planner-assigned, unique within the plan, and not
// necessarily contiguous.
type StepSpec struct {
	ID             int            `json:"id"`
	Action         string         `json:"action"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Dependencies   []int          `json:"dependencies,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
}

// StepStatus is the state machine position of one step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// Terminal reports whether no further transition is possible.
func (s StepStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// CanTransition reports whether moving to next is a legal transition.
// Statuses are monotonic: pending → running → {completed | failed},
// or pending → skipped. Nothing re-enters pending.
func (s StepStatus) CanTransition(next StepStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusSkipped || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// PlanStatus is the aggregate status of a plan.
type PlanStatus string

const (
	PlanExecuting PlanStatus = "executing"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
)

// StepRuntime is the engine-owned mutable record for one step.
type StepRuntime struct {
	Spec           StepSpec   `json:"spec"`
	Status         StepStatus `json:"status"`
	SequenceNumber uint64     `json:"sequence_number"` // 0 until the first transition
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	OutputPreview  string     `json:"output_preview,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// State is the engine-owned aggregate for one plan in flight.
// It has exactly one writer (the engine's scheduler loop); everyone
// else reads snapshots.
type State struct {
	Goal               string               `json:"goal"`
	Steps              map[int]*StepRuntime `json:"steps"`
	Status             PlanStatus           `json:"status"`
	LastSequenceNumber uint64               `json:"last_sequence_number"`
}

// NewState builds the initial State for a spec with every step pending.
func NewState(spec Spec) *State {
	steps := make(map[int]*StepRuntime, len(spec.Steps))
	for _, s := range spec.Steps {
		steps[s.ID] = &StepRuntime{Spec: s, Status: StatusPending}
	}
	return &State{
		Goal:   spec.Goal,
		Steps:  steps,
		Status: PlanExecuting,
	}
}

// StepResult is the tagged outcome of executing one step's action.
// It is either a success carrying an output preview or an error
// carrying a message, never both.
type StepResult struct {
	ok      bool
	output  string
	message string
}

// Succeed builds a success result.
func Succeed(outputPreview string) StepResult {
	return StepResult{ok: true, output: outputPreview}
}

// Fail builds an error result.
func Fail(message string) StepResult {
	return StepResult{ok: false, message: message}
}

// OK reports whether the result is a success.
func (r StepResult) OK() bool { return r.ok }

// OutputPreview returns the success payload; empty for errors.
func (r StepResult) OutputPreview() string { return r.output }

// ErrorMessage returns the error payload; empty for successes.
func (r StepResult) ErrorMessage() string { return r.message }
