// Package engine executes plan step DAGs with bounded concurrency and
// emits the sequence-numbered event stream clients reconcile against.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"majordomo/internal/logging"
	"majordomo/internal/plan"
)

// CancelReasonUser is the error tag steps get when a plan is cancelled.
const CancelReasonUser = "cancelled"

// ErrBusy is returned when Execute is called while a plan is running.
var ErrBusy = fmt.Errorf("a plan is already executing")

// EventSink receives the engine's event stream. Calls arrive from the
// scheduler goroutine only, already totally ordered.
type EventSink interface {
	SendPlan(ev plan.Event)
	SendUpdate(ev plan.UpdateEvent)
}

// Invoker executes one step's action. Implementations must honor the
// context: the engine abandons an invocation that outlives its
// deadline and moves on without waiting for it to unwind.
type Invoker interface {
	Invoke(ctx context.Context, step plan.StepSpec) plan.StepResult
}

// Executor runs one plan at a time. The scheduler loop inside Execute
// is the sole writer to the plan state; workers report back over a
// channel and never touch shared state themselves.
type Executor struct {
	maxParallel int
	stepTimeout time.Duration
	invoker     Invoker
	sink        EventSink

	mu       sync.Mutex
	cancelCh chan string // non-nil while a plan is in flight
}

// New creates an executor.
func New(invoker Invoker, sink EventSink, maxParallel int, stepTimeout time.Duration) *Executor {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if stepTimeout <= 0 {
		stepTimeout = time.Minute
	}
	return &Executor{
		maxParallel: maxParallel,
		stepTimeout: stepTimeout,
		invoker:     invoker,
		sink:        sink,
	}
}

// Cancel stops the plan currently executing, if any. All pending and
// running steps fail with the given reason. Returns false when no
// plan is in flight.
func (e *Executor) Cancel(reason string) bool {
	if reason == "" {
		reason = CancelReasonUser
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelCh == nil {
		return false
	}
	select {
	case e.cancelCh <- reason:
	default: // a cancel is already queued
	}
	return true
}

// Busy reports whether a plan is currently executing.
func (e *Executor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelCh != nil
}

type completion struct {
	id     int
	result plan.StepResult
}

// Execute validates the spec, emits the initial plan event, and runs
// the DAG to a terminal state. Structure errors (unknown dependency,
// cycle, empty plan) return before any step runs and before any event
// is emitted. The returned state is final and safe to read.
func (e *Executor) Execute(ctx context.Context, spec plan.Spec) (*plan.State, error) {
	graph, err := plan.NewGraph(spec)
	if err != nil {
		logging.EngineError("rejected plan %q: %v", spec.Goal, err)
		return nil, err
	}

	e.mu.Lock()
	if e.cancelCh != nil {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	cancelCh := make(chan string, 1)
	e.cancelCh = cancelCh
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.cancelCh = nil
		e.mu.Unlock()
	}()

	logging.Engine("executing plan %q with %d steps (max_parallel=%d)", spec.Goal, len(spec.Steps), e.maxParallel)

	state := plan.NewState(spec)
	e.sink.SendPlan(plan.NewEvent(spec))

	runCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	// Buffered so abandoned workers can always deliver and exit.
	completions := make(chan completion, len(spec.Steps))
	running := 0
	cancelled := false

	emit := func(id int, status plan.StepStatus, preview, errMsg string) {
		step := state.Steps[id]
		if !step.Status.CanTransition(status) {
			logging.EngineWarn("dropping illegal transition for step %d: %s -> %s", id, step.Status, status)
			return
		}
		state.LastSequenceNumber++
		now := time.Now().UTC()

		step.Status = status
		step.SequenceNumber = state.LastSequenceNumber
		switch status {
		case plan.StatusRunning:
			step.StartedAt = &now
		case plan.StatusCompleted:
			step.CompletedAt = &now
			step.OutputPreview = preview
		case plan.StatusFailed, plan.StatusSkipped:
			step.CompletedAt = &now
			step.Error = errMsg
		}

		e.sink.SendUpdate(plan.UpdateEvent{
			Type:           plan.EventTypeUpdate,
			StepID:         id,
			Status:         status,
			SequenceNumber: state.LastSequenceNumber,
			Timestamp:      now,
			OutputPreview:  preview,
			Error:          errMsg,
		})
	}

	launchReady := func() {
		if cancelled {
			return
		}
		for _, id := range graph.Ready(e.maxParallel - running) {
			running++
			emit(id, plan.StatusRunning, "", "")
			go e.runStep(runCtx, state.Steps[id].Spec, completions)
		}
	}

	// Cancel signals are consumed at most once; after that these go
	// nil so the drain loop blocks only on completions.
	cancelRecv := cancelCh
	ctxDone := ctx.Done()

	cancelAll := func(reason string) {
		cancelled = true
		cancelRecv = nil
		ctxDone = nil
		stopWorkers()
		for _, id := range graph.Unresolved() {
			graph.Resolve(id)
			emit(id, plan.StatusFailed, "", reason)
		}
	}

	launchReady()

	for running > 0 || !graph.IsEmpty() {
		select {
		case c := <-completions:
			running--
			if cancelled {
				// The step already failed with the cancel reason.
				continue
			}
			if c.result.OK() {
				emit(c.id, plan.StatusCompleted, c.result.OutputPreview(), "")
				graph.MarkCompleted(c.id)
			} else {
				emit(c.id, plan.StatusFailed, "", c.result.ErrorMessage())
				for _, blocked := range graph.MarkFailed(c.id) {
					emit(blocked, plan.StatusSkipped, "", fmt.Sprintf("dependency of step %d failed", c.id))
				}
			}
			launchReady()

		case reason := <-cancelRecv:
			logging.Engine("plan %q cancelled: %s", spec.Goal, reason)
			cancelAll(reason)

		case <-ctxDone:
			logging.Engine("plan %q context cancelled", spec.Goal)
			cancelAll(CancelReasonUser)
		}
	}

	state.Status = plan.PlanCompleted
	for _, step := range state.Steps {
		if step.Status == plan.StatusFailed {
			state.Status = plan.PlanFailed
			break
		}
	}

	logging.Engine("plan %q finished: %s (%d events)", spec.Goal, state.Status, state.LastSequenceNumber)
	return state, nil
}

// runStep executes one step under the per-step timeout and reports
// the outcome. It owns no shared state.
func (e *Executor) runStep(ctx context.Context, step plan.StepSpec, completions chan<- completion) {
	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	resCh := make(chan plan.StepResult, 1)
	go func() {
		resCh <- e.invoker.Invoke(stepCtx, step)
	}()

	var result plan.StepResult
	select {
	case result = <-resCh:
	case <-stepCtx.Done():
		// Fire and forget: the invocation is asked to stop via the
		// context but the plan does not wait for it.
		if stepCtx.Err() == context.DeadlineExceeded {
			result = plan.Fail("timeout")
		} else {
			result = plan.Fail(CancelReasonUser)
		}
	}

	completions <- completion{id: step.ID, result: result}
}
