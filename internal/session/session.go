// Package session owns the per-conversation request flow: guard
// chain, optional classifier second opinion, planning, and plan
// execution. One session handles one message at a time and runs at
// most one plan in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"majordomo/internal/engine"
	"majordomo/internal/guard"
	"majordomo/internal/logging"
	"majordomo/internal/plan"
	"majordomo/internal/planner"
)

// Reply kinds sent back outside the plan event stream.
const (
	ReplyGuard = "guard" // guard or classifier short-circuit
	ReplyBusy  = "busy"  // a plan is already in flight
	ReplyError = "error" // planning or plan structure failure
	ReplyPlan  = "plan"  // plan finished; Text summarizes the outcome
)

// Reply is the session's direct answer to one message. Plan progress
// itself travels separately, through the engine's event stream.
type Reply struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

const busyText = `Still working on the current task. Say "cancel" to stop it.`

// Session drives the request pipeline for one conversation.
type Session struct {
	id         string
	guard      *guard.ControlInputGuard
	classifier *guard.LowSignalClassifier
	planner    planner.Planner
	executor   *engine.Executor
	analyzer   *planner.ParallelIntentAnalyzer // optional
}

// New creates a session. classifier and analyzer may be nil.
func New(g *guard.ControlInputGuard, classifier *guard.LowSignalClassifier, p planner.Planner, ex *engine.Executor, analyzer *planner.ParallelIntentAnalyzer) *Session {
	s := &Session{
		id:         uuid.New().String(),
		guard:      g,
		classifier: classifier,
		planner:    p,
		executor:   ex,
		analyzer:   analyzer,
	}
	logging.Session("session %s created", s.id)
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Cancel stops the plan in flight, if any.
func (s *Session) Cancel() bool {
	return s.executor.Cancel(engine.CancelReasonUser)
}

// HandleMessage runs one message through the pipeline and returns the
// session's direct reply. When a plan runs, HandleMessage blocks until
// it reaches a terminal state; progress streams through the engine's
// sink meanwhile.
func (s *Session) HandleMessage(ctx context.Context, raw string) Reply {
	text, slashToken := splitSlash(raw)

	if decision := s.guard.Inspect(text, slashToken); decision != nil {
		return s.handleDecision(decision)
	}

	if s.classifier != nil && s.classifier.ShouldClassify(text) {
		switch s.classifier.Classify(ctx, text) {
		case guard.LabelControl:
			return s.handleDecision(&guard.Decision{
				Status:  guard.StatusCancelled,
				Message: "Okay, stopping.",
				Reason:  "classifier_control",
			})
		case guard.LabelNoise:
			logging.Session("session %s: classifier labelled input noise", s.id)
			return Reply{Kind: ReplyGuard}
		}
		// actionable and unknown both proceed: never fail closed
		// on ambiguous input.
	}

	if s.executor.Busy() {
		return Reply{Kind: ReplyBusy, Text: busyText}
	}

	request := text
	if s.analyzer != nil {
		if intent := s.analyzer.Analyze(ctx, text).Get(planner.FacetIntent); intent != "" {
			request = fmt.Sprintf("%s\n\n(Interpreted intent: %s)", text, intent)
		}
	}

	spec, err := s.planner.Plan(ctx, request)
	if err != nil {
		logging.SessionWarn("session %s: planning failed: %v", s.id, err)
		return Reply{Kind: ReplyError, Text: fmt.Sprintf("I couldn't plan that: %v", err)}
	}

	state, err := s.executor.Execute(ctx, spec)
	if err != nil {
		// Two concurrent messages can both pass the busy check above;
		// the engine admits one and rejects the other.
		if errors.Is(err, engine.ErrBusy) {
			return Reply{Kind: ReplyBusy, Text: busyText}
		}
		logging.SessionWarn("session %s: plan rejected: %v", s.id, err)
		return Reply{Kind: ReplyError, Text: fmt.Sprintf("That plan couldn't run: %v", err)}
	}

	return Reply{Kind: ReplyPlan, Text: summarize(state)}
}

func (s *Session) handleDecision(d *guard.Decision) Reply {
	logging.Session("session %s: guard %s (%s)", s.id, d.Status, d.Reason)
	if d.Status == guard.StatusCancelled {
		s.executor.Cancel(engine.CancelReasonUser)
	}
	return Reply{Kind: ReplyGuard, Text: d.Message}
}

// splitSlash separates a leading slash command from the message. The
// token is the bare command name; the text keeps the full message so
// the guard can check for trailing words.
func splitSlash(raw string) (text, slashToken string) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "/") {
		return trimmed, ""
	}
	fields := strings.Fields(strings.TrimPrefix(trimmed, "/"))
	if len(fields) == 0 {
		return "", ""
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, "/")), fields[0]
}

func summarize(state *plan.State) string {
	var completed, failed, skipped int
	for _, step := range state.Steps {
		switch step.Status {
		case plan.StatusCompleted:
			completed++
		case plan.StatusFailed:
			failed++
		case plan.StatusSkipped:
			skipped++
		}
	}

	if state.Status == plan.PlanCompleted {
		return fmt.Sprintf("Done: %q (%d steps).", state.Goal, completed)
	}
	return fmt.Sprintf("Finished %q with problems: %d completed, %d failed, %d skipped.",
		state.Goal, completed, failed, skipped)
}
