// Package planner turns a natural-language request into a plan spec
// the engine can execute.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"majordomo/internal/llm"
	"majordomo/internal/logging"
	"majordomo/internal/plan"
	"majordomo/internal/tools"
)

// Planner produces a plan for a user request.
type Planner interface {
	Plan(ctx context.Context, request string) (plan.Spec, error)
}

const planSystemPrompt = `You are a task planner. Decompose the user's request into steps
executed by tools. Respond with ONLY a JSON object, no other text:

{
  "goal": "one-line restatement of the request",
  "steps": [
    {
      "id": 1,
      "action": "tool name from the list below",
      "parameters": {"param": "value"},
      "reasoning": "why this step",
      "dependencies": [],
      "expected_output": "what this step should produce"
    }
  ]
}

Rules:
- Use only the listed tools.
- "dependencies" lists the ids of steps whose output this step needs.
- Steps without dependencies between them run concurrently.
- Keep plans minimal; do not add steps the request does not need.

Available tools:
%s`

// LLMPlanner asks a language model for a plan and validates the
// result against the tool registry before handing it to the engine.
type LLMPlanner struct {
	client   llm.LLMClient
	registry *tools.Registry
}

// NewLLMPlanner creates a planner over the given client and registry.
func NewLLMPlanner(client llm.LLMClient, registry *tools.Registry) *LLMPlanner {
	return &LLMPlanner{client: client, registry: registry}
}

// Plan produces a validated plan spec for the request.
func (p *LLMPlanner) Plan(ctx context.Context, request string) (plan.Spec, error) {
	timer := logging.StartTimer(logging.CategoryPlanner, "plan")
	defer timer.Stop()

	system := fmt.Sprintf(planSystemPrompt, strings.Join(p.registry.Describe(), "\n"))
	raw, err := p.client.CompleteWithSystem(ctx, system, request)
	if err != nil {
		return plan.Spec{}, fmt.Errorf("planner call failed: %w", err)
	}

	spec, err := ParseSpec(raw)
	if err != nil {
		logging.PlannerDebug("unparseable plan response: %.200s", raw)
		return plan.Spec{}, err
	}

	if err := p.validateActions(spec); err != nil {
		return plan.Spec{}, err
	}

	// Structure check up front so the caller gets one planner error
	// instead of an engine rejection later.
	if _, err := plan.NewGraph(spec); err != nil {
		return plan.Spec{}, fmt.Errorf("planner produced invalid plan: %w", err)
	}

	logging.Planner("planned %q: %d steps", spec.Goal, len(spec.Steps))
	return spec, nil
}

func (p *LLMPlanner) validateActions(spec plan.Spec) error {
	for _, step := range spec.Steps {
		if _, ok := p.registry.Get(step.Action); !ok {
			return fmt.Errorf("planner used unknown tool %q in step %d", step.Action, step.ID)
		}
	}
	return nil
}

// ParseSpec extracts and decodes a plan spec from raw model output,
// tolerating prose and code fences around the JSON object.
func ParseSpec(raw string) (plan.Spec, error) {
	objText, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return plan.Spec{}, fmt.Errorf("plan response is not JSON: %w", err)
	}

	var spec plan.Spec
	if err := json.Unmarshal([]byte(objText), &spec); err != nil {
		return plan.Spec{}, fmt.Errorf("failed to decode plan: %w", err)
	}
	if len(spec.Steps) == 0 {
		return plan.Spec{}, plan.ErrEmptyPlan
	}
	return spec, nil
}
