package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"majordomo/internal/llm"
	"majordomo/internal/plan"
	"majordomo/internal/tools"
)

type scriptedClient struct {
	mu       sync.Mutex
	response string
	err      error
	lastSys  string
}

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.CompleteWithSystem(ctx, "", prompt)
}

func (s *scriptedClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSys = system
	return s.response, s.err
}

func (s *scriptedClient) systemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSys
}

func testRegistry() *tools.Registry {
	r := tools.NewRegistry()
	tools.RegisterBuiltins(r)
	return r
}

const validPlanJSON = `{
	"goal": "wait then echo",
	"steps": [
		{"id": 1, "action": "wait", "parameters": {"duration": "1ms"}},
		{"id": 2, "action": "echo", "parameters": {"text": "hi"}, "dependencies": [1]}
	]
}`

func TestPlan_ValidResponse(t *testing.T) {
	client := &scriptedClient{response: validPlanJSON}
	p := NewLLMPlanner(client, testRegistry())

	spec, err := p.Plan(context.Background(), "wait a moment then say hi")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if spec.Goal != "wait then echo" || len(spec.Steps) != 2 {
		t.Errorf("spec = %+v", spec)
	}
	if !strings.Contains(client.systemPrompt(), "echo:") {
		t.Error("system prompt should include the tool catalog")
	}
}

func TestPlan_ToleratesFencedResponse(t *testing.T) {
	client := &scriptedClient{response: "Here is the plan:\n```json\n" + validPlanJSON + "\n```"}
	p := NewLLMPlanner(client, testRegistry())

	if _, err := p.Plan(context.Background(), "do it"); err != nil {
		t.Fatalf("Plan: %v", err)
	}
}

func TestPlan_RejectsUnknownTool(t *testing.T) {
	client := &scriptedClient{response: `{"goal": "g", "steps": [{"id": 1, "action": "teleport"}]}`}
	p := NewLLMPlanner(client, testRegistry())

	if _, err := p.Plan(context.Background(), "beam me up"); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestPlan_RejectsCyclicPlan(t *testing.T) {
	client := &scriptedClient{response: `{"goal": "g", "steps": [
		{"id": 1, "action": "echo", "dependencies": [2]},
		{"id": 2, "action": "echo", "dependencies": [1]}
	]}`}
	p := NewLLMPlanner(client, testRegistry())

	if _, err := p.Plan(context.Background(), "loop"); err == nil {
		t.Error("expected error for cyclic plan")
	}
}

func TestPlan_ClientErrorPropagates(t *testing.T) {
	client := &scriptedClient{err: errors.New("api down")}
	p := NewLLMPlanner(client, testRegistry())

	if _, err := p.Plan(context.Background(), "anything"); err == nil {
		t.Error("expected error when the model call fails")
	}
}

func TestParseSpec(t *testing.T) {
	if _, err := ParseSpec("not json at all"); err == nil {
		t.Error("expected error for non-JSON response")
	}
	if _, err := ParseSpec(`{"goal": "g", "steps": []}`); !errors.Is(err, plan.ErrEmptyPlan) {
		t.Error("expected empty-plan error")
	}

	spec, err := ParseSpec("prose before " + validPlanJSON + " prose after")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	if len(spec.Steps) != 2 {
		t.Errorf("steps = %d, want 2", len(spec.Steps))
	}
}

func TestAnalyze_MergesFacets(t *testing.T) {
	mock := llm.NewMockClient().
		Respond("what does the user want", "play music").
		Respond("people, places, items", "living room speaker").
		Respond("urgent, routine, or ambient", "routine")

	a := NewParallelIntentAnalyzer(llm.NewBatcher(mock, 3))
	analysis := a.Analyze(context.Background(), "play some jazz in the living room")

	if got := analysis.Get(FacetIntent); got != "play music" {
		t.Errorf("intent = %q", got)
	}
	if got := analysis.Get(FacetEntities); got != "living room speaker" {
		t.Errorf("entities = %q", got)
	}
	if got := analysis.Get(FacetUrgency); got != "routine" {
		t.Errorf("urgency = %q", got)
	}
}

func TestAnalyze_DropsFailedFacets(t *testing.T) {
	client := &scriptedClient{err: errors.New("api down")}
	a := NewParallelIntentAnalyzer(llm.NewBatcher(client, 2))

	analysis := a.Analyze(context.Background(), "anything")
	if len(analysis.Facets) != 0 {
		t.Errorf("facets = %v, want empty", analysis.Facets)
	}
	if analysis.Get(FacetIntent) != "" {
		t.Error("failed facet should read as empty")
	}
}
