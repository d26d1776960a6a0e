package engine

import (
	"context"
	"unicode/utf8"

	"majordomo/internal/plan"
	"majordomo/internal/tools"
)

// previewLimit caps the output preview attached to completed-step
// events; full tool output stays with the tool adapter.
const previewLimit = 200

// ToolInvoker executes steps against a tool registry, converting the
// registry's (output, error) pair into the engine's tagged result.
type ToolInvoker struct {
	registry *tools.Registry
}

// NewToolInvoker creates an invoker over the given registry.
func NewToolInvoker(registry *tools.Registry) *ToolInvoker {
	return &ToolInvoker{registry: registry}
}

// Invoke runs the step's action.
func (ti *ToolInvoker) Invoke(ctx context.Context, step plan.StepSpec) plan.StepResult {
	out, err := ti.registry.Execute(ctx, step.Action, step.Parameters)
	if err != nil {
		return plan.Fail(err.Error())
	}
	return plan.Succeed(truncatePreview(out))
}

func truncatePreview(s string) string {
	if utf8.RuneCountInString(s) <= previewLimit {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLimit-1]) + "…"
}
