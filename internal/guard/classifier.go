package guard

import (
	"context"
	"strings"

	"majordomo/internal/config"
	"majordomo/internal/llm"
	"majordomo/internal/logging"
)

// Label is the classifier's verdict on a short ambiguous input.
type Label string

const (
	LabelControl    Label = "control"    // steering an in-flight task (stop, pause)
	LabelNoise      Label = "noise"      // filler with no intent
	LabelActionable Label = "actionable" // deserves a plan
	LabelUnknown    Label = "unknown"    // classifier unavailable or unparseable
)

const classifierSystemPrompt = `You label short user inputs for a task assistant.
Reply with exactly one word:
CONTROL - the user is steering or stopping an in-flight task
NOISE - filler, typo, or reaction with no intent
ACTIONABLE - a real request that deserves work`

// LowSignalClassifier asks a language model for a second opinion on
// short inputs the heuristics could not decide. It fails open: any
// model failure degrades to LabelUnknown, which callers must treat
// like LabelActionable.
type LowSignalClassifier struct {
	client LLMClient
	cfg    config.ClassifierConfig
}

// LLMClient is the completion surface the classifier needs.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewLowSignalClassifier creates a classifier over the given client.
func NewLowSignalClassifier(client LLMClient, cfg config.ClassifierConfig) *LowSignalClassifier {
	return &LowSignalClassifier{client: client, cfg: cfg}
}

// ShouldClassify reports whether the input qualifies for a model call.
func (c *LowSignalClassifier) ShouldClassify(text string) bool {
	if !c.cfg.Enabled || c.client == nil {
		return false
	}
	return len([]rune(strings.TrimSpace(text))) <= c.cfg.MaxChars
}

// Classify labels the input. Never returns an error: failures
// degrade to LabelUnknown.
func (c *LowSignalClassifier) Classify(ctx context.Context, text string) Label {
	if c.client == nil {
		return LabelUnknown
	}

	raw, err := c.client.CompleteWithSystem(ctx, classifierSystemPrompt, strings.TrimSpace(text))
	if err != nil {
		logging.GuardDebug("classifier call failed, degrading to unknown: %v", err)
		return LabelUnknown
	}

	return parseLabel(raw)
}

// parseLabel maps the first word of the response to a label,
// case-insensitive. Anything else is unknown.
func parseLabel(raw string) Label {
	fields := strings.Fields(llm.StripFences(raw))
	if len(fields) == 0 {
		return LabelUnknown
	}

	switch strings.ToUpper(strings.Trim(fields[0], ".,:;!\"'")) {
	case "CONTROL":
		return LabelControl
	case "NOISE":
		return LabelNoise
	case "ACTIONABLE":
		return LabelActionable
	default:
		return LabelUnknown
	}
}
