package guard

import (
	"testing"

	"majordomo/internal/config"
)

func newTestGuard() *ControlInputGuard {
	return NewControlInputGuard(config.DefaultGuardConfig())
}

func TestInspect_RuleChain(t *testing.T) {
	g := newTestGuard()

	tests := []struct {
		name       string
		text       string
		slashToken string
		wantStatus string // "" means pass-through (nil decision)
		wantReason string
	}{
		{"empty input", "", "", StatusNoop, ReasonEmptyInput},
		{"whitespace only", "   \t\n", "", StatusNoop, ReasonEmptyInput},
		{"cancel keyword", "cancel", "", StatusCancelled, ReasonCancelKeyword},
		{"cancel embedded", "please CANCEL that now", "", StatusCancelled, ReasonCancelKeyword},
		{"never mind", "oh never mind", "", StatusCancelled, ReasonCancelKeyword},
		{"acknowledgement", "ok", "", StatusNoop, ReasonAcknowledgement},
		{"acknowledgement mixed case", "Thanks", "", StatusNoop, ReasonAcknowledgement},
		{"long acknowledgement", "thank you", "", StatusNoop, ReasonAcknowledgement},
		{"short alphabetic token", "hm", "", StatusNoop, ReasonShortToken},
		{"symbol only", "?!", "", StatusNoop, ReasonSymbolOnly},
		{"low signal mixed token", "a1?", "", StatusNoop, ReasonLowSignalToken},
		{"slash stop", "/stop", "stop", StatusCancelled, ReasonSlashControl},
		{"slash stop with prefix", "stop", "/stop", StatusCancelled, ReasonSlashControl},
		{"other slash command", "/help me", "help", "", ""},
		{"actionable request", "find my keys", "", "", ""},
		{"long actionable", "send an email to Priya about the offsite", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Inspect(tt.text, tt.slashToken)
			if tt.wantStatus == "" {
				if d != nil {
					t.Fatalf("Inspect(%q) = %+v, want pass-through", tt.text, d)
				}
				return
			}
			if d == nil {
				t.Fatalf("Inspect(%q) = nil, want %s/%s", tt.text, tt.wantStatus, tt.wantReason)
			}
			if d.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", d.Status, tt.wantStatus)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestInspect_FirstMatchWins(t *testing.T) {
	g := newTestGuard()

	// "stop that" contains a cancel keyword and is also two short words;
	// the cancel rule comes first in the chain.
	d := g.Inspect("stop that", "")
	if d == nil || d.Reason != ReasonCancelKeyword {
		t.Errorf("Inspect(\"stop that\") = %+v, want cancel_keyword", d)
	}
}

func TestInspect_SlashNonStopBypassesHeuristics(t *testing.T) {
	g := newTestGuard()

	// Even empty remaining text passes through when the slash command
	// belongs to another subsystem.
	if d := g.Inspect("", "theme"); d != nil {
		t.Errorf("Inspect with /theme = %+v, want pass-through", d)
	}
}

func TestInspect_SlashStopWithTrailingTextPassesThrough(t *testing.T) {
	g := newTestGuard()

	if d := g.Inspect("stop the music", "stop"); d != nil {
		t.Errorf("Inspect(/stop the music) = %+v, want pass-through", d)
	}
}

func TestInspect_CancelledDecisionsCarryMessage(t *testing.T) {
	g := newTestGuard()

	d := g.Inspect("abort", "")
	if d == nil || d.Status != StatusCancelled {
		t.Fatalf("expected cancelled decision, got %+v", d)
	}
	if d.Message == "" {
		t.Error("cancelled decision should carry a user-facing message")
	}
}
