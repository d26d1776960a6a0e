// Package guard short-circuits control and noise input before any
// plan is built. The heuristic chain is pure and lexical; the
// fallback classifier is the only part that touches the network.
package guard

import (
	"strings"
	"unicode"

	"majordomo/internal/config"
	"majordomo/internal/logging"
)

// Decision status values.
const (
	StatusCancelled = "cancelled"
	StatusNoop      = "noop"
)

// Decision reason tags.
const (
	ReasonSlashControl    = "slash_control"
	ReasonEmptyInput      = "empty_input"
	ReasonCancelKeyword   = "cancel_keyword"
	ReasonAcknowledgement = "acknowledgement"
	ReasonShortToken      = "short_token"
	ReasonSymbolOnly      = "symbol_only"
	ReasonLowSignalToken  = "low_signal_token"
)

// Decision is a short-circuit verdict. A nil *Decision from Inspect
// means "proceed to planning".
type Decision struct {
	Status  string // cancelled or noop
	Message string // returned to the user verbatim
	Reason  string // machine-readable cause tag
}

// ControlInputGuard applies fast lexical heuristics to raw input.
// It is stateless apart from its configuration and never calls the
// network; Inspect runs in time linear in the input length.
type ControlInputGuard struct {
	cfg config.GuardConfig
}

// NewControlInputGuard creates a guard with the given rule config.
func NewControlInputGuard(cfg config.GuardConfig) *ControlInputGuard {
	return &ControlInputGuard{cfg: cfg}
}

// Inspect evaluates the rule chain in fixed order; the first matching
// rule wins. slashToken is the command name when the message started
// with a slash, empty otherwise.
func (g *ControlInputGuard) Inspect(rawText, slashToken string) *Decision {
	text := strings.TrimSpace(rawText)

	// Slash commands: only the stop set belongs to this guard.
	// Everything else is routed by the command subsystem.
	if slashToken != "" {
		if g.isStopCommand(slashToken) && len(strings.Fields(text)) <= 1 {
			return g.decide(StatusCancelled, "Okay, stopping.", ReasonSlashControl)
		}
		return nil
	}

	if text == "" {
		return g.decide(StatusNoop, "", ReasonEmptyInput)
	}

	lower := strings.ToLower(text)

	for _, kw := range g.cfg.CancelKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return g.decide(StatusCancelled, "Okay, cancelling.", ReasonCancelKeyword)
		}
	}

	if len([]rune(text)) <= g.cfg.HeuristicsOnlyLength {
		for _, kw := range g.cfg.AckKeywords {
			if strings.EqualFold(text, kw) {
				return g.decide(StatusNoop, "", ReasonAcknowledgement)
			}
		}
	}

	runeLen := len([]rune(text))

	if runeLen <= g.cfg.ShortTokenLimit && isAlphabetic(text) {
		return g.decide(StatusNoop, "", ReasonShortToken)
	}

	if runeLen <= g.cfg.ShortTokenLimit && !hasAlphanumeric(text) {
		return g.decide(StatusNoop, "", ReasonSymbolOnly)
	}

	if words := strings.Fields(text); len(words) == 1 && runeLen <= g.cfg.ShortTokenLimit {
		word := strings.ToLower(words[0])
		if !g.isStopCommand(word) && !g.startsWithActionVerb(word) {
			return g.decide(StatusNoop, "", ReasonLowSignalToken)
		}
	}

	return nil
}

func (g *ControlInputGuard) decide(status, message, reason string) *Decision {
	logging.Guard("verdict: status=%s reason=%s", status, reason)
	return &Decision{Status: status, Message: message, Reason: reason}
}

func (g *ControlInputGuard) isStopCommand(token string) bool {
	token = strings.ToLower(strings.TrimPrefix(token, "/"))
	for _, cmd := range g.cfg.SlashStopCommands {
		if token == strings.ToLower(cmd) {
			return true
		}
	}
	return false
}

func (g *ControlInputGuard) startsWithActionVerb(word string) bool {
	for _, verb := range g.cfg.ActionVerbs {
		if strings.HasPrefix(word, strings.ToLower(verb)) {
			return true
		}
	}
	return false
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
