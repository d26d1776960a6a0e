package config

// GuardConfig configures the pre-planning guard chain.
// All matching is lexical; the guard never calls the network.
type GuardConfig struct {
	// Substrings that cancel whatever is in flight (case-insensitive)
	CancelKeywords []string `yaml:"cancel_keywords"`

	// Exact-match acknowledgements that need no plan
	AckKeywords []string `yaml:"ack_keywords"`

	// Single tokens at or under this rune length are low-signal candidates
	ShortTokenLimit int `yaml:"short_token_limit"`

	// Inputs longer than this never reach the fallback classifier
	HeuristicsOnlyLength int `yaml:"heuristics_only_length"`

	// Slash commands that mean "stop" (without the leading slash)
	SlashStopCommands []string `yaml:"slash_stop_commands"`

	// Verbs that mark a short single token as actionable anyway
	ActionVerbs []string `yaml:"action_verbs"`
}

// ClassifierConfig configures the low-signal fallback classifier.
type ClassifierConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MaxChars    int     `yaml:"max_chars"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// DefaultGuardConfig returns the default guard keyword sets and thresholds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		CancelKeywords: []string{
			"cancel", "stop that", "never mind", "nevermind", "abort", "forget it",
		},
		AckKeywords: []string{
			"ok", "okay", "k", "kk", "thanks", "thank you", "thx", "ty",
			"cool", "nice", "great", "got it", "sure", "yep", "yeah", "no",
		},
		ShortTokenLimit:      4,
		HeuristicsOnlyLength: 24,
		SlashStopCommands:    []string{"stop", "cancel", "abort"},
		ActionVerbs: []string{
			"find", "search", "send", "open", "run", "play", "set", "get",
			"list", "show", "add", "call", "text", "email", "check", "book",
		},
	}
}

// DefaultClassifierConfig returns the default classifier settings.
// Disabled by default: heuristics alone handle the common cases.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Enabled:     false,
		MaxChars:    40,
		Model:       "", // empty = the main llm.model
		Temperature: 0.0,
		MaxTokens:   8,
	}
}
