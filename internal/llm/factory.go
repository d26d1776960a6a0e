package llm

import (
	"fmt"

	"majordomo/internal/config"
)

// NewClient builds an LLMClient from config.
// Supported providers: openai (any OpenAI-compatible endpoint),
// gemini, and mock (for offline development).
func NewClient(cfg *config.Config) (LLMClient, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.GetLLMTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// NewClassifierClient builds the client the low-signal classifier
// calls through. The classifier section overrides the model,
// temperature, and token budget; an empty model inherits llm.model.
func NewClassifierClient(cfg *config.Config) (LLMClient, error) {
	model := cfg.Classifier.Model
	if model == "" {
		model = cfg.LLM.Model
	}

	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClientWithConfig(OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       model,
			Temperature: cfg.Classifier.Temperature,
			MaxTokens:   cfg.Classifier.MaxTokens,
			Timeout:     cfg.GetLLMTimeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(cfg.LLM.APIKey, model, cfg.Classifier.Temperature, cfg.Classifier.MaxTokens)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
