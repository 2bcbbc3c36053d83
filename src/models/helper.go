package models

import (
	"context"
	"fmt"
)

// ProviderConfig selects and parameterizes a concrete Agent.
type ProviderConfig struct {
	Provider     string
	Model        string
	PromptPrefix string
	// BaseURL and AgentID configure the "agent" HTTP provider.
	BaseURL string
	AgentID string
}

// NewProvider returns a concrete Agent for the named provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Agent, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAILLM(cfg.Model, cfg.PromptPrefix), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, cfg.Model, cfg.PromptPrefix)
	case "ollama":
		return NewOllamaLLM(cfg.Model, cfg.PromptPrefix)
	case "anthropic", "claude":
		return NewAnthropicLLM(cfg.Model, cfg.PromptPrefix), nil
	case "agent":
		return NewAgentAPI(cfg.BaseURL, cfg.AgentID)
	case "dummy":
		return NewDummyLLM(cfg.PromptPrefix), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
