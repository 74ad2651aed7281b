package llm

import (
	"strings"

	"github.com/ppiankov/panelgraph/internal/errors"
	"github.com/ppiankov/panelgraph/internal/model"
)

// OllamaBaseURL is the OpenAI-compatible endpoint of a local ollama
const OllamaBaseURL = "http://localhost:11434/v1"

// NewProvider creates the provider named by config; "" means disabled and
// returns a nil provider
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = OllamaBaseURL
		}
		if config.APIKey == "" {
			// ollama ignores the key but the client sends one
			config.APIKey = "ollama"
		}
		if config.Model == "" {
			config.Model = "llama3.1"
		}
		return NewOpenAIProvider(config)

	case "":
		return nil, nil

	default:
		return nil, errors.WithHint(
			errors.Newf("unknown LLM provider: %s", config.Provider),
			"supported providers: openai, ollama")
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:       modelConfig.Provider,
		Model:          modelConfig.Model,
		APIKey:         modelConfig.APIKey,
		BaseURL:        modelConfig.BaseURL,
		Timeout:        modelConfig.Timeout,
		StrictEvidence: modelConfig.StrictEvidence,
		MaxTokens:      modelConfig.MaxTokens,
		HTTPProxy:      modelConfig.HTTPProxy,
		HTTPSProxy:     modelConfig.HTTPSProxy,
		NoProxy:        modelConfig.NoProxy,
	}
}
