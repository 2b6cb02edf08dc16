package factory

import (
	"fmt"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/llm/ollama"
	"ai-docchat-be/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, apiKey, baseURL string) (llm.Provider, error) {
	switch providerType {
	case "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(apiKey, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
