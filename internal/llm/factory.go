package llm

import (
	"errors"
	"fmt"
	"os"
)

// ErrNoAPIKey is returned when a hosted provider has no key configured.
var ErrNoAPIKey = errors.New("API key is not set")

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "google", "openai", "ollama". An empty apiKey is
// looked up in the provider's conventional environment variables; baseURL
// overrides the API endpoint and may be empty.
func NewProvider(providerType, model, apiKey, baseURL string) (Provider, error) {
	switch providerType {
	case "google":
		if apiKey == "" {
			apiKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("google: %w (set GEMINI_API_KEY)", ErrNoAPIKey)
		}
		p := NewGoogleProvider(apiKey, model)
		if baseURL != "" {
			p.baseURL = baseURL
		}
		return p, nil

	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai: %w (set OPENAI_API_KEY)", ErrNoAPIKey)
		}
		return NewOpenAIProvider(apiKey, model, baseURL), nil

	case "ollama":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
