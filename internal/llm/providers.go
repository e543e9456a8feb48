package llm

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-http-utils/headers"
)

// providerConfig describes one Chat Completions compatible endpoint.
type providerConfig struct {
	name      string
	baseURL   string
	baseEnv   string // overrides baseURL when set in the environment
	apiKeyEnv string // empty for providers without auth
	headers   map[string]string
}

var providers = map[string]providerConfig{
	"openai": {
		name:      "openai",
		baseURL:   "https://api.openai.com/v1",
		baseEnv:   "OPENAI_BASE_URL",
		apiKeyEnv: "OPENAI_API_KEY",
	},
	"google": {
		name:      "google",
		baseURL:   "https://generativelanguage.googleapis.com/v1beta/openai",
		apiKeyEnv: "GEMINI_API_KEY",
	},
	"anthropic": {
		name:      "anthropic",
		baseURL:   "https://api.anthropic.com/v1",
		apiKeyEnv: "ANTHROPIC_API_KEY",
	},
	"mistral": {
		name:      "mistral",
		baseURL:   "https://api.mistral.ai/v1",
		apiKeyEnv: "MISTRAL_API_KEY",
	},
	"ollama": {
		name:    "ollama",
		baseURL: "http://localhost:11434/v1",
		baseEnv: "OLLAMA_BASE_URL",
	},
	"openrouter": {
		name:      "openrouter",
		baseURL:   "https://openrouter.ai/api/v1",
		apiKeyEnv: "OPENROUTER_API_KEY",
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/weather-a2a",
			"X-Title":      "Weather A2A",
		},
	},
}

// resolved applies the base URL override from the environment.
func (p providerConfig) resolved() providerConfig {
	if p.baseEnv == "" {
		return p
	}
	if override := os.Getenv(p.baseEnv); override != "" {
		p.baseURL = strings.TrimRight(override, "/")
	}
	return p
}

// decorate sets auth and provider specific headers. The API key is read on
// every request so a missing key only surfaces as a provider error.
func (p providerConfig) decorate(req *http.Request) {
	req.Header.Set(headers.ContentType, "application/json")
	if p.apiKeyEnv != "" {
		if key := os.Getenv(p.apiKeyEnv); key != "" {
			req.Header.Set(headers.Authorization, "Bearer "+key)
		}
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
}
