package config

import (
	"fmt"
	"os"
	"strconv"
)

// LLMConfig defines the OpenAI-chat-compatible LLM endpoint configuration,
// sourced entirely from environment variables per the external interface
// contract — there is no YAML file for credentials.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

const (
	envLLMBaseURL   = "LLM_BASE_URL"
	envLLMAPIKey    = "LLM_API_KEY"
	envLLMModel     = "LLM_MODEL_NAME"
	envLLMTemp      = "LLM_TEMPERATURE"
	envLLMMaxTokens = "LLM_MAX_TOKENS"

	defaultLLMModel       = "gpt-4"
	defaultLLMTemperature = float32(0.7)
	defaultLLMMaxTokens   = 2000
)

// LoadLLMConfig builds an LLMConfig from the process environment.
// LLM_BASE_URL and LLM_API_KEY are required; the rest fall back to the
// same defaults the investigation agent used historically.
func LoadLLMConfig() (*LLMConfig, error) {
	baseURL := os.Getenv(envLLMBaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredField, envLLMBaseURL)
	}
	apiKey := os.Getenv(envLLMAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequiredField, envLLMAPIKey)
	}

	cfg := &LLMConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       defaultLLMModel,
		Temperature: defaultLLMTemperature,
		MaxTokens:   defaultLLMMaxTokens,
	}

	if v := os.Getenv(envLLMModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(envLLMTemp); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Temperature = float32(f)
		}
	}
	if v := os.Getenv(envLLMMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}

	return cfg, nil
}
