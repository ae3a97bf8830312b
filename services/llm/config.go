package llm

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// default model per provider, as friendly names
var defaultModels = map[string]string{
	ProviderAnthropic: "claude-haiku",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderGemini:    "gemini-flash",
}

// Options configures a single provider client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string // openai only: OpenRouter and other compatible APIs
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Second,
		MaxWait:     10 * time.Second,
		Multiplier:  2,
	}
}

func optionsFrom(conf core.AIConfig) Options {
	model := conf.Model
	if model == "" {
		model = defaultModels[conf.Provider]
	}
	return Options{APIKey: conf.APIKey, Model: model, BaseURL: conf.BaseURL}
}

func retryFrom(conf core.AIConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if conf.Retries > 0 {
		rc.MaxAttempts = conf.Retries
	}
	return rc
}

// ValidateConfig checks that the selected provider can be built.
func ValidateConfig(conf core.AIConfig) error {
	switch conf.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		if conf.APIKey == "" {
			return errors.Errorf("an API key is required for the %s provider", conf.Provider)
		}
	case ProviderMock:
	default:
		return errors.Errorf("unknown model provider: %q", conf.Provider)
	}
	return nil
}

// resolveModel maps a friendly model name to a provider model ID; unknown names are used as-is.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	return name
}
