package llm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// NewProvider builds the configured provider wrapped as: caller -> retry -> logging -> provider.
func NewProvider(ctx context.Context, conf core.AIConfig, logger core.Logger) (Provider, error) {
	if err := ValidateConfig(conf); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	opts := optionsFrom(conf)
	switch conf.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(opts)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(opts)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, opts)
	case ProviderMock:
		return NewMockProvider(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "initializing %s provider", conf.Provider)
	}

	return WithRetry(WithLogging(base, logger), retryFrom(conf)), nil
}
