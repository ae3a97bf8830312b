package llm

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
)

// LoggingProvider logs latency and token usage of every request.
type LoggingProvider struct {
	inner  Provider
	logger core.Logger
}

func WithLogging(p Provider, logger core.Logger) *LoggingProvider {
	return &LoggingProvider{inner: p, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	data := map[string]interface{}{
		"model":      l.inner.ModelID(),
		"messages":   len(req.Messages),
		"structured": req.Schema != nil,
		"latency":    time.Since(start).String(),
	}
	if err != nil {
		l.logger.Warn("llm.Generate: request failed", err, data)
		return nil, err
	}

	data["model"] = resp.Model
	data["input_tokens"] = resp.Usage.InputTokens
	data["output_tokens"] = resp.Usage.OutputTokens
	l.logger.Debug("llm.Generate", data)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
