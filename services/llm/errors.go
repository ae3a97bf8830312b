package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/trezcool/darasa/core/tutor"
)

// The typed errors below match tutor.ErrBusy or tutor.ErrUnavailable with errors.Is,
// so the tutor can answer members without exposing provider details.

// ErrRateLimit is returned when the provider throttles the tutor (HTTP 429).
type ErrRateLimit struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("%s: rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

func (e *ErrRateLimit) Is(target error) bool { return target == tutor.ErrBusy }

// ErrInvalidResponse is returned when an answer does not match the answer schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid tutor answer: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

func (e *ErrInvalidResponse) Is(target error) bool { return target == tutor.ErrUnavailable }

type ErrProviderUnavailable struct {
	Provider string
	Err      error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: tutor model unavailable: %v", e.Provider, e.Err)
	}
	return e.Provider + ": tutor model unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

func (e *ErrProviderUnavailable) Is(target error) bool { return target == tutor.ErrUnavailable }

// ErrMaxTokensExceeded is returned when an answer was cut short by the ai.maxTokens budget.
type ErrMaxTokensExceeded struct {
	MaxTokens int
	Content   json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("tutor answer truncated at %d tokens", e.MaxTokens)
}

func (e *ErrMaxTokensExceeded) Is(target error) bool { return target == tutor.ErrUnavailable }
