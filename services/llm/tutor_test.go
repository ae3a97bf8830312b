package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tutor"
)

func TestTutor_Reply(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage("  Goroutines are cheap threads.\n")})
	tut := NewTutor(mock, 0)

	got, err := tut.Reply(context.Background(), "be nice", []tutor.Message{
		{Role: tutor.RoleSystem, Content: "answer in English"},
		{Role: tutor.RoleUser, Content: "what is a goroutine?"},
		{Role: tutor.RoleAssistant, Content: "a lightweight thread"},
		{Role: tutor.RoleUser, Content: "how cheap?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Goroutines are cheap threads.", got)

	require.Len(t, mock.Calls, 1)
	req := mock.Calls[0]
	assert.Equal(t, "be nice\n\nanswer in English", req.System)
	assert.Nil(t, req.Schema)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "what is a goroutine?"},
		{Role: RoleAssistant, Content: "a lightweight thread"},
		{Role: RoleUser, Content: "how cheap?"},
	}, req.Messages)
}

func TestTutor_Answer(t *testing.T) {
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"message":"Use channels.","sources":[{"course":"Go","lesson":"Channels","url":"/lessons/channels"}]}`),
	})
	tut := NewTutor(mock, 512)

	ans, err := tut.Answer(context.Background(), "sys", "how do goroutines talk?")
	require.NoError(t, err)
	assert.Equal(t, core.Text("Use channels."), ans.Message)
	assert.Equal(t, []tutor.Source{{Course: "Go", Lesson: "Channels", URL: "/lessons/channels"}}, ans.Sources)

	req := mock.Calls[0]
	assert.Equal(t, answerSchema, req.Schema)
	assert.Equal(t, 512, req.MaxTokens)
}

func TestTutor_AnswerInvalid(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"text":"nope"}`)})
	_, err := NewTutor(mock, 0).Answer(context.Background(), "sys", "q")

	var invalid *ErrInvalidResponse
	assert.ErrorAs(t, err, &invalid)
}

func TestTutor_ProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "rate limited", err: &ErrRateLimit{Provider: ProviderOpenAI}, wantErr: tutor.ErrBusy},
		{name: "unavailable", err: &ErrProviderUnavailable{Provider: ProviderGemini}, wantErr: tutor.ErrUnavailable},
		{name: "truncated", err: &ErrMaxTokensExceeded{MaxTokens: 64}, wantErr: tutor.ErrUnavailable},
		{name: "invalid", err: &ErrInvalidResponse{}, wantErr: tutor.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTutor(NewMockProvider(MockResponse{Err: tt.err}), 0).Answer(context.Background(), "sys", "q")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.EqualError(t, &ErrMaxTokensExceeded{MaxTokens: 64}, "tutor answer truncated at 64 tokens")
	assert.EqualError(t, &ErrProviderUnavailable{Provider: ProviderMock}, "mock: tutor model unavailable")
}

func TestNewProvider(t *testing.T) {
	logger := new(testLogger)

	p, err := NewProvider(context.Background(), core.AIConfig{Provider: ProviderMock}, logger)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	_, err = NewProvider(context.Background(), core.AIConfig{Provider: ProviderAnthropic}, logger)
	assert.EqualError(t, err, "an API key is required for the anthropic provider")

	_, err = NewProvider(context.Background(), core.AIConfig{Provider: "cohere"}, logger)
	assert.EqualError(t, err, `unknown model provider: "cohere"`)

	p, err = NewProvider(context.Background(), core.AIConfig{Provider: ProviderOpenAI, APIKey: "sk-test", Retries: 5}, logger)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())
	if r, ok := p.(*RetryProvider); assert.True(t, ok) {
		assert.Equal(t, 5, r.config.MaxAttempts)
	}
}
