package llm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetry(p Provider) (*RetryProvider, *[]time.Duration) {
	r := WithRetry(p, RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     150 * time.Millisecond,
		Multiplier:  2,
	})
	waits := new([]time.Duration)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return r, waits
}

func TestRetry(t *testing.T) {
	ok := MockResponse{Content: json.RawMessage(`{"ok":true}`)}
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	invalid := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{name: "first attempt", responses: []MockResponse{ok}, wantCalls: 1},
		{name: "transient then success", responses: []MockResponse{down, ok}, wantCalls: 2},
		{name: "all attempts fail", responses: []MockResponse{down, down, down, ok}, wantErr: true, wantCalls: 3},
		{name: "invalid response retried once", responses: []MockResponse{invalid, ok}, wantCalls: 2},
		{name: "invalid response twice", responses: []MockResponse{invalid, invalid, ok}, wantErr: true, wantCalls: 2},
		{
			name:      "max tokens not retried",
			responses: []MockResponse{{Err: &ErrMaxTokensExceeded{}}, ok},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "context error not retried",
			responses: []MockResponse{{Err: errors.Wrap(context.DeadlineExceeded, "calling")}, ok},
			wantErr:   true,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			r, _ := testRetry(mock)

			resp, err := r.Generate(context.Background(), Request{})
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
			}
			assert.Equal(t, tt.wantCalls, mock.CallCount())
		})
	}
}

func TestRetry_Backoff(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{}},
		MockResponse{Err: &ErrRateLimit{RetryAfter: 3 * time.Second}},
		MockResponse{Content: json.RawMessage(`"x"`)},
	)
	r, waits := testRetry(mock)

	_, err := r.Generate(context.Background(), Request{})
	require.NoError(t, err)
	require.Len(t, *waits, 2)
	assert.InDelta(t, float64(100*time.Millisecond), float64((*waits)[0]), float64(20*time.Millisecond))
	assert.Equal(t, 3*time.Second, (*waits)[1])
}

func TestRetry_BackoffCapped(t *testing.T) {
	r, _ := testRetry(NewMockProvider())
	for attempt := 0; attempt < 5; attempt++ {
		assert.LessOrEqual(t, r.backoff(attempt, errors.New("x")), 180*time.Millisecond) // 150ms + 20%
	}
}

func TestRetry_CancelledWhileWaiting(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}}, MockResponse{Content: json.RawMessage(`"x"`)})
	r, _ := testRetry(mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestLogging(t *testing.T) {
	logger := new(testLogger)
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`"hi"`), Usage: Usage{InputTokens: 3, OutputTokens: 2}},
		MockResponse{Err: &ErrProviderUnavailable{}},
	)
	p := WithLogging(mock, logger)

	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, resp.Text())

	_, err = p.Generate(context.Background(), Request{})
	assert.Error(t, err)
	assert.Equal(t, []string{"debug", "warn"}, logger.levels())
	assert.Equal(t, "mock", p.ModelID())
}
