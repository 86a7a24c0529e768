package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

var fastRetry = RetryConfig{
	MaxAttempts: 3,
	InitialWait: time.Millisecond,
	MaxWait:     4 * time.Millisecond,
	Multiplier:  2,
}

func TestRetryAttempts(t *testing.T) {
	plan := MockResponse{Content: json.RawMessage(`{"summary":"Drill ratios."}`)}
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503")}}
	invalid := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`{"focus":7}`), Err: errors.New("focus: want array")}}

	tests := []struct {
		name      string
		replies   []MockResponse
		wantCalls int
		wantErr   bool
	}{
		{"first try", []MockResponse{plan}, 1, false},
		{"outage then plan", []MockResponse{down, plan}, 2, false},
		{"outage every time", []MockResponse{down, down, down, plan}, 3, true},
		{"rate limit with hint", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond}}, plan}, 2, false},
		{"truncated is final", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, plan}, 1, true},
		{"bad shape gets one more try", []MockResponse{invalid, plan}, 2, false},
		{"bad shape twice", []MockResponse{invalid, invalid, plan}, 2, true},
		{"bad shape after outage", []MockResponse{down, invalid, plan}, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.replies...)
			resp, err := WithRetry(mock, fastRetry, nil).Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(resp.Content) != string(plan.Content) {
				t.Errorf("content = %s", resp.Content)
			}
			if got := mock.CallCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRetryKeepsErrorType(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{}})
	_, err := WithRetry(mock, fastRetry, nil).Generate(context.Background(), Request{})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("err = %v, want ErrMaxTokensExceeded", err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(mock, fastRetry, nil).Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if mock.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", mock.CallCount())
	}
}

func TestRetryCancelDuringWait(t *testing.T) {
	slow := RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 2}
	mock := NewMockProvider(MockResponse{Err: &ErrProviderUnavailable{}})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := WithRetry(mock, slow, nil).Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestRetryDelay(t *testing.T) {
	cfg := RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 3}
	transient := &ErrProviderUnavailable{}

	tests := []struct {
		attempt  int
		err      error
		min, max time.Duration
	}{
		{1, transient, 50 * time.Millisecond, 100 * time.Millisecond},
		{2, transient, 150 * time.Millisecond, 300 * time.Millisecond},
		{3, transient, 450 * time.Millisecond, 900 * time.Millisecond},
		{6, transient, 500 * time.Millisecond, time.Second},
		{1, &ErrRateLimit{RetryAfter: 7 * time.Second}, 7 * time.Second, 7 * time.Second},
	}
	for _, tt := range tests {
		for range 20 {
			got := cfg.delay(tt.attempt, tt.err)
			if got < tt.min || got > tt.max {
				t.Fatalf("delay(%d, %v) = %s, want within [%s, %s]", tt.attempt, tt.err, got, tt.min, tt.max)
			}
		}
	}

	if got := (RetryConfig{}).delay(1, transient); got != 0 {
		t.Errorf("zero config delay = %s, want 0", got)
	}
}

func TestRetryModelID(t *testing.T) {
	if got := WithRetry(NewMockProvider(), fastRetry, nil).ModelID(); got != ProviderMock {
		t.Errorf("ModelID() = %q, want %q", got, ProviderMock)
	}
}
