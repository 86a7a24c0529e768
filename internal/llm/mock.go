package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errNoReply = errors.New("mock: no reply queued")

// MockResponse is one reply queued on a MockProvider. A non-nil Err is
// returned instead of content.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// Call is a request seen by the MockProvider, with the purpose and learner
// the caller attached to its context.
type Call struct {
	Request
	Purpose string
	UserID  string
}

// MockProvider replays queued replies in order and records every call. With
// nothing queued it reports itself unavailable, which sends the coach down
// its rule-based path; that is how the "mock" provider setting behaves.
type MockProvider struct {
	mu    sync.Mutex
	queue []MockResponse
	Calls []Call
}

func NewMockProvider(replies ...MockResponse) *MockProvider {
	return &MockProvider{queue: replies}
}

// Queue appends replies behind the ones already waiting.
func (m *MockProvider) Queue(replies ...MockResponse) {
	m.mu.Lock()
	m.queue = append(m.queue, replies...)
	m.mu.Unlock()
}

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, Call{Request: req, Purpose: PurposeFrom(ctx), UserID: UserFrom(ctx)})
	if len(m.queue) == 0 {
		return nil, &ErrProviderUnavailable{Err: errNoReply}
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	if next.Err != nil {
		return nil, next.Err
	}

	usage := next.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: next.Content, Usage: usage, Model: ProviderMock, StopReason: "end"}, nil
}

func (m *MockProvider) ModelID() string { return ProviderMock }

// CallCount reports how many requests reached the provider.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
