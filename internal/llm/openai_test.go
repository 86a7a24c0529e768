package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubAPI serves one canned JSON body for every request and records the
// last request body.
func stubAPI(t *testing.T, status int, header http.Header, body any) (url string, last *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL, &got
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1760000000,
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 180, "completion_tokens": 40, "total_tokens": 220},
	}
}

func TestOpenAIProviderStructuredPlan(t *testing.T) {
	url, sent := stubAPI(t, http.StatusOK, nil, chatCompletion(`{"summary":"Drill ratios","minutes":20}`, "stop"))
	p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", Model: "gpt-mini", BaseURL: url + "/v1"})
	if err != nil {
		t.Fatal(err)
	}

	req := Prompt("You are an SAT study coach.", "ratios: 2/9 correct", planSchema())
	req.MaxTokens = 256
	resp, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Model != "gpt-4o-mini-2024-07-18" || resp.StopReason != StopEnd {
		t.Errorf("model/stop = %s/%s", resp.Model, resp.StopReason)
	}
	if resp.Usage != (Usage{InputTokens: 180, OutputTokens: 40, TotalTokens: 220}) {
		t.Errorf("Usage = %+v", resp.Usage)
	}

	body := *sent
	if body["model"] != "gpt-4o-mini" {
		t.Errorf("sent model %v, want alias resolved to gpt-4o-mini", body["model"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages = %v, want system then user", msgs)
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("response_format = %v", format)
	}
}

func TestOpenAIProviderReplyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		check  func(error) bool
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   map[string]any{"error": map[string]any{"type": "tokens", "message": "slow down", "code": "rate_limit_exceeded"}},
			check:  func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) },
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			body:   map[string]any{"error": map[string]any{"type": "server_error", "message": "upstream"}},
			check:  func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) },
		},
		{
			name:   "cut off",
			status: http.StatusOK,
			body:   chatCompletion(`{"summary":"Dri`, "length"),
			check:  func(err error) bool { var e *ErrMaxTokensExceeded; return errors.As(err, &e) },
		},
		{
			name:   "off schema",
			status: http.StatusOK,
			body:   chatCompletion(`{"summary":"Drill ratios"}`, "stop"),
			check:  func(err error) bool { var e *ErrInvalidResponse; return errors.As(err, &e) },
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			body:   map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}},
			check:  func(err error) bool { var e *ErrInvalidResponse; return errors.As(err, &e) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, _ := stubAPI(t, tt.status, nil, tt.body)
			p, err := NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", BaseURL: url + "/v1"})
			if err != nil {
				t.Fatal(err)
			}
			_, err = p.Generate(context.Background(), Prompt("", "ratios", planSchema()))
			if err == nil || !tt.check(err) {
				t.Fatalf("Generate() error = %T %v", err, err)
			}
		})
	}
}

func TestNewOpenRouterProvider(t *testing.T) {
	if _, err := NewOpenRouterProvider(ProviderConfig{Model: "anthropic/claude-3-haiku"}); err == nil {
		t.Fatal("expected an error without an API key")
	}

	url, sent := stubAPI(t, http.StatusOK, nil, chatCompletion("Keep going.", "stop"))
	p, err := NewOpenRouterProvider(ProviderConfig{APIKey: "sk-or", Model: "gpt", BaseURL: url})
	if err != nil {
		t.Fatal(err)
	}
	if p.ModelID() != "gpt" {
		t.Errorf("ModelID() = %q, OpenRouter ids are not aliased", p.ModelID())
	}
	if _, err := p.Generate(context.Background(), Prompt("", "hi", nil)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if (*sent)["model"] != "gpt" {
		t.Errorf("sent model %v", (*sent)["model"])
	}
}

func TestOpenAIModelAliases(t *testing.T) {
	for alias, want := range map[string]string{
		"gpt-mini":     "gpt-4o-mini",
		"gpt":          "gpt-4o",
		"gpt-4.1-nano": "gpt-4.1-nano",
	} {
		if got := openaiModels.resolve(alias); got != want {
			t.Errorf("resolve(%q) = %q, want %q", alias, got, want)
		}
	}
}
