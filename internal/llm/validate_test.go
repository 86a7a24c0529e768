package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func planSchema() *Schema {
	return &Schema{
		Name:        "test-plan",
		Description: "A focus plan",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
				"minutes": map[string]any{"type": "integer", "minimum": 0},
				"level":   map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
				"focus": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"summary", "minutes"},
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"summary":"Drill ratios","minutes":20,"level":"hard","focus":["ratios"]}`, false},
		{"optional fields omitted", `{"summary":"Rest","minutes":0}`, false},
		{"missing required", `{"summary":"Drill ratios"}`, true},
		{"wrong type", `{"summary":"x","minutes":"ten"}`, true},
		{"bad enum", `{"summary":"x","minutes":5,"level":"expert"}`, true},
		{"bad array item", `{"summary":"x","minutes":5,"focus":[1,2]}`, true},
		{"negative minutes", `{"summary":"x","minutes":-1}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(planSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var invErr *ErrInvalidResponse
				if !errors.As(err, &invErr) {
					t.Fatalf("expected ErrInvalidResponse, got: %T", err)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`{"anything":"goes"}`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestReply(t *testing.T) {
	req := Request{Schema: planSchema()}
	cut := json.RawMessage(`{"summary":"Drill`)

	var maxTok *ErrMaxTokensExceeded
	if _, err := reply(req, cut, StopMaxTokens, "m", Usage{}); !errors.As(err, &maxTok) {
		t.Fatalf("truncated output: got %v, want ErrMaxTokensExceeded", err)
	}
	if _, err := reply(Request{}, cut, StopMaxTokens, "m", Usage{}); err != nil {
		t.Errorf("free text is not validated, got %v", err)
	}

	resp, err := reply(req, json.RawMessage(`{"summary":"ok","minutes":3}`), StopEnd, "m", Usage{InputTokens: 7, OutputTokens: 3})
	if err != nil {
		t.Fatalf("valid output: %v", err)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("TotalTokens = %d, want 10", resp.Usage.TotalTokens)
	}
}
