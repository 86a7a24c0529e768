package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured output from a chat model. Implementations
// wrap one vendor SDK each; retry and event logging are layered on top by
// NewProvider.
type Provider interface {
	// Generate sends req and returns the model's reply. When req.Schema is
	// set the reply has been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the vendor model id requests are sent to.
	ModelID() string
}

type Request struct {
	System   string
	Messages []Message

	// Schema asks for JSON output through the vendor's structured output
	// feature. Nil means free text.
	Schema *Schema

	MaxTokens int
	// Temperature in [0, 1]. Zero leaves the vendor default.
	Temperature float64
}

// Prompt is a single-turn request: one system prompt and one user message.
func Prompt(system, user string, schema *Schema) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
		Schema:   schema,
	}
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema for structured output. Name doubles as the cache
// key for the compiled validator, so distinct definitions need distinct
// names.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

type Response struct {
	// Content is the reply body; JSON when the request carried a schema.
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// aliases maps short model names from the config file to vendor ids.
// Names that are not listed pass through unchanged.
type aliases map[string]string

func (a aliases) resolve(name string) string {
	if id, ok := a[name]; ok {
		return id
	}
	return name
}

// reply checks a vendor reply against req and packages it. Structured
// output cut off at the token limit is rejected before validation.
func reply(req Request, content json.RawMessage, stop, model string, usage Usage) (*Response, error) {
	if req.Schema != nil {
		if stop == StopMaxTokens {
			return nil, &ErrMaxTokensExceeded{Content: content}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{Content: content, Usage: usage, Model: model, StopReason: stop}, nil
}
