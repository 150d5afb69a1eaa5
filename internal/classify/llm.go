package classify

import "context"

// Provider is the interface for any LLM backend.
type Provider interface {
	Complete(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// LLMRequest represents the input to the LLM provider: a system prompt and
// a single user prompt. Classification is one-shot; no conversation state.
type LLMRequest struct {
	MaxTokens int
	System    string
	Prompt    string
}

// LLMResponse represents the output from the LLM provider.
type LLMResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Usage represents the token usage reported by the LLM provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
