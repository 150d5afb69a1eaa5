// Package claude implements classify.Provider on the Anthropic SDK.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/citypulse/internal/classify"
)

// Client sends classification requests to the Claude API.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude provider with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete sends a single-shot request and returns the concatenated text
// response.
func (c *Client) Complete(ctx context.Context, req *classify.LLMRequest) (*classify.LLMResponse, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude: %w", err)
	}

	return fromSDKResponse(msg), nil
}

// fromSDKResponse converts an SDK message into the provider-neutral
// response, joining all text blocks in order.
func fromSDKResponse(msg *anthropic.Message) *classify.LLMResponse {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return &classify.LLMResponse{
		Text:  b.String(),
		Model: string(msg.Model),
		Usage: classify.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}
