package claude

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestFromSDKResponse_JoinsTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Model: "claude-sonnet-4-20250514",
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `{"summary":`},
			{Type: "text", Text: `"quiet day"}`},
		},
		Usage: anthropic.Usage{InputTokens: 100, OutputTokens: 50},
	}

	result := fromSDKResponse(msg)

	if result.Text != `{"summary":"quiet day"}` {
		t.Errorf("text = %q, want joined blocks", result.Text)
	}
	if result.Model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q, want %q", result.Model, "claude-sonnet-4-20250514")
	}
}

func TestFromSDKResponse_SkipsNonTextBlocks(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "thinking", Text: "internal"},
			{Type: "text", Text: "visible"},
		},
	}

	result := fromSDKResponse(msg)

	if result.Text != "visible" {
		t.Errorf("text = %q, want %q", result.Text, "visible")
	}
}

func TestFromSDKResponse_Usage(t *testing.T) {
	t.Parallel()

	msg := &anthropic.Message{
		Usage: anthropic.Usage{InputTokens: 1234, OutputTokens: 567},
	}

	result := fromSDKResponse(msg)

	if result.Usage.InputTokens != 1234 {
		t.Errorf("input tokens = %d, want 1234", result.Usage.InputTokens)
	}
	if result.Usage.OutputTokens != 567 {
		t.Errorf("output tokens = %d, want 567", result.Usage.OutputTokens)
	}
}

func TestNew_SetsModel(t *testing.T) {
	t.Parallel()

	c := New("test-key", "claude-sonnet-4-20250514")
	if c.model != "claude-sonnet-4-20250514" {
		t.Errorf("model = %q, want %q", c.model, "claude-sonnet-4-20250514")
	}
}
