package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/citypulse/internal/alert"
)

func urgentAlert() *alert.Alert {
	return &alert.Alert{
		ID:          "01TEST",
		Topic:       "flooding",
		Title:       "Flooding on Main St",
		Area:        "Downtown",
		Severity:    9,
		Category:    alert.CategoryWeather,
		Sources:     []string{"social", "cityfeed"},
		Description: "Standing water across three intersections.",
		Confidence:  0.85,
		URL:         "https://example.com/post/1",
	}
}

func TestNotify_PostsWebhook(t *testing.T) {
	t.Parallel()

	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())

	if err := n.Notify(context.Background(), urgentAlert()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	blocks, ok := received["blocks"].([]any)
	if !ok || len(blocks) == 0 {
		t.Fatalf("expected blocks in payload, got %v", received)
	}
	header := blocks[0].(map[string]any)
	if header["type"] != "header" {
		t.Errorf("first block type = %v, want header", header["type"])
	}
	text := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(text, "Urgent: Flooding on Main St") {
		t.Errorf("header text = %q", text)
	}
}

func TestNotify_NoWebhookIsNoop(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())

	if err := n.Notify(context.Background(), urgentAlert()); err != nil {
		t.Fatalf("Notify with empty webhook: %v", err)
	}
}

func TestNotify_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())

	err := n.Notify(context.Background(), urgentAlert())
	if err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q should include the status code", err)
	}
}

func TestHeaderBlock_FallsBackToTopic(t *testing.T) {
	t.Parallel()

	a := urgentAlert()
	a.Title = ""

	block := headerBlock(a)
	text := block["text"].(map[string]any)["text"].(string)
	if !strings.Contains(text, "flooding") {
		t.Errorf("header %q should fall back to topic", text)
	}
}

func TestFieldsBlock(t *testing.T) {
	t.Parallel()

	block := fieldsBlock(urgentAlert())
	fields := block["fields"].([]map[string]any)

	var all strings.Builder
	for _, f := range fields {
		all.WriteString(f["text"].(string))
		all.WriteString("\n")
	}
	joined := all.String()

	for _, want := range []string{"*Severity:* 9/10", "*Category:* weather", "*Area:* Downtown", "*Confidence:* 85%", "social, cityfeed"} {
		if !strings.Contains(joined, want) {
			t.Errorf("fields missing %q in %q", want, joined)
		}
	}
}

func TestDescriptionBlock_Empty(t *testing.T) {
	t.Parallel()

	a := urgentAlert()
	a.Description = ""

	block := descriptionBlock(a)
	text := block["text"].(map[string]any)["text"].(string)
	if !strings.Contains(text, "No description available") {
		t.Errorf("text = %q, want placeholder", text)
	}
}

func TestDescriptionBlock_Truncates(t *testing.T) {
	t.Parallel()

	a := urgentAlert()
	a.Description = strings.Repeat("x", maxDescriptionLen*2)

	block := descriptionBlock(a)
	text := block["text"].(map[string]any)["text"].(string)
	if len(text) > maxDescriptionLen+100 {
		t.Errorf("description not truncated, len = %d", len(text))
	}
	if !strings.Contains(text, "...") {
		t.Error("expected truncation marker")
	}
}

func TestSeverityEmoji(t *testing.T) {
	t.Parallel()

	if severityEmoji(9) == severityEmoji(8) {
		t.Error("severity 9 and 8 should differ")
	}
	if severityEmoji(8) == severityEmoji(7) {
		t.Error("severity 8 and 7 should differ")
	}
	if severityEmoji(7) != severityEmoji(1) {
		t.Error("below 8 should share the same marker")
	}
}
