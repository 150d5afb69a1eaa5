package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/citypulse/internal/alert"
	"github.com/linnemanlabs/citypulse/internal/signal"
)

const (
	// ResponseTokens bounds the classification response size.
	ResponseTokens = 4096

	// maxSignalsPerSource caps the batch so a noisy source cannot blow the
	// prompt budget.
	maxSignalsPerSource = 50

	// maxContentLen truncates individual signal bodies in the prompt.
	maxContentLen = 500
)

// Engine implements Classifier on top of an LLM provider.
type Engine struct {
	provider Provider
	logger   log.Logger
}

// NewEngine creates a classification engine with the given provider.
func NewEngine(provider Provider, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{provider: provider, logger: logger}
}

// Classify sends one batch of signals to the LLM and parses the structured
// triage result. Malformed output is an error; the caller decides how to
// record it.
func (e *Engine) Classify(ctx context.Context, bySource map[string][]signal.Raw) (*Result, error) {
	start := time.Now()

	resp, err := e.provider.Complete(ctx, &LLMRequest{
		MaxTokens: ResponseTokens,
		System:    systemPrompt,
		Prompt:    buildPrompt(bySource),
	})
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	e.logger.Info(ctx, "classification response",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start).Seconds(),
	)

	result, err := parseResult(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return result, nil
}

const systemPrompt = `You are CityPulse, a city event triage analyst. You receive raw signals
(social posts, city service requests, news items) grouped by source and
produce a ranked list of alerts about real-world events.

Respond with a single JSON object, no prose, in this shape:
{
  "summary": "one-paragraph overview",
  "alerts": [
    {
      "topic": "short grouping key, e.g. flooding",
      "title": "headline",
      "area": "neighborhood or Citywide",
      "severity": 1-10,
      "category": "transportation|safety|weather|infrastructure|social|other",
      "contributing_sources": ["source ids"],
      "description": "what is happening",
      "keywords": ["terms"],
      "confidence": 0.0-1.0,
      "url": "most representative signal url"
    }
  ],
  "normal_activity": [
    {"topic": "...", "description": "...", "source": "..."}
  ]
}

Only report alerts supported by the signals. Routine chatter belongs in
normal_activity. Severity 8+ is reserved for events needing immediate
operator attention.`

// promptSignal is the trimmed view of a raw signal sent to the classifier.
type promptSignal struct {
	Title      string            `json:"title"`
	Content    string            `json:"content,omitempty"`
	URL        string            `json:"url"`
	Published  string            `json:"published,omitempty"`
	Engagement float64           `json:"engagement,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// buildPrompt renders the batch, grouped by source in stable order.
func buildPrompt(bySource map[string][]signal.Raw) string {
	sources := make([]string, 0, len(bySource))
	for src := range bySource {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var b strings.Builder
	b.WriteString("Signals collected this cycle, grouped by source:\n")

	for _, src := range sources {
		signals := bySource[src]
		if len(signals) > maxSignalsPerSource {
			signals = signals[:maxSignalsPerSource]
		}

		trimmed := make([]promptSignal, 0, len(signals))
		for _, s := range signals {
			ps := promptSignal{
				Title:      s.Title,
				Content:    truncate(s.Content, maxContentLen),
				URL:        s.URL,
				Engagement: s.Engagement,
				Metadata:   s.Metadata,
			}
			if !s.PublishedAt.IsZero() {
				ps.Published = s.PublishedAt.UTC().Format(time.RFC3339)
			}
			trimmed = append(trimmed, ps)
		}

		encoded, _ := json.MarshalIndent(trimmed, "", "  ")
		fmt.Fprintf(&b, "\n### source: %s (%d signals)\n%s\n", src, len(bySource[src]), encoded)
	}

	b.WriteString("\nClassify these signals per the instructions.")
	return b.String()
}

// wireResult mirrors the JSON shape the model is instructed to emit.
type wireResult struct {
	Summary        string        `json:"summary"`
	Alerts         []wireAlert   `json:"alerts"`
	NormalActivity []Observation `json:"normal_activity"`
}

type wireAlert struct {
	Topic       string   `json:"topic"`
	Title       string   `json:"title"`
	Area        string   `json:"area"`
	Severity    int      `json:"severity"`
	Category    string   `json:"category"`
	Sources     []string `json:"contributing_sources"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Confidence  float64  `json:"confidence"`
	URL         string   `json:"url"`
}

// parseResult extracts and decodes the JSON object from the model output.
func parseResult(text string) (*Result, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	out := &Result{
		Summary:        wire.Summary,
		NormalActivity: wire.NormalActivity,
	}
	for _, wa := range wire.Alerts {
		out.Alerts = append(out.Alerts, alert.Alert{
			Topic:       wa.Topic,
			Title:       wa.Title,
			Area:        defaultArea(wa.Area),
			Severity:    wa.Severity,
			Category:    normalizeCategory(wa.Category),
			Sources:     wa.Sources,
			Description: wa.Description,
			Keywords:    wa.Keywords,
			Confidence:  wa.Confidence,
			URL:         wa.URL,
		})
	}
	return out, nil
}

// extractJSON locates the outermost JSON object in model text, tolerating
// markdown code fences around it.
func extractJSON(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	return json.RawMessage(text[start : end+1]), nil
}

func normalizeCategory(c string) alert.Category {
	switch alert.Category(strings.ToLower(strings.TrimSpace(c))) {
	case alert.CategoryTransportation:
		return alert.CategoryTransportation
	case alert.CategorySafety:
		return alert.CategorySafety
	case alert.CategoryWeather:
		return alert.CategoryWeather
	case alert.CategoryInfrastructure:
		return alert.CategoryInfrastructure
	case alert.CategorySocial:
		return alert.CategorySocial
	default:
		return alert.CategoryOther
	}
}

func defaultArea(area string) string {
	if strings.TrimSpace(area) == "" {
		return "Citywide"
	}
	return area
}

// truncate cuts s to at most limit bytes, backing up to a rune boundary so
// multi-byte characters are never split.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
