package quality

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultModel is the inexpensive model used for per-snippet checks.
	DefaultModel = "gemini-2.5-flash"

	// maxContentChars caps how much of a document is sent for assessment.
	maxContentChars = 8000
)

// TextGenerator is the single-turn LLM call the gate depends on.
// *llm.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// GeminiGate assesses documents with a Gemini model returning strict JSON.
type GeminiGate struct {
	gen      TextGenerator
	model    string
	minScore int
	timeout  time.Duration
}

// NewGeminiGate creates a gate backed by gen. Zero values fall back to
// DefaultModel, DefaultMinScore, and no per-call timeout.
func NewGeminiGate(gen TextGenerator, model string, minScore int, timeout time.Duration) *GeminiGate {
	if model == "" {
		model = DefaultModel
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &GeminiGate{gen: gen, model: model, minScore: minScore, timeout: timeout}
}

// Assess sends the document to the model and parses its JSON verdict.
// The overall pass is appropriate && technically_sound && score >= threshold.
func (g *GeminiGate) Assess(ctx context.Context, title, body string) (Verdict, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if len(body) > maxContentChars {
		cut := maxContentChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	raw, err := g.gen.Generate(ctx, g.model, assessPrompt(title, body))
	if err != nil {
		return Verdict{}, fmt.Errorf("quality: assess %q: %w", title, err)
	}

	v, err := parseVerdict(raw)
	if err != nil {
		return Verdict{}, fmt.Errorf("quality: assess %q: %w", title, err)
	}
	v.Passes = v.Appropriate && v.TechnicallySound && v.Score >= g.minScore
	return v, nil
}

func assessPrompt(title, body string) string {
	return fmt.Sprintf(`Evaluate this document for publication on a public blog.

Document Title: %s

Document Content:
%s

Return a JSON object with these fields:
- "appropriate": true if the content is not too personal, not TMI, and suitable for public viewing
- "technically_sound": true if there are no obvious technical or factual errors
- "quality_score": integer 1-10 rating for writing quality (grammar, clarity, information density)
- "reason": brief explanation of your assessment

Only return the JSON object, no other text.`, title, body)
}

// parseVerdict decodes the model response, tolerating a markdown code fence
// around the JSON object.
func parseVerdict(raw string) (Verdict, error) {
	s := strings.TrimSpace(raw)
	s = stripCodeFence(s)

	var v Verdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
