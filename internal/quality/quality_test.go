package quality

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(_ context.Context, _ string, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestGeminiGate_PassVerdict(t *testing.T) {
	gen := &stubGenerator{response: `{"appropriate": true, "technically_sound": true, "quality_score": 8, "reason": "solid"}`}
	gate := NewGeminiGate(gen, "", 0, 0)

	v, err := gate.Assess(context.Background(), "Title", "body")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !v.Passes || v.Score != 8 || v.Reason != "solid" {
		t.Errorf("verdict = %+v", v)
	}
}

func TestGeminiGate_ScoreBelowThresholdFails(t *testing.T) {
	gen := &stubGenerator{response: `{"appropriate": true, "technically_sound": true, "quality_score": 5, "reason": "thin"}`}
	gate := NewGeminiGate(gen, "", 6, 0)

	v, err := gate.Assess(context.Background(), "Title", "body")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if v.Passes {
		t.Errorf("score 5 with threshold 6 must fail: %+v", v)
	}
}

func TestGeminiGate_InappropriateFailsRegardlessOfScore(t *testing.T) {
	gen := &stubGenerator{response: `{"appropriate": false, "technically_sound": true, "quality_score": 10, "reason": "too personal"}`}
	gate := NewGeminiGate(gen, "", 6, 0)

	v, err := gate.Assess(context.Background(), "Title", "body")
	if err != nil {
		t.Fatal(err)
	}
	if v.Passes {
		t.Errorf("inappropriate content must fail: %+v", v)
	}
}

func TestGeminiGate_CodeFencedResponse(t *testing.T) {
	gen := &stubGenerator{response: "```json\n{\"appropriate\": true, \"technically_sound\": true, \"quality_score\": 7, \"reason\": \"ok\"}\n```"}
	gate := NewGeminiGate(gen, "", 6, 0)

	v, err := gate.Assess(context.Background(), "Title", "body")
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !v.Passes || v.Score != 7 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestGeminiGate_TruncatesLongContent(t *testing.T) {
	gen := &stubGenerator{response: `{"appropriate": true, "technically_sound": true, "quality_score": 7, "reason": "ok"}`}
	gate := NewGeminiGate(gen, "", 6, 0)

	long := strings.Repeat("x", maxContentChars+500)
	if _, err := gate.Assess(context.Background(), "Title", long); err != nil {
		t.Fatal(err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %d", len(gen.prompts))
	}
	if strings.Contains(gen.prompts[0], strings.Repeat("x", maxContentChars+1)) {
		t.Error("content was not truncated before prompting")
	}
}

func TestGeminiGate_TruncationKeepsRuneBoundary(t *testing.T) {
	gen := &stubGenerator{response: `{"appropriate": true, "technically_sound": true, "quality_score": 7, "reason": "ok"}`}
	gate := NewGeminiGate(gen, "", 6, 0)

	// A multi-byte rune straddles the cut point; truncation must back up to
	// its start instead of sending a torn encoding.
	body := strings.Repeat("x", maxContentChars-1) + strings.Repeat("é", 300)
	if _, err := gate.Assess(context.Background(), "Title", body); err != nil {
		t.Fatal(err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %d", len(gen.prompts))
	}
	if !utf8.ValidString(gen.prompts[0]) {
		t.Error("truncated content produced invalid UTF-8 in the prompt")
	}
}

func TestGeminiGate_GenerateErrorPropagates(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	gate := NewGeminiGate(gen, "", 6, 0)

	if _, err := gate.Assess(context.Background(), "Title", "body"); err == nil {
		t.Error("expected error")
	}
}

func TestGeminiGate_GarbageResponseErrors(t *testing.T) {
	gen := &stubGenerator{response: "I think this document is fine!"}
	gate := NewGeminiGate(gen, "", 6, 0)

	if _, err := gate.Assess(context.Background(), "Title", "body"); err == nil {
		t.Error("expected parse error")
	}
}

func TestFailOpen(t *testing.T) {
	v := FailOpen(errors.New("network down"))
	if !v.Passes || !v.Appropriate || !v.TechnicallySound || v.Score != 7 {
		t.Errorf("verdict = %+v", v)
	}
	if !strings.Contains(v.Reason, "network down") || !strings.Contains(v.Reason, "auto-passed") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestAutoPassGate(t *testing.T) {
	v, err := NewAutoPassGate().Assess(context.Background(), "T", "b")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Passes || !strings.Contains(v.Reason, "no API key") {
		t.Errorf("verdict = %+v", v)
	}
}
