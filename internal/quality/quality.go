// Package quality decides whether a linked document is fit to publish as a
// live snippet. The verdict comes from an LLM; callers treat it as opaque
// input and apply a fail-open default when the gate cannot answer.
package quality

import (
	"context"
	"fmt"
)

// DefaultMinScore is the score threshold below which a document fails the
// gate even when it is appropriate and technically sound.
const DefaultMinScore = 6

// Verdict is the outcome of one quality assessment.
type Verdict struct {
	Appropriate      bool   `json:"appropriate"`
	TechnicallySound bool   `json:"technically_sound"`
	Score            int    `json:"quality_score"`
	Passes           bool   `json:"passes"`
	Reason           string `json:"reason"`
}

// Gate assesses a document for publication.
type Gate interface {
	Assess(ctx context.Context, title, body string) (Verdict, error)
}

// FailOpen is the substitute verdict applied when the gate errors out or
// never returns. The pipeline deliberately publishes rather than blocks;
// the audit trail keeps the failure visible for review tooling.
func FailOpen(err error) Verdict {
	reason := "auto-passed due to gate error"
	if err != nil {
		reason = fmt.Sprintf("error during check: %v - auto-passed", err)
	}
	return Verdict{
		Appropriate:      true,
		TechnicallySound: true,
		Score:            7,
		Passes:           true,
		Reason:           reason,
	}
}

// AutoPass returns the short-circuit verdict used when no API key is
// configured.
func AutoPass() Verdict {
	return Verdict{
		Appropriate:      true,
		TechnicallySound: true,
		Score:            7,
		Passes:           true,
		Reason:           "no API key - auto-passed",
	}
}

// autoPassGate approves everything. Used when no API key is configured so
// packaging still works offline.
type autoPassGate struct{}

func (autoPassGate) Assess(context.Context, string, string) (Verdict, error) {
	return AutoPass(), nil
}

// NewAutoPassGate returns a gate that approves every document.
func NewAutoPassGate() Gate {
	return autoPassGate{}
}
