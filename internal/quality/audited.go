package quality

import (
	"context"
	"log/slog"

	"github.com/jkim-dev/vaultpack/internal/audit"
)

// AuditedGate wraps a Gate and records every invocation (success, failure,
// or short-circuit) to the audit store.
type AuditedGate struct {
	next   Gate
	store  *audit.Store
	logger *slog.Logger
}

// Audited wraps gate so each assessment lands in store.
func Audited(gate Gate, store *audit.Store, logger *slog.Logger) *AuditedGate {
	return &AuditedGate{next: gate, store: store, logger: logger}
}

// Assess delegates to the wrapped gate and records the outcome. On gate
// error the event carries the fail-open verdict the pipeline will publish
// under, so the review tooling sees exactly what went live.
func (a *AuditedGate) Assess(ctx context.Context, title, body string) (Verdict, error) {
	v, err := a.next.Assess(ctx, title, body)

	ev := audit.Event{Title: title, Preview: body}
	if err != nil {
		fallback := FailOpen(err)
		ev.GateError = err.Error()
		ev.Appropriate = fallback.Appropriate
		ev.TechnicallySound = fallback.TechnicallySound
		ev.Score = fallback.Score
		ev.Passes = fallback.Passes
		ev.Reason = fallback.Reason
	} else {
		ev.Appropriate = v.Appropriate
		ev.TechnicallySound = v.TechnicallySound
		ev.Score = v.Score
		ev.Passes = v.Passes
		ev.Reason = v.Reason
	}

	// Audit writes never block the pipeline; a miss is logged and dropped.
	if recErr := a.store.Record(ctx, ev); recErr != nil {
		a.logger.Warn("audit record failed",
			slog.String("title", title),
			slog.String("error", recErr.Error()))
	}

	return v, err
}
