package authgate

import (
	"context"
	"log/slog"
)

// IssueCSRFToken returns a fresh anti-forgery token bound to the caller's client IP,
// replacing any token previously issued to it.
func (e *Engine) IssueCSRFToken(ctx context.Context) (string, error) {
	if e == nil || e.csrf == nil {
		return "", ErrEngineNotReady
	}
	ip := ClientIPFromContext(ctx)
	if ip == "" {
		return "", ErrMissingClientIP
	}

	token, err := e.csrf.Issue(ctx, ip)
	if err != nil {
		return "", e.storeFailure(ctx, "csrf_issue", err)
	}
	e.metricInc(MetricCSRFIssued)
	return token, nil
}

// SweepExpiredCSRF flags expired CSRF records and returns how many were flagged.
// Verification never depends on it; it keeps the collection easy to prune.
func (e *Engine) SweepExpiredCSRF(ctx context.Context) (int, error) {
	if e == nil || e.csrf == nil {
		return 0, ErrEngineNotReady
	}
	n, err := e.csrf.SweepExpired(ctx)
	if n > 0 {
		e.metrics.add(MetricCSRFSwept, uint64(n))
	}
	if err != nil {
		return n, e.storeFailure(ctx, "csrf_sweep", err)
	}
	e.logger.DebugContext(ctx, "csrf sweep finished", slog.Int("flagged", n))
	return n, nil
}
