package llm

import (
	"context"
	"errors"
	"time"

	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/resilience"
	"research-backend/internal/shared/telemetry"
)

// DefaultTimeout bounds a single completion.
const DefaultTimeout = 120 * time.Second

// Guarded wraps a provider client with a per-call timeout, a circuit
// breaker and latency metrics. Calls are never retried.
type Guarded struct {
	client   Client
	provider string
	timeout  time.Duration
	breaker  *resilience.Breaker[string]
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewGuarded builds a guarded client. A nil metrics value disables metrics.
func NewGuarded(client Client, provider string, timeout time.Duration, cfg resilience.Config, m *metrics.Metrics) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if provider == "" {
		provider = "unknown"
	}
	return &Guarded{
		client:   client,
		provider: provider,
		timeout:  timeout,
		breaker:  resilience.NewBreaker[string]("llm."+provider, cfg),
		metrics:  m,
		now:      time.Now,
	}
}

// Complete forwards req to the wrapped client.
func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	// Configuration errors are not upstream failures and must not trip the breaker.
	if !Configured(g.client) {
		return "", ErrNotConfigured
	}
	start := g.now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	answer, err := g.breaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return g.client.Complete(ctx, req)
	})
	elapsed := g.now().Sub(start)
	outcome := outcomeOf(err)
	g.metrics.ObserveLLM(g.provider, outcome, elapsed)
	if err != nil {
		telemetry.Warn("llm.request_failed", map[string]any{
			"provider":    g.provider,
			"session_id":  req.SessionID,
			"outcome":     outcome,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err.Error(),
		})
		return "", err
	}
	telemetry.Info("llm.request_complete", map[string]any{
		"provider":    g.provider,
		"session_id":  req.SessionID,
		"duration_ms": elapsed.Milliseconds(),
	})
	return answer, nil
}

// Configured reports whether the wrapped client can serve requests.
func (g *Guarded) Configured() bool {
	return Configured(g.client)
}

// State reports the breaker state.
func (g *Guarded) State() string {
	return g.breaker.State()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case resilience.IsOpen(err):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, apperr.ErrConfiguration):
		return "not_configured"
	default:
		return "error"
	}
}
