package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var llmFailuresCounter = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "neuroedge_llm_request_failures_total",
		Help: "Failed LLM generation attempts.",
	},
)

func init() {
	prometheus.MustRegister(llmFailuresCounter)
}

// Retrying wiederholt fehlgeschlagene Aufrufe mit fester Pause.
type Retrying struct {
	Next     Generator
	Attempts int
	Delay    time.Duration
	Logger   *zap.Logger
}

// NewRetrying umhüllt next. Weniger als ein Versuch wird auf einen angehoben.
func NewRetrying(next Generator, attempts int, delay time.Duration, logger *zap.Logger) *Retrying {
	return &Retrying{Next: next, Attempts: max(1, attempts), Delay: delay, Logger: logger}
}

func (r *Retrying) Model() string {
	return r.Next.Model()
}

// Generate gibt nach dem letzten Versuch dessen Fehler zurück.
func (r *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		out, err := r.Next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		llmFailuresCounter.Inc()
		r.Logger.Error("LLM-Anfrage fehlgeschlagen.",
			zap.String("model", r.Next.Model()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.Attempts),
			zap.Error(err))

		if attempt == r.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.Delay):
		}
	}
	return "", lastErr
}
