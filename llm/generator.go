// Package llm stellt die Textgenerierung für die Zusammenfassungen bereit:
// einen OpenAI-kompatiblen Chat-Client (OpenRouter), einen Vertex-Gemini-Client
// und einen Wrapper mit Wiederholungen.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// Generator erzeugt zu einem Prompt eine Textantwort.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Backends
const (
	BackendOpenRouter = "openrouter"
	BackendVertex     = "vertex"
)

// New baut den konfigurierten Generator inklusive Retry-Wrapper.
// Der zurückgegebene close-Callback gibt Client-Ressourcen frei.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Generator, func() error, error) {
	var (
		base    Generator
		closeFn = func() error { return nil }
	)
	switch cfg.LLMBackend {
	case BackendOpenRouter, "openai", "":
		base = NewChatClient(cfg)
	case BackendVertex:
		vc, err := NewVertexClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		base = vc
		closeFn = vc.Close
	default:
		return nil, nil, fmt.Errorf("unbekanntes LLM-Backend %q", cfg.LLMBackend)
	}
	return NewRetrying(base, cfg.LLMMaxRetries, cfg.LLMRetryDelay, logger), closeFn, nil
}
