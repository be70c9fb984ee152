package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// VertexClient erzeugt Zusammenfassungen mit Gemini über Vertex AI.
type VertexClient struct {
	model      *genai.GenerativeModel
	modelName  string
	baseClient *genai.Client
}

var _ Generator = (*VertexClient)(nil)

// NewVertexClient initialisiert den Vertex-Client für Projekt und Region.
func NewVertexClient(ctx context.Context, cfg *config.Config) (*VertexClient, error) {
	if cfg.VertexProject == "" {
		return nil, errors.New("VERTEX_PROJECT ist nicht gesetzt")
	}
	baseClient, err := genai.NewClient(ctx, cfg.VertexProject, cfg.VertexRegion)
	if err != nil {
		return nil, fmt.Errorf("vertex ai client konnte nicht erstellt werden: %w", err)
	}

	model := baseClient.GenerativeModel(cfg.LLMModel)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr(cfg.LLMTemperature),
		MaxOutputTokens: genai.Ptr(int32(cfg.LLMMaxTokens)),
	}

	return &VertexClient{model: model, modelName: cfg.LLMModel, baseClient: baseClient}, nil
}

// Model gibt den Modellnamen zurück.
func (c *VertexClient) Model() string {
	return c.modelName
}

// Generate sendet den Prompt und fügt alle Textteile des ersten Kandidaten zusammen.
func (c *VertexClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
