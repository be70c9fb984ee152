package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// ChatClient spricht eine OpenAI-kompatible Chat-Completions-API an (z.B. OpenRouter).
type ChatClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
}

var _ Generator = (*ChatClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewChatClient erstellt den Client aus der Konfiguration.
func NewChatClient(cfg *config.Config) *ChatClient {
	return &ChatClient{
		endpoint:    strings.TrimRight(cfg.LLMBaseURL, "/") + "/chat/completions",
		model:       cfg.LLMModel,
		apiKey:      strings.TrimSpace(cfg.LLMAPIKey),
		temperature: cfg.LLMTemperature,
		maxTokens:   cfg.LLMMaxTokens,
		httpClient:  &http.Client{Timeout: cfg.LLMTimeout},
	}
}

// Model gibt den Modellnamen zurück.
func (c *ChatClient) Model() string {
	return c.model
}

// Generate sendet den Prompt als einzelne User-Nachricht. Eine leere
// Antwort ist kein Fehler und ergibt "".
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("llm api key ist nicht gesetzt")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("llm-antwort enthält keine choices")
	}
	if cr.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *cr.Choices[0].Message.Content, nil
}
