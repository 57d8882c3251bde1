package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/go-resty/resty/v2"
)

// OllamaProvider calls a local Ollama server's /api/generate endpoint.
type OllamaProvider struct {
	client *resty.Client
	model  string
}

func NewOllamaProvider(baseURL, model string, timeout time.Duration) *OllamaProvider {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &OllamaProvider{client: client, model: model}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *OllamaProvider) Generate(ctx context.Context, content string, history []models.HistoryEntry) (Completion, error) {
	start := time.Now()

	var out ollamaResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ollamaRequest{
			Model:   p.model,
			Prompt:  buildTranscript(content, history),
			System:  systemPrompt,
			Stream:  false,
			Options: ollamaOptions{Temperature: 0.5, NumPredict: 2048},
		}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return Completion{}, fmt.Errorf("ollama request: %w", err)
	}
	if resp.IsError() {
		return Completion{}, fmt.Errorf("ollama returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	model := out.Model
	if model == "" {
		model = p.model
	}
	return Completion{
		Text:     strings.TrimSpace(out.Response),
		Phase:    PhaseDiscovery,
		Provider: "ollama",
		Model:    model,
		Duration: time.Since(start),
	}, nil
}
