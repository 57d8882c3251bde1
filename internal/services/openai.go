package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to the OpenAI chat completions API or any server compatible with it.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, baseURL, model string, timeout time.Duration) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

func (p *OpenAIProvider) Generate(ctx context.Context, content string, history []models.HistoryEntry) (Completion, error) {
	start := time.Now()

	messages := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, h := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: h.Content},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: h.Response},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.5,
		MaxTokens:   2048,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("openai returned no choices")
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return Completion{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Phase:    PhaseDiscovery,
		Provider: "openai",
		Model:    model,
		Duration: time.Since(start),
	}, nil
}
