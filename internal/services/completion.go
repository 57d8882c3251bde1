package services

import (
	"context"
	"strings"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
)

const (
	PhaseDiscovery = "discovery"

	systemPrompt = "You are a senior Product Manager. Respond to whatever the user says. Remember the conversation and reply accordingly."
)

// Completion is one generated reply.
type Completion struct {
	Text     string
	Phase    string
	Provider string
	Model    string
	Duration time.Duration
}

// CompletionProvider generates a reply to content given the earlier
// exchanges of the conversation, oldest first.
type CompletionProvider interface {
	Generate(ctx context.Context, content string, history []models.HistoryEntry) (Completion, error)
}

// buildTranscript renders history and the new message as a single
// "User:/PM:" transcript ending with an open PM turn.
func buildTranscript(content string, history []models.HistoryEntry) string {
	var sb strings.Builder
	for _, h := range history {
		sb.WriteString("User: ")
		sb.WriteString(h.Content)
		sb.WriteString("\nPM: ")
		sb.WriteString(h.Response)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(content)
	sb.WriteString("\n\nPM:")
	return sb.String()
}
