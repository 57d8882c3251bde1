package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/store"
	"github.com/google/uuid"
)

const (
	titleMaxLen   = 50
	previewMaxLen = 80

	// PlaceholderResponse is stored when prompts are created without a completion backend.
	PlaceholderResponse = "This is a mock response. In a real implementation, this would be processed by an AI model."
)

// ThreadManager owns prompts and the conversations they are grouped into.
type ThreadManager struct {
	store    store.Store
	provider CompletionProvider
	timeout  time.Duration

	now   func() time.Time
	newID func() string
}

// NewThreadManager builds a manager. A nil provider makes CreateTurn store the
// placeholder response instead of generating one.
func NewThreadManager(st store.Store, provider CompletionProvider, timeout time.Duration) *ThreadManager {
	return &ThreadManager{
		store:    st,
		provider: provider,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// GenerationEnabled reports whether a completion backend is configured.
func (m *ThreadManager) GenerationEnabled() bool {
	return m.provider != nil
}

// CreateTurn generates a reply to content and stores the exchange. An empty
// conversationID starts a new conversation; an unknown one starts a
// conversation under that id. Nothing is stored when generation fails.
func (m *ThreadManager) CreateTurn(ctx context.Context, userID, content, conversationID string) (*models.Prompt, error) {
	if m.provider == nil {
		return m.CreatePlainTurn(ctx, userID, content, conversationID)
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid("Content is required")
	}
	if conversationID == "" {
		conversationID = m.newID()
	}

	history, err := m.store.History(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	completion, err := m.provider.Generate(genCtx, content, history)
	if err != nil {
		slog.Warn("Completion failed", "conversation_id", conversationID, "history_len", len(history), "error", err)
		return nil, &Error{Kind: ErrGenerationUnavailable, Message: "AI service unavailable", Err: err}
	}

	p := m.newPrompt(userID, conversationID, content)
	p.Response = &completion.Text
	if completion.Phase != "" {
		p.Phase = &completion.Phase
	}
	p.SetGeneration(models.GenerationInfo{
		Provider:   completion.Provider,
		Model:      completion.Model,
		DurationMS: completion.Duration.Milliseconds(),
	})

	if err := m.store.SavePrompt(ctx, p, truncate(content, titleMaxLen)); err != nil {
		return nil, fmt.Errorf("save prompt: %w", err)
	}
	return p, nil
}

// CreatePlainTurn stores content with the placeholder response and no phase.
func (m *ThreadManager) CreatePlainTurn(ctx context.Context, userID, content, conversationID string) (*models.Prompt, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("Content is required")
	}
	if conversationID == "" {
		conversationID = m.newID()
	}

	p := m.newPrompt(userID, conversationID, content)
	resp := PlaceholderResponse
	p.Response = &resp

	if err := m.store.SavePrompt(ctx, p, truncate(content, titleMaxLen)); err != nil {
		return nil, fmt.Errorf("save prompt: %w", err)
	}
	return p, nil
}

func (m *ThreadManager) newPrompt(userID, conversationID, content string) *models.Prompt {
	now := m.now()
	return &models.Prompt{
		ID:             m.newID(),
		UserID:         userID,
		ConversationID: conversationID,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ListTurns returns one conversation oldest first, or every prompt of the user newest first.
func (m *ThreadManager) ListTurns(ctx context.Context, userID, conversationID string, skip, limit int) ([]models.Prompt, error) {
	if skip < 0 || limit < 0 {
		return nil, invalid("skip and limit must not be negative")
	}
	if limit == 0 {
		return []models.Prompt{}, nil
	}
	return m.store.ListPrompts(ctx, userID, conversationID, skip, limit)
}

func (m *ThreadManager) GetTurn(ctx context.Context, userID, turnID string) (*models.Prompt, error) {
	p, err := m.store.GetPrompt(ctx, userID, turnID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Prompt not found")
	}
	return p, err
}

func (m *ThreadManager) DeleteTurn(ctx context.Context, userID, turnID string) error {
	err := m.store.DeletePrompt(ctx, userID, turnID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Prompt not found")
	}
	return err
}

// ListConversations returns the user's conversations, most recently updated
// first. archived, when set, keeps only conversations in that state.
func (m *ThreadManager) ListConversations(ctx context.Context, userID string, limit int, archived *bool) ([]models.ConversationSummary, error) {
	if limit < 0 {
		return nil, invalid("limit must not be negative")
	}
	if limit == 0 {
		return []models.ConversationSummary{}, nil
	}

	convs, err := m.store.ListConversations(ctx, userID, store.ConversationFilter{Archived: archived, Limit: limit})
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Preview = truncate(convs[i].Preview, previewMaxLen)
		if convs[i].Title == "" {
			convs[i].Title = convs[i].Preview
		}
	}
	return convs, nil
}

// UpdateConversation applies patch to the conversation and returns how many prompts it covers.
func (m *ThreadManager) UpdateConversation(ctx context.Context, userID, conversationID string, patch models.ConversationPatch) (int64, error) {
	if patch.IsEmpty() {
		return 0, invalid("No valid fields to update")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return 0, invalid("Title cannot be empty")
	}

	n, err := m.store.UpdateConversation(ctx, userID, conversationID, patch, m.now())
	if errors.Is(err, store.ErrNotFound) {
		return 0, notFound("Conversation not found")
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteConversation removes every prompt of the conversation. Deleting an
// unknown conversation is not an error.
func (m *ThreadManager) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return m.store.DeleteConversations(ctx, userID, []string{conversationID})
}

// DeleteConversations removes the user's prompts in any of the given
// conversations. Ids that are unknown or owned by someone else are ignored.
func (m *ThreadManager) DeleteConversations(ctx context.Context, userID string, conversationIDs []string) error {
	if len(conversationIDs) == 0 {
		return invalid("No conversation IDs provided")
	}
	return m.store.DeleteConversations(ctx, userID, dedupe(conversationIDs))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// truncate cuts s to maxLen runes and appends "..." when anything was cut.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
