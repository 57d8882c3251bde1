// Package store persists users, conversations, prompts and status checks.
//
// Two implementations share the Store interface: GormStore (postgres or
// sqlite through gorm) and MongoStore (MongoDB collections).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// ConversationFilter narrows ListConversations. A nil Archived matches both states.
type ConversationFilter struct {
	Archived *bool
	Limit    int
}

type Store interface {
	// SavePrompt inserts p, creating its conversation with the given title
	// when (p.UserID, p.ConversationID) has none yet and bumping the
	// conversation's updated_at otherwise. On return p carries the
	// conversation's title and flags.
	SavePrompt(ctx context.Context, p *models.Prompt, title string) error
	// History returns the (content, response) pairs of a conversation, oldest first.
	History(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error)
	// ListPrompts orders oldest first when conversationID is set, newest first otherwise.
	ListPrompts(ctx context.Context, userID, conversationID string, skip, limit int) ([]models.Prompt, error)
	GetPrompt(ctx context.Context, userID, id string) (*models.Prompt, error)
	// DeletePrompt removes one prompt and drops its conversation once it is empty.
	DeletePrompt(ctx context.Context, userID, id string) error

	// ListConversations returns conversations with at least one prompt,
	// most recently updated first. Preview holds the newest prompt's full content.
	ListConversations(ctx context.Context, userID string, filter ConversationFilter) ([]models.ConversationSummary, error)
	// UpdateConversation applies patch and returns the number of prompts in
	// the conversation. ErrNotFound when it has no prompts.
	UpdateConversation(ctx context.Context, userID, conversationID string, patch models.ConversationPatch, now time.Time) (int64, error)
	DeleteConversations(ctx context.Context, userID string, conversationIDs []string) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, id, hashedPassword string) error

	CreateStatusCheck(ctx context.Context, sc *models.StatusCheck) error
	ListStatusChecks(ctx context.Context, skip, limit int) ([]models.StatusCheck, error)

	Ping(ctx context.Context) error
	Close() error
}
