package models

import "time"

// Conversation owns the metadata shared by every prompt in a thread.
// It is keyed by (user_id, id) so two users can never collide on an id.
type Conversation struct {
	ID         string    `gorm:"type:varchar(255);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);primaryKey;index" json:"user_id"`
	Title      string    `gorm:"type:text" json:"title"`
	IsPinned   bool      `gorm:"not null;default:false" json:"is_pinned"`
	IsArchived bool      `gorm:"not null;default:false" json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConversationSummary is the list view of a conversation, derived from its prompts.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Preview      string    `json:"preview"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
	IsPinned     bool      `json:"is_pinned"`
	IsArchived   bool      `json:"is_archived"`
}

// ConversationPatch lists the conversation fields a caller may change.
// Nil fields are left untouched.
type ConversationPatch struct {
	Title      *string `json:"title,omitempty"`
	IsPinned   *bool   `json:"is_pinned,omitempty"`
	IsArchived *bool   `json:"is_archived,omitempty"`
}

func (p ConversationPatch) IsEmpty() bool {
	return p.Title == nil && p.IsPinned == nil && p.IsArchived == nil
}
