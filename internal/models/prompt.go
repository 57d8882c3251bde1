package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Prompt is one user message and the reply generated for it.
// Title, IsPinned and IsArchived are read from the owning conversation.
type Prompt struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string         `gorm:"type:varchar(36);not null;index:idx_prompts_owner_conv,priority:1" json:"-"`
	ConversationID string         `gorm:"type:varchar(255);not null;index:idx_prompts_owner_conv,priority:2" json:"conversation_id"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Response       *string        `gorm:"type:text" json:"response"`
	Phase          *string        `gorm:"type:varchar(32)" json:"phase"`
	Generation     datatypes.JSON `json:"generation,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Title      string `gorm:"->;-:migration" json:"title"`
	IsPinned   bool   `gorm:"->;-:migration" json:"is_pinned"`
	IsArchived bool   `gorm:"->;-:migration" json:"is_archived"`
}

// GenerationInfo records which backend produced a response.
type GenerationInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (p *Prompt) SetGeneration(info GenerationInfo) {
	b, err := json.Marshal(info)
	if err != nil {
		return
	}
	p.Generation = datatypes.JSON(b)
}

// GenerationInfo decodes the stored generation metadata. ok is false when none was recorded.
func (p *Prompt) GenerationInfo() (info GenerationInfo, ok bool) {
	if len(p.Generation) == 0 {
		return info, false
	}
	if err := json.Unmarshal(p.Generation, &info); err != nil {
		return info, false
	}
	return info, true
}

// HistoryEntry is one earlier exchange supplied to the completion backend.
type HistoryEntry struct {
	Content  string
	Response string
}
