package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a gorm handle (postgres or sqlite).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

const promptColumns = "prompts.*, conversations.title, conversations.is_pinned, conversations.is_archived"

// prompts selects prompts joined with their conversation so the
// conversation-level fields are populated.
func (s *GormStore) prompts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Prompt{}).
		Select(promptColumns).
		Joins("JOIN conversations ON conversations.user_id = prompts.user_id AND conversations.id = prompts.conversation_id")
}

func (s *GormStore) SavePrompt(ctx context.Context, p *models.Prompt, title string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv := models.Conversation{
			ID:        p.ConversationID,
			UserID:    p.UserID,
			Title:     title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.CreatedAt,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": p.CreatedAt}),
		}).Create(&conv).Error
		if err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}

		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}

		if err := tx.Where("user_id = ? AND id = ?", p.UserID, p.ConversationID).First(&conv).Error; err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
		p.Title = conv.Title
		p.IsPinned = conv.IsPinned
		p.IsArchived = conv.IsArchived
		return nil
	})
}

func (s *GormStore) History(ctx context.Context, userID, conversationID string) ([]models.HistoryEntry, error) {
	var rows []struct {
		Content  string
		Response *string
	}
	err := s.db.WithContext(ctx).
		Model(&models.Prompt{}).
		Select("content", "response").
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]models.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		e := models.HistoryEntry{Content: r.Content}
		if r.Response != nil {
			e.Response = *r.Response
		}
		history = append(history, e)
	}
	return history, nil
}

func (s *GormStore) ListPrompts(ctx context.Context, userID, conversationID string, skip, limit int) ([]models.Prompt, error) {
	q := s.prompts(ctx).Where("prompts.user_id = ?", userID)
	if conversationID != "" {
		q = q.Where("prompts.conversation_id = ?", conversationID).Order("prompts.created_at ASC")
	} else {
		q = q.Order("prompts.created_at DESC")
	}

	prompts := []models.Prompt{}
	if err := q.Offset(skip).Limit(limit).Find(&prompts).Error; err != nil {
		return nil, err
	}
	return prompts, nil
}

func (s *GormStore) GetPrompt(ctx context.Context, userID, id string) (*models.Prompt, error) {
	var p models.Prompt
	err := s.prompts(ctx).
		Where("prompts.id = ? AND prompts.user_id = ?", id, userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) DeletePrompt(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Prompt
		err := tx.Select("id", "conversation_id").
			Where("id = ? AND user_id = ?", id, userID).
			Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Prompt{}).Error; err != nil {
			return err
		}

		return tx.Where("user_id = ? AND id = ?", userID, p.ConversationID).
			Where("NOT EXISTS (SELECT 1 FROM prompts WHERE prompts.user_id = conversations.user_id AND prompts.conversation_id = conversations.id)").
			Delete(&models.Conversation{}).Error
	})
}

type conversationRow struct {
	ID           string
	Title        string
	IsPinned     bool
	IsArchived   bool
	UpdatedAt    time.Time
	MessageCount int64
	Preview      string
}

const (
	convPrompts       = "FROM prompts p WHERE p.user_id = c.user_id AND p.conversation_id = c.id"
	convMessageCount  = "(SELECT COUNT(*) " + convPrompts + ") AS message_count"
	convLatestContent = "(SELECT p.content " + convPrompts + " ORDER BY p.created_at DESC LIMIT 1) AS preview"
)

func (s *GormStore) ListConversations(ctx context.Context, userID string, filter ConversationFilter) ([]models.ConversationSummary, error) {
	q := s.db.WithContext(ctx).
		Table("conversations AS c").
		Select("c.id, c.title, c.is_pinned, c.is_archived, c.updated_at, "+convMessageCount+", "+convLatestContent).
		Where("c.user_id = ?", userID).
		Where("EXISTS (SELECT 1 " + convPrompts + ")")
	if filter.Archived != nil {
		q = q.Where("c.is_archived = ?", *filter.Archived)
	}

	var rows []conversationRow
	if err := q.Order("c.updated_at DESC").Limit(filter.Limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ConversationSummary{
			ID:           r.ID,
			Title:        r.Title,
			Preview:      r.Preview,
			UpdatedAt:    r.UpdatedAt,
			MessageCount: r.MessageCount,
			IsPinned:     r.IsPinned,
			IsArchived:   r.IsArchived,
		})
	}
	return out, nil
}

func (s *GormStore) UpdateConversation(ctx context.Context, userID, conversationID string, patch models.ConversationPatch, now time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Prompt{}).
			Where("user_id = ? AND conversation_id = ?", userID, conversationID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}

		updates := map[string]interface{}{"updated_at": now}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.IsPinned != nil {
			updates["is_pinned"] = *patch.IsPinned
		}
		if patch.IsArchived != nil {
			updates["is_archived"] = *patch.IsArchived
		}
		if err := tx.Model(&models.Conversation{}).
			Where("user_id = ? AND id = ?", userID, conversationID).
			Updates(updates).Error; err != nil {
			return err
		}

		// Every turn reports the conversation's metadata, so each one counts as updated.
		return tx.Model(&models.Prompt{}).
			Where("user_id = ? AND conversation_id = ?", userID, conversationID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *GormStore) DeleteConversations(ctx context.Context, userID string, conversationIDs []string) error {
	if len(conversationIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND conversation_id IN ?", userID, conversationIDs).
			Delete(&models.Prompt{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND id IN ?", userID, conversationIDs).
			Delete(&models.Conversation{}).Error
	})
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UpdateUserPassword(ctx context.Context, id, hashedPassword string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("hashed_password", hashedPassword)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateStatusCheck(ctx context.Context, sc *models.StatusCheck) error {
	return s.db.WithContext(ctx).Create(sc).Error
}

func (s *GormStore) ListStatusChecks(ctx context.Context, skip, limit int) ([]models.StatusCheck, error) {
	checks := []models.StatusCheck{}
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Offset(skip).Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
