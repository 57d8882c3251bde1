package store

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/database"
	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	s := NewGormStore(db)
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// savePrompt stores a prompt created offset minutes after base.
func savePrompt(t *testing.T, s Store, userID, convID, content string, offset int, title string) *models.Prompt {
	t.Helper()
	at := base.Add(time.Duration(offset) * time.Minute)
	p := &models.Prompt{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: convID,
		Content:        content,
		Response:       strPtr("re: " + content),
		Phase:          strPtr("discovery"),
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	require.NoError(t, s.SavePrompt(context.Background(), p, title))
	return p
}

func TestGormStore_SavePromptCreatesConversationOnce(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	first := savePrompt(t, s, "u1", "c1", "hello", 0, "hello")
	assert.Equal(t, "hello", first.Title)

	second := savePrompt(t, s, "u1", "c1", "again", 1, "ignored")
	assert.Equal(t, "hello", second.Title, "title is fixed by the first prompt")

	convs, err := s.ListConversations(ctx, "u1", ConversationFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(2), convs[0].MessageCount)
	assert.Equal(t, "again", convs[0].Preview)
	assert.True(t, convs[0].UpdatedAt.Equal(base.Add(time.Minute)))
}

func TestGormStore_HistoryIsOldestFirst(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	savePrompt(t, s, "u1", "c1", "two", 2, "")
	savePrompt(t, s, "u1", "c1", "one", 1, "")
	savePrompt(t, s, "u1", "c2", "other", 3, "")

	history, err := s.History(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, []models.HistoryEntry{
		{Content: "one", Response: "re: one"},
		{Content: "two", Response: "re: two"},
	}, history)

	empty, err := s.History(ctx, "u1", "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGormStore_ListPromptsOrdering(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	savePrompt(t, s, "u1", "c1", "a", 0, "t")
	savePrompt(t, s, "u1", "c2", "b", 1, "t")
	savePrompt(t, s, "u1", "c1", "c", 2, "t")
	savePrompt(t, s, "u2", "c1", "foreign", 3, "t")

	thread, err := s.ListPrompts(ctx, "u1", "c1", 0, 100)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "a", thread[0].Content)
	assert.Equal(t, "c", thread[1].Content)

	inbox, err := s.ListPrompts(ctx, "u1", "", 0, 100)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{inbox[0].Content, inbox[1].Content, inbox[2].Content})

	page, err := s.ListPrompts(ctx, "u1", "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].Content)
}

func TestGormStore_GetPromptOwnership(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	p := savePrompt(t, s, "u1", "c1", "mine", 0, "mine")

	got, err := s.GetPrompt(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
	assert.Equal(t, "mine", got.Title)

	_, err = s.GetPrompt(ctx, "u2", p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DeletePromptDropsEmptyConversation(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	p1 := savePrompt(t, s, "u1", "c1", "one", 0, "one")
	p2 := savePrompt(t, s, "u1", "c1", "two", 1, "one")

	assert.ErrorIs(t, s.DeletePrompt(ctx, "u2", p1.ID), ErrNotFound)

	require.NoError(t, s.DeletePrompt(ctx, "u1", p1.ID))
	convs, err := s.ListConversations(ctx, "u1", ConversationFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, int64(1), convs[0].MessageCount)

	require.NoError(t, s.DeletePrompt(ctx, "u1", p2.ID))
	convs, err = s.ListConversations(ctx, "u1", ConversationFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, convs)

	var n int64
	require.NoError(t, s.db.Model(&models.Conversation{}).Count(&n).Error)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeletePrompt(ctx, "u1", p2.ID), ErrNotFound)
}

func TestGormStore_UpdateConversation(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	savePrompt(t, s, "u1", "c1", "one", 0, "one")
	savePrompt(t, s, "u1", "c1", "two", 1, "one")
	savePrompt(t, s, "u1", "c2", "other", 2, "other")

	now := base.Add(time.Hour)
	n, err := s.UpdateConversation(ctx, "u1", "c1", models.ConversationPatch{IsPinned: boolPtr(true), Title: strPtr("renamed")}, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	prompts, err := s.ListPrompts(ctx, "u1", "", 0, 100)
	require.NoError(t, err)
	for _, p := range prompts {
		if p.ConversationID == "c1" {
			assert.True(t, p.IsPinned)
			assert.Equal(t, "renamed", p.Title)
			assert.True(t, p.UpdatedAt.Equal(now), "turn updated_at follows the edit")
		} else {
			assert.False(t, p.IsPinned)
			assert.Equal(t, "other", p.Title)
			assert.True(t, p.UpdatedAt.Equal(p.CreatedAt))
		}
	}

	convs, err := s.ListConversations(ctx, "u1", ConversationFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "c1", convs[0].ID, "edited conversation moves to the top")
	assert.True(t, convs[0].UpdatedAt.Equal(now))

	_, err = s.UpdateConversation(ctx, "u2", "c1", models.ConversationPatch{IsPinned: boolPtr(true)}, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ListConversationsArchivedFilter(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	savePrompt(t, s, "u1", "c1", "one", 0, "one")
	savePrompt(t, s, "u1", "c2", "two", 1, "two")
	_, err := s.UpdateConversation(ctx, "u1", "c1", models.ConversationPatch{IsArchived: boolPtr(true)}, base.Add(time.Hour))
	require.NoError(t, err)

	archived, err := s.ListConversations(ctx, "u1", ConversationFilter{Archived: boolPtr(true), Limit: 10})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "c1", archived[0].ID)

	active, err := s.ListConversations(ctx, "u1", ConversationFilter{Archived: boolPtr(false), Limit: 10})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "c2", active[0].ID)

	limited, err := s.ListConversations(ctx, "u1", ConversationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormStore_DeleteConversations(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	savePrompt(t, s, "u1", "c1", "one", 0, "one")
	savePrompt(t, s, "u1", "c2", "two", 1, "two")
	savePrompt(t, s, "u1", "c3", "three", 2, "three")
	savePrompt(t, s, "u2", "c1", "foreign", 3, "foreign")

	require.NoError(t, s.DeleteConversations(ctx, "u1", []string{"c1", "c2", "unknown"}))

	left, err := s.ListPrompts(ctx, "u1", "", 0, 100)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "c3", left[0].ConversationID)

	foreign, err := s.ListPrompts(ctx, "u2", "", 0, 100)
	require.NoError(t, err)
	assert.Len(t, foreign, 1)

	require.NoError(t, s.DeleteConversations(ctx, "u1", []string{"c1"}))
}

func TestGormStore_Users(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	u := &models.User{
		ID:             uuid.NewString(),
		Email:          "ada@example.com",
		Username:       "ada",
		HashedPassword: "hash",
		IsActive:       true,
		CreatedAt:      base,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicateEmail)

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "new-hash"))
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", byID.HashedPassword)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateUserPassword(ctx, "missing", "x"), ErrNotFound)
}

func TestGormStore_StatusChecks(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateStatusCheck(ctx, &models.StatusCheck{
			ID:         uuid.NewString(),
			ClientName: name,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	checks, err := s.ListStatusChecks(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, checks, 2)
	assert.Equal(t, "third", checks[0].ClientName)
	assert.Equal(t, "second", checks[1].ClientName)

	require.NoError(t, s.Ping(ctx))
}
