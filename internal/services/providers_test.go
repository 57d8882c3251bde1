package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTranscript(t *testing.T) {
	got := buildTranscript("and now?", []models.HistoryEntry{
		{Content: "hi", Response: "hello"},
	})
	assert.Equal(t, "User: hi\nPM: hello\n\nUser: and now?\n\nPM:", got)

	assert.Equal(t, "User: first\n\nPM:", buildTranscript("first", nil))
}

func TestOllamaProvider_Generate(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.1","response":"  Let's scope it.  ","done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "llama3.1", 5*time.Second)
	c, err := p.Generate(context.Background(), "next", []models.HistoryEntry{{Content: "a", Response: "b"}})
	require.NoError(t, err)

	assert.Equal(t, "Let's scope it.", c.Text)
	assert.Equal(t, PhaseDiscovery, c.Phase)
	assert.Equal(t, "ollama", c.Provider)
	assert.Equal(t, "llama3.1", c.Model)

	assert.Equal(t, "llama3.1", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, systemPrompt, got.System)
	assert.Equal(t, 0.5, got.Options.Temperature)
	assert.Equal(t, 2048, got.Options.NumPredict)
	assert.Equal(t, "User: a\nPM: b\n\nUser: next\n\nPM:", got.Prompt)
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "missing", 5*time.Second)
	_, err := p.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOllamaProvider(url, "llama3.1", time.Second)
	_, err := p.Generate(context.Background(), "hi", nil)
	assert.Error(t, err)
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini-2024",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Who are the users?"}, "finish_reason": "stop"}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "gpt-4o-mini", 5*time.Second)
	c, err := p.Generate(context.Background(), "build a CRM", []models.HistoryEntry{{Content: "hi", Response: "hello"}})
	require.NoError(t, err)

	assert.Equal(t, "Who are the users?", c.Text)
	assert.Equal(t, "openai", c.Provider)
	assert.Equal(t, "gpt-4o-mini-2024", c.Model)
	assert.Equal(t, PhaseDiscovery, c.Phase)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, "hello", got.Messages[2].Content)
	assert.Equal(t, "build a CRM", got.Messages[3].Content)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","model":"m","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "m", 5*time.Second)
	_, err := p.Generate(context.Background(), "hi", nil)
	assert.EqualError(t, err, "openai returned no choices")
}

func TestOpenAIProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "m", 5*time.Second)
	_, err := p.Generate(context.Background(), "hi", nil)
	assert.Error(t, err)
}
