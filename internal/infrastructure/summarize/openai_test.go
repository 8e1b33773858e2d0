package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/event"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

func scoredArticles() []event.Article {
	return []event.Article{
		{Title: "Clashes kill dozens", Snippet: "Fighting in the north", Score: -0.8},
		{Title: "Ceasefire announced", Snippet: "Talks succeed", Score: 0.6},
	}
}

func TestOpenAIClient_Summarize(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "  A balanced summary.  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		BaseURL: server.URL, APIKey: "sk-test", Model: "gpt-4o-mini",
	}, zap.NewNop())

	summary, err := client.Summarize(context.Background(), scoredArticles())
	require.NoError(t, err)
	assert.Equal(t, "A balanced summary.", summary)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, systemPrompt, gotReq.Messages[0].Content)

	prompt := gotReq.Messages[1].Content
	assert.Contains(t, prompt, "NEGATIVE NEWS ARTICLES:")
	assert.Contains(t, prompt, "Negative Article 1:\nTitle: Clashes kill dozens")
	assert.Contains(t, prompt, "POSITIVE NEWS ARTICLES:")
	assert.Contains(t, prompt, "Positive Article 1:\nTitle: Ceasefire announced")
}

func TestOpenAIClient_Summarize_MissingKey(t *testing.T) {
	client := NewOpenAIClient(config.OpenAIConfig{BaseURL: "http://unused"}, zap.NewNop())

	_, err := client.Summarize(context.Background(), scoredArticles())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSummarization))
}

func TestOpenAIClient_Summarize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())

	_, err := client.Summarize(context.Background(), scoredArticles())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSummarization))
}

func TestOpenAIClient_Summarize_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{BaseURL: server.URL, APIKey: "sk-test"}, zap.NewNop())

	_, err := client.Summarize(context.Background(), scoredArticles())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSummarization))
}

func TestBuildPrompt_AllNegative(t *testing.T) {
	prompt := buildPrompt([]event.Article{
		{Title: "Shelling continues", Snippet: "No end in sight", Score: -0.5},
	})
	assert.Contains(t, prompt, "NEGATIVE NEWS ARTICLES:")
	assert.NotContains(t, prompt, "POSITIVE NEWS ARTICLES:")
}
