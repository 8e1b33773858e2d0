package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelworks/conflict-sentinel-backend/internal/domain/errors"
	"github.com/sentinelworks/conflict-sentinel-backend/internal/infrastructure/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.SentimentConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, zap.NewNop())
}

func TestClient_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/score", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req["title"] {
		case "Massacre reported in border town":
			w.Write([]byte(`{"score": -1.0}`))
		case "Peace deal signed":
			w.Write([]byte(`{"score": 0.5}`))
		default:
			w.Write([]byte(`{"score": 0}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	score, err := client.Score(context.Background(), "Massacre reported in border town")
	require.NoError(t, err)
	assert.Equal(t, -1.0, score)

	score, err = client.Score(context.Background(), "Peace deal signed")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
}

func TestClient_Score_EmptyTitleIsNeutral(t *testing.T) {
	client := newTestClient("http://unused")

	score, err := client.Score(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestClient_Score_ClampsOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"score": 3.7}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	score, err := client.Score(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestClient_Score_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Score(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFetch))
}

func TestClient_Score_CircuitOpensAfterFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.breaker.threshold = 2

	for i := 0; i < 5; i++ {
		_, err := client.Score(context.Background(), "anything")
		require.Error(t, err)
	}
	// Only the first two requests reach the server, the rest are short
	// circuited locally.
	assert.Equal(t, 2, hits)
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.NoError(t, client.Health(context.Background()))
}
