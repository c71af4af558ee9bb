package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curatehub.io/curatehub/internal/config"
)

func newTestClient(endpoint string) *Client {
	return NewClient(config.EnrichmentConfig{
		Endpoint:       endpoint,
		Model:          "test-model",
		APIKey:         "test-key",
		RequestTimeout: time.Second,
	})
}

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestClassifyParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-model", payload.Model)
		require.Len(t, payload.Messages, 2)
		assert.Contains(t, payload.Messages[1].Content, "Effective Go")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply(`{"summary":"The canonical style guide.","difficulty":"intermediate","content_type":"article","tags":["Go","Style"]}`)))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Classify(context.Background(), Input{
		Title: "Effective Go",
		URL:   "https://go.dev/doc/effective_go",
	})
	require.NoError(t, err)
	assert.Equal(t, "The canonical style guide.", res.Summary)
	assert.Equal(t, "intermediate", res.Difficulty)
	assert.Equal(t, []string{"Go", "Style"}, res.Tags)
}

func TestClassifyToleratesCodeFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("```json\n{\"summary\":\"fenced\",\"tags\":[]}\n```")))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).Classify(context.Background(), Input{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fenced", res.Summary)
}

func TestClassifyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Classify(context.Background(), Input{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClassifyTimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(chatReply(`{"summary":"too late"}`)))
	}))
	defer srv.Close()

	c := NewClient(config.EnrichmentConfig{
		Endpoint:       srv.URL,
		Model:          "test-model",
		APIKey:         "test-key",
		RequestTimeout: 20 * time.Millisecond,
	})
	_, err := c.Classify(context.Background(), Input{Title: "x"})
	require.Error(t, err)
}

func TestClassifyEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Classify(context.Background(), Input{Title: "x"})
	require.Error(t, err)
}

func TestClassifyMisconfigured(t *testing.T) {
	c := NewClient(config.EnrichmentConfig{RequestTimeout: time.Second})
	_, err := c.Classify(context.Background(), Input{Title: "x"})
	require.Error(t, err)
}

func TestResultMetadataOmitsEmptyValues(t *testing.T) {
	res := Result{Summary: "s"}
	m := res.Metadata()
	assert.Equal(t, map[string]string{"ai_summary": "s"}, m)

	full := Result{Summary: "s", Difficulty: "beginner", ContentType: "video"}
	assert.Len(t, full.Metadata(), 3)
}
