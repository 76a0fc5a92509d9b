package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		APIKey:  "gsk_test",
		Model:   "llama-3.3-70b-versatile",
		Timeout: 2 * time.Second,
	}, zerolog.Nop())
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq chatRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "use sync.WaitGroup"}},
			},
		})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	reply, err := c.Complete(context.Background(), "how do I wait for goroutines?", map[string]any{"file": "main.go"})
	require.NoError(t, err)
	assert.Equal(t, "use sync.WaitGroup", reply)

	assert.Equal(t, "Bearer gsk_test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "llama-3.3-70b-versatile", gotReq.Model)

	// system prompt, context, then the user prompt.
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "user", gotReq.Messages[2].Role)
	assert.Equal(t, "how do I wait for goroutines?", gotReq.Messages[2].Content)
}

func TestCompleteServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Complete(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	_, err := c.Complete(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteUnreachable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Complete(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Complete(ctx, "hi", nil)
	assert.ErrorIs(t, err, ErrUpstream)
}
