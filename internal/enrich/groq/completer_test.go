package groq_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/groq"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestCompleter_Complete(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"llama3-8b-8192",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello@acme.com"}}]
		}`))
	}))
	defer srv.Close()

	c, err := groq.New(groq.Config{APIKey: "gsk_test", BaseURL: srv.URL + "/openai/v1"}, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, groq.DefaultModel, c.Model())

	reply, err := c.Complete(context.Background(), "find the email")
	require.NoError(t, err)
	assert.Equal(t, "hello@acme.com", reply)

	assert.Equal(t, "Bearer gsk_test", auth)
	assert.Equal(t, "llama3-8b-8192", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "find the email", got.Messages[0].Content)
}

func TestCompleter_ErrorsAreClassifiedAndNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   string
	}{
		{name: "auth", status: http.StatusUnauthorized, kind: enrich.KindAuth},
		{name: "rate limit", status: http.StatusTooManyRequests, kind: enrich.KindRateLimit},
		{name: "server", status: http.StatusInternalServerError, kind: enrich.KindServer},
		{name: "bad request", status: http.StatusBadRequest, kind: enrich.KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			c, err := groq.New(groq.Config{APIKey: "k", BaseURL: srv.URL}, srv.Client())
			require.NoError(t, err)

			_, err = c.Complete(context.Background(), "p")
			var ce *enrich.CallError
			require.True(t, errors.As(err, &ce), "got %T", err)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.status, ce.StatusCode)
			assert.Contains(t, ce.Error(), "nope")
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := groq.New(groq.Config{}, nil)
	assert.ErrorContains(t, err, "GROQ_API_KEY")
}
