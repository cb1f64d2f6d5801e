package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentlab/agentlab/internal/domain"
)

func testRequest() domain.CompletionRequest {
	return domain.CompletionRequest{
		System:      "you are a research assistant",
		Prompt:      "analyze",
		Temperature: 0.3,
		MaxTokens:   2048,
	}
}

func TestComplete_Success(t *testing.T) {
	var gotKey, gotVersion string
	var gotBody messagesRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "hello "},
				{"type": "text", "text": "world"}
			],
			"usage": {"input_tokens": 20, "output_tokens": 30}
		}`))
	}))
	defer srv.Close()

	p := New(StaticKey("sk-ant-test")).WithBaseURL(srv.URL)

	result, err := p.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, 50, result.TotalTokens)
	assert.Equal(t, 20, result.InputTokens)
	assert.Equal(t, 30, result.OutputTokens)

	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)
	assert.Equal(t, "you are a research assistant", gotBody.System)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "user", gotBody.Messages[0].Role)
	assert.Equal(t, 2048, gotBody.MaxTokens)
}

func TestComplete_DefaultsMaxTokens(t *testing.T) {
	var gotBody messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	req := testRequest()
	req.MaxTokens = 0

	p := New(StaticKey("k")).WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4096, gotBody.MaxTokens)
}

func TestComplete_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(StaticKey("k")).WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), testRequest())

	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, domain.IsTransient(err))
}

func TestComplete_MissingContentIsStructural(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content": [], "usage": {"input_tokens": 1, "output_tokens": 1}}`))
	}))
	defer srv.Close()

	p := New(StaticKey("k")).WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), testRequest())

	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.False(t, domain.IsTransient(err))
}

func TestComplete_MissingUsageIsStructural(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	p := New(StaticKey("k")).WithBaseURL(srv.URL)
	_, err := p.Complete(context.Background(), testRequest())

	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "usage", parseErr.Field)
}

func TestModelName(t *testing.T) {
	p := New(StaticKey("k"))
	assert.Equal(t, "claude-3-5-sonnet", p.ModelName())
	assert.Equal(t, "claude-3-opus", p.WithModel("claude-3-opus").ModelName())
}
