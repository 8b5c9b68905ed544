package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func sampleRequest() CompletionRequest {
	return CompletionRequest{
		System: "be brief",
		Messages: []Message{
			{Role: RoleUser, Content: "hello"},
			{Role: RoleAssistant, Content: "hi"},
			{Role: RoleUser, Content: "next"},
		},
		MaxTokens:   64,
		Temperature: floatPtr(0.5),
	}
}

func TestGeminiAPIClient_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		assert.Contains(t, r.Header.Get("User-Agent"), "ai4cs/")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Which function?"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":3}}`))
	}))
	defer srv.Close()

	c := NewGeminiAPIClient("k", "gemini-test", srv.URL+"/v1beta")
	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Which function?", resp.Content)
	assert.Equal(t, "STOP", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)

	contents := got["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.NotNil(t, got["systemInstruction"])
	gen := got["generationConfig"].(map[string]any)
	assert.Equal(t, float64(64), gen["maxOutputTokens"])
	assert.Equal(t, 0.5, gen["temperature"])
}

func TestClaudeAPIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be brief", req.System)
		assert.Equal(t, 64, req.MaxTokens)
		require.Len(t, req.Messages, 3)
		assert.Equal(t, RoleAssistant, req.Messages[1].Role)
		w.Write([]byte(`{"model":"claude-x","content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn",
			"usage":{"input_tokens":5,"output_tokens":1}}`))
	}))
	defer srv.Close()

	c := NewClaudeAPIClient("k", "claude-x", srv.URL)
	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, 1, resp.Usage.OutputTokens)
}

func TestOllamaAPIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 4)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, 64, req.Options.NumPredict)
		w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"sure"},"done_reason":"stop"}`))
	}))
	defer srv.Close()

	c := NewOllamaAPIClient(srv.URL, "llama3")
	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "sure", resp.Content)
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 4)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":7,"completion_tokens":1,"total_tokens":8}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", "gpt-test", srv.URL)
	resp, err := c.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, 7, resp.Usage.InputTokens)
}

func TestOpenAIClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", "gpt-test", srv.URL)
	_, err := c.Complete(context.Background(), sampleRequest())
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.Equal(t, "openai", upstream.Provider)
}

func TestTransportFailure_RedactsURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantURL string
	}{
		{"query key", "http://h/models/m:generateContent?key=SECRET", "http://h/models/m:generateContent"},
		{"userinfo", "http://user:SECRET@h/x", "http://h/x"},
		{"plain", "http://h/x", "http://h/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := &url.Error{Op: "Post", URL: tt.url, Err: errors.New("connection refused")}
			err := transportFailure("gemini", "request failed", cause)

			assert.NotContains(t, err.Error(), "SECRET")
			assert.Contains(t, err.Error(), tt.wantURL)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestPostJSON_ErrorMapping(t *testing.T) {
	t.Run("non-2xx becomes upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("overloaded"))
		}))
		defer srv.Close()

		_, err := NewClaudeAPIClient("k", "m", srv.URL).Complete(context.Background(), sampleRequest())
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, 503, upstream.Status)
		assert.Equal(t, "overloaded", upstream.Body)
	})

	t.Run("garbage body becomes transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewGeminiAPIClient("k", "m", srv.URL).Complete(context.Background(), sampleRequest())
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.Equal(t, "gemini", transport.Provider)
	})

	t.Run("unreachable host becomes transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewOllamaAPIClient(url, "m").Complete(context.Background(), sampleRequest())
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
	})

	t.Run("api key never appears in transport errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewGeminiAPIClient("SECRET-KEY-123", "m", url).Complete(context.Background(), sampleRequest())
		var transport *TransportError
		require.ErrorAs(t, err, &transport)
		assert.NotContains(t, err.Error(), "SECRET-KEY-123")
		assert.NotContains(t, transport.Err.Error(), "SECRET-KEY-123")
	})

	t.Run("deadline becomes timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := NewGeminiAPIClient("k", "m", srv.URL).Complete(ctx, sampleRequest())
		assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	})
}

func TestErrorStrings(t *testing.T) {
	up := &UpstreamError{Provider: "gemini", Status: 500, Body: "boom"}
	assert.Equal(t, "gemini: upstream error (500): boom", up.Error())

	inner := errors.New("dial tcp: refused")
	tr := &TransportError{Provider: "claude", Message: "request failed", Err: inner}
	assert.Equal(t, "claude: request failed", tr.Error())
	assert.ErrorIs(t, tr, inner)

	assert.ErrorIs(t, timeoutError("ollama"), ErrTimeout)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{timeoutError("gemini"), KindTimeout},
		{&UpstreamError{Status: 500}, KindUpstream},
		{ErrEmptyCompletion, KindEmptyCompletion},
		{&TransportError{Message: "x"}, KindTransport},
		{errors.New("other"), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}
