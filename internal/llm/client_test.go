package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corey-beep/email-agent/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.LLMConfig{
		BaseURL:     url,
		Model:       "test-model",
		APIKey:      "test-key",
		Temperature: 0.7,
	}, zap.NewNop())
}

func chatServer(t *testing.T, handler func(req ChatRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okResponse(content string) string {
	return `{"id":"chatcmpl-1","choices":[{"message":{"role":"assistant","content":` +
		string(mustJSON(content)) + `}}]}`
}

func mustJSON(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

func TestChat(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			assert.Equal(t, "test-model", req.Model)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "be terse", req.Messages[0].Content)
			assert.Equal(t, "user", req.Messages[1].Role)
			assert.Equal(t, "hello", req.Messages[1].Content)
			return http.StatusOK, okResponse("world")
		})

		got, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "be terse")
		require.NoError(t, err)
		assert.Equal(t, "world", got)
	})

	t.Run("empty system prompt is omitted", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			require.Len(t, req.Messages, 1)
			assert.Equal(t, "user", req.Messages[0].Role)
			return http.StatusOK, okResponse("ok")
		})

		_, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "")
		require.NoError(t, err)
	})

	t.Run("http error status", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusInternalServerError, `{"error":{"message":"boom"}}`
		})

		_, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrAPICallFailed)
	})

	t.Run("api-level error object", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusOK, `{"error":{"message":"model not found"}}`
		})

		_, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrAPICallFailed)
		assert.Contains(t, err.Error(), "model not found")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusOK, `{"id":"x","choices":[]}`
		})

		_, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("malformed json", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusOK, `not json`
		})

		_, err := newTestClient(srv.URL).Chat(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")
		_, err := client.Chat(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrAPICallFailed)
	})
}

func TestComplete(t *testing.T) {
	t.Run("success passes text through", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusOK, okResponse("HIGH")
		})

		got := newTestClient(srv.URL).Complete(context.Background(), "rate this", "")
		assert.Equal(t, "HIGH", got)
	})

	t.Run("failure returns descriptive text not an error", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")
		got := client.Complete(context.Background(), "rate this", "")
		assert.True(t, strings.HasPrefix(got, "Error communicating with LLM:"), got)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("responding endpoint is healthy", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			assert.Contains(t, req.Messages[0].Content, "Say 'OK'")
			return http.StatusOK, okResponse("OK")
		})

		assert.True(t, newTestClient(srv.URL).HealthCheck(context.Background()))
	})

	t.Run("any non-empty answer counts", func(t *testing.T) {
		srv := chatServer(t, func(req ChatRequest) (int, string) {
			return http.StatusOK, okResponse("sure thing")
		})

		assert.True(t, newTestClient(srv.URL).HealthCheck(context.Background()))
	})

	t.Run("unreachable endpoint is unhealthy", func(t *testing.T) {
		assert.False(t, newTestClient("http://127.0.0.1:1").HealthCheck(context.Background()))
	})
}

func TestBaseURLTrailingSlash(t *testing.T) {
	srv := chatServer(t, func(req ChatRequest) (int, string) {
		return http.StatusOK, okResponse("ok")
	})

	client := newTestClient(srv.URL + "/")
	_, err := client.Chat(context.Background(), "hello", "")
	require.NoError(t, err)
}
