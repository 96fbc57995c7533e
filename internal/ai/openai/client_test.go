package openai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/ai/openai"
	"backend/pkg/aiinterface"
)

func newStubServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatCompletionRetriesAtMostOnce(t *testing.T) {
	var calls atomic.Int32
	srv := newStubServer(t, &calls, http.StatusInternalServerError,
		`{"error": {"message": "内部错误", "type": "server_error"}}`)

	client, err := openai.NewClient(&aiinterface.ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)

	_, err = client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	// 瞬时错误只重试一次：首次调用加一次重试
	assert.Equal(t, int32(2), calls.Load())

	var clientErr *aiinterface.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, aiinterface.ErrorTypeServerError, clientErr.Type)
	assert.True(t, clientErr.Transient())
}

func TestChatCompletionNoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := newStubServer(t, &calls, http.StatusBadRequest,
		`{"error": {"message": "参数错误", "type": "invalid_request_error"}}`)

	client, err := openai.NewClient(&aiinterface.ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)

	_, err = client.ChatCompletion(context.Background(), &aiinterface.ChatCompletionRequest{
		Messages: []aiinterface.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	// 非瞬时错误不重试
	assert.Equal(t, int32(1), calls.Load())

	var clientErr *aiinterface.ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.False(t, clientErr.Transient())
}
