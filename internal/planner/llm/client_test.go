package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-4o-mini"})
}

func TestCompleteSuccess(t *testing.T) {
	var gotBody chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "{\"floors\":[]}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200}
		}`))
	})

	resp, err := client.Complete(context.Background(), Request{
		SystemPrompt: "system",
		UserPrompt:   "a small house",
		Temperature:  0.7,
		MaxTokens:    4000,
		JSONMode:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"floors":[]}`, resp.Content)
	assert.Equal(t, 200, resp.Usage.TotalTokens)
	require.NotNil(t, gotBody.ResponseFormat)
	assert.Equal(t, "json_object", gotBody.ResponseFormat.Type)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
}

func TestCompleteErrorClassification(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		body          string
		wantCode      string
		wantTransient bool
	}{
		{
			name:          "rate limited",
			status:        429,
			body:          `{"error":{"message":"rate limit reached","type":"requests"}}`,
			wantCode:      CodeRateLimited,
			wantTransient: true,
		},
		{
			name:          "quota exhausted",
			status:        429,
			body:          `{"error":{"message":"quota exceeded","code":"insufficient_quota"}}`,
			wantCode:      CodeQuotaExceeded,
			wantTransient: false,
		},
		{
			name:          "context too long",
			status:        400,
			body:          `{"error":{"message":"this model's maximum context length is 128000 tokens","code":"context_length_exceeded"}}`,
			wantCode:      CodeContextTooLong,
			wantTransient: false,
		},
		{
			name:          "malformed request",
			status:        400,
			body:          `{"error":{"message":"invalid request"}}`,
			wantCode:      CodeProvider,
			wantTransient: false,
		},
		{
			name:          "server error",
			status:        503,
			body:          `{"error":{"message":"overloaded"}}`,
			wantCode:      CodeProvider,
			wantTransient: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Complete(context.Background(), Request{UserPrompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, ErrorCode(err))
			assert.Equal(t, tc.wantTransient, IsTransient(err))
		})
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), Request{UserPrompt: "x"})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced json", "Here you go:\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"prose around object", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"no object", "sorry, I cannot help", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}
