package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-twin/internal/config"
)

const completionJSON = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "llama-3.1-8b-instant",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "He's great at UI/UX!"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestOpenAIClient_Generate(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		gotHeaders = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionJSON)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{
		APIKey:      "gsk_test",
		BaseURL:     srv.URL + "/",
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.9,
		MaxTokens:   150,
		Referrer:    "https://example.com",
		Title:       "career-twin",
	})
	resp, err := c.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "He's great at UI/UX!", resp.Content)
	assert.Equal(t, 15, resp.TotalTokens)

	assert.Equal(t, "Bearer gsk_test", gotHeaders.Get("Authorization"))
	assert.Equal(t, "https://example.com", gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, "career-twin", gotHeaders.Get("X-Title"))
	assert.Equal(t, "llama-3.1-8b-instant", gotBody["model"])
	assert.EqualValues(t, 150, gotBody["max_tokens"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIClient_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	c := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := c.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestFactory_NoCredential(t *testing.T) {
	f := NewFactory(&config.Config{DirectProvider: config.ProviderOpenAI})
	_, err := f.CreateClient(nil)
	assert.True(t, errors.Is(err, ErrNoCredential))

	f = NewFactory(&config.Config{DirectProvider: config.ProviderYandex, YandexOAuthToken: "t"})
	_, err = f.CreateClient(nil)
	assert.True(t, errors.Is(err, ErrNoCredential))

	f = NewFactory(&config.Config{DirectProvider: config.ProviderOpenAI, DirectAPIKey: "k"})
	c, err := f.CreateClient(nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
