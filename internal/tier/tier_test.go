package tier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"career-twin/internal/conversation"
	"career-twin/internal/llm"
)

func samplePrompt() Prompt {
	return Prompt{
		System: "You are Fahad's digital twin.",
		Window: []conversation.Turn{
			{Role: conversation.RoleUser, Text: "hi"},
			{Role: conversation.RoleAssistant, Text: "Hey there!"},
			{Role: conversation.RoleUser, Text: "what does he do?"},
		},
		Utterance: "what does he do?",
	}
}

func TestPrompt_Render(t *testing.T) {
	got := samplePrompt().Render()
	assert.True(t, strings.HasPrefix(got, "You are Fahad's digital twin.\n\nCONVERSATION SO FAR:\n"))
	assert.Contains(t, got, "Visitor: hi\nYou: Hey there!\nVisitor: what does he do?\n")
	assert.Equal(t, 1, strings.Count(got, "what does he do?"))
	assert.True(t, strings.HasSuffix(got, "friendly, and engaging!"))
}

func TestPrompt_RenderAppendsMissingUtterance(t *testing.T) {
	p := Prompt{System: "s", Utterance: "hello"}
	assert.Contains(t, p.Render(), "Visitor: hello\n")
}

func TestMessages(t *testing.T) {
	msgs := Messages(samplePrompt())
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "what does he do?", msgs[3].Content)
}

func relayServer(t *testing.T, status int, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelay_Success(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"He builds healthcare apps."}]}}]}`)
	}))
	defer srv.Close()

	r := NewRelay(srv.URL, time.Second, nil)
	text, err := r.Attempt(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Equal(t, "He builds healthcare apps.", text)
	assert.Contains(t, got["message"], "CONVERSATION SO FAR:")
}

func TestRelay_ChoicesShape(t *testing.T) {
	srv := relayServer(t, http.StatusOK, "application/json", `{"choices":[{"message":{"content":"Sure!"}}]}`)
	text, err := NewRelay(srv.URL, time.Second, nil).Attempt(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Equal(t, "Sure!", text)
}

func TestRelay_Failures(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        Kind
		code        int
	}{
		{"not found", http.StatusNotFound, "text/html", "<html>404</html>", KindNotConfigured, 404},
		{"server error", http.StatusBadGateway, "application/json", `{"error":"upstream"}`, KindHTTPStatus, 502},
		{"html body", http.StatusOK, "text/html", "<html>hi</html>", KindMalformedBody, 200},
		{"error field", http.StatusOK, "application/json", `{"error":"quota"}`, KindMalformedBody, 200},
		{"unknown shape", http.StatusOK, "application/json", `{"reply":"hi"}`, KindMalformedBody, 200},
		{"empty text", http.StatusOK, "application/json", `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, KindMalformedBody, 200},
		{"bad json", http.StatusOK, "application/json", `{"candidates":`, KindMalformedBody, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := relayServer(t, tc.status, tc.contentType, tc.body)
			_, err := NewRelay(srv.URL, time.Second, nil).Attempt(context.Background(), samplePrompt())
			require.Error(t, err)
			f := AsFailure(SourceRelay, err)
			assert.Equal(t, SourceRelay, f.Tier)
			assert.Equal(t, tc.kind, f.Kind)
			assert.Equal(t, tc.code, f.Code)
		})
	}
}

func TestRelay_NetworkAndTimeout(t *testing.T) {
	srv := relayServer(t, http.StatusOK, "application/json", `{}`)
	url := srv.URL
	srv.Close()

	_, err := NewRelay(url, time.Second, nil).Attempt(context.Background(), samplePrompt())
	assert.Equal(t, KindNetwork, AsFailure(SourceRelay, err).Kind)

	block := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(block)

	start := time.Now()
	_, err = NewRelay(slow.URL, 50*time.Millisecond, nil).Attempt(context.Background(), samplePrompt())
	assert.Equal(t, KindNetwork, AsFailure(SourceRelay, err).Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRelay_NoEndpoint(t *testing.T) {
	_, err := NewRelay("", time.Second, nil).Attempt(context.Background(), samplePrompt())
	assert.Equal(t, KindNotConfigured, AsFailure(SourceRelay, err).Kind)
}

var (
	openaiAPIError429  = openai.APIError{HTTPStatusCode: 429, Message: "slow down"}
	openaiAPIErrorCode = openai.APIError{Code: "rate_limit_exceeded", Message: "tokens per minute"}
	openaiAPIError500  = openai.APIError{HTTPStatusCode: 500, Message: "internal"}
)

type fakeClient struct {
	resp llm.Response
	err  error
	got  []llm.Message
}

func (f *fakeClient) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	f.got = messages
	return f.resp, f.err
}

func TestDirect_Success(t *testing.T) {
	fc := &fakeClient{resp: llm.Response{Content: "Happy to help!"}}
	text, err := NewDirect(fc, time.Second).Attempt(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Equal(t, "Happy to help!", text)
	assert.Len(t, fc.got, 4)
}

func TestDirect_NoClient(t *testing.T) {
	_, err := NewDirect(nil, time.Second).Attempt(context.Background(), samplePrompt())
	f := AsFailure(SourceDirect, err)
	assert.Equal(t, KindNotConfigured, f.Kind)
}

func TestDirect_Classification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"status 429", &openaiAPIError429, KindRateLimited},
		{"vendor code", errors.Wrap(&openaiAPIErrorCode, "failed to create chat completion"), KindRateLimited},
		{"message text", errors.New("Rate limit reached for model"), KindRateLimited},
		{"server error", &openaiAPIError500, KindHTTPStatus},
		{"empty", llm.ErrEmptyResponse, KindMalformedBody},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "failed"), KindNetwork},
		{"other", errors.New("connection reset by peer"), KindNetwork},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := &fakeClient{err: tc.err}
			_, err := NewDirect(fc, time.Second).Attempt(context.Background(), samplePrompt())
			f := AsFailure(SourceDirect, err)
			assert.Equal(t, SourceDirect, f.Tier)
			assert.Equal(t, tc.kind, f.Kind)
		})
	}
}

func TestDirect_RateLimitFromProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached for model llama-3.1-8b-instant","type":"tokens","code":"rate_limit_exceeded"}}`)
	}))
	defer srv.Close()

	client := llm.NewOpenAI(llm.OpenAIOptions{APIKey: "k", BaseURL: srv.URL, Model: "llama-3.1-8b-instant"})
	_, err := NewDirect(client, time.Second).Attempt(context.Background(), samplePrompt())
	f := AsFailure(SourceDirect, err)
	assert.Equal(t, KindRateLimited, f.Kind)
	assert.Equal(t, http.StatusTooManyRequests, f.Code)
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Tier: SourceRelay, Kind: KindHTTPStatus, Code: 503, Detail: "busy"}
	assert.Equal(t, "relay tier: httpStatus(503): busy", f.Error())
	assert.Equal(t, KindNetwork, AsFailure(SourceDirect, errors.New("x")).Kind)
}
