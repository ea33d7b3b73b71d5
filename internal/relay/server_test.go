package relay

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
	"career-twin/internal/session"
	"career-twin/internal/storage"
	"career-twin/internal/tier"
)

type fakeLLM struct {
	reply string
	err   error
	got   []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	f.got = messages
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.reply, Model: "fake"}, nil
}

type memStore struct {
	entries []storage.Entry
	err     error
}

func (m *memStore) AppendSession(_ context.Context, s session.Summary) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, storage.Entry{Timestamp: time.Now(), Data: s})
	return nil
}

func (m *memStore) LoadSessions(context.Context) ([]storage.Entry, error) {
	return m.entries, m.err
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChat_Success(t *testing.T) {
	fl := &fakeLLM{reply: "He designs healthcare apps."}
	h := New(fl, nil, Options{}).Handler()

	rec := do(t, h, http.MethodPost, "/api/chat", `{"message":"SYSTEM\n\nCONVERSATION SO FAR:\nVisitor: hi\n"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"candidates":[{"content":{"parts":[{"text":"He designs healthcare apps."}]}}]}`, rec.Body.String())

	require.Len(t, fl.got, 1)
	assert.Equal(t, llm.RoleUser, fl.got[0].Role)
	assert.Contains(t, fl.got[0].Content, "CONVERSATION SO FAR:")
}

func TestChat_Validation(t *testing.T) {
	h := New(&fakeLLM{reply: "x"}, nil, Options{}).Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/chat", `{"message":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/chat", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/chat", ``).Code)

	pre := do(t, h, http.MethodOptions, "/api/chat", ``)
	assert.Equal(t, http.StatusOK, pre.Code)
	assert.Contains(t, pre.Header().Get("Access-Control-Allow-Methods"), "POST")

	noKey := New(nil, nil, Options{}).Handler()
	assert.Equal(t, http.StatusInternalServerError, do(t, noKey, http.MethodPost, "/api/chat", `{"message":"hi"}`).Code)
}

func TestChat_UpstreamErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errors.Wrap(&openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}, "failed"), 429},
		{&openai.RequestError{HTTPStatusCode: 503, Body: []byte("busy")}, 503},
		{llm.ErrEmptyResponse, 502},
		{errors.New("dial tcp: refused"), 500},
	}
	for _, tc := range cases {
		h := New(&fakeLLM{err: tc.err}, nil, Options{}).Handler()
		rec := do(t, h, http.MethodPost, "/api/chat", `{"message":"hi"}`)
		assert.Equal(t, tc.status, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["error"])
	}
}

func TestAnalyticsAndStats(t *testing.T) {
	store := &memStore{}
	h := New(nil, store, Options{}).Handler()

	tr := session.NewTracker(session.UserInfo{Timezone: "Asia/Karachi"})
	tr.TrackChatOpened()
	tr.TrackQuickQuestion("Show me his portfolio")
	tr.TrackMessage("Show me his portfolio", true)
	body, err := json.Marshal(tr.Summary())
	require.NoError(t, err)

	rec := do(t, h, http.MethodPost, "/api/analytics", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])
	require.Len(t, store.entries, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/analytics", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/analytics", `[1,2`).Code)

	rec = do(t, h, http.MethodGet, "/api/stats", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 1, stats["totalSessions"])
	assert.EqualValues(t, 1, stats["totalQuickQuestions"])
	popular := stats["popularQuestions"].([]any)
	require.Len(t, popular, 1)
	assert.Equal(t, "Show me his portfolio", popular[0].(map[string]any)["question"])
}

func TestStats_Token(t *testing.T) {
	h := New(nil, &memStore{}, Options{StatsToken: "s3cret"}).Handler()
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/stats", ``).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/stats", ``, "X-Stats-Token", "s3cret").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/stats", ``, "X-Stats-Token", "s3cret").Code)
}

func TestLocation(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ip":"1.2.3.4","city":"Lahore","country_name":"Pakistan","timezone":"Asia/Karachi"}`)
	}))
	defer geo.Close()

	h := New(nil, nil, Options{LocationURL: geo.URL}).Handler()
	rec := do(t, h, http.MethodGet, "/api/location", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lahore", decode(t, rec)["city"])

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer down.Close()
	h = New(nil, nil, Options{LocationURL: down.URL}).Handler()
	rec = do(t, h, http.MethodGet, "/api/location", ``)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Geo lookup failed", decode(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	rec := do(t, New(nil, nil, Options{}).Handler(), http.MethodGet, "/health", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

// The relay tier and this server speak the same wire contract.
func TestRelayTierAgainstServer(t *testing.T) {
	srv := httptest.NewServer(New(&fakeLLM{reply: "Both design and code!"}, nil, Options{}).Handler())
	defer srv.Close()

	conv := conversation.New()
	conv.AppendUser("design or development?")
	p := tier.Prompt{System: "sys", Window: conv.RecentWindow(5), Utterance: "design or development?"}

	text, err := tier.NewRelay(srv.URL+"/api/chat", time.Second, nil).Attempt(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Both design and code!", text)

	_, err = tier.NewRelay(srv.URL+"/api/missing", time.Second, nil).Attempt(context.Background(), p)
	assert.Equal(t, tier.KindNotConfigured, tier.AsFailure(tier.SourceRelay, err).Kind)

	rateLimited := httptest.NewServer(New(&fakeLLM{err: &openai.APIError{HTTPStatusCode: 429}}, nil, Options{}).Handler())
	defer rateLimited.Close()
	_, err = tier.NewRelay(rateLimited.URL+"/api/chat", time.Second, nil).Attempt(context.Background(), p)
	f := tier.AsFailure(tier.SourceRelay, err)
	assert.Equal(t, tier.KindHTTPStatus, f.Kind)
	assert.Equal(t, 429, f.Code)
}
