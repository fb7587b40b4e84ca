package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/detector"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/guardrail"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/ratelimit"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/requestctx"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/testutil"
)

// fakeHandler records calls and returns canned results.
type fakeHandler struct {
	mu      sync.Mutex
	reqs    []orchestrator.Request
	callers []string
	resp    *orchestrator.Response
	err     error
	sess    *session.Session
}

func (f *fakeHandler) Handle(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	f.callers = append(f.callers, requestctx.Caller(ctx))
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &orchestrator.Response{Status: orchestrator.StatusSuccess, Reply: "who is this?"}, nil
}

func (f *fakeHandler) Session(_ context.Context, id string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sess == nil || f.sess.ID != id {
		return nil, fmt.Errorf("session %q: %w", id, session.ErrNotFound)
	}
	return f.sess, nil
}

func (f *fakeHandler) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

const validBody = `{
  "sessionId": "wertyu-dfghj-ertyui",
  "message": {"sender": "scammer", "text": "Your bank account will be blocked today.", "timestamp": 1770005528731},
  "conversationHistory": [],
  "metadata": {"channel": "SMS", "language": "English", "locale": "IN"}
}`

func newTestServer(h Handler, opts ...Option) http.Handler {
	return NewServer(h, auth.NewStaticKeys(testutil.TestAPIKey), opts...).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func withKey() map[string]string { return map[string]string{APIKeyHeader: testutil.TestAPIKey} }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestHealthAndPing(t *testing.T) {
	h := newTestServer(&fakeHandler{})

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "pong"}, decode(t, rec))
}

func TestHealthDetail(t *testing.T) {
	h := newTestServer(&fakeHandler{},
		WithHealthCheck("session_store", func(context.Context) error { return nil }),
		WithHealthCheck("oracle", func(context.Context) error { return errors.New("disabled") }))

	rec := do(t, h, http.MethodGet, "/health?detail=true", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "degraded", out["status"])
	components := out["components"].(map[string]any)
	assert.Equal(t, "ok", components["session_store"])
	assert.Equal(t, "error: disabled", components["oracle"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(&fakeHandler{}), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# TYPE")
}

func TestAuthMiddleware(t *testing.T) {
	fh := &fakeHandler{}
	h := newTestServer(fh)

	rec := do(t, h, http.MethodPost, "/", validBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "missing API key", out["error"])

	rec = do(t, h, http.MethodPost, "/", validBody, map[string]string{APIKeyHeader: "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid API key", decode(t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/v1/sessions/abc", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, fh.calls(), "rejected before the handler")

	rec = do(t, h, http.MethodPost, "/", validBody, map[string]string{"Authorization": "Bearer " + testutil.TestAPIKey})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fh.calls())
	assert.Equal(t, auth.CallerID(testutil.TestAPIKey), fh.callers[0])
}

func TestMessageEndpoint(t *testing.T) {
	fh := &fakeHandler{}
	h := newTestServer(fh)

	for _, path := range []string{"/", "/v1/messages"} {
		rec := do(t, h, http.MethodPost, path, validBody, withKey())
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		out := decode(t, rec)
		assert.Equal(t, "success", out["status"])
		assert.Equal(t, "who is this?", out["reply"])
	}

	require.Len(t, fh.reqs, 2)
	req := fh.reqs[0]
	assert.Equal(t, "wertyu-dfghj-ertyui", req.SessionID)
	assert.Equal(t, "scammer", req.Message.Sender)
	assert.Equal(t, int64(1770005528731), req.Message.Timestamp)
	assert.Equal(t, "SMS", req.Metadata.Channel)
}

func TestMessageEndpointSchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"sessionId":`},
		{"missing message", `{"sessionId": "abc"}`},
		{"missing session", `{"message": {"sender": "scammer", "text": "hi"}}`},
		{"numeric session", `{"sessionId": 12, "message": {"sender": "scammer", "text": "hi"}}`},
		{"string timestamp", `{"sessionId": "abc", "message": {"sender": "scammer", "text": "hi", "timestamp": "now"}}`},
		{"negative timestamp", `{"sessionId": "abc", "message": {"sender": "scammer", "text": "hi", "timestamp": -5}}`},
		{"bad history item", `{"sessionId": "abc", "message": {"sender": "scammer", "text": "hi"}, "conversationHistory": [{"text": 1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh := &fakeHandler{}
			rec := do(t, newTestServer(fh), http.MethodPost, "/", tt.body, withKey())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", decode(t, rec)["status"])
			assert.Zero(t, fh.calls())
		})
	}
}

func TestMessageEndpointBodyLimit(t *testing.T) {
	body := `{"sessionId":"abc","message":{"sender":"scammer","text":"` + strings.Repeat("a", maxBodyBytes) + `"}}`
	rec := do(t, newTestServer(&fakeHandler{}), http.MethodPost, "/", body, withKey())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &orchestrator.ValidationError{Field: "sessionId", Reason: "bad"}, http.StatusBadRequest, "invalid sessionId: bad"},
		{"persistence", &orchestrator.PersistenceError{Op: "commit cycle", Err: errors.New("disk")}, http.StatusServiceUnavailable, "service temporarily unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "service temporarily unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&fakeHandler{err: tt.err}), http.MethodPost, "/", validBody, withKey())
			assert.Equal(t, tt.status, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, tt.message, out["error"])
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	sess := session.New("abc", session.Metadata{Channel: "WhatsApp"}, time.Unix(1_700_000_000, 0))
	sess.State = session.StateEngaging
	sess.Messages = []session.Message{
		{Sender: session.SenderScammer, Text: "hi"},
		{Sender: session.SenderAgent, Text: "who is this?"},
	}
	sess.Intelligence.Add(classifier.CategoryUPI, "scammer@paytm")
	h := newTestServer(&fakeHandler{sess: sess})

	rec := do(t, h, http.MethodGet, "/v1/sessions/abc", "", withKey())
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "abc", out["sessionId"])
	assert.Equal(t, "ENGAGING", out["state"])
	assert.Equal(t, float64(2), out["messageCount"])
	assert.Equal(t, float64(1), out["exchangeCount"])
	intel := out["extractedIntelligence"].(map[string]any)
	assert.Equal(t, []any{"scammer@paytm"}, intel["upiIds"])
	assert.Equal(t, []any{}, intel["bankAccounts"])

	rec = do(t, h, http.MethodGet, "/v1/sessions/other", "", withKey())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallerRateLimit(t *testing.T) {
	fh := &fakeHandler{}
	h := newTestServer(fh, WithCallerLimiter(ratelimit.NewCallerLimiter(100, 2)))

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, h, http.MethodPost, "/", validBody, withKey()).Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 2, fh.calls())
}

func TestIPRateLimit(t *testing.T) {
	h := newTestServer(&fakeHandler{}, WithIPRateLimit(2))
	var last *httptest.ResponseRecorder
	for range 3 {
		last = do(t, h, http.MethodGet, "/ping", "", nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
}

// TestEndToEndConversation drives the real orchestrator through HTTP.
func TestEndToEndConversation(t *testing.T) {
	store, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	provider := &testutil.StubProvider{Responses: []string{"oh no which bank are you from?"}}
	adapter := oracle.New(provider, &testutil.StubLimiter{Allow: -1}, oracle.Config{})
	orch, err := orchestrator.New(orchestrator.Deps{
		Store:     store,
		Extractor: classifier.MustNewExtractor(),
		Fusion:    detector.NewFusion(detector.MustNewHeuristic(), adapter),
		Responder: adapter,
		Guard:     guardrail.MustNew(),
	}, orchestrator.Config{})
	require.NoError(t, err)

	h := NewServer(orch, auth.NewStaticKeys(testutil.TestAPIKey),
		WithHealthCheck("session_store", store.Ping)).Routes()

	rec := do(t, h, http.MethodPost, "/v1/messages", validBody, withKey())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "oh no which bank are you from?", decode(t, rec)["reply"])

	bad := bytes.ReplaceAll([]byte(validBody), []byte("wertyu-dfghj-ertyui"), []byte("bad id"))
	rec = do(t, h, http.MethodPost, "/", string(bad), withKey())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/sessions/wertyu-dfghj-ertyui", "", withKey())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["messageCount"])

	rec = do(t, h, http.MethodGet, "/health?detail=true", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
