package callback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type collector struct {
	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	status   int
	delay    time.Duration
	requests atomic.Int64
}

func (c *collector) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.requests.Add(1)
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()
		if c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-r.Context().Done():
				return
			}
		}
		if c.status != 0 {
			w.WriteHeader(c.status)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func sampleReport() Report {
	var in classifier.Intelligence
	in.Add(classifier.CategoryUPI, "scammer@paytm")
	in.Add(classifier.CategoryPhoneNumber, "9876543210")
	in.Add(classifier.CategoryKeyword, "blocked")
	return Report{SessionID: "sess-1", MessageCount: 6, Category: "financial_phishing", Intelligence: in}
}

func TestDispatchDeliversPayload(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler())
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL)
	require.NoError(t, d.Dispatch(context.Background(), sampleReport()))
	require.Len(t, c.bodies, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(c.bodies[0], &got))
	assert.Equal(t, "sess-1", got["sessionId"])
	assert.Equal(t, true, got["scamDetected"])
	assert.EqualValues(t, 6, got["totalMessagesExchanged"])
	assert.Equal(t,
		"Engagement completed after 6 messages. Scam intelligence extracted with the primary category of scam detected as financial_phishing.",
		got["agentNotes"])

	intel := got["extractedIntelligence"].(map[string]any)
	assert.Equal(t, []any{"scammer@paytm"}, intel["upiIds"])
	assert.Equal(t, []any{"9876543210"}, intel["phoneNumbers"])
	assert.Equal(t, []any{}, intel["bankAccounts"])
	assert.Equal(t, []any{}, intel["phishingLinks"])
	assert.Equal(t, []any{"blocked"}, intel["suspiciousKeywords"])

	assert.Equal(t, "application/json", c.headers[0].Get("Content-Type"))
	assert.NotEmpty(t, c.headers[0].Get(DeliveryHeader))
	assert.Empty(t, c.headers[0].Get(SignatureHeader))
}

func TestDispatchSigned(t *testing.T) {
	c := &collector{}
	srv := httptest.NewServer(c.handler())
	t.Cleanup(srv.Close)

	signer, err := NewSigner(testutil.TestCallbackSecret)
	require.NoError(t, err)
	d := NewDispatcher(srv.URL, WithSigner(signer))
	require.NoError(t, d.Dispatch(context.Background(), sampleReport()))

	sig := c.headers[0].Get(SignatureHeader)
	assert.True(t, signer.Verify(c.bodies[0], sig))
}

func TestDispatchFailures(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		err := NewDispatcher("").Dispatch(context.Background(), sampleReport())
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("non-2xx", func(t *testing.T) {
		srv := httptest.NewServer((&collector{status: http.StatusBadGateway}).handler())
		t.Cleanup(srv.Close)
		err := NewDispatcher(srv.URL).Dispatch(context.Background(), sampleReport())
		require.ErrorIs(t, err, ErrCallbackDelivery)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer((&collector{delay: time.Second}).handler())
		t.Cleanup(srv.Close)
		err := NewDispatcher(srv.URL, WithTimeout(20*time.Millisecond)).Dispatch(context.Background(), sampleReport())
		assert.ErrorIs(t, err, ErrCallbackDelivery)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		err := NewDispatcher(url).Dispatch(context.Background(), sampleReport())
		assert.ErrorIs(t, err, ErrCallbackDelivery)
	})
}

func TestGoAndClose(t *testing.T) {
	c := &collector{delay: 50 * time.Millisecond}
	srv := httptest.NewServer(c.handler())
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL)
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Go(context.Background(), sampleReport()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, int64(3), c.requests.Load(), "Close waits for in-flight deliveries")

	assert.ErrorIs(t, d.Go(context.Background(), sampleReport()), ErrClosed)
}

func TestGoSurvivesCallerCancellation(t *testing.T) {
	c := &collector{delay: 20 * time.Millisecond}
	srv := httptest.NewServer(c.handler())
	t.Cleanup(srv.Close)

	d := NewDispatcher(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Go(ctx, sampleReport()))
	cancel()

	require.NoError(t, d.Close(context.Background()))
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.bodies, 1)
}
