// Package callback delivers final intelligence reports to the downstream
// collector. Delivery is a single attempt; a failed delivery is logged and
// never undoes the session's reported state.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/metrics"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/callback")

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 10 * time.Second

// DeliveryHeader carries a unique id per attempt.
const DeliveryHeader = "X-Honeypot-Delivery"

var (
	// ErrNotConfigured means no collector URL is set.
	ErrNotConfigured = errors.New("callback url not configured")
	// ErrCallbackDelivery wraps every failed delivery.
	ErrCallbackDelivery = errors.New("callback delivery failed")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("callback dispatcher closed")
)

// Dispatcher POSTs reports to the collector.
type Dispatcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
	signer  *Signer

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Dispatcher) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSigner signs every payload into SignatureHeader.
func WithSigner(s *Signer) Option {
	return func(c *Dispatcher) { c.signer = s }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Dispatcher) { c.client = client }
}

// NewDispatcher creates a dispatcher for url. An empty url is allowed and
// makes every dispatch fail with ErrNotConfigured.
func NewDispatcher(url string, opts ...Option) *Dispatcher {
	d := &Dispatcher{url: url, timeout: DefaultTimeout, client: &http.Client{}}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Configured reports whether a collector URL is set.
func (d *Dispatcher) Configured() bool { return d.url != "" }

// Dispatch delivers r synchronously within the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, r Report) (err error) {
	ctx, span := tracer.Start(ctx, "callback.dispatch",
		trace.WithAttributes(attribute.String("session.id", r.SessionID)))
	defer span.End()

	defer func() {
		switch {
		case err == nil:
			metrics.RecordCallback("delivered")
		case errors.Is(err, ErrNotConfigured):
			metrics.RecordCallback("not_configured")
		default:
			metrics.RecordCallback("failed")
			span.RecordError(err)
		}
	}()

	if d.url == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(BuildPayload(r))
	if err != nil {
		return fmt.Errorf("marshaling callback payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", ErrCallbackDelivery, err)
	}
	deliveryID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, deliveryID)
	if d.signer != nil {
		req.Header.Set(SignatureHeader, d.signer.Sign(body))
	}
	span.SetAttributes(attribute.String("callback.delivery_id", deliveryID))

	// G704: URL comes from operator configuration, not request input.
	resp, err := d.client.Do(req) // #nosec G704
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCallbackDelivery, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: collector returned status %d", ErrCallbackDelivery, resp.StatusCode)
	}

	log.Info().
		Func(honeypototel.LogTraceFields(ctx)).
		Str("session_id", r.SessionID).
		Str("delivery_id", deliveryID).
		Int("status", resp.StatusCode).
		Msg("callback_dispatched")
	return nil
}

// Go delivers r on a tracked goroutine so the caller is not held by the
// collector. The goroutine keeps ctx's values but not its cancellation.
func (d *Dispatcher) Go(ctx context.Context, r Report) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.wg.Add(1)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		if err := d.Dispatch(bg, r); err != nil {
			ev := log.Error()
			if errors.Is(err, ErrNotConfigured) {
				ev = log.Warn()
			}
			ev.Err(err).
				Func(honeypototel.LogTraceFields(bg)).
				Str("session_id", r.SessionID).
				Msg("callback_dispatch_failed")
		}
	}()
	return nil
}

// Close stops accepting new reports and waits for in-flight deliveries or
// ctx, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for callbacks: %w", ctx.Err())
	}
}
