package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 250 * time.Millisecond
)

// HTTPBroadcaster posts realtime envelopes to the push gateway. Failures are
// retried with a linear delay; a delivery that still fails is dropped, since
// the event log row already committed and clients can catch up from it.
type HTTPBroadcaster struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	endpoint    string
	token       string
	maxRetries  int
	retryDelay  time.Duration
	clock       shared.Clock
}

// NewHTTPBroadcaster creates a broadcaster for the given gateway endpoint.
// If clock is nil, uses the real clock.
func NewHTTPBroadcaster(endpoint, token string, maxRetries int, retryDelay time.Duration, clock shared.Clock) *HTTPBroadcaster {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &HTTPBroadcaster{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(50), 100), // 50 posts/sec, burst 100
		endpoint:    endpoint,
		token:       token,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		clock:       clock,
	}
}

// envelope is the wire format the gateway fans out to subscribers. The event
// id rides along so clients can dedupe against the log.
type envelope struct {
	Topic   string                 `json:"topic"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
	EventID int64                  `json:"__event_id,omitempty"`
}

// Publish posts one envelope to the gateway, retrying transient failures
func (b *HTTPBroadcaster) Publish(ctx context.Context, topic, eventType string, payload map[string]interface{}, eventID int64) error {
	body, err := json.Marshal(envelope{
		Topic:   topic,
		Event:   eventType,
		Payload: payload,
		EventID: eventID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast envelope: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if err := b.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create broadcast request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if b.token != "" {
			req.Header.Set("Authorization", "Bearer "+b.token)
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("broadcast network error: %w", err)
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("broadcast rejected: status %d", resp.StatusCode)
			// Client errors other than rate limiting will not succeed on
			// retry, so fail immediately
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return lastErr
			}
		}

		if attempt >= b.maxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		b.clock.Sleep(b.retryDelay * time.Duration(attempt))
	}
	return fmt.Errorf("broadcast failed after %d attempts: %w", b.maxRetries, lastErr)
}
