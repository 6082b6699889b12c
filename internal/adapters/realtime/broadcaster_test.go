package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/quadrant-go/internal/adapters/realtime"
	"github.com/andrescamacho/quadrant-go/internal/domain/shared"
)

func newBroadcaster(endpoint string) *realtime.HTTPBroadcaster {
	clock := shared.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	return realtime.NewHTTPBroadcaster(endpoint, "gateway-token", 3, time.Millisecond, clock)
}

func TestBroadcaster_PublishPostsEnvelope(t *testing.T) {
	// Arrange
	var captured map[string]interface{}
	var authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	broadcaster := newBroadcaster(server.URL)

	// Act
	err := broadcaster.Publish(context.Background(), "sector:5", "movement.complete",
		map[string]interface{}{"sector": 5}, 42)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Bearer gateway-token", authHeader)
	assert.Equal(t, "sector:5", captured["topic"])
	assert.Equal(t, "movement.complete", captured["event"])
	assert.Equal(t, float64(42), captured["__event_id"])
	payload, ok := captured["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(5), payload["sector"])
}

func TestBroadcaster_RetriesServerErrors(t *testing.T) {
	// Arrange - the gateway recovers on the third attempt
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	broadcaster := newBroadcaster(server.URL)

	// Act
	err := broadcaster.Publish(context.Background(), "broadcast", "chat.message", nil, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestBroadcaster_ExhaustedRetriesFail(t *testing.T) {
	// Arrange
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	broadcaster := newBroadcaster(server.URL)

	// Act
	err := broadcaster.Publish(context.Background(), "broadcast", "chat.message", nil, 0)

	// Assert
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestBroadcaster_ClientErrorFailsFast(t *testing.T) {
	// Arrange - a 400 never succeeds on retry
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	broadcaster := newBroadcaster(server.URL)

	// Act
	err := broadcaster.Publish(context.Background(), "broadcast", "chat.message", nil, 0)

	// Assert
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBroadcaster_TooManyRequestsIsRetried(t *testing.T) {
	// Arrange - 429 is the one 4xx worth retrying
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	broadcaster := newBroadcaster(server.URL)

	// Act
	err := broadcaster.Publish(context.Background(), "broadcast", "chat.message", nil, 0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
