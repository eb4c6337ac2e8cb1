package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/escrow-ledger/backend/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhookClientDeliver(t *testing.T) {
	var got events.Event
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 10, zap.NewNop())
	err := c.Deliver(context.Background(), events.Event{
		Type:    events.EventEscrowReleased,
		Seq:     7,
		Payload: map[string]any{"escrow_id": 3},
	})
	require.NoError(t, err)

	assert.Equal(t, events.EventEscrowReleased, got.Type)
	assert.Equal(t, int64(7), got.Seq)
	assert.Equal(t, "7", header.Get("X-Event-Seq"))
	assert.Equal(t, events.EventEscrowReleased, header.Get("X-Event-Type"))
}

func TestWebhookClientNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 10, zap.NewNop())
	err := c.Deliver(context.Background(), events.Event{Type: events.EventEscrowCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookClientCancelledWhileThrottled(t *testing.T) {
	c := NewWebhookClient("http://127.0.0.1:0", 1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Deliver(ctx, events.Event{Type: events.EventEscrowCreated})
	assert.Error(t, err)
}
