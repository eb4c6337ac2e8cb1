package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/escrow-ledger/backend/internal/events"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WebhookClient posts ledger events to an external endpoint, at most rps
// requests per second.
type WebhookClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *zap.Logger
}

func NewWebhookClient(url string, rps int, log *zap.Logger) *WebhookClient {
	if rps <= 0 {
		rps = 1
	}
	return &WebhookClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Deliver sends one event. It blocks while the client is over its rate and
// returns an error for transport failures and non-2xx responses; it does not
// retry.
func (c *WebhookClient) Deliver(ctx context.Context, event events.Event) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.Type)
	if event.Seq > 0 {
		req.Header.Set("X-Event-Seq", strconv.FormatInt(event.Seq, 10))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(msg))
	}

	c.log.Debug("webhook delivered", zap.String("type", event.Type), zap.Int64("seq", event.Seq))
	return nil
}
