package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
)

// Webhook registration defaults
const (
	DefaultWebhookAttempts = 5
	DefaultWebhookDelay    = 3 * time.Second
)

// Long-poll defaults
const (
	DefaultPollTimeout  = 30 * time.Second
	DefaultPollBackoff  = 3 * time.Second
	StartupNoticeFormat = "✅ Bot started. Webhook set: %s"
	PollingNotice       = "✅ Bot started. Polling for updates."
)

// RegisterWebhook sets the webhook, retrying with a linear backoff of
// delay × attempt. Pending updates are dropped.
func RegisterWebhook(ctx context.Context, client *Client, url string, attempts int, delay time.Duration) error {
	logger := xlog.WithComponent("telegram.webhook")
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = client.SetWebhook(ctx, url, true)
		if lastErr == nil {
			logger.Info().Int("attempt", attempt).Msg("webhook set")
			return nil
		}
		logger.Warn().Err(lastErr).Int("attempt", attempt).Int("attempts", attempts).Msg("set webhook failed")
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, delay*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("set webhook after %d attempts: %w", attempts, lastErr)
}

// Poller feeds updates from getUpdates into a handler
type Poller struct {
	client  *Client
	updates UpdateHandler
	timeout time.Duration
	backoff time.Duration
	logger  zerolog.Logger
}

// NewPoller creates a long-poll loop with the default timeout and backoff
func NewPoller(client *Client, updates UpdateHandler) *Poller {
	return &Poller{
		client:  client,
		updates: updates,
		timeout: DefaultPollTimeout,
		backoff: DefaultPollBackoff,
		logger:  xlog.WithComponent("telegram.poller"),
	}
}

// SetTimeouts overrides the long-poll timeout and the backoff after errors
func (p *Poller) SetTimeouts(timeout, backoff time.Duration) {
	p.timeout = timeout
	p.backoff = backoff
}

// Run polls until ctx ends. A webhook left by an earlier deployment would
// make getUpdates fail, so it is removed first.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.client.DeleteWebhook(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("delete webhook before polling failed")
	}

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, next, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Warn().Err(err).Msg("get updates failed")
			if err := sleep(ctx, p.backoff); err != nil {
				return nil
			}
			continue
		}
		offset = next
		for _, u := range updates {
			p.updates.HandleUpdate(u)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
