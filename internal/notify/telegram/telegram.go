// Package telegram sends bot event messages through the Telegram sendMessage
// API. Delivery is best effort: failures are logged and dropped, so a dead
// notification channel can never stall a trading cycle.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
)

const defaultAPIBase = "https://api.telegram.org"

type Client struct {
	apiBase string
	token   string
	chatID  string
	hc      *http.Client
}

var _ interfaces.Notifier = (*Client)(nil)

func New(token, chatID string) *Client {
	return &Client{
		apiBase: defaultAPIBase,
		token:   token,
		chatID:  chatID,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// NewWithBase is used by tests to point the client at a fake API server.
func NewWithBase(apiBase, token, chatID string) *Client {
	c := New(token, chatID)
	c.apiBase = strings.TrimRight(apiBase, "/")
	return c
}

// Enabled reports whether the client has credentials to send with.
func (c *Client) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

func (c *Client) Notify(ctx context.Context, text string) {
	if !c.Enabled() {
		logger.Debug(ctx, "Telegram disabled, dropping notification", "text", text)
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Warn(ctx, "Telegram request build failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.hc.Do(req)
	if err != nil {
		logger.Warn(ctx, "Telegram send failed", "error", err)
		return
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		logger.Warn(ctx, "Telegram send rejected", "status", res.StatusCode)
	}
}
