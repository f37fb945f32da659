// Package gateway connects the agent to the messaging gateway: an HTTP
// client for outbound replies and media, and a websocket receiver for
// inbound user messages.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aviv90/tasker-agent/internal/httpkit"
)

// Config holds the gateway HTTP API settings. The websocket endpoint
// for inbound messages is configured on [NewReceiver] separately.
type Config struct {
	BaseURL    string
	InstanceID string
	APIToken   string
}

// Client sends messages and media through the gateway HTTP API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: httpkit.NewClient(httpkit.WithTimeout(30 * time.Second)),
	}
}

// SendMessage delivers a text reply to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	return c.post(ctx, "sendMessage", map[string]any{
		"chatId":  chatID,
		"message": text,
	})
}

// SendFileByURL delivers a media asset to a chat by its public URL.
func (c *Client) SendFileByURL(ctx context.Context, chatID, fileURL, caption string) error {
	return c.post(ctx, "sendFileByUrl", map[string]any{
		"chatId":  chatID,
		"urlFile": fileURL,
		"caption": caption,
	})
}

func (c *Client) post(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("gateway: encode %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/waInstance%s/%s/%s", c.cfg.BaseURL, c.cfg.InstanceID, method, c.cfg.APIToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: build %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", method, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := httpkit.ReadErrorBody(resp.Body, 512)
		return fmt.Errorf("gateway: %s: HTTP %d: %s", method, resp.StatusCode, msg)
	}
	httpkit.DrainAndClose(resp.Body, 4096)
	return nil
}
