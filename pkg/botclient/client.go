/**
 * @description
 * This package provides a client for pushing outbound messages to the chat
 * front-end. The bridge service itself never talks to end users directly; it
 * posts replies and transfer outcome notifications to a callback endpoint
 * exposed by the front-end, which relays them to the user's chat.
 */
package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the chat front-end callback endpoint.
type Client struct {
	callbackURL string
	apiKey      string
	httpClient  *http.Client
}

// NewClient creates a new front-end push client.
func NewClient(callbackURL string, apiKey string) *Client {
	return &Client{
		callbackURL: strings.TrimRight(strings.TrimSpace(callbackURL), "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// PushMessageRequest defines the payload delivered to the front-end callback.
type PushMessageRequest struct {
	UserID       string   `json:"user_id"`
	Text         string   `json:"text"`
	ChainOptions []string `json:"chain_options,omitempty"`
}

// Push delivers a message to the given user via the front-end callback.
func (c *Client) Push(ctx context.Context, userID string, text string, chainOptions []string) error {
	if c.callbackURL == "" {
		return fmt.Errorf("front-end callback url is empty")
	}

	payload := PushMessageRequest{
		UserID:       userID,
		Text:         text,
		ChainOptions: chainOptions,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.callbackURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("X-Internal-API-Key", strings.TrimSpace(c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to front-end: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("front-end callback returned error status %d", resp.StatusCode)
	}

	return nil
}
