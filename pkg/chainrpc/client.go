/**
 * @description
 * This package provides the client for one network's ledger gateway: the node
 * proxy that answers balance queries and executes signed native transfers for a
 * single blockchain. One Client is constructed per supported network, each with
 * its own base URL.
 *
 * @notes
 * - Balances are smallest-unit integers (wei, lamports) carried as
 *   decimal.Decimal; int64 overflows for 18-decimals assets.
 * - SubmitNativeTransfer blocks until the gateway observes the network's own
 *   confirmation signal for the transaction, then returns its reference. A
 *   gateway rejection (fees, nonce, balance at execution time) surfaces as a
 *   *SubmitError carrying the gateway's normalized reason.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: smallest-unit integers.
 */
package chainrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a client for one network's ledger gateway API.
type Client struct {
	Network    string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a ledger gateway client for one network.
func NewClient(network, baseURL, apiKey string) *Client {
	return &Client{
		Network: network,
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			// Submission waits for a confirmation, which can take a while on
			// congested networks.
			Timeout: 120 * time.Second,
		},
	}
}

// SubmitError is a gateway-reported transfer rejection.
type SubmitError struct {
	Reason string `json:"error"`
}

func (e *SubmitError) Error() string {
	if e.Reason == "" {
		return "transfer rejected by ledger gateway"
	}
	return e.Reason
}

type balanceResponse struct {
	Balance string `json:"balance"` // smallest units, decimal string
}

// Balance returns the address's confirmed balance in smallest units.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/v1/%s/balance/%s", c.BaseURL, c.Network, address)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gateway-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to execute balance request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=chainrpc op=balance network=%s status=%d", c.Network, resp.StatusCode)
		return decimal.Zero, fmt.Errorf("ledger gateway error (status %d)", resp.StatusCode)
	}

	var parsed balanceResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode balance response: %w", err)
	}
	balance, err := decimal.NewFromString(parsed.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed balance %q: %w", parsed.Balance, err)
	}
	return balance, nil
}

type submitRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"` // smallest units, decimal string
	SigningKey string `json:"signing_key"`
}

type submitResponse struct {
	TxRef string `json:"tx_ref"`
}

// SubmitNativeTransfer executes a native value transfer and waits for the
// gateway's confirmation signal. Returns the transaction reference.
func (c *Client) SubmitNativeTransfer(ctx context.Context, from, to string, amount decimal.Decimal, signingKey string) (string, error) {
	payload, err := json.Marshal(submitRequest{
		From:       from,
		To:         to,
		Amount:     amount.String(),
		SigningKey: signingKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s/transfers", c.BaseURL, c.Network)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-gateway-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute transfer request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transfer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var submitErr SubmitError
		if err := json.Unmarshal(bodyBytes, &submitErr); err != nil || submitErr.Reason == "" {
			log.Printf("level=warn component=chainrpc op=submit network=%s status=%d msg=\"non-2xx response (unparsable error body)\"", c.Network, resp.StatusCode)
			return "", fmt.Errorf("ledger gateway error (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=chainrpc op=submit network=%s status=%d reason=%q", c.Network, resp.StatusCode, submitErr.Reason)
		return "", &submitErr
	}

	var submitted submitResponse
	if err := json.Unmarshal(bodyBytes, &submitted); err != nil {
		return "", fmt.Errorf("failed to decode transfer response: %w", err)
	}
	return submitted.TxRef, nil
}
