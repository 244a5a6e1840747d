/**
 * @description
 * This package provides the client for the bridge router: the external routing
 * service that quotes, validates, and executes cross-network transfers. The
 * router's internals (route discovery, relaying) are opaque; this client exposes
 * only the quote / initiate / status contract the orchestrator needs.
 *
 * @notes
 * - A rejected quote carries the router's own reason and is distinguishable
 *   (via *QuoteRejectedError) from transport failures, because the two are
 *   surfaced to the user very differently.
 * - Settlement is detected by the caller polling Status with the receiver's
 *   address; the router reports per-transfer state transitions.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: native-denominated amounts.
 */
package routerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Transfer states reported by the router.
const (
	StatusPending = "pending"
	StatusSettled = "settled"
	StatusFailed  = "failed"
)

// QuoteRejectedError is the router declining to route a transfer (amount below
// route minimum, no liquidity, unsupported pair) with its stated reason.
type QuoteRejectedError struct {
	Reason string `json:"error"`
}

func (e *QuoteRejectedError) Error() string {
	if e.Reason == "" {
		return "quote rejected by router"
	}
	return e.Reason
}

// Client is a client for the bridge router API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new bridge router client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Quote is a validated route estimate for one transfer.
type Quote struct {
	QuoteID           string `json:"quote_id"`
	SourceChain       string `json:"source_chain"`
	DestinationChain  string `json:"destination_chain"`
	AmountIn          string `json:"amount_in"`           // native units on source
	ExpectedAmountOut string `json:"expected_amount_out"` // native units on destination
	Route             string `json:"route"`
}

// Receipt identifies one initiated bridge transfer.
type Receipt struct {
	TransferID  string `json:"transfer_id"`
	SourceTxRef string `json:"source_tx_ref"`
}

// TransferStatus is the router's view of an in-flight transfer.
type TransferStatus struct {
	Status    string `json:"status"` // pending | settled | failed
	DestTxRef string `json:"dest_tx_ref,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type quoteRequest struct {
	SourceChain      string `json:"source_chain"`
	DestinationChain string `json:"destination_chain"`
	Amount           string `json:"amount"` // native units on source
}

// RequestQuote asks the router to validate and price a transfer. A routing
// rejection is returned as *QuoteRejectedError.
func (c *Client) RequestQuote(ctx context.Context, sourceChain, destinationChain string, nativeAmount decimal.Decimal) (*Quote, error) {
	payload, err := json.Marshal(quoteRequest{
		SourceChain:      sourceChain,
		DestinationChain: destinationChain,
		Amount:           nativeAmount.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quote request: %w", err)
	}

	bodyBytes, status, err := c.do(ctx, "POST", "/v1/quotes", payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		var rejection QuoteRejectedError
		if jsonErr := json.Unmarshal(bodyBytes, &rejection); jsonErr == nil && rejection.Reason != "" {
			log.Printf("level=info component=router_client op=quote status=%d reason=%q", status, rejection.Reason)
			return nil, &rejection
		}
		return nil, fmt.Errorf("router rejected quote (status %d)", status)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("router error (status %d)", status)
	}

	var quote Quote
	if err := json.Unmarshal(bodyBytes, &quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	return &quote, nil
}

type initiateRequest struct {
	QuoteID         string `json:"quote_id"`
	SenderAddress   string `json:"sender_address"`
	SenderKey       string `json:"sender_signing_key"`
	ReceiverAddress string `json:"receiver_address"`
}

// Initiate executes a quoted transfer on the source chain and returns its receipt.
func (c *Client) Initiate(ctx context.Context, quote *Quote, senderAddress, senderKey, receiverAddress string) (*Receipt, error) {
	payload, err := json.Marshal(initiateRequest{
		QuoteID:         quote.QuoteID,
		SenderAddress:   senderAddress,
		SenderKey:       senderKey,
		ReceiverAddress: receiverAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initiate request: %w", err)
	}

	bodyBytes, status, err := c.do(ctx, "POST", "/v1/transfers", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		var rejection QuoteRejectedError
		if jsonErr := json.Unmarshal(bodyBytes, &rejection); jsonErr == nil && rejection.Reason != "" {
			return nil, &rejection
		}
		return nil, fmt.Errorf("router error (status %d)", status)
	}

	var receipt Receipt
	if err := json.Unmarshal(bodyBytes, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode initiate response: %w", err)
	}
	return &receipt, nil
}

// Status reports the current state of an initiated transfer. The receiver
// address lets the router verify settlement on the destination chain.
func (c *Client) Status(ctx context.Context, receipt *Receipt, receiverAddress string) (*TransferStatus, error) {
	path := fmt.Sprintf("/v1/transfers/%s?receiver=%s", url.PathEscape(receipt.TransferID), url.QueryEscape(receiverAddress))
	bodyBytes, status, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("router error (status %d)", status)
	}

	var transferStatus TransferStatus
	if err := json.Unmarshal(bodyBytes, &transferStatus); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &transferStatus, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create router request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-router-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute router request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read router response: %w", err)
	}
	return bodyBytes, resp.StatusCode, nil
}
