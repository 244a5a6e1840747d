/**
 * @description
 * This package provides a client for the USD price feed. The upstream API is a
 * coingecko-style "simple price" endpoint that maps asset identifiers to their
 * current USD quote.
 *
 * @notes
 * - A missing, zero, or negative quote is reported as ErrPriceUnavailable rather
 *   than returned as a value. Callers divide by this number; they must never see
 *   a zero.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 * - github.com/shopspring/decimal: exact decimal quotes.
 */
package priceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrPriceUnavailable is returned when the feed has no usable USD quote for an asset.
var ErrPriceUnavailable = errors.New("price unavailable")

// Client is a client for the price feed API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new price feed client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// USDPrice fetches the current USD quote for a price-feed asset id
// (e.g. "ethereum", "solana").
func (c *Client) USDPrice(ctx context.Context, assetID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.BaseURL, url.QueryEscape(assetID))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to execute price request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read price response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("level=warn component=price_client op=usd_price asset=%s status=%d", assetID, resp.StatusCode)
		return decimal.Zero, fmt.Errorf("%w: feed returned status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	// Response shape: {"ethereum": {"usd": 2511.37}}
	var quotes map[string]map[string]json.Number
	decoder := json.NewDecoder(bytes.NewReader(bodyBytes))
	decoder.UseNumber()
	if err := decoder.Decode(&quotes); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}

	quote, ok := quotes[assetID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no quote for %q", ErrPriceUnavailable, assetID)
	}
	raw, ok := quote["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no usd quote for %q", ErrPriceUnavailable, assetID)
	}

	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed quote %q", ErrPriceUnavailable, raw.String())
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive quote for %q", ErrPriceUnavailable, assetID)
	}
	return price, nil
}
