/**
 * @description
 * This package provides a client for the custody service that holds per-user
 * wallets. It encapsulates the authenticated HTTP calls for resolving a user's
 * per-network wallets and for provisioning a wallet when the user does not have
 * one yet.
 *
 * @dependencies
 * - context, encoding/json, fmt, io, net/http, time: Standard Go libraries.
 */
package walletclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrWalletNotFound is returned when the custody service has no wallets for the
// user. Callers use it to offer wallet creation instead of reporting a fault.
var ErrWalletNotFound = errors.New("wallet not found")

// Client is a client for the custody service API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new custody service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Wallet is one network family's custody record.
type Wallet struct {
	Address    string `json:"address"`
	SigningKey string `json:"signing_key"`
}

// UserWallets is the custody service's per-user wallet set. One EVM wallet
// covers every EVM network; Solana has its own keypair.
type UserWallets struct {
	EVMWallet    Wallet `json:"evm_wallet"`
	SolanaWallet Wallet `json:"solana_wallet"`
}

// ErrorResponse represents an error payload from the custody service.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetWallets resolves the wallets held for a user identity.
func (c *Client) GetWallets(ctx context.Context, userID string) (*UserWallets, error) {
	url := c.BaseURL + "/api/refuel/wallet/" + userID

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-custody-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute wallet request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrWalletNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Error == "" {
			log.Printf("level=warn component=wallet_client op=get_wallets status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return nil, fmt.Errorf("custody service error (status %d)", resp.StatusCode)
		}
		return nil, fmt.Errorf("custody service error: %s", errResp.Error)
	}

	var wallets UserWallets
	if err := json.Unmarshal(bodyBytes, &wallets); err != nil {
		return nil, fmt.Errorf("failed to decode wallet response: %w", err)
	}
	return &wallets, nil
}

type createWalletRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"` // "evm" or "solana"
}

type createWalletResponse struct {
	Address string `json:"address"`
}

// CreateWallet provisions a wallet of the given kind for a user and returns its
// funded address.
func (c *Client) CreateWallet(ctx context.Context, userID, kind string) (string, error) {
	payload, err := json.Marshal(createWalletRequest{UserID: userID, Kind: kind})
	if err != nil {
		return "", fmt.Errorf("failed to marshal create-wallet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/refuel/wallet/"+kind, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create create-wallet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-custody-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute create-wallet request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read create-wallet response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Error == "" {
			log.Printf("level=warn component=wallet_client op=create_wallet status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return "", fmt.Errorf("custody service error (status %d)", resp.StatusCode)
		}
		return "", fmt.Errorf("custody service error: %s", errResp.Error)
	}

	var created createWalletResponse
	if err := json.Unmarshal(bodyBytes, &created); err != nil {
		return "", fmt.Errorf("failed to decode create-wallet response: %w", err)
	}
	return created.Address, nil
}
