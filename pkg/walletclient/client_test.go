package walletclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetWallets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/refuel/wallet/user-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-custody-key") != "secret" {
			t.Errorf("missing custody key header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"evm_wallet": {"address": "0xabc", "signing_key": "evm-key"},
			"solana_wallet": {"address": "solAddr", "signing_key": "sol-key"}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	wallets, err := client.GetWallets(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetWallets returned error: %v", err)
	}
	if wallets.EVMWallet.Address != "0xabc" || wallets.EVMWallet.SigningKey != "evm-key" {
		t.Fatalf("unexpected evm wallet: %+v", wallets.EVMWallet)
	}
	if wallets.SolanaWallet.Address != "solAddr" {
		t.Fatalf("unexpected solana wallet: %+v", wallets.SolanaWallet)
	}
}

func TestGetWalletsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.GetWallets(context.Background(), "user-1")
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestGetWalletsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "custody store offline"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.GetWallets(context.Background(), "user-1")
	if err == nil || errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected a generic upstream error, got %v", err)
	}
}

func TestCreateWallet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/refuel/wallet/evm" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"address": "0xnew"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	address, err := client.CreateWallet(context.Background(), "user-1", "evm")
	if err != nil {
		t.Fatalf("CreateWallet returned error: %v", err)
	}
	if address != "0xnew" {
		t.Fatalf("unexpected address %q", address)
	}
}
