package chainrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ethereum/balance/0xabc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-gateway-key") != "gkey" {
			t.Errorf("missing gateway key header")
		}
		w.Write([]byte(`{"balance": "1000000000000000000"}`))
	}))
	defer server.Close()

	client := NewClient("ethereum", server.URL, "gkey")
	balance, err := client.Balance(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("Balance returned error: %v", err)
	}
	if balance.String() != "1000000000000000000" {
		t.Fatalf("unexpected balance %s", balance)
	}
}

func TestBalanceUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient("ethereum", server.URL, "gkey")
	if _, err := client.Balance(context.Background(), "0xabc"); err == nil {
		t.Fatal("expected an error for a failed balance query")
	}
}

func TestSubmitNativeTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/solana/transfers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode transfer request: %v", err)
		}
		if req["from"] != "solSender" || req["to"] != "solRecipient" || req["amount"] != "13333333" {
			t.Errorf("unexpected transfer request: %v", req)
		}
		if req["signing_key"] != "skey" {
			t.Errorf("missing signing key in request")
		}
		w.Write([]byte(`{"tx_ref": "5igsig"}`))
	}))
	defer server.Close()

	client := NewClient("solana", server.URL, "gkey")
	txRef, err := client.SubmitNativeTransfer(context.Background(), "solSender", "solRecipient", decimal.RequireFromString("13333333"), "skey")
	if err != nil {
		t.Fatalf("SubmitNativeTransfer returned error: %v", err)
	}
	if txRef != "5igsig" {
		t.Fatalf("unexpected tx ref %q", txRef)
	}
}

func TestSubmitNativeTransferRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": "insufficient funds for gas"}`))
	}))
	defer server.Close()

	client := NewClient("ethereum", server.URL, "gkey")
	_, err := client.SubmitNativeTransfer(context.Background(), "0xa", "0xb", decimal.NewFromInt(1), "skey")

	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected *SubmitError, got %v", err)
	}
	if submitErr.Reason != "insufficient funds for gas" {
		t.Fatalf("unexpected rejection reason %q", submitErr.Reason)
	}
}

func TestSubmitNativeTransferUnparsableErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`gateway exploded`))
	}))
	defer server.Close()

	client := NewClient("ethereum", server.URL, "gkey")
	_, err := client.SubmitNativeTransfer(context.Background(), "0xa", "0xb", decimal.NewFromInt(1), "skey")

	var submitErr *SubmitError
	if err == nil || errors.As(err, &submitErr) {
		t.Fatalf("an unparsable error body must not produce a SubmitError, got %v", err)
	}
}
