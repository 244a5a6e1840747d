package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseNetwork(t *testing.T) {
	tests := []struct {
		token   string
		want    Network
		wantErr bool
	}{
		{token: "ethereum", want: NetworkEthereum},
		{token: "Ethereum", want: NetworkEthereum},
		{token: " SOLANA ", want: NetworkSolana},
		{token: "Base", want: NetworkBase},
		{token: "optimism", want: NetworkOptimism},
		{token: "Arbitrum", want: NetworkArbitrum},
		{token: "dogecoin", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseNetwork(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedNetwork) {
					t.Fatalf("expected ErrUnsupportedNetwork, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidAddress(t *testing.T) {
	evm := MustChain(NetworkEthereum)
	sol := MustChain(NetworkSolana)

	tests := []struct {
		name    string
		chain   ChainInfo
		address string
		want    bool
	}{
		{name: "valid evm", chain: evm, address: "0x52908400098527886E0F7030069857D2E4169EE7", want: true},
		{name: "evm with surrounding space", chain: evm, address: " 0x52908400098527886E0F7030069857D2E4169EE7 ", want: true},
		{name: "evm too short", chain: evm, address: "0x5290840009852788", want: false},
		{name: "evm missing prefix", chain: evm, address: "52908400098527886E0F7030069857D2E4169EE7", want: false},
		{name: "evm non-hex", chain: evm, address: "0xZZ908400098527886E0F7030069857D2E4169EE7", want: false},
		{name: "valid solana", chain: sol, address: "4Nd1mYQtm6Z8SpR1yJ6rYkXh5dZv8fGxq3mJbWUPkNfT", want: true},
		{name: "solana excluded characters", chain: sol, address: "0OIl1mYQtm6Z8SpR1yJ6rYkXh5dZv8fGxq3mJbWUPkNf", want: false},
		{name: "solana too short", chain: sol, address: "4Nd1mYQtm6Z8", want: false},
		{name: "evm address on solana", chain: sol, address: "0x52908400098527886E0F7030069857D2E4169EE7", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chain.ValidAddress(tt.address); got != tt.want {
				t.Fatalf("ValidAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

func TestSmallestUnitsRoundTrip(t *testing.T) {
	eth := MustChain(NetworkEthereum)
	sol := MustChain(NetworkSolana)

	if got := eth.SmallestUnits(decimal.RequireFromString("0.004")); got.String() != "4000000000000000" {
		t.Fatalf("expected 0.004 ETH in wei, got %s", got)
	}
	if got := sol.SmallestUnits(decimal.RequireFromString("1.5")); got.String() != "1500000000" {
		t.Fatalf("expected 1.5 SOL in lamports, got %s", got)
	}

	// Sub-smallest-unit remainders are truncated, never rounded up.
	if got := sol.SmallestUnits(decimal.RequireFromString("0.0000000019")); got.String() != "1" {
		t.Fatalf("expected truncation to 1 lamport, got %s", got)
	}

	units := decimal.RequireFromString("4000000000000000")
	if got := eth.FromSmallestUnits(units); !got.Equal(decimal.RequireFromString("0.004")) {
		t.Fatalf("expected 0.004 ETH back from wei, got %s", got)
	}
}

func TestExplorerLink(t *testing.T) {
	eth := MustChain(NetworkEthereum)
	if got := eth.ExplorerLink("0xabc"); got != "https://etherscan.io/tx/0xabc" {
		t.Fatalf("unexpected explorer link: %q", got)
	}
	if got := eth.ExplorerLink(""); got != "" {
		t.Fatalf("empty tx ref must yield no link, got %q", got)
	}
}

func TestChainRejectsUnknownNetwork(t *testing.T) {
	if _, err := Chain(Network("dogecoin")); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Fatalf("expected ErrUnsupportedNetwork, got %v", err)
	}
}
