/**
 * @description
 * This file defines the supported blockchain networks and their static descriptors.
 * Each network the service can bridge between or transfer on is described by a
 * `ChainInfo` record that is loaded once at process start and never mutated.
 *
 * @notes
 * - The set of networks is a closed enumeration. Anything outside it is rejected
 *   at the conversation layer before any orchestration work begins.
 * - Native amounts are handled with `decimal.Decimal` rather than floats or int64:
 *   an 18-decimals asset expressed in its smallest unit overflows int64 at ~9 ETH.
 */

package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Network identifies one supported blockchain network.
type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkSolana   Network = "solana"
	NetworkBase     Network = "base"
	NetworkOptimism Network = "optimism"
	NetworkArbitrum Network = "arbitrum"
)

// AddressKind determines which address syntax a network uses.
type AddressKind string

const (
	AddressKindEVM    AddressKind = "evm"
	AddressKindSolana AddressKind = "solana"
)

// ErrUnsupportedNetwork is returned when a chain token does not name a supported network.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// SupportedNetworks lists every network the service knows about, in menu order.
var SupportedNetworks = []Network{
	NetworkEthereum,
	NetworkSolana,
	NetworkBase,
	NetworkOptimism,
	NetworkArbitrum,
}

// ParseNetwork resolves a user-supplied chain token to a supported Network.
// Matching is case-insensitive on both the enum value and the display name.
func ParseNetwork(token string) (Network, error) {
	normalized := strings.ToLower(strings.TrimSpace(token))
	for _, network := range SupportedNetworks {
		if normalized == string(network) || normalized == strings.ToLower(chainInfos[network].DisplayName) {
			return network, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, token)
}

// ChainInfo is the static descriptor for one supported network.
type ChainInfo struct {
	Network      Network
	DisplayName  string
	AssetSymbol  string // native asset ticker shown to users
	PriceAssetID string // identifier used by the price oracle
	Decimals     int32  // native asset precision (smallest-unit exponent)
	AddressKind  AddressKind
	ExplorerTx   string // prefix for transaction links
}

var chainInfos = map[Network]ChainInfo{
	NetworkEthereum: {
		Network:      NetworkEthereum,
		DisplayName:  "Ethereum",
		AssetSymbol:  "ETH",
		PriceAssetID: "ethereum",
		Decimals:     18,
		AddressKind:  AddressKindEVM,
		ExplorerTx:   "https://etherscan.io/tx/",
	},
	NetworkSolana: {
		Network:      NetworkSolana,
		DisplayName:  "Solana",
		AssetSymbol:  "SOL",
		PriceAssetID: "solana",
		Decimals:     9,
		AddressKind:  AddressKindSolana,
		ExplorerTx:   "https://solscan.io/tx/",
	},
	NetworkBase: {
		Network:      NetworkBase,
		DisplayName:  "Base",
		AssetSymbol:  "ETH",
		PriceAssetID: "ethereum",
		Decimals:     18,
		AddressKind:  AddressKindEVM,
		ExplorerTx:   "https://basescan.org/tx/",
	},
	NetworkOptimism: {
		Network:      NetworkOptimism,
		DisplayName:  "Optimism",
		AssetSymbol:  "ETH",
		PriceAssetID: "ethereum",
		Decimals:     18,
		AddressKind:  AddressKindEVM,
		ExplorerTx:   "https://optimistic.etherscan.io/tx/",
	},
	NetworkArbitrum: {
		Network:      NetworkArbitrum,
		DisplayName:  "Arbitrum",
		AssetSymbol:  "ETH",
		PriceAssetID: "ethereum",
		Decimals:     18,
		AddressKind:  AddressKindEVM,
		ExplorerTx:   "https://arbiscan.io/tx/",
	},
}

// Chain returns the static descriptor for a supported network.
func Chain(network Network) (ChainInfo, error) {
	info, ok := chainInfos[network]
	if !ok {
		return ChainInfo{}, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, network)
	}
	return info, nil
}

// MustChain is Chain for networks known to be supported (registry construction, tests).
func MustChain(network Network) ChainInfo {
	info, err := Chain(network)
	if err != nil {
		panic(err)
	}
	return info
}

var (
	evmAddressPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	solanaAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
)

// ValidAddress reports whether an address is syntactically valid for this network.
func (c ChainInfo) ValidAddress(address string) bool {
	trimmed := strings.TrimSpace(address)
	switch c.AddressKind {
	case AddressKindSolana:
		return solanaAddressPattern.MatchString(trimmed)
	default:
		return evmAddressPattern.MatchString(trimmed)
	}
}

// SmallestUnits converts a native-denominated amount into the network's
// smallest-unit integer representation (wei, lamports).
func (c ChainInfo) SmallestUnits(nativeAmount decimal.Decimal) decimal.Decimal {
	return nativeAmount.Shift(c.Decimals).Truncate(0)
}

// FromSmallestUnits converts a smallest-unit integer into native display units.
func (c ChainInfo) FromSmallestUnits(units decimal.Decimal) decimal.Decimal {
	return units.Shift(-c.Decimals)
}

// ExplorerLink builds the public explorer URL for a transaction reference.
func (c ChainInfo) ExplorerLink(txRef string) string {
	if txRef == "" || c.ExplorerTx == "" {
		return ""
	}
	return c.ExplorerTx + txRef
}
