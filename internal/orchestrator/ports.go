/**
 * @description
 * This file defines the contracts the orchestrator requires from its external
 * collaborators: the custody service, the price feed, the per-network ledger
 * gateways, the bridge router, and the durable transfer history recorder. The
 * concrete implementations live in pkg/ and internal/store; tests substitute
 * hand-written stubs.
 */

package orchestrator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/store"
	"github.com/refuelhq/bridge-service/pkg/routerclient"
	"github.com/refuelhq/bridge-service/pkg/walletclient"
)

// WalletStore resolves a user identity to its per-network custody material.
type WalletStore interface {
	GetWallets(ctx context.Context, userID string) (*walletclient.UserWallets, error)
}

// PriceOracle supplies the current USD quote for a native asset.
type PriceOracle interface {
	USDPrice(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// LedgerGateway is one network's balance/submission surface. Balances and
// amounts are smallest-unit integers.
type LedgerGateway interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
	SubmitNativeTransfer(ctx context.Context, from, to string, amount decimal.Decimal, signingKey string) (string, error)
}

// BridgeRouter quotes and executes cross-network transfers.
type BridgeRouter interface {
	RequestQuote(ctx context.Context, sourceChain, destinationChain string, nativeAmount decimal.Decimal) (*routerclient.Quote, error)
	Initiate(ctx context.Context, quote *routerclient.Quote, senderAddress, senderKey, receiverAddress string) (*routerclient.Receipt, error)
	Status(ctx context.Context, receipt *routerclient.Receipt, receiverAddress string) (*routerclient.TransferStatus, error)
}

// Recorder persists the transfer history ledger. Persistence is best-effort:
// failures are logged by the orchestrator and never change the user's outcome.
type Recorder interface {
	CreateTransfer(ctx context.Context, record *store.TransferRecord) error
	FinalizeTransfer(ctx context.Context, params store.FinalizeTransferParams) error
}
