/**
 * @description
 * This file defines the value objects exchanged between the conversation engine
 * and the transfer orchestrator: the fully-resolved transfer intent, the terminal
 * outcome, and the failure taxonomy used to classify unsuccessful runs.
 *
 * @notes
 * - `TransferIntent` is constructed once per attempt and never mutated.
 * - `TransferOutcome` is immutable once produced; exactly one is produced per
 *   orchestration run.
 * - Failure kinds matter to the user: an insufficient-balance rejection, a
 *   gateway rejection at submission time (fees), and a completion timeout each
 *   call for different wording and different follow-up actions.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletCredential carries one network family's custody material: the funded
// address plus the opaque signing handle the custody service issued for it.
type WalletCredential struct {
	Address    string
	SigningKey string // opaque; passed through to the gateway, never logged
}

// TransferIntent is the validated, fully-resolved input to the orchestrator.
type TransferIntent struct {
	ID               uuid.UUID
	UserID           UserID
	Flow             FlowKind
	Source           ChainInfo
	Destination      ChainInfo // bridge flow only
	RecipientAddress string    // delivery address; destination network for a bridge
	AmountUSD        decimal.Decimal
	CreatedAt        time.Time
}

// Bridge reports whether the intent crosses networks.
func (i TransferIntent) Bridge() bool { return i.Flow == FlowBridge }

// FailureKind classifies why an orchestration run did not succeed.
type FailureKind string

const (
	FailureCredentialResolution FailureKind = "credential_resolution"
	FailurePriceUnavailable     FailureKind = "price_unavailable"
	FailureBalanceUnavailable   FailureKind = "balance_unavailable"
	FailureInsufficientBalance  FailureKind = "insufficient_balance"
	FailureRouterRejected       FailureKind = "router_rejected"
	FailureSubmissionRejected   FailureKind = "submission_rejected"
	FailureCompletionTimeout    FailureKind = "completion_timeout"
	FailureInternal             FailureKind = "internal"
)

// TransferOutcome is the terminal result of one orchestration run.
type TransferOutcome struct {
	IntentID     uuid.UUID
	Success      bool
	NativeAmount decimal.Decimal
	AssetSymbol  string
	TxRef        string // source-side transaction reference
	DestTxRef    string // destination-side reference when the bridge reports one
	ExplorerLink string
	FailureKind  FailureKind
	Reason       string // human-readable; empty on success
	CompletedAt  time.Time
}

// SuccessOutcome builds the terminal record for a settled transfer.
func SuccessOutcome(intent TransferIntent, nativeAmount decimal.Decimal, txRef, destTxRef string) TransferOutcome {
	return TransferOutcome{
		IntentID:     intent.ID,
		Success:      true,
		NativeAmount: nativeAmount,
		AssetSymbol:  intent.Source.AssetSymbol,
		TxRef:        txRef,
		DestTxRef:    destTxRef,
		ExplorerLink: intent.Source.ExplorerLink(txRef),
		CompletedAt:  time.Now().UTC(),
	}
}

// FailureOutcome builds the terminal record for an unsuccessful run.
func FailureOutcome(intent TransferIntent, kind FailureKind, reason string) TransferOutcome {
	return TransferOutcome{
		IntentID:    intent.ID,
		AssetSymbol: intent.Source.AssetSymbol,
		FailureKind: kind,
		Reason:      reason,
		CompletedAt: time.Now().UTC(),
	}
}
