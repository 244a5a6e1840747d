/**
 * @description
 * This file defines the `Repository` interface for the transfer history ledger
 * and the record types it persists. The ledger is the durable trail of every
 * orchestration run: one row per intent, created when processing starts and
 * finalized exactly once with the terminal outcome.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: transfer record identifiers.
 * - internal/domain: intents and outcomes.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/refuelhq/bridge-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	CreateTransfer(ctx context.Context, record *TransferRecord) error
	FinalizeTransfer(ctx context.Context, params FinalizeTransferParams) error
	FindTransferByID(ctx context.Context, id uuid.UUID) (*TransferRecord, error)
	ListTransfersByUser(ctx context.Context, userID string, limit int) ([]TransferRecord, error)
}

// TransferRecord is one row of the transfer history ledger.
type TransferRecord struct {
	ID               uuid.UUID  `json:"id"`
	UserID           string     `json:"user_id"`
	Flow             string     `json:"flow"`
	SourceChain      string     `json:"source_chain"`
	DestinationChain *string    `json:"destination_chain,omitempty"`
	RecipientAddress *string    `json:"recipient_address,omitempty"`
	AmountUSD        string     `json:"amount_usd"`
	NativeAmount     *string    `json:"native_amount,omitempty"`
	AssetSymbol      string     `json:"asset_symbol"`
	Status           string     `json:"status"` // 'processing', 'completed', 'failed'
	FailureKind      *string    `json:"failure_kind,omitempty"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	TxRef            *string    `json:"tx_ref,omitempty"`
	DestTxRef        *string    `json:"dest_tx_ref,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// FinalizeTransferParams carries the terminal outcome applied to a processing row.
type FinalizeTransferParams struct {
	ID            uuid.UUID
	Status        string
	NativeAmount  *string
	FailureKind   *string
	FailureReason *string
	TxRef         *string
	DestTxRef     *string
	CompletedAt   time.Time
}

// NewTransferRecord builds the initial processing row for an intent.
func NewTransferRecord(intent domain.TransferIntent) TransferRecord {
	record := TransferRecord{
		ID:          intent.ID,
		UserID:      string(intent.UserID),
		Flow:        string(intent.Flow),
		SourceChain: string(intent.Source.Network),
		AmountUSD:   intent.AmountUSD.String(),
		AssetSymbol: intent.Source.AssetSymbol,
		Status:      "processing",
		CreatedAt:   intent.CreatedAt,
	}
	if intent.Bridge() {
		destination := string(intent.Destination.Network)
		record.DestinationChain = &destination
	}
	if intent.RecipientAddress != "" {
		recipient := intent.RecipientAddress
		record.RecipientAddress = &recipient
	}
	return record
}

// NewFinalizeTransferParams maps a terminal outcome onto the ledger update.
func NewFinalizeTransferParams(outcome domain.TransferOutcome) FinalizeTransferParams {
	params := FinalizeTransferParams{
		ID:          outcome.IntentID,
		Status:      "failed",
		CompletedAt: outcome.CompletedAt,
	}
	if outcome.Success {
		params.Status = "completed"
		native := outcome.NativeAmount.String()
		params.NativeAmount = &native
	} else {
		kind := string(outcome.FailureKind)
		params.FailureKind = &kind
		if outcome.Reason != "" {
			reason := outcome.Reason
			params.FailureReason = &reason
		}
	}
	if outcome.TxRef != "" {
		txRef := outcome.TxRef
		params.TxRef = &txRef
	}
	if outcome.DestTxRef != "" {
		destTxRef := outcome.DestTxRef
		params.DestTxRef = &destTxRef
	}
	return params
}
