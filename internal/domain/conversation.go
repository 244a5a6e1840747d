/**
 * @description
 * This file defines the per-user conversation state consumed and mutated by the
 * conversation engine. One record exists per user identity; it is created lazily
 * on first interaction and reset to the idle state after a terminal outcome or an
 * explicit cancellation.
 *
 * @notes
 * - Bridge and same-chain transfer flows share one state shape, distinguished by
 *   `FlowKind`. The transfer flow simply never visits AwaitingDestinationChain.
 * - Starting a new flow replaces the record wholesale so no field from a previous
 *   flow can leak into the next one.
 */

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserID is the opaque stable identifier of a conversing user (e.g. the chat
// platform's numeric user id rendered as a string). It is the sole session key.
type UserID string

// Stage enumerates the conversation state machine's stages.
type Stage string

const (
	StageIdle                     Stage = "idle"
	StageAwaitingSourceChain      Stage = "awaiting_source_chain"
	StageAwaitingDestinationChain Stage = "awaiting_destination_chain"
	StageAwaitingAmount           Stage = "awaiting_amount"
	StageAwaitingAddress          Stage = "awaiting_address"
)

// FlowKind tags which flow a conversation is driving.
type FlowKind string

const (
	// FlowBridge moves value between two different networks.
	FlowBridge FlowKind = "bridge"
	// FlowTransfer moves value to another address on the same network.
	FlowTransfer FlowKind = "transfer"
)

// ConversationState is one user's in-progress flow. Zero value is a usable idle state.
type ConversationState struct {
	Stage            Stage
	Flow             FlowKind
	SourceChain      Network // set once a source has been selected
	DestinationChain Network // bridge flow only
	AmountUSD        decimal.Decimal
	AmountSet        bool // AmountUSD is meaningful only when true
	RecipientAddress string
	UpdatedAt        time.Time
}

// NewConversationState returns a fresh idle record.
func NewConversationState() ConversationState {
	return ConversationState{Stage: StageIdle, UpdatedAt: time.Now().UTC()}
}

// Idle reports whether no flow is in progress.
func (s ConversationState) Idle() bool {
	return s.Stage == StageIdle || s.Stage == ""
}
