/**
 * @description
 * This file defines the inbound user events delivered by the messaging front-end
 * and the outbound replies the service emits. The conversation engine is written
 * against these types only, keeping it decoupled from whichever bot transport
 * delivers the events.
 */

package domain

// EventKind enumerates the inbound event types the engine understands.
type EventKind string

const (
	// EventBeginBridge starts (or restarts) a cross-network bridge flow.
	EventBeginBridge EventKind = "begin_bridge"
	// EventBeginTransfer starts (or restarts) a same-chain transfer flow.
	EventBeginTransfer EventKind = "begin_transfer"
	// EventSelectChain carries a chain menu selection.
	EventSelectChain EventKind = "select_chain"
	// EventText carries free-form text (amounts, addresses).
	EventText EventKind = "text"
	// EventCancel abandons the current flow.
	EventCancel EventKind = "cancel"
)

// Event is one inbound user action.
type Event struct {
	Kind  EventKind
	Chain string // EventSelectChain payload
	Text  string // EventText payload
}

// Reply is the single outbound message produced for an accepted or rejected
// event. ChainOptions, when present, are rendered by the front-end as a
// selection keyboard.
type Reply struct {
	Text         string   `json:"text"`
	ChainOptions []string `json:"chain_options,omitempty"`
}
