/**
 * @description
 * This file contains the conversation engine: the finite-state machine that
 * interprets each inbound user event against that user's conversation state and
 * decides the next prompt or action. One machine drives both flows (bridge and
 * same-chain transfer), distinguished by the flow kind captured when the flow
 * begins; the transfer flow simply skips the destination-chain stage.
 *
 * Key behaviors:
 * - Exactly one outbound reply per accepted event; rejected events emit exactly
 *   one corrective reply and leave the state untouched; stale events (text while
 *   idle, chain clicks outside a selection stage) are ignored.
 * - Once an address is accepted the user's state is reset to idle BEFORE the
 *   orchestrator is invoked. Repeated events during the run start a fresh
 *   conversation instead of a duplicate submission; this reset is the system's
 *   concurrency control for in-flight runs. Events for one user are handled
 *   serially so the state read and the reset form an atomic step even under
 *   concurrent HTTP delivery.
 * - Orchestration runs on a background context detached from the inbound HTTP
 *   request; the terminal outcome reaches the user through the Notifier.
 *
 * @dependencies
 * - internal/domain, internal/session: models and per-user state.
 * - github.com/google/uuid: intent identifiers.
 * - github.com/shopspring/decimal: exact USD amount parsing.
 */

package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/domain"
	"github.com/refuelhq/bridge-service/internal/session"
)

// TransferExecutor runs one resolved intent to its terminal outcome.
type TransferExecutor interface {
	Execute(ctx context.Context, intent domain.TransferIntent) domain.TransferOutcome
}

// Notifier delivers an outbound message to a user outside the request/reply
// cycle (the messaging front-end's push surface).
type Notifier interface {
	Notify(ctx context.Context, userID domain.UserID, reply domain.Reply)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID domain.UserID, reply domain.Reply)

func (f NotifierFunc) Notify(ctx context.Context, userID domain.UserID, reply domain.Reply) {
	f(ctx, userID, reply)
}

// Engine is the per-user conversation state machine.
type Engine struct {
	sessions     session.Store
	executor     TransferExecutor
	notifier     Notifier
	minAmountUSD decimal.Decimal
	runTimeout   time.Duration // outer bound on one orchestration run

	mu        sync.Mutex
	userLocks map[domain.UserID]*sync.Mutex
}

// New creates a conversation engine. runTimeout bounds the background
// orchestration context and should exceed the bridge completion window.
func New(sessions session.Store, executor TransferExecutor, notifier Notifier, minAmountUSD decimal.Decimal, runTimeout time.Duration) *Engine {
	if runTimeout <= 0 {
		runTimeout = 20 * time.Minute
	}
	return &Engine{
		sessions:     sessions,
		executor:     executor,
		notifier:     notifier,
		minAmountUSD: minAmountUSD,
		runTimeout:   runTimeout,
		userLocks:    make(map[domain.UserID]*sync.Mutex),
	}
}

// userLock returns the mutex serializing event handling for one user.
func (e *Engine) userLock(userID domain.UserID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

// StateFor returns the user's current conversation state (diagnostics, tests).
func (e *Engine) StateFor(userID domain.UserID) domain.ConversationState {
	return e.sessions.Get(userID)
}

// HandleEvent applies one inbound event to the user's state and returns the
// single reply for this turn, or nil when the event is ignored. Events for the
// same user are serialized: the state read and the reset that follows an
// accepted address must be one atomic step, or two concurrently delivered
// address events would both dispatch the same submission.
func (e *Engine) HandleEvent(ctx context.Context, userID domain.UserID, event domain.Event) *domain.Reply {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state := e.sessions.Get(userID)

	switch event.Kind {
	case domain.EventBeginBridge:
		return e.beginFlow(userID, domain.FlowBridge)
	case domain.EventBeginTransfer:
		return e.beginFlow(userID, domain.FlowTransfer)
	case domain.EventCancel:
		return e.cancel(userID, state)
	case domain.EventSelectChain:
		return e.selectChain(userID, state, event.Chain)
	case domain.EventText:
		return e.text(ctx, userID, state, event.Text)
	default:
		log.Printf("level=warn component=engine msg=\"unknown event kind\" kind=%q", event.Kind)
		return nil
	}
}

// beginFlow starts (or restarts) a flow, discarding any partial state.
func (e *Engine) beginFlow(userID domain.UserID, flow domain.FlowKind) *domain.Reply {
	state := domain.NewConversationState()
	state.Flow = flow
	state.Stage = domain.StageAwaitingSourceChain
	e.sessions.Put(userID, state)

	prompt := "Select source chain:"
	if flow == domain.FlowTransfer {
		prompt = "Select the chain you want to transfer on:"
	}
	return &domain.Reply{Text: prompt, ChainOptions: chainOptions(nil)}
}

func (e *Engine) cancel(userID domain.UserID, state domain.ConversationState) *domain.Reply {
	if state.Idle() {
		return &domain.Reply{Text: "No transfer is currently in progress."}
	}
	e.sessions.Reset(userID)
	return &domain.Reply{Text: "Cancelled. Nothing was submitted."}
}

func (e *Engine) selectChain(userID domain.UserID, state domain.ConversationState, token string) *domain.Reply {
	switch state.Stage {
	case domain.StageAwaitingSourceChain:
		network, err := domain.ParseNetwork(token)
		if err != nil {
			return &domain.Reply{Text: "That chain is not supported. Pick one from the list.", ChainOptions: chainOptions(nil)}
		}
		state.SourceChain = network
		if state.Flow == domain.FlowBridge {
			state.Stage = domain.StageAwaitingDestinationChain
			state.UpdatedAt = time.Now().UTC()
			e.sessions.Put(userID, state)
			source := domain.MustChain(network)
			return &domain.Reply{
				Text:         fmt.Sprintf("Source: %s\nSelect destination chain:", source.DisplayName),
				ChainOptions: chainOptions(&network),
			}
		}
		state.Stage = domain.StageAwaitingAmount
		state.UpdatedAt = time.Now().UTC()
		e.sessions.Put(userID, state)
		return e.amountPrompt(state)

	case domain.StageAwaitingDestinationChain:
		network, err := domain.ParseNetwork(token)
		if err != nil {
			return &domain.Reply{Text: "That chain is not supported. Pick one from the list.", ChainOptions: chainOptions(&state.SourceChain)}
		}
		if network == state.SourceChain {
			return &domain.Reply{Text: "Destination must be different from the source chain.", ChainOptions: chainOptions(&state.SourceChain)}
		}
		state.DestinationChain = network
		state.Stage = domain.StageAwaitingAmount
		state.UpdatedAt = time.Now().UTC()
		e.sessions.Put(userID, state)
		return e.amountPrompt(state)

	default:
		// Stale keyboard click outside a selection stage; nothing to say.
		return nil
	}
}

func (e *Engine) amountPrompt(state domain.ConversationState) *domain.Reply {
	source := domain.MustChain(state.SourceChain)
	if state.Flow == domain.FlowBridge {
		destination := domain.MustChain(state.DestinationChain)
		return &domain.Reply{Text: fmt.Sprintf(
			"Source: %s\nDestination: %s\n\nBridging will take 1-3 minutes.\nEnter the amount in USD (minimum $%s):",
			source.DisplayName, destination.DisplayName, e.minAmountUSD.String())}
	}
	return &domain.Reply{Text: fmt.Sprintf(
		"Chain: %s\n\nEnter the amount in USD (minimum $%s):",
		source.DisplayName, e.minAmountUSD.String())}
}

func (e *Engine) text(ctx context.Context, userID domain.UserID, state domain.ConversationState, text string) *domain.Reply {
	switch state.Stage {
	case domain.StageAwaitingAmount:
		return e.amount(userID, state, text)
	case domain.StageAwaitingAddress:
		return e.address(ctx, userID, state, text)
	default:
		// Free text outside an input stage is not ours to answer.
		return nil
	}
}

func (e *Engine) amount(userID domain.UserID, state domain.ConversationState, text string) *domain.Reply {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || amount.Sign() <= 0 {
		return &domain.Reply{Text: "Please enter a valid positive number for the amount."}
	}
	if amount.LessThan(e.minAmountUSD) {
		return &domain.Reply{Text: fmt.Sprintf("Minimum amount is $%s.", e.minAmountUSD.String())}
	}

	state.AmountUSD = amount
	state.AmountSet = true
	state.Stage = domain.StageAwaitingAddress
	state.UpdatedAt = time.Now().UTC()
	e.sessions.Put(userID, state)

	target := e.addressNetwork(state)
	return &domain.Reply{Text: fmt.Sprintf("Enter the recipient address on %s:", domain.MustChain(target).DisplayName)}
}

func (e *Engine) address(ctx context.Context, userID domain.UserID, state domain.ConversationState, text string) *domain.Reply {
	target := domain.MustChain(e.addressNetwork(state))
	address := strings.TrimSpace(text)
	if !target.ValidAddress(address) {
		return &domain.Reply{Text: fmt.Sprintf("That does not look like a valid %s address. Please try again.", target.DisplayName)}
	}

	intent := e.buildIntent(userID, state, address)

	// Reset before invoking: a repeated event must start a fresh conversation,
	// never a second submission of this intent.
	e.sessions.Reset(userID)
	e.dispatch(userID, intent)

	return &domain.Reply{Text: "Processing your transfer. This will take 1-3 minutes..."}
}

// addressNetwork is the network whose address format the recipient must match:
// the destination for a bridge, the source for a same-chain transfer.
func (e *Engine) addressNetwork(state domain.ConversationState) domain.Network {
	if state.Flow == domain.FlowBridge {
		return state.DestinationChain
	}
	return state.SourceChain
}

func (e *Engine) buildIntent(userID domain.UserID, state domain.ConversationState, address string) domain.TransferIntent {
	intent := domain.TransferIntent{
		ID:               uuid.New(),
		UserID:           userID,
		Flow:             state.Flow,
		Source:           domain.MustChain(state.SourceChain),
		RecipientAddress: address,
		AmountUSD:        state.AmountUSD,
		CreatedAt:        time.Now().UTC(),
	}
	if state.Flow == domain.FlowBridge {
		intent.Destination = domain.MustChain(state.DestinationChain)
	}
	return intent
}

// dispatch runs the orchestration on a background context and pushes the
// terminal outcome to the user. Any fault becomes a generic failure message;
// the state is already reset, so the user is never left stuck mid-stage.
func (e *Engine) dispatch(userID domain.UserID, intent domain.TransferIntent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.runTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("level=error component=engine msg=\"orchestration panic\" intent_id=%s panic=%v", intent.ID, r)
				e.notify(ctx, userID, domain.Reply{Text: "❌ An unexpected error occurred while processing the transfer. Please check your balance and try again."})
			}
		}()

		outcome := e.executor.Execute(ctx, intent)
		e.notify(ctx, userID, formatOutcome(intent, outcome))
	}()
}

func (e *Engine) notify(ctx context.Context, userID domain.UserID, reply domain.Reply) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, userID, reply)
}

// chainOptions lists the selectable chain display names, excluding one network
// when a source has already been chosen.
func chainOptions(exclude *domain.Network) []string {
	options := make([]string, 0, len(domain.SupportedNetworks))
	for _, network := range domain.SupportedNetworks {
		if exclude != nil && network == *exclude {
			continue
		}
		options = append(options, domain.MustChain(network).DisplayName)
	}
	return options
}

// formatOutcome renders a terminal outcome as the user-facing reply.
func formatOutcome(intent domain.TransferIntent, outcome domain.TransferOutcome) domain.Reply {
	if !outcome.Success {
		return domain.Reply{Text: "❌ " + outcome.Reason}
	}

	var b strings.Builder
	b.WriteString("✅ Transfer completed successfully!\n\n")
	b.WriteString(fmt.Sprintf("From: %s\n", intent.Source.DisplayName))
	if intent.Bridge() {
		b.WriteString(fmt.Sprintf("To: %s\n", intent.Destination.DisplayName))
	} else {
		b.WriteString(fmt.Sprintf("To: %s\n", intent.RecipientAddress))
	}
	b.WriteString(fmt.Sprintf("Amount: $%s (%s %s)\n", intent.AmountUSD.String(), outcome.NativeAmount.String(), outcome.AssetSymbol))
	if outcome.TxRef != "" {
		b.WriteString(fmt.Sprintf("Transaction: %s\n", outcome.TxRef))
	}
	if outcome.ExplorerLink != "" {
		b.WriteString(outcome.ExplorerLink)
	}
	return domain.Reply{Text: strings.TrimRight(b.String(), "\n")}
}
