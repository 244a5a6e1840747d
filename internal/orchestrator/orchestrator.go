/**
 * @description
 * This file contains the transfer orchestrator: the component that executes one
 * fully-resolved transfer intent to completion. It sequences credential
 * resolution, price lookup, amount conversion, balance verification, submission,
 * and — for bridge transfers — a bounded settlement poll, and converts every
 * failure along the way into exactly one terminal TransferOutcome.
 *
 * Key behaviors:
 * - Exactly one outcome per invocation; panics are recovered into a generic
 *   failure so nothing propagates to the conversation layer.
 * - A failed balance query aborts the run as "unable to verify balance". It is
 *   never treated as a zero balance.
 * - Submission is attempted at most once per intent; there are no retries beyond
 *   the settlement poll.
 * - A completion timeout is reported distinctly from a rejection: the transfer
 *   may still settle after the window closes.
 *
 * @dependencies
 * - internal/domain, internal/store: models and history ledger.
 * - pkg/chainrpc, pkg/routerclient, pkg/walletclient: collaborator error types.
 * - pkg/rabbitmq: outcome event publication.
 * - github.com/shopspring/decimal: exact amount arithmetic.
 */

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/domain"
	"github.com/refuelhq/bridge-service/internal/store"
	"github.com/refuelhq/bridge-service/pkg/chainrpc"
	"github.com/refuelhq/bridge-service/pkg/rabbitmq"
	"github.com/refuelhq/bridge-service/pkg/routerclient"
	"github.com/refuelhq/bridge-service/pkg/walletclient"
)

// Orchestrator executes transfer intents against the external ledgers.
type Orchestrator struct {
	wallets          WalletStore
	prices           PriceOracle
	gateways         map[domain.Network]LedgerGateway
	router           BridgeRouter
	history          Recorder           // optional; nil disables the ledger
	events           rabbitmq.Publisher // optional; nil disables events
	completionWindow time.Duration
	pollInterval     time.Duration
}

// New creates an orchestrator. history and events may be nil.
func New(
	wallets WalletStore,
	prices PriceOracle,
	gateways map[domain.Network]LedgerGateway,
	router BridgeRouter,
	history Recorder,
	events rabbitmq.Publisher,
	completionWindow time.Duration,
	pollInterval time.Duration,
) *Orchestrator {
	if completionWindow <= 0 {
		completionWindow = 15 * time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &Orchestrator{
		wallets:          wallets,
		prices:           prices,
		gateways:         gateways,
		router:           router,
		history:          history,
		events:           events,
		completionWindow: completionWindow,
		pollInterval:     pollInterval,
	}
}

// Execute runs one intent to its terminal outcome. It records the run in the
// history ledger and publishes the outcome event, both best-effort.
func (o *Orchestrator) Execute(ctx context.Context, intent domain.TransferIntent) domain.TransferOutcome {
	o.recordStart(ctx, intent)

	outcome := o.runPipeline(ctx, intent)

	o.recordOutcome(ctx, intent, outcome)
	o.publishOutcome(ctx, intent, outcome)
	return outcome
}

// runPipeline executes the ordered steps and recovers any panic into a generic
// failure outcome.
func (o *Orchestrator) runPipeline(ctx context.Context, intent domain.TransferIntent) (outcome domain.TransferOutcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("level=error component=orchestrator msg=\"panic recovered\" intent_id=%s panic=%v", intent.ID, r)
			outcome = domain.FailureOutcome(intent, domain.FailureInternal, "An unexpected error occurred while processing the transfer. Your funds were not moved twice; check your balance and history before retrying.")
		}
	}()

	// Step 1: resolve custody material.
	wallets, err := o.wallets.GetWallets(ctx, string(intent.UserID))
	if err != nil {
		if errors.Is(err, walletclient.ErrWalletNotFound) {
			return domain.FailureOutcome(intent, domain.FailureCredentialResolution, "No wallet is set up for your account yet. Create one from the wallet menu, fund it, and try again.")
		}
		log.Printf("level=warn component=orchestrator step=credentials intent_id=%s err=%v", intent.ID, err)
		return domain.FailureOutcome(intent, domain.FailureCredentialResolution, "Could not resolve your wallet credentials. Please try again later.")
	}
	sender := credentialFor(wallets, intent.Source)
	var receiver domain.WalletCredential
	if intent.Bridge() {
		receiver = credentialFor(wallets, intent.Destination)
	}

	// Step 2: live USD price for the source native asset.
	price, err := o.prices.USDPrice(ctx, intent.Source.PriceAssetID)
	if err != nil || price.Sign() <= 0 {
		log.Printf("level=warn component=orchestrator step=price intent_id=%s asset=%s err=%v", intent.ID, intent.Source.PriceAssetID, err)
		return domain.FailureOutcome(intent, domain.FailurePriceUnavailable,
			fmt.Sprintf("The live %s price is unavailable right now. Please try again in a moment.", intent.Source.AssetSymbol))
	}

	// Step 3: convert USD to native units at source precision.
	nativeAmount, err := ComputeNativeAmount(intent.AmountUSD, price, intent.Source.Decimals)
	if err != nil {
		return domain.FailureOutcome(intent, domain.FailurePriceUnavailable,
			fmt.Sprintf("The live %s price is unavailable right now. Please try again in a moment.", intent.Source.AssetSymbol))
	}
	requiredUnits := intent.Source.SmallestUnits(nativeAmount)

	gateway, ok := o.gateways[intent.Source.Network]
	if !ok {
		log.Printf("level=error component=orchestrator msg=\"no gateway configured\" network=%s", intent.Source.Network)
		return domain.FailureOutcome(intent, domain.FailureInternal, "This network is temporarily unavailable.")
	}

	// Step 4: strict balance verification. A query failure aborts the run; it is
	// never substituted with zero, which would produce a false insufficient-balance
	// rejection.
	balance, err := gateway.Balance(ctx, sender.Address)
	if err != nil {
		log.Printf("level=warn component=orchestrator step=balance intent_id=%s network=%s err=%v", intent.ID, intent.Source.Network, err)
		return domain.FailureOutcome(intent, domain.FailureBalanceUnavailable,
			fmt.Sprintf("Unable to verify your %s balance right now. The transfer was not attempted; please try again.", intent.Source.DisplayName))
	}
	if balance.LessThan(requiredUnits) {
		have := intent.Source.FromSmallestUnits(balance)
		return domain.FailureOutcome(intent, domain.FailureInsufficientBalance,
			fmt.Sprintf("Insufficient balance: you have %s %s but this transfer needs %s %s.",
				have.String(), intent.Source.AssetSymbol, nativeAmount.String(), intent.Source.AssetSymbol))
	}

	// Step 5: submit and confirm.
	if intent.Bridge() {
		return o.executeBridge(ctx, intent, sender, receiver, nativeAmount)
	}
	return o.executeSameChain(ctx, intent, gateway, sender, nativeAmount, requiredUnits)
}

// executeSameChain performs a native transfer on the source network and waits
// for the gateway's confirmation signal.
func (o *Orchestrator) executeSameChain(
	ctx context.Context,
	intent domain.TransferIntent,
	gateway LedgerGateway,
	sender domain.WalletCredential,
	nativeAmount decimal.Decimal,
	units decimal.Decimal,
) domain.TransferOutcome {
	txRef, err := gateway.SubmitNativeTransfer(ctx, sender.Address, intent.RecipientAddress, units, sender.SigningKey)
	if err != nil {
		var submitErr *chainrpc.SubmitError
		if errors.As(err, &submitErr) {
			// Gateway-level rejection: can include insufficient funds at execution
			// time despite the pre-check, because fees are deducted on submission.
			return domain.FailureOutcome(intent, domain.FailureSubmissionRejected,
				fmt.Sprintf("The %s network rejected the transfer: %s", intent.Source.DisplayName, submitErr.Reason))
		}
		log.Printf("level=warn component=orchestrator step=submit intent_id=%s err=%v", intent.ID, err)
		return domain.FailureOutcome(intent, domain.FailureSubmissionRejected,
			fmt.Sprintf("The transfer could not be submitted to %s. Please try again.", intent.Source.DisplayName))
	}
	return domain.SuccessOutcome(intent, nativeAmount, txRef, "")
}

// executeBridge quotes, initiates, and then polls the router for settlement on
// the destination chain within the completion window.
func (o *Orchestrator) executeBridge(
	ctx context.Context,
	intent domain.TransferIntent,
	sender domain.WalletCredential,
	receiver domain.WalletCredential,
	nativeAmount decimal.Decimal,
) domain.TransferOutcome {
	quote, err := o.router.RequestQuote(ctx, string(intent.Source.Network), string(intent.Destination.Network), nativeAmount)
	if err != nil {
		var rejection *routerclient.QuoteRejectedError
		if errors.As(err, &rejection) {
			return domain.FailureOutcome(intent, domain.FailureRouterRejected,
				fmt.Sprintf("The bridge router declined this transfer: %s", rejection.Reason))
		}
		log.Printf("level=warn component=orchestrator step=quote intent_id=%s err=%v", intent.ID, err)
		return domain.FailureOutcome(intent, domain.FailureRouterRejected,
			"The bridge router is unavailable right now. The transfer was not attempted; please try again.")
	}

	// Funds are delivered to the address collected during the conversation; the
	// user's own destination-chain custody is still used to verify settlement.
	receiverAddress := intent.RecipientAddress
	if receiverAddress == "" {
		receiverAddress = receiver.Address
	}

	receipt, err := o.router.Initiate(ctx, quote, sender.Address, sender.SigningKey, receiverAddress)
	if err != nil {
		var rejection *routerclient.QuoteRejectedError
		if errors.As(err, &rejection) {
			return domain.FailureOutcome(intent, domain.FailureSubmissionRejected,
				fmt.Sprintf("The bridge transfer was rejected: %s", rejection.Reason))
		}
		log.Printf("level=warn component=orchestrator step=initiate intent_id=%s err=%v", intent.ID, err)
		return domain.FailureOutcome(intent, domain.FailureSubmissionRejected,
			"The bridge transfer could not be initiated. Please try again.")
	}

	return o.awaitSettlement(ctx, intent, receiver, receipt, nativeAmount)
}

// awaitSettlement polls the router until the destination chain confirms the
// transfer, the completion window elapses, or the context is cancelled.
func (o *Orchestrator) awaitSettlement(
	ctx context.Context,
	intent domain.TransferIntent,
	receiver domain.WalletCredential,
	receipt *routerclient.Receipt,
	nativeAmount decimal.Decimal,
) domain.TransferOutcome {
	timeoutOutcome := func() domain.TransferOutcome {
		outcome := domain.FailureOutcome(intent, domain.FailureCompletionTimeout,
			fmt.Sprintf("The bridge transfer was submitted but not confirmed on %s within %s. It may still settle — check your %s balance before retrying.",
				intent.Destination.DisplayName, o.completionWindow, intent.Destination.DisplayName))
		outcome.TxRef = receipt.SourceTxRef
		outcome.ExplorerLink = intent.Source.ExplorerLink(receipt.SourceTxRef)
		return outcome
	}

	deadline := time.NewTimer(o.completionWindow)
	defer deadline.Stop()
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("level=warn component=orchestrator step=await intent_id=%s msg=\"context cancelled during settlement poll\"", intent.ID)
			return timeoutOutcome()
		case <-deadline.C:
			return timeoutOutcome()
		case <-ticker.C:
			status, err := o.router.Status(ctx, receipt, receiver.Address)
			if err != nil {
				// Transient status failures do not abort the poll; the deadline bounds it.
				log.Printf("level=warn component=orchestrator step=await intent_id=%s err=%v", intent.ID, err)
				continue
			}
			switch status.Status {
			case routerclient.StatusSettled:
				return domain.SuccessOutcome(intent, nativeAmount, receipt.SourceTxRef, status.DestTxRef)
			case routerclient.StatusFailed:
				reason := status.Reason
				if reason == "" {
					reason = "the router reported the transfer as failed"
				}
				return domain.FailureOutcome(intent, domain.FailureSubmissionRejected,
					fmt.Sprintf("The bridge transfer failed after submission: %s", reason))
			}
		}
	}
}

// credentialFor picks the custody record matching a network's address family.
func credentialFor(wallets *walletclient.UserWallets, chain domain.ChainInfo) domain.WalletCredential {
	if chain.AddressKind == domain.AddressKindSolana {
		return domain.WalletCredential{Address: wallets.SolanaWallet.Address, SigningKey: wallets.SolanaWallet.SigningKey}
	}
	return domain.WalletCredential{Address: wallets.EVMWallet.Address, SigningKey: wallets.EVMWallet.SigningKey}
}

func (o *Orchestrator) recordStart(ctx context.Context, intent domain.TransferIntent) {
	if o.history == nil {
		return
	}
	record := store.NewTransferRecord(intent)
	if err := o.history.CreateTransfer(ctx, &record); err != nil {
		log.Printf("level=warn component=orchestrator msg=\"history record failed\" intent_id=%s err=%v", intent.ID, err)
	}
}

func (o *Orchestrator) recordOutcome(ctx context.Context, intent domain.TransferIntent, outcome domain.TransferOutcome) {
	if o.history == nil {
		return
	}
	if err := o.history.FinalizeTransfer(ctx, store.NewFinalizeTransferParams(outcome)); err != nil {
		log.Printf("level=warn component=orchestrator msg=\"history finalize failed\" intent_id=%s err=%v", intent.ID, err)
	}
}

func (o *Orchestrator) publishOutcome(ctx context.Context, intent domain.TransferIntent, outcome domain.TransferOutcome) {
	if o.events == nil {
		return
	}
	event := rabbitmq.TransferOutcomeEvent{
		IntentID:    intent.ID,
		UserID:      string(intent.UserID),
		Flow:        string(intent.Flow),
		SourceChain: string(intent.Source.Network),
		AmountUSD:   intent.AmountUSD.String(),
		AssetSymbol: intent.Source.AssetSymbol,
		Success:     outcome.Success,
		FailureKind: string(outcome.FailureKind),
		Reason:      outcome.Reason,
		TxRef:       outcome.TxRef,
		DestTxRef:   outcome.DestTxRef,
		Timestamp:   outcome.CompletedAt,
	}
	if intent.Bridge() {
		event.DestinationChain = string(intent.Destination.Network)
	}
	if outcome.Success {
		event.NativeAmount = outcome.NativeAmount.String()
	}
	if err := o.events.PublishTransferOutcome(ctx, event); err != nil {
		log.Printf("level=warn component=orchestrator msg=\"outcome event publish failed\" intent_id=%s err=%v", intent.ID, err)
	}
}
