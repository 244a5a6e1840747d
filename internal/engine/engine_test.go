package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/refuelhq/bridge-service/internal/domain"
	"github.com/refuelhq/bridge-service/internal/session"
)

const (
	validEVMAddress    = "0x52908400098527886E0F7030069857D2E4169EE7"
	validSolanaAddress = "4Nd1mYQtm6Z8SpR1yJ6rYkXh5dZv8fGxq3mJbWUPkNfT"
)

type stubExecutor struct {
	mu      sync.Mutex
	intents []domain.TransferIntent
	outcome domain.TransferOutcome
	done    chan struct{}
}

func newStubExecutor(outcome domain.TransferOutcome) *stubExecutor {
	return &stubExecutor{outcome: outcome, done: make(chan struct{}, 8)}
}

func (s *stubExecutor) Execute(ctx context.Context, intent domain.TransferIntent) domain.TransferOutcome {
	s.mu.Lock()
	s.intents = append(s.intents, intent)
	s.mu.Unlock()
	s.done <- struct{}{}
	outcome := s.outcome
	outcome.IntentID = intent.ID
	return outcome
}

func (s *stubExecutor) calls() []domain.TransferIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TransferIntent, len(s.intents))
	copy(out, s.intents)
	return out
}

type captureNotifier struct {
	replies chan domain.Reply
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{replies: make(chan domain.Reply, 8)}
}

func (n *captureNotifier) Notify(ctx context.Context, userID domain.UserID, reply domain.Reply) {
	n.replies <- reply
}

func (n *captureNotifier) wait(t *testing.T) domain.Reply {
	t.Helper()
	select {
	case reply := <-n.replies:
		return reply
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound notification")
		return domain.Reply{}
	}
}

func newTestEngine(executor TransferExecutor, notifier Notifier) *Engine {
	return New(session.NewMemoryStore(), executor, notifier, decimal.NewFromInt(2), time.Minute)
}

func drive(t *testing.T, e *Engine, userID domain.UserID, events ...domain.Event) *domain.Reply {
	t.Helper()
	var reply *domain.Reply
	for _, event := range events {
		reply = e.HandleEvent(context.Background(), userID, event)
	}
	return reply
}

func TestBridgeFlowWalksAllStages(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: true})
	notifier := newCaptureNotifier()
	e := newTestEngine(executor, notifier)
	user := domain.UserID("u1")

	reply := drive(t, e, user, domain.Event{Kind: domain.EventBeginBridge})
	if reply == nil || len(reply.ChainOptions) != len(domain.SupportedNetworks) {
		t.Fatalf("expected all chains offered at flow start, got %+v", reply)
	}
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingSourceChain {
		t.Fatalf("expected awaiting_source_chain, got %q", got)
	}

	reply = drive(t, e, user, domain.Event{Kind: domain.EventSelectChain, Chain: "Ethereum"})
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingDestinationChain {
		t.Fatalf("expected awaiting_destination_chain after source select, got %q", got)
	}
	for _, option := range reply.ChainOptions {
		if option == "Ethereum" {
			t.Fatal("destination menu must exclude the chosen source chain")
		}
	}

	reply = drive(t, e, user, domain.Event{Kind: domain.EventSelectChain, Chain: "solana"})
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingAmount {
		t.Fatalf("expected awaiting_amount after destination select, got %q", got)
	}
	if !strings.Contains(reply.Text, "minimum $2") {
		t.Fatalf("expected amount prompt to carry the minimum, got %q", reply.Text)
	}

	drive(t, e, user, domain.Event{Kind: domain.EventText, Text: "10"})
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingAddress {
		t.Fatalf("expected awaiting_address after amount, got %q", got)
	}

	reply = drive(t, e, user, domain.Event{Kind: domain.EventText, Text: validSolanaAddress})
	if !strings.Contains(reply.Text, "Processing your transfer") {
		t.Fatalf("expected processing acknowledgement, got %q", reply.Text)
	}

	<-executor.done
	calls := executor.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one orchestration call, got %d", len(calls))
	}
	intent := calls[0]
	if intent.Source.Network != domain.NetworkEthereum || intent.Destination.Network != domain.NetworkSolana {
		t.Fatalf("intent carries wrong route: %s -> %s", intent.Source.Network, intent.Destination.Network)
	}
	if intent.RecipientAddress != validSolanaAddress {
		t.Fatalf("intent carries wrong recipient: %q", intent.RecipientAddress)
	}
	if !intent.AmountUSD.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("intent carries wrong amount: %s", intent.AmountUSD)
	}
	notifier.wait(t)
}

func TestTransferFlowSkipsDestinationStage(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: true})
	e := newTestEngine(executor, newCaptureNotifier())
	user := domain.UserID("u2")

	drive(t, e, user, domain.Event{Kind: domain.EventBeginTransfer})
	drive(t, e, user, domain.Event{Kind: domain.EventSelectChain, Chain: "base"})
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingAmount {
		t.Fatalf("transfer flow must skip destination stage, got %q", got)
	}

	drive(t, e, user, domain.Event{Kind: domain.EventText, Text: "5"})
	drive(t, e, user, domain.Event{Kind: domain.EventText, Text: validEVMAddress})

	<-executor.done
	calls := executor.calls()
	if len(calls) != 1 {
		t.Fatalf("expected one orchestration call, got %d", len(calls))
	}
	if calls[0].Bridge() {
		t.Fatal("same-chain transfer intent must not be a bridge")
	}
	if calls[0].Source.Network != domain.NetworkBase {
		t.Fatalf("wrong source network: %s", calls[0].Source.Network)
	}
}

func TestRejectionsLeaveStateUntouched(t *testing.T) {
	e := newTestEngine(newStubExecutor(domain.TransferOutcome{}), newCaptureNotifier())
	user := domain.UserID("u3")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginBridge},
		domain.Event{Kind: domain.EventSelectChain, Chain: "Ethereum"},
	)

	tests := []struct {
		name  string
		event domain.Event
		want  string
	}{
		{
			name:  "unsupported destination chain",
			event: domain.Event{Kind: domain.EventSelectChain, Chain: "dogecoin"},
			want:  "not supported",
		},
		{
			name:  "same chain as source",
			event: domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
			want:  "different from the source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := e.HandleEvent(context.Background(), user, tt.event)
			if reply == nil || !strings.Contains(reply.Text, tt.want) {
				t.Fatalf("expected rejection containing %q, got %+v", tt.want, reply)
			}
			if got := e.StateFor(user).Stage; got != domain.StageAwaitingDestinationChain {
				t.Fatalf("rejection must not advance the stage, got %q", got)
			}
		})
	}
}

func TestAmountValidation(t *testing.T) {
	e := newTestEngine(newStubExecutor(domain.TransferOutcome{}), newCaptureNotifier())
	user := domain.UserID("u4")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginTransfer},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
	)

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "not a number", text: "abc", want: "valid positive number"},
		{name: "zero", text: "0", want: "valid positive number"},
		{name: "negative", text: "-3", want: "valid positive number"},
		{name: "below minimum", text: "1", want: "Minimum amount is $2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: tt.text})
			if reply == nil || !strings.Contains(reply.Text, tt.want) {
				t.Fatalf("expected rejection containing %q, got %+v", tt.want, reply)
			}
			if got := e.StateFor(user).Stage; got != domain.StageAwaitingAmount {
				t.Fatalf("rejected amount must not advance the stage, got %q", got)
			}
		})
	}

	// Exactly the minimum is accepted.
	reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: "2"})
	if reply == nil || !strings.Contains(reply.Text, "recipient address") {
		t.Fatalf("expected address prompt at exact minimum, got %+v", reply)
	}
}

func TestAddressValidationMatchesTargetNetwork(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: true})
	e := newTestEngine(executor, newCaptureNotifier())
	user := domain.UserID("u5")

	// Bridge Ethereum -> Solana: recipient must be a Solana address.
	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginBridge},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
		domain.Event{Kind: domain.EventSelectChain, Chain: "solana"},
		domain.Event{Kind: domain.EventText, Text: "10"},
	)

	reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: validEVMAddress})
	if reply == nil || !strings.Contains(reply.Text, "valid Solana address") {
		t.Fatalf("expected Solana address rejection, got %+v", reply)
	}
	if got := e.StateFor(user).Stage; got != domain.StageAwaitingAddress {
		t.Fatalf("rejected address must not advance the stage, got %q", got)
	}
	if len(executor.calls()) != 0 {
		t.Fatal("rejected address must not reach the orchestrator")
	}
}

func TestStateResetsBeforeOrchestratorRuns(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: true})
	e := newTestEngine(executor, newCaptureNotifier())
	user := domain.UserID("u6")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginTransfer},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
		domain.Event{Kind: domain.EventText, Text: "10"},
		domain.Event{Kind: domain.EventText, Text: validEVMAddress},
	)

	// State must already be idle, regardless of the run still being in flight.
	if got := e.StateFor(user).Stage; got != domain.StageIdle {
		t.Fatalf("expected idle state immediately after submission, got %q", got)
	}

	// A repeated address message is stale free text against an idle session.
	reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: validEVMAddress})
	if reply != nil {
		t.Fatalf("expected stale text to be ignored, got %+v", reply)
	}

	<-executor.done
	if len(executor.calls()) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(executor.calls()))
	}
}

func TestCancel(t *testing.T) {
	e := newTestEngine(newStubExecutor(domain.TransferOutcome{}), newCaptureNotifier())
	user := domain.UserID("u7")

	reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventCancel})
	if reply == nil || !strings.Contains(reply.Text, "No transfer is currently in progress") {
		t.Fatalf("expected idle cancel message, got %+v", reply)
	}

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginBridge},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
	)
	reply = e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventCancel})
	if reply == nil || !strings.Contains(reply.Text, "Cancelled") {
		t.Fatalf("expected cancel confirmation, got %+v", reply)
	}
	if got := e.StateFor(user).Stage; got != domain.StageIdle {
		t.Fatalf("cancel must reset the session, got %q", got)
	}
}

func TestBeginFlowDiscardsPartialState(t *testing.T) {
	e := newTestEngine(newStubExecutor(domain.TransferOutcome{}), newCaptureNotifier())
	user := domain.UserID("u8")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginBridge},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
		domain.Event{Kind: domain.EventSelectChain, Chain: "solana"},
	)

	drive(t, e, user, domain.Event{Kind: domain.EventBeginTransfer})
	state := e.StateFor(user)
	if state.Stage != domain.StageAwaitingSourceChain {
		t.Fatalf("restart must return to source selection, got %q", state.Stage)
	}
	if state.Flow != domain.FlowTransfer {
		t.Fatalf("restart must adopt the new flow, got %q", state.Flow)
	}
	if state.SourceChain != "" || state.DestinationChain != "" {
		t.Fatal("restart must discard previously selected chains")
	}
}

func TestStaleEventsAreIgnored(t *testing.T) {
	e := newTestEngine(newStubExecutor(domain.TransferOutcome{}), newCaptureNotifier())
	user := domain.UserID("u9")

	if reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: "hello"}); reply != nil {
		t.Fatalf("free text while idle must be ignored, got %+v", reply)
	}
	if reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"}); reply != nil {
		t.Fatalf("chain click while idle must be ignored, got %+v", reply)
	}

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginTransfer},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
	)
	if reply := e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventSelectChain, Chain: "solana"}); reply != nil {
		t.Fatalf("chain click during amount stage must be ignored, got %+v", reply)
	}
}

func TestOutcomeNotificationFormatting(t *testing.T) {
	intent := domain.TransferIntent{
		Flow:             domain.FlowBridge,
		Source:           domain.MustChain(domain.NetworkEthereum),
		Destination:      domain.MustChain(domain.NetworkSolana),
		RecipientAddress: validSolanaAddress,
		AmountUSD:        decimal.NewFromInt(10),
	}

	success := domain.TransferOutcome{
		Success:      true,
		NativeAmount: decimal.RequireFromString("0.0041"),
		AssetSymbol:  "ETH",
		TxRef:        "0xabc",
		ExplorerLink: "https://etherscan.io/tx/0xabc",
	}
	reply := formatOutcome(intent, success)
	for _, want := range []string{"✅", "From: Ethereum", "To: Solana", "$10", "0.0041 ETH", "0xabc", "https://etherscan.io/tx/0xabc"} {
		if !strings.Contains(reply.Text, want) {
			t.Fatalf("success message missing %q:\n%s", want, reply.Text)
		}
	}

	failure := domain.TransferOutcome{Success: false, Reason: "Insufficient balance."}
	reply = formatOutcome(intent, failure)
	if reply.Text != "❌ Insufficient balance." {
		t.Fatalf("unexpected failure message: %q", reply.Text)
	}
}

func TestFailureOutcomeReachesNotifier(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: false, Reason: "Quote rejected."})
	notifier := newCaptureNotifier()
	e := newTestEngine(executor, notifier)
	user := domain.UserID("u10")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginTransfer},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
		domain.Event{Kind: domain.EventText, Text: "10"},
		domain.Event{Kind: domain.EventText, Text: validEVMAddress},
	)

	reply := notifier.wait(t)
	if reply.Text != "❌ Quote rejected." {
		t.Fatalf("unexpected outcome notification: %q", reply.Text)
	}
}

// pausingStore widens the window between reading a user's state and the reset
// that follows an accepted address, so an unserialized engine would let two
// concurrent address events both observe the awaiting-address stage.
type pausingStore struct {
	session.Store
	pause time.Duration
}

func (s *pausingStore) Get(userID domain.UserID) domain.ConversationState {
	state := s.Store.Get(userID)
	if state.Stage == domain.StageAwaitingAddress {
		time.Sleep(s.pause)
	}
	return state
}

func TestConcurrentAddressEventsSubmitOnce(t *testing.T) {
	executor := newStubExecutor(domain.TransferOutcome{Success: true})
	store := &pausingStore{Store: session.NewMemoryStore(), pause: 50 * time.Millisecond}
	e := New(store, executor, newCaptureNotifier(), decimal.NewFromInt(2), time.Minute)
	user := domain.UserID("u11")

	drive(t, e, user,
		domain.Event{Kind: domain.EventBeginTransfer},
		domain.Event{Kind: domain.EventSelectChain, Chain: "ethereum"},
		domain.Event{Kind: domain.EventText, Text: "10"},
	)

	var wg sync.WaitGroup
	replies := make([]*domain.Reply, 2)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = e.HandleEvent(context.Background(), user, domain.Event{Kind: domain.EventText, Text: validEVMAddress})
		}(i)
	}
	wg.Wait()
	<-executor.done

	accepted := 0
	for _, reply := range replies {
		if reply != nil {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one address event accepted, got %d", accepted)
	}

	// Give a second erroneous dispatch time to surface before counting.
	time.Sleep(100 * time.Millisecond)
	if got := len(executor.calls()); got != 1 {
		t.Fatalf("expected exactly one submission, got %d", got)
	}
}
