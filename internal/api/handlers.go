/**
 * @description
 * This file contains the HTTP handlers for the bridge service's API endpoints.
 * Handlers parse inbound requests from the messaging front-end and the operator
 * tooling, call into the conversation engine / balance aggregation / history
 * ledger, and write JSON responses.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/domain, internal/engine, internal/orchestrator, internal/store.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/refuelhq/bridge-service/internal/domain"
	"github.com/refuelhq/bridge-service/internal/engine"
	"github.com/refuelhq/bridge-service/internal/orchestrator"
	"github.com/refuelhq/bridge-service/internal/store"
	"github.com/refuelhq/bridge-service/pkg/walletclient"
)

// Handlers holds the collaborators the HTTP layer dispatches into.
type Handlers struct {
	engine    *engine.Engine
	balances  *orchestrator.Orchestrator
	wallets   orchestrator.WalletStore
	history   store.Repository // optional; nil disables the history endpoint
	limiter   *RedisRateLimiter
	eventRate int // events per user per minute; <=0 disables limiting
}

// NewHandlers creates the handler set.
func NewHandlers(
	eng *engine.Engine,
	balances *orchestrator.Orchestrator,
	wallets orchestrator.WalletStore,
	history store.Repository,
	limiter *RedisRateLimiter,
	eventRate int,
) *Handlers {
	return &Handlers{
		engine:    eng,
		balances:  balances,
		wallets:   wallets,
		history:   history,
		limiter:   limiter,
		eventRate: eventRate,
	}
}

type eventRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Chain  string `json:"chain,omitempty"`
	Text   string `json:"text,omitempty"`
}

var validEventKinds = map[domain.EventKind]bool{
	domain.EventBeginBridge:   true,
	domain.EventBeginTransfer: true,
	domain.EventSelectChain:   true,
	domain.EventText:          true,
	domain.EventCancel:        true,
}

// HandleEventPost is the front-end's entry point: one inbound user event in,
// zero or one reply out.
func (h *Handlers) HandleEventPost(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	kind := domain.EventKind(strings.TrimSpace(req.Kind))
	if !validEventKinds[kind] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event kind %q", req.Kind))
		return
	}

	if h.limiter != nil && h.eventRate > 0 {
		count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), "events", userID, h.eventRate, time.Minute)
		if err != nil {
			// A broken limiter must not take the conversation surface down.
			log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		} else if retryAfter > 0 {
			log.Printf("level=info component=api msg=\"event rate limited\" user_id=%s count=%d", userID, count)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "too many events; slow down")
			return
		}
	}

	reply := h.engine.HandleEvent(r.Context(), domain.UserID(userID), domain.Event{
		Kind:  kind,
		Chain: req.Chain,
		Text:  req.Text,
	})
	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type sessionResponse struct {
	Stage            string `json:"stage"`
	Flow             string `json:"flow,omitempty"`
	SourceChain      string `json:"source_chain,omitempty"`
	DestinationChain string `json:"destination_chain,omitempty"`
	AmountUSD        string `json:"amount_usd,omitempty"`
}

// GetSessionHandler exposes a user's current conversation state for diagnostics.
func (h *Handlers) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	state := h.engine.StateFor(domain.UserID(userID))

	resp := sessionResponse{Stage: string(state.Stage)}
	if resp.Stage == "" {
		resp.Stage = string(domain.StageIdle)
	}
	if !state.Idle() {
		resp.Flow = string(state.Flow)
		resp.SourceChain = string(state.SourceChain)
		resp.DestinationChain = string(state.DestinationChain)
		if state.AmountSet {
			resp.AmountUSD = state.AmountUSD.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type balanceEntry struct {
	Balance string `json:"balance"` // native display units
	Symbol  string `json:"symbol"`
}

// GetBalancesHandler returns the user's balances across every configured
// network. Individual network outages report zero rather than failing the call.
func (h *Handlers) GetBalancesHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	wallets, err := h.wallets.GetWallets(r.Context(), userID)
	if err != nil {
		if errors.Is(err, walletclient.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "no wallet found for this user")
			return
		}
		log.Printf("level=warn component=api op=get_balances user_id=%s err=%v", userID, err)
		writeError(w, http.StatusBadGateway, "wallet service unavailable")
		return
	}

	addresses := make(map[domain.Network]string, len(domain.SupportedNetworks))
	for _, network := range domain.SupportedNetworks {
		chain := domain.MustChain(network)
		if chain.AddressKind == domain.AddressKindSolana {
			addresses[network] = wallets.SolanaWallet.Address
		} else {
			addresses[network] = wallets.EVMWallet.Address
		}
	}

	balances := h.balances.AggregateBalances(r.Context(), addresses)
	resp := make(map[string]balanceEntry, len(balances))
	for network, units := range balances {
		chain := domain.MustChain(network)
		resp[string(network)] = balanceEntry{
			Balance: chain.FromSmallestUnits(units).String(),
			Symbol:  chain.AssetSymbol,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTransfersHandler returns a user's transfer history, newest first.
func (h *Handlers) ListTransfersHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "transfer history is not configured")
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.history.ListTransfersByUser(r.Context(), userID, limit)
	if err != nil {
		log.Printf("level=warn component=api op=list_transfers user_id=%s err=%v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list transfers")
		return
	}
	if records == nil {
		records = []store.TransferRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transfers": records})
}

// GetTransferHandler returns one transfer record by its intent id.
func (h *Handlers) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "transfer history is not configured")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "transferID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "transfer id must be a uuid")
		return
	}

	record, err := h.history.FindTransferByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTransferNotFound) {
			writeError(w, http.StatusNotFound, "transfer not found")
			return
		}
		log.Printf("level=warn component=api op=get_transfer transfer_id=%s err=%v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to load transfer")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=warn component=api msg=\"response encode failed\" err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
