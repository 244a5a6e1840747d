/**
 * @description
 * This package holds the per-user conversation state. Access is always scoped to
 * a single user identity; the core logic never iterates across users. The map
 * implementation is in-memory only — conversation state is short-lived and loses
 * nothing of value across restarts (in-flight transfers are recorded in the
 * durable history ledger, not here).
 *
 * @dependencies
 * - sync: guards the shared map; HTTP handlers run concurrently.
 * - internal/domain: the conversation state record.
 */

package session

import (
	"sync"

	"github.com/refuelhq/bridge-service/internal/domain"
)

// Store is the contract the conversation engine uses to read and write a single
// user's conversation state.
type Store interface {
	// Get returns the user's current state, creating a fresh idle record on
	// first interaction.
	Get(userID domain.UserID) domain.ConversationState
	// Put replaces the user's state wholesale.
	Put(userID domain.UserID, state domain.ConversationState)
	// Reset discards the user's state, returning them to idle.
	Reset(userID domain.UserID)
}

// MemoryStore is the in-memory Store implementation, partitioned per user id.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]domain.ConversationState
}

// NewMemoryStore creates an empty session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[domain.UserID]domain.ConversationState)}
}

func (s *MemoryStore) Get(userID domain.UserID) domain.ConversationState {
	s.mu.RLock()
	state, ok := s.sessions[userID]
	s.mu.RUnlock()
	if !ok {
		return domain.NewConversationState()
	}
	return state
}

func (s *MemoryStore) Put(userID domain.UserID, state domain.ConversationState) {
	s.mu.Lock()
	s.sessions[userID] = state
	s.mu.Unlock()
}

func (s *MemoryStore) Reset(userID domain.UserID) {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
}
