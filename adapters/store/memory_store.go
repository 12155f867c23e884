package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/crosswalk-games/pointbridge/ports"
)

// MemoryStore is an in-memory implementation of the ApprovalStore interface
type MemoryStore struct {
	issued map[string]time.Time
	mu     sync.Mutex
}

// NewMemoryStore creates a new in-memory approval store
func NewMemoryStore() ports.ApprovalStore {
	return &MemoryStore{
		issued: make(map[string]time.Time),
	}
}

// RecordIssued marks a (wallet, nonce) pair as issued and reports whether
// it had already been recorded within the retention window.
func (s *MemoryStore) RecordIssued(ctx context.Context, walletAddress string, nextNonce int64, retention time.Duration) (bool, error) {
	key := issuedKey(walletAddress, nextNonce)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, exists := s.issued[key]
	already := exists && now.Before(expiry)
	s.issued[key] = now.Add(retention)

	// Drop entries that have aged out. The map stays small enough that a
	// linear sweep on write is fine.
	for k, exp := range s.issued {
		if now.After(exp) {
			delete(s.issued, k)
		}
	}

	return already, nil
}

func issuedKey(walletAddress string, nextNonce int64) string {
	return fmt.Sprintf("%s:%d", walletAddress, nextNonce)
}
