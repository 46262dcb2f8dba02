// Package intake holds the receipt intake pieces that live between the chat and the ledger:
// the debounced photo collector, the staging area for unconfirmed receipts and image preparation.
package intake

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/shared_expense_bot/internal/core/domain"
	"github.com/SscSPs/shared_expense_bot/internal/middleware"
	"github.com/SscSPs/shared_expense_bot/pkg/clock"
	"github.com/google/uuid"
)

// DefaultPendingTTL is how long an unconfirmed receipt is kept.
const DefaultPendingTTL = time.Hour

// PendingReceiptStore keeps extracted receipts until they are confirmed. Expired entries are
// removed on the next Stage or Consume; there is no background sweeper.
type PendingReceiptStore struct {
	mu      sync.Mutex
	entries map[string]domain.PendingReceipt
	ttl     time.Duration
	clock   clock.Clock
}

// NewPendingReceiptStore creates an empty store.
func NewPendingReceiptStore(ttl time.Duration, clk clock.Clock) *PendingReceiptStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if clk == nil {
		clk = clock.NewReal()
	}
	return &PendingReceiptStore{
		entries: make(map[string]domain.PendingReceipt),
		ttl:     ttl,
		clock:   clk,
	}
}

// Stage stores receipt and returns its id. A missing id is generated.
func (s *PendingReceiptStore) Stage(ctx context.Context, receipt domain.PendingReceipt) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.sweepLocked(ctx, now)

	if receipt.ReceiptID == "" {
		receipt.ReceiptID = uuid.NewString()
	}
	receipt.StagedAt = now
	s.entries[receipt.ReceiptID] = receipt
	return receipt.ReceiptID
}

// Get returns the receipt without removing it. Expired receipts are reported as absent.
func (s *PendingReceiptStore) Get(id string) (domain.PendingReceipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.entries[id]
	if !ok || s.expired(r, s.clock.Now()) {
		return domain.PendingReceipt{}, false
	}
	return r, true
}

// Update replaces a staged receipt, keeping its staging time.
func (s *PendingReceiptStore) Update(receipt domain.PendingReceipt) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[receipt.ReceiptID]
	if !ok || s.expired(cur, s.clock.Now()) {
		return false
	}
	receipt.StagedAt = cur.StagedAt
	s.entries[receipt.ReceiptID] = receipt
	return true
}

// Consume removes and returns the receipt. Only one caller can consume a given id.
func (s *PendingReceiptStore) Consume(ctx context.Context, id string) (domain.PendingReceipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(ctx, s.clock.Now())
	r, ok := s.entries[id]
	if !ok {
		return domain.PendingReceipt{}, false
	}
	delete(s.entries, id)
	return r, true
}

// Len reports the number of stored entries, expired ones included until swept.
func (s *PendingReceiptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *PendingReceiptStore) expired(r domain.PendingReceipt, now time.Time) bool {
	return now.Sub(r.StagedAt) > s.ttl
}

func (s *PendingReceiptStore) sweepLocked(ctx context.Context, now time.Time) {
	swept := 0
	for id, r := range s.entries {
		if s.expired(r, now) {
			delete(s.entries, id)
			swept++
		}
	}
	if swept > 0 {
		middleware.GetLoggerFromCtx(ctx).Debug("Expired pending receipts removed", slog.Int("count", swept))
	}
}
