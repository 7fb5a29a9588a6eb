package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"

	"finease/internal/core"

	"github.com/google/uuid"
)

// Store keeps transactions in process memory, in insertion order. It is
// used for local development and as the reference backend in tests.
type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
	index map[string]int
}

func New(seed ...core.Transaction) *Store {
	s := &Store{index: make(map[string]int)}
	for _, tx := range seed {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		s.index[tx.ID] = len(s.items)
		s.items = append(s.items, tx)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of transactions. A missing
// file yields an empty store; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Transaction
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, tx := range seed {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	return New(seed...), nil
}

// Insert stores the transaction under a fresh id.
func (s *Store) Insert(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = uuid.NewString()
	tx.Extra = maps.Clone(tx.Extra)
	s.index[tx.ID] = len(s.items)
	s.items = append(s.items, tx)
	return tx.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return copyOf(s.items[i]), nil
}

func (s *Store) ListByOwner(_ context.Context, email string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owned(email), nil
}

func (s *Store) Update(_ context.Context, id string, patch core.TransactionPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	before := s.items[i]
	after := before.Apply(patch)
	if equal(before, after) {
		return 0, nil
	}
	s.items[i] = after
	return 1, nil
}

func (s *Store) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return 0, nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	return 1, nil
}

func (s *Store) SumCategoryType(_ context.Context, email, category string, typ core.TransactionType) (core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.SumCategoryType(s.owned(email), category, typ), nil
}

func (s *Store) SumByType(_ context.Context, email string) ([]core.TypeTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.SumByType(s.owned(email)), nil
}

func (s *Store) SumByCategory(_ context.Context, email string) ([]core.CategoryAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.SumByCategory(s.owned(email)), nil
}

func (s *Store) SumByMonth(_ context.Context, email string) ([]core.MonthTypeTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.SumByMonth(s.owned(email)), nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// owned must be called with the lock held.
func (s *Store) owned(email string) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range s.items {
		if tx.Email == email {
			out = append(out, copyOf(tx))
		}
	}
	return out
}

func copyOf(tx core.Transaction) core.Transaction {
	tx.Extra = maps.Clone(tx.Extra)
	return tx
}

func equal(a, b core.Transaction) bool {
	if !a.Amount.Equal(b.Amount) || a.Type != b.Type || a.Category != b.Category ||
		!a.Date.Equal(b.Date.Time) || len(a.Extra) != len(b.Extra) {
		return false
	}
	for k, v := range a.Extra {
		w, ok := b.Extra[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(w) {
			return false
		}
	}
	return true
}
